package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/mnemoai/mnemo-go-sdk/core"
	"github.com/mnemoai/mnemo-go-sdk/engine"
	"github.com/mnemoai/mnemo-go-sdk/llm/llmtest"
	"github.com/mnemoai/mnemo-go-sdk/tools"
)

func dialTestServer(t *testing.T, eng *engine.Engine) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(New(eng).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, frame ClientFrame) ServerFrame {
	t.Helper()
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply ServerFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

func TestServerAnswers(t *testing.T) {
	reasoner := llmtest.NewScripted(llmtest.Answer("42"))
	eng := engine.New(reasoner, tools.NewRegistry())
	conn := dialTestServer(t, eng)

	reply := roundTrip(t, conn, ClientFrame{Type: "message", Text: "meaning of life?"})
	if reply.Type != "answer" || reply.Text != "42" {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.ThreadID == "" {
		t.Error("thread_id not set")
	}
}

func TestServerConfirmationHandshake(t *testing.T) {
	var risky atomic.Int64
	reg := tools.NewRegistry()
	err := reg.Register(&tools.Spec{
		Name:                 "risky",
		Description:          "needs approval",
		InputSchema:          tools.ObjectSchema(map[string]interface{}{}),
		RequiresConfirmation: true,
		Handler: func(context.Context, json.RawMessage) (interface{}, error) {
			risky.Add(1)
			return map[string]string{"ok": "true"}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	reasoner := llmtest.NewScripted(
		llmtest.Calls(core.ToolCall{ID: "c1", Name: "risky", Args: json.RawMessage(`{}`)}),
		llmtest.Answer("done"),
	)
	conn := dialTestServer(t, engine.New(reasoner, reg))

	reply := roundTrip(t, conn, ClientFrame{Type: "message", Text: "do the thing"})
	if reply.Type != "confirm_request" || reply.Tool != "risky" {
		t.Fatalf("reply = %+v", reply)
	}
	if risky.Load() != 0 {
		t.Fatal("tool ran before confirmation")
	}

	// A new message while suspended is rejected.
	errReply := roundTrip(t, conn, ClientFrame{Type: "message", Text: "never mind"})
	if errReply.Type != "error" {
		t.Fatalf("expected error frame, got %+v", errReply)
	}

	final := roundTrip(t, conn, ClientFrame{Type: "confirm", Approved: true})
	if final.Type != "answer" || final.Text != "done" {
		t.Fatalf("final = %+v", final)
	}
	if risky.Load() != 1 {
		t.Errorf("tool ran %d times, want 1", risky.Load())
	}
}

func TestServerUnknownFrame(t *testing.T) {
	conn := dialTestServer(t, engine.New(llmtest.NewScripted(), tools.NewRegistry()))
	reply := roundTrip(t, conn, ClientFrame{Type: "ping"})
	if reply.Type != "error" {
		t.Fatalf("reply = %+v", reply)
	}
}
