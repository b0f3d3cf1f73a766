// Package server exposes the agent over a WebSocket. Each connection owns
// one thread; the confirmation handshake for risky tools happens in-band as
// a confirm_request / confirm frame pair.
package server

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mnemoai/mnemo-go-sdk/engine"
)

// ClientFrame is what the browser sends: a user message, or the verdict for
// a pending confirmation.
type ClientFrame struct {
	Type     string `json:"type"` // "message" | "confirm"
	Text     string `json:"text,omitempty"`
	Approved bool   `json:"approved,omitempty"`
}

// ServerFrame is what the agent sends back.
type ServerFrame struct {
	Type     string `json:"type"` // "answer" | "confirm_request" | "error"
	Text     string `json:"text,omitempty"`
	Tool     string `json:"tool,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Server serves agent conversations over WebSocket connections.
type Server struct {
	engine   *engine.Engine
	upgrader websocket.Upgrader
}

// New creates a Server over an orchestrator.
func New(eng *engine.Engine) *Server {
	return &Server{
		engine: eng,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the connection and runs the conversation loop until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[SERVER] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	thread := engine.NewThread()
	log.Printf("[SERVER] connected, thread %s", thread.ID)

	for {
		var frame ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[SERVER] thread %s: read: %v", thread.ID, err)
			}
			return
		}

		out, err := s.dispatch(r.Context(), thread, frame)
		if err != nil {
			if writeErr := conn.WriteJSON(ServerFrame{Type: "error", Text: err.Error(), ThreadID: thread.ID}); writeErr != nil {
				return
			}
			continue
		}

		if err := conn.WriteJSON(s.frameFor(thread, out)); err != nil {
			log.Printf("[SERVER] thread %s: write: %v", thread.ID, err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, thread *engine.Thread, frame ClientFrame) (*engine.Output, error) {
	switch frame.Type {
	case "message":
		if thread.Suspended() {
			return nil, errors.New("a confirmation is pending; send a confirm frame first")
		}
		return s.engine.Run(ctx, thread, frame.Text)
	case "confirm":
		return s.engine.Resume(ctx, thread, frame.Approved)
	default:
		return nil, errors.New("unknown frame type: " + frame.Type)
	}
}

func (s *Server) frameFor(thread *engine.Thread, out *engine.Output) ServerFrame {
	switch out.Type {
	case engine.OutputConfirmation:
		frame := ServerFrame{Type: "confirm_request", Text: out.Prompt, ThreadID: thread.ID}
		if out.PendingCall != nil {
			frame.Tool = out.PendingCall.Name
		}
		return frame
	default:
		return ServerFrame{Type: "answer", Text: out.Answer, ThreadID: thread.ID}
	}
}

// Handler mounts the server at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Printf("[SERVER] healthz write: %v", err)
		}
	})
	return mux
}
