package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mnemoai/mnemo-go-sdk/memory"
)

// fakeStore records Write/Read calls so the memory tools can be checked
// without a vector database.
type fakeStore struct {
	writes []fakeWrite
	reads  []fakeRead
}

type fakeWrite struct {
	content    string
	memType    memory.Type
	importance int
	tags       []string
}

type fakeRead struct {
	query  string
	filter memory.Type
	topK   int
}

func (f *fakeStore) Write(_ context.Context, content string, memType memory.Type, importance int, tags []string) (*memory.WriteResult, error) {
	f.writes = append(f.writes, fakeWrite{content, memType, importance, tags})
	return &memory.WriteResult{Status: "saved", MemoryID: "mem_1", Content: content, MemoryType: memType}, nil
}

func (f *fakeStore) Read(_ context.Context, query string, filter memory.Type, topK int) ([]memory.SearchResult, error) {
	f.reads = append(f.reads, fakeRead{query, filter, topK})
	return []memory.SearchResult{{
		Record: memory.Record{
			ID: "mem_1", Content: "선호 언어: Python", Type: memory.TypeProfile,
			Importance: 4, CreatedAt: time.Now(),
		},
		Similarity: 0.9,
	}}, nil
}

func (f *fakeStore) Cleanup(context.Context, int) (int, error) { return 0, nil }
func (f *fakeStore) Count() int                                { return len(f.writes) }
func (f *fakeStore) Close() error                              { return nil }

type fakeCorpus struct {
	lastQuery string
	lastN     int
}

func (f *fakeCorpus) Add(context.Context, ...memory.Document) error { return nil }

func (f *fakeCorpus) Search(_ context.Context, query string, n int) ([]memory.CorpusHit, error) {
	f.lastQuery, f.lastN = query, n
	return []memory.CorpusHit{{Rank: 1, Content: "attention is all you need", Score: 0.8}}, nil
}

func callSpec(t *testing.T, spec *Spec, args string) map[string]interface{} {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(spec); err != nil {
		t.Fatal(err)
	}
	out, err := reg.Call(context.Background(), spec.Name, json.RawMessage(args))
	if err != nil {
		t.Fatalf("call %s: %v", spec.Name, err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(out, &result); err != nil {
		t.Fatalf("decode %s observation: %v", spec.Name, err)
	}
	if errVal, ok := result["error"]; ok {
		t.Fatalf("%s returned error envelope: %v (%s)", spec.Name, errVal, out)
	}
	return result
}

func TestGetTime(t *testing.T) {
	result := callSpec(t, GetTimeSpec(), `{"timezone":"Asia/Seoul"}`)
	if result["timezone"] != "Asia/Seoul" {
		t.Errorf("timezone = %v", result["timezone"])
	}
	if _, err := time.Parse(time.RFC3339, result["iso"].(string)); err != nil {
		t.Errorf("iso field not RFC3339: %v", err)
	}
}

func TestGetTimeBadTimezone(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(GetTimeSpec()); err != nil {
		t.Fatal(err)
	}
	out, err := reg.Call(context.Background(), "get_time", json.RawMessage(`{"timezone":"Mars/Olympus"}`))
	if err != nil {
		t.Fatal(err)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error != "runtime_error" {
		t.Errorf("error = %q, want runtime_error", envelope.Error)
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		args string
		want float64
	}{
		{`{"num1":6,"num2":7,"op":"multiply"}`, 42},
		{`{"num1":10,"num2":4,"op":"subtract"}`, 6},
		{`{"num1":1.5,"num2":2.5,"op":"add"}`, 4},
		{`{"num1":9,"num2":3,"op":"divide"}`, 3},
	}
	for _, tt := range tests {
		result := callSpec(t, CalculateSpec(), tt.args)
		if got := result["result"].(float64); got != tt.want {
			t.Errorf("calculate(%s) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestCalculateDivideByZero(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(CalculateSpec()); err != nil {
		t.Fatal(err)
	}
	out, err := reg.Call(context.Background(), "calculate", json.RawMessage(`{"num1":1,"num2":0,"op":"divide"}`))
	if err != nil {
		t.Fatal(err)
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		t.Fatal(err)
	}
	if envelope.Error != "runtime_error" {
		t.Errorf("division by zero should be a runtime_error, got %q", envelope.Error)
	}
}

func TestWebSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "golang" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("num"); got != "2" {
			t.Errorf("num = %q", got)
		}
		if _, err := w.Write([]byte(`{"items":[{"title":"Go","link":"https://go.dev","snippet":"The Go site"}]}`)); err != nil {
			t.Error(err)
		}
	}))
	defer srv.Close()

	spec := WebSearchSpec(WebSearchConfig{APIKey: "k", CX: "cx", BaseURL: srv.URL})
	if !spec.RequiresConfirmation {
		t.Error("web_search must require confirmation")
	}

	result := callSpec(t, spec, `{"query":"golang","num_results":2}`)
	items := result["results"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("got %d results", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["link"] != "https://go.dev" {
		t.Errorf("link = %v", first["link"])
	}
}

func TestRAGSearchDefaults(t *testing.T) {
	corpus := &fakeCorpus{}
	result := callSpec(t, RAGSearchSpec(corpus), `{"query":"transformers"}`)

	if corpus.lastQuery != "transformers" || corpus.lastN != 5 {
		t.Errorf("corpus searched with (%q, %d), want (transformers, 5)", corpus.lastQuery, corpus.lastN)
	}
	if result["source"] != "knowledge_corpus" {
		t.Errorf("source = %v", result["source"])
	}
}

func TestReadMemoryDefaults(t *testing.T) {
	store := &fakeStore{}
	result := callSpec(t, ReadMemorySpec(store), `{"query":"language preference"}`)

	if len(store.reads) != 1 {
		t.Fatalf("got %d reads", len(store.reads))
	}
	read := store.reads[0]
	if read.filter != memory.TypeAll || read.topK != 5 {
		t.Errorf("read defaults = (%s, %d), want (all, 5)", read.filter, read.topK)
	}
	if result["count"].(float64) != 1 {
		t.Errorf("count = %v", result["count"])
	}
}

func TestWriteMemoryDefaults(t *testing.T) {
	store := &fakeStore{}
	spec := WriteMemorySpec(store)
	if !spec.RequiresConfirmation {
		t.Error("write_memory must require confirmation")
	}

	result := callSpec(t, spec, `{"content":"선호 언어: Python"}`)

	if len(store.writes) != 1 {
		t.Fatalf("got %d writes", len(store.writes))
	}
	write := store.writes[0]
	if write.memType != memory.TypeEpisodic || write.importance != 3 {
		t.Errorf("write defaults = (%s, %d), want (episodic, 3)", write.memType, write.importance)
	}
	if result["status"] != "saved" {
		t.Errorf("status = %v", result["status"])
	}
}

func TestRegisterDefaults(t *testing.T) {
	reg := NewRegistry()
	if err := RegisterDefaults(reg, &fakeStore{}, &fakeCorpus{}, WebSearchConfig{}); err != nil {
		t.Fatal(err)
	}

	want := []string{"get_time", "calculate", "web_search", "rag_search", "read_memory", "write_memory"}
	catalogue := reg.Catalogue()
	if len(catalogue) != len(want) {
		t.Fatalf("got %d tools, want %d", len(catalogue), len(want))
	}
	for i, entry := range catalogue {
		if entry.Name != want[i] {
			t.Errorf("catalogue[%d] = %s, want %s", i, entry.Name, want[i])
		}
	}

	risky := map[string]bool{"web_search": true, "write_memory": true}
	for name, wantRisky := range risky {
		spec, ok := reg.Get(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		if spec.RequiresConfirmation != wantRisky {
			t.Errorf("%s RequiresConfirmation = %v", name, spec.RequiresConfirmation)
		}
	}
}
