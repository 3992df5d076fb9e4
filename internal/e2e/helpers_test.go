package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"benchd/internal/bench"
	"benchd/internal/events"
	"benchd/internal/httpapi"
	"benchd/internal/provider"
	"benchd/internal/registry"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// createTempModelsDir creates a temporary directory populated with empty .gguf files.
func createTempModelsDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte(""), 0o644); err != nil {
			t.Fatalf("write temp model %s: %v", p, err)
		}
	}
	return dir
}

// upstream is a fake llama.cpp server. reply decides what each request streams.
type upstream struct {
	*httptest.Server
}

type replyFunc func(w http.ResponseWriter, model string, prompt string)

func newUpstream(t *testing.T, reply replyFunc) *upstream {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string          `json:"model"`
			Messages []types.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		if n := len(req.Messages); n > 0 {
			prompt = req.Messages[n-1].Content
		}
		w.Header().Set("Content-Type", "text/event-stream")
		reply(w, filepath.Base(req.Model), prompt)
	}))
	t.Cleanup(ts.Close)
	return &upstream{Server: ts}
}

// echoReply streams "<model>: <prompt>" in two chunks.
func echoReply(w http.ResponseWriter, model, prompt string) {
	chunk(w, model+": ")
	chunk(w, prompt)
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func chunk(w http.ResponseWriter, s string) {
	b, _ := json.Marshal(s)
	fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%s}}]}\n\n", b)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

type stack struct {
	srv    *httptest.Server
	engine *bench.Engine
	store  *store.Store
	hub    *events.Hub
}

// newStack wires registry, provider, store, engine and HTTP API the way
// `benchd serve` does, with every model in modelsDir served by up.
func newStack(t *testing.T, modelsDir string, up *upstream, global types.GenerationConfig) *stack {
	t.Helper()
	models, err := registry.LoadDir(modelsDir, "local")
	if err != nil {
		t.Fatalf("scan models: %v", err)
	}
	reg := provider.NewRegistry()
	reg.Register("local", provider.NewLlamaServer(provider.Options{BaseURL: up.URL}))

	hub := events.NewHub(1024)
	st := store.New(models, global)
	st.SetPublisher(hub)
	eng := bench.NewWithConfig(bench.Config{
		Store:         st,
		Providers:     reg,
		FlushInterval: 5 * time.Millisecond,
		Logger:        zerolog.Nop(),
		Publisher:     hub,
	})
	srv := httptest.NewServer(httpapi.NewMux(httpapi.NewService(eng, hub)))
	t.Cleanup(func() {
		srv.Close()
		eng.Close()
	})
	return &stack{srv: srv, engine: eng, store: st, hub: hub}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func httpPostJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(http.MethodPost, url, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func mustDecode(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode: %v body=%s", err, b)
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func contextWithCancel() (context.Context, context.CancelFunc) {
	return context.WithCancel(context.Background())
}
