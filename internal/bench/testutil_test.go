package bench

import (
	"context"
	"sync"
	"testing"
	"time"

	"benchd/internal/provider"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// script drives a fake provider stream for one model.
type script func(ctx context.Context, req provider.Request, emit func(provider.Event)) error

// fakeProvider runs a per-model script and records every request.
type fakeProvider struct {
	mu      sync.Mutex
	scripts map[string]script
	calls   []provider.Request
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{scripts: make(map[string]script)}
}

func (f *fakeProvider) set(modelID string, s script) {
	f.mu.Lock()
	f.scripts[modelID] = s
	f.mu.Unlock()
}

func (f *fakeProvider) Stream(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	s := f.scripts[req.Model.ID]
	f.mu.Unlock()
	if s == nil {
		return echo(ctx, req, emit)
	}
	return s(ctx, req, emit)
}

func (f *fakeProvider) lastCall(modelID string) provider.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Model.ID == modelID {
			return f.calls[i]
		}
	}
	return provider.Request{}
}

// fakeImages adds image generation to fakeProvider.
type fakeImages struct {
	*fakeProvider
	images []provider.Image
	err    error
}

func (f *fakeImages) GenerateImages(ctx context.Context, req provider.Request) ([]provider.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.images, nil
}

// echo answers "re:<prompt>".
func echo(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
	emit(provider.Event{Kind: provider.EventStart})
	emit(provider.Event{Kind: provider.EventDelta, Text: "re:" + req.LastUserPrompt()})
	emit(provider.Event{Kind: provider.EventFinish})
	return nil
}

// hang acknowledges, sends one delta and waits for cancellation.
func hang(ctx context.Context, req provider.Request, emit func(provider.Event)) error {
	emit(provider.Event{Kind: provider.EventStart})
	emit(provider.Event{Kind: provider.EventDelta, Text: "partial"})
	<-ctx.Done()
	return ctx.Err()
}

func testModel(id, name string) types.Model {
	return types.Model{ID: id, Name: name, Provider: "fake", Enabled: true}
}

func newTestEngine(t *testing.T, models ...types.Model) (*Engine, *fakeProvider) {
	t.Helper()
	st := store.New(models, types.GenerationConfig{})
	fp := newFakeProvider()
	reg := provider.NewRegistry()
	reg.Register("fake", fp)
	e := NewWithConfig(Config{Store: st, Providers: reg, FlushInterval: time.Millisecond})
	t.Cleanup(func() { _ = e.Close() })
	return e, fp
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func outcomeFor(t *testing.T, rep Report, modelID string) Outcome {
	t.Helper()
	for _, o := range rep.Outcomes {
		if o.ModelID == modelID {
			return o
		}
	}
	t.Fatalf("no outcome for model %s", modelID)
	return Outcome{}
}

func mustResult(t *testing.T, e *Engine, id string) types.BenchmarkResult {
	t.Helper()
	r, ok := e.Store().Result(id)
	if !ok {
		t.Fatalf("result %s missing", id)
	}
	return r
}

func assertQuiescent(t *testing.T, e *Engine) {
	t.Helper()
	if n := len(e.LiveSessions()); n != 0 {
		t.Fatalf("expected no live sessions, got %d", n)
	}
	if n := e.Store().PatchCount(); n != 0 {
		t.Fatalf("expected no streaming patches, got %d", n)
	}
	if n := e.Store().StreamingCount(); n != 0 {
		t.Fatalf("expected no in-flight results, got %d", n)
	}
	if n := e.batcher.Pending(); n != 0 {
		t.Fatalf("expected no buffered patches, got %d", n)
	}
}
