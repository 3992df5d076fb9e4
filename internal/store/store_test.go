package store

import (
	"path/filepath"
	"testing"
	"time"

	"benchd/internal/events"
	"benchd/pkg/types"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	s := New([]types.Model{
		{ID: "a", Name: "A", Enabled: true},
		{ID: "b", Name: "B", Enabled: false},
		{ID: "c", Name: "C", Enabled: true},
	}, types.GenerationConfig{})
	cs := s.CreateSession("t")
	return s, cs.ID
}

func addResult(t *testing.T, s *Store, sid, id, model string) {
	t.Helper()
	if err := s.AddResult(types.BenchmarkResult{ID: id, SessionID: sid, ModelID: model, Prompt: "p"}); err != nil {
		t.Fatalf("add result: %v", err)
	}
}

func TestActiveModelsKeepsOrder(t *testing.T) {
	s, _ := newTestStore(t)
	got := s.ActiveModels()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected active models: %+v", got)
	}
	s.SetModelEnabled("b", true)
	if n := len(s.ActiveModels()); n != 3 {
		t.Fatalf("expected 3 active models, got %d", n)
	}
}

func TestCreateSessionBecomesActive(t *testing.T) {
	s, sid := newTestStore(t)
	if s.ActiveSessionID() != sid {
		t.Fatalf("expected %s active, got %s", sid, s.ActiveSessionID())
	}
	other := s.CreateSession("second")
	if s.ActiveSessionID() != other.ID {
		t.Fatalf("expected new session active")
	}
	if err := s.SetActiveSession("missing"); !IsSessionNotFound(err) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestAddResultUnknownSession(t *testing.T) {
	s, _ := newTestStore(t)
	err := s.AddResult(types.BenchmarkResult{ID: "r", SessionID: "nope"})
	if !IsSessionNotFound(err) {
		t.Fatalf("expected session not found, got %v", err)
	}
}

func TestSessionResultsFiltersByModelInOrder(t *testing.T) {
	s, sid := newTestStore(t)
	addResult(t, s, sid, "r1", "a")
	addResult(t, s, sid, "r2", "c")
	addResult(t, s, sid, "r3", "a")
	got, err := s.SessionResults(sid, "a")
	if err != nil {
		t.Fatalf("session results: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("unexpected results: %+v", got)
	}
}

func TestApplyPatchesOnlyForStreamingResults(t *testing.T) {
	s, sid := newTestStore(t)
	addResult(t, s, sid, "r1", "a")
	addResult(t, s, sid, "r2", "c")
	if err := s.BeginStreaming("r1"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	hello := "hello"
	s.ApplyPatches(map[string]types.StreamingPatch{
		"r1": {Response: &hello},
		"r2": {Response: &hello},
	})
	if v, _ := s.View("r1"); v.Response != "hello" {
		t.Fatalf("expected overlay on r1, got %q", v.Response)
	}
	if v, _ := s.View("r2"); v.Response != "" {
		t.Fatalf("expected r2 untouched, got %q", v.Response)
	}
	if r, _ := s.Result("r1"); r.Response != "" {
		t.Fatalf("authoritative record must not change, got %q", r.Response)
	}
	s.ClearPatch("r1")
	s.ApplyPatches(map[string]types.StreamingPatch{"r1": {Response: &hello}})
	if s.PatchCount() != 0 {
		t.Fatalf("late batch resurrected an overlay")
	}
	if s.Batches() != 2 {
		t.Fatalf("expected 2 batches, got %d", s.Batches())
	}
}

func TestApplyEmptyBatchIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	s.ApplyPatches(nil)
	s.ApplyPatches(map[string]types.StreamingPatch{})
	if s.Batches() != 0 {
		t.Fatalf("expected no batch writes, got %d", s.Batches())
	}
}

func TestFinalizeAndFail(t *testing.T) {
	s, sid := newTestStore(t)
	pub := events.NewMemoryPublisher()
	s.SetPublisher(pub)
	addResult(t, s, sid, "ok", "a")
	addResult(t, s, sid, "bad", "c")
	_ = s.BeginStreaming("ok")
	_ = s.BeginStreaming("bad")
	partial := "par"
	s.ApplyPatches(map[string]types.StreamingPatch{"bad": {Response: &partial}})

	if err := s.FinalizeResult("ok", "done", "why", types.Metrics{TokenCount: 3}); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := s.FailResult("bad", "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	ok, _ := s.View("ok")
	if ok.Response != "done" || ok.Reasoning != "why" || ok.Metrics.TokenCount != 3 {
		t.Fatalf("unexpected final result: %+v", ok)
	}
	bad, _ := s.View("bad")
	if bad.Error != "boom" || bad.Response != "" {
		t.Fatalf("failed result must keep empty response, got %+v", bad)
	}
	if s.StreamingCount() != 0 || s.PatchCount() != 0 {
		t.Fatalf("expected no in-flight state left")
	}
	want := map[string]bool{"result_final": false, "result_failed": false}
	for _, n := range pub.Names() {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for k, v := range want {
		if !v {
			t.Fatalf("expected event %q, got %v", k, pub.Names())
		}
	}
}

func TestResetResult(t *testing.T) {
	s, sid := newTestStore(t)
	addResult(t, s, sid, "r", "a")
	_ = s.FailResult("r", "boom")
	at := time.Unix(1700000000, 0)
	if err := s.ResetResult("r", at); err != nil {
		t.Fatalf("reset: %v", err)
	}
	r, _ := s.Result("r")
	if r.Error != "" || r.Response != "" || !r.Timestamp.Equal(at) {
		t.Fatalf("unexpected reset result: %+v", r)
	}
	if err := s.ResetResult("missing", at); !IsResultNotFound(err) {
		t.Fatalf("expected result not found, got %v", err)
	}
}

func TestRateResult(t *testing.T) {
	s, sid := newTestStore(t)
	addResult(t, s, sid, "r", "a")
	if err := s.RateResult("r", 5, "user"); err != nil {
		t.Fatalf("rate: %v", err)
	}
	r, _ := s.Result("r")
	if r.Rating != 5 || r.RatingSource != "user" {
		t.Fatalf("unexpected rating: %+v", r)
	}
}

func TestSaveLoadRoundTripMarksInterrupted(t *testing.T) {
	s, sid := newTestStore(t)
	addResult(t, s, sid, "done", "a")
	addResult(t, s, sid, "live", "c")
	_ = s.FinalizeResult("done", "answer", "", types.Metrics{TokenCount: 1})
	_ = s.BeginStreaming("live")

	p := filepath.Join(t.TempDir(), "state", "benchd.json")
	if err := s.Save(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	s2 := New(nil, types.GenerationConfig{})
	if err := s2.Load(p); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s2.ActiveSessionID() != sid {
		t.Fatalf("active session not restored")
	}
	done, ok := s2.Result("done")
	if !ok || done.Response != "answer" || done.SessionID != sid {
		t.Fatalf("unexpected restored result: %+v", done)
	}
	live, _ := s2.Result("live")
	if live.Error != interruptedError {
		t.Fatalf("expected interrupted marker, got %q", live.Error)
	}
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	s := New(nil, types.GenerationConfig{})
	if err := s.Load(filepath.Join(t.TempDir(), "nope.json")); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
