package store

import (
	"time"

	"benchd/internal/events"
	"benchd/pkg/types"
)

// AddResult appends a result to its session. The result id must be unique.
func (s *Store) AddResult(r types.BenchmarkResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[r.SessionID]
	if !ok {
		return ErrSessionNotFound(r.SessionID)
	}
	cp := r
	s.results[r.ID] = &cp
	rec.resultIDs = append(rec.resultIDs, r.ID)
	rec.updatedAt = s.now()
	s.pub.Publish(events.Event{Name: "result_added", SessionID: r.SessionID, ResultID: r.ID, ModelID: r.ModelID})
	return nil
}

// Result returns the authoritative record, ignoring any streaming overlay.
func (s *Store) Result(id string) (types.BenchmarkResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return types.BenchmarkResult{}, false
	}
	return *r, true
}

// View returns the result as the UI should show it: the authoritative record
// with the latest published streaming patch on top.
func (s *Store) View(id string) (types.BenchmarkResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return types.BenchmarkResult{}, false
	}
	return s.viewLocked(r), true
}

// SessionResults returns the authoritative results recorded for (session, model)
// in their original order. An empty modelID selects every model.
func (s *Store) SessionResults(sessionID, modelID string) ([]types.BenchmarkResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound(sessionID)
	}
	var out []types.BenchmarkResult
	for _, rid := range rec.resultIDs {
		r := s.results[rid]
		if r == nil || (modelID != "" && r.ModelID != modelID) {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

// ResetResult clears response, reasoning, metrics and error in place ahead of a
// retry and stamps the result with at.
func (s *Store) ResetResult(id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return ErrResultNotFound(id)
	}
	r.Response = ""
	r.Reasoning = ""
	r.Error = ""
	r.Metrics = types.Metrics{}
	r.Timestamp = at
	delete(s.overlay, id)
	s.pub.Publish(events.Event{Name: "result_reset", SessionID: r.SessionID, ResultID: id, ModelID: r.ModelID})
	return nil
}

// BeginStreaming marks a result as in flight; only in-flight results accept patches.
func (s *Store) BeginStreaming(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[id]; !ok {
		return ErrResultNotFound(id)
	}
	s.streaming[id] = struct{}{}
	return nil
}

// ApplyPatches publishes one coalesced batch of streaming patches. Patches for
// results that are no longer in flight are dropped, so a batch that raced with
// a session's termination cannot resurrect its overlay.
func (s *Store) ApplyPatches(batch map[string]types.StreamingPatch) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	applied := make(map[string]types.StreamingPatch, len(batch))
	for id, p := range batch {
		if _, live := s.streaming[id]; !live {
			continue
		}
		merged := s.overlay[id].Merge(p)
		s.overlay[id] = merged
		applied[id] = merged
	}
	if len(applied) > 0 {
		s.pub.Publish(events.Event{Name: "results_patched", Fields: map[string]any{"patches": applied}})
	}
}

// ClearPatch drops the overlay of a result and ends its in-flight state.
// Idempotent.
func (s *Store) ClearPatch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, hadOverlay := s.overlay[id]
	_, live := s.streaming[id]
	delete(s.overlay, id)
	delete(s.streaming, id)
	if hadOverlay || live {
		s.pub.Publish(events.Event{Name: "patch_cleared", ResultID: id})
	}
}

// FinalizeResult writes the authoritative outcome of a successful generation
// and ends its in-flight state.
func (s *Store) FinalizeResult(id, response, reasoning string, m types.Metrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return ErrResultNotFound(id)
	}
	r.Response = response
	r.Reasoning = reasoning
	r.Metrics = m
	r.Error = ""
	delete(s.overlay, id)
	delete(s.streaming, id)
	s.touchLocked(r.SessionID)
	s.pub.Publish(events.Event{Name: "result_final", SessionID: r.SessionID, ResultID: id, ModelID: r.ModelID, Fields: map[string]any{"result": *r}})
	return nil
}

// FailResult records an error on a result and drops its in-flight patch. The
// authoritative response is left untouched.
func (s *Store) FailResult(id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return ErrResultNotFound(id)
	}
	r.Error = msg
	delete(s.overlay, id)
	delete(s.streaming, id)
	s.touchLocked(r.SessionID)
	s.pub.Publish(events.Event{Name: "result_failed", SessionID: r.SessionID, ResultID: id, ModelID: r.ModelID, Fields: map[string]any{"error": msg}})
	return nil
}

// RateResult records a quality rating for a result.
func (s *Store) RateResult(id string, rating int, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	if !ok {
		return ErrResultNotFound(id)
	}
	r.Rating = rating
	r.RatingSource = source
	s.pub.Publish(events.Event{Name: "result_rated", SessionID: r.SessionID, ResultID: id, ModelID: r.ModelID, Fields: map[string]any{"rating": rating, "source": source}})
	return nil
}

func (s *Store) touchLocked(sessionID string) {
	if rec, ok := s.sessions[sessionID]; ok {
		rec.updatedAt = s.now()
	}
}

// Batches reports how many non-empty patch batches were applied.
func (s *Store) Batches() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

// PatchCount reports the number of results with a published streaming patch.
func (s *Store) PatchCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlay)
}

// StreamingCount reports the number of results currently in flight.
func (s *Store) StreamingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streaming)
}
