package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"benchd/internal/common/fsutil"
	"benchd/pkg/types"
)

// interruptedError is recorded on results that were still streaming when the
// snapshot was taken.
const interruptedError = "interrupted: server stopped before the generation finished"

type snapshot struct {
	ActiveSessionID string              `json:"active_session_id,omitempty"`
	Sessions        []types.ChatSession `json:"sessions"`
}

// Save writes sessions and their authoritative results to path as JSON.
// Streaming overlays are not persisted.
func (s *Store) Save(path string) error {
	if path == "" {
		return nil
	}
	s.mu.RLock()
	snap := snapshot{ActiveSessionID: s.active, Sessions: make([]types.ChatSession, 0, len(s.order))}
	for _, id := range s.order {
		rec := s.sessions[id]
		cs := types.ChatSession{ID: rec.id, Title: rec.title, CreatedAt: rec.createdAt, UpdatedAt: rec.updatedAt}
		for _, rid := range rec.resultIDs {
			r, ok := s.results[rid]
			if !ok {
				continue
			}
			cp := *r
			if _, live := s.streaming[rid]; live && cp.Error == "" {
				cp.Error = interruptedError
			}
			cs.Results = append(cs.Results, cp)
		}
		snap.Sessions = append(snap.Sessions, cs)
	}
	s.mu.RUnlock()

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load replaces sessions and results with the snapshot at path. A missing
// file is not an error.
func (s *Store) Load(path string) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*sessionRec, len(snap.Sessions))
	s.results = make(map[string]*types.BenchmarkResult)
	s.overlay = make(map[string]types.StreamingPatch)
	s.streaming = make(map[string]struct{})
	s.order = s.order[:0]
	for _, cs := range snap.Sessions {
		rec := &sessionRec{id: cs.ID, title: cs.Title, createdAt: cs.CreatedAt, updatedAt: cs.UpdatedAt}
		for i := range cs.Results {
			r := cs.Results[i]
			r.SessionID = cs.ID
			s.results[r.ID] = &r
			rec.resultIDs = append(rec.resultIDs, r.ID)
		}
		s.sessions[cs.ID] = rec
		s.order = append(s.order, cs.ID)
	}
	s.active = ""
	if _, ok := s.sessions[snap.ActiveSessionID]; ok {
		s.active = snap.ActiveSessionID
	}
	return nil
}
