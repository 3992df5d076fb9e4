// Package store is the single source of truth for models, chat sessions and
// benchmark results. Every method is safe for concurrent use and applies its
// mutation atomically, so concurrent generation sessions never interleave at
// the level of one result's fields.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"benchd/internal/events"
	"benchd/pkg/types"
)

type sessionRec struct {
	id        string
	title     string
	createdAt time.Time
	updatedAt time.Time
	resultIDs []string
}

type Store struct {
	mu       sync.RWMutex
	models   []types.Model
	global   types.GenerationConfig
	sessions map[string]*sessionRec
	order    []string
	active   string
	results  map[string]*types.BenchmarkResult
	// overlay holds published streaming patches of in-flight results.
	overlay   map[string]types.StreamingPatch
	streaming map[string]struct{}
	batches   uint64
	pub       events.Publisher
	now       func() time.Time
}

// New builds a store serving the given models and global generation config.
func New(models []types.Model, global types.GenerationConfig) *Store {
	s := &Store{
		global:    global.Merge(nil),
		sessions:  make(map[string]*sessionRec),
		results:   make(map[string]*types.BenchmarkResult),
		overlay:   make(map[string]types.StreamingPatch),
		streaming: make(map[string]struct{}),
		pub:       events.Noop{},
		now:       time.Now,
	}
	s.models = append([]types.Model(nil), models...)
	return s
}

// SetPublisher installs the receiver of change events. Publish is called
// while the store lock is held, so it must not block or call back.
func (s *Store) SetPublisher(p events.Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		p = events.Noop{}
	}
	s.pub = p
}

// Models returns a copy of every configured model.
func (s *Store) Models() []types.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Model, len(s.models))
	copy(out, s.models)
	return out
}

// ActiveModels returns the enabled models in configuration order.
func (s *Store) ActiveModels() []types.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Model
	for _, m := range s.models {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// Model looks a model up by id.
func (s *Store) Model(id string) (types.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.models {
		if m.ID == id {
			return m, true
		}
	}
	return types.Model{}, false
}

// SetModelEnabled toggles membership of a model in the active set.
func (s *Store) SetModelEnabled(id string, enabled bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.models {
		if s.models[i].ID == id {
			s.models[i].Enabled = enabled
			return true
		}
	}
	return false
}

// GlobalConfig returns an independent copy of the global generation config.
func (s *Store) GlobalConfig() types.GenerationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global.Merge(nil)
}

func (s *Store) SetGlobalConfig(c types.GenerationConfig) {
	s.mu.Lock()
	s.global = c.Merge(nil)
	s.mu.Unlock()
}

// CreateSession adds a new chat session and makes it the active one.
func (s *Store) CreateSession(title string) types.ChatSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	rec := &sessionRec{id: uuid.NewString(), title: title, createdAt: now, updatedAt: now}
	s.sessions[rec.id] = rec
	s.order = append(s.order, rec.id)
	s.active = rec.id
	s.pub.Publish(events.Event{Name: "session_created", SessionID: rec.id, Fields: map[string]any{"title": title}})
	return s.sessionLocked(rec)
}

func (s *Store) HasSession(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok
}

// ActiveSessionID returns the current session id or "" when there is none.
func (s *Store) ActiveSessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) SetActiveSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound(id)
	}
	s.active = id
	return nil
}

// Session returns a session with its results as currently visible
// (in-flight results include their latest published patch).
func (s *Store) Session(id string) (types.ChatSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return types.ChatSession{}, false
	}
	return s.sessionLocked(rec), true
}

// Sessions lists every session in creation order.
func (s *Store) Sessions() []types.ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.ChatSession, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessionLocked(s.sessions[id]))
	}
	return out
}

func (s *Store) sessionLocked(rec *sessionRec) types.ChatSession {
	cs := types.ChatSession{
		ID:        rec.id,
		Title:     rec.title,
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
		Results:   make([]types.BenchmarkResult, 0, len(rec.resultIDs)),
	}
	for _, rid := range rec.resultIDs {
		if r, ok := s.results[rid]; ok {
			cs.Results = append(cs.Results, s.viewLocked(r))
		}
	}
	return cs
}

func (s *Store) viewLocked(r *types.BenchmarkResult) types.BenchmarkResult {
	if p, ok := s.overlay[r.ID]; ok {
		return p.Apply(*r)
	}
	return *r
}
