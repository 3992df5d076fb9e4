package bench

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"benchd/internal/batcher"
	"benchd/internal/events"
	"benchd/internal/provider"
	"benchd/internal/store"
)

// Engine owns every piece of mutable orchestration state: the live session
// registry, the update batcher and the queue. All access goes through its
// methods.
type Engine struct {
	store     *store.Store
	providers *provider.Registry
	batcher   *batcher.Batcher
	queue     *Queue
	log       zerolog.Logger
	pub       events.Publisher
	now       func() time.Time
	newID     func() string
	startTime time.Time

	mu       sync.Mutex
	live     map[string]*session
	sessions sync.WaitGroup
	closed   bool

	// abortGen counts AbortAll calls. Sessions planned under an older
	// generation are refused at registration.
	abortGen uint64
}

func newUUID() string { return uuid.NewString() }

// Store exposes the result store the engine writes to.
func (e *Engine) Store() *store.Store { return e.store }

// Providers exposes the provider registry.
func (e *Engine) Providers() *provider.Registry { return e.providers }

// Run drives the queue until ctx is canceled.
func (e *Engine) Run(ctx context.Context) error {
	return e.queue.Run(ctx)
}

// PauseUpdates stops publishing streaming patches; buffered patches are kept.
func (e *Engine) PauseUpdates() { e.batcher.Pause() }

// ResumeUpdates resumes publication and flushes buffered patches promptly.
func (e *Engine) ResumeUpdates() { e.batcher.Resume() }

// LiveSessions returns the result ids with a live generation session.
func (e *Engine) LiveSessions() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.live))
	for id := range e.live {
		out = append(out, id)
	}
	return out
}

func (e *Engine) abortGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.abortGen
}

// register reserves the live slot of a result id. One session per id.
func (e *Engine) register(s *session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if s.spec.gen != e.abortGen {
		return errAborted
	}
	if _, busy := e.live[s.spec.resultID]; busy {
		return ErrResultBusy(s.spec.resultID)
	}
	e.live[s.spec.resultID] = s
	e.sessions.Add(1)
	liveSessions.Inc()
	return nil
}

func (e *Engine) unregister(s *session) {
	e.mu.Lock()
	if cur, ok := e.live[s.spec.resultID]; ok && cur == s {
		delete(e.live, s.spec.resultID)
		liveSessions.Dec()
	}
	e.mu.Unlock()
	e.sessions.Done()
}

// Close aborts everything in flight, waits for sessions to settle and stops
// the batcher. Further broadcasts fail with ErrEngineClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()
	e.AbortAll()
	e.sessions.Wait()
	e.batcher.Close()
	return nil
}

func (e *Engine) publish(ev events.Event) {
	e.pub.Publish(ev)
}
