package httpapi

import (
	"context"
	"errors"
	"strings"

	"benchd/internal/bench"
	"benchd/internal/events"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Models() []types.Model
	SetModelEnabled(id string, enabled bool) error
	Config() types.GenerationConfig
	SetConfig(c types.GenerationConfig)

	Status() types.StatusResponse
	Ready() bool

	Sessions() types.SessionsResponse
	Session(id string) (types.ChatSession, error)
	CreateSession(title string) types.ChatSession
	ActivateSession(id string) error

	// StartBroadcast records the results and generates in the background,
	// bound to ctx. Broadcast waits for every outcome.
	StartBroadcast(ctx context.Context, prompt, sessionID string) (types.BroadcastResponse, error)
	Broadcast(ctx context.Context, prompt, sessionID string) (types.BroadcastResponse, error)
	StartRetry(ctx context.Context, sessionID, modelID, resultID string) error
	Retry(ctx context.Context, sessionID, modelID, resultID string) (types.OutcomeStatus, error)
	RateResult(id string, rating int, source string) error
	AbortAll() int

	Queue() types.QueueResponse
	Enqueue(prompt, sessionID string) (types.QueueItem, error)
	SetQueuePaused(id string, paused bool) (types.QueueItem, error)
	ToggleQueueItem(id string) (types.QueueItem, error)
	MoveQueueItem(id string, index int) error
	RemoveQueueItem(id string) error

	PauseUpdates()
	ResumeUpdates()

	// Subscribe returns a live event feed; the caller closes it.
	Subscribe() *events.Subscription
}

// ErrInvalidRating rejects ratings outside 0..5.
var ErrInvalidRating = errors.New("rating must be between 0 and 5")

// EngineService adapts a bench.Engine and its event hub to Service.
type EngineService struct {
	engine *bench.Engine
	hub    *events.Hub
}

// NewService wires the engine for the HTTP layer. hub may be nil, in which
// case /ws subscribers receive nothing.
func NewService(e *bench.Engine, hub *events.Hub) *EngineService {
	if hub == nil {
		hub = events.NewHub(0)
	}
	return &EngineService{engine: e, hub: hub}
}

func (s *EngineService) store() *store.Store { return s.engine.Store() }

func (s *EngineService) Models() []types.Model { return s.store().Models() }

func (s *EngineService) SetModelEnabled(id string, enabled bool) error {
	if !s.store().SetModelEnabled(id, enabled) {
		return bench.ErrModelNotFound(id)
	}
	return nil
}

func (s *EngineService) Config() types.GenerationConfig { return s.store().GlobalConfig() }

func (s *EngineService) SetConfig(c types.GenerationConfig) { s.store().SetGlobalConfig(c) }

func (s *EngineService) Status() types.StatusResponse { return s.engine.Status() }

func (s *EngineService) Ready() bool { return s.engine.Ready() }

func (s *EngineService) Sessions() types.SessionsResponse {
	return types.SessionsResponse{Sessions: s.store().Sessions(), ActiveSessionID: s.store().ActiveSessionID()}
}

func (s *EngineService) Session(id string) (types.ChatSession, error) {
	cs, ok := s.store().Session(id)
	if !ok {
		return types.ChatSession{}, store.ErrSessionNotFound(id)
	}
	return cs, nil
}

func (s *EngineService) CreateSession(title string) types.ChatSession {
	return s.store().CreateSession(strings.TrimSpace(title))
}

func (s *EngineService) ActivateSession(id string) error { return s.store().SetActiveSession(id) }

func (s *EngineService) StartBroadcast(ctx context.Context, prompt, sessionID string) (types.BroadcastResponse, error) {
	plan, err := s.engine.Prepare(prompt, sessionID)
	if err != nil {
		return types.BroadcastResponse{}, err
	}
	go s.engine.Execute(ctx, plan)
	return types.BroadcastResponse{SessionID: plan.SessionID, Prompt: plan.Prompt, ResultIDs: plan.ResultIDs()}, nil
}

func (s *EngineService) Broadcast(ctx context.Context, prompt, sessionID string) (types.BroadcastResponse, error) {
	rep, err := s.engine.Broadcast(ctx, prompt, sessionID)
	if err != nil {
		return types.BroadcastResponse{}, err
	}
	return rep.Response(), nil
}

func (s *EngineService) StartRetry(ctx context.Context, sessionID, modelID, resultID string) error {
	return s.engine.RetryAsync(ctx, sessionID, modelID, resultID)
}

func (s *EngineService) Retry(ctx context.Context, sessionID, modelID, resultID string) (types.OutcomeStatus, error) {
	o, err := s.engine.Retry(ctx, sessionID, modelID, resultID)
	if err != nil {
		return types.OutcomeStatus{}, err
	}
	return o.Status(), nil
}

func (s *EngineService) RateResult(id string, rating int, source string) error {
	if rating < 0 || rating > 5 {
		return badRequest(ErrInvalidRating)
	}
	return s.store().RateResult(id, rating, source)
}

func (s *EngineService) AbortAll() int { return s.engine.AbortAll() }

func (s *EngineService) Queue() types.QueueResponse {
	q := s.engine.Queue()
	processing, _ := q.Processing()
	return types.QueueResponse{Items: q.Items(), Processing: processing}
}

func (s *EngineService) Enqueue(prompt, sessionID string) (types.QueueItem, error) {
	return s.engine.Enqueue(prompt, sessionID)
}

func (s *EngineService) SetQueuePaused(id string, paused bool) (types.QueueItem, error) {
	return s.engine.Queue().SetPaused(id, paused)
}

func (s *EngineService) ToggleQueueItem(id string) (types.QueueItem, error) {
	return s.engine.Queue().TogglePause(id)
}

func (s *EngineService) MoveQueueItem(id string, index int) error {
	return s.engine.Queue().Move(id, index)
}

func (s *EngineService) RemoveQueueItem(id string) error { return s.engine.Queue().Remove(id) }

func (s *EngineService) PauseUpdates() { s.engine.PauseUpdates() }

func (s *EngineService) ResumeUpdates() { s.engine.ResumeUpdates() }

func (s *EngineService) Subscribe() *events.Subscription { return s.hub.Subscribe() }

// statusError carries an explicit HTTP status.
type statusError struct {
	err  error
	code int
}

func (e statusError) Error() string   { return e.err.Error() }
func (e statusError) Unwrap() error   { return e.err }
func (e statusError) StatusCode() int { return e.code }

func badRequest(err error) error { return statusError{err: err, code: 400} }
