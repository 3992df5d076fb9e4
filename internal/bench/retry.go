package bench

import (
	"context"

	"benchd/internal/store"
)

// prepareRetry validates a retry and reserves the result's live slot.
//
// The retried turn's context is only the results that precede it for the
// same model; later turns are intentionally left out.
func (e *Engine) prepareRetry(parent context.Context, sessionID, modelID, resultID string) (*session, error) {
	r, ok := e.store.Result(resultID)
	if !ok || (sessionID != "" && r.SessionID != sessionID) {
		return nil, store.ErrResultNotFound(resultID)
	}
	if modelID != "" && modelID != r.ModelID {
		return nil, store.ErrResultNotFound(resultID)
	}
	m, ok := e.store.Model(r.ModelID)
	if !ok {
		return nil, ErrModelNotFound(r.ModelID)
	}
	all, err := e.store.SessionResults(r.SessionID, r.ModelID)
	if err != nil {
		return nil, err
	}
	cfg := e.store.GlobalConfig().Merge(m.Config)
	spec := sessionSpec{
		resultID:  r.ID,
		sessionID: r.SessionID,
		model:     m,
		config:    cfg,
		messages:  buildMessages(cfg.System(), historyBefore(all, r.ID), r.Prompt),
		gen:       e.abortGeneration(),
	}
	s, err := e.newSession(parent, spec)
	if err != nil {
		return nil, err
	}
	if err := e.store.ResetResult(r.ID, e.now()); err != nil {
		s.cleanup()
		return nil, err
	}
	return s, nil
}

// Retry regenerates one existing result in place, reusing its id, and waits
// for the outcome.
func (e *Engine) Retry(ctx context.Context, sessionID, modelID, resultID string) (Outcome, error) {
	s, err := e.prepareRetry(ctx, sessionID, modelID, resultID)
	if err != nil {
		return Outcome{}, err
	}
	e.log.Info().Str("result", resultID).Str("model", s.spec.model.ID).Msg("retry")
	return s.run(), nil
}

// RetryAsync validates and starts a retry bound to parent, returning once the
// session is registered.
func (e *Engine) RetryAsync(parent context.Context, sessionID, modelID, resultID string) error {
	s, err := e.prepareRetry(parent, sessionID, modelID, resultID)
	if err != nil {
		return err
	}
	e.log.Info().Str("result", resultID).Str("model", s.spec.model.ID).Msg("retry")
	go s.run()
	return nil
}
