package bench

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"benchd/internal/events"
	"benchd/internal/provider"
	"benchd/pkg/types"
)

// Outcome is the single terminal report of a generation session. Err is nil
// on success. Sessions always return an Outcome; they never fail the caller.
type Outcome struct {
	ResultID string
	ModelID  string
	Metrics  types.Metrics
	Err      *SessionError
}

// OK reports a successful outcome.
func (o Outcome) OK() bool { return o.Err == nil }

// Status converts the outcome to its API shape.
func (o Outcome) Status() types.OutcomeStatus {
	st := types.OutcomeStatus{ResultID: o.ResultID, ModelID: o.ModelID, Metrics: o.Metrics}
	if o.Err != nil {
		st.Error = capError(o.Err.Error())
		st.ErrorKind = string(o.Err.Kind)
	}
	return st
}

type sessionSpec struct {
	resultID  string
	sessionID string
	model     types.Model
	config    types.GenerationConfig
	messages  []types.Message

	// gen is the engine's abort generation when the session was planned.
	gen uint64
}

// session drives one model's generation for one result id.
type session struct {
	e      *Engine
	spec   sessionSpec
	ctx    context.Context
	cancel context.CancelCauseFunc

	start        time.Time
	firstContent time.Time
	response     strings.Builder
	reasoning    strings.Builder
	estimate     float64
	ttft         float64

	cleanupOnce sync.Once
}

// newSession creates and registers a session for spec under parent.
func (e *Engine) newSession(parent context.Context, spec sessionSpec) (*session, error) {
	ctx, cancel := context.WithCancelCause(parent)
	s := &session{e: e, spec: spec, ctx: ctx, cancel: cancel}
	if err := e.register(s); err != nil {
		cancel(err)
		return nil, err
	}
	return s, nil
}

func (s *session) abort() { s.cancel(errAborted) }

func (s *session) event(name string) events.Event {
	return events.Event{Name: name, SessionID: s.spec.sessionID, ResultID: s.spec.resultID, ModelID: s.spec.model.ID}
}

// run executes the session to its terminal outcome.
func (s *session) run() Outcome {
	e := s.e
	s.start = e.now()
	defer s.cleanup()
	if err := e.store.BeginStreaming(s.spec.resultID); err != nil {
		return s.fail(&SessionError{Kind: KindProviderError, ModelID: s.spec.model.ID, Err: err})
	}
	e.log.Debug().Str("model", s.spec.model.ID).Str("result", s.spec.resultID).Msg("session_start")
	e.publish(s.event("session_start"))

	p, err := e.providers.For(s.spec.model)
	if err != nil {
		return s.fail(&SessionError{Kind: KindProviderError, ModelID: s.spec.model.ID, Err: err})
	}
	req := provider.Request{Model: s.spec.model, Config: s.spec.config, Messages: s.spec.messages}
	if s.spec.model.Image {
		return s.runImage(p, req)
	}
	return s.runStream(p, req)
}

func (s *session) runStream(p provider.Provider, req provider.Request) Outcome {
	cfg := s.spec.config
	evCh := make(chan provider.Event, defaultEventBuffer)
	done := make(chan error, 1)
	emit := func(ev provider.Event) {
		select {
		case evCh <- ev:
		case <-s.ctx.Done():
		}
	}
	go func() { done <- p.Stream(s.ctx, req, emit) }()

	connectTimer := time.NewTimer(cfg.ConnectTimeout())
	defer connectTimer.Stop()
	var (
		readTimer *time.Timer
		readC     <-chan time.Time
		connectC  = connectTimer.C
		started   bool
	)
	defer func() {
		if readTimer != nil {
			readTimer.Stop()
		}
	}()

	// handle applies one provider signal; final is true once the session has
	// reached its terminal state. Any signal, heartbeats included, slides the
	// read deadline.
	handle := func(ev provider.Event) (Outcome, bool) {
		if !started {
			started = true
			connectTimer.Stop()
			connectC = nil
			readTimer = time.NewTimer(cfg.ReadTimeout())
			readC = readTimer.C
			s.e.log.Debug().Str("model", s.spec.model.ID).Msg("session_first_byte")
		} else {
			readTimer.Reset(cfg.ReadTimeout())
		}
		switch ev.Kind {
		case provider.EventDelta:
			s.delta(ev.Text, ev.Reasoning)
		case provider.EventFinish:
			return s.finish(ev.Usage), true
		}
		return Outcome{}, false
	}

	for {
		select {
		case ev := <-evCh:
			if out, final := handle(ev); final {
				return out
			}
		case err := <-done:
			// Every emit completed before Stream returned.
			for drained := false; !drained; {
				select {
				case ev := <-evCh:
					if out, final := handle(ev); final {
						return out
					}
				default:
					drained = true
				}
			}
			if err != nil {
				return s.fail(s.classify(err))
			}
			return s.finish(nil)
		case <-connectC:
			return s.timeout(KindConnectTimeout, cfg.ConnectTimeout())
		case <-readC:
			return s.timeout(KindReadTimeout, cfg.ReadTimeout())
		case <-s.ctx.Done():
			return s.fail(s.classify(context.Cause(s.ctx)))
		}
	}
}

func (s *session) delta(text, reasoning string) {
	if text == "" && reasoning == "" {
		return
	}
	now := s.e.now()
	if s.firstContent.IsZero() {
		s.firstContent = now
		s.ttft = msSince(s.start, now)
	}
	s.response.WriteString(text)
	s.reasoning.WriteString(reasoning)
	s.estimate += EstimateTokens(text) + EstimateTokens(reasoning)

	elapsed := msSince(s.start, now)
	m := types.Metrics{
		TTFT:          s.ttft,
		TotalDuration: elapsed,
		TokenCount:    roundTokens(s.estimate),
	}
	if elapsed > 0 {
		m.TPS = s.estimate / (elapsed / 1000)
	}
	resp := s.response.String()
	patch := types.StreamingPatch{Response: &resp, Metrics: &m}
	if s.reasoning.Len() > 0 {
		r := s.reasoning.String()
		patch.Reasoning = &r
	}
	s.e.batcher.Publish(s.spec.resultID, patch)
}

func (s *session) finish(usage *provider.Usage) Outcome {
	now := s.e.now()
	tokens := roundTokens(s.estimate)
	if usage != nil && usage.CompletionTokens > tokens {
		tokens = usage.CompletionTokens
	}
	m := types.Metrics{
		TTFT:          s.ttft,
		TotalDuration: msSince(s.start, now),
		TokenCount:    tokens,
	}
	if !s.firstContent.IsZero() {
		if gen := msSince(s.firstContent, now); gen > 0 {
			m.TPS = float64(tokens) / (gen / 1000)
		}
	}
	return s.succeed(s.response.String(), s.reasoning.String(), m)
}

func (s *session) succeed(response, reasoning string, m types.Metrics) Outcome {
	out := Outcome{ResultID: s.spec.resultID, ModelID: s.spec.model.ID, Metrics: m}
	if err := s.e.store.FinalizeResult(s.spec.resultID, response, reasoning, m); err != nil {
		s.e.log.Error().Err(err).Str("result", s.spec.resultID).Msg("finalize result")
	}
	sessionsTotal.WithLabelValues(s.spec.model.Provider, "ok").Inc()
	if m.TTFT > 0 {
		ttftSeconds.WithLabelValues(s.spec.model.Provider).Observe(m.TTFT / 1000)
	}
	sessionDuration.WithLabelValues(s.spec.model.Provider).Observe(m.TotalDuration / 1000)
	s.e.log.Info().
		Str("model", s.spec.model.ID).
		Str("result", s.spec.resultID).
		Float64("ttft_ms", m.TTFT).
		Float64("tps", m.TPS).
		Int("tokens", m.TokenCount).
		Msg("session_done")
	ev := s.event("session_done")
	ev.Fields = map[string]any{"metrics": m}
	s.e.publish(ev)
	return out
}

func (s *session) timeout(kind ErrorKind, d time.Duration) Outcome {
	cause := timeoutCause{kind: kind, ms: d.Milliseconds()}
	s.cancel(cause)
	return s.fail(&SessionError{Kind: kind, ModelID: s.spec.model.ID, Err: cause})
}

// classify maps a provider return or cancellation cause to a SessionError.
func (s *session) classify(err error) *SessionError {
	var se *SessionError
	if errors.As(err, &se) {
		return se
	}
	var tc timeoutCause
	if errors.As(err, &tc) {
		return &SessionError{Kind: tc.kind, ModelID: s.spec.model.ID, Err: tc}
	}
	if cause := context.Cause(s.ctx); cause != nil {
		if errors.As(cause, &tc) {
			return &SessionError{Kind: tc.kind, ModelID: s.spec.model.ID, Err: tc}
		}
		return &SessionError{Kind: KindAborted, ModelID: s.spec.model.ID, Err: cause}
	}
	if provider.IsParseError(err) {
		return &SessionError{Kind: KindParseError, ModelID: s.spec.model.ID, Err: err}
	}
	return &SessionError{Kind: KindProviderError, ModelID: s.spec.model.ID, Err: err}
}

func (s *session) fail(se *SessionError) Outcome {
	msg := capError(se.Error())
	if err := s.e.store.FailResult(s.spec.resultID, msg); err != nil {
		s.e.log.Error().Err(err).Str("result", s.spec.resultID).Msg("record session error")
	}
	sessionsTotal.WithLabelValues(s.spec.model.Provider, string(se.Kind)).Inc()
	sessionDuration.WithLabelValues(s.spec.model.Provider).Observe(msSince(s.start, s.e.now()) / 1000)
	s.e.log.Warn().
		Str("model", s.spec.model.ID).
		Str("result", s.spec.resultID).
		Str("kind", string(se.Kind)).
		Err(se.Err).
		Msg("session_error")
	ev := s.event("session_error")
	ev.Fields = map[string]any{"kind": string(se.Kind), "error": msg}
	s.e.publish(ev)
	return Outcome{ResultID: s.spec.resultID, ModelID: s.spec.model.ID, Err: se}
}

// cleanup releases everything the session holds. Safe to call more than once.
func (s *session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.cancel(context.Canceled)
		s.e.batcher.Discard(s.spec.resultID)
		s.e.store.ClearPatch(s.spec.resultID)
		s.e.unregister(s)
	})
}

func msSince(from, to time.Time) float64 {
	return float64(to.Sub(from)) / float64(time.Millisecond)
}
