package bench

import (
	"context"
	"strings"
	"sync"

	"benchd/internal/events"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// Plan is a prepared broadcast: the results exist in the store and each has
// the message list its session will send.
type Plan struct {
	SessionID     string
	Prompt        string
	DisplayPrompt string
	Results       []types.BenchmarkResult
	specs         []sessionSpec
}

// ResultIDs lists the planned result ids in model order.
func (p *Plan) ResultIDs() []string {
	out := make([]string, len(p.Results))
	for i, r := range p.Results {
		out[i] = r.ID
	}
	return out
}

// Report is the joined outcome of a broadcast.
type Report struct {
	SessionID string
	Prompt    string
	Outcomes  []Outcome
}

// Response converts the report to its API shape.
func (r Report) Response() types.BroadcastResponse {
	resp := types.BroadcastResponse{SessionID: r.SessionID, Prompt: r.Prompt}
	for _, o := range r.Outcomes {
		resp.ResultIDs = append(resp.ResultIDs, o.ResultID)
		resp.Outcomes = append(resp.Outcomes, o.Status())
	}
	return resp
}

// Prepare resolves targets and the hosting session, builds every model's
// message list and records one empty result per target model.
func (e *Engine) Prepare(prompt, sessionID string) (*Plan, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}
	active := e.store.ActiveModels()
	if len(active) == 0 {
		return nil, ErrNoActiveModels
	}
	targets := ResolveTargets(prompt, active)
	if strings.TrimSpace(targets.Prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	sid := sessionID
	switch {
	case sid != "":
		if !e.store.HasSession(sid) {
			return nil, store.ErrSessionNotFound(sid)
		}
	case e.store.ActiveSessionID() != "":
		sid = e.store.ActiveSessionID()
	default:
		sid = e.store.CreateSession(sessionTitle(targets.Prompt)).ID
	}

	gen := e.abortGeneration()
	global := e.store.GlobalConfig()
	plan := &Plan{SessionID: sid, Prompt: targets.Prompt, DisplayPrompt: prompt}
	now := e.now()
	for _, m := range targets.Models {
		cfg := global.Merge(m.Config)
		prior, err := e.store.SessionResults(sid, m.ID)
		if err != nil {
			return nil, err
		}
		msgs := buildMessages(cfg.System(), prior, targets.Prompt)
		r := types.BenchmarkResult{
			ID:            e.newID(),
			SessionID:     sid,
			ModelID:       m.ID,
			Prompt:        targets.Prompt,
			DisplayPrompt: prompt,
			Timestamp:     now,
		}
		if err := e.store.AddResult(r); err != nil {
			return nil, err
		}
		plan.Results = append(plan.Results, r)
		plan.specs = append(plan.specs, sessionSpec{
			resultID:  r.ID,
			sessionID: sid,
			model:     m,
			config:    cfg,
			messages:  msgs,
			gen:       gen,
		})
	}
	return plan, nil
}

// Execute runs one session per planned result concurrently and returns once
// every session has reached its outcome.
func (e *Engine) Execute(ctx context.Context, plan *Plan) Report {
	broadcastsTotal.Inc()
	e.log.Info().
		Str("session", plan.SessionID).
		Int("models", len(plan.specs)).
		Msg("broadcast_start")
	e.publish(events.Event{Name: "broadcast_start", SessionID: plan.SessionID, Fields: map[string]any{"result_ids": plan.ResultIDs()}})

	rep := Report{SessionID: plan.SessionID, Prompt: plan.Prompt, Outcomes: make([]Outcome, len(plan.specs))}
	var wg sync.WaitGroup
	for i, spec := range plan.specs {
		s, err := e.newSession(ctx, spec)
		if err != nil {
			rep.Outcomes[i] = e.rejected(spec, err)
			continue
		}
		wg.Add(1)
		go func(i int, s *session) {
			defer wg.Done()
			rep.Outcomes[i] = s.run()
		}(i, s)
	}
	wg.Wait()

	ok := 0
	for _, o := range rep.Outcomes {
		if o.OK() {
			ok++
		}
	}
	e.log.Info().
		Str("session", plan.SessionID).
		Int("ok", ok).
		Int("failed", len(rep.Outcomes)-ok).
		Msg("broadcast_done")
	e.publish(events.Event{Name: "broadcast_done", SessionID: plan.SessionID, Fields: map[string]any{"ok": ok, "failed": len(rep.Outcomes) - ok}})
	return rep
}

// Broadcast fans prompt out to its target models and waits for all of them.
// Per-model failures are reported in the outcomes, never as the error.
func (e *Engine) Broadcast(ctx context.Context, prompt, sessionID string) (Report, error) {
	plan, err := e.Prepare(prompt, sessionID)
	if err != nil {
		return Report{}, err
	}
	return e.Execute(ctx, plan), nil
}

// rejected records a session that could not be registered as an aborted outcome.
func (e *Engine) rejected(spec sessionSpec, err error) Outcome {
	se := &SessionError{Kind: KindAborted, ModelID: spec.model.ID, Err: err}
	if ferr := e.store.FailResult(spec.resultID, capError(se.Error())); ferr != nil {
		e.log.Error().Err(ferr).Str("result", spec.resultID).Msg("record session error")
	}
	return Outcome{ResultID: spec.resultID, ModelID: spec.model.ID, Err: se}
}
