package bench

import "benchd/internal/events"

// AbortAll clears the queue and terminates every live session as aborted.
// Broadcasts prepared before the call but not yet executing are refused when
// they try to start. It returns the number of sessions canceled.
func (e *Engine) AbortAll() int {
	dropped := e.queue.Clear()
	e.mu.Lock()
	e.abortGen++
	live := make([]*session, 0, len(e.live))
	for _, s := range e.live {
		live = append(live, s)
	}
	e.mu.Unlock()
	for _, s := range live {
		s.abort()
	}
	e.log.Info().Int("sessions", len(live)).Int("queued", dropped).Msg("abort_all")
	e.publish(events.Event{Name: "abort_all", Fields: map[string]any{"sessions": len(live), "queued": dropped}})
	return len(live)
}
