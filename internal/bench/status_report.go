package bench

import (
	"sort"

	"benchd/pkg/types"
)

// Status builds the status response for /status.
func (e *Engine) Status() types.StatusResponse {
	live := e.LiveSessions()
	sort.Strings(live)
	processing, _ := e.queue.Processing()
	now := e.now()
	return types.StatusResponse{
		LiveSessions:   live,
		QueueLen:       e.queue.Len(),
		Processing:     processing,
		PendingPatches: e.batcher.Pending(),
		BatcherPaused:  e.batcher.Paused(),
		ActiveModels:   len(e.store.ActiveModels()),
		UptimeSeconds:  int64(now.Sub(e.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// Ready reports whether the engine can accept broadcasts.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	return !closed && len(e.store.ActiveModels()) > 0
}
