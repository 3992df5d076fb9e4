package bench

import (
	"context"
	"strings"
	"sync"
	"time"

	"benchd/internal/events"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// DispatchFunc runs one queued item to completion.
type DispatchFunc func(ctx context.Context, item types.QueueItem)

// Queue serializes broadcasts: at most one item is in flight, and the next
// eligible item is the first one that is not paused. Scheduling is
// level-triggered; every mutation wakes the loop, which re-evaluates.
type Queue struct {
	dispatch DispatchFunc
	now      func() time.Time
	newID    func() string
	onChange func(items []types.QueueItem, processing bool)

	mu         sync.Mutex
	items      []types.QueueItem
	processing bool
	current    string
	// epoch invalidates the completion of a dispatch that outlived Clear.
	epoch uint64
	wake  chan struct{}
}

// NewQueue returns an idle queue that hands eligible items to dispatch.
func NewQueue(dispatch DispatchFunc) *Queue {
	return &Queue{
		dispatch: dispatch,
		now:      time.Now,
		newID:    newUUID,
		wake:     make(chan struct{}, 1),
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// changedLocked notifies the observer and wakes the loop. Caller holds q.mu.
func (q *Queue) changedLocked() {
	if q.onChange != nil {
		q.onChange(append([]types.QueueItem(nil), q.items...), q.processing)
	}
	q.signal()
}

// Run dispatches eligible items one at a time until ctx is canceled.
func (q *Queue) Run(ctx context.Context) error {
	for {
		q.mu.Lock()
		if !q.processing {
			if item, ok := q.nextLocked(); ok {
				q.processing = true
				q.current = item.ID
				epoch := q.epoch
				q.changedLocked()
				go func() {
					q.dispatch(ctx, item)
					q.complete(item.ID, epoch)
				}()
			}
		}
		q.mu.Unlock()
		select {
		case <-q.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *Queue) nextLocked() (types.QueueItem, bool) {
	for _, it := range q.items {
		if !it.Paused {
			return it, true
		}
	}
	return types.QueueItem{}, false
}

func (q *Queue) complete(id string, epoch uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if epoch != q.epoch {
		return
	}
	q.removeLocked(id)
	q.processing = false
	q.current = ""
	q.changedLocked()
}

func (q *Queue) indexLocked(id string) int {
	for i, it := range q.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func (q *Queue) removeLocked(id string) bool {
	i := q.indexLocked(id)
	if i < 0 {
		return false
	}
	q.items = append(q.items[:i], q.items[i+1:]...)
	return true
}

// Enqueue appends a prompt to the queue.
func (q *Queue) Enqueue(prompt, sessionID string) (types.QueueItem, error) {
	if strings.TrimSpace(prompt) == "" {
		return types.QueueItem{}, ErrEmptyPrompt
	}
	item := types.QueueItem{ID: q.newID(), Prompt: prompt, SessionID: sessionID, CreatedAt: q.now()}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	q.changedLocked()
	return item, nil
}

// SetPaused pauses or resumes an item without changing its position.
func (q *Queue) SetPaused(id string, paused bool) (types.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.setPausedLocked(id, func(bool) bool { return paused })
}

// TogglePause flips an item's paused flag.
func (q *Queue) TogglePause(id string) (types.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.setPausedLocked(id, func(cur bool) bool { return !cur })
}

func (q *Queue) setPausedLocked(id string, next func(bool) bool) (types.QueueItem, error) {
	i := q.indexLocked(id)
	if i < 0 {
		return types.QueueItem{}, ErrQueueItemNotFound(id)
	}
	q.items[i].Paused = next(q.items[i].Paused)
	q.changedLocked()
	return q.items[i], nil
}

// Move places an item at index, clamped to the queue bounds. The relative
// order of every other item is kept.
func (q *Queue) Move(id string, index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexLocked(id)
	if i < 0 {
		return ErrQueueItemNotFound(id)
	}
	item := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	if index < 0 {
		index = 0
	}
	if index > len(q.items) {
		index = len(q.items)
	}
	q.items = append(q.items, types.QueueItem{})
	copy(q.items[index+1:], q.items[index:])
	q.items[index] = item
	q.changedLocked()
	return nil
}

// Remove drops an item. Removing the item in flight does not cancel it.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.removeLocked(id) {
		return ErrQueueItemNotFound(id)
	}
	q.changedLocked()
	return nil
}

// Clear empties the queue and resets the processing flag.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	q.processing = false
	q.current = ""
	q.epoch++
	q.changedLocked()
	return n
}

// Items returns a copy of the queue in order.
func (q *Queue) Items() []types.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]types.QueueItem(nil), q.items...)
}

// Processing reports whether an item is in flight, and which.
func (q *Queue) Processing() (bool, string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing, q.current
}

// Len reports the number of queued items, including the one in flight.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// dispatchQueued is the engine's DispatchFunc.
func (e *Engine) dispatchQueued(ctx context.Context, item types.QueueItem) {
	e.log.Info().Str("item", item.ID).Msg("queue_dispatch")
	if _, err := e.Broadcast(ctx, item.Prompt, item.SessionID); err != nil {
		e.log.Warn().Err(err).Str("item", item.ID).Msg("queued broadcast rejected")
	}
}

func (e *Engine) queueChanged(items []types.QueueItem, processing bool) {
	queueDepth.Set(float64(len(items)))
	e.publish(events.Event{Name: "queue_changed", Fields: map[string]any{"items": items, "processing": processing}})
}

// Queue exposes the engine's queue.
func (e *Engine) Queue() *Queue { return e.queue }

// Enqueue appends a prompt to the engine's queue.
func (e *Engine) Enqueue(prompt, sessionID string) (types.QueueItem, error) {
	if sessionID != "" && !e.store.HasSession(sessionID) {
		return types.QueueItem{}, store.ErrSessionNotFound(sessionID)
	}
	return e.queue.Enqueue(prompt, sessionID)
}
