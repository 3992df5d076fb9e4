// Package batcher coalesces high-frequency streaming patches into a bounded
// rate of store publications.
//
// Each Publish merges a patch into a pending map keyed by result id. A flush
// swaps the whole map out and hands it to the Sink in one call. Flushes are
// scheduled at most once per interval and only while work remains; Pause
// stops scheduling without discarding buffered patches.
package batcher

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"benchd/pkg/types"
)

// DefaultInterval is roughly one 60 Hz frame.
const DefaultInterval = 16 * time.Millisecond

var (
	flushesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "benchd",
		Subsystem: "batcher",
		Name:      "flushes_total",
		Help:      "Total number of non-empty batches pushed to the store",
	})
	batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "benchd",
		Subsystem: "batcher",
		Name:      "batch_size",
		Help:      "Number of result patches per flushed batch",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
	})
)

func init() {
	prometheus.MustRegister(flushesTotal, batchSize)
}

// Sink receives coalesced batches.
type Sink interface {
	ApplyPatches(batch map[string]types.StreamingPatch)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(map[string]types.StreamingPatch)

func (f SinkFunc) ApplyPatches(b map[string]types.StreamingPatch) { f(b) }

type Batcher struct {
	sink     Sink
	interval time.Duration

	// flushMu serializes flushes with each other and with Discard.
	flushMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]types.StreamingPatch
	paused    bool
	scheduled bool
	closed    bool
	timer     *time.Timer
}

// New returns a batcher publishing to sink at most once per interval.
func New(sink Sink, interval time.Duration) *Batcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Batcher{sink: sink, interval: interval, pending: make(map[string]types.StreamingPatch)}
}

// Publish merges patch into the pending entry for resultID and schedules a
// flush if none is pending and the batcher is not paused.
func (b *Batcher) Publish(resultID string, patch types.StreamingPatch) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.pending[resultID] = b.pending[resultID].Merge(patch)
	b.scheduleLocked(b.interval)
}

func (b *Batcher) scheduleLocked(delay time.Duration) {
	if b.scheduled || b.paused || b.closed || len(b.pending) == 0 {
		return
	}
	b.scheduled = true
	b.timer = time.AfterFunc(delay, b.tick)
}

func (b *Batcher) tick() {
	b.mu.Lock()
	if b.paused || b.closed {
		b.scheduled = false
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	b.Flush()

	b.mu.Lock()
	b.scheduled = false
	b.scheduleLocked(b.interval)
	b.mu.Unlock()
}

// Flush pushes every pending patch to the sink as one batch and returns the
// number of results in it. With nothing pending it does not touch the sink.
func (b *Batcher) Flush() int {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return 0
	}
	batch := b.pending
	b.pending = make(map[string]types.StreamingPatch, len(batch))
	b.mu.Unlock()

	b.sink.ApplyPatches(batch)
	flushesTotal.Inc()
	batchSize.Observe(float64(len(batch)))
	return len(batch)
}

// Discard drops the pending patch of a result. When it returns, no flush that
// could still carry an older patch for resultID is in progress.
func (b *Batcher) Discard(resultID string) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	b.mu.Lock()
	delete(b.pending, resultID)
	b.mu.Unlock()
}

// Pause suspends scheduling. Buffered patches are kept.
func (b *Batcher) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
	if b.timer != nil && b.timer.Stop() {
		b.scheduled = false
	}
}

// Resume re-enables scheduling and flushes right away if patches are pending.
func (b *Batcher) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
	b.scheduleLocked(0)
}

func (b *Batcher) Paused() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.paused
}

// Pending reports the number of results with buffered patches.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Close stops the timer and flushes what is left. Later publishes are ignored.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
	}
	b.scheduled = false
	b.mu.Unlock()
	b.Flush()
}
