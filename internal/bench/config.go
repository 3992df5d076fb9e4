package bench

import (
	"time"

	"github.com/rs/zerolog"

	"benchd/internal/batcher"
	"benchd/internal/events"
	"benchd/internal/provider"
	"benchd/internal/store"
	"benchd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultEventBuffer = 64
	maxErrorBytes      = 512
	titleRunes         = 30
)

// Config encapsulates all tunables for Engine construction.
type Config struct {
	Store     *store.Store
	Providers *provider.Registry
	// FlushInterval bounds the rate of streaming publications to the store.
	FlushInterval time.Duration
	Logger        zerolog.Logger
	// Publisher receives engine lifecycle events (sessions, broadcasts, queue).
	Publisher events.Publisher
	// Now and NewID are test hooks.
	Now   func() time.Time
	NewID func() string
}

// NewWithConfig constructs an Engine from Config.
func NewWithConfig(cfg Config) *Engine {
	e := &Engine{
		store:     cfg.Store,
		providers: cfg.Providers,
		log:       cfg.Logger,
		pub:       cfg.Publisher,
		now:       cfg.Now,
		newID:     cfg.NewID,
		live:      make(map[string]*session),
	}
	if e.store == nil {
		e.store = store.New(nil, types.GenerationConfig{})
	}
	if e.providers == nil {
		e.providers = provider.NewRegistry()
	}
	if e.pub == nil {
		e.pub = events.Noop{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = newUUID
	}
	interval := cfg.FlushInterval
	if interval <= 0 {
		interval = batcher.DefaultInterval
	}
	e.batcher = batcher.New(e.store, interval)
	e.queue = NewQueue(e.dispatchQueued)
	e.queue.now = e.now
	e.queue.newID = e.newID
	e.queue.onChange = e.queueChanged
	e.startTime = e.now()
	return e
}
