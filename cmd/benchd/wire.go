package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"benchd/internal/bench"
	"benchd/internal/config"
	"benchd/internal/events"
	"benchd/internal/provider"
	"benchd/internal/registry"
	"benchd/internal/store"
)

// app is the engine plus the resources that must be released with it.
type app struct {
	cfg     config.Config
	engine  *bench.Engine
	store   *store.Store
	closers []io.Closer
}

// buildApp constructs providers, the model catalog, the store and the engine
// from cfg. pub receives store and engine events.
func buildApp(cfg config.Config, log zerolog.Logger, pub events.Publisher) (*app, error) {
	reg := provider.NewRegistry()
	a := &app{cfg: cfg}
	for _, pc := range cfg.Providers {
		p, err := provider.Build(pc.Kind, pc.Options())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		if c, ok := p.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		reg.Register(pc.Name, p)
	}
	models, err := registry.Build(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if pub == nil {
		pub = events.Noop{}
	}
	a.store = store.New(models, cfg.Generation)
	a.store.SetPublisher(pub)
	if cfg.StatePath != "" {
		if err := a.store.Load(cfg.StatePath); err != nil {
			a.Close()
			return nil, fmt.Errorf("load state: %w", err)
		}
	}
	a.engine = bench.NewWithConfig(bench.Config{
		Store:         a.store,
		Providers:     reg,
		FlushInterval: time.Duration(cfg.FlushIntervalMs) * time.Millisecond,
		Logger:        log,
		Publisher:     pub,
	})
	return a, nil
}

// Close stops the engine, snapshots sessions when configured and releases
// local backends.
func (a *app) Close() error {
	var first error
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			first = err
		}
		if a.cfg.StatePath != "" {
			if err := a.store.Save(a.cfg.StatePath); err != nil && first == nil {
				first = fmt.Errorf("save state: %w", err)
			}
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
