package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"benchd/internal/config"
	"benchd/internal/events"
	"benchd/internal/httpapi"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var waitTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the prompt queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(opts.flags)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts, waitTimeout)
		},
	}
	config.BindServeFlags(cmd.Flags(), &opts.flags)
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "Upper bound for ?wait=1 requests (0 = none)")
	return cmd
}

// serve runs until ctx is canceled, then shuts the server down gracefully,
// aborts live generations and snapshots sessions.
func serve(ctx context.Context, cfg config.Config, opts *rootOptions, waitTimeout time.Duration) error {
	log := newLogger(opts.stderr, cfg.LogLevel, cfg.LogFormat)
	hub := events.NewHub(0)
	a, err := buildApp(cfg, log, hub)
	if err != nil {
		return err
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetLogger(log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetWaitTimeout(waitTimeout)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		_ = a.engine.Run(baseCtx)
	}()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(httpapi.NewService(a.engine, hub)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown cancels background work bound to the base context (websocket
	// feeds, async broadcasts, waiting requests, the queue loop).
	srv.RegisterOnShutdown(cancelBase)
	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", cfg.Addr).
			Int("models", len(a.store.Models())).
			Int("active", len(a.store.ActiveModels())).
			Msg("benchd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err, ok := <-serveErr:
		if ok {
			runErr = err
			log.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	<-queueDone
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("close")
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
