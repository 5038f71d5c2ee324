package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lifeos/ctxpack/config"
	"github.com/lifeos/ctxpack/pkg/api"
	"github.com/lifeos/ctxpack/pkg/api/events"
	"github.com/lifeos/ctxpack/pkg/api/handlers"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/metrics"
	"github.com/lifeos/ctxpack/pkg/telemetry/tracing"
	"github.com/lifeos/ctxpack/pkg/version"
)

const wsSubscriberBuffer = 256

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			logger.SetGlobal(log)
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log, opts)
		},
	}
}

// serve runs the service until ctx is cancelled or the listener fails.
func serve(ctx context.Context, cfg *config.Config, log logger.Logger, opts *globalOptions) error {
	log.Info("Starting ctxpack",
		"version", version.Version,
		"gitCommit", version.GitCommit,
		"app", cfg.App.Name,
		"environment", cfg.App.Environment,
	)
	log.Debug("Configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, tracing.Service{
		Name:        cfg.App.Name,
		Version:     version.Version,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	defaults := metrics.DefaultConfig()
	metricsManager := metrics.NewManager(metrics.Config{
		Enabled:                cfg.Metrics.Enabled,
		Port:                   cfg.Metrics.Port,
		Path:                   cfg.Metrics.Path,
		ContextDurationBuckets: defaults.ContextDurationBuckets,
		StageDurationBuckets:   defaults.StageDurationBuckets,
		TokenBuckets:           defaults.TokenBuckets,
		HTTPDurationBuckets:    defaults.HTTPDurationBuckets,
	})
	if metricsManager.Enabled() {
		go func() {
			log.Info("Starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := metricsManager.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				log.Error("Metrics server error", "error", err)
			}
		}()
	}

	var broadcaster *events.Broadcaster
	if cfg.Server.WebSocket.Enabled {
		broadcaster = events.NewBroadcaster()
		defer broadcaster.Close()
	}

	a, err := buildApp(ctx, cfg, log, appOptions{metrics: metricsManager, broadcaster: broadcaster})
	if err != nil {
		return err
	}

	apiHandlers, health := newHandlers(ctx, a)
	httpServer := api.NewHTTPServer(cfg, log, apiHandlers)

	if opts.configPath != "" {
		watcher, err := startWatcher(ctx, cfg, log, opts)
		if err != nil {
			log.Warn("Config hot reload disabled", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	if err := httpServer.Listen(); err != nil {
		if cerr := a.Close(context.Background()); cerr != nil {
			log.Error("Error closing components", "error", cerr)
		}
		_ = shutdownTracing(context.Background())
		return err
	}

	serverErrChan := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			serverErrChan <- err
		}
	}()
	health.SetReady(true)

	log.Info("ctxpack is running",
		"addr", httpServer.Addr(),
		"metrics_port", cfg.Metrics.Port,
		"retrieval", cfg.Retrieval.Backend,
		"compression", cfg.Compression.Backend,
	)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case runErr = <-serverErrChan:
		log.Error("HTTP server error", "error", runErr)
	}
	health.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down HTTP server", "error", err)
	}
	if apiHandlers.WebSocket != nil {
		apiHandlers.WebSocket.Close()
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error("Error closing components", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error shutting down tracing", "error", err)
	}

	log.Info("ctxpack stopped gracefully")
	return runErr
}

// newHandlers builds the HTTP handlers over a. Routes whose backing
// component is absent stay unregistered.
func newHandlers(ctx context.Context, a *app) (*api.Handlers, *handlers.HealthHandler) {
	cfg := a.cfg
	maxBody := cfg.Server.HTTP.MaxBodyBytes

	health := handlers.NewHealthHandler(handlers.Backends{
		Retrieval:   cfg.Retrieval.Backend,
		Compression: cfg.Compression.Backend,
		Sinks:       a.recorder.Sinks(),
	}, a.index)

	h := &api.Handlers{
		Context:      handlers.NewContextHandler(a.pipeline, a.log, maxBody),
		Collaborator: handlers.NewCollaboratorHandler(a.searcher, a.summarizer, a.log, maxBody),
		Health:       health,
	}
	if a.index != nil {
		h.Memory = handlers.NewMemoryHandler(a.index, a.log, a.metrics, maxBody)
	}
	if reader, ok := a.recorder.Reader(); ok {
		h.Telemetry = handlers.NewTelemetryHandler(reader, a.log)
	}
	if a.broadcaster != nil {
		ws := handlers.NewWebSocketHandler(a.log.With("component", "websocket"), handlers.WebSocketConfig{
			AllowedOrigins: cfg.Server.WebSocket.AllowedOrigins,
			MaxConnections: cfg.Server.WebSocket.MaxConnections,
			PingInterval:   cfg.Server.WebSocket.PingInterval,
		})
		go ws.Forward(ctx, a.broadcaster.Subscribe(wsSubscriberBuffer))
		h.WebSocket = ws
	}
	if a.metrics.Enabled() {
		h.Metrics = a.metrics
	}
	return h, health
}

// startWatcher applies hot-reloadable settings when the config file changes.
func startWatcher(ctx context.Context, cfg *config.Config, log logger.Logger, opts *globalOptions) (*config.Watcher, error) {
	watcher, err := config.NewWatcher(opts.configPath, config.NewLoader(),
		config.WithWatchLogger(log),
		config.WithOverrides(opts.overrides()),
	)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	current := config.ExtractHotReloadable(cfg)
	watcher.OnChange(func(next *config.Config) {
		mu.Lock()
		defer mu.Unlock()

		hot := config.ExtractHotReloadable(next)
		if !hot.Changed(current) {
			return
		}
		if hot.LogLevel != current.LogLevel {
			log.SetLevel(logger.ParseLevel(hot.LogLevel))
			log.Info("Log level changed", "from", current.LogLevel, "to", hot.LogLevel)
		}
		if hot.LogFormat != current.LogFormat {
			log.Warn("Log format change takes effect after restart", "format", hot.LogFormat)
		}
		current = hot
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Config watcher stopped", "error", err)
		}
	}()
	return watcher, nil
}
