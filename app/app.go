package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/pvpauth/auth/keycache"
	"github.com/kbukum/pvpauth/component"
	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
	"github.com/kbukum/pvpauth/redis"
	"github.com/kbukum/pvpauth/server"
)

// App owns the process lifecycle: it starts the infrastructure components,
// builds the services on top of them, serves HTTP and shuts everything down
// in reverse order.
//
//	cfg, err := app.Load()
//	a, err := app.New(cfg)
//	err = a.Run(context.Background())
type App struct {
	Name       string
	Version    string
	Cfg        *Config
	Components *component.Registry
	Logger     *logger.Logger

	observability *observability.Component
	database      *database.Component
	redis         *redis.Component
	keys          *keycache.Cache
	server        *server.Server

	gracefulTimeout time.Duration
	summaryOut      io.Writer

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// New creates the application from cfg. It applies defaults, validates the
// config, initializes the logger and registers the infrastructure
// components. Nothing connects until Start.
func New(cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	a := &App{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		summaryOut:      os.Stdout,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	if o.summary != nil {
		a.summaryOut = o.summary
	}
	if o.logger != nil {
		a.Logger = o.logger
		logger.SetGlobalLogger(o.logger)
	} else {
		a.Logger = logger.Init(base.Logging, base.Name)
	}
	a.Components = component.NewRegistry(a.Logger)

	if err := a.registerInfrastructure(); err != nil {
		return nil, err
	}
	return a, nil
}

// registerInfrastructure registers, in start order, the components the
// services depend on.
func (a *App) registerInfrastructure() error {
	cfg := a.Cfg
	a.observability = observability.NewComponent(cfg.Observability, a.Name, a.Version, cfg.Environment, a.Logger)
	a.database = database.NewComponent(cfg.Database, a.Logger)
	a.redis = redis.NewComponent(cfg.Redis, a.Logger)

	keys, err := keycache.New(cfg.KeyCache,
		keycache.WithLogger(a.Logger.WithComponent("keycache")),
		keycache.WithMetrics(a.observability.Metrics),
	)
	if err != nil {
		return fmt.Errorf("key cache: %w", err)
	}
	a.keys = keys

	for _, c := range []component.Component{a.observability, a.database, a.redis, a.keys} {
		if err := a.Components.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Server returns the HTTP server, or nil before Start.
func (a *App) Server() *server.Server { return a.server }

// ReadyCheck verifies that all registered components are healthy.
func (a *App) ReadyCheck(ctx context.Context) error {
	results := a.Components.HealthAll(ctx)
	var unhealthy []string
	for _, h := range results {
		if h.Status != component.StatusHealthy {
			detail := h.Name + "=" + string(h.Status)
			if h.Message != "" {
				detail += "(" + h.Message + ")"
			}
			unhealthy = append(unhealthy, detail)
		}
	}
	if len(unhealthy) > 0 {
		return fmt.Errorf("unhealthy components: %v", unhealthy)
	}
	return nil
}

// Run starts the application, blocks until SIGINT, SIGTERM or ctx
// cancellation, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.Shutdown()
}

// Start runs every startup phase and returns once the server is listening.
// On failure whatever was already started is stopped again.
func (a *App) Start(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		_ = a.stop()
		return err
	}
	return nil
}

func (a *App) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", map[string]interface{}{
		"name":        a.Name,
		"version":     a.Version,
		"environment": a.Cfg.Environment,
	})

	// Phase 1: infrastructure
	a.Logger.Info("Phase 1: Starting components")
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	// Phase 2: services and HTTP surface
	a.Logger.Info("Phase 2: Building services")
	if err := a.configure(); err != nil {
		return fmt.Errorf("configuration failed: %w", err)
	}
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("server start failed: %w", err)
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.DisplaySummary(ctx, time.Since(start))
	return nil
}

// WaitForSignal blocks until an OS interrupt/term signal or context cancellation.
func (a *App) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal, graceful shutdown starting", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown runs the stop hooks and stops every component within the
// graceful timeout.
func (a *App) Shutdown() error {
	return a.stop()
}

func (a *App) stop() error {
	a.Logger.Info("Shutting down application", map[string]interface{}{
		"timeout": a.gracefulTimeout.String(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	var shutdownErr error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", map[string]interface{}{
			"error": err.Error(),
		})
		shutdownErr = err
	}

	a.Logger.Info("Application shutdown complete")
	return shutdownErr
}
