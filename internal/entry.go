// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/history"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/runservice"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/stage"
	"github.com/starford/raido/internal/storage"
)

// App bundles the wired application components. One-shot CLI commands
// and the long-running modes all start from here.
type App struct {
	Config  *Config
	Log     *slog.Logger
	Source  *storage.FS
	Vault   *storage.FS
	DB      *history.DB
	Service *runservice.Service
}

// Bootstrap builds the application components from configuration. The
// vault directory is created if missing; the source directory must
// already exist.
func Bootstrap(cfg *Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	src, err := storage.NewFS(cfg.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("init source: %w", err)
	}
	vault, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	db, err := history.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	return &App{
		Config:  cfg,
		Log:     logger,
		Source:  src,
		Vault:   vault,
		DB:      db,
		Service: runservice.New(src, vault, db, logger),
	}, nil
}

// Close releases the application resources.
func (a *App) Close() error {
	return a.DB.Close()
}

// Run starts the HTTP server mode with the given options: REST API,
// SSE event stream, and the source directory watcher.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	a, err := Bootstrap(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.Log

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_path", cfg.Source.Path),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	throttle := app.progressThrottle
	if throttle <= 0 {
		throttle = 200 * time.Millisecond
	}
	broker := sse.NewBroker(throttle)
	defer broker.Close()

	apiRouter := api.NewRouter(a.Service, a.DB, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the source directory and stream staging events.
	g.Go(func() error {
		return stage.Watch(gCtx, a.DB, a.Source, cfg.Source.Path, logger, func(path, kind string) {
			broker.PublishStaged(path, kind)
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunWatch starts the standalone watch mode: classify exports as they
// land in the source directory and log the result.
func RunWatch(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	a, err := Bootstrap(app.config)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return stage.Watch(ctx, a.DB, a.Source, app.config.Source.Path, a.Log, func(path, kind string) {
		a.Log.Info("export staged", slog.String("path", path), slog.String("kind", kind))
	})
}

// RunMCP starts the MCP stdio server mode.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	a, err := Bootstrap(app.config)
	if err != nil {
		return err
	}
	defer a.Close()

	return mcpserver.New(a.Service, a.Source, a.DB).ServeStdio()
}
