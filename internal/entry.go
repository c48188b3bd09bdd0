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

	"github.com/norholm/laguz/internal/activity"
	"github.com/norholm/laguz/internal/api"
	"github.com/norholm/laguz/internal/collection"
	"github.com/norholm/laguz/internal/mcpserver"
	"github.com/norholm/laguz/internal/noteservice"
	"github.com/norholm/laguz/internal/sse"
	"github.com/norholm/laguz/internal/storage"
	"github.com/norholm/laguz/internal/watcher"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. In MCP mode stdout carries the
	// protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace_path", cfg.Workspace.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure workspace directory exists.
	if err := os.MkdirAll(cfg.Workspace.Path, 0o755); err != nil {
		return fmt.Errorf("create workspace dir: %w", err)
	}

	// Initialize storage.
	store, err := storage.NewFS(cfg.Workspace.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	// Initialize the activity database.
	db, err := activity.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init activity db: %w", err)
	}
	defer db.Close()

	// Collection engine and the service that drives it.
	notes := collection.NewStore(cfg.Engine.StoreOptions()...)
	svc := noteservice.NewService(store, notes, db, logger)

	// Initial load of the workspace into the engine.
	if err := svc.LoadWorkspace(ctx); err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	// MCP mode serves tools over stdio instead of HTTP.
	if app.mcpMode {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker, fed by engine changes.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()
	notes.Subscribe(func(change collection.Change, _ collection.State) {
		broker.PublishChange(string(change), nil)
	})

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Start file watcher with SSE callback.
	g.Go(func() error {
		return watcher.Watch(gCtx, svc, cfg.Workspace.Path, logger, func(kind, path string) {
			broker.PublishChange("workspace."+kind, map[string]string{"path": path})
		})
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
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
