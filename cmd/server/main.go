// ContentLoop AI - human-in-the-loop content revision server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/amajai/contentloop-ai/internal/api"
	"github.com/amajai/contentloop-ai/internal/config"
	"github.com/amajai/contentloop-ai/internal/llm"
	"github.com/amajai/contentloop-ai/internal/middleware"
	"github.com/amajai/contentloop-ai/internal/optimize"
	"github.com/amajai/contentloop-ai/internal/realtime"
	"github.com/amajai/contentloop-ai/internal/session"
	"github.com/amajai/contentloop-ai/internal/store"
	"github.com/amajai/contentloop-ai/internal/sweeper"
	"github.com/amajai/contentloop-ai/internal/telemetry"
	"github.com/amajai/contentloop-ai/internal/transcript"
	"github.com/amajai/contentloop-ai/internal/workflow"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"store", cfg.Store.Backend,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", cfg.LLM.Model,
		"session_timeout", cfg.SessionTimeout,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.New(ctx, cfg.Store)
	if err != nil {
		slog.Error("Failed to initialize session store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Session store health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Session store connected", "backend", cfg.Store.Backend)

	gen, err := llm.New(cfg.LLM)
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.New()

	transcripts, err := transcript.New(cfg.Transcript, logger)
	if err != nil {
		slog.Error("Failed to initialize transcript logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := transcripts.Close(); closeErr != nil {
			slog.Error("Failed to close transcript logger", "error", closeErr)
		}
	}()

	// Initialize services.
	machine := workflow.NewMachine(workflow.NewGenerator(gen))
	svc := session.NewService(repo, machine, cfg.SessionTimeout,
		session.WithMetrics(metrics),
		session.WithTranscript(transcripts),
	)
	hub := realtime.NewHub()
	svc.OnRemove(hub.CloseSession)

	analyzer := optimize.NewAnalyzer(gen, metrics)

	// Initialize handlers.
	healthHandler := api.NewHealthHandler(svc)
	sessionHandler := api.NewSessionHandler(svc, cfg.MaxRequestBodyBytes)
	optimizationHandler := api.NewOptimizationHandler(analyzer, cfg.MaxRequestBodyBytes)
	wsHandler := realtime.NewHandler(svc, hub, cfg.AllowedOrigins)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	healthHandler.RegisterRoutes(r)
	sessionHandler.RegisterRoutes(r)
	optimizationHandler.RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// WebSocket endpoint.
	wsHandler.RegisterRoutes(r)

	// No WriteTimeout: generation calls and sockets outlive it.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	sw := sweeper.New(svc, cfg.SweepInterval)
	if err := sw.Start(); err != nil {
		slog.Error("Failed to start session sweeper", "error", err)
		os.Exit(1)
	}

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sw.Stop(shutdownCtx); err != nil {
		slog.Warn("Session sweeper did not stop cleanly", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
