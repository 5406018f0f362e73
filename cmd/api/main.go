package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/vidshelf/internal/api/handler"
	"github.com/hszk-dev/vidshelf/internal/api/middleware"
	"github.com/hszk-dev/vidshelf/internal/app"
	"github.com/hszk-dev/vidshelf/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Server.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := app.New(initCtx, cfg, app.Options{Queue: true})
	initCancel()
	if err != nil {
		return err
	}
	defer deps.Close()

	r := setupRouter(logger, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupRouter(logger *slog.Logger, deps *app.App) *chi.Mux {
	cfg := deps.Config

	checks := make(map[string]handler.Check)
	for name, check := range deps.Checks() {
		checks[name] = check
	}
	readiness := handler.NewReadinessHandler(checks, 2*time.Second)

	users := handler.NewUserHandler(deps.Store, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes, cfg.Assets.DefaultAvatarPath)
	videos := handler.NewVideoHandler(deps.Store, deps.Registry, deps.Dispatcher, deps.Signer, handler.VideoHandlerConfig{
		UploadDir:        cfg.Server.UploadDir,
		MaxUploadBytes:   cfg.Server.MaxUploadBytes,
		MediaURLTTL:      cfg.Signing.MediaURLTTL,
		EnqueueQualities: cfg.Server.EnqueueQualities,
	})
	comments := handler.NewCommentHandler(deps.Store)
	catalog := handler.NewCatalogHandler(deps.Catalog)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", readiness.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		users.Routes(r)
		videos.Routes(r, comments.Routes)
		catalog.Routes(r)
	})

	return r
}
