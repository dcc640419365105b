package main

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
	"github.com/go-chi/render"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tendant/simple-catalog/pkg/simplecatalog"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/api"
	"github.com/tendant/simple-catalog/pkg/simplecatalog/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// Load configuration from environment
	serverConfig, err := config.Load(config.WithEnv())
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	logger := serverConfig.Logger(os.Stdout)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := simplecatalog.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	httpMetrics, err := api.NewHTTPMetrics(registry)
	if err != nil {
		return fmt.Errorf("failed to register http metrics: %w", err)
	}

	ctx := context.Background()
	svc, err := serverConfig.BuildService(ctx,
		simplecatalog.WithLogger(logger),
		simplecatalog.WithMetrics(metrics),
	)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}

	handler := api.NewCatalogHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.LoggingMiddleware(logger))
	r.Use(api.RecoveryMiddleware(logger))
	r.Use(api.CORSMiddleware(serverConfig.AllowedOrigins))
	r.Use(httpMetrics.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"service": "simple-catalog", "environment": serverConfig.Environment})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/api", handler.Routes())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", serverConfig.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Simple Catalog Server starting",
			"port", serverConfig.Port,
			"environment", serverConfig.Environment,
			"storage", serverConfig.Storage.Type,
			"cache", serverConfig.Cache.Type,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := svc.Close(shutdownCtx); err != nil {
		return fmt.Errorf("failed to close service: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}
