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
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"catastro/internal/app"
	"catastro/internal/cadastre/handler"
	"catastro/internal/platform/config"
	"catastro/internal/platform/httpserver"
	"catastro/internal/platform/logger"
	platformmetrics "catastro/internal/platform/metrics"
	"catastro/internal/platform/middleware"
	"catastro/pkg/platform/middleware/requestid"
	"catastro/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := godotenv.Load(".env.local"); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env.local", "error", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	engine, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer engine.Close()

	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(middleware.Logger(log))
	router.Method(http.MethodGet, "/metrics", platformmetrics.Handler(engine.Registry))
	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(40 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		handler.New(engine.Service, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting catastro", "addr", cfg.Addr, "cache_backend", cfg.Cache.Backend, "kafka", cfg.Kafka.Enabled())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv)
	})
	g.Go(func() error {
		engine.RunSweeper(gctx, cfg.SweepInterval)
		return nil
	})
	return g.Wait()
}
