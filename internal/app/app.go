// Package app wires the resolution engine from configuration. The HTTP
// server and the CLI build the same graph through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"catastro/internal/cadastre/address"
	"catastro/internal/cadastre/audit"
	"catastro/internal/cadastre/cache"
	"catastro/internal/cadastre/cache/store"
	"catastro/internal/cadastre/climate"
	"catastro/internal/cadastre/metrics"
	"catastro/internal/cadastre/orchestrator"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/providers/proximity"
	"catastro/internal/cadastre/providers/rest"
	"catastro/internal/cadastre/providers/soap"
	"catastro/internal/cadastre/service"
	"catastro/internal/platform/config"
	"catastro/internal/platform/kafka"
	platformmetrics "catastro/internal/platform/metrics"
	"catastro/internal/platform/postgres"
	"catastro/internal/platform/redis"
)

// auditLogCapacity bounds the in-process audit trail.
const auditLogCapacity = 1000

// App is a wired engine plus the resources it owns.
type App struct {
	Service  *service.Service
	Audit    *audit.Publisher
	AuditLog *audit.MemoryStore
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	logger  *slog.Logger
	closers []func()
}

// Build connects the configured backends and assembles the engine. Close
// releases everything Build opened, also when Build fails halfway.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (app *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{
		Registry: platformmetrics.NewRegistry(),
		logger:   logger,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()
	a.Metrics = metrics.NewWithRegisterer(a.Registry)

	kv, err := a.cacheStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.auditPipeline(ctx, cfg); err != nil {
		return nil, err
	}

	transport := providers.NewTransport(providers.WithRateLimit(cfg.Registry.RateLimit, 1))
	classifier := climate.New(climate.DefaultTable())
	restClient := rest.New(
		rest.WithURL(cfg.Registry.RESTURL),
		rest.WithAddressURL(cfg.Registry.AddressURL),
		rest.WithTimeout(cfg.Registry.RESTTimeout),
		rest.WithTransport(transport),
		rest.WithLogger(logger),
	)
	soapClient := soap.New(
		soap.WithURL(cfg.Registry.SOAPURL),
		soap.WithTimeout(cfg.Registry.SOAPTimeout),
		soap.WithTransport(transport),
		soap.WithClassifier(classifier),
		soap.WithLogger(logger),
	)
	proximityClient := proximity.New(
		proximity.WithURL(cfg.Registry.ProximityURL),
		proximity.WithTimeout(cfg.Registry.ProximityTimeout),
		proximity.WithTransport(transport),
		proximity.WithLogger(logger),
	)

	chain := orchestrator.New(
		[]providers.Resolver{restClient, soapClient},
		orchestrator.WithBreakerSettings(cfg.Breaker.Threshold, cfg.Breaker.Cooldown),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(a.Metrics),
	)

	cacheOpts := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(a.Metrics)}
	a.Service, err = service.New(chain,
		cache.NewResultCache(kv, cfg.Cache.TTL, cfg.Cache.ErrorTTL, cacheOpts...),
		service.WithStreetResolver(restClient),
		service.WithCandidates(proximityClient, cache.NewCandidateCache(kv, cfg.Cache.TTL, cfg.Cache.ErrorTTL, cacheOpts...)),
		service.WithParser(address.NewParser(address.WithDefaultCity(cfg.DefaultCity), address.WithClassifier(classifier))),
		service.WithClassifier(classifier),
		service.WithAuditPublisher(a.Audit),
		service.WithLogger(logger),
		service.WithMetrics(a.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("build service: %w", err)
	}
	return a, nil
}

func (a *App) cacheStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect cache backend: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return store.NewRedisStore(client.Client), nil
	case config.BackendPostgres:
		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect cache backend: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return store.NewInMemoryStore(store.WithMaxEntries(cfg.Cache.MaxEntries)), nil
	}
}

func (a *App) auditPipeline(ctx context.Context, cfg config.Config) error {
	a.AuditLog = audit.NewMemoryStore(auditLogCapacity)
	sink := audit.Store(a.AuditLog)

	client, err := kafka.New(ctx, cfg.Kafka)
	if err != nil {
		return fmt.Errorf("connect audit stream: %w", err)
	}
	if client != nil {
		a.closers = append(a.closers, client.Close)
		if err := audit.EnsureTopic(ctx, client, cfg.Kafka.Topic, 1, 1); err != nil {
			a.logger.Warn("audit topic not ensured", "topic", cfg.Kafka.Topic, "error", err)
		}
		sink = audit.Tee(a.AuditLog, audit.NewKafkaStore(client, cfg.Kafka.Topic))
	}

	sampler := audit.NewSampler()
	sampler.SetRate(audit.ActionCacheHit, cfg.Audit.CacheHitSampleRate)
	a.Audit = audit.NewPublisher(sink,
		audit.WithAsyncBuffer(cfg.Audit.BufferSize),
		audit.WithSampler(sampler),
		audit.WithLogger(a.logger),
		audit.WithMetrics(a.Metrics),
	)
	// The publisher drains before the sinks close.
	a.closers = append(a.closers, a.Audit.Close)
	return nil
}

// RunSweeper deletes expired cache entries every interval until ctx ends.
// A non-positive interval returns immediately.
func (a *App) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.Service.Sweep(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("cache sweep failed", "error", err)
				continue
			}
			a.logger.Debug("cache sweep", "removed", removed)
		}
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
