// Package orchestrator runs a coordinate lookup through an ordered list of
// registry tiers, each guarded by its own circuit breaker, until one yields
// a cadastral reference.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"catastro/internal/cadastre/metrics"
	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
	"catastro/pkg/platform/circuit"
)

const tracerName = "catastro/internal/cadastre/orchestrator"

// Attempt records one tier's part in a resolution.
type Attempt struct {
	Tier     string                  `json:"tier"`
	Category providers.ErrorCategory `json:"category,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Duration time.Duration           `json:"durationNs"`
	Skipped  bool                    `json:"skipped,omitempty"`
}

// Succeeded reports whether the tier produced a reference.
func (a Attempt) Succeeded() bool {
	return a.Category == "" && !a.Skipped
}

// Outcome is the chain's result plus the per-tier trail that led to it.
type Outcome struct {
	Result   models.CadastralResult
	Attempts []Attempt
}

// TierHealth is one tier's probe result.
type TierHealth struct {
	Tier    string `json:"tier"`
	Healthy bool   `json:"healthy"`
	Breaker string `json:"breaker"`
	Error   string `json:"error,omitempty"`
}

type tier struct {
	resolver providers.Resolver
	breaker  *circuit.Breaker
}

// Chain is safe for concurrent use.
type Chain struct {
	tiers       []tier
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
	breakerOpts []circuit.Option
}

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records tier attempts, latency and breaker state.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Chain) {
		c.metrics = m
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Chain) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithBreakerSettings sets the failure threshold and cooldown of every
// tier's breaker.
func WithBreakerSettings(threshold int, cooldown time.Duration) Option {
	return func(c *Chain) {
		c.breakerOpts = append(c.breakerOpts,
			circuit.WithFailureThreshold(threshold),
			circuit.WithCooldown(cooldown),
		)
	}
}

// WithBreakerOptions passes raw options to every tier's breaker.
func WithBreakerOptions(opts ...circuit.Option) Option {
	return func(c *Chain) {
		c.breakerOpts = append(c.breakerOpts, opts...)
	}
}

// New builds a chain that tries resolvers in order.
func New(resolvers []providers.Resolver, opts ...Option) *Chain {
	c := &Chain{
		logger: slog.New(slog.DiscardHandler),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.tiers = make([]tier, 0, len(resolvers))
	for _, r := range resolvers {
		c.tiers = append(c.tiers, tier{
			resolver: r,
			breaker:  circuit.New(r.ID(), c.breakerOpts...),
		})
	}
	return c
}

// Resolve tries each tier once, in order, and stops at the first reference.
// When every tier fails the result is the terminal REST+SOAP_FAILED error
// naming each tier's failure. No tier is retried in place.
func (c *Chain) Resolve(ctx context.Context, coords models.GeoCoordinates) Outcome {
	ctx, span := c.tracer.Start(ctx, "cadastre.chain.resolve",
		trace.WithAttributes(
			attribute.Float64("geo.lat", coords.Lat),
			attribute.Float64("geo.lng", coords.Lng),
		))
	defer span.End()

	out := Outcome{Attempts: make([]Attempt, 0, len(c.tiers))}
	for _, t := range c.tiers {
		if err := ctx.Err(); err != nil {
			out.Attempts = append(out.Attempts, Attempt{
				Tier:     t.resolver.ID(),
				Category: providers.ErrorCancelled,
				Message:  "request cancelled",
				Skipped:  true,
			})
			continue
		}

		result, attempt := c.attempt(ctx, t, coords)
		out.Attempts = append(out.Attempts, attempt)
		if attempt.Succeeded() {
			out.Result = result
			span.SetAttributes(attribute.String("cadastre.source", result.APISource.String()))
			return out
		}
	}

	out.Result = models.Failure(models.SourceRESTSOAPFailed, models.ErrorKindTerminal, terminalMessage(out.Attempts))
	span.SetStatus(codes.Error, "all tiers failed")
	c.logger.ErrorContext(ctx, "registry lookup failed on every tier",
		"coords", coords.String(),
		"error", out.Result.ErrorMessage(),
	)
	return out
}

func (c *Chain) attempt(ctx context.Context, t tier, coords models.GeoCoordinates) (models.CadastralResult, Attempt) {
	id := t.resolver.ID()
	attempt := Attempt{Tier: id}

	if !t.breaker.Allow() {
		attempt.Category = providers.ErrorProviderOutage
		attempt.Message = "circuit open"
		attempt.Skipped = true
		c.metrics.IncrementTierAttempt(id, "breaker_open")
		c.logger.WarnContext(ctx, "tier skipped", "tier", id, "category", attempt.Category, "error", attempt.Message)
		return models.CadastralResult{}, attempt
	}

	ctx, span := c.tracer.Start(ctx, "cadastre.tier."+id,
		trace.WithAttributes(attribute.String("cadastre.protocol", string(t.resolver.Protocol()))))
	defer span.End()

	start := time.Now()
	result, err := t.resolver.Resolve(ctx, coords)
	attempt.Duration = time.Since(start)
	c.metrics.ObserveTierLatency(id, attempt.Duration)
	c.logger.DebugContext(ctx, "tier attempted", "tier", id, "duration_ms", attempt.Duration.Milliseconds())

	if err == nil && !result.HasReference() {
		err = providers.NewProviderError(providers.ErrorNotFound, id, "no cadastral reference returned", nil)
	}
	if err != nil {
		attempt.Category = providers.GetCategory(err)
		attempt.Message = providers.Message(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(attempt.Category))
		c.metrics.IncrementTierAttempt(id, string(attempt.Category))
		c.logger.WarnContext(ctx, "tier failed", "tier", id, "category", attempt.Category, "error", err)
		switch {
		case attempt.Category == providers.ErrorCancelled:
			t.breaker.Release()
		case providers.IsCounted(err):
			if _, change := t.breaker.RecordFailure(); change.Opened {
				c.logger.WarnContext(ctx, "tier circuit opened", "tier", id)
			}
		default:
			c.recordSuccess(ctx, t)
		}
		c.metrics.SetBreakerState(id, int(t.breaker.State()))
		return models.CadastralResult{}, attempt
	}

	c.recordSuccess(ctx, t)
	c.metrics.SetBreakerState(id, int(t.breaker.State()))
	c.metrics.IncrementTierAttempt(id, "success")
	return result, attempt
}

// recordSuccess marks the tier healthy. A registry answer without a
// reference still proves the tier is reachable.
func (c *Chain) recordSuccess(ctx context.Context, t tier) {
	if _, change := t.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "tier circuit closed", "tier", t.resolver.ID())
	}
}

func terminalMessage(attempts []Attempt) string {
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Tier, a.Message))
	}
	if len(parts) == 0 {
		return "registry lookup failed: no tiers configured"
	}
	return "registry lookup failed: " + strings.Join(parts, "; ")
}

// Health probes every tier in parallel. A tier whose circuit is open is
// still probed so operators see whether the endpoint has recovered.
func (c *Chain) Health(ctx context.Context) []TierHealth {
	report := make([]TierHealth, len(c.tiers))
	var g errgroup.Group
	for i, t := range c.tiers {
		g.Go(func() error {
			h := TierHealth{
				Tier:    t.resolver.ID(),
				Breaker: t.breaker.State().String(),
			}
			if err := t.resolver.Health(ctx); err != nil {
				h.Error = err.Error()
			} else {
				h.Healthy = true
			}
			report[i] = h
			return nil
		})
	}
	_ = g.Wait()
	return report
}

// ResetBreakers closes every tier's circuit.
func (c *Chain) ResetBreakers() {
	for _, t := range c.tiers {
		t.breaker.Reset()
		c.metrics.SetBreakerState(t.resolver.ID(), int(circuit.StateClosed))
	}
}
