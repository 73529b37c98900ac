// Package service is the public entry point for cadastral resolution. Every
// Resolve operation returns a CadastralResult; failures are data in the
// result, never Go errors.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catastro/internal/cadastre/address"
	"catastro/internal/cadastre/audit"
	"catastro/internal/cadastre/cache"
	"catastro/internal/cadastre/climate"
	"catastro/internal/cadastre/metrics"
	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/orchestrator"
	"catastro/internal/cadastre/providers"
	"catastro/internal/cadastre/providers/proximity"
	"catastro/internal/cadastre/utm"
)

// TierChain resolves coordinates through the ordered registry tiers.
type TierChain interface {
	Resolve(ctx context.Context, coords models.GeoCoordinates) orchestrator.Outcome
	Health(ctx context.Context) []orchestrator.TierHealth
	ResetBreakers()
}

// StreetResolver looks up a parsed address in the registry's street index.
type StreetResolver interface {
	ResolveAddress(ctx context.Context, addr models.ParsedAddress) (models.CadastralResult, error)
}

// CandidateSource returns distance-ranked parcels around a point.
type CandidateSource interface {
	Candidates(ctx context.Context, coords models.GeoCoordinates, limit int) ([]models.Candidate, error)
}

// AuditPublisher receives one event per resolution.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ErrCandidatesUnavailable is returned when no candidate source is wired.
var ErrCandidatesUnavailable = errors.New("candidate lookup is not configured")

// Service composes cache, tier chain, parser and classifiers.
type Service struct {
	chain      TierChain
	results    *cache.ResultCache
	streets    StreetResolver
	candidates CandidateSource
	candCache  *cache.CandidateCache
	parser     *address.Parser
	classifier *climate.Classifier
	auditor    AuditPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithStreetResolver enables ResolveByAddress.
func WithStreetResolver(r StreetResolver) Option {
	return func(s *Service) {
		s.streets = r
	}
}

// WithCandidates enables ResolveCandidates. c may be nil to skip caching.
func WithCandidates(src CandidateSource, c *cache.CandidateCache) Option {
	return func(s *Service) {
		s.candidates = src
		s.candCache = c
	}
}

// WithParser replaces the default address parser.
func WithParser(p *address.Parser) Option {
	return func(s *Service) {
		if p != nil {
			s.parser = p
		}
	}
}

// WithClassifier replaces the default climate classifier.
func WithClassifier(c *climate.Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

// WithAuditPublisher sets where resolution events go.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records resolution outcomes and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service. The tier chain and result cache are required.
func New(chain TierChain, results *cache.ResultCache, opts ...Option) (*Service, error) {
	if chain == nil {
		return nil, errors.New("tier chain is required")
	}
	if results == nil {
		return nil, errors.New("result cache is required")
	}
	s := &Service{
		chain:      chain,
		results:    results,
		parser:     address.NewParser(),
		classifier: climate.New(nil),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ResolveByCoordinates validates coords, serves a cached result when one is
// live, and otherwise runs the tier chain. UTM and climate zone are filled
// in locally when the registry did not supply them, even on failure.
func (s *Service) ResolveByCoordinates(ctx context.Context, coords models.GeoCoordinates) models.CadastralResult {
	start := time.Now()
	key := cache.CoordinateKey(coords)

	if err := coords.Validate(); err != nil {
		result := models.Failure(models.SourceFallback, models.ErrorKindValidation, err.Error())
		result.ClimateZone = climate.NotAvailable
		s.finish(ctx, "coordinates", key, result, false, nil, start)
		return result
	}

	var attempts []orchestrator.Attempt
	result, hit := s.results.GetOrFetch(ctx, key, func(ctx context.Context) models.CadastralResult {
		localUTM := utm.ToUTM30N(&coords)
		outcome := s.chain.Resolve(ctx, coords)
		attempts = outcome.Attempts

		r := outcome.Result
		if r.UTMCoordinates == "" {
			r.UTMCoordinates = localUTM
		}
		if r.ClimateZone == "" {
			r.ClimateZone = s.classifier.ClassifyAt(r.Province, &coords)
		}
		return r
	})

	s.finish(ctx, "coordinates", key, result, hit, attempts, start)
	return result
}

// ResolveByAddress parses free text and queries the registry's street
// index. A failed lookup returns a FALLBACK result that still carries the
// climate zone of the parsed province.
//
// Deprecated: geocode the address and call ResolveByCoordinates instead.
// The street index misses many addresses the coordinate lookup resolves.
func (s *Service) ResolveByAddress(ctx context.Context, text string) models.CadastralResult {
	start := time.Now()
	key := cache.AddressKey(text)

	if strings.TrimSpace(text) == "" {
		result := models.Failure(models.SourceFallback, models.ErrorKindValidation, "address is empty")
		result.ClimateZone = climate.NotAvailable
		s.finish(ctx, "address", key, result, false, nil, start)
		return result
	}

	parsed := s.parser.Parse(text)
	var attempts []orchestrator.Attempt
	result, hit := s.results.GetOrFetch(ctx, key, func(ctx context.Context) models.CadastralResult {
		r, attempt := s.lookupStreet(ctx, parsed)
		attempts = append(attempts, attempt)
		return r
	})

	s.finish(ctx, "address", key, result, hit, attempts, start)
	return result
}

func (s *Service) lookupStreet(ctx context.Context, parsed models.ParsedAddress) (models.CadastralResult, orchestrator.Attempt) {
	attempt := orchestrator.Attempt{Tier: "street"}
	if s.streets == nil {
		attempt.Category = providers.ErrorInternal
		attempt.Message = "street lookup is not configured"
		attempt.Skipped = true
		return s.addressFallback(parsed, attempt.Message), attempt
	}

	start := time.Now()
	r, err := s.streets.ResolveAddress(ctx, parsed)
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Category = providers.GetCategory(err)
		attempt.Message = providers.Message(err)
		s.logger.WarnContext(ctx, "street lookup failed",
			"province", parsed.Province,
			"municipality", parsed.Municipality,
			"category", attempt.Category,
			"error", err,
		)
		return s.addressFallback(parsed, "address lookup failed: "+attempt.Message), attempt
	}

	if r.Province == "" {
		r.Province = parsed.Province
	}
	if r.ClimateZone == "" {
		r.ClimateZone = s.classifier.Classify(r.Province)
	}
	return r, attempt
}

func (s *Service) addressFallback(parsed models.ParsedAddress, message string) models.CadastralResult {
	r := models.Failure(models.SourceFallback, models.ErrorKindTerminal, message)
	r.Province = parsed.Province
	r.ClimateZone = s.classifier.Classify(parsed.Province)
	return r
}

// Candidates is a ranked proximity lookup and its nearest usable entry.
type Candidates struct {
	Candidates []models.Candidate `json:"candidates"`
	Best       *models.Candidate  `json:"best"`
}

// ResolveCandidates returns up to limit ranked parcels around coords.
// Unlike the Resolve operations it reports failures as errors: there is no
// single result to carry them. Failed lookups are not cached.
func (s *Service) ResolveCandidates(ctx context.Context, coords models.GeoCoordinates, limit int) (Candidates, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveResolveLatency("candidates", time.Since(start)) }()

	if s.candidates == nil {
		return Candidates{}, ErrCandidatesUnavailable
	}
	if err := coords.Validate(); err != nil {
		return Candidates{}, err
	}

	limit = proximity.ClampLimit(limit)
	key := cache.CandidatesKey(coords, limit)
	if s.candCache != nil {
		if cached, ok := s.candCache.Lookup(ctx, key); ok {
			return withBest(cached), nil
		}
	}

	list, err := s.candidates.Candidates(ctx, coords, limit)
	if err != nil {
		return Candidates{}, fmt.Errorf("candidate lookup: %w", err)
	}
	if s.candCache != nil {
		s.candCache.Put(ctx, key, list)
	}
	return withBest(list), nil
}

func withBest(list []models.Candidate) Candidates {
	out := Candidates{Candidates: list}
	if out.Candidates == nil {
		out.Candidates = []models.Candidate{}
	}
	if best, ok := proximity.Best(list); ok {
		out.Best = &best
	}
	return out
}

// Health is the engine's readiness report.
type Health struct {
	Status string                    `json:"status"`
	Tiers  []orchestrator.TierHealth `json:"tiers"`
	Cache  string                    `json:"cache"`
}

// Healthy reports whether every tier and the cache responded.
func (h Health) Healthy() bool {
	return h.Status == "ok"
}

// Health probes every tier and the cache backend.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Tiers: s.chain.Health(ctx), Cache: "ok"}
	if err := s.results.Ping(ctx); err != nil {
		h.Cache = err.Error()
		h.Status = "degraded"
	}
	for _, t := range h.Tiers {
		if !t.Healthy {
			h.Status = "degraded"
		}
	}
	return h
}

// Sweep removes expired and undecodable cache entries of every kind.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	removed, err := s.results.Sweep(ctx)
	if err != nil {
		return removed, fmt.Errorf("sweep cache: %w", err)
	}
	s.logger.InfoContext(ctx, "cache swept", "removed", removed)
	return removed, nil
}

// ClearCache removes every cached entry of every kind.
func (s *Service) ClearCache(ctx context.Context) (int, error) {
	removed, err := s.results.Clear(ctx)
	if err != nil {
		return removed, fmt.Errorf("clear cache: %w", err)
	}
	s.logger.InfoContext(ctx, "cache cleared", "removed", removed)
	return removed, nil
}

// ResetBreakers closes every tier circuit so the next request tries REST
// again without waiting out the cooldown.
func (s *Service) ResetBreakers(ctx context.Context) {
	s.chain.ResetBreakers()
	s.logger.InfoContext(ctx, "tier circuits reset")
}

func (s *Service) finish(
	ctx context.Context,
	operation, key string,
	result models.CadastralResult,
	hit bool,
	attempts []orchestrator.Attempt,
	start time.Time,
) {
	elapsed := time.Since(start)
	action := actionFor(result, hit)

	s.metrics.IncrementResolution(result.APISource.String(), string(action))
	s.metrics.ObserveResolveLatency(operation, elapsed)

	if action == audit.ActionFailed {
		s.logger.ErrorContext(ctx, "resolution failed",
			"operation", operation,
			"source", result.APISource.String(),
			"error", result.ErrorMessage(),
		)
	} else {
		s.logger.DebugContext(ctx, "resolution finished",
			"operation", operation,
			"action", action,
			"source", result.APISource.String(),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:     action,
		Operation:  operation,
		KeyHash:    key,
		Source:     result.APISource.String(),
		Reference:  result.CadastralReference,
		Error:      result.ErrorMessage(),
		DurationMs: elapsed.Milliseconds(),
	}
	for _, a := range attempts {
		if a.Category != "" {
			event.TierErrors = append(event.TierErrors, audit.TierError{
				Tier:     a.Tier,
				Category: string(a.Category),
				Message:  a.Message,
			})
		}
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit event not emitted", "action", action, "error", err)
	}
}

func actionFor(result models.CadastralResult, hit bool) audit.Action {
	switch {
	case result.ErrorKind == models.ErrorKindValidation:
		return audit.ActionRejected
	case hit:
		return audit.ActionCacheHit
	case result.Failed():
		return audit.ActionFailed
	default:
		return audit.ActionResolved
	}
}
