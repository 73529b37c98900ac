package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for cadastral resolution.
type Metrics struct {
	// Final results by apiSource and outcome (resolved, failed, rejected)
	Resolutions *prometheus.CounterVec

	// Registry tier attempts by tier and result
	TierAttempts *prometheus.CounterVec

	// Registry call latency by tier
	TierLatency *prometheus.HistogramVec

	// Cache lookups by result (hit, miss, expired, corrupt)
	CacheLookups *prometheus.CounterVec

	// Namespace clears triggered by storage quota
	CacheQuotaClears prometheus.Counter

	// Breaker state per tier: 0 closed, 1 open, 2 half-open
	BreakerState *prometheus.GaugeVec

	// Audit events dropped because the buffer was full or the sink failed
	AuditDropped *prometheus.CounterVec

	// End-to-end resolution latency by operation
	ResolveLatency *prometheus.HistogramVec
}

// New registers all metrics with the default Prometheus registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers all metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_resolutions_total",
			Help: "Total resolutions by result source and outcome",
		}, []string{"source", "outcome"}),

		TierAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_registry_tier_attempts_total",
			Help: "Registry tier attempts by tier and result",
		}, []string{"tier", "result"}), // result: "resolved", "empty", "error", "breaker_open"

		TierLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catastro_registry_tier_duration_seconds",
			Help:    "Duration of registry calls by tier",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"tier"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_cache_lookups_total",
			Help: "Result cache lookups by result",
		}, []string{"result"}),

		CacheQuotaClears: f.NewCounter(prometheus.CounterOpts{
			Name: "catastro_cache_quota_clears_total",
			Help: "Cache namespace clears caused by storage quota failures",
		}),

		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catastro_registry_breaker_state",
			Help: "Circuit breaker state per tier (0 closed, 1 open, 2 half-open)",
		}, []string{"tier"}),

		AuditDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catastro_audit_events_dropped_total",
			Help: "Audit events dropped by reason",
		}, []string{"reason"}),

		ResolveLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catastro_resolve_duration_seconds",
			Help:    "End-to-end resolution latency including cache",
			Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}
}

// IncrementResolution records a final result.
func (m *Metrics) IncrementResolution(source, outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(source, outcome).Inc()
	}
}

// IncrementTierAttempt records one registry tier attempt.
func (m *Metrics) IncrementTierAttempt(tier, result string) {
	if m != nil {
		m.TierAttempts.WithLabelValues(tier, result).Inc()
	}
}

// ObserveTierLatency records the duration of a registry call.
func (m *Metrics) ObserveTierLatency(tier string, d time.Duration) {
	if m != nil {
		m.TierLatency.WithLabelValues(tier).Observe(d.Seconds())
	}
}

// IncrementCacheLookup records a cache lookup result.
func (m *Metrics) IncrementCacheLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

// IncrementQuotaClear records a namespace clear after a quota failure.
func (m *Metrics) IncrementQuotaClear() {
	if m != nil {
		m.CacheQuotaClears.Inc()
	}
}

// SetBreakerState records the breaker state for a tier.
func (m *Metrics) SetBreakerState(tier string, state int) {
	if m != nil {
		m.BreakerState.WithLabelValues(tier).Set(float64(state))
	}
}

// IncrementAuditDropped records a dropped audit event.
func (m *Metrics) IncrementAuditDropped(reason string) {
	if m != nil {
		m.AuditDropped.WithLabelValues(reason).Inc()
	}
}

// ObserveResolveLatency records the end-to-end duration of an operation.
func (m *Metrics) ObserveResolveLatency(operation string, d time.Duration) {
	if m != nil {
		m.ResolveLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
