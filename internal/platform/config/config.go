package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catastro/internal/cadastre/audit"
	"catastro/internal/cadastre/cache"
	"catastro/internal/cadastre/providers/proximity"
	"catastro/internal/cadastre/providers/rest"
	"catastro/internal/cadastre/providers/soap"
)

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the process configuration shared by the server and the CLI.
type Config struct {
	Addr        string
	LogLevel    string
	DefaultCity string

	Registry Registry
	Cache    Cache
	Breaker  Breaker
	Redis    Redis
	Postgres Postgres
	Kafka    Kafka
	Audit    Audit

	// SweepInterval schedules expired-entry sweeps in the server; 0 disables.
	SweepInterval time.Duration
}

// Registry holds the registry endpoints and per-tier timeouts.
type Registry struct {
	RESTURL          string
	SOAPURL          string
	ProximityURL     string
	AddressURL       string
	RESTTimeout      time.Duration
	SOAPTimeout      time.Duration
	ProximityTimeout time.Duration
	// RateLimit is the outbound request rate shared by every tier.
	RateLimit float64
}

type Cache struct {
	Backend    string
	TTL        time.Duration
	ErrorTTL   time.Duration
	MaxEntries int
}

type Breaker struct {
	Threshold int
	Cooldown  time.Duration
}

// Redis is only read when the cache backend is redis.
type Redis struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres is only read when the cache backend is postgres.
type Postgres struct {
	URL      string
	MaxConns int32
}

// Kafka is optional; audit events go to memory only when Brokers is empty.
type Kafka struct {
	Brokers []string
	Topic   string
}

type Audit struct {
	// CacheHitSampleRate is the fraction of cache-hit events kept.
	CacheHitSampleRate float64
	BufferSize         int
}

// Enabled reports whether Kafka brokers are configured.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Config from environment variables. Unset keys take their
// defaults; malformed values are reported together.
func FromEnv() (Config, error) {
	e := &env{}
	cfg := Config{
		Addr:        e.str("CATASTRO_ADDR", ":8080"),
		LogLevel:    e.str("LOG_LEVEL", "info"),
		DefaultCity: e.str("CATASTRO_DEFAULT_CITY", "MADRID"),
		Registry: Registry{
			RESTURL:          e.str("CATASTRO_REST_URL", rest.DefaultURL),
			SOAPURL:          e.str("CATASTRO_SOAP_URL", soap.DefaultURL),
			ProximityURL:     e.str("CATASTRO_PROXIMITY_URL", proximity.DefaultURL),
			AddressURL:       e.str("CATASTRO_ADDRESS_URL", rest.DefaultAddressURL),
			RESTTimeout:      e.duration("CATASTRO_REST_TIMEOUT", rest.DefaultTimeout),
			SOAPTimeout:      e.duration("CATASTRO_SOAP_TIMEOUT", soap.DefaultTimeout),
			ProximityTimeout: e.duration("CATASTRO_PROXIMITY_TIMEOUT", proximity.DefaultTimeout),
			RateLimit:        e.float("CATASTRO_RATE_LIMIT", 5),
		},
		Cache: Cache{
			Backend:    strings.ToLower(e.str("CATASTRO_CACHE_BACKEND", BackendMemory)),
			TTL:        e.duration("CATASTRO_CACHE_TTL", cache.DefaultTTL),
			ErrorTTL:   e.duration("CATASTRO_ERROR_CACHE_TTL", cache.DefaultErrorTTL),
			MaxEntries: e.int("CATASTRO_CACHE_MAX_ENTRIES", 10000),
		},
		Breaker: Breaker{
			Threshold: e.int("CATASTRO_BREAKER_THRESHOLD", 5),
			Cooldown:  e.duration("CATASTRO_BREAKER_COOLDOWN", 30*time.Second),
		},
		Redis: Redis{
			URL:          e.str("REDIS_URL", ""),
			PoolSize:     e.int("REDIS_POOL_SIZE", 10),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			URL:      e.str("DATABASE_URL", ""),
			MaxConns: int32(e.int("DATABASE_MAX_CONNS", 10)),
		},
		Kafka: Kafka{
			Brokers: e.list("KAFKA_BROKERS"),
			Topic:   e.str("KAFKA_AUDIT_TOPIC", audit.DefaultTopic),
		},
		Audit: Audit{
			CacheHitSampleRate: e.float("CATASTRO_AUDIT_SAMPLE_RATE", 0.1),
			BufferSize:         e.int("CATASTRO_AUDIT_BUFFER", 1024),
		},
		SweepInterval: e.duration("CATASTRO_SWEEP_INTERVAL", time.Hour),
	}
	if err := errors.Join(e.errs...); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	positive := map[string]time.Duration{
		"CATASTRO_REST_TIMEOUT":      c.Registry.RESTTimeout,
		"CATASTRO_SOAP_TIMEOUT":      c.Registry.SOAPTimeout,
		"CATASTRO_PROXIMITY_TIMEOUT": c.Registry.ProximityTimeout,
		"CATASTRO_CACHE_TTL":         c.Cache.TTL,
		"CATASTRO_ERROR_CACHE_TTL":   c.Cache.ErrorTTL,
		"CATASTRO_BREAKER_COOLDOWN":  c.Breaker.Cooldown,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}
	if c.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("CATASTRO_SWEEP_INTERVAL must not be negative"))
	}
	if c.Registry.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("CATASTRO_RATE_LIMIT must be positive"))
	}
	if c.Breaker.Threshold < 1 {
		errs = append(errs, fmt.Errorf("CATASTRO_BREAKER_THRESHOLD must be at least 1"))
	}
	if c.Audit.CacheHitSampleRate < 0 || c.Audit.CacheHitSampleRate > 1 {
		errs = append(errs, fmt.Errorf("CATASTRO_AUDIT_SAMPLE_RATE must be within [0,1]"))
	}
	switch c.Cache.Backend {
	case BackendMemory:
		if c.Cache.MaxEntries < 1 {
			errs = append(errs, fmt.Errorf("CATASTRO_CACHE_MAX_ENTRIES must be at least 1"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, fmt.Errorf("REDIS_URL is required for the redis cache backend"))
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the postgres cache backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

type env struct {
	errs []error
}

func (e *env) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *env) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *env) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *env) float(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (e *env) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
