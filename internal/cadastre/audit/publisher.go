package audit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"catastro/internal/cadastre/metrics"
	"catastro/pkg/requestcontext"
)

// Publisher stamps events and hands them to a Store, either inline or
// through a bounded buffer drained by a background goroutine.
type Publisher struct {
	store   Store
	sampler *Sampler
	logger  *slog.Logger
	metrics *metrics.Metrics

	buffer    chan Event
	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events that do not fit in the
// buffer are dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.buffer = make(chan Event, size)
		}
	}
}

// WithSampler sets the sampler consulted before an event is accepted.
func WithSampler(s *Sampler) Option {
	return func(p *Publisher) {
		if s != nil {
			p.sampler = s
		}
	}
}

// WithLogger sets the logger for store failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics counts dropped events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:   store,
		sampler: NewSampler(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit fills in id, timestamp, request id and origin, then stores the event.
// In async mode a full buffer drops the event and Emit still returns nil.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if !p.sampler.Keep(event.Action) {
		p.metrics.IncrementAuditDropped("sampled")
		return nil
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Origin == "" {
		event.Origin = requestcontext.Origin(ctx)
	}

	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.metrics.IncrementAuditDropped("closed")
		return nil
	}
	select {
	case p.buffer <- event:
	default:
		p.metrics.IncrementAuditDropped("buffer_full")
		p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", event.Action)
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		// Detached from the emitting request, which may already be done.
		if err := p.store.Append(context.Background(), event); err != nil {
			p.metrics.IncrementAuditDropped("store_error")
			p.logger.Warn("audit event not stored", "action", event.Action, "error", err)
		}
	}
}

// Close stops accepting events and waits until buffered events are stored.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.buffer == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.buffer)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
