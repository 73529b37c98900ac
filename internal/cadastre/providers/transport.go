package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies outbound registry traffic.
const DefaultUserAgent = "catastro-resolver/1.0"

const maxResponseBytes = 4 << 20

// Transport is the HTTP plumbing shared by every tier: one client, one
// outbound rate limiter for the whole registry, and per-call deadlines.
type Transport struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) {
		if c != nil {
			t.client = c
		}
	}
}

// WithRateLimit caps outbound requests per second across all tiers.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) TransportOption {
	return func(t *Transport) {
		if rps <= 0 {
			t.limiter = nil
			return
		}
		t.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) {
		if ua != "" {
			t.userAgent = ua
		}
	}
}

// NewTransport builds a Transport. Without options it has no rate limit.
func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		client:    &http.Client{},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do sends req under timeout and returns the body of a 2xx response.
// Every failure is a *ProviderError attributed to tier.
func (t *Transport) Do(ctx context.Context, tier string, timeout time.Duration, req *http.Request) ([]byte, error) {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, contextError(parent, ctx, tier, "waiting for rate limiter")
			}
			return nil, NewProviderError(ErrorRateLimited, tier, "outbound rate limit", err)
		}
	}

	req = req.WithContext(ctx)
	req.Header.Set("User-Agent", t.userAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(parent, ctx, tier, "request")
		}
		return nil, NewProviderError(ErrorProviderOutage, tier, "request failed", err)
	}
	defer resp.Body.Close()

	if err := statusError(tier, resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(parent, ctx, tier, "reading response")
		}
		return nil, NewProviderError(ErrorProviderOutage, tier, "reading response", err)
	}
	return body, nil
}

// Probe checks that url answers at all. Any status below 500 counts as
// reachable; the registry answers bare GETs on its endpoints with 4xx.
func (t *Transport) Probe(ctx context.Context, tier, url string, timeout time.Duration) error {
	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return NewProviderError(ErrorInternal, tier, "build probe request", err)
	}
	req.Header.Set("User-Agent", t.userAgent)
	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return contextError(parent, ctx, tier, "probe")
		}
		return NewProviderError(ErrorProviderOutage, tier, "probe failed", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	if resp.StatusCode >= http.StatusInternalServerError {
		return NewProviderError(ErrorProviderOutage, tier, fmt.Sprintf("probe status %d", resp.StatusCode), nil)
	}
	return nil
}

func statusError(tier string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return NewProviderError(ErrorRateLimited, tier, "registry throttled the request", nil)
	case status >= http.StatusInternalServerError:
		return NewProviderError(ErrorProviderOutage, tier, fmt.Sprintf("registry status %d", status), nil)
	default:
		return NewProviderError(ErrorContractMismatch, tier, fmt.Sprintf("unexpected status %d", status), nil)
	}
}

// contextError classifies a context failure. Only the tier's own deadline
// is a timeout; anything the caller's context did first is a cancellation.
func contextError(parent, ctx context.Context, tier, stage string) error {
	if err := parent.Err(); err != nil {
		return NewProviderError(ErrorCancelled, tier, stage+" cancelled", err)
	}
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return NewProviderError(ErrorTimeout, tier, stage+" timed out", err)
	}
	return NewProviderError(ErrorCancelled, tier, stage+" cancelled", err)
}
