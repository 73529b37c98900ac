package testutil

import (
	"context"
	"net/http"
	"time"

	"catastro/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context, as the request id
// middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

// FixedClock returns a context whose request time is now.
func FixedClock(now time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), now)
}
