package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return them,
// usually wrapped, and callers test with errors.Is.
var (
	// ErrNotFound means the key or resource does not exist, or has expired.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means a backend cannot serve the request right now.
	ErrUnavailable = errors.New("unavailable")
)
