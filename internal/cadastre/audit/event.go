// Package audit records one operations event per resolution. Events are
// emitted asynchronously and never block or fail a resolution.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action names what happened to a resolution request.
type Action string

const (
	ActionResolved Action = "cadastre_resolved"
	ActionCacheHit Action = "cadastre_cache_hit"
	ActionFailed   Action = "cadastre_failed"
	ActionRejected Action = "cadastre_rejected"
)

// TierError is one tier's failure on the way to the outcome.
type TierError struct {
	Tier     string `json:"tier"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Event describes a finished resolution. KeyHash is the cache key, so
// events can be joined to cache entries without storing the raw query.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Timestamp  time.Time   `json:"timestamp"`
	Action     Action      `json:"action"`
	Operation  string      `json:"operation"`
	KeyHash    string      `json:"keyHash"`
	Source     string      `json:"source,omitempty"`
	Reference  string      `json:"reference,omitempty"`
	Error      string      `json:"error,omitempty"`
	TierErrors []TierError `json:"tierErrors,omitempty"`
	DurationMs int64       `json:"durationMs"`
	RequestID  string      `json:"requestId,omitempty"`
	Origin     string      `json:"origin,omitempty"`
}
