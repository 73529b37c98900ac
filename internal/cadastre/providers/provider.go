package providers

import (
	"context"

	"catastro/internal/cadastre/models"
)

// Protocol identifies the wire protocol a tier speaks
type Protocol string

const (
	ProtocolREST Protocol = "rest"
	ProtocolSOAP Protocol = "soap"
)

// Resolver is the contract every registry tier implements: one coordinate
// lookup producing a result tagged with the tier's source.
type Resolver interface {
	// ID names the tier in logs, metrics and breaker state
	ID() string

	// Protocol reports the wire protocol
	Protocol() Protocol

	// Resolve returns a result with a non-empty reference, or a
	// *ProviderError. It never returns both.
	Resolve(ctx context.Context, coords models.GeoCoordinates) (models.CadastralResult, error)

	// Health checks that the tier's endpoint is reachable
	Health(ctx context.Context) error
}
