// Package contract holds reusable test suites every registry tier must
// pass: successful lookups carry a reference and the tier's source, and
// failures follow the error taxonomy.
package contract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"catastro/internal/cadastre/models"
	"catastro/internal/cadastre/providers"
)

// ResolveTest defines a successful lookup case
type ResolveTest struct {
	Name         string
	Resolver     providers.Resolver
	Coords       models.GeoCoordinates
	ValidateFunc func(result models.CadastralResult) error
}

// ContractSuite is a collection of contract tests for a tier
type ContractSuite struct {
	TierID string
	Source models.Source
	Tests  []ResolveTest
}

// Run executes all contract tests in the suite
func (s *ContractSuite) Run(t *testing.T) {
	for _, test := range s.Tests {
		t.Run(test.Name, func(t *testing.T) {
			result, err := test.Resolver.Resolve(context.Background(), test.Coords)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}

			if test.Resolver.ID() != s.TierID {
				t.Errorf("expected tier %s, got %s", s.TierID, test.Resolver.ID())
			}
			if result.APISource != s.Source {
				t.Errorf("expected source %s, got %s", s.Source, result.APISource)
			}
			if !result.HasReference() {
				t.Error("successful result has no cadastral reference")
			}
			if result.Failed() {
				t.Errorf("successful result carries error %q", result.ErrorMessage())
			}

			if test.ValidateFunc != nil {
				if err := test.ValidateFunc(result); err != nil {
					t.Errorf("custom validation failed: %v", err)
				}
			}
		})
	}
}

// ErrorContractTest validates that tier errors follow the taxonomy
type ErrorContractTest struct {
	Name            string
	Resolver        providers.Resolver
	Coords          models.GeoCoordinates
	ExpectedError   providers.ErrorCategory
	ExpectedRetry   bool
	ExpectedMessage string // substring of the readable message, optional
}

// Run executes an error contract test
func (ect *ErrorContractTest) Run(t *testing.T) {
	result, err := ect.Resolver.Resolve(context.Background(), ect.Coords)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if result.HasReference() {
		t.Errorf("failed lookup returned reference %q", result.CadastralReference)
	}

	var pe *providers.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *providers.ProviderError, got %T", err)
	}
	if pe.Tier != ect.Resolver.ID() {
		t.Errorf("expected error attributed to %s, got %s", ect.Resolver.ID(), pe.Tier)
	}

	category := providers.GetCategory(err)
	if category != ect.ExpectedError {
		t.Errorf("expected error category %s, got %s", ect.ExpectedError, category)
	}

	isRetryable := providers.IsRetryable(err)
	if isRetryable != ect.ExpectedRetry {
		t.Errorf("expected retryable=%v, got %v", ect.ExpectedRetry, isRetryable)
	}

	if ect.ExpectedMessage != "" && !strings.Contains(pe.Message, ect.ExpectedMessage) {
		t.Errorf("expected message containing %q, got %q", ect.ExpectedMessage, pe.Message)
	}
}
