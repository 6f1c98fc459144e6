package repositories

import (
	"context"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// RuleRepository exposes read access to the shipping rule catalogue.
type RuleRepository interface {
	// ListActive returns every active rule. A partial fetch is an error;
	// resolution never runs against an incomplete rule set.
	ListActive(ctx context.Context) ([]domain.ShippingRule, error)
	FindByID(ctx context.Context, ruleID string) (domain.ShippingRule, error)
}

// EligibilityRepository maps product identifiers to their eligible rule IDs.
type EligibilityRepository interface {
	// ForProducts returns the eligibility entries for the requested products.
	// Products without a stored entry are absent from the result.
	ForProducts(ctx context.Context, productIDs []string) (domain.Eligibility, error)
}

// HealthRepository aggregates dependency probes for readiness endpoints.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}
