package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidQuoteInput signals bad request data such as missing items or a blank address.
	ErrInvalidQuoteInput = errors.New("shipping resolver: invalid input")
	// ErrUnshippableProduct is the kind behind UnshippableProductError, usable with errors.Is.
	ErrUnshippableProduct = errors.New("shipping resolver: product has no valid shipping rule")
	// ErrNoShippingAvailable is returned when no candidate plan could be built for the cart.
	ErrNoShippingAvailable = errors.New("shipping resolver: no shipping available")
	// ErrIncompleteCoverage is the kind behind IncompleteCoverageError, usable with errors.Is.
	ErrIncompleteCoverage = errors.New("shipping resolver: no rule subset covers the cart")
	// ErrPackagingInfeasible is the kind behind PackagingInfeasibleError, usable with errors.Is.
	ErrPackagingInfeasible = errors.New("shipping resolver: packing infeasible")
)

// UnshippableProductError identifies a product that no rule can ship to the
// requested address. Fatal for the resolution call.
type UnshippableProductError struct {
	ProductID string
}

func (e *UnshippableProductError) Error() string {
	return fmt.Sprintf("shipping resolver: product %s has no valid shipping rule", e.ProductID)
}

func (e *UnshippableProductError) Unwrap() error {
	return ErrUnshippableProduct
}

// IncompleteCoverageError reports the products left uncovered after the
// multi-zone search exhausted subsets up to its size limit.
type IncompleteCoverageError struct {
	ProductIDs []string
}

func (e *IncompleteCoverageError) Error() string {
	return fmt.Sprintf("shipping resolver: no rule subset covers products [%s]", strings.Join(e.ProductIDs, ", "))
}

func (e *IncompleteCoverageError) Unwrap() error {
	return ErrIncompleteCoverage
}

// PackagingInfeasibleError reports a rule group whose items could not all be
// placed into parcels. With the single-oversized-item allowance this should
// not occur for well-formed input.
type PackagingInfeasibleError struct {
	RuleID string
}

func (e *PackagingInfeasibleError) Error() string {
	return fmt.Sprintf("shipping resolver: packing infeasible for rule %s", e.RuleID)
}

func (e *PackagingInfeasibleError) Unwrap() error {
	return ErrPackagingInfeasible
}
