package services

import (
	"strings"

	domain "github.com/enviostack/shipping-api/internal/domain"
	"github.com/enviostack/shipping-api/internal/platform/textutil"
)

// coverageMatches reports whether the rule's coverage descriptor includes the
// address. An unrecognised descriptor never matches; the rule is excluded
// rather than widened to everything.
func coverageMatches(rule domain.ShippingRule, address domain.Address) bool {
	switch rule.Coverage.Kind {
	case domain.CoverageNationwide:
		return true
	case domain.CoverageByRegion:
		region := textutil.Fold(address.State)
		if region == "" {
			return false
		}
		for _, value := range rule.Coverage.Values {
			if textutil.Fold(value) == region {
				return true
			}
		}
		return false
	case domain.CoverageByPostalCode:
		code := strings.TrimSpace(address.PostalCode)
		if code == "" {
			return false
		}
		for _, value := range rule.Coverage.Values {
			if strings.TrimSpace(value) == code {
				return true
			}
		}
		return false
	default:
		return false
	}
}
