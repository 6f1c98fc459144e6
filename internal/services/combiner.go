package services

import (
	"context"
	"sort"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// maxZoneSubsetSize bounds the multi-zone search; subsets beyond three zones
// are never considered.
const maxZoneSubsetSize = 3

// multiZonePlans searches 1-zone, then 2-zone, then 3-zone subsets of the
// candidate rules whose union of compatible products covers the whole cart,
// stopping at the first tier with any hit. One plan is produced per covering
// subset. When no subset covers the cart, the leftover products are reported
// as IncompleteCoverage; no fallback plan is fabricated.
func multiZonePlans(
	ctx context.Context,
	items []domain.LineItem,
	validRules map[string][]string,
	rules map[string]domain.ShippingRule,
) ([]domain.ShippingPlan, error) {
	products := distinctProductIDs(items)
	if len(products) == 0 {
		return nil, nil
	}

	candidates := candidateRuleIDs(products, validRules)

	for size := 1; size <= maxZoneSubsetSize; size++ {
		var plans []domain.ShippingPlan
		for _, subset := range ruleSubsets(candidates, size) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !subsetCovers(subset, products, validRules) {
				continue
			}
			assignment := assignToZones(subset, products, validRules, rules)
			plans = append(plans, planFromAssignment(items, assignment, rules))
		}
		if len(plans) > 0 {
			return plans, nil
		}
	}

	return nil, &IncompleteCoverageError{ProductIDs: uncoverableProducts(candidates, products, validRules)}
}

// candidateRuleIDs collects every rule referenced by at least one product, in
// first-seen order across the cart.
func candidateRuleIDs(products []string, validRules map[string][]string) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, product := range products {
		for _, ruleID := range validRules[product] {
			if _, ok := seen[ruleID]; ok {
				continue
			}
			seen[ruleID] = struct{}{}
			ids = append(ids, ruleID)
		}
	}
	return ids
}

// ruleSubsets enumerates unordered subsets of the given size, preserving the
// candidate order inside each subset.
func ruleSubsets(candidates []string, size int) [][]string {
	if size <= 0 || size > len(candidates) {
		return nil
	}

	var subsets [][]string
	subset := make([]string, size)
	var walk func(start, depth int)
	walk = func(start, depth int) {
		if depth == size {
			picked := make([]string, size)
			copy(picked, subset)
			subsets = append(subsets, picked)
			return
		}
		for i := start; i <= len(candidates)-(size-depth); i++ {
			subset[depth] = candidates[i]
			walk(i+1, depth+1)
		}
	}
	walk(0, 0)
	return subsets
}

// subsetCovers reports whether every product is compatible with at least one
// rule in the subset.
func subsetCovers(subset, products []string, validRules map[string][]string) bool {
	for _, product := range products {
		covered := false
		for _, ruleID := range subset {
			if containsString(validRules[product], ruleID) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

// assignToZones maps each product to exactly one rule of the subset. A
// product compatible with a single subset rule goes there; otherwise the
// subset's zone-preference order decides, more specific coverage first. No
// product is ever assigned to two zones of the same plan.
func assignToZones(
	subset, products []string,
	validRules map[string][]string,
	rules map[string]domain.ShippingRule,
) map[string]string {
	preferred := make([]string, len(subset))
	copy(preferred, subset)
	sort.SliceStable(preferred, func(i, j int) bool {
		return rules[preferred[i]].Coverage.Specificity() > rules[preferred[j]].Coverage.Specificity()
	})

	assignment := make(map[string]string, len(products))
	for _, product := range products {
		var compatible []string
		for _, ruleID := range subset {
			if containsString(validRules[product], ruleID) {
				compatible = append(compatible, ruleID)
			}
		}
		switch {
		case len(compatible) == 1:
			assignment[product] = compatible[0]
		case len(compatible) > 1:
			for _, ruleID := range preferred {
				if containsString(compatible, ruleID) {
					assignment[product] = ruleID
					break
				}
			}
		}
	}
	return assignment
}

// uncoverableProducts returns the products left out by the best-coverage
// subset of at most maxZoneSubsetSize rules, chosen greedily.
func uncoverableProducts(candidates, products []string, validRules map[string][]string) []string {
	remaining := make(map[string]struct{}, len(products))
	for _, product := range products {
		remaining[product] = struct{}{}
	}

	for zone := 0; zone < maxZoneSubsetSize && len(remaining) > 0; zone++ {
		best := ""
		bestCovered := 0
		for _, ruleID := range candidates {
			covered := 0
			for product := range remaining {
				if containsString(validRules[product], ruleID) {
					covered++
				}
			}
			if covered > bestCovered {
				best = ruleID
				bestCovered = covered
			}
		}
		if best == "" {
			break
		}
		for product := range remaining {
			if containsString(validRules[product], best) {
				delete(remaining, product)
			}
		}
	}

	var leftover []string
	for _, product := range products {
		if _, ok := remaining[product]; ok {
			leftover = append(leftover, product)
		}
	}
	return leftover
}
