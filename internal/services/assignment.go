package services

import (
	"context"
	"sort"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// Search strategies accepted by the resolver.
const (
	StrategyExhaustive = "exhaustive"
	StrategyGreedy     = "greedy"
	StrategyAuto       = "auto"
)

// exhaustivePlans enumerates every product→rule assignment, builds and prices
// a plan per assignment, and returns the lot. Exponential in the number of
// products with more than one valid rule; the resolver bounds when this
// strategy runs. Cancellation is checked between assignments, never inside a
// single plan's pricing.
func exhaustivePlans(
	ctx context.Context,
	items []domain.LineItem,
	validRules map[string][]string,
	rules map[string]domain.ShippingRule,
) ([]domain.ShippingPlan, error) {
	products := distinctProductIDs(items)
	if len(products) == 0 {
		return nil, nil
	}

	var plans []domain.ShippingPlan
	assignment := make(map[string]string, len(products))

	var walk func(depth int) error
	walk = func(depth int) error {
		if depth == len(products) {
			if err := ctx.Err(); err != nil {
				return err
			}
			plan := planFromAssignment(items, assignment, rules)
			plans = append(plans, plan)
			return nil
		}
		product := products[depth]
		for _, ruleID := range validRules[product] {
			assignment[product] = ruleID
			if err := walk(depth + 1); err != nil {
				return err
			}
		}
		delete(assignment, product)
		return nil
	}

	if err := walk(0); err != nil {
		return nil, err
	}
	return plans, nil
}

// estimatedCombinations multiplies the per-product choice counts, saturating
// at limit so the resolver's auto policy can compare without overflow.
func estimatedCombinations(validRules map[string][]string, limit int64) int64 {
	total := int64(1)
	for _, ruleIDs := range validRules {
		n := int64(len(ruleIDs))
		if n <= 1 {
			continue
		}
		total *= n
		if total >= limit {
			return limit
		}
	}
	return total
}

// multiChoiceProducts counts products with more than one valid rule.
func multiChoiceProducts(validRules map[string][]string) int {
	count := 0
	for _, ruleIDs := range validRules {
		if len(ruleIDs) > 1 {
			count++
		}
	}
	return count
}

// greedyPlan builds exactly one plan: lines heaviest first, each product
// joining an already-open rule group when one is compatible, otherwise
// opening a group under its best-scored rule. More specific coverage
// outranks broader coverage; cheaper base price breaks ties. O(n log n) and
// deterministic, trading optimality for speed.
func greedyPlan(
	items []domain.LineItem,
	validRules map[string][]string,
	rules map[string]domain.ShippingRule,
) (domain.ShippingPlan, bool) {
	lines := mergeLinesByProduct(items)
	if len(lines) == 0 {
		return domain.ShippingPlan{}, false
	}

	sorted := make([]domain.LineItem, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		wi, wj := sorted[i].LineWeightGrams(), sorted[j].LineWeightGrams()
		if wi != wj {
			return wi > wj
		}
		return sorted[i].ProductID < sorted[j].ProductID
	})

	assignment := make(map[string]string, len(sorted))
	var groupOrder []string
	open := make(map[string]struct{})

	for _, line := range sorted {
		candidates := validRules[line.ProductID]
		if len(candidates) == 0 {
			// Left out of the assignment; the plan builder reports it as
			// uncovered and marks the plan partial.
			continue
		}

		chosen := ""
		for _, ruleID := range groupOrder {
			if containsString(candidates, ruleID) {
				chosen = ruleID
				break
			}
		}
		if chosen == "" {
			chosen = bestRuleFor(candidates, rules)
		}
		if chosen == "" {
			continue
		}

		assignment[line.ProductID] = chosen
		if _, ok := open[chosen]; !ok {
			open[chosen] = struct{}{}
			groupOrder = append(groupOrder, chosen)
		}
	}

	if len(assignment) == 0 {
		return domain.ShippingPlan{}, false
	}
	return planFromAssignment(items, assignment, rules), true
}

// bestRuleFor scores candidate rules: coverage specificity first, then lower
// base cost, then eligibility order.
func bestRuleFor(candidates []string, rules map[string]domain.ShippingRule) string {
	best := ""
	bestSpecificity := -1
	var bestCost int64
	for _, ruleID := range candidates {
		rule, ok := rules[ruleID]
		if !ok {
			continue
		}
		specificity := rule.Coverage.Specificity()
		cost := cheapestBase(rule)
		if best == "" || specificity > bestSpecificity || (specificity == bestSpecificity && cost < bestCost) {
			best = ruleID
			bestSpecificity = specificity
			bestCost = cost
		}
	}
	return best
}

// cheapestBase returns the lowest base price obtainable under the rule.
func cheapestBase(rule domain.ShippingRule) int64 {
	if len(rule.CarrierOptions) == 0 {
		return rule.BasePrice
	}
	best := rule.CarrierOptions[0].BasePrice
	for _, option := range rule.CarrierOptions[1:] {
		if option.BasePrice < best {
			best = option.BasePrice
		}
	}
	return best
}

func containsString(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}
