package services

import (
	"sort"
	"strings"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// planFromAssignment groups the cart by assigned rule, packs and prices each
// group under its cheapest carrier option, and assembles one plan. A group
// whose packing fails is dropped and its products surface as uncovered; the
// plan is then marked partial rather than silently complete.
func planFromAssignment(
	items []domain.LineItem,
	assignment map[string]string,
	rules map[string]domain.ShippingRule,
) domain.ShippingPlan {
	groups := make(map[string][]domain.LineItem)
	var groupOrder []string
	var uncovered []string

	for _, line := range mergeLinesByProduct(items) {
		ruleID, ok := assignment[line.ProductID]
		if !ok {
			uncovered = append(uncovered, line.ProductID)
			continue
		}
		if _, seen := groups[ruleID]; !seen {
			groupOrder = append(groupOrder, ruleID)
		}
		groups[ruleID] = append(groups[ruleID], line)
	}

	plan := domain.ShippingPlan{
		Assignment: make(map[string]string, len(assignment)),
	}

	minDays, maxDays := 0, 0
	for _, ruleID := range groupOrder {
		rule, ok := rules[ruleID]
		if !ok {
			uncovered = append(uncovered, productIDsOf(groups[ruleID])...)
			continue
		}

		priced, ok := priceGroup(rule, groups[ruleID])
		if !ok {
			uncovered = append(uncovered, productIDsOf(groups[ruleID])...)
			continue
		}

		plan.Packages = append(plan.Packages, priced.packages...)
		plan.TotalPrice += priced.total
		for _, line := range groups[ruleID] {
			plan.Assignment[line.ProductID] = ruleID
		}
		if minDays == 0 || (priced.minDays > 0 && priced.minDays < minDays) {
			minDays = priced.minDays
		}
		if priced.maxDays > maxDays {
			maxDays = priced.maxDays
		}
	}

	plan.MinDeliveryDays = minDays
	plan.MaxDeliveryDays = maxDays
	plan.UncoveredProductIDs = dedupeStrings(uncovered)
	plan.Complete = len(plan.UncoveredProductIDs) == 0 && len(plan.Packages) > 0
	return plan
}

type pricedGroup struct {
	packages []domain.Package
	total    int64
	minDays  int
	maxDays  int
}

// priceGroup packs the group under each carrier option (or the bare rule when
// it has none) and keeps the cheapest outcome. Option order breaks ties.
func priceGroup(rule domain.ShippingRule, lines []domain.LineItem) (pricedGroup, bool) {
	options := make([]*domain.CarrierOption, 0, len(rule.CarrierOptions))
	if len(rule.CarrierOptions) == 0 {
		options = append(options, nil)
	} else {
		for i := range rule.CarrierOptions {
			options = append(options, &rule.CarrierOptions[i])
		}
	}

	var best pricedGroup
	found := false
	for _, option := range options {
		packages, err := packForRule(rule.ID, lines, rule.PackagingFor(option))
		if err != nil || len(packages) == 0 {
			continue
		}

		candidate := pricedGroup{minDays: rule.MinDeliveryDays, maxDays: rule.MaxDeliveryDays}
		if option != nil {
			candidate.minDays = option.MinDeliveryDays
			candidate.maxDays = option.MaxDeliveryDays
		}
		for _, pkg := range packages {
			priced := pricePackage(pkg, rule, option)
			candidate.packages = append(candidate.packages, priced)
			candidate.total += priced.Price
		}

		if !found || candidate.total < best.total {
			best = candidate
			found = true
		}
	}

	return best, found
}

func productIDsOf(lines []domain.LineItem) []string {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}
	return result
}

// assignmentFingerprint canonicalises a product→rule mapping for deduping.
func assignmentFingerprint(assignment map[string]string) string {
	if len(assignment) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(assignment))
	for product, ruleID := range assignment {
		pairs = append(pairs, product+"="+ruleID)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, "|")
}
