package services

import (
	domain "github.com/enviostack/shipping-api/internal/domain"
)

// resolveValidRules filters each product's eligibility list down to the rules
// whose coverage matches the address. The eligibility order is preserved as
// preference order. A product left with no valid rule aborts resolution.
func resolveValidRules(
	items []domain.LineItem,
	eligibility domain.Eligibility,
	rules map[string]domain.ShippingRule,
	address domain.Address,
) (map[string][]string, error) {
	valid := make(map[string][]string, len(items))

	for _, productID := range distinctProductIDs(items) {
		var matched []string
		for _, ruleID := range eligibility[productID] {
			rule, ok := rules[ruleID]
			if !ok || !rule.Usable() {
				continue
			}
			if coverageMatches(rule, address) {
				matched = append(matched, ruleID)
			}
		}
		if len(matched) == 0 {
			return nil, &UnshippableProductError{ProductID: productID}
		}
		valid[productID] = matched
	}

	return valid, nil
}

// distinctProductIDs returns the cart's unique product ids in first-seen order.
func distinctProductIDs(items []domain.LineItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// mergeLinesByProduct collapses duplicate cart lines for the same product so
// downstream packing sees one line per product id.
func mergeLinesByProduct(items []domain.LineItem) []domain.LineItem {
	index := make(map[string]int, len(items))
	merged := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
