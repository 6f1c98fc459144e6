package services

import (
	domain "github.com/enviostack/shipping-api/internal/domain"
)

// pricePackage computes the cost of one parcel under a rule and an optional
// carrier option, returning a priced copy. Order of precedence: the rule's
// unconditional free flag, then the minimum-subtotal threshold, then base
// price plus extra-item and extra-weight surcharges. Already-free parcels
// reprice to the same zero.
func pricePackage(pkg domain.Package, rule domain.ShippingRule, option *domain.CarrierOption) domain.Package {
	priced := pkg
	priced.RuleID = rule.ID
	if option != nil {
		priced.CarrierOptionID = option.ID
	}

	if rule.FreeShipping {
		priced.Price = 0
		priced.Free = true
		priced.FreeReason = domain.FreeReasonRuleFlag
		return priced
	}

	if rule.FreeOverSubtotal > 0 && pkg.Subtotal() >= rule.FreeOverSubtotal {
		priced.Price = 0
		priced.Free = true
		priced.FreeReason = domain.FreeReasonMinimumSubtotal
		return priced
	}

	base := rule.BasePrice
	if option != nil {
		base = option.BasePrice
	}

	perExtraKg := rule.PerExtraKgSurcharge
	includedWeight := rule.IncludedWeightGrams
	if option != nil {
		perExtraKg = option.PerExtraKgSurcharge
		includedWeight = option.IncludedWeightGrams
	}

	price := base
	if extra := pkg.ItemCount() - 1; extra > 0 && rule.PerExtraItemSurcharge > 0 {
		price += int64(extra) * rule.PerExtraItemSurcharge
	}
	if perExtraKg > 0 {
		if over := pkg.WeightGrams - includedWeight; over > 0 {
			price += startedKilograms(over) * perExtraKg
		}
	}

	priced.Price = price
	priced.Free = false
	priced.FreeReason = ""
	return priced
}

// startedKilograms converts an overweight in grams to billable kilograms,
// charging every started kilogram.
func startedKilograms(grams int64) int64 {
	if grams <= 0 {
		return 0
	}
	return (grams + 999) / 1000
}
