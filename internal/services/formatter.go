package services

import (
	domain "github.com/enviostack/shipping-api/internal/domain"
)

const defaultMaxPlans = 5

// formatPlans projects the top-K ranked plans into the caller-facing quote
// shape. Prices and delivery ranges are taken from the plans as computed;
// nothing is re-derived here.
func formatPlans(plans []domain.ShippingPlan, maxPlans int, rules map[string]domain.ShippingRule) []domain.PlanQuote {
	if maxPlans <= 0 {
		maxPlans = defaultMaxPlans
	}
	if len(plans) > maxPlans {
		plans = plans[:maxPlans]
	}

	quotes := make([]domain.PlanQuote, 0, len(plans))
	for _, plan := range plans {
		quotes = append(quotes, formatPlan(plan, rules))
	}
	return quotes
}

func formatPlan(plan domain.ShippingPlan, rules map[string]domain.ShippingRule) domain.PlanQuote {
	quote := domain.PlanQuote{
		ID:                  plan.ID,
		TotalPrice:          plan.TotalPrice,
		Complete:            plan.Complete,
		PackageCount:        len(plan.Packages),
		MultiPackage:        len(plan.Packages) > 1,
		MinDeliveryDays:     plan.MinDeliveryDays,
		MaxDeliveryDays:     plan.MaxDeliveryDays,
		UncoveredProductIDs: plan.UncoveredProductIDs,
	}

	zoneIndex := make(map[string]int)
	var freeCounts []int
	for _, pkg := range plan.Packages {
		key := pkg.RuleID + "/" + pkg.CarrierOptionID
		i, ok := zoneIndex[key]
		if !ok {
			rule := rules[pkg.RuleID]
			zone := domain.ZoneQuote{
				RuleID:          pkg.RuleID,
				RuleName:        rule.Name,
				MinDeliveryDays: rule.MinDeliveryDays,
				MaxDeliveryDays: rule.MaxDeliveryDays,
			}
			if option := carrierOption(rule, pkg.CarrierOptionID); option != nil {
				zone.CarrierName = option.Name
				zone.MinDeliveryDays = option.MinDeliveryDays
				zone.MaxDeliveryDays = option.MaxDeliveryDays
			}
			zoneIndex[key] = len(quote.Zones)
			i = len(quote.Zones)
			quote.Zones = append(quote.Zones, zone)
			freeCounts = append(freeCounts, 0)
		}

		zone := &quote.Zones[i]
		zone.Price += pkg.Price
		zone.PackageCount++
		if pkg.Free {
			freeCounts[i]++
			zone.FreeReason = pkg.FreeReason
		}
		zone.CoveredProductIDs = append(zone.CoveredProductIDs, pkg.ProductIDs()...)
	}

	for i := range quote.Zones {
		// A zone is free only when every one of its packages is.
		quote.Zones[i].Free = freeCounts[i] == quote.Zones[i].PackageCount
		if !quote.Zones[i].Free {
			quote.Zones[i].FreeReason = ""
		}
		quote.Zones[i].CoveredProductIDs = dedupeStrings(quote.Zones[i].CoveredProductIDs)
	}
	return quote
}

func carrierOption(rule domain.ShippingRule, optionID string) *domain.CarrierOption {
	if optionID == "" {
		return nil
	}
	for i := range rule.CarrierOptions {
		if rule.CarrierOptions[i].ID == optionID {
			return &rule.CarrierOptions[i]
		}
	}
	return nil
}
