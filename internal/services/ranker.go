package services

import (
	"sort"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

// rankPlans orders candidate plans: complete coverage first, then ascending
// total price, then fewer packages, stable on construction order. Plans with
// an identical product→rule mapping collapse to the cheapest one.
func rankPlans(plans []domain.ShippingPlan) []domain.ShippingPlan {
	if len(plans) == 0 {
		return nil
	}

	ranked := make([]domain.ShippingPlan, len(plans))
	copy(ranked, plans)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Complete != ranked[j].Complete {
			return ranked[i].Complete
		}
		if ranked[i].TotalPrice != ranked[j].TotalPrice {
			return ranked[i].TotalPrice < ranked[j].TotalPrice
		}
		return len(ranked[i].Packages) < len(ranked[j].Packages)
	})

	seen := make(map[string]struct{}, len(ranked))
	deduped := ranked[:0]
	for _, plan := range ranked {
		key := assignmentFingerprint(plan.Assignment)
		if key != "" {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
		}
		deduped = append(deduped, plan)
	}
	return deduped
}
