package services

import (
	"testing"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

func TestRankPlansOrdersByCompletenessThenPrice(t *testing.T) {
	plans := []domain.ShippingPlan{
		{ID: "partial-cheap", TotalPrice: 10, Complete: false, Assignment: map[string]string{"a": "r1"}},
		{ID: "complete-pricey", TotalPrice: 500, Complete: true, Assignment: map[string]string{"a": "r2"}},
		{ID: "complete-cheap", TotalPrice: 100, Complete: true, Assignment: map[string]string{"a": "r3"}},
	}

	ranked := rankPlans(plans)
	if len(ranked) != 3 {
		t.Fatalf("ranked = %d plans, want 3", len(ranked))
	}
	if ranked[0].ID != "complete-cheap" || ranked[1].ID != "complete-pricey" || ranked[2].ID != "partial-cheap" {
		t.Fatalf("order = %s, %s, %s", ranked[0].ID, ranked[1].ID, ranked[2].ID)
	}

	for i := 0; i < len(ranked)-1; i++ {
		a, b := ranked[i], ranked[i+1]
		if !a.Complete && b.Complete {
			t.Fatalf("partial plan ranked above complete plan")
		}
		if a.Complete == b.Complete && a.TotalPrice > b.TotalPrice {
			t.Fatalf("pricier plan ranked above cheaper plan in same tier")
		}
	}
}

func TestRankPlansFewerPackagesBreaksTies(t *testing.T) {
	plans := []domain.ShippingPlan{
		{
			ID: "two-parcels", TotalPrice: 100, Complete: true,
			Packages:   []domain.Package{{RuleID: "r1"}, {RuleID: "r1"}},
			Assignment: map[string]string{"a": "r1"},
		},
		{
			ID: "one-parcel", TotalPrice: 100, Complete: true,
			Packages:   []domain.Package{{RuleID: "r2"}},
			Assignment: map[string]string{"a": "r2"},
		},
	}

	ranked := rankPlans(plans)
	if ranked[0].ID != "one-parcel" {
		t.Fatalf("first = %s, want the single-parcel plan", ranked[0].ID)
	}
}

func TestRankPlansDedupesIdenticalAssignments(t *testing.T) {
	plans := []domain.ShippingPlan{
		{ID: "expensive", TotalPrice: 300, Complete: true, Assignment: map[string]string{"a": "r1", "b": "r2"}},
		{ID: "cheap", TotalPrice: 120, Complete: true, Assignment: map[string]string{"b": "r2", "a": "r1"}},
		{ID: "different", TotalPrice: 200, Complete: true, Assignment: map[string]string{"a": "r2", "b": "r2"}},
	}

	ranked := rankPlans(plans)
	if len(ranked) != 2 {
		t.Fatalf("ranked = %d plans, want 2 after dedupe", len(ranked))
	}
	if ranked[0].ID != "cheap" {
		t.Fatalf("dedupe kept %s, want the cheapest duplicate", ranked[0].ID)
	}
}

func TestFormatPlansTopK(t *testing.T) {
	rules := ruleIndex(domain.ShippingRule{ID: "r1", Name: "Standard", BasePrice: 50, MinDeliveryDays: 2, MaxDeliveryDays: 4})

	var plans []domain.ShippingPlan
	for i := 0; i < 8; i++ {
		plans = append(plans, domain.ShippingPlan{
			TotalPrice: int64(100 + i),
			Complete:   true,
			Packages: []domain.Package{{
				RuleID: "r1",
				Items:  []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 10}},
				Price:  int64(100 + i),
			}},
		})
	}

	quotes := formatPlans(plans, 0, rules)
	if len(quotes) != 5 {
		t.Fatalf("quotes = %d, want default cap of 5", len(quotes))
	}

	quotes = formatPlans(plans, 3, rules)
	if len(quotes) != 3 {
		t.Fatalf("quotes = %d, want 3", len(quotes))
	}
}

func TestFormatPlanProjection(t *testing.T) {
	rules := ruleIndex(domain.ShippingRule{
		ID: "r1", Name: "Peninsula", MinDeliveryDays: 2, MaxDeliveryDays: 5,
		CarrierOptions: []domain.CarrierOption{{ID: "express", Name: "Express", MinDeliveryDays: 1, MaxDeliveryDays: 2}},
	})

	plan := domain.ShippingPlan{
		ID:              "plan-1",
		TotalPrice:      220,
		Complete:        true,
		MinDeliveryDays: 1,
		MaxDeliveryDays: 2,
		Packages: []domain.Package{
			{
				RuleID:          "r1",
				CarrierOptionID: "express",
				Items:           []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 10}},
				Price:           120,
			},
			{
				RuleID:          "r1",
				CarrierOptionID: "express",
				Items:           []domain.PackageItem{{ProductID: "b", Quantity: 2, UnitPrice: 10}},
				Price:           100,
			},
		},
	}

	quote := formatPlan(plan, rules)
	if quote.ID != "plan-1" || quote.TotalPrice != 220 || !quote.Complete {
		t.Fatalf("quote header = %+v", quote)
	}
	if !quote.MultiPackage || quote.PackageCount != 2 {
		t.Fatalf("package flags = %+v", quote)
	}
	if len(quote.Zones) != 1 {
		t.Fatalf("zones = %d, want 1", len(quote.Zones))
	}
	zone := quote.Zones[0]
	if zone.RuleID != "r1" || zone.RuleName != "Peninsula" || zone.CarrierName != "Express" {
		t.Fatalf("zone identity = %+v", zone)
	}
	if zone.Price != 220 || zone.PackageCount != 2 {
		t.Fatalf("zone totals = %+v", zone)
	}
	if zone.MinDeliveryDays != 1 || zone.MaxDeliveryDays != 2 {
		t.Fatalf("zone delivery window = %+v", zone)
	}
	if len(zone.CoveredProductIDs) != 2 {
		t.Fatalf("zone coverage = %v", zone.CoveredProductIDs)
	}
}

func TestFormatPlanFreeZoneRequiresAllPackagesFree(t *testing.T) {
	rules := ruleIndex(domain.ShippingRule{ID: "r1", Name: "Mixed"})
	plan := domain.ShippingPlan{
		Packages: []domain.Package{
			{RuleID: "r1", Free: true, FreeReason: domain.FreeReasonMinimumSubtotal, Items: []domain.PackageItem{{ProductID: "a", Quantity: 1}}},
			{RuleID: "r1", Price: 80, Items: []domain.PackageItem{{ProductID: "b", Quantity: 1}}},
		},
	}

	quote := formatPlan(plan, rules)
	if quote.Zones[0].Free {
		t.Fatalf("zone with a paid parcel must not be marked free")
	}
	if quote.Zones[0].FreeReason != "" {
		t.Fatalf("paid zone kept free reason %q", quote.Zones[0].FreeReason)
	}

	allFree := domain.ShippingPlan{
		Packages: []domain.Package{
			{RuleID: "r1", Free: true, FreeReason: domain.FreeReasonRuleFlag, Items: []domain.PackageItem{{ProductID: "a", Quantity: 1}}},
		},
	}
	freeQuote := formatPlan(allFree, rules)
	if !freeQuote.Zones[0].Free || freeQuote.Zones[0].FreeReason != domain.FreeReasonRuleFlag {
		t.Fatalf("all-free zone = %+v", freeQuote.Zones[0])
	}
}
