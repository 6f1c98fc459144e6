package services

import (
	"context"
	"testing"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

func ruleIndex(rules ...domain.ShippingRule) map[string]domain.ShippingRule {
	index := make(map[string]domain.ShippingRule, len(rules))
	for _, rule := range rules {
		index[rule.ID] = rule
	}
	return index
}

func TestExhaustivePlansSingleRuleSinglePackage(t *testing.T) {
	rules := ruleIndex(domain.ShippingRule{
		ID:       "nation",
		Coverage: domain.Coverage{Kind: domain.CoverageNationwide},
		BasePrice: 150,
	})
	items := []domain.LineItem{{ProductID: "a", Quantity: 1, UnitWeightGrams: 2000, UnitPrice: 500}}
	validRules := map[string][]string{"a": {"nation"}}

	plans, err := exhaustivePlans(context.Background(), items, validRules, rules)
	if err != nil {
		t.Fatalf("exhaustivePlans: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(plans))
	}
	plan := plans[0]
	if !plan.Complete {
		t.Fatalf("plan should be complete: %+v", plan)
	}
	if len(plan.Packages) != 1 || plan.TotalPrice != 150 {
		t.Fatalf("plan = %+v, want one package at 150", plan)
	}
}

func TestExhaustivePlansEnumeratesAlternatives(t *testing.T) {
	rules := ruleIndex(
		domain.ShippingRule{ID: "cheap", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}, BasePrice: 100},
		domain.ShippingRule{ID: "fast", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}, BasePrice: 300},
	)
	items := []domain.LineItem{
		{ProductID: "a", Quantity: 1, UnitWeightGrams: 500, UnitPrice: 50},
		{ProductID: "b", Quantity: 1, UnitWeightGrams: 500, UnitPrice: 50},
	}
	validRules := map[string][]string{
		"a": {"cheap", "fast"},
		"b": {"cheap", "fast"},
	}

	plans, err := exhaustivePlans(context.Background(), items, validRules, rules)
	if err != nil {
		t.Fatalf("exhaustivePlans: %v", err)
	}
	// 2 products x 2 rule choices.
	if len(plans) != 4 {
		t.Fatalf("plans = %d, want 4", len(plans))
	}
	for _, plan := range plans {
		if !plan.Complete {
			t.Fatalf("every enumerated plan covers the cart: %+v", plan)
		}
	}
}

func TestExhaustivePlansHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rules := ruleIndex(domain.ShippingRule{ID: "r1", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}})
	items := []domain.LineItem{{ProductID: "a", Quantity: 1}}

	_, err := exhaustivePlans(ctx, items, map[string][]string{"a": {"r1"}}, rules)
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestGreedyPlanPrefersSpecificCoverage(t *testing.T) {
	rules := ruleIndex(
		domain.ShippingRule{ID: "nation", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}, BasePrice: 80},
		domain.ShippingRule{ID: "local", Coverage: domain.Coverage{Kind: domain.CoverageByPostalCode, Values: []string{"97300"}}, BasePrice: 120},
	)
	items := []domain.LineItem{{ProductID: "a", Quantity: 1, UnitWeightGrams: 1000, UnitPrice: 100}}
	validRules := map[string][]string{"a": {"nation", "local"}}

	plan, ok := greedyPlan(items, validRules, rules)
	if !ok {
		t.Fatalf("greedyPlan returned no plan")
	}
	if plan.Assignment["a"] != "local" {
		t.Fatalf("assignment = %v, want postal-specific rule", plan.Assignment)
	}
}

func TestGreedyPlanReusesOpenGroups(t *testing.T) {
	rules := ruleIndex(
		domain.ShippingRule{ID: "south", Coverage: domain.Coverage{Kind: domain.CoverageByRegion, Values: []string{"Yucatan"}}, BasePrice: 90},
		domain.ShippingRule{ID: "nation", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}, BasePrice: 90},
	)
	items := []domain.LineItem{
		{ProductID: "heavy", Quantity: 1, UnitWeightGrams: 5000, UnitPrice: 100},
		{ProductID: "light", Quantity: 1, UnitWeightGrams: 100, UnitPrice: 100},
	}
	validRules := map[string][]string{
		"heavy": {"south"},
		"light": {"south", "nation"},
	}

	plan, ok := greedyPlan(items, validRules, rules)
	if !ok {
		t.Fatalf("greedyPlan returned no plan")
	}
	if plan.Assignment["light"] != "south" {
		t.Fatalf("light item should join the already-open south group: %v", plan.Assignment)
	}
	if len(plan.Packages) != 1 {
		t.Fatalf("packages = %d, want 1 shared parcel", len(plan.Packages))
	}
}

func TestGreedyPlanMarksUncoveredProducts(t *testing.T) {
	rules := ruleIndex(domain.ShippingRule{ID: "r1", Coverage: domain.Coverage{Kind: domain.CoverageNationwide}, BasePrice: 50})
	items := []domain.LineItem{
		{ProductID: "a", Quantity: 1, UnitWeightGrams: 100, UnitPrice: 10},
		{ProductID: "orphan", Quantity: 1, UnitWeightGrams: 100, UnitPrice: 10},
	}
	validRules := map[string][]string{"a": {"r1"}}

	plan, ok := greedyPlan(items, validRules, rules)
	if !ok {
		t.Fatalf("greedyPlan returned no plan")
	}
	if plan.Complete {
		t.Fatalf("plan with an unassignable product must not be complete")
	}
	if len(plan.UncoveredProductIDs) != 1 || plan.UncoveredProductIDs[0] != "orphan" {
		t.Fatalf("uncovered = %v, want [orphan]", plan.UncoveredProductIDs)
	}
}

func TestEstimatedCombinations(t *testing.T) {
	validRules := map[string][]string{
		"a": {"r1", "r2"},
		"b": {"r1", "r2", "r3"},
		"c": {"r1"},
	}
	if got := estimatedCombinations(validRules, 4096); got != 6 {
		t.Fatalf("combinations = %d, want 6", got)
	}
	if got := estimatedCombinations(validRules, 4); got != 4 {
		t.Fatalf("capped combinations = %d, want 4", got)
	}
	if got := multiChoiceProducts(validRules); got != 2 {
		t.Fatalf("multi-choice products = %d, want 2", got)
	}
}
