package services

import (
	"testing"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

func TestPackForRuleUnboundedSinglePackage(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "a", Quantity: 2, UnitWeightGrams: 1500, UnitPrice: 100},
		{ProductID: "b", Quantity: 1, UnitWeightGrams: 4000, UnitPrice: 200},
	}

	packages, err := packForRule("r1", lines, domain.PackagingConstraints{})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if len(packages) != 1 {
		t.Fatalf("packages = %d, want 1", len(packages))
	}
	if packages[0].WeightGrams != 7000 {
		t.Fatalf("weight = %d, want 7000", packages[0].WeightGrams)
	}
	if packages[0].ItemCount() != 3 {
		t.Fatalf("items = %d, want 3", packages[0].ItemCount())
	}
}

func TestPackForRuleSingleItemPerPackage(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "a", Quantity: 3, UnitWeightGrams: 500, UnitPrice: 100},
		{ProductID: "b", Quantity: 2, UnitWeightGrams: 800, UnitPrice: 150},
	}

	packages, err := packForRule("r1", lines, domain.PackagingConstraints{MaxItemsPerPackage: 1})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if len(packages) != 5 {
		t.Fatalf("packages = %d, want 5 single-item parcels", len(packages))
	}
	for _, pkg := range packages {
		if pkg.ItemCount() != 1 {
			t.Fatalf("parcel holds %d units, want 1", pkg.ItemCount())
		}
		if pkg.Oversize {
			t.Fatalf("single-unit parcel should not be flagged oversize")
		}
	}
}

func TestPackForRuleWeightCeilingSplitsLines(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "a", Quantity: 4, UnitWeightGrams: 3000, UnitPrice: 100},
	}

	packages, err := packForRule("r1", lines, domain.PackagingConstraints{MaxWeightGrams: 7000})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if len(packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(packages))
	}
	for _, pkg := range packages {
		if pkg.WeightGrams > 7000 {
			t.Fatalf("parcel weight %d exceeds ceiling", pkg.WeightGrams)
		}
		if pkg.ItemCount() != 2 {
			t.Fatalf("parcel holds %d units, want 2", pkg.ItemCount())
		}
	}
}

func TestPackForRuleItemCountCeiling(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "a", Quantity: 5, UnitWeightGrams: 100, UnitPrice: 50},
		{ProductID: "b", Quantity: 2, UnitWeightGrams: 100, UnitPrice: 50},
	}

	packages, err := packForRule("r1", lines, domain.PackagingConstraints{MaxItemsPerPackage: 3})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}

	total := 0
	for _, pkg := range packages {
		if pkg.ItemCount() > 3 {
			t.Fatalf("parcel holds %d units over the ceiling of 3", pkg.ItemCount())
		}
		total += pkg.ItemCount()
	}
	if total != 7 {
		t.Fatalf("placed %d units, want 7", total)
	}
	if len(packages) != 3 {
		t.Fatalf("packages = %d, want 3", len(packages))
	}
}

func TestPackForRuleOversizeSingleUnit(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "anvil", Quantity: 1, UnitWeightGrams: 25000, UnitPrice: 900},
		{ProductID: "pin", Quantity: 1, UnitWeightGrams: 100, UnitPrice: 10},
	}

	packages, err := packForRule("r1", lines, domain.PackagingConstraints{MaxWeightGrams: 20000})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if len(packages) != 2 {
		t.Fatalf("packages = %d, want 2", len(packages))
	}

	var oversize *domain.Package
	for i := range packages {
		if packages[i].Oversize {
			oversize = &packages[i]
		}
	}
	if oversize == nil {
		t.Fatalf("expected the overweight unit to ship in a flagged parcel")
	}
	if oversize.ItemCount() != 1 || oversize.Items[0].ProductID != "anvil" {
		t.Fatalf("oversize parcel = %+v", oversize)
	}
}

func TestPackForRuleDeterministic(t *testing.T) {
	lines := []domain.LineItem{
		{ProductID: "b", Quantity: 2, UnitWeightGrams: 900, UnitPrice: 10},
		{ProductID: "a", Quantity: 1, UnitWeightGrams: 1800, UnitPrice: 10},
		{ProductID: "c", Quantity: 3, UnitWeightGrams: 400, UnitPrice: 10},
	}
	constraints := domain.PackagingConstraints{MaxWeightGrams: 2000}

	first, err := packForRule("r1", lines, constraints)
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	second, err := packForRule("r1", lines, constraints)
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs differ in package count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].WeightGrams != second[i].WeightGrams {
			t.Fatalf("runs differ at parcel %d: %d vs %d grams", i, first[i].WeightGrams, second[i].WeightGrams)
		}
	}
}

func TestPackForRuleEmptyInput(t *testing.T) {
	packages, err := packForRule("r1", nil, domain.PackagingConstraints{MaxItemsPerPackage: 2})
	if err != nil {
		t.Fatalf("packForRule: %v", err)
	}
	if packages != nil {
		t.Fatalf("expected no parcels for empty input, got %d", len(packages))
	}
}
