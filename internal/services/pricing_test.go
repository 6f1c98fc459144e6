package services

import (
	"testing"

	domain "github.com/enviostack/shipping-api/internal/domain"
)

func TestPricePackageUnconditionallyFree(t *testing.T) {
	rule := domain.ShippingRule{ID: "r1", FreeShipping: true, BasePrice: 150}
	pkg := domain.Package{Items: []domain.PackageItem{{ProductID: "a", Quantity: 2, UnitPrice: 500}}}

	priced := pricePackage(pkg, rule, nil)
	if !priced.Free || priced.Price != 0 {
		t.Fatalf("priced = %+v, want free at 0", priced)
	}
	if priced.FreeReason != domain.FreeReasonRuleFlag {
		t.Fatalf("free reason = %q", priced.FreeReason)
	}

	// Repricing an already-free parcel stays free at zero.
	again := pricePackage(priced, rule, nil)
	if !again.Free || again.Price != 0 {
		t.Fatalf("repriced = %+v, want free at 0", again)
	}
}

func TestPricePackageMinimumSubtotalThreshold(t *testing.T) {
	rule := domain.ShippingRule{ID: "r1", FreeOverSubtotal: 999, BasePrice: 150}
	pkg := domain.Package{Items: []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 1000}}}

	priced := pricePackage(pkg, rule, nil)
	if !priced.Free || priced.Price != 0 {
		t.Fatalf("priced = %+v, want free at 0", priced)
	}
	if priced.FreeReason != domain.FreeReasonMinimumSubtotal {
		t.Fatalf("free reason = %q, want %q", priced.FreeReason, domain.FreeReasonMinimumSubtotal)
	}

	below := domain.Package{Items: []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 998}}}
	pricedBelow := pricePackage(below, rule, nil)
	if pricedBelow.Free || pricedBelow.Price != 150 {
		t.Fatalf("below threshold priced = %+v, want 150 paid", pricedBelow)
	}
}

func TestPricePackageExtraItemSurcharge(t *testing.T) {
	rule := domain.ShippingRule{ID: "r1", BasePrice: 100, PerExtraItemSurcharge: 25}
	pkg := domain.Package{Items: []domain.PackageItem{
		{ProductID: "a", Quantity: 2, UnitPrice: 50},
		{ProductID: "b", Quantity: 1, UnitPrice: 50},
	}}

	priced := pricePackage(pkg, rule, nil)
	// 3 units: base 100 plus 2 extra units at 25.
	if priced.Price != 150 {
		t.Fatalf("price = %d, want 150", priced.Price)
	}
	if priced.Free {
		t.Fatalf("paid parcel marked free")
	}
}

func TestPricePackageCarrierWeightSurcharge(t *testing.T) {
	rule := domain.ShippingRule{ID: "r1", BasePrice: 999}
	option := domain.CarrierOption{
		ID:                  "express",
		BasePrice:           200,
		IncludedWeightGrams: 1000,
		PerExtraKgSurcharge: 50,
	}
	pkg := domain.Package{
		Items:       []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 100}},
		WeightGrams: 3200,
	}

	priced := pricePackage(pkg, rule, &option)
	// 2200g over the included 1000g bills 3 started kilograms.
	if priced.Price != 200+3*50 {
		t.Fatalf("price = %d, want %d", priced.Price, 200+3*50)
	}
	if priced.CarrierOptionID != "express" {
		t.Fatalf("carrier option id = %q", priced.CarrierOptionID)
	}
}

func TestPricePackageRuleWeightSurcharge(t *testing.T) {
	rule := domain.ShippingRule{
		ID:                  "r1",
		BasePrice:           100,
		IncludedWeightGrams: 1000,
		PerExtraKgSurcharge: 40,
	}
	pkg := domain.Package{
		Items:       []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 100}},
		WeightGrams: 2500,
	}

	priced := pricePackage(pkg, rule, nil)
	// 1500g over the included 1000g bills 2 started kilograms.
	if priced.Price != 100+2*40 {
		t.Fatalf("price = %d, want %d", priced.Price, 100+2*40)
	}
}

func TestPricePackageCarrierOverridesRuleWeightSurcharge(t *testing.T) {
	rule := domain.ShippingRule{
		ID:                  "r1",
		BasePrice:           100,
		IncludedWeightGrams: 500,
		PerExtraKgSurcharge: 40,
	}
	option := domain.CarrierOption{
		ID:                  "std",
		BasePrice:           200,
		IncludedWeightGrams: 2000,
		PerExtraKgSurcharge: 10,
	}
	pkg := domain.Package{
		Items:       []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 100}},
		WeightGrams: 3500,
	}

	priced := pricePackage(pkg, rule, &option)
	// The carrier option's allowance and rate replace the rule's.
	if priced.Price != 200+2*10 {
		t.Fatalf("price = %d, want %d", priced.Price, 200+2*10)
	}
}

func TestPricePackageCarrierWithoutSurchargeFields(t *testing.T) {
	rule := domain.ShippingRule{ID: "r1"}
	option := domain.CarrierOption{ID: "std", BasePrice: 120}
	pkg := domain.Package{
		Items:       []domain.PackageItem{{ProductID: "a", Quantity: 1, UnitPrice: 100}},
		WeightGrams: 9000,
	}

	priced := pricePackage(pkg, rule, &option)
	if priced.Price != 120 {
		t.Fatalf("price = %d, want base 120 with no surcharges", priced.Price)
	}
}

func TestStartedKilograms(t *testing.T) {
	cases := []struct {
		grams int64
		want  int64
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{999, 1},
		{1000, 1},
		{1001, 2},
		{2200, 3},
	}
	for _, tc := range cases {
		if got := startedKilograms(tc.grams); got != tc.want {
			t.Fatalf("startedKilograms(%d) = %d, want %d", tc.grams, got, tc.want)
		}
	}
}
