package domain

// Monetary amounts are expressed in the minor unit of the store currency and
// weights in grams. Rounding to display units is the caller's concern.

// LineItem is a single cart line as supplied by the cart source. The engine
// never mutates line items.
type LineItem struct {
	ProductID       string
	Quantity        int
	UnitWeightGrams int64
	UnitPrice       int64
}

// LineWeightGrams returns the total weight contributed by the line.
func (l LineItem) LineWeightGrams() int64 {
	if l.Quantity <= 0 {
		return 0
	}
	return l.UnitWeightGrams * int64(l.Quantity)
}

// LineSubtotal returns quantity times unit price.
func (l LineItem) LineSubtotal() int64 {
	if l.Quantity <= 0 {
		return 0
	}
	return l.UnitPrice * int64(l.Quantity)
}

// Address is the delivery destination used for coverage matching only.
type Address struct {
	PostalCode string
	State      string
	Country    string
}

// CoverageKind discriminates the geographic applicability of a rule.
type CoverageKind string

const (
	// CoverageNationwide matches every address.
	CoverageNationwide CoverageKind = "nationwide"
	// CoverageByRegion matches when the address state is in the value set.
	CoverageByRegion CoverageKind = "region"
	// CoverageByPostalCode matches when the address postal code is in the value set.
	CoverageByPostalCode CoverageKind = "postal_code"
	// CoverageUnknown marks a descriptor the store could not recognise.
	// Rules carrying it never match; they are excluded, not defaulted open.
	CoverageUnknown CoverageKind = "unknown"
)

// Coverage is the tagged coverage descriptor of a shipping rule.
type Coverage struct {
	Kind   CoverageKind
	Values []string
}

// Specificity orders coverage kinds from narrow to broad; higher is more
// specific. Unknown coverage has no specificity at all.
func (c Coverage) Specificity() int {
	switch c.Kind {
	case CoverageByPostalCode:
		return 3
	case CoverageByRegion:
		return 2
	case CoverageNationwide:
		return 1
	default:
		return 0
	}
}

// PackagingConstraints bound what a single parcel may hold. Zero values mean
// unbounded.
type PackagingConstraints struct {
	MaxItemsPerPackage int
	MaxWeightGrams     int64
}

// Unbounded reports whether no packaging limit applies.
func (p PackagingConstraints) Unbounded() bool {
	return p.MaxItemsPerPackage <= 0 && p.MaxWeightGrams <= 0
}

// CarrierOption is one carrier service offered under a rule.
type CarrierOption struct {
	ID                  string
	Name                string
	BasePrice           int64
	IncludedWeightGrams int64
	PerExtraKgSurcharge int64
	MinDeliveryDays     int
	MaxDeliveryDays     int
	Packaging           *PackagingConstraints
}

// ShippingRule is a zone definition: coverage area, pricing, and packaging
// constraints. A rule with no carrier options is priced off BasePrice.
type ShippingRule struct {
	ID                    string
	Name                  string
	Coverage              Coverage
	FreeShipping          bool
	FreeOverSubtotal      int64
	BasePrice             int64
	PerExtraItemSurcharge int64
	IncludedWeightGrams   int64
	PerExtraKgSurcharge   int64
	MinDeliveryDays       int
	MaxDeliveryDays       int
	Packaging             PackagingConstraints
	CarrierOptions        []CarrierOption
}

// Usable reports whether the rule carries a recognised coverage descriptor.
func (r ShippingRule) Usable() bool {
	switch r.Coverage.Kind {
	case CoverageNationwide:
		return true
	case CoverageByRegion, CoverageByPostalCode:
		return len(r.Coverage.Values) > 0
	default:
		return false
	}
}

// PackagingFor returns the effective constraints for the given carrier
// option, falling back to the rule-level constraints.
func (r ShippingRule) PackagingFor(option *CarrierOption) PackagingConstraints {
	if option != nil && option.Packaging != nil {
		return *option.Packaging
	}
	return r.Packaging
}

// Eligibility maps a product id to the ordered rule ids the product may ship
// under, prior to address filtering. Order is preserved as preference order.
type Eligibility map[string][]string

// FreeReason encodes why a package ships for free. Machine codes only; the
// presentation layer owns user-facing wording.
type FreeReason string

const (
	// FreeReasonRuleFlag marks rules that always ship free.
	FreeReasonRuleFlag FreeReason = "always-free"
	// FreeReasonMinimumSubtotal marks packages over the free-shipping threshold.
	FreeReasonMinimumSubtotal FreeReason = "minimum-subtotal"
)

// PackageItem is a (possibly partial) line placed into a parcel. Quantity may
// be less than the cart line's quantity when packing splits a line.
type PackageItem struct {
	ProductID       string
	Quantity        int
	UnitWeightGrams int64
	UnitPrice       int64
}

// Package is one physical parcel assigned to a rule. Created transiently per
// resolution, never persisted.
type Package struct {
	RuleID          string
	CarrierOptionID string
	Items           []PackageItem
	WeightGrams     int64
	Price           int64
	Free            bool
	FreeReason      FreeReason
	// Oversize flags a single-item package that exceeds the rule limits but
	// could not be partitioned further.
	Oversize bool
}

// ItemCount returns the total number of units in the parcel.
func (p Package) ItemCount() int {
	total := 0
	for _, item := range p.Items {
		total += item.Quantity
	}
	return total
}

// ProductIDs returns the distinct product ids in the parcel, in item order.
func (p Package) ProductIDs() []string {
	seen := make(map[string]struct{}, len(p.Items))
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Subtotal returns the merchandise value carried by the parcel.
func (p Package) Subtotal() int64 {
	var total int64
	for _, item := range p.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// ShippingPlan is one shipping proposal: one or more packages, each tied to a
// rule, covering some or all cart products.
type ShippingPlan struct {
	ID         string
	Packages   []Package
	Assignment map[string]string
	TotalPrice int64
	Complete   bool
	// UncoveredProductIDs lists cart products no package in this plan covers.
	UncoveredProductIDs []string
	MinDeliveryDays     int
	MaxDeliveryDays     int
}

// CoveredProductIDs returns the union of product ids across packages.
func (p ShippingPlan) CoveredProductIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, pkg := range p.Packages {
		for _, id := range pkg.ProductIDs() {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// ZoneQuote is the per-rule breakdown of a formatted plan.
type ZoneQuote struct {
	RuleID            string
	RuleName          string
	CarrierName       string
	Price             int64
	Free              bool
	FreeReason        FreeReason
	MinDeliveryDays   int
	MaxDeliveryDays   int
	PackageCount      int
	CoveredProductIDs []string
}

// PlanQuote is the caller-facing projection of a ranked plan. It is a pure
// view over already computed plan data.
type PlanQuote struct {
	ID                  string
	Zones               []ZoneQuote
	TotalPrice          int64
	Complete            bool
	MultiPackage        bool
	PackageCount        int
	MinDeliveryDays     int
	MaxDeliveryDays     int
	UncoveredProductIDs []string
}
