package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/enviostack/shipping-api/internal/domain"
	pfirestore "github.com/enviostack/shipping-api/internal/platform/firestore"
	"github.com/enviostack/shipping-api/internal/platform/textutil"
	"github.com/enviostack/shipping-api/internal/repositories"
)

const defaultRulesCollection = "shippingRules"

// RuleRepositoryOption customises the rule repository.
type RuleRepositoryOption func(*RuleRepository)

// WithRulesCollection overrides the collection holding shipping rule documents.
func WithRulesCollection(name string) RuleRepositoryOption {
	return func(repo *RuleRepository) {
		if strings.TrimSpace(name) != "" {
			repo.collection = strings.TrimSpace(name)
		}
	}
}

// RuleRepository reads shipping rules from Firestore.
//
// Rule documents are written by a legacy admin tool and are not uniform: the
// coverage descriptor appears under several historical field names. The
// decoder collapses those into the tagged Coverage value; descriptors it
// cannot classify become CoverageUnknown so the rule is excluded from
// matching rather than treated as nationwide.
type RuleRepository struct {
	provider   *pfirestore.Provider
	collection string
	base       *pfirestore.BaseRepository[ruleDocument]
}

var _ repositories.RuleRepository = (*RuleRepository)(nil)

// NewRuleRepository constructs a Firestore-backed rule repository.
func NewRuleRepository(provider *pfirestore.Provider, opts ...RuleRepositoryOption) (*RuleRepository, error) {
	if provider == nil {
		return nil, errors.New("rule repository requires firestore provider")
	}
	repo := &RuleRepository{
		provider:   provider,
		collection: defaultRulesCollection,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	repo.base = pfirestore.NewBaseRepository[ruleDocument](provider, repo.collection, nil)
	return repo, nil
}

// ListActive returns every active rule in the collection.
func (r *RuleRepository) ListActive(ctx context.Context) ([]domain.ShippingRule, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("active", "==", true)
	})
	if err != nil {
		return nil, fmt.Errorf("rules.list_active: %w", err)
	}

	rules := make([]domain.ShippingRule, 0, len(docs))
	for _, doc := range docs {
		rules = append(rules, ruleFromDocument(doc.ID, doc.Data))
	}
	return rules, nil
}

// FindByID fetches a single rule regardless of its active flag.
func (r *RuleRepository) FindByID(ctx context.Context, ruleID string) (domain.ShippingRule, error) {
	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return domain.ShippingRule{}, repositories.ErrRuleNotFound
	}

	doc, err := r.base.Get(ctx, ruleID)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.ShippingRule{}, repositories.ErrRuleNotFound
		}
		return domain.ShippingRule{}, fmt.Errorf("rules.find: %w", err)
	}
	return ruleFromDocument(doc.ID, doc.Data), nil
}

type ruleDocument struct {
	Name         string             `firestore:"name"`
	Active       bool               `firestore:"active"`
	CoverageType string             `firestore:"coverage_type"`
	Regions      []string           `firestore:"zona"`
	PostalCodes  []string           `firestore:"zipcode"`
	LegacyCodes  []string           `firestore:"cobertura_cp"`
	FreeShipping bool               `firestore:"free_shipping"`
	FreeOver     int64              `firestore:"free_over_subtotal"`
	BasePrice    int64              `firestore:"base_price"`
	PerExtraItem int64              `firestore:"per_extra_item"`
	InclWeight   int64              `firestore:"included_weight_grams"`
	PerExtraKg   int64              `firestore:"per_extra_kg"`
	MinDays      int                `firestore:"min_delivery_days"`
	MaxDays      int                `firestore:"max_delivery_days"`
	Packaging    *packagingDocument `firestore:"packaging"`
	Carriers     []carrierDocument  `firestore:"carriers"`
}

type packagingDocument struct {
	MaxItems       int   `firestore:"max_items"`
	MaxWeightGrams int64 `firestore:"max_weight_grams"`
}

type carrierDocument struct {
	ID             string             `firestore:"id"`
	Name           string             `firestore:"name"`
	BasePrice      int64              `firestore:"base_price"`
	IncludedWeight int64              `firestore:"included_weight_grams"`
	PerExtraKg     int64              `firestore:"per_extra_kg"`
	MinDays        int                `firestore:"min_delivery_days"`
	MaxDays        int                `firestore:"max_delivery_days"`
	Packaging      *packagingDocument `firestore:"packaging"`
}

func ruleFromDocument(id string, doc ruleDocument) domain.ShippingRule {
	rule := domain.ShippingRule{
		ID:                    id,
		Name:                  strings.TrimSpace(doc.Name),
		Coverage:              coverageFromDocument(doc),
		FreeShipping:          doc.FreeShipping,
		FreeOverSubtotal:      doc.FreeOver,
		BasePrice:             doc.BasePrice,
		PerExtraItemSurcharge: doc.PerExtraItem,
		IncludedWeightGrams:   doc.InclWeight,
		PerExtraKgSurcharge:   doc.PerExtraKg,
		MinDeliveryDays:       doc.MinDays,
		MaxDeliveryDays:       doc.MaxDays,
	}
	if packaging := packagingFromDocument(doc.Packaging); packaging != nil {
		rule.Packaging = *packaging
	}

	for _, carrier := range doc.Carriers {
		option := domain.CarrierOption{
			ID:                  strings.TrimSpace(carrier.ID),
			Name:                strings.TrimSpace(carrier.Name),
			BasePrice:           carrier.BasePrice,
			IncludedWeightGrams: carrier.IncludedWeight,
			PerExtraKgSurcharge: carrier.PerExtraKg,
			MinDeliveryDays:     carrier.MinDays,
			MaxDeliveryDays:     carrier.MaxDays,
			Packaging:           packagingFromDocument(carrier.Packaging),
		}
		if option.ID == "" {
			continue
		}
		rule.CarrierOptions = append(rule.CarrierOptions, option)
	}

	return rule
}

// coverageFromDocument classifies the historical coverage field variants.
// Documents written by older tool versions omit coverage_type and rely on
// which value list is populated; newer documents carry an explicit type.
func coverageFromDocument(doc ruleDocument) domain.Coverage {
	postal := mergeValues(doc.PostalCodes, doc.LegacyCodes)
	// Region names are human-entered; fold them once here so matching
	// downstream compares normalised forms.
	regions := textutil.FoldAll(doc.Regions)

	switch normalizeCoverageType(doc.CoverageType) {
	case "nationwide", "national", "nacional", "all":
		return domain.Coverage{Kind: domain.CoverageNationwide}
	case "region", "state", "estado", "zona":
		if len(regions) == 0 {
			return domain.Coverage{Kind: domain.CoverageUnknown}
		}
		return domain.Coverage{Kind: domain.CoverageByRegion, Values: regions}
	case "postal_code", "postal", "cp", "zipcode", "zip":
		if len(postal) == 0 {
			return domain.Coverage{Kind: domain.CoverageUnknown}
		}
		return domain.Coverage{Kind: domain.CoverageByPostalCode, Values: postal}
	case "":
		// No explicit type; infer from the populated list, most specific first.
		if len(postal) > 0 {
			return domain.Coverage{Kind: domain.CoverageByPostalCode, Values: postal}
		}
		if len(regions) > 0 {
			return domain.Coverage{Kind: domain.CoverageByRegion, Values: regions}
		}
		return domain.Coverage{Kind: domain.CoverageUnknown}
	default:
		return domain.Coverage{Kind: domain.CoverageUnknown}
	}
}

func packagingFromDocument(doc *packagingDocument) *domain.PackagingConstraints {
	if doc == nil {
		return nil
	}
	if doc.MaxItems <= 0 && doc.MaxWeightGrams <= 0 {
		return nil
	}
	return &domain.PackagingConstraints{
		MaxItemsPerPackage: doc.MaxItems,
		MaxWeightGrams:     doc.MaxWeightGrams,
	}
}

func normalizeCoverageType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	value = strings.ReplaceAll(value, " ", "_")
	return value
}

func cleanValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		cleaned = append(cleaned, value)
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func mergeValues(lists ...[]string) []string {
	var merged []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, value := range cleanValues(list) {
			if _, ok := seen[value]; ok {
				continue
			}
			seen[value] = struct{}{}
			merged = append(merged, value)
		}
	}
	return merged
}
