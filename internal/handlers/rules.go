package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/enviostack/shipping-api/internal/domain"
	"github.com/enviostack/shipping-api/internal/platform/httpx"
	"github.com/enviostack/shipping-api/internal/repositories"
)

// RuleCatalog exposes read access to the shipping rule catalogue.
type RuleCatalog interface {
	ListActive(ctx context.Context) ([]domain.ShippingRule, error)
	FindByID(ctx context.Context, ruleID string) (domain.ShippingRule, error)
}

// RuleHandlers exposes read-only endpoints over the rule catalogue.
type RuleHandlers struct {
	catalog RuleCatalog
}

// NewRuleHandlers constructs handlers backed by the given catalogue.
func NewRuleHandlers(catalog RuleCatalog) *RuleHandlers {
	return &RuleHandlers{catalog: catalog}
}

// Routes wires the rule endpoints onto the provided router.
func (h *RuleHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listRules)
	r.Get("/{ruleId}", h.getRule)
}

type coveragePayload struct {
	Kind   string   `json:"kind"`
	Values []string `json:"values,omitempty"`
}

type packagingPayload struct {
	MaxItemsPerPackage int   `json:"maxItemsPerPackage,omitempty"`
	MaxWeightGrams     int64 `json:"maxWeightGrams,omitempty"`
}

type carrierOptionPayload struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name,omitempty"`
	BasePrice           int64             `json:"basePrice"`
	IncludedWeightGrams int64             `json:"includedWeightGrams,omitempty"`
	PerExtraKgSurcharge int64             `json:"perExtraKgSurcharge,omitempty"`
	MinDeliveryDays     int               `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays     int               `json:"maxDeliveryDays,omitempty"`
	Packaging           *packagingPayload `json:"packaging,omitempty"`
}

type rulePayload struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name,omitempty"`
	Coverage              coveragePayload        `json:"coverage"`
	FreeShipping          bool                   `json:"freeShipping"`
	FreeOverSubtotal      int64                  `json:"freeOverSubtotal,omitempty"`
	BasePrice             int64                  `json:"basePrice"`
	PerExtraItemSurcharge int64                  `json:"perExtraItemSurcharge,omitempty"`
	IncludedWeightGrams   int64                  `json:"includedWeightGrams,omitempty"`
	PerExtraKgSurcharge   int64                  `json:"perExtraKgSurcharge,omitempty"`
	MinDeliveryDays       int                    `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays       int                    `json:"maxDeliveryDays,omitempty"`
	Packaging             *packagingPayload      `json:"packaging,omitempty"`
	CarrierOptions        []carrierOptionPayload `json:"carrierOptions,omitempty"`
}

type listRulesResponse struct {
	Rules []rulePayload `json:"rules"`
}

func (h *RuleHandlers) listRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rule_catalog_unavailable", "rule catalogue is unavailable", http.StatusServiceUnavailable))
		return
	}

	rules, err := h.catalog.ListActive(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to list shipping rules", http.StatusInternalServerError))
		return
	}

	payload := listRulesResponse{Rules: make([]rulePayload, 0, len(rules))}
	for _, rule := range rules {
		payload.Rules = append(payload.Rules, buildRulePayload(rule))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *RuleHandlers) getRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("rule_catalog_unavailable", "rule catalogue is unavailable", http.StatusServiceUnavailable))
		return
	}

	ruleID := strings.TrimSpace(chi.URLParam(r, "ruleId"))
	if ruleID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "rule id is required", http.StatusBadRequest))
		return
	}

	rule, err := h.catalog.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, repositories.ErrRuleNotFound) {
			httpx.WriteError(ctx, w, httpx.NewError("rule_not_found", "shipping rule does not exist", http.StatusNotFound))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to load shipping rule", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, buildRulePayload(rule))
}

func buildRulePayload(rule domain.ShippingRule) rulePayload {
	payload := rulePayload{
		ID:                    rule.ID,
		Name:                  rule.Name,
		Coverage:              coveragePayload{Kind: string(rule.Coverage.Kind), Values: rule.Coverage.Values},
		FreeShipping:          rule.FreeShipping,
		FreeOverSubtotal:      rule.FreeOverSubtotal,
		BasePrice:             rule.BasePrice,
		PerExtraItemSurcharge: rule.PerExtraItemSurcharge,
		IncludedWeightGrams:   rule.IncludedWeightGrams,
		PerExtraKgSurcharge:   rule.PerExtraKgSurcharge,
		MinDeliveryDays:       rule.MinDeliveryDays,
		MaxDeliveryDays:       rule.MaxDeliveryDays,
		Packaging:             buildPackagingPayload(rule.Packaging),
	}
	for _, option := range rule.CarrierOptions {
		optionPayload := carrierOptionPayload{
			ID:                  option.ID,
			Name:                option.Name,
			BasePrice:           option.BasePrice,
			IncludedWeightGrams: option.IncludedWeightGrams,
			PerExtraKgSurcharge: option.PerExtraKgSurcharge,
			MinDeliveryDays:     option.MinDeliveryDays,
			MaxDeliveryDays:     option.MaxDeliveryDays,
		}
		if option.Packaging != nil {
			optionPayload.Packaging = buildPackagingPayload(*option.Packaging)
		}
		payload.CarrierOptions = append(payload.CarrierOptions, optionPayload)
	}
	return payload
}

func buildPackagingPayload(constraints domain.PackagingConstraints) *packagingPayload {
	if constraints.Unbounded() {
		return nil
	}
	return &packagingPayload{
		MaxItemsPerPackage: constraints.MaxItemsPerPackage,
		MaxWeightGrams:     constraints.MaxWeightGrams,
	}
}
