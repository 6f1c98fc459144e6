package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/enviostack/shipping-api/internal/domain"
	"github.com/enviostack/shipping-api/internal/platform/httpx"
	"github.com/enviostack/shipping-api/internal/services"
)

// ShippingQuoteService resolves shipping plans for a cart and address.
type ShippingQuoteService interface {
	ResolveShipping(ctx context.Context, cmd services.ResolveShippingCommand) (services.ResolveShippingResult, error)
}

// QuoteHandlers exposes the quote resolution endpoint.
type QuoteHandlers struct {
	quotes ShippingQuoteService
}

const maxQuoteBodySize = 64 * 1024

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

// NewQuoteHandlers constructs handlers backed by the given quote service.
func NewQuoteHandlers(quotes ShippingQuoteService) *QuoteHandlers {
	return &QuoteHandlers{quotes: quotes}
}

// Routes wires the quote endpoints onto the provided router.
func (h *QuoteHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createQuote)
}

type quoteItemPayload struct {
	ProductID       string `json:"productId"`
	Quantity        int    `json:"quantity"`
	UnitWeightGrams int64  `json:"unitWeightGrams"`
	UnitPrice       int64  `json:"unitPrice"`
}

type quoteAddressPayload struct {
	PostalCode string `json:"postalCode"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

type createQuoteRequest struct {
	Items       []quoteItemPayload  `json:"items"`
	Address     quoteAddressPayload `json:"address"`
	Strategy    string              `json:"strategy"`
	MaxPlans    int                 `json:"maxPlans"`
	BypassCache bool                `json:"bypassCache"`
}

type zonePayload struct {
	RuleID            string   `json:"ruleId"`
	RuleName          string   `json:"ruleName,omitempty"`
	CarrierName       string   `json:"carrierName,omitempty"`
	Price             int64    `json:"price"`
	Free              bool     `json:"free"`
	FreeReason        string   `json:"freeReason,omitempty"`
	MinDeliveryDays   int      `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays   int      `json:"maxDeliveryDays,omitempty"`
	PackageCount      int      `json:"packageCount"`
	CoveredProductIDs []string `json:"coveredProductIds"`
}

type planPayload struct {
	ID                  string        `json:"id"`
	Zones               []zonePayload `json:"zones"`
	TotalPrice          int64         `json:"totalPrice"`
	Complete            bool          `json:"complete"`
	MultiPackage        bool          `json:"multiPackage"`
	PackageCount        int           `json:"packageCount"`
	MinDeliveryDays     int           `json:"minDeliveryDays,omitempty"`
	MaxDeliveryDays     int           `json:"maxDeliveryDays,omitempty"`
	UncoveredProductIDs []string      `json:"uncoveredProductIds,omitempty"`
}

type createQuoteResponse struct {
	QuoteID    string        `json:"quoteId"`
	Strategy   string        `json:"strategy"`
	Complete   bool          `json:"complete"`
	FromCache  bool          `json:"fromCache"`
	ComputedAt time.Time     `json:"computedAt"`
	Plans      []planPayload `json:"plans"`
}

func (h *QuoteHandlers) createQuote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quote_service_unavailable", "quote service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxQuoteBodySize)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return
	}

	var req createQuoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("malformed JSON body: %v", err), http.StatusBadRequest))
		return
	}

	cmd := services.ResolveShippingCommand{
		Address: domain.Address{
			PostalCode: strings.TrimSpace(req.Address.PostalCode),
			State:      strings.TrimSpace(req.Address.State),
			Country:    strings.TrimSpace(req.Address.Country),
		},
		Strategy:    strings.TrimSpace(req.Strategy),
		MaxPlans:    req.MaxPlans,
		BypassCache: req.BypassCache,
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, domain.LineItem{
			ProductID:       strings.TrimSpace(item.ProductID),
			Quantity:        item.Quantity,
			UnitWeightGrams: item.UnitWeightGrams,
			UnitPrice:       item.UnitPrice,
		})
	}

	result, err := h.quotes.ResolveShipping(ctx, cmd)
	if err != nil {
		writeQuoteError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, buildQuoteResponse(result))
}

func buildQuoteResponse(result services.ResolveShippingResult) createQuoteResponse {
	resp := createQuoteResponse{
		QuoteID:    result.QuoteID,
		Strategy:   result.Strategy,
		Complete:   result.Complete,
		FromCache:  result.FromCache,
		ComputedAt: result.ComputedAt,
		Plans:      make([]planPayload, 0, len(result.Plans)),
	}
	for _, plan := range result.Plans {
		resp.Plans = append(resp.Plans, buildPlanPayload(plan))
	}
	return resp
}

func buildPlanPayload(plan domain.PlanQuote) planPayload {
	payload := planPayload{
		ID:                  plan.ID,
		TotalPrice:          plan.TotalPrice,
		Complete:            plan.Complete,
		MultiPackage:        plan.MultiPackage,
		PackageCount:        plan.PackageCount,
		MinDeliveryDays:     plan.MinDeliveryDays,
		MaxDeliveryDays:     plan.MaxDeliveryDays,
		UncoveredProductIDs: plan.UncoveredProductIDs,
		Zones:               make([]zonePayload, 0, len(plan.Zones)),
	}
	for _, zone := range plan.Zones {
		payload.Zones = append(payload.Zones, zonePayload{
			RuleID:            zone.RuleID,
			RuleName:          zone.RuleName,
			CarrierName:       zone.CarrierName,
			Price:             zone.Price,
			Free:              zone.Free,
			FreeReason:        string(zone.FreeReason),
			MinDeliveryDays:   zone.MinDeliveryDays,
			MaxDeliveryDays:   zone.MaxDeliveryDays,
			PackageCount:      zone.PackageCount,
			CoveredProductIDs: zone.CoveredProductIDs,
		})
	}
	return payload
}

func writeQuoteError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	var unshippable *services.UnshippableProductError
	if errors.As(err, &unshippable) {
		httpx.WriteError(ctx, w, httpx.NewError("unshippable_product", err.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"productId": unshippable.ProductID}))
		return
	}

	var incomplete *services.IncompleteCoverageError
	if errors.As(err, &incomplete) {
		httpx.WriteError(ctx, w, httpx.NewError("incomplete_coverage", err.Error(), http.StatusConflict).
			WithDetails(map[string]any{"productIds": incomplete.ProductIDs}))
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidQuoteInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPackagingInfeasible):
		httpx.WriteError(ctx, w, httpx.NewError("packaging_infeasible", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrNoShippingAvailable):
		httpx.WriteError(ctx, w, httpx.NewError("no_shipping_available", "no shipping rule can serve this cart and address", http.StatusConflict))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_cancelled", "quote resolution was cancelled", http.StatusRequestTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "failed to resolve shipping", http.StatusInternalServerError))
	}
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = maxQuoteBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
