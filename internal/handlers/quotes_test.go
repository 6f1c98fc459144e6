package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/enviostack/shipping-api/internal/domain"
	"github.com/enviostack/shipping-api/internal/services"
)

type stubQuoteService struct {
	result  services.ResolveShippingResult
	err     error
	lastCmd services.ResolveShippingCommand
}

func (s *stubQuoteService) ResolveShipping(ctx context.Context, cmd services.ResolveShippingCommand) (services.ResolveShippingResult, error) {
	s.lastCmd = cmd
	if s.err != nil {
		return services.ResolveShippingResult{}, s.err
	}
	return s.result, nil
}

func postQuote(t *testing.T, svc ShippingQuoteService, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(WithQuoteRoutes(NewQuoteHandlers(svc).Routes))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/quotes/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestCreateQuoteSuccess(t *testing.T) {
	svc := &stubQuoteService{result: services.ResolveShippingResult{
		QuoteID:    "01HTEST",
		Strategy:   services.StrategyExhaustive,
		Complete:   true,
		ComputedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Plans: []domain.PlanQuote{{
			ID:           "plan-1",
			TotalPrice:   150,
			Complete:     true,
			PackageCount: 1,
			Zones: []domain.ZoneQuote{{
				RuleID:            "nationwide",
				RuleName:          "Nacional",
				Price:             150,
				PackageCount:      1,
				CoveredProductIDs: []string{"mug"},
			}},
		}},
	}}

	rr := postQuote(t, svc, `{
		"items": [{"productId": "mug", "quantity": 2, "unitWeightGrams": 400, "unitPrice": 90}],
		"address": {"postalCode": "06600", "state": "CDMX", "country": "MX"},
		"strategy": "exhaustive"
	}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp createQuoteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.QuoteID != "01HTEST" || !resp.Complete || len(resp.Plans) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Plans[0].Zones[0].RuleID != "nationwide" || resp.Plans[0].TotalPrice != 150 {
		t.Fatalf("plan payload = %+v", resp.Plans[0])
	}

	cmd := svc.lastCmd
	if len(cmd.Items) != 1 || cmd.Items[0].ProductID != "mug" || cmd.Items[0].Quantity != 2 {
		t.Fatalf("decoded items = %+v", cmd.Items)
	}
	if cmd.Address.PostalCode != "06600" || cmd.Strategy != "exhaustive" {
		t.Fatalf("decoded command = %+v", cmd)
	}
}

func TestCreateQuoteInvalidInput(t *testing.T) {
	svc := &stubQuoteService{err: services.ErrInvalidQuoteInput}
	rr := postQuote(t, svc, `{"items": [], "address": {}}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "invalid_request") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCreateQuoteMalformedJSON(t *testing.T) {
	svc := &stubQuoteService{}
	rr := postQuote(t, svc, `{"items": [`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestCreateQuoteUnshippableProduct(t *testing.T) {
	svc := &stubQuoteService{err: &services.UnshippableProductError{ProductID: "piano"}}
	rr := postQuote(t, svc, `{"items": [{"productId": "piano", "quantity": 1}], "address": {"postalCode": "97000"}}`)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "unshippable_product") || !strings.Contains(body, "piano") {
		t.Fatalf("body = %s", body)
	}
}

func TestCreateQuoteNoShippingAvailable(t *testing.T) {
	svc := &stubQuoteService{err: services.ErrNoShippingAvailable}
	rr := postQuote(t, svc, `{"items": [{"productId": "a", "quantity": 1}], "address": {"postalCode": "97000"}}`)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "no_shipping_available") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCreateQuoteIncompleteCoverage(t *testing.T) {
	svc := &stubQuoteService{err: &services.IncompleteCoverageError{ProductIDs: []string{"a", "b"}}}
	rr := postQuote(t, svc, `{"items": [{"productId": "a", "quantity": 1}], "address": {"postalCode": "97000"}}`)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "incomplete_coverage") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestCreateQuoteBodyTooLarge(t *testing.T) {
	svc := &stubQuoteService{}
	var buf bytes.Buffer
	buf.WriteString(`{"padding": "`)
	buf.WriteString(strings.Repeat("x", maxQuoteBodySize+1))
	buf.WriteString(`"}`)

	rr := postQuote(t, svc, buf.String())
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rr.Code)
	}
}

func TestCreateQuoteEmptyBody(t *testing.T) {
	svc := &stubQuoteService{}
	rr := postQuote(t, svc, "   ")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}
