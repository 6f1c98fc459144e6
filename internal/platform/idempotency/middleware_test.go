package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestMiddlewareReplaysCompletedResponse(t *testing.T) {
	store := NewMemoryStore()

	var calls atomic.Int64
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"quote_id":"q-1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newQuoteRequest(t, "key-1", `{"postal_code":"97300"}`))

	if first.Code != http.StatusCreated {
		t.Fatalf("first response status = %d, want %d", first.Code, http.StatusCreated)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newQuoteRequest(t, "key-1", `{"postal_code":"97300"}`))

	if calls.Load() != 1 {
		t.Fatalf("handler calls = %d, want 1", calls.Load())
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want %d", second.Code, http.StatusCreated)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatalf("replay header missing")
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body = %q, want %q", second.Body.String(), first.Body.String())
	}
}

func TestMiddlewareRejectsReusedKeyWithDifferentBody(t *testing.T) {
	store := NewMemoryStore()

	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, newQuoteRequest(t, "key-1", `{"postal_code":"97300"}`))
	if first.Code != http.StatusCreated {
		t.Fatalf("first response status = %d, want %d", first.Code, http.StatusCreated)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, newQuoteRequest(t, "key-1", `{"postal_code":"06600"}`))
	if second.Code != http.StatusConflict {
		t.Fatalf("conflicting reuse status = %d, want %d", second.Code, http.StatusConflict)
	}
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := NewMemoryStore()

	var calls atomic.Int64
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/quotes", strings.NewReader(`{}`))
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("response status = %d, want %d", rec.Code, http.StatusCreated)
		}
	}

	if calls.Load() != 2 {
		t.Fatalf("handler calls = %d, want 2", calls.Load())
	}
}

func TestMiddlewareIgnoresNonMutatingMethods(t *testing.T) {
	store := NewMemoryStore()

	var calls atomic.Int64
	handler := Middleware(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/shipping/rules/r-1", nil)
		req.Header.Set("Idempotency-Key", "key-1")
		handler.ServeHTTP(rec, req)
	}

	if calls.Load() != 2 {
		t.Fatalf("handler calls = %d, want 2", calls.Load())
	}
}

func TestMemoryStoreRecyclesExpiredReservations(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

	first, err := store.Reserve(context.Background(), "key-1", "fp-1", base, time.Minute)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if first.State != ReservationStateNew {
		t.Fatalf("first reservation state = %d, want new", first.State)
	}

	later := base.Add(2 * time.Minute)
	second, err := store.Reserve(context.Background(), "key-1", "fp-2", later, time.Minute)
	if err != nil {
		t.Fatalf("reserve after expiry: %v", err)
	}
	if second.State != ReservationStateNew {
		t.Fatalf("recycled reservation state = %d, want new", second.State)
	}

	removed, err := store.CleanupExpired(context.Background(), later.Add(2*time.Minute), 10)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("cleanup removed = %d, want 1", removed)
	}
}

func newQuoteRequest(t *testing.T, key, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/quotes", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	return req
}
