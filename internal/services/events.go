package services

import (
	"context"
	"time"
)

// QuoteComputedMessage is the event payload emitted after each successful
// resolution, consumed by downstream analytics.
type QuoteComputedMessage struct {
	QuoteID      string    `json:"quoteId"`
	Strategy     string    `json:"strategy"`
	PostalCode   string    `json:"postalCode,omitempty"`
	State        string    `json:"state,omitempty"`
	Complete     bool      `json:"complete"`
	TotalPrice   int64     `json:"totalPrice"`
	PackageCount int       `json:"packageCount"`
	PlanCount    int       `json:"planCount"`
	ComputedAt   time.Time `json:"computedAt"`
}

// QuoteEventPublisher emits quote computed events. Implementations must be
// safe for concurrent use.
type QuoteEventPublisher interface {
	PublishQuoteComputed(ctx context.Context, message QuoteComputedMessage) (string, error)
}
