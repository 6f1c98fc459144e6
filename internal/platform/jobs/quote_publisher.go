package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/enviostack/shipping-api/internal/services"
)

// PubSubQuotePublisher publishes computed shipping quote events to a Pub/Sub topic.
type PubSubQuotePublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubQuotePublisher constructs a Pub/Sub backed quote event publisher.
func NewPubSubQuotePublisher(topic *pubsub.Topic) (*PubSubQuotePublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub quote publisher: topic is required")
	}
	return &PubSubQuotePublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishQuoteComputed enqueues a quote computed event on the configured topic.
func (p *PubSubQuotePublisher) PublishQuoteComputed(ctx context.Context, message services.QuoteComputedMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub quote publisher: not initialised")
	}

	data, err := p.marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal quote event: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "quoteId", message.QuoteID)
	setAttr(attrs, "strategy", message.Strategy)
	setAttr(attrs, "postalCode", message.PostalCode)
	setAttr(attrs, "state", message.State)
	if message.Complete {
		attrs["complete"] = "true"
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish quote event: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
