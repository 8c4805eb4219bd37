package webhook

import (
	"slices"
	"time"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Delivery headers
const (
	SIGNATURE_HEADER = "X-Webhook-Signature"
	TIMESTAMP_HEADER = "X-Webhook-Timestamp"
	EVENT_ID_HEADER  = "X-Webhook-Event-ID"
)

// EventTypeWildcard is a special filter that matches all event types
const EventTypeWildcard = "*"

// Payload represents a webhook event delivered to an endpoint
type Payload struct {
	// EventID is the journal event id (ULID), stable across redeliveries
	EventID string `json:"event_id"`
	// EventType is the marketplace event type (e.g., "sale")
	EventType domain.EventType `json:"event_type"`
	// Timestamp is when the event was committed
	Timestamp time.Time `json:"timestamp"`
	// Data is the event itself
	Data *domain.Event `json:"data"`
}

// Endpoint is a webhook receiver
type Endpoint struct {
	URL    string
	Secret string
	// EventFilters lists the event types delivered; empty or "*" means all
	EventFilters []string
}

// Matches reports whether events of type t are delivered to the endpoint
func (e Endpoint) Matches(t domain.EventType) bool {
	if len(e.EventFilters) == 0 {
		return true
	}
	return slices.Contains(e.EventFilters, EventTypeWildcard) || slices.Contains(e.EventFilters, string(t))
}

// DeliveryResult represents the result of a webhook delivery attempt
type DeliveryResult struct {
	// Success indicates whether the endpoint accepted the event
	Success bool
	// Retryable is set for failures worth another attempt
	Retryable bool
	// StatusCode is the HTTP status code returned by the endpoint
	StatusCode int
	// Body is the response body (limited to 4KB)
	Body string
	// Error contains error details if delivery failed
	Error string
}
