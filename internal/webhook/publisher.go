package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
)

// Config holds the webhook endpoints
type Config struct {
	Endpoints []Endpoint
}

type publisher struct {
	endpoints []Endpoint
	client    adapter.HTTPClient
	clock     adapter.Clock
	json      adapter.JSON
}

// NewPublisher creates a publisher delivering events to HTTP endpoints
func NewPublisher(cfg Config, client adapter.HTTPClient, clock adapter.Clock, jsonAdapter adapter.JSON) (messaging.Publisher, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no webhook endpoints configured")
	}
	for i, ep := range cfg.Endpoints {
		if ep.URL == "" {
			return nil, fmt.Errorf("webhook endpoint %d: url is required", i)
		}
		if ep.Secret == "" {
			return nil, fmt.Errorf("webhook endpoint %s: secret is required", ep.URL)
		}
	}

	return &publisher{
		endpoints: cfg.Endpoints,
		client:    client,
		clock:     clock,
		json:      jsonAdapter,
	}, nil
}

// PublishEvent delivers an event to every matching endpoint.
// A retryable failure on any endpoint fails the call, and the retry delivers to
// all matching endpoints again: receivers de-duplicate by event id.
func (p *publisher) PublishEvent(ctx context.Context, event *domain.Event) error {
	body, err := p.json.Marshal(Payload{
		EventID:   event.ID,
		EventType: event.Type,
		Timestamp: event.Timestamp,
		Data:      event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	for _, ep := range p.endpoints {
		if !ep.Matches(event.Type) {
			continue
		}

		result := p.deliver(ctx, ep, event.ID, body)
		switch {
		case result.Success:
			logger.DebugCtx(ctx, "Webhook delivered",
				zap.String("url", ep.URL),
				zap.String("id", event.ID),
				zap.Int("statusCode", result.StatusCode))
		case result.Retryable:
			errs = append(errs, fmt.Errorf("webhook %s: %s", ep.URL, result.Error))
		default:
			// the endpoint refused the event, retrying would not change that
			logger.WarnCtx(ctx, "Webhook rejected",
				zap.String("url", ep.URL),
				zap.String("id", event.ID),
				zap.Int("statusCode", result.StatusCode),
				zap.String("body", result.Body))
		}
	}

	return errors.Join(errs...)
}

// deliver signs and posts a payload to one endpoint
func (p *publisher) deliver(ctx context.Context, ep Endpoint, eventID string, body []byte) DeliveryResult {
	timestamp := p.clock.Now().Unix()
	headers := map[string]string{
		"Content-Type":   "application/json",
		SIGNATURE_HEADER: Sign(ep.Secret, timestamp, eventID, body),
		TIMESTAMP_HEADER: strconv.FormatInt(timestamp, 10),
		EVENT_ID_HEADER:  eventID,
	}

	status, respBody, err := p.client.Post(ctx, ep.URL, headers, body)
	if err != nil {
		return DeliveryResult{Retryable: true, StatusCode: status, Error: err.Error()}
	}

	result := DeliveryResult{StatusCode: status, Body: string(respBody)}
	switch {
	case status >= 200 && status < 300:
		result.Success = true
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		result.Retryable = true
		result.Error = fmt.Sprintf("unexpected status code %d", status)
	default:
		result.Error = fmt.Sprintf("unexpected status code %d", status)
	}
	return result
}

// Close is a no-op, deliveries hold no connection
func (p *publisher) Close() {}
