package messaging

import (
	"context"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Publisher defines the interface for publishing marketplace events to a message broker
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a committed marketplace event. Publishing the same
	// event id twice must not deliver it twice.
	PublishEvent(ctx context.Context, event *domain.Event) error
	// Close closes the connection
	Close()
}
