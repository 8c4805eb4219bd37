package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// CursorStore defines the interface for storing and retrieving event publisher cursors
type CursorStore interface {
	// GetEventCursor retrieves the id of the last event delivered to a sink ("" if none)
	GetEventCursor(ctx context.Context, sink string) (string, error)
	// SetEventCursor stores the id of the last event delivered to a sink
	SetEventCursor(ctx context.Context, sink string, eventID string) error
}

// eventCursorKey returns the key_value_store key of a sink cursor
func eventCursorKey(sink string) string {
	return fmt.Sprintf("event_cursor:%s", sink)
}

// GetEventCursor retrieves the id of the last event delivered to a sink
func (s *pgStore) GetEventCursor(ctx context.Context, sink string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", eventCursorKey(sink)).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get event cursor: %w", err)
	}

	return kv.Value, nil
}

// SetEventCursor stores the id of the last event delivered to a sink
func (s *pgStore) SetEventCursor(ctx context.Context, sink string, eventID string) error {
	kv := schema.KeyValueStore{
		Key:   eventCursorKey(sink),
		Value: eventID,
	}

	if err := s.db.WithContext(ctx).Save(&kv).Error; err != nil {
		return fmt.Errorf("failed to set event cursor: %w", err)
	}

	return nil
}

// GetEventCursor retrieves the id of the last event delivered to a sink
func (s *memoryStore) GetEventCursor(ctx context.Context, sink string) (string, error) {
	unlock := s.rlock()
	defer unlock()

	return s.state.kv[eventCursorKey(sink)], nil
}

// SetEventCursor stores the id of the last event delivered to a sink
func (s *memoryStore) SetEventCursor(ctx context.Context, sink string, eventID string) error {
	unlock := s.lock()
	defer unlock()

	s.state.kv[eventCursorKey(sink)] = eventID
	return nil
}
