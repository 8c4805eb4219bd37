package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MarketplaceEvent represents the marketplace_events table - the journal of committed state changes
type MarketplaceEvent struct {
	// Cursor is an auto-incrementing sequence number giving the commit order
	Cursor int64 `gorm:"column:cursor;primaryKey;autoIncrement"`
	// EventID is the ULID of the event
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:text"`
	// EventType identifies the change (mint, list, cancel, sale, transfer, payment, withdraw, fund)
	EventType string `gorm:"column:event_type;not null;type:text;index:idx_marketplace_events_type"`
	// TokenID references the token involved, if any
	TokenID *uint64 `gorm:"column:token_id;index:idx_marketplace_events_token_id"`
	// ListingID references the listing involved, if any
	ListingID *uint64 `gorm:"column:listing_id"`
	// FromAddress is the sender / seller address
	FromAddress *string `gorm:"column:from_address;type:text"`
	// ToAddress is the recipient / buyer address
	ToAddress *string `gorm:"column:to_address;type:text"`
	// Amount is the value moved in wei
	Amount *string `gorm:"column:amount;type:numeric(78,0)"`
	// Payload is the complete event as published
	Payload datatypes.JSON `gorm:"column:payload;type:jsonb"`
	// Timestamp is when the change was committed
	Timestamp time.Time `gorm:"column:timestamp;not null;type:timestamptz"`
}

// TableName specifies the table name for the MarketplaceEvent model
func (MarketplaceEvent) TableName() string {
	return "marketplace_events"
}
