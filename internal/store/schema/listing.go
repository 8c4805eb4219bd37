package schema

import (
	"time"
)

// ListingStatus represents the lifecycle state of a listing
type ListingStatus string

const (
	// ListingStatusActive indicates the listing can be bought or canceled
	ListingStatusActive ListingStatus = "active"
	// ListingStatusSold indicates the listing was closed by a purchase
	ListingStatusSold ListingStatus = "sold"
	// ListingStatusCanceled indicates the seller closed the listing
	ListingStatusCanceled ListingStatus = "canceled"
)

// Listing represents the listings table - the listing registry.
// Rows are never deleted; re-listing a token inserts a new row.
type Listing struct {
	// ID is the internal database primary key
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// TokenID references the listed token
	TokenID uint64 `gorm:"column:token_id;not null;index:idx_listings_token_id"`
	// Seller is the token owner at listing time
	Seller string `gorm:"column:seller;not null;type:text"`
	// Price is the asking price in wei (stored as string to support up to 78 digits)
	Price string `gorm:"column:price;not null;type:numeric(78,0)"`
	// Status is active, sold or canceled
	Status ListingStatus `gorm:"column:status;not null;type:text"`
	// Buyer is set when the listing is sold
	Buyer *string `gorm:"column:buyer;type:text"`
	// CreatedAt is the listing timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// ClosedAt is set when the listing is sold or canceled
	ClosedAt *time.Time `gorm:"column:closed_at;type:timestamptz"`

	// Associations
	Token Token `gorm:"foreignKey:TokenID"`
}

// TableName specifies the table name for the Listing model
func (Listing) TableName() string {
	return "listings"
}
