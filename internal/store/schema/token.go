package schema

import (
	"time"
)

// Token represents the tokens table - the ownership registry
type Token struct {
	// ID is the token id, allocated sequentially from 1 by mint
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement:false"`
	// Owner is the current owner's address
	Owner string `gorm:"column:owner;not null;type:text;index:idx_tokens_owner"`
	// MetadataPointer is the token URI set at mint, never updated
	MetadataPointer string `gorm:"column:metadata_pointer;not null;type:text"`
	// MintedAt is the mint timestamp
	MintedAt time.Time `gorm:"column:minted_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last ownership change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
