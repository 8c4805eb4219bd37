package schema

import (
	"time"
)

// AccountBalance represents the account_balances table - native value held per account,
// including the marketplace's own contract account
type AccountBalance struct {
	// Address is the account address
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Amount is the balance in wei (stored as string to support up to 78 digits)
	Amount string `gorm:"column:amount;not null;type:numeric(78,0)"`
	// UpdatedAt is the timestamp when this balance was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AccountBalance model
func (AccountBalance) TableName() string {
	return "account_balances"
}
