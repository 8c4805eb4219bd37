package schema

import "time"

// Marketplace represents the marketplaces table - the descriptor of the deployed ledger.
// A store holds at most one row; it is also the row locked to serialize ledger transactions.
type Marketplace struct {
	// ID is always 1
	ID int64 `gorm:"column:id;primaryKey"`
	// Name is the collection name (e.g. "NFTMarketplace")
	Name string `gorm:"column:name;not null;type:text"`
	// Symbol is the collection symbol (e.g. "NFTM")
	Symbol string `gorm:"column:symbol;not null;type:text"`
	// Administrator is the account allowed to withdraw the contract balance, fixed at deployment
	Administrator string `gorm:"column:administrator;not null;type:text"`
	// ContractAddress is the account holding the marketplace's own value balance
	ContractAddress string `gorm:"column:contract_address;not null;type:text"`
	// NextTokenID is the id the next mint receives
	NextTokenID uint64 `gorm:"column:next_token_id;not null;default:1"`
	// DeployedAt is the deployment timestamp
	DeployedAt time.Time `gorm:"column:deployed_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Marketplace model
func (Marketplace) TableName() string {
	return "marketplaces"
}
