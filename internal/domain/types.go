package domain

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/params"
)

// AccountID identifies an account holding tokens or value.
// The marketplace's own contract account is an AccountID as well.
type AccountID = common.Address

// ZeroAccount is the zero address. It never owns tokens and never holds value.
var ZeroAccount = common.HexToAddress(ETHEREUM_ZERO_ADDRESS)

// ParseAccount parses a hex address into an AccountID
func ParseAccount(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAccount, fmt.Errorf("%w: %q", ErrInvalidAccount, s)
	}
	account := common.HexToAddress(s)
	if account == ZeroAccount {
		return ZeroAccount, fmt.Errorf("%w: zero address", ErrInvalidAccount)
	}
	return account, nil
}

// ParseAmount parses a non-negative integer amount of wei
func ParseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %s", ErrInvalidAmount, s)
	}
	if !IsUint256(amount) {
		return nil, fmt.Errorf("%w: %s exceeds 2^256-1", ErrInvalidAmount, s)
	}
	return amount, nil
}

// IsUint256 reports whether amount fits an unsigned 256-bit value
func IsUint256(amount *big.Int) bool {
	return amount.Sign() >= 0 && amount.Cmp(math.MaxBig256) <= 0
}

// ParseEther converts a decimal ether amount (e.g. "0.5") into wei
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > ETHER_DECIMALS {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, ETHER_DECIMALS)
	}

	wholeWei, err := ParseAmount(whole)
	if err != nil {
		return nil, err
	}
	wholeWei.Mul(wholeWei, big.NewInt(params.Ether))

	if frac != "" {
		fracWei, err := ParseAmount(frac + strings.Repeat("0", ETHER_DECIMALS-len(frac)))
		if err != nil {
			return nil, err
		}
		wholeWei.Add(wholeWei, fracWei)
	}
	if !IsUint256(wholeWei) {
		return nil, fmt.Errorf("%w: %s exceeds 2^256-1 wei", ErrInvalidAmount, s)
	}
	return wholeWei, nil
}

// Ether returns n whole units of native value in wei
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// Token is a uniquely identified non-fungible item
type Token struct {
	ID              uint64
	Owner           AccountID
	MetadataPointer string
	MintedAt        time.Time
}

// ListingStatus is the lifecycle state of a listing record
type ListingStatus string

const (
	ListingStatusActive   ListingStatus = "active"
	ListingStatusSold     ListingStatus = "sold"
	ListingStatusCanceled ListingStatus = "canceled"
)

// Listing is a standing offer to sell one token at a fixed price.
// Records are never deleted; a closed listing keeps its last state.
type Listing struct {
	ID        uint64
	TokenID   uint64
	Seller    AccountID
	Price     *big.Int
	Status    ListingStatus
	Buyer     *AccountID
	CreatedAt time.Time
	ClosedAt  *time.Time
}

// IsActive reports whether the listing can still be bought or canceled
func (l *Listing) IsActive() bool {
	return l != nil && l.Status == ListingStatusActive
}

// EventType represents the type of marketplace event
type EventType string

const (
	EventTypeMint     EventType = "mint"
	EventTypeList     EventType = "list"
	EventTypeCancel   EventType = "cancel"
	EventTypeSale     EventType = "sale"
	EventTypeTransfer EventType = "transfer"
	EventTypePayment  EventType = "payment"
	EventTypeWithdraw EventType = "withdraw"
	EventTypeFund     EventType = "fund"
)

// Event is a committed marketplace state change.
// This is the format recorded in the journal and published to NATS.
type Event struct {
	ID              string     `json:"id"`                         // ULID, sortable by commit order
	Type            EventType  `json:"type"`                       // mint, list, cancel, sale, transfer, payment, withdraw, fund
	TokenID         *uint64    `json:"token_id,omitempty"`         // token involved
	ListingID       *uint64    `json:"listing_id,omitempty"`       // listing involved
	From            *AccountID `json:"from,omitempty"`             // sender / seller
	To              *AccountID `json:"to,omitempty"`               // recipient / buyer
	Amount          string     `json:"amount,omitempty"`           // wei, decimal string
	MetadataPointer string     `json:"metadata_pointer,omitempty"` // mint only
	Timestamp       time.Time  `json:"timestamp"`
}

// MarketplaceInfo describes a deployed marketplace
type MarketplaceInfo struct {
	Name            string
	Symbol          string
	Administrator   AccountID
	ContractAddress AccountID
	DeployedAt      time.Time
	TotalSupply     uint64
	Balance         *big.Int
}

// AccountPtr returns a pointer to a copy of a
func AccountPtr(a AccountID) *AccountID {
	return &a
}

// Uint64Ptr returns a pointer to a copy of v
func Uint64Ptr(v uint64) *uint64 {
	return &v
}
