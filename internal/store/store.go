package store

import (
	"context"
	"math/big"
	"time"

	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// Store defines the interface for ledger persistence.
//
// All mutations of a ledger operation go through the Store handed to the RunInTx
// callback; they become visible together when the callback returns nil and are
// discarded together when it returns an error.
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	CursorStore

	// RunInTx runs fn inside a transaction. Calling RunInTx on the transactional
	// Store creates a savepoint: a failing inner callback only discards its own writes.
	RunInTx(ctx context.Context, fn func(tx Store) error) error

	// CreateMarketplace stores the marketplace descriptor, failing with domain.ErrAlreadyDeployed if one exists
	CreateMarketplace(ctx context.Context, marketplace *schema.Marketplace) error
	// GetMarketplace retrieves the marketplace descriptor (nil if not deployed)
	GetMarketplace(ctx context.Context) (*schema.Marketplace, error)
	// AllocateTokenID returns the next token id and advances the counter
	AllocateTokenID(ctx context.Context) (uint64, error)

	// CreateToken stores a newly minted token
	CreateToken(ctx context.Context, token *schema.Token) error
	// GetToken retrieves a token by id (nil if never minted)
	GetToken(ctx context.Context, tokenID uint64) (*schema.Token, error)
	// UpdateTokenOwner reassigns a token to a new owner
	UpdateTokenOwner(ctx context.Context, tokenID uint64, owner string, updatedAt time.Time) error
	// GetTokenIDsByOwner lists the ids of the tokens held by owner in ascending order
	GetTokenIDsByOwner(ctx context.Context, owner string) ([]uint64, error)
	// CountTokens returns the number of minted tokens
	CountTokens(ctx context.Context) (uint64, error)

	// CreateListing stores a new listing record and sets its ID
	CreateListing(ctx context.Context, listing *schema.Listing) error
	// GetLatestListing retrieves the most recent listing of a token (nil if never listed)
	GetLatestListing(ctx context.Context, tokenID uint64) (*schema.Listing, error)
	// GetListings retrieves every listing of a token, oldest first
	GetListings(ctx context.Context, tokenID uint64) ([]schema.Listing, error)
	// CloseListing moves an active listing to sold or canceled
	CloseListing(ctx context.Context, input CloseListingInput) error

	// GetBalance retrieves the value balance of an address (zero if never funded)
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	// SetBalance overwrites the value balance of an address
	SetBalance(ctx context.Context, address string, amount *big.Int) error

	// CreateEvents appends events to the journal in order
	CreateEvents(ctx context.Context, events []schema.MarketplaceEvent) error
	// GetEvents retrieves journal events matching the filter in commit order, with the total count
	GetEvents(ctx context.Context, filter EventQueryFilter) ([]schema.MarketplaceEvent, uint64, error)
	// GetEventsAfter retrieves up to limit events committed after the given event id ("" for the beginning)
	GetEventsAfter(ctx context.Context, afterEventID string, limit int) ([]schema.MarketplaceEvent, error)
}

// CloseListingInput holds the data for closing a listing
type CloseListingInput struct {
	ListingID uint64
	Status    schema.ListingStatus
	Buyer     *string
	ClosedAt  time.Time
}

// EventQueryFilter holds the filters for querying the event journal
type EventQueryFilter struct {
	EventTypes []string
	TokenID    *uint64
	Limit      int
	Offset     uint64
}

const (
	// DEFAULT_EVENTS_LIMIT is used when a filter has no limit
	DEFAULT_EVENTS_LIMIT = 50
	// MAX_EVENTS_LIMIT caps a single page of events
	MAX_EVENTS_LIMIT = 500
)

// normalizeLimit clamps a page size into (0, MAX_EVENTS_LIMIT]
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DEFAULT_EVENTS_LIMIT
	}
	return min(limit, MAX_EVENTS_LIMIT)
}
