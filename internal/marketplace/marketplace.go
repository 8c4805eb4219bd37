package marketplace

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// Marketplace is the interface of the marketplace ledger.
// Every mutating operation is one atomic transaction over ownership, listings and balances.
//
//go:generate mockgen -source=marketplace.go -destination=../mocks/marketplace.go -package=mocks -mock_names=Marketplace=MockMarketplace,EventSink=MockEventSink
type Marketplace interface {
	// Deploy instantiates the marketplace with deployer as administrator and seeds genesis balances
	Deploy(ctx context.Context, deployer domain.AccountID, allocations map[domain.AccountID]*big.Int) (*domain.MarketplaceInfo, error)
	// Info returns the marketplace descriptor with its contract balance and total supply
	Info(ctx context.Context) (*domain.MarketplaceInfo, error)

	// Mint creates a new token owned by caller and returns its id
	Mint(ctx context.Context, caller domain.AccountID, metadataPointer string) (uint64, error)
	// GetToken returns a token by id
	GetToken(ctx context.Context, tokenID uint64) (*domain.Token, error)
	// OwnerOf returns the current owner of a token
	OwnerOf(ctx context.Context, tokenID uint64) (domain.AccountID, error)
	// MetadataOf returns the metadata pointer of a token
	MetadataOf(ctx context.Context, tokenID uint64) (string, error)
	// TokensOf returns the ids of the tokens held by owner
	TokensOf(ctx context.Context, owner domain.AccountID) ([]uint64, error)
	// TotalSupply returns the number of minted tokens
	TotalSupply(ctx context.Context) (uint64, error)

	// List offers a token held by caller for sale at price
	List(ctx context.Context, caller domain.AccountID, tokenID uint64, price *big.Int) (*domain.Listing, error)
	// Cancel closes the active listing of a token on behalf of its seller
	Cancel(ctx context.Context, caller domain.AccountID, tokenID uint64) (*domain.Listing, error)
	// GetListing returns the latest listing record of a token, active or not
	GetListing(ctx context.Context, tokenID uint64) (*domain.Listing, error)
	// ListingHistory returns every listing record of a token, oldest first
	ListingHistory(ctx context.Context, tokenID uint64) ([]domain.Listing, error)

	// Buy purchases the listed token for caller, paying payment from caller's balance
	Buy(ctx context.Context, caller domain.AccountID, tokenID uint64, payment *big.Int) (*domain.Listing, error)
	// Withdraw moves the whole contract balance to the administrator and returns the amount moved
	Withdraw(ctx context.Context, caller domain.AccountID) (*big.Int, error)
	// Fund moves amount from caller into the contract account and returns the new contract balance
	Fund(ctx context.Context, caller domain.AccountID, amount *big.Int) (*big.Int, error)
	// BalanceOf returns the value balance of an account
	BalanceOf(ctx context.Context, account domain.AccountID) (*big.Int, error)

	// Events returns journal events matching the filter with the total count
	Events(ctx context.Context, filter EventFilter) ([]domain.Event, uint64, error)
}

// EventSink receives the events of each committed top-level operation, in commit order
type EventSink interface {
	Notify(ctx context.Context, events []domain.Event)
}

// EventFilter holds the filters for querying the event journal
type EventFilter struct {
	Types   []domain.EventType
	TokenID *uint64
	Limit   int
	Offset  uint64
}

// Ledger implements Marketplace on top of a store.Store
type Ledger struct {
	mu      sync.Mutex
	store   store.Store
	clock   adapter.Clock
	json    adapter.JSON
	entropy *ulid.LockedMonotonicReader
	sinks   []EventSink

	receiversMu sync.RWMutex
	receivers   map[domain.AccountID]Receiver
}

// Option configures a Ledger
type Option func(*Ledger)

// WithClock sets the clock used for timestamps
func WithClock(clock adapter.Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithJSON sets the encoder of journal payloads
func WithJSON(json adapter.JSON) Option {
	return func(l *Ledger) {
		l.json = json
	}
}

// WithEventSink adds a sink notified after each commit
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.sinks = append(l.sinks, sink)
	}
}

// New creates a ledger over st
func New(st store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     st,
		clock:     adapter.NewClock(),
		json:      adapter.NewJSON(),
		entropy:   &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)},
		receivers: make(map[domain.AccountID]Receiver),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deploy instantiates the marketplace in the store. The contract account address is
// derived from the deployer the way a first contract creation would be.
func (l *Ledger) Deploy(ctx context.Context, deployer domain.AccountID, allocations map[domain.AccountID]*big.Int) (*domain.MarketplaceInfo, error) {
	if deployer == domain.ZeroAccount {
		return nil, fmt.Errorf("%w: deployer is the zero address", domain.ErrInvalidAccount)
	}
	for account, amount := range allocations {
		if account == domain.ZeroAccount {
			return nil, fmt.Errorf("%w: genesis allocation to the zero address", domain.ErrInvalidAccount)
		}
		if amount == nil || !domain.IsUint256(amount) {
			return nil, fmt.Errorf("%w: genesis allocation for %s", domain.ErrInvalidAmount, account.Hex())
		}
	}

	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		now := l.clock.Now().UTC()
		marketplace := &schema.Marketplace{
			Name:            domain.MARKETPLACE_NAME,
			Symbol:          domain.MARKETPLACE_SYMBOL,
			Administrator:   deployer.Hex(),
			ContractAddress: crypto.CreateAddress(deployer, 0).Hex(),
			NextTokenID:     1,
			DeployedAt:      now,
		}
		if err := tx.store.CreateMarketplace(ctx, marketplace); err != nil {
			return err
		}

		for _, account := range sortedAccounts(allocations) {
			amount := allocations[account]
			if err := tx.store.SetBalance(ctx, account.Hex(), amount); err != nil {
				return err
			}
			if err := tx.record(ctx, domain.Event{
				Type:   domain.EventTypeFund,
				To:     domain.AccountPtr(account),
				Amount: amount.String(),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "Deploy rejected", logger.Account("deployer", deployer), zap.Error(err))
		return nil, err
	}

	info, err := l.Info(ctx)
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Marketplace deployed",
		logger.Account("administrator", info.Administrator),
		logger.Account("contract", info.ContractAddress),
		zap.Int("allocations", len(allocations)))

	return info, nil
}

// Info returns the marketplace descriptor
func (l *Ledger) Info(ctx context.Context) (*domain.MarketplaceInfo, error) {
	var info *domain.MarketplaceInfo
	err := l.read(ctx, func(st store.Store) error {
		marketplace, err := requireMarketplace(ctx, st)
		if err != nil {
			return err
		}
		supply, err := st.CountTokens(ctx)
		if err != nil {
			return err
		}
		balance, err := st.GetBalance(ctx, marketplace.ContractAddress)
		if err != nil {
			return err
		}

		info = &domain.MarketplaceInfo{
			Name:            marketplace.Name,
			Symbol:          marketplace.Symbol,
			Administrator:   parseStoredAccount(marketplace.Administrator),
			ContractAddress: parseStoredAccount(marketplace.ContractAddress),
			DeployedAt:      marketplace.DeployedAt,
			TotalSupply:     supply,
			Balance:         balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return info, nil
}

// BalanceOf returns the value balance of an account
func (l *Ledger) BalanceOf(ctx context.Context, account domain.AccountID) (*big.Int, error) {
	var balance *big.Int
	err := l.read(ctx, func(st store.Store) error {
		var err error
		balance, err = st.GetBalance(ctx, account.Hex())
		return err
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// Events returns journal events matching the filter
func (l *Ledger) Events(ctx context.Context, filter EventFilter) ([]domain.Event, uint64, error) {
	types := make([]string, len(filter.Types))
	for i, t := range filter.Types {
		types[i] = string(t)
	}

	var rows []schema.MarketplaceEvent
	var total uint64
	err := l.read(ctx, func(st store.Store) error {
		var err error
		rows, total, err = st.GetEvents(ctx, store.EventQueryFilter{
			EventTypes: types,
			TokenID:    filter.TokenID,
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		})
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	events := make([]domain.Event, len(rows))
	for i, row := range rows {
		events[i] = l.toDomainEvent(row)
	}

	return events, total, nil
}

// requireMarketplace loads the descriptor, failing when nothing is deployed
func requireMarketplace(ctx context.Context, st store.Store) (*schema.Marketplace, error) {
	marketplace, err := st.GetMarketplace(ctx)
	if err != nil {
		return nil, err
	}
	if marketplace == nil {
		return nil, domain.ErrNotDeployed
	}
	return marketplace, nil
}
