package store

import (
	"context"
	"fmt"
	"math/big"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// memoryState is the full ledger state of an in-memory store.
// Stored values are never mutated in place, so clone only copies containers.
type memoryState struct {
	marketplace *schema.Marketplace
	tokens      map[uint64]schema.Token
	listings    []schema.Listing // index = ID - 1
	balances    map[string]*big.Int
	events      []schema.MarketplaceEvent // index = Cursor - 1
	kv          map[string]string
}

func newMemoryState() *memoryState {
	return &memoryState{
		tokens:   make(map[uint64]schema.Token),
		balances: make(map[string]*big.Int),
		kv:       make(map[string]string),
	}
}

func (m *memoryState) clone() *memoryState {
	c := &memoryState{
		tokens:   make(map[uint64]schema.Token, len(m.tokens)),
		listings: slices.Clone(m.listings),
		balances: make(map[string]*big.Int, len(m.balances)),
		events:   slices.Clone(m.events),
		kv:       make(map[string]string, len(m.kv)),
	}
	if m.marketplace != nil {
		mp := *m.marketplace
		c.marketplace = &mp
	}
	for k, v := range m.tokens {
		c.tokens[k] = v
	}
	for k, v := range m.balances {
		c.balances[k] = v
	}
	for k, v := range m.kv {
		c.kv[k] = v
	}
	return c
}

// memoryStore keeps the ledger in process memory.
//
// The root store serializes access with a mutex held for the whole of RunInTx.
// A transaction works on a cache-wrapped copy of its parent's state which is
// written back on success and discarded on error; nesting gives savepoints.
type memoryStore struct {
	mu    *sync.RWMutex // nil inside a transaction, whose root already holds the lock
	state *memoryState
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		mu:    &sync.RWMutex{},
		state: newMemoryState(),
	}
}

func (s *memoryStore) lock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memoryStore) rlock() func() {
	if s.mu == nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// RunInTx runs fn against a cache-wrapped copy of the current state
func (s *memoryStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	unlock := s.lock()
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryStore{state: s.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	s.state = tx.state
	return nil
}

func (s *memoryStore) CreateMarketplace(ctx context.Context, marketplace *schema.Marketplace) error {
	unlock := s.lock()
	defer unlock()

	if s.state.marketplace != nil {
		return domain.ErrAlreadyDeployed
	}
	mp := *marketplace
	mp.ID = 1
	if mp.NextTokenID == 0 {
		mp.NextTokenID = 1
	}
	s.state.marketplace = &mp
	*marketplace = mp
	return nil
}

func (s *memoryStore) GetMarketplace(ctx context.Context) (*schema.Marketplace, error) {
	unlock := s.rlock()
	defer unlock()

	if s.state.marketplace == nil {
		return nil, nil
	}
	mp := *s.state.marketplace
	return &mp, nil
}

func (s *memoryStore) AllocateTokenID(ctx context.Context) (uint64, error) {
	unlock := s.lock()
	defer unlock()

	if s.state.marketplace == nil {
		return 0, domain.ErrNotDeployed
	}
	mp := *s.state.marketplace
	id := mp.NextTokenID
	mp.NextTokenID++
	s.state.marketplace = &mp
	return id, nil
}

func (s *memoryStore) CreateToken(ctx context.Context, token *schema.Token) error {
	unlock := s.lock()
	defer unlock()

	if _, exists := s.state.tokens[token.ID]; exists {
		return fmt.Errorf("token %d already exists", token.ID)
	}
	s.state.tokens[token.ID] = *token
	return nil
}

func (s *memoryStore) GetToken(ctx context.Context, tokenID uint64) (*schema.Token, error) {
	unlock := s.rlock()
	defer unlock()

	token, ok := s.state.tokens[tokenID]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (s *memoryStore) UpdateTokenOwner(ctx context.Context, tokenID uint64, owner string, updatedAt time.Time) error {
	unlock := s.lock()
	defer unlock()

	token, ok := s.state.tokens[tokenID]
	if !ok {
		return domain.ErrUnknownToken
	}
	token.Owner = owner
	token.UpdatedAt = updatedAt
	s.state.tokens[tokenID] = token
	return nil
}

func (s *memoryStore) GetTokenIDsByOwner(ctx context.Context, owner string) ([]uint64, error) {
	unlock := s.rlock()
	defer unlock()

	ids := []uint64{}
	for id, token := range s.state.tokens {
		if token.Owner == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memoryStore) CountTokens(ctx context.Context) (uint64, error) {
	unlock := s.rlock()
	defer unlock()

	return uint64(len(s.state.tokens)), nil
}

func (s *memoryStore) CreateListing(ctx context.Context, listing *schema.Listing) error {
	unlock := s.lock()
	defer unlock()

	if _, ok := s.state.tokens[listing.TokenID]; !ok {
		return domain.ErrUnknownToken
	}
	if listing.Status == schema.ListingStatusActive {
		if latest := s.latestListing(listing.TokenID); latest != nil && latest.Status == schema.ListingStatusActive {
			return domain.ErrAlreadyListed
		}
	}

	l := *listing
	l.ID = uint64(len(s.state.listings)) + 1
	s.state.listings = append(s.state.listings, l)
	listing.ID = l.ID
	return nil
}

func (s *memoryStore) latestListing(tokenID uint64) *schema.Listing {
	for i := len(s.state.listings) - 1; i >= 0; i-- {
		if s.state.listings[i].TokenID == tokenID {
			l := s.state.listings[i]
			return &l
		}
	}
	return nil
}

func (s *memoryStore) GetLatestListing(ctx context.Context, tokenID uint64) (*schema.Listing, error) {
	unlock := s.rlock()
	defer unlock()

	return s.latestListing(tokenID), nil
}

func (s *memoryStore) GetListings(ctx context.Context, tokenID uint64) ([]schema.Listing, error) {
	unlock := s.rlock()
	defer unlock()

	listings := []schema.Listing{}
	for _, l := range s.state.listings {
		if l.TokenID == tokenID {
			listings = append(listings, l)
		}
	}
	return listings, nil
}

func (s *memoryStore) CloseListing(ctx context.Context, input CloseListingInput) error {
	unlock := s.lock()
	defer unlock()

	if input.ListingID == 0 || input.ListingID > uint64(len(s.state.listings)) {
		return domain.ErrUnknownListing
	}
	l := s.state.listings[input.ListingID-1]
	if l.Status != schema.ListingStatusActive {
		return domain.ErrNotActive
	}
	closedAt := input.ClosedAt
	l.Status = input.Status
	l.Buyer = input.Buyer
	l.ClosedAt = &closedAt
	s.state.listings[input.ListingID-1] = l
	return nil
}

func (s *memoryStore) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	unlock := s.rlock()
	defer unlock()

	balance, ok := s.state.balances[address]
	if !ok {
		return new(big.Int), nil
	}
	return new(big.Int).Set(balance), nil
}

func (s *memoryStore) SetBalance(ctx context.Context, address string, amount *big.Int) error {
	unlock := s.lock()
	defer unlock()

	if amount.Sign() < 0 {
		return domain.ErrInsufficientFunds
	}
	s.state.balances[address] = new(big.Int).Set(amount)
	return nil
}

func (s *memoryStore) CreateEvents(ctx context.Context, events []schema.MarketplaceEvent) error {
	unlock := s.lock()
	defer unlock()

	for _, e := range events {
		e.Cursor = int64(len(s.state.events)) + 1
		s.state.events = append(s.state.events, e)
	}
	return nil
}

func (s *memoryStore) GetEvents(ctx context.Context, filter EventQueryFilter) ([]schema.MarketplaceEvent, uint64, error) {
	unlock := s.rlock()
	defer unlock()

	matched := []schema.MarketplaceEvent{}
	for _, e := range s.state.events {
		if len(filter.EventTypes) > 0 && !slices.Contains(filter.EventTypes, e.EventType) {
			continue
		}
		if filter.TokenID != nil && (e.TokenID == nil || *e.TokenID != *filter.TokenID) {
			continue
		}
		matched = append(matched, e)
	}

	total := uint64(len(matched))
	if filter.Offset >= total {
		return []schema.MarketplaceEvent{}, total, nil
	}
	end := min(filter.Offset+uint64(normalizeLimit(filter.Limit)), total)
	return matched[filter.Offset:end], total, nil
}

func (s *memoryStore) GetEventsAfter(ctx context.Context, afterEventID string, limit int) ([]schema.MarketplaceEvent, error) {
	unlock := s.rlock()
	defer unlock()

	start := 0
	if afterEventID != "" {
		start = len(s.state.events)
		for i, e := range s.state.events {
			if e.EventID == afterEventID {
				start = i + 1
				break
			}
		}
	}

	end := min(start+normalizeLimit(limit), len(s.state.events))
	return slices.Clone(s.state.events[start:end]), nil
}
