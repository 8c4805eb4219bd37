package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

const (
	testAdmin    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	testAlice    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testBob      = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestMarketplace creates a marketplace descriptor
func buildTestMarketplace() *schema.Marketplace {
	return &schema.Marketplace{
		Name:            domain.MARKETPLACE_NAME,
		Symbol:          domain.MARKETPLACE_SYMBOL,
		Administrator:   testAdmin,
		ContractAddress: testContract,
		DeployedAt:      time.Now().UTC(),
	}
}

// deployTestMarketplace stores a marketplace descriptor
func deployTestMarketplace(t *testing.T, store Store) {
	require.NoError(t, store.CreateMarketplace(context.Background(), buildTestMarketplace()))
}

// mintTestToken allocates an id and stores a token owned by owner
func mintTestToken(t *testing.T, store Store, owner string) uint64 {
	ctx := context.Background()

	id, err := store.AllocateTokenID(ctx)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, store.CreateToken(ctx, &schema.Token{
		ID:              id,
		Owner:           owner,
		MetadataPointer: fmt.Sprintf("https://w3b.com/token%d", id),
		MintedAt:        now,
		UpdatedAt:       now,
	}))

	return id
}

// listTestToken stores an active listing for a token
func listTestToken(t *testing.T, store Store, tokenID uint64, seller string, price string) *schema.Listing {
	listing := &schema.Listing{
		TokenID:   tokenID,
		Seller:    seller,
		Price:     price,
		Status:    schema.ListingStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateListing(context.Background(), listing))
	require.NotZero(t, listing.ID)

	return listing
}

// buildTestEvent creates a journal event
func buildTestEvent(eventType domain.EventType, tokenID *uint64) schema.MarketplaceEvent {
	amount := "1000"
	return schema.MarketplaceEvent{
		EventID:     fmt.Sprintf("%s-%d", eventType, time.Now().UnixNano()),
		EventType:   string(eventType),
		TokenID:     tokenID,
		FromAddress: stringPtr(testAlice),
		Amount:      &amount,
		Payload:     datatypes.JSON(`{"type":"` + string(eventType) + `"}`),
		Timestamp:   time.Now().UTC(),
	}
}

func stringPtr(s string) *string {
	return &s
}

// =============================================================================
// Test: Marketplace
// =============================================================================

func testMarketplace(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("not deployed", func(t *testing.T) {
		marketplace, err := store.GetMarketplace(ctx)
		require.NoError(t, err)
		assert.Nil(t, marketplace)

		_, err = store.AllocateTokenID(ctx)
		assert.ErrorIs(t, err, domain.ErrNotDeployed)
	})

	t.Run("deploy once", func(t *testing.T) {
		input := buildTestMarketplace()
		require.NoError(t, store.CreateMarketplace(ctx, input))
		assert.Equal(t, int64(1), input.ID)

		marketplace, err := store.GetMarketplace(ctx)
		require.NoError(t, err)
		require.NotNil(t, marketplace)
		assert.Equal(t, domain.MARKETPLACE_NAME, marketplace.Name)
		assert.Equal(t, domain.MARKETPLACE_SYMBOL, marketplace.Symbol)
		assert.Equal(t, testAdmin, marketplace.Administrator)
		assert.Equal(t, testContract, marketplace.ContractAddress)
		assert.Equal(t, uint64(1), marketplace.NextTokenID)
	})

	t.Run("second deploy fails", func(t *testing.T) {
		err := store.CreateMarketplace(ctx, buildTestMarketplace())
		assert.ErrorIs(t, err, domain.ErrAlreadyDeployed)
	})

	t.Run("token ids are sequential from one", func(t *testing.T) {
		for want := uint64(1); want <= 3; want++ {
			id, err := store.AllocateTokenID(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, id)
		}

		marketplace, err := store.GetMarketplace(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), marketplace.NextTokenID)
	})
}

// =============================================================================
// Test: Tokens
// =============================================================================

func testTokens(t *testing.T, store Store) {
	ctx := context.Background()
	deployTestMarketplace(t, store)

	t.Run("unknown token", func(t *testing.T) {
		token, err := store.GetToken(ctx, 99)
		require.NoError(t, err)
		assert.Nil(t, token)

		err = store.UpdateTokenOwner(ctx, 99, testBob, time.Now())
		assert.ErrorIs(t, err, domain.ErrUnknownToken)
	})

	first := mintTestToken(t, store, testAlice)
	second := mintTestToken(t, store, testAlice)
	third := mintTestToken(t, store, testBob)

	t.Run("get token", func(t *testing.T) {
		token, err := store.GetToken(ctx, first)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, testAlice, token.Owner)
		assert.Equal(t, "https://w3b.com/token1", token.MetadataPointer)
	})

	t.Run("count and owners", func(t *testing.T) {
		count, err := store.CountTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), count)

		ids, err := store.GetTokenIDsByOwner(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, []uint64{first, second}, ids)

		ids, err = store.GetTokenIDsByOwner(ctx, testAdmin)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("transfer ownership", func(t *testing.T) {
		require.NoError(t, store.UpdateTokenOwner(ctx, second, testBob, time.Now().UTC()))

		token, err := store.GetToken(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, testBob, token.Owner)
		assert.Equal(t, "https://w3b.com/token2", token.MetadataPointer)

		ids, err := store.GetTokenIDsByOwner(ctx, testBob)
		require.NoError(t, err)
		assert.Equal(t, []uint64{second, third}, ids)
	})
}

// =============================================================================
// Test: Listings
// =============================================================================

func testListings(t *testing.T, store Store) {
	ctx := context.Background()
	deployTestMarketplace(t, store)
	tokenID := mintTestToken(t, store, testAlice)

	t.Run("never listed", func(t *testing.T) {
		listing, err := store.GetLatestListing(ctx, tokenID)
		require.NoError(t, err)
		assert.Nil(t, listing)

		listings, err := store.GetListings(ctx, tokenID)
		require.NoError(t, err)
		assert.Empty(t, listings)
	})

	first := listTestToken(t, store, tokenID, testAlice, "1000000000000000000")

	t.Run("latest listing is active", func(t *testing.T) {
		listing, err := store.GetLatestListing(ctx, tokenID)
		require.NoError(t, err)
		require.NotNil(t, listing)
		assert.Equal(t, first.ID, listing.ID)
		assert.Equal(t, schema.ListingStatusActive, listing.Status)
		assert.Equal(t, "1000000000000000000", listing.Price)
		assert.Nil(t, listing.Buyer)
		assert.Nil(t, listing.ClosedAt)
	})

	t.Run("close unknown listing", func(t *testing.T) {
		err := store.CloseListing(ctx, CloseListingInput{
			ListingID: first.ID + 1000,
			Status:    schema.ListingStatusCanceled,
			ClosedAt:  time.Now().UTC(),
		})
		assert.ErrorIs(t, err, domain.ErrUnknownListing)
	})

	t.Run("cancel then close again", func(t *testing.T) {
		require.NoError(t, store.CloseListing(ctx, CloseListingInput{
			ListingID: first.ID,
			Status:    schema.ListingStatusCanceled,
			ClosedAt:  time.Now().UTC(),
		}))

		err := store.CloseListing(ctx, CloseListingInput{
			ListingID: first.ID,
			Status:    schema.ListingStatusSold,
			Buyer:     stringPtr(testBob),
			ClosedAt:  time.Now().UTC(),
		})
		assert.ErrorIs(t, err, domain.ErrNotActive)

		listing, err := store.GetLatestListing(ctx, tokenID)
		require.NoError(t, err)
		assert.Equal(t, schema.ListingStatusCanceled, listing.Status)
		assert.NotNil(t, listing.ClosedAt)
	})

	t.Run("relist and sell", func(t *testing.T) {
		second := listTestToken(t, store, tokenID, testAlice, "2000")
		assert.Greater(t, second.ID, first.ID)

		require.NoError(t, store.CloseListing(ctx, CloseListingInput{
			ListingID: second.ID,
			Status:    schema.ListingStatusSold,
			Buyer:     stringPtr(testBob),
			ClosedAt:  time.Now().UTC(),
		}))

		latest, err := store.GetLatestListing(ctx, tokenID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.Equal(t, schema.ListingStatusSold, latest.Status)
		require.NotNil(t, latest.Buyer)
		assert.Equal(t, testBob, *latest.Buyer)

		history, err := store.GetListings(ctx, tokenID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, first.ID, history[0].ID)
		assert.Equal(t, second.ID, history[1].ID)
	})
}

// =============================================================================
// Test: Balances
// =============================================================================

func testBalances(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("unfunded account has zero balance", func(t *testing.T) {
		balance, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, 0, balance.Sign())
	})

	t.Run("set and overwrite", func(t *testing.T) {
		wei, _ := new(big.Int).SetString("10000000000000000000000", 10)
		require.NoError(t, store.SetBalance(ctx, testAlice, wei))

		balance, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, 0, wei.Cmp(balance))

		require.NoError(t, store.SetBalance(ctx, testAlice, big.NewInt(5)))
		balance, err = store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, int64(5), balance.Int64())
	})

	t.Run("returned balance is a copy", func(t *testing.T) {
		balance, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		balance.SetInt64(1000)

		again, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, int64(5), again.Int64())
	})

	t.Run("negative balance rejected", func(t *testing.T) {
		err := store.SetBalance(ctx, testBob, big.NewInt(-1))
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	})
}

// =============================================================================
// Test: Events
// =============================================================================

func testEvents(t *testing.T, store Store) {
	ctx := context.Background()
	tokenOne := uint64(1)
	tokenTwo := uint64(2)

	events := []schema.MarketplaceEvent{
		buildTestEvent(domain.EventTypeMint, &tokenOne),
		buildTestEvent(domain.EventTypeList, &tokenOne),
		buildTestEvent(domain.EventTypeMint, &tokenTwo),
		buildTestEvent(domain.EventTypeFund, nil),
	}
	for i := range events {
		events[i].EventID = fmt.Sprintf("01TESTEVENT%02d", i)
	}
	require.NoError(t, store.CreateEvents(ctx, events))
	require.NoError(t, store.CreateEvents(ctx, nil))

	t.Run("all events in commit order", func(t *testing.T) {
		got, total, err := store.GetEvents(ctx, EventQueryFilter{})
		require.NoError(t, err)
		assert.Equal(t, uint64(4), total)
		require.Len(t, got, 4)
		for i := range got {
			assert.Equal(t, events[i].EventID, got[i].EventID)
		}
		assert.Less(t, got[0].Cursor, got[3].Cursor)
		require.NotNil(t, got[0].Amount)
		assert.Equal(t, "1000", *got[0].Amount)
	})

	t.Run("filter by type", func(t *testing.T) {
		got, total, err := store.GetEvents(ctx, EventQueryFilter{EventTypes: []string{string(domain.EventTypeMint)}})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		assert.Equal(t, events[0].EventID, got[0].EventID)
		assert.Equal(t, events[2].EventID, got[1].EventID)
	})

	t.Run("filter by token", func(t *testing.T) {
		got, total, err := store.GetEvents(ctx, EventQueryFilter{TokenID: &tokenOne})
		require.NoError(t, err)
		assert.Equal(t, uint64(2), total)
		assert.Len(t, got, 2)
	})

	t.Run("paging", func(t *testing.T) {
		got, total, err := store.GetEvents(ctx, EventQueryFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, uint64(4), total)
		require.Len(t, got, 2)
		assert.Equal(t, events[1].EventID, got[0].EventID)
		assert.Equal(t, events[2].EventID, got[1].EventID)

		got, total, err = store.GetEvents(ctx, EventQueryFilter{Offset: 10})
		require.NoError(t, err)
		assert.Equal(t, uint64(4), total)
		assert.Empty(t, got)
	})

	t.Run("events after", func(t *testing.T) {
		got, err := store.GetEventsAfter(ctx, "", 10)
		require.NoError(t, err)
		assert.Len(t, got, 4)

		got, err = store.GetEventsAfter(ctx, events[1].EventID, 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[2].EventID, got[0].EventID)

		got, err = store.GetEventsAfter(ctx, events[0].EventID, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, events[1].EventID, got[0].EventID)

		got, err = store.GetEventsAfter(ctx, events[3].EventID, 10)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

// =============================================================================
// Test: Event cursor
// =============================================================================

func testEventCursor(t *testing.T, store Store) {
	ctx := context.Background()

	cursor, err := store.GetEventCursor(ctx, "jetstream")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, store.SetEventCursor(ctx, "jetstream", "01A"))
	require.NoError(t, store.SetEventCursor(ctx, "jetstream", "01B"))
	require.NoError(t, store.SetEventCursor(ctx, "webhook", "01C"))

	cursor, err = store.GetEventCursor(ctx, "jetstream")
	require.NoError(t, err)
	assert.Equal(t, "01B", cursor)

	cursor, err = store.GetEventCursor(ctx, "webhook")
	require.NoError(t, err)
	assert.Equal(t, "01C", cursor)
}

// =============================================================================
// Test: Transactions
// =============================================================================

func testTransactions(t *testing.T, store Store) {
	ctx := context.Background()
	deployTestMarketplace(t, store)
	tokenID := mintTestToken(t, store, testAlice)
	errAbort := errors.New("abort")

	t.Run("commit applies every write", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Store) error {
			if err := tx.UpdateTokenOwner(ctx, tokenID, testBob, time.Now().UTC()); err != nil {
				return err
			}
			return tx.SetBalance(ctx, testBob, big.NewInt(7))
		})
		require.NoError(t, err)

		token, err := store.GetToken(ctx, tokenID)
		require.NoError(t, err)
		assert.Equal(t, testBob, token.Owner)

		balance, err := store.GetBalance(ctx, testBob)
		require.NoError(t, err)
		assert.Equal(t, int64(7), balance.Int64())
	})

	t.Run("error discards every write", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Store) error {
			if err := tx.UpdateTokenOwner(ctx, tokenID, testAlice, time.Now().UTC()); err != nil {
				return err
			}
			if err := tx.SetBalance(ctx, testBob, big.NewInt(100)); err != nil {
				return err
			}

			// writes are visible inside the transaction
			token, err := tx.GetToken(ctx, tokenID)
			if err != nil {
				return err
			}
			assert.Equal(t, testAlice, token.Owner)

			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		token, err := store.GetToken(ctx, tokenID)
		require.NoError(t, err)
		assert.Equal(t, testBob, token.Owner)

		balance, err := store.GetBalance(ctx, testBob)
		require.NoError(t, err)
		assert.Equal(t, int64(7), balance.Int64())
	})

	t.Run("failed nested transaction only discards its own writes", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Store) error {
			if err := tx.SetBalance(ctx, testAlice, big.NewInt(1)); err != nil {
				return err
			}

			err := tx.RunInTx(ctx, func(inner Store) error {
				if err := inner.SetBalance(ctx, testAlice, big.NewInt(2)); err != nil {
					return err
				}
				return errAbort
			})
			assert.ErrorIs(t, err, errAbort)

			balance, err := tx.GetBalance(ctx, testAlice)
			if err != nil {
				return err
			}
			assert.Equal(t, int64(1), balance.Int64())
			return nil
		})
		require.NoError(t, err)

		balance, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, int64(1), balance.Int64())
	})

	t.Run("nested commit joins outer transaction", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx Store) error {
			if err := tx.RunInTx(ctx, func(inner Store) error {
				return inner.SetBalance(ctx, testAlice, big.NewInt(3))
			}); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		balance, err := store.GetBalance(ctx, testAlice)
		require.NoError(t, err)
		assert.Equal(t, int64(1), balance.Int64())
	})

	t.Run("token ids allocated in a failed transaction are reused", func(t *testing.T) {
		var allocated uint64
		err := store.RunInTx(ctx, func(tx Store) error {
			id, err := tx.AllocateTokenID(ctx)
			if err != nil {
				return err
			}
			allocated = id
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		id, err := store.AllocateTokenID(ctx)
		require.NoError(t, err)
		assert.Equal(t, allocated, id)
	})
}

// =============================================================================
// Test Runner
// =============================================================================

// RunStoreTests runs the store test suite against an implementation
func RunStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Marketplace", testMarketplace},
		{"Tokens", testTokens},
		{"Listings", testListings},
		{"Balances", testBalances},
		{"Events", testEvents},
		{"EventCursor", testEventCursor},
		{"Transactions", testTransactions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}
