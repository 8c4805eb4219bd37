package marketplace

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// List offers a token for sale. Checks run in order: the token exists, caller owns it,
// it has no active listing and the price is positive.
func (l *Ledger) List(ctx context.Context, caller domain.AccountID, tokenID uint64, price *big.Int) (*domain.Listing, error) {
	var listing *domain.Listing
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		token, err := requireToken(ctx, tx.store, tokenID)
		if err != nil {
			return err
		}
		if parseStoredAccount(token.Owner) != caller {
			return fmt.Errorf("%w: token %d", domain.ErrNotOwner, tokenID)
		}

		latest, err := tx.store.GetLatestListing(ctx, tokenID)
		if err != nil {
			return err
		}
		if latest != nil && latest.Status == schema.ListingStatusActive {
			return fmt.Errorf("%w: token %d", domain.ErrAlreadyListed, tokenID)
		}

		if price == nil || price.Sign() <= 0 || !domain.IsUint256(price) {
			return domain.ErrInvalidPrice
		}

		row := &schema.Listing{
			TokenID:   tokenID,
			Seller:    caller.Hex(),
			Price:     price.String(),
			Status:    schema.ListingStatusActive,
			CreatedAt: l.clock.Now().UTC(),
		}
		if err := tx.store.CreateListing(ctx, row); err != nil {
			return err
		}

		listing = toDomainListing(row)
		return tx.record(ctx, domain.Event{
			Type:      domain.EventTypeList,
			TokenID:   domain.Uint64Ptr(tokenID),
			ListingID: domain.Uint64Ptr(row.ID),
			From:      domain.AccountPtr(caller),
			Amount:    price.String(),
		})
	})
	if err != nil {
		logger.WarnCtx(ctx, "List rejected", logger.TokenID(tokenID), logger.Account("caller", caller), zap.Error(err))
		return nil, err
	}

	logger.DebugCtx(ctx, "Token listed",
		logger.TokenID(tokenID),
		logger.Account("seller", caller),
		logger.Amount("price", price))
	return listing, nil
}

// Cancel closes the active listing of a token. Ownership is untouched.
func (l *Ledger) Cancel(ctx context.Context, caller domain.AccountID, tokenID uint64) (*domain.Listing, error) {
	var listing *domain.Listing
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		active, err := requireActiveListing(ctx, tx.store, tokenID)
		if err != nil {
			return err
		}
		if parseStoredAccount(active.Seller) != caller {
			return fmt.Errorf("%w: listing %d of token %d", domain.ErrNotSeller, active.ID, tokenID)
		}

		closedAt := l.clock.Now().UTC()
		if err := tx.store.CloseListing(ctx, store.CloseListingInput{
			ListingID: active.ID,
			Status:    schema.ListingStatusCanceled,
			ClosedAt:  closedAt,
		}); err != nil {
			return err
		}

		active.Status = schema.ListingStatusCanceled
		active.ClosedAt = &closedAt
		listing = toDomainListing(active)

		return tx.record(ctx, domain.Event{
			Type:      domain.EventTypeCancel,
			TokenID:   domain.Uint64Ptr(tokenID),
			ListingID: domain.Uint64Ptr(active.ID),
			From:      domain.AccountPtr(caller),
		})
	})
	if err != nil {
		logger.WarnCtx(ctx, "Cancel rejected", logger.TokenID(tokenID), logger.Account("caller", caller), zap.Error(err))
		return nil, err
	}

	logger.DebugCtx(ctx, "Listing canceled", logger.TokenID(tokenID), logger.Account("seller", caller))
	return listing, nil
}

// GetListing returns the latest listing record of a token
func (l *Ledger) GetListing(ctx context.Context, tokenID uint64) (*domain.Listing, error) {
	var listing *domain.Listing
	err := l.read(ctx, func(st store.Store) error {
		latest, err := st.GetLatestListing(ctx, tokenID)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("%w: token %d", domain.ErrUnknownListing, tokenID)
		}
		listing = toDomainListing(latest)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return listing, nil
}

// ListingHistory returns every listing record of a token, oldest first
func (l *Ledger) ListingHistory(ctx context.Context, tokenID uint64) ([]domain.Listing, error) {
	var rows []schema.Listing
	err := l.read(ctx, func(st store.Store) error {
		var err error
		rows, err = st.GetListings(ctx, tokenID)
		return err
	})
	if err != nil {
		return nil, err
	}

	listings := make([]domain.Listing, len(rows))
	for i := range rows {
		listings[i] = *toDomainListing(&rows[i])
	}
	return listings, nil
}

// requireActiveListing loads the active listing of a token
func requireActiveListing(ctx context.Context, st store.Store, tokenID uint64) (*schema.Listing, error) {
	latest, err := st.GetLatestListing(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: %w: token %d", domain.ErrNotActive, domain.ErrUnknownListing, tokenID)
	}
	if latest.Status != schema.ListingStatusActive {
		return nil, fmt.Errorf("%w: token %d", domain.ErrNotActive, tokenID)
	}
	return latest, nil
}
