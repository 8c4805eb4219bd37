package marketplace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// Mint creates a new token owned by caller. Minting is open to every account.
func (l *Ledger) Mint(ctx context.Context, caller domain.AccountID, metadataPointer string) (uint64, error) {
	if caller == domain.ZeroAccount {
		return 0, fmt.Errorf("%w: cannot mint to the zero address", domain.ErrInvalidAccount)
	}

	var tokenID uint64
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		if _, err := requireMarketplace(ctx, tx.store); err != nil {
			return err
		}

		id, err := tx.store.AllocateTokenID(ctx)
		if err != nil {
			return err
		}

		now := l.clock.Now().UTC()
		if err := tx.store.CreateToken(ctx, &schema.Token{
			ID:              id,
			Owner:           caller.Hex(),
			MetadataPointer: metadataPointer,
			MintedAt:        now,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}

		tokenID = id
		return tx.record(ctx, domain.Event{
			Type:            domain.EventTypeMint,
			TokenID:         domain.Uint64Ptr(id),
			To:              domain.AccountPtr(caller),
			MetadataPointer: metadataPointer,
		})
	})
	if err != nil {
		logger.WarnCtx(ctx, "Mint rejected", logger.Account("caller", caller), zap.Error(err))
		return 0, err
	}

	logger.DebugCtx(ctx, "Token minted", logger.TokenID(tokenID), logger.Account("owner", caller))
	return tokenID, nil
}

// GetToken returns a token by id
func (l *Ledger) GetToken(ctx context.Context, tokenID uint64) (*domain.Token, error) {
	var token *domain.Token
	err := l.read(ctx, func(st store.Store) error {
		t, err := requireToken(ctx, st, tokenID)
		if err != nil {
			return err
		}
		token = toDomainToken(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// OwnerOf returns the current owner of a token
func (l *Ledger) OwnerOf(ctx context.Context, tokenID uint64) (domain.AccountID, error) {
	token, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return domain.ZeroAccount, err
	}
	return token.Owner, nil
}

// MetadataOf returns the metadata pointer set when the token was minted
func (l *Ledger) MetadataOf(ctx context.Context, tokenID uint64) (string, error) {
	token, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return token.MetadataPointer, nil
}

// TokensOf returns the ids of the tokens held by owner in ascending order
func (l *Ledger) TokensOf(ctx context.Context, owner domain.AccountID) ([]uint64, error) {
	var ids []uint64
	err := l.read(ctx, func(st store.Store) error {
		var err error
		ids, err = st.GetTokenIDsByOwner(ctx, owner.Hex())
		return err
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// TotalSupply returns the number of minted tokens
func (l *Ledger) TotalSupply(ctx context.Context) (uint64, error) {
	var supply uint64
	err := l.read(ctx, func(st store.Store) error {
		var err error
		supply, err = st.CountTokens(ctx)
		return err
	})
	if err != nil {
		return 0, err
	}

	return supply, nil
}

// transferToken reassigns a token held by from to to
func (tx *txScope) transferToken(ctx context.Context, tokenID uint64, from, to domain.AccountID, at time.Time) error {
	token, err := requireToken(ctx, tx.store, tokenID)
	if err != nil {
		return err
	}
	if parseStoredAccount(token.Owner) != from {
		return fmt.Errorf("%w: token %d is held by %s, not %s", domain.ErrNotOwner, tokenID, token.Owner, from.Hex())
	}
	if to == domain.ZeroAccount {
		return fmt.Errorf("%w: cannot transfer token %d to the zero address", domain.ErrInvalidAccount, tokenID)
	}

	if err := tx.store.UpdateTokenOwner(ctx, tokenID, to.Hex(), at); err != nil {
		return err
	}

	return tx.record(ctx, domain.Event{
		Type:    domain.EventTypeTransfer,
		TokenID: domain.Uint64Ptr(tokenID),
		From:    domain.AccountPtr(from),
		To:      domain.AccountPtr(to),
	})
}

// requireToken loads a token, failing when it was never minted
func requireToken(ctx context.Context, st store.Store, tokenID uint64) (*schema.Token, error) {
	token, err := st.GetToken(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: token %d", domain.ErrUnknownToken, tokenID)
	}
	return token, nil
}
