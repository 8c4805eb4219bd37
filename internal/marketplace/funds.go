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

// Payment describes value delivered to an account
type Payment struct {
	From   domain.AccountID
	To     domain.AccountID
	Amount *big.Int
}

// Receiver runs when its account receives value. It is called inside the paying
// operation with a context that joins it, so calls it makes back into the ledger see
// that operation's state. Returning an error rejects the value and rolls the paying
// operation back.
type Receiver interface {
	Receive(ctx context.Context, payment Payment) error
}

// ReceiverFunc adapts a function to Receiver
type ReceiverFunc func(ctx context.Context, payment Payment) error

func (f ReceiverFunc) Receive(ctx context.Context, payment Payment) error {
	return f(ctx, payment)
}

// RegisterReceiver installs r as the receiver of account, replacing any previous one.
// A nil r removes it.
func (l *Ledger) RegisterReceiver(account domain.AccountID, r Receiver) {
	l.receiversMu.Lock()
	defer l.receiversMu.Unlock()

	if r == nil {
		delete(l.receivers, account)
		return
	}
	l.receivers[account] = r
}

func (l *Ledger) receiver(account domain.AccountID) Receiver {
	l.receiversMu.RLock()
	defer l.receiversMu.RUnlock()

	return l.receivers[account]
}

// moveValue debits from and credits to, then runs the receiver of to
func (tx *txScope) moveValue(ctx context.Context, from, to domain.AccountID, amount *big.Int) error {
	fromBalance, err := tx.store.GetBalance(ctx, from.Hex())
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s wei, needs %s", domain.ErrInsufficientFunds, from.Hex(), fromBalance, amount)
	}
	if err := tx.store.SetBalance(ctx, from.Hex(), new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}

	toBalance, err := tx.store.GetBalance(ctx, to.Hex())
	if err != nil {
		return err
	}
	if err := tx.store.SetBalance(ctx, to.Hex(), new(big.Int).Add(toBalance, amount)); err != nil {
		return err
	}

	if err := tx.record(ctx, domain.Event{
		Type:   domain.EventTypePayment,
		From:   domain.AccountPtr(from),
		To:     domain.AccountPtr(to),
		Amount: amount.String(),
	}); err != nil {
		return err
	}

	if r := tx.ledger.receiver(to); r != nil {
		payment := Payment{From: from, To: to, Amount: new(big.Int).Set(amount)}
		if err := r.Receive(ctx, payment); err != nil {
			return fmt.Errorf("%w: %s rejected %s wei: %v", domain.ErrTransferFailed, to.Hex(), amount, err)
		}
	}

	return nil
}

// Buy purchases the listed token for caller.
//
// The listing is closed and the token moved before any value is paid out, so a
// receiver re-entering the ledger finds the listing no longer active. The whole
// payment is taken into the contract account and exactly the price is forwarded to
// the seller; any excess stays there as administrator balance.
func (l *Ledger) Buy(ctx context.Context, caller domain.AccountID, tokenID uint64, payment *big.Int) (*domain.Listing, error) {
	if caller == domain.ZeroAccount {
		return nil, fmt.Errorf("%w: buyer is the zero address", domain.ErrInvalidAccount)
	}
	if payment == nil || !domain.IsUint256(payment) {
		return nil, fmt.Errorf("%w: payment must be a non-negative 256-bit amount", domain.ErrInvalidAmount)
	}

	var listing *domain.Listing
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		marketplace, err := requireMarketplace(ctx, tx.store)
		if err != nil {
			return err
		}

		active, err := requireActiveListing(ctx, tx.store, tokenID)
		if err != nil {
			return err
		}
		price := parseStoredAmount(active.Price)
		if payment.Cmp(price) < 0 {
			return fmt.Errorf("%w: listing price is %s wei, got %s", domain.ErrInsufficientPayment, price, payment)
		}

		seller := parseStoredAccount(active.Seller)
		buyer := caller.Hex()
		closedAt := l.clock.Now().UTC()
		if err := tx.store.CloseListing(ctx, store.CloseListingInput{
			ListingID: active.ID,
			Status:    schema.ListingStatusSold,
			Buyer:     &buyer,
			ClosedAt:  closedAt,
		}); err != nil {
			return err
		}
		if err := tx.record(ctx, domain.Event{
			Type:      domain.EventTypeSale,
			TokenID:   domain.Uint64Ptr(tokenID),
			ListingID: domain.Uint64Ptr(active.ID),
			From:      domain.AccountPtr(seller),
			To:        domain.AccountPtr(caller),
			Amount:    price.String(),
		}); err != nil {
			return err
		}

		if err := tx.transferToken(ctx, tokenID, seller, caller, closedAt); err != nil {
			return err
		}

		contract := parseStoredAccount(marketplace.ContractAddress)
		if err := tx.moveValue(ctx, caller, contract, payment); err != nil {
			return err
		}
		if err := tx.moveValue(ctx, contract, seller, price); err != nil {
			return err
		}

		active.Status = schema.ListingStatusSold
		active.Buyer = &buyer
		active.ClosedAt = &closedAt
		listing = toDomainListing(active)
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "Buy rejected",
			logger.TokenID(tokenID),
			logger.Account("caller", caller),
			logger.Amount("payment", payment),
			zap.Error(err))
		return nil, err
	}

	logger.DebugCtx(ctx, "Token sold",
		logger.TokenID(tokenID),
		logger.Account("seller", listing.Seller),
		logger.Account("buyer", caller),
		logger.Amount("price", listing.Price),
		logger.Amount("payment", payment))
	return listing, nil
}

// Withdraw moves the whole contract balance to the administrator. A zero balance
// withdraws zero.
func (l *Ledger) Withdraw(ctx context.Context, caller domain.AccountID) (*big.Int, error) {
	var withdrawn *big.Int
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		marketplace, err := requireMarketplace(ctx, tx.store)
		if err != nil {
			return err
		}
		if parseStoredAccount(marketplace.Administrator) != caller {
			return fmt.Errorf("%w: %s", domain.ErrNotAdministrator, caller.Hex())
		}

		contract := parseStoredAccount(marketplace.ContractAddress)
		balance, err := tx.store.GetBalance(ctx, contract.Hex())
		if err != nil {
			return err
		}

		if err := tx.record(ctx, domain.Event{
			Type:   domain.EventTypeWithdraw,
			From:   domain.AccountPtr(contract),
			To:     domain.AccountPtr(caller),
			Amount: balance.String(),
		}); err != nil {
			return err
		}
		if err := tx.moveValue(ctx, contract, caller, balance); err != nil {
			return err
		}

		withdrawn = balance
		return nil
	})
	if err != nil {
		logger.WarnCtx(ctx, "Withdraw rejected", logger.Account("caller", caller), zap.Error(err))
		return nil, err
	}

	logger.InfoCtx(ctx, "Contract balance withdrawn", logger.Account("administrator", caller), logger.Amount("amount", withdrawn))
	return withdrawn, nil
}

// Fund moves amount from caller into the contract account
func (l *Ledger) Fund(ctx context.Context, caller domain.AccountID, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 || !domain.IsUint256(amount) {
		return nil, fmt.Errorf("%w: fund amount must be a positive 256-bit amount", domain.ErrInvalidAmount)
	}

	var balance *big.Int
	err := l.execute(ctx, func(ctx context.Context, tx *txScope) error {
		marketplace, err := requireMarketplace(ctx, tx.store)
		if err != nil {
			return err
		}

		contract := parseStoredAccount(marketplace.ContractAddress)
		if err := tx.record(ctx, domain.Event{
			Type:   domain.EventTypeFund,
			From:   domain.AccountPtr(caller),
			To:     domain.AccountPtr(contract),
			Amount: amount.String(),
		}); err != nil {
			return err
		}
		if err := tx.moveValue(ctx, caller, contract, amount); err != nil {
			return err
		}

		balance, err = tx.store.GetBalance(ctx, contract.Hex())
		return err
	})
	if err != nil {
		logger.WarnCtx(ctx, "Fund rejected", logger.Account("caller", caller), logger.Amount("amount", amount), zap.Error(err))
		return nil, err
	}

	logger.DebugCtx(ctx, "Contract funded", logger.Account("caller", caller), logger.Amount("amount", amount))
	return balance, nil
}
