package marketplace

import (
	"context"
	"fmt"
	"sort"

	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

type txScopeKey struct{}

// txScope is the state of an operation in flight. It travels in the context handed
// to receivers so that re-entrant calls join the enclosing transaction.
type txScope struct {
	ledger *Ledger
	store  store.Store
	events []domain.Event
}

func scopeFromContext(ctx context.Context) (*txScope, bool) {
	scope, ok := ctx.Value(txScopeKey{}).(*txScope)
	return scope, ok
}

// execute runs fn as one atomic operation.
//
// A top-level call takes the ledger lock, runs fn in a store transaction and, once
// committed, hands the recorded events to every sink. A call made from inside a running
// operation (a receiver re-entering the ledger) runs as a nested transaction of that
// operation: its failure discards only its own writes and events.
func (l *Ledger) execute(ctx context.Context, fn func(ctx context.Context, tx *txScope) error) error {
	if outer, ok := scopeFromContext(ctx); ok && outer.ledger == l {
		parent := outer.store
		mark := len(outer.events)

		err := parent.RunInTx(ctx, func(st store.Store) error {
			outer.store = st
			return fn(ctx, outer)
		})
		outer.store = parent
		if err != nil {
			outer.events = outer.events[:mark]
			return err
		}
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	scope := &txScope{ledger: l}
	txCtx := context.WithValue(ctx, txScopeKey{}, scope)
	err := l.store.RunInTx(txCtx, func(st store.Store) error {
		scope.store = st
		return fn(txCtx, scope)
	})
	if err != nil {
		return err
	}

	if len(scope.events) > 0 {
		for _, sink := range l.sinks {
			sink.Notify(ctx, scope.events)
		}
	}
	return nil
}

// read runs fn against the store of the operation in flight, if any
func (l *Ledger) read(ctx context.Context, fn func(st store.Store) error) error {
	if scope, ok := scopeFromContext(ctx); ok && scope.ledger == l && scope.store != nil {
		return fn(scope.store)
	}
	return fn(l.store)
}

// record appends an event to the journal of the transaction
func (tx *txScope) record(ctx context.Context, event domain.Event) error {
	now := tx.ledger.clock.Now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), tx.ledger.entropy)
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}
	event.ID = id.String()
	event.Timestamp = now

	payload, err := tx.ledger.json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	row := schema.MarketplaceEvent{
		EventID:     event.ID,
		EventType:   string(event.Type),
		TokenID:     event.TokenID,
		ListingID:   event.ListingID,
		FromAddress: accountString(event.From),
		ToAddress:   accountString(event.To),
		Payload:     datatypes.JSON(payload),
		Timestamp:   now,
	}
	if event.Amount != "" {
		amount := event.Amount
		row.Amount = &amount
	}

	if err := tx.store.CreateEvents(ctx, []schema.MarketplaceEvent{row}); err != nil {
		return err
	}

	tx.events = append(tx.events, event)
	return nil
}

func accountString(account *domain.AccountID) *string {
	if account == nil {
		return nil
	}
	s := account.Hex()
	return &s
}

// sortedAccounts returns the keys of m in ascending address order
func sortedAccounts[V any](m map[domain.AccountID]V) []domain.AccountID {
	accounts := make([]domain.AccountID, 0, len(m))
	for account := range m {
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Cmp(accounts[j]) < 0
	})
	return accounts
}
