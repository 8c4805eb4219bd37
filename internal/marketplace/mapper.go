package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// parseStoredAccount converts an address written by the ledger back to an AccountID
func parseStoredAccount(s string) domain.AccountID {
	return common.HexToAddress(s)
}

func parseStoredAccountPtr(s *string) *domain.AccountID {
	if s == nil {
		return nil
	}
	return domain.AccountPtr(parseStoredAccount(*s))
}

// parseStoredAmount converts a numeric column to wei; malformed values read as zero
func parseStoredAmount(s string) *big.Int {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

func toDomainToken(token *schema.Token) *domain.Token {
	return &domain.Token{
		ID:              token.ID,
		Owner:           parseStoredAccount(token.Owner),
		MetadataPointer: token.MetadataPointer,
		MintedAt:        token.MintedAt,
	}
}

func toDomainListing(listing *schema.Listing) *domain.Listing {
	return &domain.Listing{
		ID:        listing.ID,
		TokenID:   listing.TokenID,
		Seller:    parseStoredAccount(listing.Seller),
		Price:     parseStoredAmount(listing.Price),
		Status:    domain.ListingStatus(listing.Status),
		Buyer:     parseStoredAccountPtr(listing.Buyer),
		CreatedAt: listing.CreatedAt,
		ClosedAt:  listing.ClosedAt,
	}
}

// toDomainEvent rebuilds an event from its journal row. The payload carries the
// published form; the columns are used when it is missing.
func (l *Ledger) toDomainEvent(row schema.MarketplaceEvent) domain.Event {
	var event domain.Event
	if len(row.Payload) > 0 && l.json.Unmarshal(row.Payload, &event) == nil && event.ID != "" {
		return event
	}

	event = domain.Event{
		ID:        row.EventID,
		Type:      domain.EventType(row.EventType),
		TokenID:   row.TokenID,
		ListingID: row.ListingID,
		From:      parseStoredAccountPtr(row.FromAddress),
		To:        parseStoredAccountPtr(row.ToAddress),
		Timestamp: row.Timestamp,
	}
	if row.Amount != nil {
		event.Amount = *row.Amount
	}
	return event
}
