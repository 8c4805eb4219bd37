package dto

import (
	"math/big"
	"time"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Amounts are wei rendered as decimal strings

// MarketplaceResponse describes the deployed marketplace
type MarketplaceResponse struct {
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Administrator   string    `json:"administrator"`
	ContractAddress string    `json:"contract_address"`
	DeployedAt      time.Time `json:"deployed_at"`
	TotalSupply     uint64    `json:"total_supply"`
	Balance         string    `json:"balance"`
}

// TokenResponse describes a token and its owner
type TokenResponse struct {
	ID              uint64    `json:"id"`
	Owner           string    `json:"owner"`
	MetadataPointer string    `json:"metadata_pointer"`
	MintedAt        time.Time `json:"minted_at"`
}

// ListingResponse describes a listing record
type ListingResponse struct {
	ID        uint64     `json:"id"`
	TokenID   uint64     `json:"token_id"`
	Seller    string     `json:"seller"`
	Price     string     `json:"price"`
	Status    string     `json:"status"`
	IsActive  bool       `json:"is_active"`
	Buyer     *string    `json:"buyer,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// ListingHistoryResponse holds every listing record of a token
type ListingHistoryResponse struct {
	Listings []ListingResponse `json:"listings"`
}

// AccountResponse describes an account's value balance and tokens
type AccountResponse struct {
	Address string   `json:"address"`
	Balance string   `json:"balance"`
	Tokens  []uint64 `json:"tokens"`
}

// EventResponse is a journal event
type EventResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	TokenID         *uint64   `json:"token_id,omitempty"`
	ListingID       *uint64   `json:"listing_id,omitempty"`
	From            *string   `json:"from,omitempty"`
	To              *string   `json:"to,omitempty"`
	Amount          string    `json:"amount,omitempty"`
	MetadataPointer string    `json:"metadata_pointer,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// EventListResponse is a page of journal events
type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Total  uint64          `json:"total"`
	Offset uint64          `json:"offset"`
}

// MintRequest is the body of POST /tokens
type MintRequest struct {
	MetadataPointer string `json:"metadata_pointer" binding:"required"`
}

// MintResponse is returned after minting
type MintResponse struct {
	TokenID uint64 `json:"token_id"`
}

// ListRequest is the body of POST /tokens/:id/listing
type ListRequest struct {
	Price string `json:"price" binding:"required"`
}

// PurchaseRequest is the body of POST /tokens/:id/purchase
type PurchaseRequest struct {
	Payment string `json:"payment" binding:"required"`
}

// FundRequest is the body of POST /marketplace/funds
type FundRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// FundResponse holds the contract balance after funding
type FundResponse struct {
	Balance string `json:"balance"`
}

// WithdrawResponse holds the amount paid out to the administrator
type WithdrawResponse struct {
	Amount string `json:"amount"`
}

// HealthResponse is returned by the health check
type HealthResponse struct {
	Status string `json:"status"`
}

// Amount renders a wei amount, nil as zero
func Amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func accountPtr(a *domain.AccountID) *string {
	if a == nil {
		return nil
	}
	s := a.Hex()
	return &s
}

// MapMarketplaceInfo converts a marketplace descriptor
func MapMarketplaceInfo(info *domain.MarketplaceInfo) MarketplaceResponse {
	return MarketplaceResponse{
		Name:            info.Name,
		Symbol:          info.Symbol,
		Administrator:   info.Administrator.Hex(),
		ContractAddress: info.ContractAddress.Hex(),
		DeployedAt:      info.DeployedAt,
		TotalSupply:     info.TotalSupply,
		Balance:         Amount(info.Balance),
	}
}

// MapToken converts a token
func MapToken(token *domain.Token) TokenResponse {
	return TokenResponse{
		ID:              token.ID,
		Owner:           token.Owner.Hex(),
		MetadataPointer: token.MetadataPointer,
		MintedAt:        token.MintedAt,
	}
}

// MapListing converts a listing record
func MapListing(listing *domain.Listing) ListingResponse {
	return ListingResponse{
		ID:        listing.ID,
		TokenID:   listing.TokenID,
		Seller:    listing.Seller.Hex(),
		Price:     Amount(listing.Price),
		Status:    string(listing.Status),
		IsActive:  listing.IsActive(),
		Buyer:     accountPtr(listing.Buyer),
		CreatedAt: listing.CreatedAt,
		ClosedAt:  listing.ClosedAt,
	}
}

// MapListings converts a listing history
func MapListings(listings []domain.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, MapListing(&listings[i]))
	}
	return out
}

// MapEvents converts journal events
func MapEvents(events []domain.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			ID:              e.ID,
			Type:            string(e.Type),
			TokenID:         e.TokenID,
			ListingID:       e.ListingID,
			From:            accountPtr(e.From),
			To:              accountPtr(e.To),
			Amount:          e.Amount,
			MetadataPointer: e.MetadataPointer,
			Timestamp:       e.Timestamp,
		})
	}
	return out
}
