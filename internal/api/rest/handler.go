package rest

import (
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest/dto"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// GetMarketplace returns the marketplace descriptor, contract balance and total supply
	// GET /api/v1/marketplace
	GetMarketplace(c *gin.Context)

	// Fund moves value from the caller into the contract account
	// POST /api/v1/marketplace/funds
	Fund(c *gin.Context)

	// Withdraw pays the whole contract balance out to the administrator
	// POST /api/v1/marketplace/withdrawals
	Withdraw(c *gin.Context)

	// Mint creates a token owned by the caller
	// POST /api/v1/tokens
	Mint(c *gin.Context)

	// GetToken returns a token with its owner and metadata pointer
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// GetListing returns the latest listing record of a token
	// GET /api/v1/tokens/:id/listing
	GetListing(c *gin.Context)

	// ListingHistory returns every listing record of a token
	// GET /api/v1/tokens/:id/listings
	ListingHistory(c *gin.Context)

	// List offers a token held by the caller for sale
	// POST /api/v1/tokens/:id/listing
	List(c *gin.Context)

	// Cancel closes the caller's active listing of a token
	// DELETE /api/v1/tokens/:id/listing
	Cancel(c *gin.Context)

	// Purchase buys a listed token for the caller
	// POST /api/v1/tokens/:id/purchase
	Purchase(c *gin.Context)

	// GetAccount returns an account's value balance and owned tokens
	// GET /api/v1/accounts/:address
	GetAccount(c *gin.Context)

	// ListEvents returns the event journal
	// GET /api/v1/events?type=<type1>,<type2>&token_id=<id>&limit=<limit>&offset=<offset>
	ListEvents(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	marketplace marketplace.Marketplace
}

// NewHandler creates a new REST API handler over the marketplace ledger
func NewHandler(m marketplace.Marketplace) Handler {
	return &handler{
		marketplace: m,
	}
}

func (h *handler) GetMarketplace(c *gin.Context) {
	info, err := h.marketplace.Info(c.Request.Context())
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get marketplace")
		return
	}

	c.JSON(http.StatusOK, dto.MapMarketplaceInfo(info))
}

func (h *handler) Fund(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req dto.FundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	balance, err := h.marketplace.Fund(c.Request.Context(), caller, amount)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to fund marketplace", logger.Account("caller", caller))
		return
	}

	c.JSON(http.StatusOK, dto.FundResponse{Balance: dto.Amount(balance)})
}

func (h *handler) Withdraw(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	amount, err := h.marketplace.Withdraw(c.Request.Context(), caller)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to withdraw", logger.Account("caller", caller))
		return
	}

	c.JSON(http.StatusOK, dto.WithdrawResponse{Amount: dto.Amount(amount)})
}

func (h *handler) Mint(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	tokenID, err := h.marketplace.Mint(c.Request.Context(), caller, req.MetadataPointer)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to mint token", logger.Account("caller", caller))
		return
	}

	c.JSON(http.StatusCreated, dto.MintResponse{TokenID: tokenID})
}

func (h *handler) GetToken(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	token, err := h.marketplace.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get token", logger.TokenID(tokenID))
		return
	}

	c.JSON(http.StatusOK, dto.MapToken(token))
}

func (h *handler) GetListing(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	listing, err := h.marketplace.GetListing(c.Request.Context(), tokenID)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get listing", logger.TokenID(tokenID))
		return
	}

	c.JSON(http.StatusOK, dto.MapListing(listing))
}

func (h *handler) ListingHistory(c *gin.Context) {
	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	listings, err := h.marketplace.ListingHistory(c.Request.Context(), tokenID)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get listing history", logger.TokenID(tokenID))
		return
	}

	c.JSON(http.StatusOK, dto.ListingHistoryResponse{Listings: dto.MapListings(listings)})
}

func (h *handler) List(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	// Zero and negative prices reach the ledger, which rejects them with InvalidPrice
	price, ok := parseSignedAmount(req.Price)
	if !ok {
		respondValidationError(c, "invalid price: "+req.Price)
		return
	}

	listing, err := h.marketplace.List(c.Request.Context(), caller, tokenID, price)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to list token", logger.TokenID(tokenID), logger.Account("caller", caller))
		return
	}

	c.JSON(http.StatusCreated, dto.MapListing(listing))
}

func (h *handler) Cancel(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	listing, err := h.marketplace.Cancel(c.Request.Context(), caller, tokenID)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to cancel listing", logger.TokenID(tokenID), logger.Account("caller", caller))
		return
	}

	c.JSON(http.StatusOK, dto.MapListing(listing))
}

func (h *handler) Purchase(c *gin.Context) {
	caller, ok := middleware.Caller(c)
	if !ok {
		respondUnauthorized(c)
		return
	}

	tokenID, err := parseTokenID(c)
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	var req dto.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}
	payment, err := domain.ParseAmount(req.Payment)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	listing, err := h.marketplace.Buy(c.Request.Context(), caller, tokenID, payment)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to buy token",
			logger.TokenID(tokenID),
			logger.Account("caller", caller),
			logger.Amount("payment", payment),
		)
		return
	}

	c.JSON(http.StatusOK, dto.MapListing(listing))
}

func (h *handler) GetAccount(c *gin.Context) {
	account, err := domain.ParseAccount(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid account address", err.Error())
		return
	}

	ctx := c.Request.Context()
	balance, err := h.marketplace.BalanceOf(ctx, account)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get balance", logger.Account("account", account))
		return
	}
	tokens, err := h.marketplace.TokensOf(ctx, account)
	if err != nil {
		respondMarketplaceError(c, err, "Failed to get tokens", logger.Account("account", account))
		return
	}
	if tokens == nil {
		tokens = []uint64{}
	}

	c.JSON(http.StatusOK, dto.AccountResponse{
		Address: account.Hex(),
		Balance: dto.Amount(balance),
		Tokens:  tokens,
	})
}

func (h *handler) ListEvents(c *gin.Context) {
	queryParams, err := ParseListEventsQuery(c)
	if err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}
	if err := queryParams.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	events, total, err := h.marketplace.Events(c.Request.Context(), queryParams.Filter())
	if err != nil {
		respondMarketplaceError(c, err, "Failed to list events", zap.Strings("types", queryParams.Types))
		return
	}

	c.JSON(http.StatusOK, dto.EventListResponse{
		Events: dto.MapEvents(events),
		Total:  total,
		Offset: queryParams.Offset,
	})
}

func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// parseSignedAmount parses a decimal integer that may be negative
func parseSignedAmount(s string) (*big.Int, bool) {
	return new(big.Int).SetString(strings.TrimSpace(s), 10)
}
