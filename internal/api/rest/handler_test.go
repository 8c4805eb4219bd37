package rest_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-marketplace/internal/api/middleware"
	"github.com/feral-file/ff-marketplace/internal/api/rest"
	"github.com/feral-file/ff-marketplace/internal/api/rest/dto"
	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/marketplace"
	"github.com/feral-file/ff-marketplace/internal/mocks"
)

var (
	testAdmin  = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	testSeller = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBuyer  = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
)

var (
	signingKey     *rsa.PrivateKey
	signingKeyOnce sync.Once
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	signingKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		signingKey = key
	})
	return signingKey
}

type testServer struct {
	router *gin.Engine
	mock   *mocks.MockMarketplace
	key    *rsa.PrivateKey
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key := testKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	ctrl := gomock.NewController(t)
	mock := mocks.NewMockMarketplace(ctrl)

	router := gin.New()
	rest.SetupRoutes(router, rest.NewHandler(mock), middleware.AuthConfig{JWTPublicKey: publicKey})

	return &testServer{router: router, mock: mock, key: key}
}

func (s *testServer) token(t *testing.T, caller domain.AccountID) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   caller.Hex(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(s.key)
	require.NoError(t, err)
	return token
}

// do sends a request; a nil caller sends it unauthenticated
func (s *testServer) do(t *testing.T, method, path string, caller *domain.AccountID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *caller))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// amountEq matches a *big.Int by value
type amountEq struct{ v *big.Int }

func (m amountEq) Matches(x any) bool {
	a, ok := x.(*big.Int)
	return ok && a != nil && a.Cmp(m.v) == 0
}

func (m amountEq) String() string { return "amount " + m.v.String() }

func wei(v int64) gomock.Matcher { return amountEq{big.NewInt(v)} }

func activeListing(tokenID uint64, price int64) *domain.Listing {
	return &domain.Listing{
		ID:        1,
		TokenID:   tokenID,
		Seller:    testSeller,
		Price:     big.NewInt(price),
		Status:    domain.ListingStatusActive,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[dto.HealthResponse](t, w).Status)
}

func TestGetMarketplace(t *testing.T) {
	t.Run("deployed", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Info(gomock.Any()).Return(&domain.MarketplaceInfo{
			Name:            domain.MARKETPLACE_NAME,
			Symbol:          domain.MARKETPLACE_SYMBOL,
			Administrator:   testAdmin,
			ContractAddress: common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
			TotalSupply:     2,
			Balance:         domain.Ether(1),
		}, nil)

		w := s.do(t, http.MethodGet, "/api/v1/marketplace", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.MarketplaceResponse](t, w)
		assert.Equal(t, "NFTMarketplace", resp.Name)
		assert.Equal(t, testAdmin.Hex(), resp.Administrator)
		assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", resp.ContractAddress)
		assert.Equal(t, uint64(2), resp.TotalSupply)
		assert.Equal(t, "1000000000000000000", resp.Balance)
	})

	t.Run("not deployed", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Info(gomock.Any()).Return(nil, domain.ErrNotDeployed)

		w := s.do(t, http.MethodGet, "/api/v1/marketplace", nil, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apierrors.ErrCodeConflict, decode[apierrors.APIError](t, w).Code)
	})
}

func TestMint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Mint(gomock.Any(), testSeller, "https://w3b.com/token1").Return(uint64(1), nil)

		w := s.do(t, http.MethodPost, "/api/v1/tokens", &testSeller, dto.MintRequest{MetadataPointer: "https://w3b.com/token1"})

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, uint64(1), decode[dto.MintResponse](t, w).TokenID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/tokens", nil, dto.MintRequest{MetadataPointer: "ipfs://x"})

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing metadata pointer", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/tokens", &testSeller, map[string]string{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apierrors.ErrCodeBadRequest, decode[apierrors.APIError](t, w).Code)
	})
}

func TestGetToken(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().GetToken(gomock.Any(), uint64(7)).Return(&domain.Token{
			ID:              7,
			Owner:           testSeller,
			MetadataPointer: "ipfs://seven",
		}, nil)

		w := s.do(t, http.MethodGet, "/api/v1/tokens/7", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.TokenResponse](t, w)
		assert.Equal(t, uint64(7), resp.ID)
		assert.Equal(t, testSeller.Hex(), resp.Owner)
		assert.Equal(t, "ipfs://seven", resp.MetadataPointer)
	})

	t.Run("unknown token", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().GetToken(gomock.Any(), uint64(99)).Return(nil, fmt.Errorf("%w: 99", domain.ErrUnknownToken))

		w := s.do(t, http.MethodGet, "/api/v1/tokens/99", nil, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apierrors.ErrCodeNotFound, decode[apierrors.APIError](t, w).Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/tokens/abc", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetListing(t *testing.T) {
	s := setupTestServer(t)
	s.mock.EXPECT().GetListing(gomock.Any(), uint64(1)).Return(activeListing(1, 100), nil)
	s.mock.EXPECT().GetListing(gomock.Any(), uint64(2)).Return(nil, domain.ErrUnknownListing)

	w := s.do(t, http.MethodGet, "/api/v1/tokens/1/listing", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.ListingResponse](t, w)
	assert.Equal(t, "100", resp.Price)
	assert.True(t, resp.IsActive)
	assert.Equal(t, testSeller.Hex(), resp.Seller)
	assert.Nil(t, resp.Buyer)

	w = s.do(t, http.MethodGet, "/api/v1/tokens/2/listing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingHistory(t *testing.T) {
	s := setupTestServer(t)
	sold := activeListing(1, 100)
	sold.Status = domain.ListingStatusSold
	sold.Buyer = domain.AccountPtr(testBuyer)
	relisted := activeListing(1, 150)
	relisted.ID = 2
	relisted.Seller = testBuyer
	s.mock.EXPECT().ListingHistory(gomock.Any(), uint64(1)).Return([]domain.Listing{*sold, *relisted}, nil)

	w := s.do(t, http.MethodGet, "/api/v1/tokens/1/listings", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[dto.ListingHistoryResponse](t, w)
	require.Len(t, resp.Listings, 2)
	assert.Equal(t, "sold", resp.Listings[0].Status)
	assert.False(t, resp.Listings[0].IsActive)
	require.NotNil(t, resp.Listings[0].Buyer)
	assert.Equal(t, testBuyer.Hex(), *resp.Listings[0].Buyer)
	assert.True(t, resp.Listings[1].IsActive)
}

func TestList(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().List(gomock.Any(), testSeller, uint64(1), wei(100)).Return(activeListing(1, 100), nil)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/listing", &testSeller, dto.ListRequest{Price: "100"})

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "100", decode[dto.ListingResponse](t, w).Price)
	})

	t.Run("zero price reaches the ledger", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().List(gomock.Any(), testSeller, uint64(1), wei(0)).Return(nil, domain.ErrInvalidPrice)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/listing", &testSeller, dto.ListRequest{Price: "0"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apierrors.ErrCodeValidationFailed, decode[apierrors.APIError](t, w).Code)
	})

	t.Run("non numeric price", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/listing", &testSeller, dto.ListRequest{Price: "1.5"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("not owner", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().List(gomock.Any(), testBuyer, uint64(1), wei(100)).Return(nil, domain.ErrNotOwner)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/listing", &testBuyer, dto.ListRequest{Price: "100"})

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, apierrors.ErrCodeForbidden, decode[apierrors.APIError](t, w).Code)
	})

	t.Run("already listed", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().List(gomock.Any(), testSeller, uint64(1), wei(100)).Return(nil, domain.ErrAlreadyListed)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/listing", &testSeller, dto.ListRequest{Price: "100"})

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCancel(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		canceled := activeListing(1, 100)
		canceled.Status = domain.ListingStatusCanceled
		s.mock.EXPECT().Cancel(gomock.Any(), testSeller, uint64(1)).Return(canceled, nil)

		w := s.do(t, http.MethodDelete, "/api/v1/tokens/1/listing", &testSeller, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.ListingResponse](t, w)
		assert.Equal(t, "canceled", resp.Status)
		assert.False(t, resp.IsActive)
	})

	t.Run("not seller", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Cancel(gomock.Any(), testBuyer, uint64(1)).Return(nil, domain.ErrNotSeller)

		w := s.do(t, http.MethodDelete, "/api/v1/tokens/1/listing", &testBuyer, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodDelete, "/api/v1/tokens/1/listing", nil, nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPurchase(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		sold := activeListing(1, 100)
		sold.Status = domain.ListingStatusSold
		sold.Buyer = domain.AccountPtr(testBuyer)
		s.mock.EXPECT().Buy(gomock.Any(), testBuyer, uint64(1), wei(120)).Return(sold, nil)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/purchase", &testBuyer, dto.PurchaseRequest{Payment: "120"})

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.ListingResponse](t, w)
		assert.Equal(t, "sold", resp.Status)
		require.NotNil(t, resp.Buyer)
		assert.Equal(t, testBuyer.Hex(), *resp.Buyer)
	})

	t.Run("negative payment", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/purchase", &testBuyer, dto.PurchaseRequest{Payment: "-1"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("payment above 2^256-1", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/tokens/1/purchase", &testBuyer,
			dto.PurchaseRequest{Payment: "115792089237316195423570985008687907853269984665640564039457584007913129639936"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apierrors.ErrCodeValidationFailed, decode[apierrors.APIError](t, w).Code)
	})

	failures := []struct {
		name   string
		err    error
		status int
		code   apierrors.ErrorCode
	}{
		{name: "never listed", err: fmt.Errorf("%w: %w: token 1", domain.ErrNotActive, domain.ErrUnknownListing), status: http.StatusConflict, code: apierrors.ErrCodeConflict},
		{name: "not active", err: domain.ErrNotActive, status: http.StatusConflict, code: apierrors.ErrCodeConflict},
		{name: "insufficient payment", err: domain.ErrInsufficientPayment, status: http.StatusUnprocessableEntity, code: apierrors.ErrCodeValidationFailed},
		{name: "seller no longer owns", err: domain.ErrNotOwner, status: http.StatusForbidden, code: apierrors.ErrCodeForbidden},
		{name: "insufficient funds", err: fmt.Errorf("%w: balance 10", domain.ErrInsufficientFunds), status: http.StatusPaymentRequired, code: apierrors.ErrCodePaymentRequired},
		{name: "recipient rejected", err: fmt.Errorf("%w: rejected", domain.ErrTransferFailed), status: http.StatusConflict, code: apierrors.ErrCodeConflict},
		{name: "store failure", err: errors.New("connection reset"), status: http.StatusInternalServerError, code: apierrors.ErrCodeInternalError},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestServer(t)
			s.mock.EXPECT().Buy(gomock.Any(), testBuyer, uint64(1), wei(100)).Return(nil, tt.err)

			w := s.do(t, http.MethodPost, "/api/v1/tokens/1/purchase", &testBuyer, dto.PurchaseRequest{Payment: "100"})

			assert.Equal(t, tt.status, w.Code)
			apiErr := decode[apierrors.APIError](t, w)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.code == apierrors.ErrCodeInternalError {
				assert.Empty(t, apiErr.Details)
			}
		})
	}
}

func TestWithdraw(t *testing.T) {
	t.Run("administrator", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Withdraw(gomock.Any(), testAdmin).Return(big.NewInt(20), nil)

		w := s.do(t, http.MethodPost, "/api/v1/marketplace/withdrawals", &testAdmin, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "20", decode[dto.WithdrawResponse](t, w).Amount)
	})

	t.Run("not administrator", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Withdraw(gomock.Any(), testBuyer).Return(nil, domain.ErrNotAdministrator)

		w := s.do(t, http.MethodPost, "/api/v1/marketplace/withdrawals", &testBuyer, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestFund(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Fund(gomock.Any(), testBuyer, wei(50)).Return(big.NewInt(70), nil)

		w := s.do(t, http.MethodPost, "/api/v1/marketplace/funds", &testBuyer, dto.FundRequest{Amount: "50"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "70", decode[dto.FundResponse](t, w).Balance)
	})

	t.Run("malformed amount", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodPost, "/api/v1/marketplace/funds", &testBuyer, dto.FundRequest{Amount: "ten"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestGetAccount(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().BalanceOf(gomock.Any(), testSeller).Return(domain.Ether(3), nil)
		s.mock.EXPECT().TokensOf(gomock.Any(), testSeller).Return([]uint64{1, 4}, nil)

		w := s.do(t, http.MethodGet, "/api/v1/accounts/"+testSeller.Hex(), nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.AccountResponse](t, w)
		assert.Equal(t, testSeller.Hex(), resp.Address)
		assert.Equal(t, "3000000000000000000", resp.Balance)
		assert.Equal(t, []uint64{1, 4}, resp.Tokens)
	})

	t.Run("no tokens renders an empty list", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().BalanceOf(gomock.Any(), testBuyer).Return(big.NewInt(0), nil)
		s.mock.EXPECT().TokensOf(gomock.Any(), testBuyer).Return(nil, nil)

		w := s.do(t, http.MethodGet, "/api/v1/accounts/"+testBuyer.Hex(), nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"tokens":[]`)
	})

	t.Run("malformed address", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/accounts/not-an-address", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListEvents(t *testing.T) {
	t.Run("filters", func(t *testing.T) {
		s := setupTestServer(t)
		tokenID := uint64(1)
		expected := marketplace.EventFilter{
			Types:   []domain.EventType{domain.EventTypeSale, domain.EventTypeTransfer},
			TokenID: &tokenID,
			Limit:   10,
			Offset:  5,
		}
		s.mock.EXPECT().Events(gomock.Any(), expected).Return([]domain.Event{
			{ID: "01J0000000000000000000000A", Type: domain.EventTypeSale, TokenID: &tokenID, Amount: "100", To: domain.AccountPtr(testBuyer)},
		}, uint64(6), nil)

		w := s.do(t, http.MethodGet, "/api/v1/events?type=sale,transfer&token_id=1&limit=10&offset=5", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[dto.EventListResponse](t, w)
		assert.Equal(t, uint64(6), resp.Total)
		assert.Equal(t, uint64(5), resp.Offset)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, "sale", resp.Events[0].Type)
		require.NotNil(t, resp.Events[0].To)
		assert.Equal(t, testBuyer.Hex(), *resp.Events[0].To)
	})

	t.Run("defaults and limit cap", func(t *testing.T) {
		s := setupTestServer(t)
		s.mock.EXPECT().Events(gomock.Any(), marketplace.EventFilter{Types: []domain.EventType{}, Limit: rest.MAX_PAGE_SIZE}).Return(nil, uint64(0), nil)

		w := s.do(t, http.MethodGet, "/api/v1/events?limit=1000", nil, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"events":[]`)
	})

	t.Run("unknown type", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/events?type=burn", nil, nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("malformed token id", func(t *testing.T) {
		s := setupTestServer(t)

		w := s.do(t, http.MethodGet, "/api/v1/events?token_id=x", nil, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
