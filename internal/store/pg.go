package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/store/schema"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation
const pgUniqueViolation = "23505"

type pgStore struct {
	db   *gorm.DB
	inTx bool
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and keeps MaxIdleConns within MaxOpenConns
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// calculateSafeBatchSize keeps a bulk insert under PostgreSQL's limit of 65535
// bind parameters per statement, leaving headroom for GORM's own parameters.
func calculateSafeBatchSize(totalRecords int, fieldsPerRecord int) int {
	const maxParams = 65535
	const totalHeadroom = 1000

	availableParams := maxParams - totalHeadroom
	safeBatchSize := max(availableParams/fieldsPerRecord, 1)

	if safeBatchSize > totalRecords {
		return totalRecords
	}

	return safeBatchSize
}

// isUniqueViolation reports whether err was raised by a unique constraint
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// RunInTx runs fn inside a database transaction. A top-level transaction locks the
// marketplace row so ledger operations are applied one at a time; nested calls
// become savepoints of the enclosing transaction.
func (s *pgStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if !s.inTx {
			var ids []int64
			err := tx.Model(&schema.Marketplace{}).
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", 1).
				Pluck("id", &ids).Error
			if err != nil {
				return fmt.Errorf("failed to lock marketplace: %w", err)
			}
		}

		return fn(&pgStore{db: tx, inTx: true})
	})
}

// CreateMarketplace stores the marketplace descriptor
func (s *pgStore) CreateMarketplace(ctx context.Context, marketplace *schema.Marketplace) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Marketplace{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check marketplace: %w", err)
	}
	if count > 0 {
		return domain.ErrAlreadyDeployed
	}

	marketplace.ID = 1
	if marketplace.NextTokenID == 0 {
		marketplace.NextTokenID = 1
	}
	if err := s.db.WithContext(ctx).Create(marketplace).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyDeployed
		}
		return fmt.Errorf("failed to create marketplace: %w", err)
	}

	return nil
}

// GetMarketplace retrieves the marketplace descriptor
func (s *pgStore) GetMarketplace(ctx context.Context) (*schema.Marketplace, error) {
	var marketplace schema.Marketplace
	err := s.db.WithContext(ctx).Where("id = ?", 1).First(&marketplace).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get marketplace: %w", err)
	}

	return &marketplace, nil
}

// AllocateTokenID returns the next token id and advances the counter
func (s *pgStore) AllocateTokenID(ctx context.Context) (uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).
		Raw("UPDATE marketplaces SET next_token_id = next_token_id + 1 WHERE id = 1 RETURNING next_token_id - 1").
		Scan(&ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to allocate token id: %w", err)
	}
	if len(ids) == 0 {
		return 0, domain.ErrNotDeployed
	}

	return ids[0], nil
}

// CreateToken stores a newly minted token
func (s *pgStore) CreateToken(ctx context.Context, token *schema.Token) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetToken retrieves a token by id
func (s *pgStore) GetToken(ctx context.Context, tokenID uint64) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).Where("id = ?", tokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	return &token, nil
}

// UpdateTokenOwner reassigns a token to a new owner
func (s *pgStore) UpdateTokenOwner(ctx context.Context, tokenID uint64, owner string, updatedAt time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("id = ?", tokenID).
		Updates(map[string]interface{}{
			"owner":      owner,
			"updated_at": updatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update token owner: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrUnknownToken
	}

	return nil
}

// GetTokenIDsByOwner lists the ids of the tokens held by owner
func (s *pgStore) GetTokenIDsByOwner(ctx context.Context, owner string) ([]uint64, error) {
	ids := []uint64{}
	err := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("owner = ?", owner).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens by owner: %w", err)
	}

	return ids, nil
}

// CountTokens returns the number of minted tokens
func (s *pgStore) CountTokens(ctx context.Context) (uint64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Token{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}

	return uint64(count), nil //nolint:gosec,G115 // count is never negative
}

// CreateListing stores a new listing record
func (s *pgStore) CreateListing(ctx context.Context, listing *schema.Listing) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyListed
		}
		return fmt.Errorf("failed to create listing: %w", err)
	}

	return nil
}

// GetLatestListing retrieves the most recent listing of a token
func (s *pgStore) GetLatestListing(ctx context.Context, tokenID uint64) (*schema.Listing, error) {
	var listing schema.Listing
	err := s.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("id DESC").
		First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest listing: %w", err)
	}

	return &listing, nil
}

// GetListings retrieves every listing of a token, oldest first
func (s *pgStore) GetListings(ctx context.Context, tokenID uint64) ([]schema.Listing, error) {
	listings := []schema.Listing{}
	err := s.db.WithContext(ctx).
		Where("token_id = ?", tokenID).
		Order("id ASC").
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}

	return listings, nil
}

// CloseListing moves an active listing to sold or canceled
func (s *pgStore) CloseListing(ctx context.Context, input CloseListingInput) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Listing{}).
		Where("id = ? AND status = ?", input.ListingID, schema.ListingStatusActive).
		Updates(map[string]interface{}{
			"status":    input.Status,
			"buyer":     input.Buyer,
			"closed_at": input.ClosedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to close listing: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&schema.Listing{}).Where("id = ?", input.ListingID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check listing: %w", err)
	}
	if count == 0 {
		return domain.ErrUnknownListing
	}

	return domain.ErrNotActive
}

// GetBalance retrieves the value balance of an address
func (s *pgStore) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var balance schema.AccountBalance
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	amount, ok := new(big.Int).SetString(balance.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored balance for %s: %s", address, balance.Amount)
	}

	return amount, nil
}

// SetBalance overwrites the value balance of an address
func (s *pgStore) SetBalance(ctx context.Context, address string, amount *big.Int) error {
	if amount.Sign() < 0 {
		return domain.ErrInsufficientFunds
	}

	balance := schema.AccountBalance{
		Address:   address,
		Amount:    amount.String(),
		UpdatedAt: time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&balance).Error
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}

	return nil
}

// CreateEvents appends events to the journal
func (s *pgStore) CreateEvents(ctx context.Context, events []schema.MarketplaceEvent) error {
	if len(events) == 0 {
		return nil
	}

	// MarketplaceEvent has 9 inserted columns
	batchSize := calculateSafeBatchSize(len(events), 9)
	if err := s.db.WithContext(ctx).CreateInBatches(&events, batchSize).Error; err != nil {
		return fmt.Errorf("failed to create events: %w", err)
	}

	return nil
}

// cursorOrder orders journal rows by commit order
var cursorOrder = clause.OrderByColumn{Column: clause.Column{Name: "cursor"}}

// GetEvents retrieves journal events matching the filter
func (s *pgStore) GetEvents(ctx context.Context, filter EventQueryFilter) ([]schema.MarketplaceEvent, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.MarketplaceEvent{})

	if len(filter.EventTypes) > 0 {
		query = query.Where("event_type IN ?", filter.EventTypes)
	}
	if filter.TokenID != nil {
		query = query.Where("token_id = ?", *filter.TokenID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	events := []schema.MarketplaceEvent{}
	err := query.
		Order(cursorOrder).
		Limit(normalizeLimit(filter.Limit)).
		Offset(int(filter.Offset)). //nolint:gosec,G115
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get events: %w", err)
	}

	return events, uint64(total), nil //nolint:gosec,G115
}

// GetEventsAfter retrieves up to limit events committed after the given event id
func (s *pgStore) GetEventsAfter(ctx context.Context, afterEventID string, limit int) ([]schema.MarketplaceEvent, error) {
	query := s.db.WithContext(ctx).Model(&schema.MarketplaceEvent{})

	if afterEventID != "" {
		anchor := s.db.WithContext(ctx).
			Model(&schema.MarketplaceEvent{}).
			Select(`"cursor"`).
			Where("event_id = ?", afterEventID)
		query = query.Where(`"cursor" > (?)`, anchor)
	}

	events := []schema.MarketplaceEvent{}
	err := query.
		Order(cursorOrder).
		Limit(normalizeLimit(limit)).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get events after %s: %w", afterEventID, err)
	}

	return events, nil
}
