package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/lightlink-network/ll-bridge-collector/database/models"
	"github.com/lightlink-network/ll-bridge-collector/types"
)

// SQLDatabase is the gorm backed store, used with Postgres.
type SQLDatabase struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = &SQLDatabase{}

var depositColumns = []string{
	"amount", "token_address", "token_decimals", "token_symbol", "address", "status", "updated_at",
}

// recent_status is left out: it belongs to the status watcher.
var withdrawalColumns = []string{
	"l1_hash", "amount", "token_address", "token_decimals", "token_symbol", "address", "status", "updated_at",
}

func NewPostgres(opts DatabaseOpts) (*SQLDatabase, error) {
	return NewSQLDatabase(postgres.Open(opts.URI), opts.Logger)
}

// NewSQLDatabase opens a store on any gorm dialector.
func NewSQLDatabase(dialector gorm.Dialector, log *slog.Logger) (*SQLDatabase, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLDatabase{
		db:     db,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLDatabase) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&models.Deposit{}, &models.Withdrawal{})
}

func (s *SQLDatabase) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLDatabase) UpsertDeposit(ctx context.Context, deposit models.Deposit) error {
	now := s.now()
	deposit.ID = 0
	deposit.CreatedAt = now
	deposit.UpdatedAt = now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns(depositColumns),
	}).Create(&deposit).Error
	if err != nil {
		return fmt.Errorf("failed to upsert deposit %s: %w", deposit.Hash, err)
	}
	return nil
}

func (s *SQLDatabase) UpsertWithdrawal(ctx context.Context, withdrawal models.Withdrawal) error {
	now := s.now()
	withdrawal.ID = 0
	withdrawal.RecentStatus = nil
	withdrawal.CreatedAt = now
	withdrawal.UpdatedAt = now

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns(withdrawalColumns),
	}).Create(&withdrawal).Error
	if err != nil {
		return fmt.Errorf("failed to upsert withdrawal %s: %w", withdrawal.Hash, err)
	}
	return nil
}

// unfinishedClause matches withdrawals whose latest known stage is not
// Relayed: recent_status when set, status otherwise.
const unfinishedClause = "((recent_status IS NULL AND status <> ?) OR recent_status <> ?)"

// GetPendingWithdrawals returns the unfinished withdrawals. Once the watcher
// records Relayed a withdrawal is never selected again.
func (s *SQLDatabase) GetPendingWithdrawals(ctx context.Context) ([]models.Withdrawal, error) {
	var withdrawals []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where(unfinishedClause, types.RelayedStatus, types.RelayedStatus).
		Order("id").
		Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find pending withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (s *SQLDatabase) UpdateWithdrawalRecentStatus(ctx context.Context, hash string, status string) error {
	result := s.db.WithContext(ctx).Model(&models.Withdrawal{}).
		Where("hash = ?", hash).
		Updates(map[string]interface{}{"recent_status": status, "updated_at": s.now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update withdrawal recent status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no withdrawal found with hash: %s", hash)
	}
	return nil
}

func (s *SQLDatabase) GetDeposits(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error) {
	q := s.db.WithContext(ctx).Model(&models.Deposit{})
	if filter.Address != "" {
		q = q.Where("address = ?", filter.Address)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	deposits := []models.Deposit{}
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(int(page.Offset)).Limit(int(page.Limit)).
		Find(&deposits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find deposits: %w", err)
	}

	return &models.PaginatedResult{Items: deposits, TotalItems: total}, nil
}

func (s *SQLDatabase) GetWithdrawals(ctx context.Context, filter models.Filter, page models.Page) (*models.PaginatedResult, error) {
	q := s.db.WithContext(ctx).Model(&models.Withdrawal{})
	if filter.Address != "" {
		q = q.Where("address = ?", filter.Address)
	}
	if filter.Unfinished {
		q = q.Where(unfinishedClause, types.RelayedStatus, types.RelayedStatus)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	withdrawals := []models.Withdrawal{}
	err := q.Order("created_at DESC").Order("id DESC").
		Offset(int(page.Offset)).Limit(int(page.Limit)).
		Find(&withdrawals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find withdrawals: %w", err)
	}

	return &models.PaginatedResult{Items: withdrawals, TotalItems: total}, nil
}
