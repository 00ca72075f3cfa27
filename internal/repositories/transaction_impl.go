package repositories

import (
	"context"
	"fmt"
	"time"

	"ledgerly/internal/models"

	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).Where("is_deleted = ?", false)
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id uint, from, to models.TransactionStatus) error {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.live(ctx).First(&tx, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepository) SoftDelete(ctx context.Context, id uint) error {
	result := r.live(ctx).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepository) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.live(ctx).
		Where("status = ?", models.TransactionStatusCompleted).
		Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) ListCompletedBySource(ctx context.Context, userID uint, since, until time.Time) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.live(ctx).
		Where("status = ?", models.TransactionStatusCompleted).
		Where("from_user_id = ?", userID).
		Where("created_at BETWEEN ? AND ?", since, until).
		Order("created_at ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) RecentCompletedBySource(ctx context.Context, userID uint, until time.Time, limit int) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.live(ctx).
		Where("status = ?", models.TransactionStatusCompleted).
		Where("from_user_id = ?", userID).
		Where("created_at <= ?", until).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent transactions: %w", err)
	}
	return txs, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error) {
	var (
		txs   []models.Transaction
		total int64
	)
	query := func() *gorm.DB {
		return r.live(ctx).Where("from_user_id = ? OR to_user_id = ?", userID, userID)
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	err := query().
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, total, nil
}

func (r *transactionRepository) SummaryByType(ctx context.Context) ([]TypeSummary, error) {
	var rows []TypeSummary
	err := r.live(ctx).
		Select("type, COUNT(*) AS count, COALESCE(SUM(base_amount), 0) AS total_amount").
		Where("status = ?", models.TransactionStatusCompleted).
		Group("type").
		Order("type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarise transactions: %w", err)
	}
	return rows, nil
}

func (r *transactionRepository) DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	var rows []DailyCount
	err := r.live(ctx).
		Select("TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("day").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count daily transactions: %w", err)
	}
	return rows, nil
}

func (r *transactionRepository) TopSourcesByVolume(ctx context.Context, limit int) ([]VolumeStat, error) {
	var rows []VolumeStat
	err := r.live(ctx).
		Select("from_user_id AS user_id, COUNT(*) AS count, SUM(base_amount) AS total_amount").
		Where("status = ? AND from_user_id IS NOT NULL", models.TransactionStatusCompleted).
		Group("from_user_id").
		Order("total_amount DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank users by volume: %w", err)
	}
	return rows, nil
}
