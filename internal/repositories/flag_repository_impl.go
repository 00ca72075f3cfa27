package repositories

import (
	"context"
	"fmt"

	"ledgerly/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type flagRepository struct {
	db *gorm.DB
}

func NewFlagRepository(db *gorm.DB) FlagRepository {
	return &flagRepository{db: db}
}

func (r *flagRepository) Exists(ctx context.Context, transactionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.FlaggedTransaction{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check flag: %w", err)
	}
	return count > 0, nil
}

func (r *flagRepository) CreateIfAbsent(ctx context.Context, f *models.FlaggedTransaction) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "transaction_id"}}, DoNothing: true}).
		Create(f)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create flag: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *flagRepository) List(ctx context.Context, limit, offset int) ([]models.FlaggedTransaction, int64, error) {
	var (
		flags []models.FlaggedTransaction
		total int64
	)
	if err := r.db.WithContext(ctx).Model(&models.FlaggedTransaction{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count flags: %w", err)
	}
	err := r.db.WithContext(ctx).
		Order("detected_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&flags).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list flags: %w", err)
	}
	return flags, total, nil
}
