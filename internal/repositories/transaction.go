package repositories

import (
	"context"
	"time"

	"ledgerly/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionRepository stores ledger records. Listing methods skip
// soft-deleted rows.
type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	// UpdateStatus moves the row from one status to another; it fails with
	// ErrStatusConflict when the stored status is not from.
	UpdateStatus(ctx context.Context, id uint, from, to models.TransactionStatus) error
	GetByID(ctx context.Context, id uint) (*models.Transaction, error)
	SoftDelete(ctx context.Context, id uint) error

	// ListCompletedBetween returns completed transactions created in
	// [start, end], oldest first.
	ListCompletedBetween(ctx context.Context, start, end time.Time) ([]models.Transaction, error)
	// ListCompletedBySource returns completed transactions sent by userID,
	// created in [since, until], oldest first. Deposits have no source and
	// are never included.
	ListCompletedBySource(ctx context.Context, userID uint, since, until time.Time) ([]models.Transaction, error)
	// RecentCompletedBySource returns up to limit completed transactions
	// sent by userID at or before until, newest first.
	RecentCompletedBySource(ctx context.Context, userID uint, until time.Time, limit int) ([]models.Transaction, error)
	// ListByUser returns transactions on either side of userID, newest first.
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Transaction, int64, error)

	// Analytics and reporting
	SummaryByType(ctx context.Context) ([]TypeSummary, error)
	DailyCounts(ctx context.Context, since time.Time) ([]DailyCount, error)
	TopSourcesByVolume(ctx context.Context, limit int) ([]VolumeStat, error)
}

// TypeSummary aggregates completed transactions of one type.
type TypeSummary struct {
	Type        models.TransactionType `json:"type"`
	Count       int64                  `json:"count"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
}

// DailyCount is the number of transactions created on one UTC day.
type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// VolumeStat is the outgoing volume of a single user.
type VolumeStat struct {
	UserID      uint            `json:"user_id"`
	Count       int64           `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
