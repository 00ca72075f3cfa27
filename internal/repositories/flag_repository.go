package repositories

import (
	"context"

	"ledgerly/internal/models"
)

type FlagRepository interface {
	Exists(ctx context.Context, transactionID uint) (bool, error)
	// CreateIfAbsent inserts f unless the transaction is already flagged.
	CreateIfAbsent(ctx context.Context, f *models.FlaggedTransaction) (created bool, err error)
	// List returns flags newest first.
	List(ctx context.Context, limit, offset int) ([]models.FlaggedTransaction, int64, error)
}
