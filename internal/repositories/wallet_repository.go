package repositories

import (
	"context"

	"ledgerly/internal/models"

	"github.com/shopspring/decimal"
)

// WalletRepository defines the interface for wallet-related database operations
type WalletRepository interface {
	// CreateIfAbsent inserts w unless the user already has a wallet.
	// created is false when another writer got there first.
	CreateIfAbsent(ctx context.Context, w *models.Wallet) (created bool, err error)
	GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetByUserIDForUpdate reads the wallet and holds a write lock on it
	// until the surrounding unit of work ends.
	GetByUserIDForUpdate(ctx context.Context, userID uint) (*models.Wallet, error)
	// UpdateBalance persists Balance and LastTransactionAt if the stored
	// version still equals w.Version, then bumps w.Version.
	UpdateBalance(ctx context.Context, w *models.Wallet) error
	SetActive(ctx context.Context, userID uint, active bool) error

	// Analytics and reporting
	TotalBalance(ctx context.Context) (decimal.Decimal, error)
	TopByBalance(ctx context.Context, limit int) ([]models.Wallet, error)
}
