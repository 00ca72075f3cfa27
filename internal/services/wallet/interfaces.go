package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceCache caches base-currency balances by user. InvalidateWallet
// advances the user's generation, and SetBalance stores nothing unless the
// generation still matches the one GetBalance reported.
type BalanceCache interface {
	GetBalance(ctx context.Context, userID uint) (balance decimal.Decimal, generation int64, found bool, err error)
	SetBalance(ctx context.Context, userID uint, balance decimal.Decimal, generation int64) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordCacheHit(key string)
	RecordCacheMiss(key string)
	RecordBalanceChange(userID uint, oldBalance, newBalance decimal.Decimal)
	RecordError(operation, errType string)
}
