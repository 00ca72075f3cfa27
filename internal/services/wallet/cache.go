package wallet

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type noopCache struct{}

func (noopCache) GetBalance(context.Context, uint) (decimal.Decimal, int64, bool, error) {
	return decimal.Zero, 0, false, nil
}

func (noopCache) SetBalance(context.Context, uint, decimal.Decimal, int64) error { return nil }
func (noopCache) InvalidateWallet(context.Context, uint) error                   { return nil }

// Invalidate drops cached balances for every participant of a committed
// mutation. Cache failures are logged; the ledger is the source of truth.
func (s *Store) Invalidate(ctx context.Context, userIDs ...uint) {
	for _, id := range userIDs {
		if err := s.cache.InvalidateWallet(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate cached balance",
				zap.Uint("user_id", id),
				zap.Error(err),
			)
		}
	}
}
