// Package dashboard serves the read-only reports admins use to review
// balances, volumes and fraud flags.
package dashboard

import (
	"context"
	"errors"
	"time"

	apperrors "ledgerly/internal/errors"
	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/currency"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TopByBalance = "balance"
	TopByVolume  = "volume"

	DefaultTopLimit = 5
	SummaryDays     = 7
)

type Service interface {
	ListFlags(ctx context.Context, limit, offset int) ([]models.FlaggedTransaction, int64, error)
	TotalBalance(ctx context.Context) (*BalanceSummary, error)
	TransactionSummary(ctx context.Context) (*TransactionSummary, error)
	TopUsers(ctx context.Context, by string, limit int) ([]TopUser, error)
	SoftDeleteTransaction(ctx context.Context, id uint) error
}

type BalanceSummary struct {
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	Formatted string          `json:"formatted"`
}

type TransactionSummary struct {
	ByType []repositories.TypeSummary `json:"by_type"`
	Daily  []repositories.DailyCount  `json:"daily"`
	Since  time.Time                  `json:"since"`
}

// TopUser is one row of a leaderboard. Amount is the balance or the
// outgoing volume depending on the ranking; Count is only set for volume.
type TopUser struct {
	UserID uint            `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count,omitempty"`
}

type service struct {
	store     repositories.Store
	converter *currency.Converter
	logger    *zap.Logger
	now       func() time.Time
}

func NewService(store repositories.Store, converter *currency.Converter, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		store:     store,
		converter: converter,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *service) ListFlags(ctx context.Context, limit, offset int) ([]models.FlaggedTransaction, int64, error) {
	flags, total, err := s.store.Flags().List(ctx, limit, offset)
	if err != nil {
		return nil, 0, s.unavailable("list flags", err)
	}
	return flags, total, nil
}

func (s *service) TotalBalance(ctx context.Context) (*BalanceSummary, error) {
	total, err := s.store.Wallets().TotalBalance(ctx)
	if err != nil {
		return nil, s.unavailable("total balance", err)
	}
	formatted, err := s.converter.Format(total, s.converter.Base())
	if err != nil {
		return nil, err
	}
	return &BalanceSummary{Total: total, Currency: s.converter.Base(), Formatted: formatted}, nil
}

func (s *service) TransactionSummary(ctx context.Context) (*TransactionSummary, error) {
	now := s.now().UTC()
	y, m, d := now.Date()
	since := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(SummaryDays - 1))

	byType, err := s.store.Transactions().SummaryByType(ctx)
	if err != nil {
		return nil, s.unavailable("transaction summary", err)
	}
	daily, err := s.store.Transactions().DailyCounts(ctx, since)
	if err != nil {
		return nil, s.unavailable("daily counts", err)
	}
	return &TransactionSummary{ByType: byType, Daily: daily, Since: since}, nil
}

func (s *service) TopUsers(ctx context.Context, by string, limit int) ([]TopUser, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	switch by {
	case "", TopByBalance:
		wallets, err := s.store.Wallets().TopByBalance(ctx, limit)
		if err != nil {
			return nil, s.unavailable("top balances", err)
		}
		out := make([]TopUser, 0, len(wallets))
		for _, w := range wallets {
			out = append(out, TopUser{UserID: w.UserID, Amount: w.Balance})
		}
		return out, nil
	case TopByVolume:
		stats, err := s.store.Transactions().TopSourcesByVolume(ctx, limit)
		if err != nil {
			return nil, s.unavailable("top volumes", err)
		}
		out := make([]TopUser, 0, len(stats))
		for _, st := range stats {
			out = append(out, TopUser{UserID: st.UserID, Amount: st.TotalAmount, Count: st.Count})
		}
		return out, nil
	default:
		return nil, apperrors.New(apperrors.KindValidation, "INVALID_RANKING", "ranking must be balance or volume")
	}
}

// SoftDeleteTransaction hides a transaction from listings and future
// scans. Balances are not touched.
func (s *service) SoftDeleteTransaction(ctx context.Context, id uint) error {
	err := s.store.Transactions().SoftDelete(ctx, id)
	switch {
	case err == nil:
		s.logger.Info("soft deleted transaction", zap.Uint("transaction_id", id))
		return nil
	case errors.Is(err, repositories.ErrTransactionNotFound):
		return apperrors.ErrTransactionNotFound
	default:
		return s.unavailable("soft delete", err)
	}
}

func (s *service) unavailable(op string, err error) error {
	s.logger.Error("dashboard query failed", zap.String("operation", op), zap.Error(err))
	return apperrors.ErrStoreUnavailable.Wrap(err)
}
