package wallet

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

// StoreConfig wires a Store. Converter is required.
type StoreConfig struct {
	Converter *currency.Converter
	Cache     BalanceCache
	Metrics   MetricsCollector
	Logger    *zap.Logger
	Clock     func() time.Time
}

type Store struct {
	converter *currency.Converter
	cache     BalanceCache
	metrics   MetricsCollector
	logger    *zap.Logger
	now       func() time.Time
}

// BalanceView is a balance expressed in a requested currency.
type BalanceView struct {
	UserID       uint            `json:"user_id"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Formatted    string          `json:"formatted"`
	BaseBalance  decimal.Decimal `json:"base_balance"`
	BaseCurrency string          `json:"base_currency"`
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Converter == nil {
		panic("currency converter is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = noopCache{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = &NoopMetricsCollector{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Store{
		converter: cfg.Converter,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		now:       cfg.Clock,
	}
}

func (s *Store) Converter() *currency.Converter {
	return s.converter
}

// ToBase validates a user-entered amount and converts it to the base
// currency at BaseScale.
func (s *Store) ToBase(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}
	base, err := s.converter.ToBase(amount, code)
	if err != nil {
		return decimal.Zero, err
	}
	base = base.Round(BaseScale)
	if !base.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount.WithMessage("amount %s %s is below the smallest base unit", amount, code)
	}
	return base, nil
}

// GetOrCreate returns the user's wallet, creating an empty one on first
// use. A concurrent creator winning the race is not an error.
func (s *Store) GetOrCreate(ctx context.Context, tx repositories.Tx, userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, apperrors.ErrInvalidTransaction.WithMessage("user id is required")
	}

	w, err := tx.Wallets().GetByUserID(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, err
	}

	if err := s.create(ctx, tx, userID); err != nil {
		return nil, err
	}
	return tx.Wallets().GetByUserID(ctx, userID)
}

// GetForUpdate is GetOrCreate that also holds the wallet's write lock
// for the rest of the unit of work.
func (s *Store) GetForUpdate(ctx context.Context, tx repositories.Tx, userID uint) (*models.Wallet, error) {
	if userID == 0 {
		return nil, apperrors.ErrInvalidTransaction.WithMessage("user id is required")
	}

	w, err := tx.Wallets().GetByUserIDForUpdate(ctx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, err
	}

	if err := s.create(ctx, tx, userID); err != nil {
		return nil, err
	}
	return tx.Wallets().GetByUserIDForUpdate(ctx, userID)
}

func (s *Store) create(ctx context.Context, tx repositories.Tx, userID uint) error {
	created, err := tx.Wallets().CreateIfAbsent(ctx, models.NewWallet(userID, s.converter.Base()))
	if err != nil {
		return err
	}
	if created {
		s.logger.Debug("created wallet", zap.Uint("user_id", userID))
	}
	return nil
}

// Credit adds amount, given in code, to w and persists it. It returns the
// base-currency amount that was added.
func (s *Store) Credit(ctx context.Context, tx repositories.Tx, w *models.Wallet, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	base, err := s.ToBase(amount, code)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.apply(ctx, tx, w, w.Balance.Add(base), "credit"); err != nil {
		return decimal.Zero, err
	}
	return base, nil
}

// Debit subtracts amount, given in code, from w and persists it. The
// balance never goes below zero.
func (s *Store) Debit(ctx context.Context, tx repositories.Tx, w *models.Wallet, amount decimal.Decimal, code string) (decimal.Decimal, error) {
	base, err := s.ToBase(amount, code)
	if err != nil {
		return decimal.Zero, err
	}
	next := w.Balance.Sub(base)
	if next.IsNegative() {
		s.metrics.RecordError("debit", "insufficient_balance")
		return decimal.Zero, apperrors.ErrInsufficientBalance
	}
	if err := s.apply(ctx, tx, w, next, "debit"); err != nil {
		return decimal.Zero, err
	}
	return base, nil
}

func (s *Store) apply(ctx context.Context, tx repositories.Tx, w *models.Wallet, next decimal.Decimal, op string) error {
	if !w.IsActive {
		return apperrors.ErrWalletInactive
	}

	start := time.Now()
	prev, prevAt := w.Balance, w.LastTransactionAt
	now := s.now().UTC()
	w.Balance = next
	w.LastTransactionAt = &now

	if err := tx.Wallets().UpdateBalance(ctx, w); err != nil {
		w.Balance, w.LastTransactionAt = prev, prevAt
		if errors.Is(err, repositories.ErrNegativeBalance) {
			s.metrics.RecordError(op, "negative_balance")
			return apperrors.ErrInsufficientBalance
		}
		s.metrics.RecordError(op, "update_failed")
		return err
	}

	s.metrics.RecordBalanceChange(w.UserID, prev, next)
	s.metrics.RecordOperationDuration(op, time.Since(start))
	return nil
}

// Balance returns the user's balance converted to code ("" for base).
// Reads go through the balance cache. A miss is filled only if no
// mutation invalidated the user between the cache read and the fill.
func (s *Store) Balance(ctx context.Context, repo repositories.Tx, userID uint, code string) (*BalanceView, error) {
	code, err := s.converter.Normalize(code)
	if err != nil {
		return nil, err
	}

	base, gen, found, err := s.cache.GetBalance(ctx, userID)
	if err != nil {
		s.logger.Warn("balance cache read failed", zap.Uint("user_id", userID), zap.Error(err))
		found = false
	}
	key := "wallet:balance"
	if found {
		s.metrics.RecordCacheHit(key)
	} else {
		s.metrics.RecordCacheMiss(key)
		w, err := s.GetOrCreate(ctx, repo, userID)
		if err != nil {
			return nil, err
		}
		base = w.Balance
		if err := s.cache.SetBalance(ctx, userID, base, gen); err != nil {
			s.logger.Warn("balance cache write failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	converted, err := s.converter.FromBase(base, code)
	if err != nil {
		return nil, err
	}
	formatted, err := s.converter.Format(converted, code)
	if err != nil {
		return nil, err
	}

	return &BalanceView{
		UserID:       userID,
		Balance:      converted,
		Currency:     code,
		Formatted:    formatted,
		BaseBalance:  base,
		BaseCurrency: s.converter.Base(),
	}, nil
}
