package cache

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNoRateSnapshot is returned when no exchange rate table was saved yet.
var ErrNoRateSnapshot = errors.New("no exchange rate snapshot")

// rateSnapshotTTL bounds how stale a served snapshot may get.
const rateSnapshotTTL = 7 * 24 * time.Hour

type rateSnapshot struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// SaveRates stores the last good rate table for base.
func (s *CacheService) SaveRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error {
	return s.SetWithTTL(ctx, s.GenerateKey("fx", "rates", base), rateSnapshot{
		Base:      base,
		Rates:     rates,
		FetchedAt: time.Now().UTC(),
	}, rateSnapshotTTL)
}

// LoadRates returns the stored rate table for base.
func (s *CacheService) LoadRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	var snap rateSnapshot
	found, err := s.Get(ctx, s.GenerateKey("fx", "rates", base), &snap)
	if err != nil {
		return nil, err
	}
	if !found || len(snap.Rates) == 0 {
		return nil, ErrNoRateSnapshot
	}
	return snap.Rates, nil
}
