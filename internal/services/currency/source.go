package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateSource supplies exchange rates as units of base per one unit of each
// currency.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// StaticSource always returns the same table.
type StaticSource map[string]decimal.Decimal

func (s StaticSource) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	return copyRates(s), nil
}

// HTTPSource reads rates from a Frankfurter compatible API:
//
//	GET {BaseURL}/latest?from=INR  ->  {"base":"INR","rates":{"USD":0.012}}
//
// The API quotes units of X per one unit of base, so rates are inverted.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

type latestRatesResponse struct {
	Base  string                     `json:"base"`
	Date  string                     `json:"date"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

func (s *HTTPSource) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s", s.BaseURL, url.QueryEscape(base))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate api returned status %d", resp.StatusCode)
	}

	var body latestRatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if body.Base != "" && !strings.EqualFold(body.Base, base) {
		return nil, fmt.Errorf("rate api answered for base %s, want %s", body.Base, base)
	}

	out := make(map[string]decimal.Decimal, len(body.Rates))
	for code, quote := range body.Rates {
		if !quote.IsPositive() {
			continue
		}
		out[strings.ToUpper(code)] = decimal.NewFromInt(1).Div(quote)
	}
	return out, nil
}

// RateSnapshotStore persists the last good rate table.
type RateSnapshotStore interface {
	SaveRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error
	LoadRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// CachedSource snapshots every successful fetch of its upstream and serves
// the snapshot while the upstream is failing.
type CachedSource struct {
	upstream  RateSource
	snapshots RateSnapshotStore
	logger    *zap.Logger
}

func NewCachedSource(upstream RateSource, snapshots RateSnapshotStore, logger *zap.Logger) *CachedSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSource{upstream: upstream, snapshots: snapshots, logger: logger}
}

func (s *CachedSource) FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	rates, err := s.upstream.FetchRates(ctx, base)
	if err == nil && len(rates) > 0 {
		if saveErr := s.snapshots.SaveRates(ctx, base, rates); saveErr != nil {
			s.logger.Warn("failed to snapshot exchange rates", zap.Error(saveErr))
		}
		return rates, nil
	}
	if err == nil {
		err = fmt.Errorf("upstream returned no rates")
	}

	snapshot, loadErr := s.snapshots.LoadRates(ctx, base)
	if loadErr != nil {
		return nil, fmt.Errorf("%w (snapshot unavailable: %v)", err, loadErr)
	}
	s.logger.Warn("serving exchange rates from snapshot", zap.Error(err))
	return snapshot, nil
}
