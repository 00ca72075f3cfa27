package currency

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "ledgerly/internal/errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options configures a Converter. Zero values select the defaults.
type Options struct {
	Base          string
	Currencies    map[string]Info
	FallbackRates map[string]decimal.Decimal
	Source        RateSource
	Logger        *zap.Logger
	Clock         func() time.Time
}

// Converter is safe for concurrent use. Refreshes swap the whole rate
// table, so a conversion always sees one consistent table.
type Converter struct {
	base       string
	currencies map[string]Info
	fallback   map[string]decimal.Decimal
	source     RateSource
	logger     *zap.Logger
	now        func() time.Time

	mu            sync.RWMutex
	rates         map[string]decimal.Decimal
	lastUpdate    time.Time
	usingFallback bool
}

func NewConverter(opts Options) *Converter {
	if opts.Base == "" {
		opts.Base = DefaultBase
	}
	if opts.Currencies == nil {
		opts.Currencies = DefaultCurrencies
	}
	if opts.FallbackRates == nil {
		opts.FallbackRates = DefaultFallbackRates()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	base := strings.ToUpper(opts.Base)
	if _, ok := opts.Currencies[base]; !ok {
		panic(fmt.Sprintf("base currency %s is not in the supported currency table", base))
	}

	return &Converter{
		base:          base,
		currencies:    opts.Currencies,
		fallback:      copyRates(opts.FallbackRates),
		source:        opts.Source,
		logger:        opts.Logger,
		now:           opts.Clock,
		rates:         copyRates(opts.FallbackRates),
		usingFallback: true,
	}
}

func (c *Converter) Base() string {
	return c.base
}

func (c *Converter) IsSupported(code string) bool {
	_, ok := c.currencies[strings.ToUpper(code)]
	return ok
}

// Normalize upper-cases code, maps "" to the base currency and rejects
// unsupported codes.
func (c *Converter) Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return c.base, nil
	}
	if !c.IsSupported(code) {
		return "", apperrors.ErrInvalidCurrency.WithMessage("unsupported currency %q", code)
	}
	return code, nil
}

// Convert converts amount from one supported currency to another.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if !c.IsSupported(from) {
		return decimal.Zero, apperrors.ErrInvalidCurrency.WithMessage("unsupported currency %q", from)
	}
	if !c.IsSupported(to) {
		return decimal.Zero, apperrors.ErrInvalidCurrency.WithMessage("unsupported currency %q", to)
	}
	if amount.IsNegative() {
		return decimal.Zero, apperrors.ErrNegativeAmount
	}
	if from == to {
		return amount, nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	fromRate, err := c.rateLocked(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := c.rateLocked(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(fromRate).Div(toRate), nil
}

func (c *Converter) ToBase(amount decimal.Decimal, from string) (decimal.Decimal, error) {
	return c.Convert(amount, from, c.base)
}

func (c *Converter) FromBase(amount decimal.Decimal, to string) (decimal.Decimal, error) {
	return c.Convert(amount, c.base, to)
}

// Rate returns how many units of to one unit of from buys.
func (c *Converter) Rate(from, to string) (decimal.Decimal, error) {
	return c.Convert(decimal.NewFromInt(1), from, to)
}

// rateLocked must be called with c.mu held.
func (c *Converter) rateLocked(code string) (decimal.Decimal, error) {
	if code == c.base {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := c.rates[code]; ok && r.IsPositive() {
		return r, nil
	}
	if r, ok := c.fallback[code]; ok && r.IsPositive() {
		return r, nil
	}
	return decimal.Zero, apperrors.ErrRateUnavailable.WithMessage("no exchange rate for %s", code)
}

// RefreshRates replaces the rate table from the configured source. A
// failed or empty fetch installs the fallback table and logs a warning;
// conversions keep working either way.
func (c *Converter) RefreshRates(ctx context.Context) {
	if c.source == nil {
		c.installFallback()
		return
	}

	fetched, err := c.source.FetchRates(ctx, c.base)
	if err == nil {
		fetched = c.usable(fetched)
		if len(fetched) == 0 {
			err = fmt.Errorf("rate source returned no usable rates")
		}
	}
	if err != nil {
		c.logger.Warn("exchange rate refresh failed, using fallback rates",
			zap.String("base", c.base),
			zap.Error(err),
		)
		c.installFallback()
		return
	}

	for code, r := range c.fallback {
		if _, ok := fetched[code]; !ok {
			fetched[code] = r
		}
	}

	c.mu.Lock()
	c.rates = fetched
	c.lastUpdate = c.now()
	c.usingFallback = false
	c.mu.Unlock()

	c.logger.Info("exchange rates refreshed",
		zap.String("base", c.base),
		zap.Int("currencies", len(fetched)),
	)
}

// usable keeps positive rates for supported non-base currencies.
func (c *Converter) usable(rates map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(rates))
	for code, r := range rates {
		code = strings.ToUpper(code)
		if code == c.base || !c.IsSupported(code) || !r.IsPositive() {
			continue
		}
		out[code] = r
	}
	return out
}

func (c *Converter) installFallback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = copyRates(c.fallback)
	c.lastUpdate = c.now()
	c.usingFallback = true
}

func (c *Converter) LastUpdate() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdate
}

func (c *Converter) UsingFallback() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.usingFallback
}

// Rates returns a copy of the current table.
func (c *Converter) Rates() map[string]decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyRates(c.rates)
}

// Format renders amount with the currency symbol and its canonical number
// of decimal places, e.g. "₹1234.50" or "¥100".
func (c *Converter) Format(amount decimal.Decimal, code string) (string, error) {
	info, ok := c.currencies[strings.ToUpper(code)]
	if !ok {
		return "", apperrors.ErrInvalidCurrency.WithMessage("unsupported currency %q", code)
	}
	return info.Symbol + amount.StringFixed(info.Decimals), nil
}

// SupportedCurrencies lists currency codes in alphabetical order.
func (c *Converter) SupportedCurrencies() []string {
	return sortedCodes(c.currencies)
}

func (c *Converter) CurrencyInfo(code string) (Info, bool) {
	info, ok := c.currencies[strings.ToUpper(code)]
	return info, ok
}
