package fraud

import (
	"strings"
	"time"

	"ledgerly/internal/config"

	"github.com/shopspring/decimal"
)

// Config holds rule thresholds. Zero values are replaced by defaults in
// NewEngine.
type Config struct {
	RapidTransferCount        int
	RapidTransferWindow       time.Duration
	LargeTransactionThreshold decimal.Decimal
	SuspiciousAmounts         []decimal.Decimal
	DailyTransferLimit        decimal.Decimal
	DailyTransactionCount     int
	RecentLimit               int
	RegularityTolerance       time.Duration
	MinAccountAge             time.Duration
	VelocityWindow            time.Duration
	VelocityMinTransactions   int
	VelocityMinGap            time.Duration
	RecipientWindow           time.Duration
	MaxRecipients             int

	// Disabled holds rule names that are skipped.
	Disabled map[string]bool
	// EvaluateDeposits turns on evaluation of deposits, which are skipped
	// by default.
	EvaluateDeposits bool
}

func DefaultConfig() Config {
	return Config{
		RapidTransferCount:        2,
		RapidTransferWindow:       time.Minute,
		LargeTransactionThreshold: decimal.NewFromInt(10000),
		SuspiciousAmounts: []decimal.Decimal{
			decimal.NewFromInt(9999),
			decimal.NewFromInt(99999),
			decimal.NewFromInt(999999),
		},
		DailyTransferLimit:      decimal.NewFromInt(50000),
		DailyTransactionCount:   20,
		RecentLimit:             10,
		RegularityTolerance:     time.Second,
		MinAccountAge:           24 * time.Hour,
		VelocityWindow:          time.Hour,
		VelocityMinTransactions: 3,
		VelocityMinGap:          time.Minute,
		RecipientWindow:         time.Hour,
		MaxRecipients:           3,
		Disabled:                map[string]bool{},
	}
}

// ConfigFromSettings maps environment settings onto the defaults.
func ConfigFromSettings(s config.FraudConfig) Config {
	c := DefaultConfig()
	if s.RapidTransferCount > 0 {
		c.RapidTransferCount = s.RapidTransferCount
	}
	if s.RapidTransferWindow > 0 {
		c.RapidTransferWindow = s.RapidTransferWindow
	}
	if s.LargeTransactionThreshold.IsPositive() {
		c.LargeTransactionThreshold = s.LargeTransactionThreshold
	}
	if s.DailyTransferLimit.IsPositive() {
		c.DailyTransferLimit = s.DailyTransferLimit
	}
	if s.DailyTransactionCount > 0 {
		c.DailyTransactionCount = s.DailyTransactionCount
	}
	if s.MinAccountAge > 0 {
		c.MinAccountAge = s.MinAccountAge
	}
	if s.MaxRecipients > 0 {
		c.MaxRecipients = s.MaxRecipients
	}
	for _, name := range s.DisabledRules {
		if name = strings.TrimSpace(name); name != "" {
			c.Disabled[name] = true
		}
	}
	c.EvaluateDeposits = s.EvaluateDeposits
	return c
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RapidTransferCount <= 0 {
		c.RapidTransferCount = d.RapidTransferCount
	}
	if c.RapidTransferWindow <= 0 {
		c.RapidTransferWindow = d.RapidTransferWindow
	}
	if !c.LargeTransactionThreshold.IsPositive() {
		c.LargeTransactionThreshold = d.LargeTransactionThreshold
	}
	if c.SuspiciousAmounts == nil {
		c.SuspiciousAmounts = d.SuspiciousAmounts
	}
	if !c.DailyTransferLimit.IsPositive() {
		c.DailyTransferLimit = d.DailyTransferLimit
	}
	if c.DailyTransactionCount <= 0 {
		c.DailyTransactionCount = d.DailyTransactionCount
	}
	if c.RecentLimit < 3 {
		c.RecentLimit = d.RecentLimit
	}
	if c.RegularityTolerance <= 0 {
		c.RegularityTolerance = d.RegularityTolerance
	}
	if c.MinAccountAge <= 0 {
		c.MinAccountAge = d.MinAccountAge
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = d.VelocityWindow
	}
	if c.VelocityMinTransactions < 2 {
		c.VelocityMinTransactions = d.VelocityMinTransactions
	}
	if c.VelocityMinGap <= 0 {
		c.VelocityMinGap = d.VelocityMinGap
	}
	if c.RecipientWindow <= 0 {
		c.RecipientWindow = d.RecipientWindow
	}
	if c.MaxRecipients <= 0 {
		c.MaxRecipients = d.MaxRecipients
	}
	if c.Disabled == nil {
		c.Disabled = map[string]bool{}
	}
	return c
}

// lookback is how far before a transaction the history window reaches,
// not counting the start of its UTC day.
func (c Config) lookback() time.Duration {
	d := c.RapidTransferWindow
	if c.VelocityWindow > d {
		d = c.VelocityWindow
	}
	if c.RecipientWindow > d {
		d = c.RecipientWindow
	}
	return d
}
