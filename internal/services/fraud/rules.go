package fraud

import (
	"context"
	"time"

	"ledgerly/internal/models"

	"github.com/shopspring/decimal"
)

// Rule is one independent heuristic. Evaluate only sees transactions
// whose kind Applies accepts.
type Rule interface {
	Name() string
	Label() string
	Applies(kind models.TransactionType) bool
	Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error)
}

const (
	RuleRapidTransfer           = "RapidTransfer"
	RuleLargeTransaction        = "LargeTransaction"
	RuleSuspiciousAmountPattern = "SuspiciousAmountPattern"
	RuleDailyLimitExceeded      = "DailyLimitExceeded"
	RuleUnusualRegularity       = "UnusualRegularity"
	RuleNewAccountActivity      = "NewAccountActivity"
	RuleHighVelocity            = "HighVelocity"
	RuleMultipleRecipients      = "MultipleRecipients"
)

// DefaultRules returns the built-in rules in reporting order.
func DefaultRules(cfg Config) []Rule {
	cfg = cfg.withDefaults()
	return []Rule{
		RapidTransfer{Count: cfg.RapidTransferCount, Window: cfg.RapidTransferWindow},
		LargeTransaction{Threshold: cfg.LargeTransactionThreshold},
		SuspiciousAmountPattern{Amounts: cfg.SuspiciousAmounts},
		DailyLimitExceeded{MaxAmount: cfg.DailyTransferLimit, MaxCount: cfg.DailyTransactionCount},
		UnusualRegularity{Tolerance: cfg.RegularityTolerance},
		NewAccountActivity{MinAge: cfg.MinAccountAge},
		HighVelocity{Window: cfg.VelocityWindow, MinTransactions: cfg.VelocityMinTransactions, MinGap: cfg.VelocityMinGap},
		MultipleRecipients{Window: cfg.RecipientWindow, Max: cfg.MaxRecipients},
	}
}

func isTransfer(kind models.TransactionType) bool {
	return kind == models.TransactionTypeTransfer
}

// RapidTransfer triggers when the source made Count or more transfers in
// the Window ending at this one, itself included.
type RapidTransfer struct {
	Count  int
	Window time.Duration
}

func (RapidTransfer) Name() string                             { return RuleRapidTransfer }
func (RapidTransfer) Label() string                            { return "Rapid Transfer" }
func (RapidTransfer) Applies(kind models.TransactionType) bool { return isTransfer(kind) }

func (r RapidTransfer) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	n := 0
	for _, t := range h.Since(h.At.Add(-r.Window)) {
		if t.Type == models.TransactionTypeTransfer {
			n++
		}
	}
	return n >= r.Count, nil
}

// LargeTransaction triggers when the base amount exceeds Threshold.
type LargeTransaction struct {
	Threshold decimal.Decimal
}

func (LargeTransaction) Name() string  { return RuleLargeTransaction }
func (LargeTransaction) Label() string { return "Large Transaction" }

func (LargeTransaction) Applies(kind models.TransactionType) bool {
	return kind == models.TransactionTypeWithdrawal || kind == models.TransactionTypeTransfer
}

func (r LargeTransaction) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	return tx.BaseAmount.GreaterThan(r.Threshold), nil
}

// SuspiciousAmountPattern triggers when the entered amount is one of the
// known evasion amounts.
type SuspiciousAmountPattern struct {
	Amounts []decimal.Decimal
}

func (SuspiciousAmountPattern) Name() string                        { return RuleSuspiciousAmountPattern }
func (SuspiciousAmountPattern) Label() string                       { return "Suspicious Amount Pattern" }
func (SuspiciousAmountPattern) Applies(models.TransactionType) bool { return true }

func (r SuspiciousAmountPattern) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	for _, a := range r.Amounts {
		if tx.Amount.Equal(a) {
			return true, nil
		}
	}
	return false, nil
}

// DailyLimitExceeded triggers when the source's completed transfers since
// the start of the UTC day exceed MaxAmount in total or MaxCount in number.
type DailyLimitExceeded struct {
	MaxAmount decimal.Decimal
	MaxCount  int
}

func (DailyLimitExceeded) Name() string                             { return RuleDailyLimitExceeded }
func (DailyLimitExceeded) Label() string                            { return "Exceeds Daily Limits" }
func (DailyLimitExceeded) Applies(kind models.TransactionType) bool { return isTransfer(kind) }

func (r DailyLimitExceeded) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	total := decimal.Zero
	count := 0
	for _, t := range h.From(startOfDay(h.At)) {
		if t.Type != models.TransactionTypeTransfer {
			continue
		}
		total = total.Add(t.BaseAmount)
		count++
	}
	return total.GreaterThan(r.MaxAmount) || count > r.MaxCount, nil
}

// UnusualRegularity triggers when the owner's three latest transactions
// are evenly spaced within Tolerance, or all moved the same amount.
type UnusualRegularity struct {
	Tolerance time.Duration
}

func (UnusualRegularity) Name() string                        { return RuleUnusualRegularity }
func (UnusualRegularity) Label() string                       { return "Unusual Transaction Pattern" }
func (UnusualRegularity) Applies(models.TransactionType) bool { return true }

func (r UnusualRegularity) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	if len(h.Recent) < 3 {
		return false, nil
	}
	a, b, c := h.Recent[0], h.Recent[1], h.Recent[2]

	first := a.CreatedAt.Sub(b.CreatedAt)
	second := b.CreatedAt.Sub(c.CreatedAt)
	if absDuration(first-second) < r.Tolerance {
		return true, nil
	}
	return a.BaseAmount.Equal(b.BaseAmount) && b.BaseAmount.Equal(c.BaseAmount), nil
}

// NewAccountActivity triggers when the owner's account was younger than
// MinAge when the transaction was made.
type NewAccountActivity struct {
	MinAge time.Duration
}

func (NewAccountActivity) Name() string                        { return RuleNewAccountActivity }
func (NewAccountActivity) Label() string                       { return "New Account" }
func (NewAccountActivity) Applies(models.TransactionType) bool { return true }

func (r NewAccountActivity) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	if h.AccountCreatedAt == nil {
		return false, nil
	}
	return h.At.Sub(*h.AccountCreatedAt) < r.MinAge, nil
}

// HighVelocity triggers when at least MinTransactions happened within
// Window and the mean gap between them is under MinGap.
type HighVelocity struct {
	Window          time.Duration
	MinTransactions int
	MinGap          time.Duration
}

func (HighVelocity) Name() string                        { return RuleHighVelocity }
func (HighVelocity) Label() string                       { return "High Transaction Velocity" }
func (HighVelocity) Applies(models.TransactionType) bool { return true }

func (r HighVelocity) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	txs := h.From(h.At.Add(-r.Window))
	if len(txs) < r.MinTransactions {
		return false, nil
	}
	span := txs[len(txs)-1].CreatedAt.Sub(txs[0].CreatedAt)
	mean := span / time.Duration(len(txs)-1)
	return mean < r.MinGap, nil
}

// MultipleRecipients triggers when the source paid more than Max distinct
// recipients within Window.
type MultipleRecipients struct {
	Window time.Duration
	Max    int
}

func (MultipleRecipients) Name() string                             { return RuleMultipleRecipients }
func (MultipleRecipients) Label() string                            { return "Multiple Recipients" }
func (MultipleRecipients) Applies(kind models.TransactionType) bool { return isTransfer(kind) }

func (r MultipleRecipients) Evaluate(ctx context.Context, tx *models.Transaction, h *History) (bool, error) {
	seen := make(map[uint]struct{})
	for _, t := range h.From(h.At.Add(-r.Window)) {
		if t.Type == models.TransactionTypeTransfer && t.ToUserID != nil {
			seen[*t.ToUserID] = struct{}{}
		}
	}
	return len(seen) > r.Max, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
