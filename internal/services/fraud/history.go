package fraud

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
)

// History is the owner's outgoing activity as it stood when a transaction
// was created. Money received never counts. Both slices include the
// transaction itself once it is completed; for an evaluated deposit it is
// the only incoming transaction present.
type History struct {
	// At is the evaluated transaction's creation time.
	At time.Time
	// Recent holds the owner's latest completed transactions at or before
	// At, newest first.
	Recent []models.Transaction
	// Window holds the owner's completed transactions from the earlier of
	// the start of At's UTC day and the longest rule lookback, up to At,
	// oldest first.
	Window []models.Transaction
	// AccountCreatedAt is nil when the identity provider does not know
	// the owner.
	AccountCreatedAt *time.Time
}

// Since returns the window's transactions created after t.
func (h *History) Since(t time.Time) []models.Transaction {
	var out []models.Transaction
	for _, tx := range h.Window {
		if tx.CreatedAt.After(t) {
			out = append(out, tx)
		}
	}
	return out
}

// From returns the window's transactions created at or after t.
func (h *History) From(t time.Time) []models.Transaction {
	var out []models.Transaction
	for _, tx := range h.Window {
		if !tx.CreatedAt.Before(t) {
			out = append(out, tx)
		}
	}
	return out
}

// HistoryLoader builds the History a transaction is judged against.
type HistoryLoader interface {
	Load(ctx context.Context, tx *models.Transaction) (*History, error)
}

// HistoryProvider loads History from the repositories.
type HistoryProvider struct {
	txs   repositories.TransactionRepository
	users repositories.UserRepository
	cfg   Config
}

// NewHistoryProvider builds a loader. users may be nil, in which case
// account age is unknown.
func NewHistoryProvider(txs repositories.TransactionRepository, users repositories.UserRepository, cfg Config) *HistoryProvider {
	return &HistoryProvider{txs: txs, users: users, cfg: cfg.withDefaults()}
}

func (p *HistoryProvider) Load(ctx context.Context, tx *models.Transaction) (*History, error) {
	owner := tx.OwnerID()
	if owner == 0 {
		return nil, fmt.Errorf("transaction %d has no owner", tx.ID)
	}

	at := tx.CreatedAt.UTC()
	start := startOfDay(at)
	if s := at.Add(-p.cfg.lookback()); s.Before(start) {
		start = s
	}

	recent, err := p.txs.RecentCompletedBySource(ctx, owner, at, p.cfg.RecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}
	window, err := p.txs.ListCompletedBySource(ctx, owner, start, at)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction window: %w", err)
	}

	if tx.FromUserID == nil && tx.Status == models.TransactionStatusCompleted {
		recent, window = withDeposit(recent, window, *tx, p.cfg.RecentLimit)
	}

	h := &History{At: at, Recent: recent, Window: window}
	if p.users != nil {
		user, err := p.users.GetByID(ctx, owner)
		switch {
		case err == nil:
			created := user.CreatedAt
			h.AccountCreatedAt = &created
		case errors.Is(err, repositories.ErrUserNotFound):
		default:
			return nil, fmt.Errorf("failed to load account: %w", err)
		}
	}
	return h, nil
}

// withDeposit places the evaluated deposit in its position in both slices.
func withDeposit(recent, window []models.Transaction, dep models.Transaction, limit int) ([]models.Transaction, []models.Transaction) {
	i := sort.Search(len(recent), func(i int) bool { return !recent[i].CreatedAt.After(dep.CreatedAt) })
	recent = append(recent[:i:i], append([]models.Transaction{dep}, recent[i:]...)...)
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}

	j := sort.Search(len(window), func(j int) bool { return window[j].CreatedAt.After(dep.CreatedAt) })
	window = append(window[:j:j], append([]models.Transaction{dep}, window[j:]...)...)
	return recent, window
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
