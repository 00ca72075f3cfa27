package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerly/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Wallets().CreateIfAbsent(ctx, models.NewWallet(1, "INR"))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(tx Tx) error {
		w, err := tx.Wallets().GetByUserIDForUpdate(ctx, 1)
		require.NoError(t, err)
		w.Balance = decimal.NewFromInt(500)
		require.NoError(t, tx.Wallets().UpdateBalance(ctx, w))

		require.NoError(t, tx.Transactions().Create(ctx, &models.Transaction{
			Type:       models.TransactionTypeDeposit,
			Amount:     decimal.NewFromInt(500),
			BaseAmount: decimal.NewFromInt(500),
			Currency:   "INR",
			ToUserID:   models.UserRef(1),
			Status:     models.TransactionStatusPending,
			Reference:  "TXN-ROLLBACK",
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := store.Wallets().GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, int64(0), w.Version)

	txs, total, err := store.Transactions().ListByUser(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.Equal(t, int64(0), total)
}

func TestMemoryStore_UpdateBalance(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	repo := store.Wallets()

	created, err := repo.CreateIfAbsent(ctx, models.NewWallet(1, "INR"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateIfAbsent(ctx, models.NewWallet(1, "USD"))
	require.NoError(t, err)
	assert.False(t, created)

	first, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	stale, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)

	first.Balance = decimal.NewFromInt(10)
	require.NoError(t, repo.UpdateBalance(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	stale.Balance = decimal.NewFromInt(20)
	assert.ErrorIs(t, repo.UpdateBalance(ctx, stale), ErrVersionConflict)

	first.Balance = decimal.NewFromInt(-1)
	assert.ErrorIs(t, repo.UpdateBalance(ctx, first), ErrNegativeBalance)

	got, err := repo.GetByUserID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "10", got.Balance.String())
}

func TestMemoryStore_TransactionQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	txs := store.Transactions()
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	add := func(ref string, typ models.TransactionType, from, to *uint, amount int64, at time.Time, status models.TransactionStatus) *models.Transaction {
		tx := &models.Transaction{
			Type:       typ,
			Amount:     decimal.NewFromInt(amount),
			BaseAmount: decimal.NewFromInt(amount),
			Currency:   "INR",
			FromUserID: from,
			ToUserID:   to,
			Status:     status,
			Reference:  ref,
			CreatedAt:  at,
		}
		require.NoError(t, txs.Create(ctx, tx))
		return tx
	}

	add("TXN-1", models.TransactionTypeDeposit, nil, models.UserRef(1), 1000, t0, models.TransactionStatusCompleted)
	add("TXN-2", models.TransactionTypeTransfer, models.UserRef(1), models.UserRef(2), 100, t0.Add(time.Minute), models.TransactionStatusCompleted)
	add("TXN-3", models.TransactionTypeWithdrawal, models.UserRef(1), nil, 50, t0.Add(2*time.Minute), models.TransactionStatusPending)
	deleted := add("TXN-4", models.TransactionTypeTransfer, models.UserRef(2), models.UserRef(1), 10, t0.Add(3*time.Minute), models.TransactionStatusCompleted)

	err := txs.Create(ctx, &models.Transaction{Reference: "TXN-1"})
	assert.ErrorIs(t, err, ErrDuplicateReference)

	require.NoError(t, txs.SoftDelete(ctx, deleted.ID))
	assert.ErrorIs(t, txs.SoftDelete(ctx, deleted.ID), ErrTransactionNotFound)

	window, err := txs.ListCompletedBetween(ctx, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "TXN-1", window[0].Reference)
	assert.Equal(t, "TXN-2", window[1].Reference)

	// The deposit received by user 1 is not part of its outgoing activity.
	sent, err := txs.ListCompletedBySource(ctx, 1, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, "TXN-2", sent[0].Reference)

	recent, err := txs.RecentCompletedBySource(ctx, 1, t0.Add(time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "TXN-2", recent[0].Reference)

	history, total, err := txs.ListByUser(ctx, 1, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, history, 2)
	assert.Equal(t, "TXN-3", history[0].Reference)

	summary, err := txs.SummaryByType(ctx)
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, models.TransactionTypeDeposit, summary[0].Type)

	daily, err := txs.DailyCounts(ctx, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, DailyCount{Day: "2024-05-01", Count: 3}, daily[0])
}

func TestMemoryStore_FlagsAreUnique(t *testing.T) {
	ctx := context.Background()
	flags := NewMemoryStore().Flags()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	created, err := flags.CreateIfAbsent(ctx, &models.FlaggedTransaction{TransactionID: 7, UserID: 1, Reason: "Large Transaction", DetectedAt: now})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = flags.CreateIfAbsent(ctx, &models.FlaggedTransaction{TransactionID: 7, UserID: 1, Reason: "Rapid Transfer", DetectedAt: now})
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := flags.Exists(ctx, 7)
	require.NoError(t, err)
	assert.True(t, exists)

	list, total, err := flags.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Large Transaction", list[0].Reason)
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()

	require.NoError(t, users.Create(ctx, &models.User{Email: "Alice@Example.com", Name: "Alice", IsActive: true}))
	assert.ErrorIs(t, users.Create(ctx, &models.User{Email: "alice@example.com", Name: "Dup", IsActive: true}), ErrDuplicateUser)
	require.NoError(t, users.Create(ctx, &models.User{Email: "bob@example.com", Name: "Bob", IsActive: true, IsDeleted: true}))

	ok, err := users.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Exists(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = users.Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
}
