package fraud

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/currency"
	"ledgerly/internal/services/notification"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) SendFraudAlert(ctx context.Context, a notification.Alert) error {
	return m.Called(ctx, a).Error(0)
}

type loaderFunc func(ctx context.Context, tx *models.Transaction) (*History, error)

func (f loaderFunc) Load(ctx context.Context, tx *models.Transaction) (*History, error) {
	return f(ctx, tx)
}

type failingRule struct{}

func (failingRule) Name() string                        { return "Failing" }
func (failingRule) Label() string                       { return "Failing" }
func (failingRule) Applies(models.TransactionType) bool { return true }

func (failingRule) Evaluate(context.Context, *models.Transaction, *History) (bool, error) {
	return false, errors.New("lookup timed out")
}

// record stores a completed transaction as the ledger would.
func record(t *testing.T, store *repositories.MemoryStore, tx models.Transaction, ref string) *models.Transaction {
	t.Helper()
	tx.Reference = ref
	require.NoError(t, store.Transactions().Create(context.Background(), &tx))
	return &tx
}

func newTestEngine(store *repositories.MemoryStore, sink notification.AlertSink, cfg Config) *Engine {
	flagger := NewFlagger(FlaggerConfig{
		Flags:     store.Flags(),
		Users:     store.Users(),
		Sink:      sink,
		Converter: currency.NewConverter(currency.Options{}),
		Clock:     func() time.Time { return t0.Add(time.Hour) },
	})
	return NewEngine(EngineConfig{
		Config:  cfg,
		History: NewHistoryProvider(store.Transactions(), store.Users(), cfg),
		Flagger: flagger,
	})
}

func TestEngine_RapidTransfersFlaggedOnce(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	sink := new(MockSink)
	engine := newTestEngine(store, sink, DefaultConfig())

	var txs []*models.Transaction
	for i, ref := range []string{"TXN-A", "TXN-B", "TXN-C"} {
		txs = append(txs, record(t, store, txAt(models.TransactionTypeTransfer, 10, t0.Add(time.Duration(i)*10*time.Second), 2), ref))
	}

	sink.On("SendFraudAlert", ctx, mock.MatchedBy(func(a notification.Alert) bool {
		return a.Reference == "TXN-B" && a.Reason == "Rapid Transfer" && a.FormattedAmount == "₹10.00"
	})).Return(nil).Once()
	sink.On("SendFraudAlert", ctx, mock.MatchedBy(func(a notification.Alert) bool {
		return a.Reference == "TXN-C"
	})).Return(errors.New("smtp down")).Once()

	first, err := engine.Check(ctx, txs[0])
	require.NoError(t, err)
	assert.False(t, first.Verdict.Suspicious)
	assert.False(t, first.Flagged)

	second, err := engine.Check(ctx, txs[1])
	require.NoError(t, err)
	assert.True(t, second.Flagged)
	assert.Equal(t, []string{RuleRapidTransfer}, second.Verdict.Rules)

	third, err := engine.Check(ctx, txs[2])
	require.NoError(t, err, "sink failures are not returned")
	assert.True(t, third.Flagged)
	assert.Equal(t, "Rapid Transfer, Unusual Transaction Pattern, High Transaction Velocity", third.Verdict.Reason())

	for _, tx := range txs[1:] {
		again, err := engine.Check(ctx, tx)
		require.NoError(t, err)
		assert.False(t, again.Flagged)
		assert.True(t, again.AlreadyFlagged)
	}

	flags, total, err := store.Flags().List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, f := range flags {
		assert.Equal(t, uint(1), f.UserID)
	}
	sink.AssertExpectations(t)
}

func TestEngine_SuspiciousWithdrawalBelowThreshold(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	sink := new(MockSink)
	engine := newTestEngine(store, sink, DefaultConfig())
	tx := record(t, store, txAt(models.TransactionTypeWithdrawal, 9999, t0, 0), "TXN-W")
	sink.On("SendFraudAlert", ctx, mock.Anything).Return(nil).Once()

	res, err := engine.Check(ctx, tx)

	require.NoError(t, err)
	assert.True(t, res.Flagged)
	assert.Contains(t, res.Verdict.Labels, "Suspicious Amount Pattern")
	assert.NotContains(t, res.Verdict.Labels, "Large Transaction")
}

func TestEngine_DepositsDoNotShapeWithdrawalHistory(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	engine := newTestEngine(store, new(MockSink), DefaultConfig())
	record(t, store, txAt(models.TransactionTypeDeposit, 500, t0.Add(-31*time.Second), 1), "TXN-D1")
	record(t, store, txAt(models.TransactionTypeDeposit, 500, t0.Add(-18*time.Second), 1), "TXN-D2")
	withdrawal := record(t, store, txAt(models.TransactionTypeWithdrawal, 37, t0, 0), "TXN-W")

	v, err := engine.Evaluate(ctx, withdrawal)

	require.NoError(t, err)
	assert.False(t, v.Suspicious, "rules: %v", v.Rules)
}

func TestEngine_NewAccountUsesIdentity(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	require.NoError(t, store.Users().Create(ctx, &models.User{
		ID: 1, Email: "New@Example.com", Name: "New", IsActive: true, CreatedAt: t0.Add(-time.Hour),
	}))
	sink := new(MockSink)
	engine := newTestEngine(store, sink, DefaultConfig())
	tx := record(t, store, txAt(models.TransactionTypeWithdrawal, 100, t0, 0), "TXN-N")
	sink.On("SendFraudAlert", ctx, mock.MatchedBy(func(a notification.Alert) bool {
		return a.UserEmail == "new@example.com"
	})).Return(nil).Once()

	res, err := engine.Check(ctx, tx)

	require.NoError(t, err)
	assert.Equal(t, []string{RuleNewAccountActivity}, res.Verdict.Rules)
	sink.AssertExpectations(t)
}

func TestEngine_Policy(t *testing.T) {
	ctx := context.Background()
	h := historyOf(txAt(models.TransactionTypeWithdrawal, 9999, t0, 0))
	loader := loaderFunc(func(context.Context, *models.Transaction) (*History, error) { return h, nil })

	t.Run("deposits are skipped by default", func(t *testing.T) {
		e := NewEngine(EngineConfig{History: loaderFunc(func(context.Context, *models.Transaction) (*History, error) {
			t.Fatal("history must not be loaded for deposits")
			return nil, nil
		})})
		dep := txAt(models.TransactionTypeDeposit, 9999, t0, 1)
		v, err := e.Evaluate(ctx, &dep)
		require.NoError(t, err)
		assert.False(t, v.Suspicious)
	})

	t.Run("deposits evaluated when enabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EvaluateDeposits = true
		e := NewEngine(EngineConfig{Config: cfg, History: loader})
		dep := txAt(models.TransactionTypeDeposit, 9999, t0, 1)
		v, err := e.Evaluate(ctx, &dep)
		require.NoError(t, err)
		assert.Equal(t, []string{RuleSuspiciousAmountPattern}, v.Rules)
	})

	t.Run("disabled rules do not run", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Disabled[RuleSuspiciousAmountPattern] = true
		e := NewEngine(EngineConfig{Config: cfg, History: loader})
		v, err := e.Evaluate(ctx, &h.Window[0])
		require.NoError(t, err)
		assert.False(t, v.Suspicious)
		assert.NotContains(t, e.Rules(), RuleSuspiciousAmountPattern)
		assert.Len(t, e.Rules(), 7)
	})

	t.Run("rule errors do not hide other verdicts", func(t *testing.T) {
		e := NewEngine(EngineConfig{
			History: loader,
			Rules:   append([]Rule{failingRule{}}, DefaultRules(DefaultConfig())...),
		})
		v, err := e.Evaluate(ctx, &h.Window[0])
		assert.ErrorContains(t, err, "rule Failing: lookup timed out")
		require.NotNil(t, v)
		assert.True(t, v.Suspicious)
		assert.Equal(t, "Suspicious Amount Pattern", v.Reason())
	})

	t.Run("history failure aborts evaluation", func(t *testing.T) {
		e := NewEngine(EngineConfig{History: loaderFunc(func(context.Context, *models.Transaction) (*History, error) {
			return nil, repositories.ErrTransactionNotFound
		})})
		res, err := e.Check(ctx, &h.Window[0])
		assert.ErrorIs(t, err, repositories.ErrTransactionNotFound)
		assert.Nil(t, res)
	})
}

func TestHistoryProvider_Load(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	p := NewHistoryProvider(store.Transactions(), store.Users(), DefaultConfig())

	yesterday := record(t, store, txAt(models.TransactionTypeWithdrawal, 1, t0.Add(-13*time.Hour), 0), "TXN-1")
	early := record(t, store, txAt(models.TransactionTypeWithdrawal, 2, t0.Add(-3*time.Hour), 0), "TXN-2")
	current := record(t, store, txAt(models.TransactionTypeTransfer, 3, t0, 2), "TXN-3")
	record(t, store, txAt(models.TransactionTypeWithdrawal, 4, t0.Add(time.Minute), 0), "TXN-4")
	other := txAt(models.TransactionTypeWithdrawal, 5, t0, 0)
	other.FromUserID = models.UserRef(9)
	record(t, store, other, "TXN-5")

	h, err := p.Load(ctx, current)
	require.NoError(t, err)

	assert.Equal(t, t0, h.At)
	require.Len(t, h.Recent, 3)
	assert.Equal(t, current.ID, h.Recent[0].ID)
	assert.Equal(t, yesterday.ID, h.Recent[2].ID)
	require.Len(t, h.Window, 2)
	assert.Equal(t, early.ID, h.Window[0].ID)
	assert.Nil(t, h.AccountCreatedAt)

	_, err = p.Load(ctx, &models.Transaction{ID: 99, Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestHistoryProvider_LoadDeposit(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	p := NewHistoryProvider(store.Transactions(), store.Users(), DefaultConfig())

	sent := record(t, store, txAt(models.TransactionTypeWithdrawal, 1, t0.Add(-time.Minute), 0), "TXN-1")
	record(t, store, txAt(models.TransactionTypeDeposit, 2, t0.Add(-30*time.Second), 1), "TXN-2")
	dep := record(t, store, txAt(models.TransactionTypeDeposit, 3, t0, 1), "TXN-3")

	h, err := p.Load(ctx, dep)
	require.NoError(t, err)

	require.Len(t, h.Recent, 2)
	assert.Equal(t, dep.ID, h.Recent[0].ID)
	assert.Equal(t, sent.ID, h.Recent[1].ID)
	require.Len(t, h.Window, 2)
	assert.Equal(t, sent.ID, h.Window[0].ID)
	assert.Equal(t, dep.ID, h.Window[1].ID)
}
