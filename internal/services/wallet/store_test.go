package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "ledgerly/internal/errors"
	"ledgerly/internal/models"
	"ledgerly/internal/repositories"
	"ledgerly/internal/services/currency"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, int64, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(decimal.Decimal), args.Get(1).(int64), args.Bool(2), args.Error(3)
}

func (m *MockCache) SetBalance(ctx context.Context, userID uint, balance decimal.Decimal, generation int64) error {
	return m.Called(ctx, userID, balance, generation).Error(0)
}

// generationCache is an in-memory BalanceCache. beforeSet runs at the start
// of SetBalance so a test can commit a mutation between the store read and
// the cache fill.
type generationCache struct {
	balances    map[uint]decimal.Decimal
	generations map[uint]int64
	beforeSet   func()
}

func newGenerationCache() *generationCache {
	return &generationCache{balances: map[uint]decimal.Decimal{}, generations: map[uint]int64{}}
}

func (c *generationCache) GetBalance(ctx context.Context, userID uint) (decimal.Decimal, int64, bool, error) {
	b, ok := c.balances[userID]
	return b, c.generations[userID], ok, nil
}

func (c *generationCache) SetBalance(ctx context.Context, userID uint, balance decimal.Decimal, generation int64) error {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	if c.generations[userID] == generation {
		c.balances[userID] = balance
	}
	return nil
}

func (c *generationCache) InvalidateWallet(ctx context.Context, userID uint) error {
	c.generations[userID]++
	delete(c.balances, userID)
	return nil
}

func (m *MockCache) InvalidateWallet(ctx context.Context, userID uint) error {
	return m.Called(ctx, userID).Error(0)
}

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(cache BalanceCache) *Store {
	return NewStore(StoreConfig{
		Converter: currency.NewConverter(currency.Options{}),
		Cache:     cache,
		Clock:     func() time.Time { return fixedNow },
	})
}

func TestStore_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStore()
	s := newTestStore(nil)

	w, err := s.GetOrCreate(ctx, repo, 7)
	require.NoError(t, err)
	assert.Equal(t, uint(7), w.UserID)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, "INR", w.Currency)
	assert.True(t, w.IsActive)

	again, err := s.GetOrCreate(ctx, repo, 7)
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)

	_, err = s.GetOrCreate(ctx, repo, 0)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransaction))
}

func TestStore_CreditAndDebit(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStore()
	s := newTestStore(nil)

	tests := []struct {
		name        string
		op          func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error)
		wantErr     error
		wantMoved   string
		wantBalance string
	}{
		{
			name: "credit in foreign currency converts to base",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Credit(ctx, tx, w, decimal.NewFromInt(10), "USD")
			},
			wantMoved:   "830",
			wantBalance: "830",
		},
		{
			name: "debit in base",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Debit(ctx, tx, w, decimal.NewFromInt(30), "INR")
			},
			wantMoved:   "30",
			wantBalance: "800",
		},
		{
			name: "debit above balance",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Debit(ctx, tx, w, decimal.NewFromInt(10), "USD")
			},
			wantErr:     apperrors.ErrInsufficientBalance,
			wantBalance: "800",
		},
		{
			name: "zero amount",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Credit(ctx, tx, w, decimal.Zero, "INR")
			},
			wantErr:     apperrors.ErrInvalidAmount,
			wantBalance: "800",
		},
		{
			name: "unsupported currency",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Credit(ctx, tx, w, decimal.NewFromInt(1), "BTC")
			},
			wantErr:     apperrors.ErrInvalidCurrency,
			wantBalance: "800",
		},
		{
			name: "debit of the whole balance",
			op: func(tx repositories.Tx, w *models.Wallet) (decimal.Decimal, error) {
				return s.Debit(ctx, tx, w, decimal.NewFromInt(800), "INR")
			},
			wantMoved:   "800",
			wantBalance: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var moved decimal.Decimal
			err := repo.WithinTx(ctx, func(tx repositories.Tx) error {
				w, err := s.GetForUpdate(ctx, tx, 1)
				if err != nil {
					return err
				}
				moved, err = tt.op(tx, w)
				return err
			})

			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMoved, moved.String())
			}

			w, err := repo.Wallets().GetByUserID(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBalance, w.Balance.String())
		})
	}
}

func TestStore_MutationStampsLastTransaction(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStore()
	s := newTestStore(nil)

	err := repo.WithinTx(ctx, func(tx repositories.Tx) error {
		w, err := s.GetForUpdate(ctx, tx, 3)
		require.NoError(t, err)
		_, err = s.Credit(ctx, tx, w, decimal.NewFromInt(5), "INR")
		return err
	})
	require.NoError(t, err)

	w, err := repo.Wallets().GetByUserID(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, w.LastTransactionAt)
	assert.Equal(t, fixedNow, *w.LastTransactionAt)
	assert.Equal(t, int64(1), w.Version)
}

func TestStore_InactiveWallet(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStore()
	s := newTestStore(nil)

	_, err := s.GetOrCreate(ctx, repo, 4)
	require.NoError(t, err)
	require.NoError(t, repo.Wallets().SetActive(ctx, 4, false))

	err = repo.WithinTx(ctx, func(tx repositories.Tx) error {
		w, err := s.GetForUpdate(ctx, tx, 4)
		require.NoError(t, err)
		_, err = s.Credit(ctx, tx, w, decimal.NewFromInt(5), "INR")
		return err
	})
	assert.True(t, errors.Is(err, apperrors.ErrWalletInactive))
}

func TestStore_Balance(t *testing.T) {
	ctx := context.Background()

	t.Run("cache miss reads store and fills cache", func(t *testing.T) {
		repo := repositories.NewMemoryStore()
		cache := new(MockCache)
		s := newTestStore(cache)

		require.NoError(t, repo.WithinTx(ctx, func(tx repositories.Tx) error {
			w, err := s.GetForUpdate(ctx, tx, 1)
			require.NoError(t, err)
			_, err = s.Credit(ctx, tx, w, decimal.NewFromInt(8300), "INR")
			return err
		}))

		cache.On("GetBalance", ctx, uint(1)).Return(decimal.Zero, int64(4), false, nil).Once()
		cache.On("SetBalance", ctx, uint(1), mock.MatchedBy(func(d decimal.Decimal) bool {
			return d.Equal(decimal.NewFromInt(8300))
		}), int64(4)).Return(nil).Once()

		view, err := s.Balance(ctx, repo, 1, "usd")
		require.NoError(t, err)
		assert.Equal(t, "100", view.Balance.String())
		assert.Equal(t, "USD", view.Currency)
		assert.Equal(t, "$100.00", view.Formatted)
		assert.Equal(t, "INR", view.BaseCurrency)
		cache.AssertExpectations(t)
	})

	t.Run("cache hit skips store", func(t *testing.T) {
		repo := repositories.NewMemoryStore()
		cache := new(MockCache)
		s := newTestStore(cache)
		cache.On("GetBalance", ctx, uint(2)).Return(decimal.NewFromInt(166), int64(0), true, nil).Once()

		view, err := s.Balance(ctx, repo, 2, "USD")
		require.NoError(t, err)
		assert.Equal(t, "2", view.Balance.String())

		_, err = repo.Wallets().GetByUserID(ctx, 2)
		assert.ErrorIs(t, err, repositories.ErrWalletNotFound)
		cache.AssertExpectations(t)
	})

	t.Run("cache failure falls back to store", func(t *testing.T) {
		repo := repositories.NewMemoryStore()
		cache := new(MockCache)
		s := newTestStore(cache)
		cache.On("GetBalance", ctx, uint(3)).Return(decimal.Zero, int64(0), false, errors.New("redis down"))
		cache.On("SetBalance", ctx, uint(3), mock.Anything, int64(0)).Return(errors.New("redis down"))

		view, err := s.Balance(ctx, repo, 3, "")
		require.NoError(t, err)
		assert.Equal(t, "₹0.00", view.Formatted)
	})

	t.Run("unsupported currency", func(t *testing.T) {
		s := newTestStore(nil)
		_, err := s.Balance(ctx, repositories.NewMemoryStore(), 1, "XYZ")
		assert.True(t, errors.Is(err, apperrors.ErrInvalidCurrency))
	})
}

func TestStore_BalanceFillLosesToConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewMemoryStore()
	cache := newGenerationCache()
	s := newTestStore(cache)

	credit := func(amount int64) {
		require.NoError(t, repo.WithinTx(ctx, func(tx repositories.Tx) error {
			w, err := s.GetForUpdate(ctx, tx, 1)
			require.NoError(t, err)
			_, err = s.Credit(ctx, tx, w, decimal.NewFromInt(amount), "INR")
			return err
		}))
		s.Invalidate(ctx, 1)
	}
	credit(100)

	// The reader has loaded 100 from the store when a deposit of 50
	// commits and invalidates.
	cache.beforeSet = func() { credit(50) }
	stale, err := s.Balance(ctx, repo, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "100", stale.BaseBalance.String())

	_, cached := cache.balances[1]
	assert.False(t, cached, "a fill read before the mutation must not be cached")

	fresh, err := s.Balance(ctx, repo, 1, "")
	require.NoError(t, err)
	assert.Equal(t, "150", fresh.BaseBalance.String())
	assert.Equal(t, "150", cache.balances[1].String())
}

func TestStore_Invalidate(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	s := newTestStore(cache)
	cache.On("InvalidateWallet", ctx, uint(1)).Return(nil).Once()
	cache.On("InvalidateWallet", ctx, uint(2)).Return(errors.New("redis down")).Once()

	s.Invalidate(ctx, 1, 2)

	cache.AssertExpectations(t)
}
