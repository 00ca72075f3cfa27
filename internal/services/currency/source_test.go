package currency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) SaveRates(ctx context.Context, base string, rates map[string]decimal.Decimal) error {
	return m.Called(ctx, base, rates).Error(0)
}

func (m *MockSnapshotStore) LoadRates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base)
	rates, _ := args.Get(0).(map[string]decimal.Decimal)
	return rates, args.Error(1)
}

func TestHTTPSource_FetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest", r.URL.Path)
		assert.Equal(t, "INR", r.URL.Query().Get("from"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"amount":1.0,"base":"INR","date":"2024-01-02","rates":{"USD":0.0125,"EUR":0.01,"GBP":0}}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", time.Second)
	rates, err := src.FetchRates(context.Background(), "INR")
	require.NoError(t, err)

	assert.Equal(t, "80", rates["USD"].String())
	assert.Equal(t, "100", rates["EUR"].String())
	_, ok := rates["GBP"]
	assert.False(t, ok)
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second).FetchRates(context.Background(), "INR")
	assert.ErrorContains(t, err, "status 502")
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	fresh := map[string]decimal.Decimal{"USD": decimal.NewFromInt(84)}
	stale := map[string]decimal.Decimal{"USD": decimal.NewFromInt(82)}

	t.Run("snapshots successful fetch", func(t *testing.T) {
		up := new(MockRateSource)
		snaps := new(MockSnapshotStore)
		up.On("FetchRates", ctx, "INR").Return(fresh, nil)
		snaps.On("SaveRates", ctx, "INR", fresh).Return(errors.New("redis down"))

		rates, err := NewCachedSource(up, snaps, nil).FetchRates(ctx, "INR")
		require.NoError(t, err)
		assert.Equal(t, fresh, rates)
		snaps.AssertExpectations(t)
	})

	t.Run("serves snapshot when upstream fails", func(t *testing.T) {
		up := new(MockRateSource)
		snaps := new(MockSnapshotStore)
		up.On("FetchRates", ctx, "INR").Return(nil, errors.New("timeout"))
		snaps.On("LoadRates", ctx, "INR").Return(stale, nil)

		rates, err := NewCachedSource(up, snaps, nil).FetchRates(ctx, "INR")
		require.NoError(t, err)
		assert.Equal(t, stale, rates)
	})

	t.Run("fails when neither is available", func(t *testing.T) {
		up := new(MockRateSource)
		snaps := new(MockSnapshotStore)
		up.On("FetchRates", ctx, "INR").Return(nil, errors.New("timeout"))
		snaps.On("LoadRates", ctx, "INR").Return(nil, errors.New("no snapshot"))

		_, err := NewCachedSource(up, snaps, nil).FetchRates(ctx, "INR")
		assert.ErrorContains(t, err, "timeout")
	})
}

func TestStaticSource(t *testing.T) {
	src := StaticSource{"USD": decimal.NewFromInt(80)}
	rates, err := src.FetchRates(context.Background(), "INR")
	require.NoError(t, err)
	rates["USD"] = decimal.NewFromInt(1)
	assert.Equal(t, "80", src["USD"].String())
}
