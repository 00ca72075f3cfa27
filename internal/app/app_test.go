package app

import (
	"context"
	"testing"

	"ledgerly/internal/config"
	"ledgerly/internal/services/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() config.Config {
	cfg := config.Load()
	cfg.StoreBackend = BackendMemory
	cfg.Redis.Host = "127.0.0.1"
	cfg.Redis.Port = "1"
	cfg.Kafka.Brokers = nil
	cfg.Currency.RateAPIURL = ""
	cfg.AlertSinks = []string{SinkLog}
	cfg.Seed = config.SeedConfig{
		AdminEmail: "admin@example.com",
		UserEmails: []string{"alice@example.com", "bob@example.com"},
	}
	return cfg
}

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis, "unreachable redis is skipped")
	assert.Empty(t, a.HealthChecks())

	admin, err := a.Store.Users().GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
	alice, err := a.Store.Users().GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	bob, err := a.Store.Users().GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)

	_, err = a.Ledger.Deposit(ctx, ledger.DepositRequest{UserID: alice.ID, Amount: decimal.NewFromInt(100), Currency: "INR"})
	require.NoError(t, err)
	res, err := a.Ledger.Transfer(ctx, ledger.TransferRequest{FromUserID: alice.ID, ToUserID: bob.ID, Amount: decimal.NewFromInt(40)})
	require.NoError(t, err)
	assert.Equal(t, "60", res.FromBalance.String())

	report, err := a.Scanner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)

	total, err := a.Dashboard.TotalBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100", total.Total.String())
}

func TestNew_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config)
		want   string
	}{
		{
			name:   "unknown backend",
			mutate: func(cfg *config.Config) { cfg.StoreBackend = "sqlite" },
			want:   `unknown STORE_BACKEND "sqlite"`,
		},
		{
			name:   "unknown sink",
			mutate: func(cfg *config.Config) { cfg.AlertSinks = []string{"pager"} },
			want:   `unknown alert sink "pager"`,
		},
		{
			name:   "kafka sink without brokers",
			mutate: func(cfg *config.Config) { cfg.AlertSinks = []string{SinkLog, SinkKafka} },
			want:   "kafka alert sink requires KAFKA_BROKERS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			_, err := New(context.Background(), cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedList(t *testing.T) {
	seeds := SeedList(config.SeedConfig{AdminEmail: "root@example.com", UserEmails: []string{"a@example.com"}})
	require.Len(t, seeds, 2)
	assert.Equal(t, "admin", seeds[0].Role)
	assert.Equal(t, "a@example.com", seeds[1].Email)

	assert.Empty(t, SeedList(config.SeedConfig{}))
}
