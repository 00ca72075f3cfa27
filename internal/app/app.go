// Package app wires the ledger's services from configuration. The server
// and the one-shot commands share it so they run the same stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerly/internal/config"
	"ledgerly/internal/handlers"
	"ledgerly/internal/repositories"
	"ledgerly/internal/repositories/cache"
	"ledgerly/internal/services/currency"
	"ledgerly/internal/services/dashboard"
	"ledgerly/internal/services/fraud"
	"ledgerly/internal/services/ledger"
	"ledgerly/internal/services/notification"
	"ledgerly/internal/services/wallet"
	"ledgerly/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"

	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

// App holds every long-lived component. Fields for optional backends
// (DB, Redis, Cache) are nil when the backend is not in use.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Store repositories.Store
	DB    *gorm.DB
	Redis *redis.Client
	Cache *cache.CacheService

	Converter *currency.Converter
	Wallets   *wallet.Store
	Fraud     *fraud.Engine
	Ledger    *ledger.Service
	Dashboard dashboard.Service
	Scanner   *worker.FraudScanner

	closers []func() error
}

// New opens the configured backends and builds the services on top of
// them. Redis is optional: when it does not answer, caches, the scan lock
// and the Redis sink are disabled.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.openRedis(ctx)

	a.Converter = a.buildConverter()
	a.Wallets = wallet.NewStore(wallet.StoreConfig{
		Converter: a.Converter,
		Cache:     a.balanceCache(),
		Logger:    logger.Named("wallet"),
	})

	sink, err := a.buildAlertSink()
	if err != nil {
		a.Close()
		return nil, err
	}
	fraudCfg := fraud.ConfigFromSettings(cfg.Fraud)
	a.Fraud = fraud.NewEngine(fraud.EngineConfig{
		Config:  fraudCfg,
		History: fraud.NewHistoryProvider(a.Store.Transactions(), a.Store.Users(), fraudCfg),
		Flagger: fraud.NewFlagger(fraud.FlaggerConfig{
			Flags:     a.Store.Flags(),
			Users:     a.Store.Users(),
			Sink:      sink,
			Converter: a.Converter,
			Logger:    logger.Named("flagger"),
		}),
		Logger: logger.Named("fraud"),
	})
	logger.Info("fraud rules enabled", zap.Strings("rules", a.Fraud.Rules()))

	a.Ledger = ledger.NewService(ledger.ServiceConfig{
		Store:          a.Store,
		Wallets:        a.Wallets,
		Fraud:          a.Fraud,
		Events:         a.buildEventPublisher(),
		MaxRetries:     cfg.Ledger.MaxRetries,
		RetryBackoff:   cfg.Ledger.RetryBackoff,
		PublishTimeout: cfg.Ledger.PublishTimeout,
		Logger:         logger.Named("ledger"),
	})
	a.Dashboard = dashboard.NewService(a.Store, a.Converter, logger.Named("dashboard"))

	scanCfg := worker.ScannerConfig{
		Interval:   cfg.Scan.Interval,
		Window:     cfg.Scan.Window,
		RunOnStart: cfg.Scan.RunOnStart,
		LockTTL:    cfg.Scan.LockTTL,
		Logger:     logger.Named("fraud-scan"),
	}
	if a.Redis != nil {
		scanCfg.Lock = cache.NewLocker(a.Redis)
	}
	a.Scanner = worker.NewFraudScanner(a.Store.Transactions(), a.Fraud, scanCfg)

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.StoreBackend {
	case BackendMemory:
		store := repositories.NewMemoryStore()
		a.Store = store
		seeded, err := repositories.SeedUsers(ctx, store.Users(), SeedList(a.Config.Seed))
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		a.Logger.Warn("using in-memory store, data is lost on exit", zap.Int("seeded_users", len(seeded)))
		return nil
	case BackendPostgres, "":
		db, err := repositories.InitDB(a.Config.Database, a.Logger)
		if err != nil {
			return err
		}
		a.DB = db
		a.Store = repositories.NewGormStore(db)
		a.closers = append(a.closers, func() error { return repositories.CloseDB(db) })
		return nil
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", a.Config.StoreBackend)
	}
}

func (a *App) openRedis(ctx context.Context) {
	client := cache.NewRedisClient(&cache.RedisConfig{
		Host:     a.Config.Redis.Host,
		Port:     a.Config.Redis.Port,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	svc := cache.NewCacheService(client, a.Config.Redis.CacheTTL)
	if err := svc.HealthCheck(ctx); err != nil {
		a.Logger.Warn("redis unavailable, running without cache", zap.Error(err))
		_ = client.Close()
		return
	}
	a.Redis = client
	a.Cache = svc
	a.closers = append(a.closers, svc.Close)
	a.Logger.Info("redis connected", zap.String("addr", client.Options().Addr))
}

func (a *App) balanceCache() wallet.BalanceCache {
	if a.Cache == nil {
		return nil
	}
	return a.Cache
}

func (a *App) buildConverter() *currency.Converter {
	var source currency.RateSource
	if a.Config.Currency.RateAPIURL != "" {
		source = currency.NewHTTPSource(a.Config.Currency.RateAPIURL, a.Config.Currency.RequestTimeout)
		if a.Cache != nil {
			source = currency.NewCachedSource(source, a.Cache, a.Logger.Named("rates"))
		}
	}
	return currency.NewConverter(currency.Options{
		Base:   a.Config.Currency.Base,
		Source: source,
		Logger: a.Logger.Named("currency"),
	})
}

func (a *App) buildAlertSink() (notification.AlertSink, error) {
	var sinks notification.MultiSink
	for _, name := range a.Config.AlertSinks {
		switch strings.ToLower(name) {
		case SinkLog:
			sinks = append(sinks, notification.NewLogSink(a.Logger.Named("alerts")))
		case SinkRedis:
			if a.Redis == nil {
				a.Logger.Warn("redis alert sink requested but redis is unavailable")
				continue
			}
			sinks = append(sinks, notification.NewRedisSink(a.Redis))
		case SinkKafka:
			if len(a.Config.Kafka.Brokers) == 0 {
				return nil, errors.New("kafka alert sink requires KAFKA_BROKERS")
			}
			w := notification.NewKafkaWriter(a.Config.Kafka.Brokers, a.Config.Kafka.AlertTopic, a.Logger.Named("kafka"))
			sink := notification.NewKafkaSink(w)
			sinks = append(sinks, sink)
			a.closers = append(a.closers, sink.Close)
		default:
			return nil, fmt.Errorf("unknown alert sink %q", name)
		}
	}
	if len(sinks) == 0 {
		return notification.NewLogSink(a.Logger.Named("alerts")), nil
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

// buildEventPublisher returns nil when neither Redis nor Kafka is
// configured, which turns event publishing off.
func (a *App) buildEventPublisher() ledger.EventPublisher {
	var pub notification.Publisher
	if a.Redis != nil {
		pub = a.Redis
	}
	var writer notification.MessageWriter
	if len(a.Config.Kafka.Brokers) > 0 {
		w := notification.NewKafkaWriter(a.Config.Kafka.Brokers, a.Config.Kafka.EventsTopic, a.Logger.Named("kafka"))
		writer = w
		a.closers = append(a.closers, w.Close)
	}
	if pub == nil && writer == nil {
		return nil
	}
	return notification.NewEventPublisher(pub, writer, a.Logger.Named("events"))
}

// HealthChecks probes the backends that are in use.
func (a *App) HealthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{}
	if a.DB != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if a.Cache != nil {
		checks["redis"] = a.Cache.HealthCheck
	}
	return checks
}

// Close releases the backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SeedList turns the seed settings into identity rows.
func SeedList(cfg config.SeedConfig) []repositories.SeedUser {
	var seeds []repositories.SeedUser
	if cfg.AdminEmail != "" {
		seeds = append(seeds, repositories.SeedUser{Email: cfg.AdminEmail, Name: "Administrator", Role: "admin"})
	}
	for _, email := range cfg.UserEmails {
		seeds = append(seeds, repositories.SeedUser{Email: email})
	}
	return seeds
}
