package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the typed view of the process environment.
type Config struct {
	Env          string
	Port         string
	JWTSecret    string
	StoreBackend string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Currency CurrencyConfig
	Ledger   LedgerConfig
	Fraud    FraudConfig
	Scan     ScanConfig
	Seed     SeedConfig

	AlertSinks []string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Brokers     []string
	AlertTopic  string
	EventsTopic string
}

type CurrencyConfig struct {
	Base            string
	RateAPIURL      string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
}

type LedgerConfig struct {
	MaxRetries     int
	RetryBackoff   time.Duration
	PublishTimeout time.Duration
}

type FraudConfig struct {
	RapidTransferCount        int
	RapidTransferWindow       time.Duration
	LargeTransactionThreshold decimal.Decimal
	DailyTransferLimit        decimal.Decimal
	DailyTransactionCount     int
	MinAccountAge             time.Duration
	MaxRecipients             int
	DisabledRules             []string
	EvaluateDeposits          bool
}

type ScanConfig struct {
	Interval   time.Duration
	Window     time.Duration
	RunOnStart bool
	LockTTL    time.Duration
}

// SeedConfig lists the identity rows admin_seed and the memory backend
// create on startup.
type SeedConfig struct {
	AdminEmail string
	UserEmails []string
}

// Load reads every setting the service uses, applying defaults.
func Load() Config {
	return Config{
		Env:          GetEnv("ENV", "development"),
		Port:         GetEnv("PORT", "3000"),
		JWTSecret:    GetEnv("JWT_SECRET", "your-secret-key"),
		StoreBackend: strings.ToLower(GetEnv("STORE_BACKEND", "postgres")),
		Database: DatabaseConfig{
			Host:            GetEnv("DB_HOST", "localhost"),
			Port:            GetEnv("DB_PORT", "5432"),
			User:            GetEnv("DB_USER", "postgres"),
			Password:        GetEnv("DB_PASSWORD", "postgres"),
			Name:            GetEnv("DB_NAME", "ledgerly"),
			MaxIdleConns:    GetIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    GetIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime: GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetIntEnv("REDIS_DB", 0),
			CacheTTL: GetDurationEnv("REDIS_CACHE_TTL", 5*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:     GetListEnv("KAFKA_BROKERS", nil),
			AlertTopic:  GetEnv("KAFKA_ALERT_TOPIC", "fraud-alerts"),
			EventsTopic: GetEnv("KAFKA_EVENTS_TOPIC", "transaction-events"),
		},
		Currency: CurrencyConfig{
			Base:            strings.ToUpper(GetEnv("BASE_CURRENCY", "INR")),
			RateAPIURL:      GetEnv("RATE_API_URL", "https://api.frankfurter.app"),
			RefreshInterval: GetDurationEnv("RATE_REFRESH_INTERVAL", time.Hour),
			RequestTimeout:  GetDurationEnv("RATE_REQUEST_TIMEOUT", 10*time.Second),
		},
		Ledger: LedgerConfig{
			MaxRetries:     GetIntEnv("LEDGER_MAX_RETRIES", 3),
			RetryBackoff:   GetDurationEnv("LEDGER_RETRY_BACKOFF", 20*time.Millisecond),
			PublishTimeout: GetDurationEnv("LEDGER_PUBLISH_TIMEOUT", 2*time.Second),
		},
		Fraud: FraudConfig{
			RapidTransferCount:        GetIntEnv("FRAUD_RAPID_TRANSFER_COUNT", 2),
			RapidTransferWindow:       GetDurationEnv("FRAUD_RAPID_TRANSFER_WINDOW", time.Minute),
			LargeTransactionThreshold: GetDecimalEnv("FRAUD_LARGE_TRANSACTION_THRESHOLD", decimal.NewFromInt(10000)),
			DailyTransferLimit:        GetDecimalEnv("FRAUD_DAILY_TRANSFER_LIMIT", decimal.NewFromInt(50000)),
			DailyTransactionCount:     GetIntEnv("FRAUD_DAILY_TRANSACTION_COUNT", 20),
			MinAccountAge:             GetDurationEnv("FRAUD_MIN_ACCOUNT_AGE", 24*time.Hour),
			MaxRecipients:             GetIntEnv("FRAUD_MAX_RECIPIENTS", 3),
			DisabledRules:             GetListEnv("FRAUD_DISABLED_RULES", nil),
			EvaluateDeposits:          GetBoolEnv("FRAUD_EVALUATE_DEPOSITS", false),
		},
		Scan: ScanConfig{
			Interval:   GetDurationEnv("SCAN_INTERVAL", 24*time.Hour),
			Window:     GetDurationEnv("SCAN_WINDOW", 24*time.Hour),
			RunOnStart: GetBoolEnv("SCAN_RUN_ON_START", false),
			LockTTL:    GetDurationEnv("SCAN_LOCK_TTL", 30*time.Minute),
		},
		Seed: SeedConfig{
			AdminEmail: GetEnv("ADMIN_EMAIL", ""),
			UserEmails: GetListEnv("SEED_USER_EMAILS", nil),
		},
		AlertSinks: GetListEnv("ALERT_SINKS", []string{"log"}),
	}
}
