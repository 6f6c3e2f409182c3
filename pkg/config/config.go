package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Ledger       LedgerConfig
	Paystack     PaystackConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PAYPADI_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYPADI_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYPADI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYPADI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYPADI_DB_DSN"`
	Driver string `envconfig:"PAYPADI_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PAYPADI_DB_HOST"`
	LegacyPort     int    `envconfig:"PAYPADI_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PAYPADI_DB_USER"`
	LegacyPassword string `envconfig:"PAYPADI_DB_PASSWORD"`
	LegacyName     string `envconfig:"PAYPADI_DB_NAME"`
	LegacySSLMode  string `envconfig:"PAYPADI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYPADI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYPADI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYPADI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYPADI_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYPADI_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PAYPADI_REDIS_ADDR"`
	Password     string        `envconfig:"PAYPADI_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYPADI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYPADI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYPADI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYPADI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYPADI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYPADI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PAYPADI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PAYPADI_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PAYPADI_JWT_EXPIRATION_MINUTES" default:"60"`
}

// LedgerConfig bounds the engine's locking, retry, and expiry behavior.
type LedgerConfig struct {
	LockWaitTimeout    time.Duration `envconfig:"PAYPADI_LEDGER_LOCK_WAIT_TIMEOUT" default:"3s"`
	CommitMaxRetries   int           `envconfig:"PAYPADI_LEDGER_COMMIT_MAX_RETRIES" default:"3"`
	TopUpExpiryWindow  time.Duration `envconfig:"PAYPADI_LEDGER_TOPUP_EXPIRY_WINDOW" default:"24h"`
	HoldExpiryWindow   time.Duration `envconfig:"PAYPADI_LEDGER_HOLD_EXPIRY_WINDOW" default:"48h"`
	BalanceCacheTTL    time.Duration `envconfig:"PAYPADI_LEDGER_BALANCE_CACHE_TTL" default:"30s"`
	DefaultCurrency    string        `envconfig:"PAYPADI_LEDGER_DEFAULT_CURRENCY" default:"NGN"`
	ProviderCallBudget time.Duration `envconfig:"PAYPADI_LEDGER_PROVIDER_CALL_BUDGET" default:"30s"`
}

type PaystackConfig struct {
	SecretKey     string        `envconfig:"PAYPADI_PAYSTACK_SECRET_KEY" required:"true"`
	PublicKey     string        `envconfig:"PAYPADI_PAYSTACK_PUBLIC_KEY"`
	BaseURL       string        `envconfig:"PAYPADI_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	CallbackURL   string        `envconfig:"PAYPADI_PAYSTACK_CALLBACK_URL"`
	WebhookSecret string        `envconfig:"PAYPADI_PAYSTACK_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"PAYPADI_PAYSTACK_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"PAYPADI_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	WalletTopic        string `envconfig:"PAYPADI_PUBSUB_WALLET_TOPIC" default:"paypadi-wallet-events"`
	WalletSubscription string `envconfig:"PAYPADI_PUBSUB_WALLET_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PAYPADI_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PAYPADI_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PAYPADI_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"PAYPADI_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"PAYPADI_CRON_INTERVAL" default:"15m"`
	LockKey  string        `envconfig:"PAYPADI_CRON_LOCK_KEY" default:"cron:wallet-sweeper"`
	LockTTL  time.Duration `envconfig:"PAYPADI_CRON_LOCK_TTL" default:"30m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PAYPADI_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
