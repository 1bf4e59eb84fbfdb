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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Ledger       LedgerConfig
	Cron         CronConfig
	Ops          OpsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SUPPLYLEDGER_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"SUPPLYLEDGER_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"SUPPLYLEDGER_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"SUPPLYLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SUPPLYLEDGER_SERVICE_KIND" default:"cron-worker"`
}

type DBConfig struct {
	DSN    string `envconfig:"SUPPLYLEDGER_DB_DSN"`
	Driver string `envconfig:"SUPPLYLEDGER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SUPPLYLEDGER_DB_HOST"`
	LegacyPort     int    `envconfig:"SUPPLYLEDGER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SUPPLYLEDGER_DB_USER"`
	LegacyPassword string `envconfig:"SUPPLYLEDGER_DB_PASSWORD"`
	LegacyName     string `envconfig:"SUPPLYLEDGER_DB_NAME"`
	LegacySSLMode  string `envconfig:"SUPPLYLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SUPPLYLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SUPPLYLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SUPPLYLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SUPPLYLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// LockTimeout bounds how long a transaction waits on a row lock; zero waits forever.
	LockTimeout time.Duration `envconfig:"SUPPLYLEDGER_DB_LOCK_TIMEOUT" default:"5s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SUPPLYLEDGER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SUPPLYLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"SUPPLYLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"SUPPLYLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SUPPLYLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SUPPLYLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SUPPLYLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SUPPLYLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SUPPLYLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SUPPLYLEDGER_AUTO_MIGRATE" default:"false"`
}

// LedgerConfig holds the fulfillment engine defaults that suppliers can override per connection.
type LedgerConfig struct {
	DefaultPaymentTermsDays int    `envconfig:"SUPPLYLEDGER_DEFAULT_PAYMENT_TERMS_DAYS" default:"30"`
	ReferencePrefix         string `envconfig:"SUPPLYLEDGER_PO_REFERENCE_PREFIX" default:"PO"`
}

// PaymentTerms returns the default payment window.
func (l LedgerConfig) PaymentTerms() time.Duration {
	return time.Duration(l.DefaultPaymentTermsDays) * 24 * time.Hour
}

func (l LedgerConfig) validate() error {
	if l.DefaultPaymentTermsDays < 0 {
		return fmt.Errorf("%s must not be negative", EnvDefaultPaymentTermsDays)
	}
	if strings.TrimSpace(l.ReferencePrefix) == "" {
		return fmt.Errorf("%s must not be empty", EnvPOReferencePrefix)
	}
	return nil
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SUPPLYLEDGER_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"SUPPLYLEDGER_CRON_LOCK_TTL" default:"30m"`
}

type OpsConfig struct {
	Port string `envconfig:"SUPPLYLEDGER_OPS_PORT" default:"9090"`
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
