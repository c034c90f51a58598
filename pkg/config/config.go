package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/pkg/money"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GoogleMaps   GoogleMapsConfig
	Pricing      PricingConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if !cfg.FeatureFlags.UseSQLite {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every semantic problem at once rather than the first one.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Pricing.validate())
	errs = multierr.Append(errs, c.Checkout.validate())
	return errs
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"file:storefront.db?cache=shared"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GoogleMapsConfig struct {
	APIKey string `envconfig:"STOREFRONT_GOOGLE_MAPS_API_KEY"`
}

// PricingConfig drives the surge pricing engine and its refresh job.
type PricingConfig struct {
	MinMultiplier   float64       `envconfig:"STOREFRONT_SURGE_MIN_MULTIPLIER" default:"1.0"`
	MaxMultiplier   float64       `envconfig:"STOREFRONT_SURGE_MAX_MULTIPLIER" default:"2.5"`
	ActiveThreshold float64       `envconfig:"STOREFRONT_SURGE_ACTIVE_THRESHOLD" default:"1.05"`
	TTL             time.Duration `envconfig:"STOREFRONT_SURGE_TTL" default:"45s"`
	Curve           string        `envconfig:"STOREFRONT_SURGE_CURVE" default:"0:1.0,10:1.0,20:1.25,35:1.75,50:2.5"`
	RefreshInterval time.Duration `envconfig:"STOREFRONT_SURGE_REFRESH_INTERVAL" default:"30s"`
	DemandWindow    time.Duration `envconfig:"STOREFRONT_DEMAND_WINDOW" default:"10m"`
}

func (p PricingConfig) validate() error {
	var errs error
	if p.MinMultiplier <= 0 {
		errs = multierr.Append(errs, errors.New("surge min multiplier must be positive"))
	}
	if p.MinMultiplier > 1 {
		errs = multierr.Append(errs, errors.New("surge min multiplier must not exceed 1.0"))
	}
	if p.MaxMultiplier < 1 {
		errs = multierr.Append(errs, errors.New("surge max multiplier must be at least 1.0"))
	}
	if p.TTL <= 0 {
		errs = multierr.Append(errs, errors.New("surge ttl must be positive"))
	}
	if p.DemandWindow <= 0 {
		errs = multierr.Append(errs, errors.New("demand window must be positive"))
	}
	if strings.TrimSpace(p.Curve) == "" {
		errs = multierr.Append(errs, errors.New("surge curve is required"))
	}
	return errs
}

// CheckoutConfig tunes the checkout orchestrator.
type CheckoutConfig struct {
	TaxRate             string        `envconfig:"STOREFRONT_CHECKOUT_TAX_RATE" default:"0.08"`
	SubmitTimeout       time.Duration `envconfig:"STOREFRONT_CHECKOUT_SUBMIT_TIMEOUT" default:"10s"`
	SessionIdleTTL      time.Duration `envconfig:"STOREFRONT_CHECKOUT_SESSION_IDLE_TTL" default:"30m"`
	SweepInterval       time.Duration `envconfig:"STOREFRONT_CHECKOUT_SWEEP_INTERVAL" default:"5m"`
	CollaboratorTimeout time.Duration `envconfig:"STOREFRONT_CHECKOUT_COLLABORATOR_TIMEOUT" default:"5s"`
	ZoneCatalogTTL      time.Duration `envconfig:"STOREFRONT_ZONE_CATALOG_TTL" default:"1m"`
}

func (c CheckoutConfig) validate() error {
	var errs error
	if strings.TrimSpace(c.TaxRate) == "" {
		errs = multierr.Append(errs, errors.New("tax rate is required"))
	} else if rate, err := money.ParseRate(c.TaxRate); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("tax rate: %w", err))
	} else if rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		errs = multierr.Append(errs, errors.New("tax rate must be below 1"))
	}
	if c.SubmitTimeout <= 0 {
		errs = multierr.Append(errs, errors.New("submit timeout must be positive"))
	}
	if c.SessionIdleTTL <= 0 {
		errs = multierr.Append(errs, errors.New("session idle ttl must be positive"))
	}
	return errs
}

// RateLimitConfig throttles the address autocomplete proxy and session
// creation. A zero window disables a policy.
type RateLimitConfig struct {
	SuggestWindow        time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_SUGGEST_WINDOW" default:"1m"`
	SuggestIPLimit       int           `envconfig:"STOREFRONT_RATE_LIMIT_SUGGEST_IP" default:"60"`
	SessionWindow        time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_WINDOW" default:"10m"`
	SessionIPLimit       int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_IP" default:"30"`
	SessionCustomerLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_SESSION_CUSTOMER" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
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
