package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	API          APIConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// DBConfig points at the device-local sqlite file holding the cart,
// session and sync-intent tables.
type DBConfig struct {
	Path            string        `envconfig:"STOREFRONT_DB_PATH" default:"storefront.db"`
	BusyTimeout     time.Duration `envconfig:"STOREFRONT_DB_BUSY_TIMEOUT" default:"5s"`
	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// APIConfig carries the two remote bases the client talks to: the public
// catalog API and the store API owning carts, orders and users.
type APIConfig struct {
	CatalogBaseURL string        `envconfig:"STOREFRONT_CATALOG_BASE_URL" default:"https://fakestoreapi.com"`
	StoreBaseURL   string        `envconfig:"STOREFRONT_STORE_BASE_URL" default:"http://localhost:3000"`
	Timeout        time.Duration `envconfig:"STOREFRONT_API_TIMEOUT" default:"10s"`
}

func (a APIConfig) validate() error {
	if strings.TrimSpace(a.CatalogBaseURL) == "" {
		return fmt.Errorf("%s is required", EnvCatalogBaseURL)
	}
	if strings.TrimSpace(a.StoreBaseURL) == "" {
		return fmt.Errorf("%s is required", EnvStoreBaseURL)
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"true"`
}
