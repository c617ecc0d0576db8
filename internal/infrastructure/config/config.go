// Package config loads stockctl settings from .env, an optional stockctl.yaml
// and STOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultDBPath is the desktop database location.
const DefaultDBPath = "data/association.db"

// Config holds all stockctl configuration.
type Config struct {
	Storage StorageConfig
	Lock    LockConfig
	Stock   StockConfig
	Log     LogConfig
}

// StorageConfig selects and configures the ledger store.
type StorageConfig struct {
	Driver      string        // sqlite or postgres
	Path        string        // sqlite database file
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite busy timeout, postgres lock_timeout
}

// LockConfig configures the advisory maintenance lock.
type LockConfig struct {
	Timeout time.Duration
	Path    string // empty derives it from the store
}

// StockConfig holds engine policies.
type StockConfig struct {
	StrictRevertOrder bool
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// Options tune Load. Zero value reads ./stockctl.yaml and ./.env.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load builds the configuration.
// Priority (highest to lowest):
// 1. Environment variables with STOCK_ prefix (e.g., STOCK_STORAGE_PATH)
// 2. APP_DB_PATH for the sqlite path
// 3. stockctl.yaml
// 4. Built-in defaults
func Load(opts Options) (*Config, error) {
	if err := loadDotEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("stockctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./data")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Storage: StorageConfig{
			Driver:      strings.ToLower(v.GetString("storage.driver")),
			Path:        v.GetString("storage.path"),
			DSN:         v.GetString("storage.dsn"),
			BusyTimeout: v.GetDuration("storage.busy_timeout"),
		},
		Lock: LockConfig{
			Timeout: v.GetDuration("lock.timeout"),
			Path:    v.GetString("lock.path"),
		},
		Stock: StockConfig{
			StrictRevertOrder: v.GetBool("stock.strict_revert_order"),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
	}

	// APP_DB_PATH predates the STOCK_ prefix and is still set by the desktop launcher.
	if _, explicit := os.LookupEnv("STOCK_STORAGE_PATH"); !explicit {
		if p := os.Getenv("APP_DB_PATH"); p != "" {
			cfg.Storage.Path = p
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		// .env is optional.
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.path", DefaultDBPath)
	v.SetDefault("storage.busy_timeout", 5*time.Second)
	v.SetDefault("lock.timeout", 10*time.Second)
	v.SetDefault("stock.strict_revert_order", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return errors.New("config: storage.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("config: storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.BusyTimeout < 0 {
		return errors.New("config: storage.busy_timeout must not be negative")
	}
	if c.Lock.Timeout < 0 {
		return errors.New("config: lock.timeout must not be negative")
	}
	return nil
}

// LockPath returns the advisory lock file path: lock.path when set,
// <storage.path>.lock for sqlite, data/stockctl.lock otherwise.
func (c *Config) LockPath() string {
	if c.Lock.Path != "" {
		return c.Lock.Path
	}
	if c.Storage.Driver == DriverSQLite {
		return c.Storage.Path + ".lock"
	}
	return "data/stockctl.lock"
}
