// Package config loads application configuration from defaults, an optional
// YAML file and RISKLEDGER_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// Nested keys are separated by a double underscore, e.g.
// RISKLEDGER_SERVER__RATE_LIMIT__RPS.
const EnvPrefix = "RISKLEDGER_"

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Storage   StorageConfig   `koanf:"storage"`
	Database  DatabaseConfig  `koanf:"database"`
	SQLite    SQLiteConfig    `koanf:"sqlite"`
	CORS      CORSConfig      `koanf:"cors"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Seed      SeedConfig      `koanf:"seed"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string          `koanf:"host"`
	Port              string          `koanf:"port" validate:"required,numeric"`
	MetricsPort       string          `koanf:"metrics_port" validate:"required,numeric"`
	ReadTimeout       time.Duration   `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration   `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration   `koanf:"write_timeout"`
	IdleTimeout       time.Duration   `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration   `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimit         RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig limits write requests. RPS of zero disables the limit.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// StorageConfig selects the incident repository backend.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"oneof=memory postgres sqlite"`
}

// DatabaseConfig configures the PostgreSQL backend.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	ConnectAttempts int           `koanf:"connect_attempts" validate:"gte=1"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// SQLiteConfig configures the SQLite backend.
type SQLiteConfig struct {
	Path        string        `koanf:"path"`
	BusyTimeout time.Duration `koanf:"busy_timeout"`
}

// CORSConfig configures allowed cross-origin callers. "*" allows any origin.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DashboardConfig configures derived views.
type DashboardConfig struct {
	Locale string `koanf:"locale" validate:"required"`
}

// SeedConfig controls initial register contents.
// Path takes precedence over Demo.
type SeedConfig struct {
	Demo bool   `koanf:"demo"`
	Path string `koanf:"path"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   30 * time.Second,
			RateLimit: RateLimitConfig{
				RPS:   10,
				Burst: 20,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
			AutoMigrate:     true,
		},
		SQLite: SQLiteConfig{
			Path:        "data/risk-ledger.db",
			BusyTimeout: 5 * time.Second,
		},
		Dashboard: DashboardConfig{
			Locale: "en",
		},
		Seed: SeedConfig{
			Demo: true,
		},
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envKey maps RISKLEDGER_SERVER__RATE_LIMIT__RPS to server.rate_limit.rps.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks field constraints and backend-specific requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("invalid config: database.url is required for the %s driver", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("invalid config: sqlite.path is required for the %s driver", DriverSQLite)
		}
	}
	return nil
}
