// Package config loads and finalizes the Beacon service configuration from
// TOML files and BEACON_* environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/beaconhq/beacon/internal/extractor"
	"github.com/beaconhq/beacon/pkg/database"
	"github.com/beaconhq/beacon/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvBeaconEnv             = "BEACON_ENV"
	EnvBeaconShutdownTimeout = "BEACON_SHUTDOWN_TIMEOUT"
	EnvBeaconVersion         = "BEACON_VERSION"
)

var caseStoreEnv = &database.Env{
	Host:            "BEACON_CASE_DB_HOST",
	Port:            "BEACON_CASE_DB_PORT",
	Name:            "BEACON_CASE_DB_NAME",
	User:            "BEACON_CASE_DB_USER",
	Password:        "BEACON_CASE_DB_PASSWORD",
	SSLMode:         "BEACON_CASE_DB_SSL_MODE",
	MaxOpenConns:    "BEACON_CASE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "BEACON_CASE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "BEACON_CASE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "BEACON_CASE_DB_CONN_TIMEOUT",
}

var sessionStoreEnv = &database.Env{
	Path:         "BEACON_SESSION_DB_PATH",
	MaxOpenConns: "BEACON_SESSION_DB_MAX_OPEN_CONNS",
	ConnTimeout:  "BEACON_SESSION_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "BEACON_STORAGE_CONTAINER_NAME",
	ConnectionString: "BEACON_STORAGE_CONNECTION_STRING",
}

var extractorEnv = &extractor.Env{
	APIKey:        "BEACON_EXTRACTOR_API_KEY",
	Model:         "BEACON_EXTRACTOR_MODEL",
	DescribeModel: "BEACON_EXTRACTOR_DESCRIBE_MODEL",
	Timeout:       "BEACON_EXTRACTOR_TIMEOUT",
}

// Config is the root configuration for the Beacon service. CaseStore is the
// durable Postgres case store; SessionStore is the transient SQLite ledger.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	CaseStore       database.Config  `toml:"case_store"`
	SessionStore    database.Config  `toml:"session_store"`
	Storage         storage.Config   `toml:"storage"`
	Extractor       extractor.Config `toml:"extractor"`
	API             APIConfig        `toml:"api"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the BEACON_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvBeaconEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.CaseStore.Merge(&overlay.CaseStore)
	c.SessionStore.Merge(&overlay.SessionStore)
	c.Storage.Merge(&overlay.Storage)
	c.Extractor.Merge(&overlay.Extractor)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.CaseStore.Finalize(caseStoreEnv); err != nil {
		return fmt.Errorf("case_store: %w", err)
	}
	if err := c.SessionStore.Finalize(sessionStoreEnv); err != nil {
		return fmt.Errorf("session_store: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Extractor.Finalize(extractorEnv); err != nil {
		return fmt.Errorf("extractor: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.CaseStore.Driver == "" {
		c.CaseStore.Driver = database.DriverPostgres
	}
	if c.SessionStore.Driver == "" {
		c.SessionStore.Driver = database.DriverSQLite
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvBeaconShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvBeaconVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvBeaconEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
