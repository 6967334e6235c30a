package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultPath is used when no config path is given.
const DefaultPath = "configs/config.yaml"

// Config is the application configuration loaded from config.yaml.
type Config struct {
	Server struct {
		Port               int `yaml:"port"`
		ReadTimeoutSeconds int `yaml:"read_timeout_seconds"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		DSN    string `yaml:"dsn"`

		// FallbackPath is a sqlite mirror read while postgres is failing.
		FallbackPath string `yaml:"fallback_path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Capacity struct {
		Enabled           bool    `yaml:"enabled"`
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		CacheTTLSeconds   int     `yaml:"cache_ttl_seconds"`
		RefreshSeconds    int     `yaml:"refresh_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
	} `yaml:"capacity"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		Path          string `yaml:"path"`
		IntervalHours int    `yaml:"interval_hours"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	VenuesPath          string `yaml:"venues_path"`
	VenuesReloadSeconds int    `yaml:"venues_reload_seconds"`
	Timezone            string `yaml:"timezone"`
}

// Load reads the YAML config at path. Variables from a .env file in the
// working directory are loaded first so ${VAR} placeholders can use them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if local := cfg.LocalPath(); local != "" {
		if err = os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/mdining.db"
	}
	if c.Capacity.BaseURL == "" {
		c.Capacity.BaseURL = os.Getenv("MDINING_BASE_URL")
	}
	if c.Capacity.APIKey == "" {
		c.Capacity.APIKey = os.Getenv("MDINING_API_KEY")
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "backups"
	}
	if c.VenuesPath == "" {
		c.VenuesPath = DefaultVenuesPath
	}
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", DriverPostgres)
		}
	default:
		return fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: invalid port %d", c.Server.Port)
	}
	if c.Capacity.RequestsPerSecond < 0 {
		return fmt.Errorf("capacity.requests_per_second cannot be negative")
	}
	if c.Capacity.Enabled && c.Capacity.BaseURL == "" {
		return fmt.Errorf("capacity.base_url is required when capacity is enabled")
	}
	if c.Backup.Enabled && c.LocalPath() == "" {
		return fmt.Errorf("backup requires a sqlite database or database.fallback_path")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// LocalPath is the sqlite file in use: the main database on sqlite, the
// fallback mirror on postgres, or empty.
func (c *Config) LocalPath() string {
	if c.Database.Driver == DriverSQLite {
		return c.Database.Path
	}
	return c.Database.FallbackPath
}

// Location returns the venues' time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil
	}
	return loc
}

func (c *Config) ReadTimeout() time.Duration {
	if c.Server.ReadTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) CapacityCacheTTL() time.Duration {
	if c.Capacity.CacheTTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Capacity.CacheTTLSeconds) * time.Second
}

func (c *Config) RefreshInterval() time.Duration {
	if c.Capacity.RefreshSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Capacity.RefreshSeconds) * time.Second
}

func (c *Config) VenuesReloadInterval() time.Duration {
	if c.VenuesReloadSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.VenuesReloadSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}

func (c *Config) BackupRetention() time.Duration {
	if c.Backup.RetentionDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(c.Backup.RetentionDays) * 24 * time.Hour
}

// LoadVenues loads the venue catalog referenced by the config.
func (c *Config) LoadVenues() (*VenuesConfig, error) {
	return LoadVenuesConfig(c.VenuesPath)
}
