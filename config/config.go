// Package config loads the service configuration from defaults, a TOML
// file, a .env file and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/warp/payroll-sync/logging"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	HR       StoreConfig    `toml:"hr"`
	Payroll  StoreConfig    `toml:"payroll"`
	Logging  LoggingConfig  `toml:"logging"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Fallback FallbackConfig `toml:"fallback"`
}

// ServerConfig holds HTTP API server settings
type ServerConfig struct {
	Address     string   `toml:"address"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Address, s.Port)
}

// StoreConfig locates one SQLite database
type StoreConfig struct {
	DSN string `toml:"dsn"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MonitorConfig controls the periodic drift check
type MonitorConfig struct {
	Enabled  bool          `toml:"enabled"`
	Interval time.Duration `toml:"interval"`
	AutoSync bool          `toml:"auto_sync"`
}

// FallbackConfig controls demo data on read failures
type FallbackConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultCORSOrigins returns the dashboard dev servers.
func DefaultCORSOrigins() []string {
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://localhost:5174",
	}
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "0.0.0.0",
			Port:    8000,
			CORSOrigins: DefaultCORSOrigins(),
		},
		HR:      StoreConfig{DSN: "hr.db"},
		Payroll: StoreConfig{DSN: "payroll.db"},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Monitor: MonitorConfig{
			Enabled:  false,
			Interval: 15 * time.Minute,
		},
		Fallback: FallbackConfig{Enabled: true},
	}
}

// LoadFromFile loads configuration from a TOML file over the defaults
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Config file (if specified)
// 3. .env files (missing files are ignored)
// 4. Environment variables
// 5. Command-line flags (handled by caller)
func Load(configPath string, envFiles ...string) (*Config, error) {
	config := DefaultConfig()
	if configPath != "" {
		var err error
		if config, err = LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("HR_DSN", &c.HR.DSN)
	str("PAYROLL_DSN", &c.Payroll.DSN)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.CORSOrigins = origins
	}
	if v, ok := lookup("MONITOR_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_INTERVAL: %w", err)
		}
		c.Monitor.Interval = d
	}
	if err := boolean("MONITOR_ENABLED", &c.Monitor.Enabled); err != nil {
		return err
	}
	return boolean("FALLBACK_ENABLED", &c.Fallback.Enabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HR.DSN == "" {
		return fmt.Errorf("hr dsn must be specified")
	}
	if c.Payroll.DSN == "" {
		return fmt.Errorf("payroll dsn must be specified")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("unsupported log format: %s (must be console or json)", c.Logging.Format)
	}

	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}

	return nil
}
