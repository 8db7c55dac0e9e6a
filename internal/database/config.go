package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// parseBoolEnv reads key as a boolean, also accepting yes/no and on/off.
// The second result reports whether a recognised value was present.
func parseBoolEnv(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}
	if parsed, err := strconv.ParseBool(value); err == nil {
		return parsed, true
	}

	switch strings.ToLower(value) {
	case "yes", "y", "on":
		return true, true
	case "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

func intEnv(key string, floor int, set func(int)) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= floor {
			set(v)
		}
	}
}

func durationEnv(key string, set func(time.Duration)) {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			set(v)
		}
	}
}

// Config holds all database configuration options
type Config struct {
	// Connection settings
	Path                  string        `json:"path" yaml:"path" mapstructure:"path"`
	MaxConnections        int           `json:"maxConnections" yaml:"maxConnections" mapstructure:"max_connections"`
	MaxIdleConns          int           `json:"maxIdleConns" yaml:"maxIdleConns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime       time.Duration `json:"connMaxLifetime" yaml:"connMaxLifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime       time.Duration `json:"connMaxIdleTime" yaml:"connMaxIdleTime" mapstructure:"conn_max_idle_time"`
	ForceSingleConnection bool          `json:"forceSingleConnection" yaml:"forceSingleConnection" mapstructure:"force_single_connection"`

	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate" mapstructure:"auto_migrate"`

	// SQLite pragmas
	JournalMode     string `json:"journalMode" yaml:"journalMode" mapstructure:"journal_mode"`
	SynchronousMode string `json:"synchronousMode" yaml:"synchronousMode" mapstructure:"synchronous_mode"`
	CacheSize       int    `json:"cacheSize" yaml:"cacheSize" mapstructure:"cache_size"`       // KB
	BusyTimeout     int    `json:"busyTimeout" yaml:"busyTimeout" mapstructure:"busy_timeout"` // ms
	ForeignKeys     bool   `json:"foreignKeys" yaml:"foreignKeys" mapstructure:"foreign_keys"`

	// Heartbeats and closed-day accumulators older than this are pruned (0 keeps everything)
	RetentionDays int `json:"retentionDays" yaml:"retentionDays" mapstructure:"retention_days"`

	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Path:            "breeze.db",
		MaxConnections:  4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 24 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,

		AutoMigrate: true,

		JournalMode:     "WAL",
		SynchronousMode: "NORMAL",
		CacheSize:       2000,
		BusyTimeout:     30000,
		ForeignKeys:     true,

		RetentionDays: 90,
		Environment:   "production",
	}
}

// DevelopmentConfig returns a configuration optimized for development
func DevelopmentConfig() *Config {
	config := DefaultConfig()
	config.Path = "breeze_dev.db"
	config.Environment = "development"
	config.RetentionDays = 0
	return config
}

// TestConfig returns an in-memory configuration for tests
func TestConfig() *Config {
	config := DefaultConfig()
	config.Path = ":memory:"
	config.Environment = "test"
	config.RetentionDays = 0

	// WAL is meaningless in memory, and a non-WAL journal pins the pool to
	// one connection so every query sees the same database.
	config.JournalMode = "MEMORY"
	config.SynchronousMode = "OFF"
	config.CacheSize = 1000
	config.BusyTimeout = 1000

	return config
}

// LoadFromEnvironment overrides fields from BREEZE_DB_* variables. Values
// that do not parse are ignored.
func (c *Config) LoadFromEnvironment() {
	if path := os.Getenv("BREEZE_DB_PATH"); path != "" {
		c.Path = path
	}

	intEnv("BREEZE_DB_MAX_CONNECTIONS", 1, func(v int) { c.MaxConnections = v })
	intEnv("BREEZE_DB_MAX_IDLE_CONNECTIONS", 0, func(v int) { c.MaxIdleConns = v })
	durationEnv("BREEZE_DB_CONN_MAX_LIFETIME", func(v time.Duration) { c.ConnMaxLifetime = v })
	durationEnv("BREEZE_DB_CONN_MAX_IDLE_TIME", func(v time.Duration) { c.ConnMaxIdleTime = v })

	if v, ok := parseBoolEnv("BREEZE_DB_FORCE_SINGLE_CONNECTION"); ok {
		c.ForceSingleConnection = v
	}
	if v, ok := parseBoolEnv("BREEZE_DB_AUTO_MIGRATE"); ok {
		c.AutoMigrate = v
	}

	if mode := os.Getenv("BREEZE_DB_JOURNAL_MODE"); mode != "" {
		c.JournalMode = mode
	}
	if mode := os.Getenv("BREEZE_DB_SYNCHRONOUS_MODE"); mode != "" {
		c.SynchronousMode = mode
	}
	intEnv("BREEZE_DB_CACHE_SIZE", 1, func(v int) { c.CacheSize = v })
	intEnv("BREEZE_DB_BUSY_TIMEOUT", 0, func(v int) { c.BusyTimeout = v })
	if v, ok := parseBoolEnv("BREEZE_DB_FOREIGN_KEYS"); ok {
		c.ForeignKeys = v
	}

	intEnv("BREEZE_DB_RETENTION_DAYS", 0, func(v int) { c.RetentionDays = v })
	if env := os.Getenv("BREEZE_ENVIRONMENT"); env != "" {
		c.Environment = env
	}
}

// Validate checks the configuration and creates the database directory if needed
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	if !c.IsInMemory() {
		dir := filepath.Dir(c.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	if c.MaxConnections <= 0 {
		return fmt.Errorf("maxConnections must be positive, got %d", c.MaxConnections)
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("maxIdleConns cannot be negative, got %d", c.MaxIdleConns)
	}
	if c.MaxIdleConns > c.MaxConnections {
		return fmt.Errorf("maxIdleConns (%d) cannot be greater than maxConnections (%d)", c.MaxIdleConns, c.MaxConnections)
	}
	if c.ConnMaxLifetime < 0 || c.ConnMaxIdleTime < 0 {
		return fmt.Errorf("connection lifetimes cannot be negative")
	}

	switch strings.ToUpper(c.JournalMode) {
	case "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF":
	default:
		return fmt.Errorf("invalid journalMode: %s", c.JournalMode)
	}
	if c.IsInMemory() && strings.EqualFold(c.JournalMode, "WAL") {
		return fmt.Errorf("journalMode cannot be WAL when using in-memory database")
	}

	switch strings.ToUpper(c.SynchronousMode) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid synchronousMode: %s", c.SynchronousMode)
	}

	if c.CacheSize <= 0 {
		return fmt.Errorf("cacheSize must be positive, got %d", c.CacheSize)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busyTimeout cannot be negative, got %d", c.BusyTimeout)
	}
	if c.RetentionDays < 0 {
		return fmt.Errorf("retentionDays cannot be negative, got %d", c.RetentionDays)
	}

	switch c.Environment {
	case "development", "test", "production":
	default:
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	return nil
}

// GetConnectionString builds the go-sqlite3 DSN. Only the query part is
// URL-encoded; the path keeps its characters except those that would end it.
func (c *Config) GetConnectionString() string {
	values := url.Values{}

	if c.ForeignKeys {
		values.Set("_foreign_keys", "on")
	} else {
		values.Set("_foreign_keys", "off")
	}
	values.Set("_journal_mode", c.JournalMode)
	values.Set("_synchronous", c.SynchronousMode)
	// negative so SQLite reads it as KB
	values.Set("_cache_size", fmt.Sprintf("%d", -c.CacheSize))
	values.Set("_busy_timeout", fmt.Sprintf("%d", c.BusyTimeout))

	path := c.Path
	if strings.ContainsAny(path, "?&") {
		path = strings.ReplaceAll(path, "?", "%3F")
		path = strings.ReplaceAll(path, "&", "%26")
	}

	return path + "?" + values.Encode()
}

// Clone returns a copy of the configuration
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

func (c *Config) IsInMemory() bool {
	return c.Path == ":memory:"
}

// UsesWAL reports whether the pool may hold more than one connection
func (c *Config) UsesWAL() bool {
	return strings.EqualFold(c.JournalMode, "WAL")
}

// ConfigForEnvironment returns a configuration optimized for the given environment
func ConfigForEnvironment(env string) *Config {
	switch env {
	case "development":
		return DevelopmentConfig()
	case "test":
		return TestConfig()
	default:
		return DefaultConfig()
	}
}
