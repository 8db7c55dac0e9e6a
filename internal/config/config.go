// Package config loads breeze settings from a YAML file, BREEZE_* environment
// variables and built-in defaults, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"breeze/internal/activity"
	"breeze/internal/ai"
	"breeze/internal/cache"
	"breeze/internal/database"
	repoerrors "breeze/internal/infrastructure/errors"
	"breeze/internal/metrics"
	"breeze/internal/notify"
	"breeze/internal/profile"
	"breeze/internal/repository"
	"breeze/internal/services"
	"breeze/internal/timer"
	"breeze/internal/types"
)

const (
	AppName   = "breeze"
	EnvPrefix = "BREEZE"
)

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory" // nothing is persisted
)

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
}

type TimerConfig struct {
	WorkMinutes       float64 `mapstructure:"work_minutes"`
	BreakMinutes      float64 `mapstructure:"break_minutes"`
	AutoStartNextWork bool    `mapstructure:"auto_start_next_work"`
}

type SessionConfig struct {
	ProfileID           string        `mapstructure:"profile_id"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"`
	SystemIdleThreshold time.Duration `mapstructure:"system_idle_threshold"`
	PersistTimeout      time.Duration `mapstructure:"persist_timeout"`
	AlertTimeout        time.Duration `mapstructure:"alert_timeout"`
	Chime               bool          `mapstructure:"chime"` // terminal bell on session complete
}

type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	Timeout        time.Duration `mapstructure:"timeout"`
	WeatherURL     string        `mapstructure:"weather_url"`
	WeatherTimeout time.Duration `mapstructure:"weather_timeout"`
}

func (c AIConfig) Gemini() ai.GeminiConfig {
	return ai.GeminiConfig{APIKey: c.APIKey, Model: c.Model, Timeout: c.Timeout}
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type ProfileConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

type Config struct {
	App       AppConfig              `mapstructure:"app"`
	Server    ServerConfig           `mapstructure:"server"`
	Storage   StorageConfig          `mapstructure:"storage"`
	Database  database.Config        `mapstructure:"database"`
	Redis     repository.RedisConfig `mapstructure:"redis"`
	Activity  activity.Config        `mapstructure:"activity"`
	Timer     TimerConfig            `mapstructure:"timer"`
	Session   SessionConfig          `mapstructure:"session"`
	Metrics   metrics.Weights        `mapstructure:"metrics"`
	AI        AIConfig               `mapstructure:"ai"`
	Cache     cache.Config           `mapstructure:"cache"`
	RateLimit RateLimitConfig        `mapstructure:"ratelimit"`
	Profile   ProfileConfig          `mapstructure:"profile"`
	Logging   LoggingConfig          `mapstructure:"logging"`
}

// Default returns the built-in configuration
func Default() Config {
	work, brk := timer.DefaultSettings().WorkDurationSeconds/60, timer.DefaultSettings().BreakDurationSeconds/60
	return Config{
		App: AppConfig{Name: AppName, Environment: "production"},
		Server: ServerConfig{
			Address:         "127.0.0.1:8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Storage:  StorageConfig{Backend: BackendSQLite},
		Database: *database.DefaultConfig(),
		Redis:    repository.DefaultRedisConfig(),
		Activity: activity.DefaultConfig(),
		Timer:    TimerConfig{WorkMinutes: float64(work), BreakMinutes: float64(brk)},
		Session: SessionConfig{
			ProfileID:           profile.DefaultID,
			TickInterval:        services.DefaultTickInterval,
			HeartbeatInterval:   services.DefaultHeartbeatInterval,
			SystemIdleThreshold: services.DefaultSystemIdleThreshold,
			PersistTimeout:      services.DefaultPersistTimeout,
			AlertTimeout:        notify.DefaultSinkTimeout,
		},
		Metrics:   metrics.DefaultWeights(),
		AI:        AIConfig{Enabled: true, Model: ai.DefaultModel, Timeout: ai.DefaultTimeout, WeatherURL: services.DefaultWeatherURL, WeatherTimeout: 5 * time.Second},
		Cache:     cache.DefaultConfig(),
		RateLimit: RateLimitConfig{RequestsPerSecond: 10, Burst: 20},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// setDefaults registers every key that may come from the environment;
// viper only binds AutomaticEnv for keys it knows about.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.environment", d.App.Environment)

	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("storage.backend", d.Storage.Backend)

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.auto_migrate", d.Database.AutoMigrate)
	v.SetDefault("database.retention_days", d.Database.RetentionDays)

	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.min_idle_conns", d.Redis.MinIdleConns)
	v.SetDefault("redis.key_prefix", d.Redis.KeyPrefix)

	v.SetDefault("activity.throttle_interval", d.Activity.ThrottleInterval)
	v.SetDefault("activity.idle_threshold", d.Activity.IdleThreshold)
	v.SetDefault("activity.max_events", d.Activity.MaxEvents)
	v.SetDefault("activity.enable_keydown", d.Activity.EnableKeydown)
	v.SetDefault("activity.window", d.Activity.Window)
	v.SetDefault("activity.max_clock_skew", d.Activity.MaxClockSkew)

	v.SetDefault("timer.work_minutes", d.Timer.WorkMinutes)
	v.SetDefault("timer.break_minutes", d.Timer.BreakMinutes)
	v.SetDefault("timer.auto_start_next_work", d.Timer.AutoStartNextWork)

	v.SetDefault("session.profile_id", d.Session.ProfileID)
	v.SetDefault("session.tick_interval", d.Session.TickInterval)
	v.SetDefault("session.heartbeat_interval", d.Session.HeartbeatInterval)
	v.SetDefault("session.system_idle_threshold", d.Session.SystemIdleThreshold)
	v.SetDefault("session.persist_timeout", d.Session.PersistTimeout)
	v.SetDefault("session.alert_timeout", d.Session.AlertTimeout)
	v.SetDefault("session.chime", d.Session.Chime)

	v.SetDefault("ai.enabled", d.AI.Enabled)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.weather_url", d.AI.WeatherURL)
	v.SetDefault("ai.weather_timeout", d.AI.WeatherTimeout)

	v.SetDefault("cache.max_size_mb", d.Cache.MaxSizeMB)
	v.SetDefault("cache.counter_size", d.Cache.CounterSize)
	v.SetDefault("cache.ttl_seconds", d.Cache.TTLSeconds)

	v.SetDefault("ratelimit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("ratelimit.burst", d.RateLimit.Burst)

	v.SetDefault("profile.path", d.Profile.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.console", d.Logging.Console)
}

// Load reads path, or breeze.yaml from the working directory and the user
// config directory when path is empty. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	// the environment picks the database profile before the file is read
	if env := os.Getenv(EnvPrefix + "_APP_ENVIRONMENT"); env != "" {
		cfg.App.Environment = env
		cfg.Database = *database.ConfigForEnvironment(env)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, repoerrors.NewRepositoryErrorWithContext("config.Load", err, repoerrors.ErrCodeValidation,
				map[string]string{"path": path})
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, repoerrors.NewRepositoryError("config.Load", fmt.Errorf("decode: %w", err), repoerrors.ErrCodeValidation)
	}
	cfg.Database.LoadFromEnvironment()

	if cfg.AI.APIKey == "" {
		cfg.AI.APIKey = firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY", "GOOGLE_GENAI_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate clamps out-of-range numbers and rejects what cannot be clamped
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return repoerrors.HandleValidationError("config.Validate", "storage.backend", c.Storage.Backend,
			"must be sqlite, redis or memory")
	}

	c.Timer.WorkMinutes = max(c.Timer.WorkMinutes, 0)
	c.Timer.BreakMinutes = max(c.Timer.BreakMinutes, 0)
	c.RateLimit.RequestsPerSecond = max(c.RateLimit.RequestsPerSecond, 0)
	c.RateLimit.Burst = max(c.RateLimit.Burst, 1)
	c.Database.RetentionDays = max(c.Database.RetentionDays, 0)

	if c.Storage.Backend == BackendSQLite {
		if err := c.Database.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SessionConfig builds the engine configuration
func (c Config) SessionConfig() services.SessionConfig {
	return services.SessionConfig{
		Activity: c.Activity,
		Weights:  c.Metrics,
		Timer: types.TimerSettings{
			WorkDurationSeconds:  timer.MinutesToSeconds(c.Timer.WorkMinutes),
			BreakDurationSeconds: timer.MinutesToSeconds(c.Timer.BreakMinutes),
			AutoStartNextWork:    c.Timer.AutoStartNextWork,
		},
		ProfileID:           c.Session.ProfileID,
		TickInterval:        c.Session.TickInterval,
		HeartbeatInterval:   c.Session.HeartbeatInterval,
		SystemIdleThreshold: c.Session.SystemIdleThreshold,
		PersistTimeout:      c.Session.PersistTimeout,
		AlertTimeout:        c.Session.AlertTimeout,
		RetentionDays:       c.Database.RetentionDays,
	}
}

// ProfilePath is the configured profile file or the per-user default
func (c Config) ProfilePath() (string, error) {
	if c.Profile.Path != "" {
		return c.Profile.Path, nil
	}
	return profile.DefaultPath(c.App.Name)
}
