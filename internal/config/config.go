// Package config loads the admin CLI configuration from a YAML file, ADMIN_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/admin-api-client/pkg/logging"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. ADMIN_API_BASE_URL.
const EnvPrefix = "ADMIN"

// Config is the admin CLI configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Paging  PagingConfig  `mapstructure:"paging"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// RedisConfig selects the session store. An empty Addr keeps the session in
// memory for the lifetime of the process.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"`
}

type SessionConfig struct {
	// Profile scopes stored session keys, so several admin accounts can
	// share one Redis.
	Profile  string `mapstructure:"profile"`
	Timezone string `mapstructure:"timezone"`
	Locale   string `mapstructure:"locale"`
	// Token seeds the session when the store holds none.
	Token string `mapstructure:"token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type PagingConfig struct {
	PageSize       int           `mapstructure:"page_size"`
	ExportPageSize int           `mapstructure:"export_page_size"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Debounce       time.Duration `mapstructure:"debounce"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.user_agent", "admin-cli/1.0")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.rate_limit", 0.0)
	v.SetDefault("api.burst", 1)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.namespace", "admin")

	v.SetDefault("session.profile", "default")
	v.SetDefault("session.timezone", "")
	v.SetDefault("session.locale", "")
	v.SetDefault("session.token", "")

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.pretty", true)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("tracing.enabled", false)

	v.SetDefault("paging.page_size", 20)
	v.SetDefault("paging.export_page_size", 100)
	v.SetDefault("paging.max_concurrency", 4)
	v.SetDefault("paging.debounce", 300*time.Millisecond)
}

// NewViper returns a viper instance with defaults and environment binding.
// cfgFile may be empty, in which case ./admin.yaml is read when present.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("admin")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing default file is fine; a missing explicit one is not.
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that have no safe fallback.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0 (got %s)", c.API.Timeout)
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0 (got %g)", c.API.RateLimit)
	}
	if c.Paging.PageSize < 1 || c.Paging.ExportPageSize < 1 {
		return fmt.Errorf("paging page sizes must be >= 1")
	}
	if c.Log.Level != "" {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}
