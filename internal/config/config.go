// Package config loads connector and sandbox server settings with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	Wave       WaveConfig
	Aggregated AggregatedConfig
	Breaker    BreakerConfig
	Redis      RedisConfig
	Sandbox    SandboxConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env     string
	Port    string
	Tracing bool // Export spans to stdout
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// WaveConfig holds gateway transport settings
type WaveConfig struct {
	BaseURL            string
	Timeout            time.Duration
	FallbackStrategies []string // use_default, create_temporary, skip
}

// AggregatedConfig tunes remote validation of aggregated merchant ids
type AggregatedConfig struct {
	ValidationAttempts int
	BackoffInitial     time.Duration
	BackoffMax         time.Duration
	RetryExpression    string
}

// BreakerConfig tunes the circuit breaker guarding the gateway host
type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// RedisConfig holds Redis connection settings for cross-process auto-create claims
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	ClaimTTL time.Duration
}

// SandboxConfig seeds the one merchant connector account the sandbox server drives.
type SandboxConfig struct {
	MerchantID  string
	ProfileName string
	APIKey      string
	Key1        string // Enhanced auth config blob; empty means key-only auth
	Metadata    string // Connector metadata JSON
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.tracing", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("wave.base_url", "https://api.wave.com/")
	v.SetDefault("wave.timeout", 30*time.Second)
	v.SetDefault("wave.fallback_strategies", "")
	v.SetDefault("aggregated.validation_attempts", 3)
	v.SetDefault("aggregated.backoff_initial", 100*time.Millisecond)
	v.SetDefault("aggregated.backoff_max", time.Second)
	v.SetDefault("aggregated.retry_expression", "attempt < max_attempts")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", 30*time.Second)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.claim_ttl", 30*time.Second)
	v.SetDefault("sandbox.merchant_id", "merchant_sandbox")
	v.SetDefault("sandbox.profile_name", "Sandbox Shop")
	v.SetDefault("sandbox.api_key", "")
	v.SetDefault("sandbox.key1", "")
	v.SetDefault("sandbox.metadata", "")
}

// Load reads config.toml (optional) and WAVE_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("WAVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Tracing: v.GetBool("app.tracing"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Wave: WaveConfig{
			BaseURL:            v.GetString("wave.base_url"),
			Timeout:            v.GetDuration("wave.timeout"),
			FallbackStrategies: splitList(v.GetString("wave.fallback_strategies")),
		},
		Aggregated: AggregatedConfig{
			ValidationAttempts: v.GetInt("aggregated.validation_attempts"),
			BackoffInitial:     v.GetDuration("aggregated.backoff_initial"),
			BackoffMax:         v.GetDuration("aggregated.backoff_max"),
			RetryExpression:    v.GetString("aggregated.retry_expression"),
		},
		Breaker: BreakerConfig{
			FailureThreshold: v.GetInt("breaker.failure_threshold"),
			ResetTimeout:     v.GetDuration("breaker.reset_timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			ClaimTTL: v.GetDuration("redis.claim_ttl"),
		},
		Sandbox: SandboxConfig{
			MerchantID:  v.GetString("sandbox.merchant_id"),
			ProfileName: v.GetString("sandbox.profile_name"),
			APIKey:      v.GetString("sandbox.api_key"),
			Key1:        v.GetString("sandbox.key1"),
			Metadata:    v.GetString("sandbox.metadata"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default away.
func (c *Config) Validate() error {
	if c.Wave.BaseURL == "" {
		return fmt.Errorf("wave.base_url is required")
	}
	if c.Aggregated.ValidationAttempts < 1 {
		return fmt.Errorf("aggregated.validation_attempts must be at least 1, got %d", c.Aggregated.ValidationAttempts)
	}
	if c.Aggregated.BackoffMax < c.Aggregated.BackoffInitial {
		return fmt.Errorf("aggregated.backoff_max (%s) must not be below aggregated.backoff_initial (%s)",
			c.Aggregated.BackoffMax, c.Aggregated.BackoffInitial)
	}
	for _, s := range c.Wave.FallbackStrategies {
		switch s {
		case "use_default", "create_temporary", "skip":
		default:
			return fmt.Errorf("wave.fallback_strategies: unknown strategy %q", s)
		}
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
