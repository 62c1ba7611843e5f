package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the main configuration struct combining all sub-configs
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	API      APIConfig      `mapstructure:"api"`
	Webhooks WebhooksConfig `mapstructure:"webhooks"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// Addr is the listen address for the HTTP server.
func (s ServerConfig) Addr() string { return fmt.Sprintf(":%d", s.Port) }

type DatabaseConfig struct {
	// memory keeps everything in process; postgres needs URL; sqlite uses Path
	Type string `mapstructure:"type" validate:"required,oneof=memory postgres sqlite"`
	URL  string `mapstructure:"url" validate:"required_if=Type postgres"`
	// Path of the SQLite file, ":memory:" when empty
	Path    string `mapstructure:"path"`
	Migrate bool   `mapstructure:"migrate"`
}

type RedisConfig struct {
	// URL enables the Redis event broker when set
	URL     string `mapstructure:"url" validate:"omitempty,url"`
	Channel string `mapstructure:"channel_prefix" validate:"required"`
}

type APIConfig struct {
	// RateRPS <= 0 disables rate limiting
	RateRPS   float64 `mapstructure:"rate_rps" validate:"min=0"`
	RateBurst int     `mapstructure:"rate_burst" validate:"min=0"`
	// AllowOrigins lists websocket origins; empty allows any
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// WebhooksConfig lists endpoints that receive every switchlist event.
type WebhooksConfig struct {
	URLs []string `mapstructure:"urls" validate:"dive,url"`
	// Secret signs deliveries (X-Signature); empty disables signing
	Secret      string        `mapstructure:"secret"`
	MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=20"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	QueueSize   int           `mapstructure:"queue_size" validate:"min=1"`
	Workers     int           `mapstructure:"workers" validate:"min=1,max=32"`
}

type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	// Log format: json, console
	Format string `mapstructure:"format" validate:"required,oneof=json console"`
}

// LoadConfig loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. Config file (config.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/switchyard")
	}

	// SWITCHYARD_DATABASE_TYPE overrides database.type, and so on
	v.SetEnvPrefix("SWITCHYARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Plain platform variables win without the prefix.
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		v.Set("database.url", dbURL)
		if !v.IsSet("database.type") || v.GetString("database.type") == "memory" {
			v.Set("database.type", "postgres")
		}
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		v.Set("redis.url", redisURL)
	}
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.port", port)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
