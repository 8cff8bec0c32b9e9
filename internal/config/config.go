// Package config provides configuration management for the log inspector.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like SERVER_PORT, LOG_LEVEL)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	CORS   CORSConfig   `mapstructure:"cors"`
	Engine EngineConfig `mapstructure:"engine"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// CORSConfig contains cross-origin settings for the upload API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// EngineConfig contains parsing engine limits.
type EngineConfig struct {
	// MaxUploadBytes bounds a single uploaded file or archive member.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	// SniffPrefixBytes bounds archive classification reads.
	SniffPrefixBytes int `mapstructure:"sniff_prefix_bytes"`
	// PoolSize is the concurrency of parallel archive-member parsing.
	PoolSize int `mapstructure:"pool_size"`
	// ParseTimeout cancels a single parse invocation that runs too long.
	ParseTimeout time.Duration `mapstructure:"parse_timeout"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/forklift-log-inspector")

	// No prefix: standard names like SERVER_PORT, LOG_LEVEL.
	// Maps nested config: engine.pool_size → ENGINE_POOL_SIZE.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535], got %d", c.Server.Port)
	}
	if c.Engine.MaxUploadBytes <= 0 {
		return fmt.Errorf("engine.max_upload_bytes must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// CORS
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Engine
	v.SetDefault("engine.max_upload_bytes", int64(256<<20))
	v.SetDefault("engine.sniff_prefix_bytes", 8192)
	v.SetDefault("engine.pool_size", 16)
	v.SetDefault("engine.parse_timeout", "2m")
}
