// Package server provides configuration helpers that define runtime
// defaults, validation, and rate-limiting parameters for the chat
// service.
package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// RateLimitConfig defines the parameters for per-connection inbound
// frame rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"CHAT_RATE_LIMIT_BURST"`
	RefillInterval time.Duration `env:"CHAT_RATE_LIMIT_REFILL_INTERVAL"`
}

// Config holds the server configuration settings.
//
// GatewayAddr is empty by default, which disables the WebSocket
// gateway; the raw TCP listener on Addr is always on.
type Config struct {
	Addr           string        `env:"CHAT_ADDR"`
	AccountsPath   string        `env:"CHAT_ACCOUNTS_FILE"`
	GatewayAddr    string        `env:"CHAT_GATEWAY_ADDR"`
	AllowedOrigins []string      `env:"CHAT_ALLOWED_ORIGINS" envSeparator:","`
	WriteTimeout   time.Duration `env:"CHAT_WRITE_TIMEOUT"`
	ShutdownGrace  time.Duration `env:"CHAT_SHUTDOWN_GRACE"`
	RateLimit      RateLimitConfig
}

func defaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:6000",
		AccountsPath: "accounts.txt",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		WriteTimeout:  10 * time.Second,
		ShutdownGrace: 500 * time.Millisecond,
		RateLimit: RateLimitConfig{
			Burst:          32,
			RefillInterval: time.Second,
		},
	}
}

func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.AccountsPath == "" {
		cfg.AccountsPath = def.AccountsPath
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ShutdownGrace < 0 {
		cfg.ShutdownGrace = def.ShutdownGrace
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	return cfg
}

// NewConfig creates a Config populated with default values for all
// settings.
func NewConfig() Config {
	return defaultConfig()
}

// NewConfigFromEnv creates a Config from CHAT_* environment variables,
// falling back to default values for anything unset or invalid.
func NewConfigFromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("server: parse env config: %w", err)
	}
	return sanitizeConfig(cfg), nil
}
