// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

// Package config loads TierDrop configuration with layered sources:
// struct defaults, then an optional YAML file, then environment
// variables (highest priority).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the TierDrop server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	ZeroTier ZeroTierConfig `koanf:"zerotier"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Host is the bind address.
	Host string `koanf:"host" validate:"required"`

	// Port is the listen port.
	Port int `koanf:"port" validate:"required,min=1,max=65535"`

	// ReadTimeout/WriteTimeout bound request handling. WriteTimeout is
	// zero because SSE and WebSocket responses are long-lived.
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// CORSAllowedOrigins lists origins allowed cross-origin access to
	// the API and the WebSocket endpoint. Empty means same-origin only.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimitRequests is the per-IP request budget per
	// RateLimitWindow. Zero disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// ZeroTierConfig configures the connection to the local ZeroTier node's
// control API.
type ZeroTierConfig struct {
	// BaseURL is the node's HTTP control endpoint.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	// Token is the control API secret sent in the X-ZT1-Auth header.
	// When both Token and TokenFile are empty the synchronization engine
	// is never started and the snapshot stays empty.
	Token string `koanf:"token"`

	// TokenFile is read at startup when Token is empty. The stock
	// location is /var/lib/zerotier-one/authtoken.secret.
	TokenFile string `koanf:"token_file"`

	// PollInterval is how often the synchronizer pulls the full entity
	// graph from the node.
	PollInterval time.Duration `koanf:"poll_interval" validate:"required"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 10 * time.Second,

			CORSAllowedOrigins: []string{},
			RateLimitRequests:  300,
			RateLimitWindow:    time.Minute,
		},
		ZeroTier: ZeroTierConfig{
			BaseURL:      "http://localhost:9993",
			Token:        "",
			TokenFile:    "",
			PollInterval: 5 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// validate runs struct validation and the cross-field checks that tags
// cannot express.
func (c *Config) validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ZeroTier.PollInterval < time.Second {
		return fmt.Errorf("zerotier.poll_interval %s is below the 1s minimum", c.ZeroTier.PollInterval)
	}
	return nil
}

// ResolveToken returns the control API token, reading TokenFile if the
// inline token is empty. An empty result means the engine must not start.
func (c *Config) ResolveToken() (string, error) {
	if c.ZeroTier.Token != "" {
		return c.ZeroTier.Token, nil
	}
	if c.ZeroTier.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.ZeroTier.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", c.ZeroTier.TokenFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}
