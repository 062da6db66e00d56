// Albumflow - Construction Documentation Tracking
// Copyright 2026 Albumflow Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/albumflow/albumflow

// Package config loads and validates application configuration.
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Security SecurityConfig `koanf:"security"`
	NATS     NATSConfig     `koanf:"nats"`
	WAL      WALConfig      `koanf:"wal"`
	Channel  ChannelConfig  `koanf:"channel"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit" validate:"min=1"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" runs fully in-memory.
	Path string `koanf:"path" validate:"required"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `koanf:"max_open_conns" validate:"min=1"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// JWTSecret signs session tokens. Minimum 32 characters.
	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`
	AdminUsername  string        `koanf:"admin_username"`
	AdminPassword  string        `koanf:"admin_password"`

	// AuthMode is "jwt" or "none" (development only).
	AuthMode string `koanf:"auth_mode" validate:"oneof=jwt none"`
}

// NATSConfig holds event-transport settings. When disabled, the event
// bus runs on in-process Go channels.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// EmbeddedServer starts an in-process NATS server (standalone mode).
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	StreamName     string `koanf:"stream_name"`
}

// WALConfig holds write-ahead-log settings for event durability.
type WALConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Path          string        `koanf:"path"`
	RetryInterval time.Duration `koanf:"retry_interval"`
	MaxAttempts   int           `koanf:"max_attempts" validate:"min=1"`
}

// ChannelConfig describes how table-view clients reach the push
// channel. The endpoint depends on the deployment context.
type ChannelConfig struct {
	// Deployment selects the endpoint: local, tunnel or production.
	Deployment    string `koanf:"deployment" validate:"oneof=local tunnel production"`
	LocalURL      string `koanf:"local_url"`
	TunnelURL     string `koanf:"tunnel_url"`
	ProductionURL string `koanf:"production_url"`
}

// Endpoint returns the channel URL for the configured deployment.
func (c *ChannelConfig) Endpoint() string {
	switch c.Deployment {
	case "tunnel":
		return c.TunnelURL
	case "production":
		return c.ProductionURL
	default:
		return c.LocalURL
	}
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8480,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
		},
		Database: DatabaseConfig{
			Path:         "albumflow.db",
			MaxOpenConns: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			SessionTimeout: 24 * time.Hour,
			AdminUsername:  "admin",
			AuthMode:       "jwt",
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "nats-store",
			StreamName:     "ALBUM_EVENTS",
		},
		WAL: WALConfig{
			Enabled:       true,
			Path:          "wal",
			RetryInterval: 5 * time.Second,
			MaxAttempts:   10,
		},
		Channel: ChannelConfig{
			Deployment:    "local",
			LocalURL:      "ws://localhost:8480/api/v1/ws",
			TunnelURL:     "wss://tunnel.albumflow.dev/api/v1/ws",
			ProductionURL: "wss://app.albumflow.dev/api/v1/ws",
		},
	}
}

// Validate checks the loaded configuration for consistency.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.Security.AuthMode == "jwt" {
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters when auth_mode=jwt")
		}
		if c.Security.AdminPassword == "" {
			return fmt.Errorf("security.admin_password is required when auth_mode=jwt")
		}
	}
	if c.NATS.Enabled && !c.NATS.EmbeddedServer && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when NATS is enabled without an embedded server")
	}
	return nil
}
