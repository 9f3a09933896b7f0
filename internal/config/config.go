// FastFood Client - Real-Time Order Tracking for the FastFood Platform
// Copyright 2026 FastFood App
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fastfoodapp/client-go

// Package config loads and validates client configuration.
//
// Configuration is merged from three layers, later layers winning:
//  1. compiled-in defaults
//  2. a YAML config file (config.yaml, or $FASTFOOD_CONFIG_PATH)
//  3. FASTFOOD_* environment variables (FASTFOOD_API_URL, FASTFOOD_LOG_LEVEL, ...)
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration for the FastFood client.
type Config struct {
	API           APIConfig           `koanf:"api"`
	WebSocket     WebSocketConfig     `koanf:"websocket"`
	Tracker       TrackerConfig       `koanf:"tracker"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Debug         DebugConfig         `koanf:"debug"`
	Log           LogConfig           `koanf:"log"`
}

// APIConfig configures the REST client for the FastFood backend.
type APIConfig struct {
	// URL is the backend base URL, e.g. https://api.fastfood.app
	URL string `koanf:"url"`

	// Token is the opaque bearer token of the logged-in session.
	// Usually injected via FASTFOOD_API_TOKEN rather than the config file.
	Token string `koanf:"token"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries bounds retries on HTTP 429 responses.
	MaxRetries int `koanf:"max_retries"`

	// RetryBaseDelay is the first backoff delay on HTTP 429.
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RequestsPerSecond limits outbound request rate (0 = unlimited).
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// WebSocketConfig configures the push-notification channel.
type WebSocketConfig struct {
	// URL overrides the derived WebSocket endpoint. When empty the endpoint
	// is derived from api.url: ws:// for localhost hosts, wss:// otherwise.
	URL string `koanf:"url"`

	// AppType is the client discriminator sent on the connection URL.
	AppType string `koanf:"app_type"`

	// HandshakeTimeout bounds the WebSocket dial.
	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`

	// ReconnectBaseDelay is the first reconnect delay after a non-clean drop.
	ReconnectBaseDelay time.Duration `koanf:"reconnect_base_delay"`

	// ReconnectMaxDelay caps the exponential reconnect backoff.
	ReconnectMaxDelay time.Duration `koanf:"reconnect_max_delay"`

	// PingInterval is the keepalive ping period (0 disables pings).
	PingInterval time.Duration `koanf:"ping_interval"`
}

// TrackerConfig configures the per-order reconciliation fallback.
type TrackerConfig struct {
	// PollInterval is how often a tracked, non-terminal order is silently
	// refetched regardless of push delivery.
	PollInterval time.Duration `koanf:"poll_interval"`
}

// NotificationsConfig configures the bounded notification history.
type NotificationsConfig struct {
	// HistorySize caps the newest-first notification history.
	HistorySize int `koanf:"history_size"`
}

// DebugConfig configures the local operational endpoint (/metrics, /healthz).
type DebugConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all default values applied.
// Defaults are applied first, then overridden by config file and env vars.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:               "https://api.fastfood.app",
			Timeout:           30 * time.Second,
			MaxRetries:        5,
			RetryBaseDelay:    time.Second,
			RequestsPerSecond: 10,
		},
		WebSocket: WebSocketConfig{
			AppType:            "FastFood",
			HandshakeTimeout:   10 * time.Second,
			ReconnectBaseDelay: 3 * time.Second,
			ReconnectMaxDelay:  60 * time.Second,
			PingInterval:       30 * time.Second,
		},
		Tracker: TrackerConfig{
			PollInterval: 20 * time.Second,
		},
		Notifications: NotificationsConfig{
			HistorySize: 50,
		},
		Debug: DebugConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9180",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values that would only fail later at
// runtime. It returns the first problem found.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must use http or https, got %q", u.Scheme)
	}
	if c.WebSocket.URL != "" {
		wu, err := url.Parse(c.WebSocket.URL)
		if err != nil {
			return fmt.Errorf("websocket.url is not a valid URL: %w", err)
		}
		if wu.Scheme != "ws" && wu.Scheme != "wss" {
			return fmt.Errorf("websocket.url must use ws or wss, got %q", wu.Scheme)
		}
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Tracker.PollInterval <= 0 {
		return fmt.Errorf("tracker.poll_interval must be positive, got %s", c.Tracker.PollInterval)
	}
	if c.Notifications.HistorySize <= 0 {
		return fmt.Errorf("notifications.history_size must be positive, got %d", c.Notifications.HistorySize)
	}
	if c.WebSocket.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("websocket.reconnect_base_delay must be positive, got %s", c.WebSocket.ReconnectBaseDelay)
	}
	if c.WebSocket.ReconnectMaxDelay < c.WebSocket.ReconnectBaseDelay {
		return fmt.Errorf("websocket.reconnect_max_delay (%s) must not be below reconnect_base_delay (%s)",
			c.WebSocket.ReconnectMaxDelay, c.WebSocket.ReconnectBaseDelay)
	}
	return nil
}

// WebSocketURL returns the push-channel endpoint for the configured backend.
//
// An explicit websocket.url wins. Otherwise the endpoint is derived from
// api.url: the path is /ws, and the scheme is ws for local development hosts
// (localhost, 127.0.0.1, ::1) and wss for everything else.
func (c *Config) WebSocketURL() (string, error) {
	if c.WebSocket.URL != "" {
		return c.WebSocket.URL, nil
	}

	u, err := url.Parse(c.API.URL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}

	scheme := "wss"
	if isLocalHost(u.Hostname()) {
		scheme = "ws"
	}

	return fmt.Sprintf("%s://%s/ws", scheme, u.Host), nil
}

// isLocalHost reports whether the hostname refers to a local development host.
func isLocalHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
