// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

// Package config loads arsynox configuration with precedence ENV > YAML file > defaults.
package config

import (
	"time"
)

// Cache backends.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// AppConfig is the resolved runtime configuration. The same struct is the YAML
// file schema; unknown keys are rejected.
type AppConfig struct {
	Version  string `yaml:"-"`
	LogLevel string `yaml:"logLevel"`

	Server    ServerConfig    `yaml:"server"`
	Player    PlayerConfig    `yaml:"player"`
	Relay     RelayConfig     `yaml:"relay"`
	Proxy     ProxyConfig     `yaml:"proxy"`
	Probe     ProbeConfig     `yaml:"probe"`
	Cache     CacheConfig     `yaml:"cache"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	ListenAddr string `yaml:"listenAddr"`
	// MetricsAddr serves /metrics on a separate listener; empty disables it.
	MetricsAddr string `yaml:"metricsAddr"`
	// PublicURL is the externally reachable base used in share links.
	PublicURL string `yaml:"publicURL"`

	TLSCert string `yaml:"tlsCert"`
	TLSKey  string `yaml:"tlsKey"`
	// TLSSelfSigned generates a self-signed pair at TLSCert/TLSKey (or the
	// default paths) when the files are missing.
	TLSSelfSigned bool `yaml:"tlsSelfSigned"`

	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`

	AllowedOrigins     []string `yaml:"allowedOrigins"`
	TrustedProxies     []string `yaml:"trustedProxies"`
	RateLimitPerMinute int      `yaml:"rateLimitPerMinute"`
	RateLimitWhitelist []string `yaml:"rateLimitWhitelist"`
}

// PlayerConfig tunes the web player.
type PlayerConfig struct {
	AutoSubmitDelay time.Duration `yaml:"autoSubmitDelay"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
}

// RelayConfig configures the Telegram relay. An empty BotToken or ChatID disables delivery.
type RelayConfig struct {
	BotToken      string        `yaml:"botToken"`
	ChatID        string        `yaml:"chatID"`
	APIBase       string        `yaml:"apiBase"`
	WebhookSecret string        `yaml:"webhookSecret"`
	QueueSize     int           `yaml:"queueSize"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	Burst         int           `yaml:"burst"`
	SendTimeout   time.Duration `yaml:"sendTimeout"`
	// AckTimeout bounds how long POST /api/stream waits for the delivery outcome.
	AckTimeout time.Duration `yaml:"ackTimeout"`
}

// Enabled reports whether relay delivery is configured.
func (r RelayConfig) Enabled() bool {
	return r.BotToken != "" && r.ChatID != ""
}

// ProxyConfig configures the remote fetch proxy and its outbound host policy.
type ProxyConfig struct {
	Enabled          bool          `yaml:"enabled"`
	AllowPublic      bool          `yaml:"allowPublic"`
	AllowHosts       []string      `yaml:"allowHosts"`
	AllowCIDRs       []string      `yaml:"allowCIDRs"`
	AllowPorts       []int         `yaml:"allowPorts"`
	DenyHosts        []string      `yaml:"denyHosts"`
	MaxManifestBytes int64         `yaml:"maxManifestBytes"`
	HeaderTimeout    time.Duration `yaml:"headerTimeout"`
	UserAgent        string        `yaml:"userAgent"`
	DecisionTTL      time.Duration `yaml:"decisionTTL"`
}

// ProbeConfig configures server-side playback probes.
type ProbeConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Timeout          time.Duration `yaml:"timeout"`
	RangeBytes       int64         `yaml:"rangeBytes"`
	MaxManifestBytes int64         `yaml:"maxManifestBytes"`
}

// CacheConfig selects the host-decision cache backend.
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	CleanupInterval time.Duration `yaml:"cleanupInterval"`
	MaxEntries      int           `yaml:"maxEntries"`
	Redis           RedisConfig   `yaml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ExporterType string  `yaml:"exporterType"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Default returns the built-in defaults.
func Default() AppConfig {
	return AppConfig{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:         ":8080",
			MetricsAddr:        ":9090",
			ReadHeaderTimeout:  10 * time.Second,
			IdleTimeout:        120 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			RateLimitPerMinute: 600,
		},
		Player: PlayerConfig{
			AutoSubmitDelay: 500 * time.Millisecond,
			IdleTimeout:     3 * time.Second,
		},
		Relay: RelayConfig{
			APIBase:       "https://api.telegram.org",
			QueueSize:     64,
			RatePerSecond: 1,
			Burst:         5,
			SendTimeout:   10 * time.Second,
			AckTimeout:    5 * time.Second,
		},
		Proxy: ProxyConfig{
			Enabled:          true,
			AllowPublic:      true,
			MaxManifestBytes: 4 << 20,
			HeaderTimeout:    15 * time.Second,
			UserAgent:        "Arsynox/1.0",
			DecisionTTL:      5 * time.Minute,
		},
		Probe: ProbeConfig{
			Enabled:          true,
			Timeout:          15 * time.Second,
			RangeBytes:       64 << 10,
			MaxManifestBytes: 2 << 20,
		},
		Cache: CacheConfig{
			Backend:         CacheBackendMemory,
			CleanupInterval: time.Minute,
			MaxEntries:      10000,
			Redis: RedisConfig{
				Prefix: "arsynox:",
			},
		},
		Telemetry: TelemetryConfig{
			ExporterType: "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1,
		},
	}
}
