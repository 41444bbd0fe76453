// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package config

import "time"

// Wrapper methods record every key the loader reads, so `config dump` and tests
// can tell which overrides exist.

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envInt64(key string, defaultVal int64) int64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt64(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

func (l *Loader) envIntList(key string, defaultVal []int) []int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseIntList(key, defaultVal)
}

// mergeEnvConfig applies ARSYNOX_* overrides on top of cfg.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)

	s := &cfg.Server
	s.ListenAddr = l.envString(EnvPrefix+"LISTEN", s.ListenAddr)
	s.MetricsAddr = l.envString(EnvPrefix+"METRICS_LISTEN", s.MetricsAddr)
	s.PublicURL = l.envString(EnvPrefix+"PUBLIC_URL", s.PublicURL)
	s.TLSCert = l.envString(EnvPrefix+"TLS_CERT", s.TLSCert)
	s.TLSKey = l.envString(EnvPrefix+"TLS_KEY", s.TLSKey)
	s.TLSSelfSigned = l.envBool(EnvPrefix+"TLS_SELF_SIGNED", s.TLSSelfSigned)
	s.ReadHeaderTimeout = l.envDuration(EnvPrefix+"READ_HEADER_TIMEOUT", s.ReadHeaderTimeout)
	s.IdleTimeout = l.envDuration(EnvPrefix+"IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = l.envDuration(EnvPrefix+"SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.AllowedOrigins = l.envList(EnvPrefix+"ALLOWED_ORIGINS", s.AllowedOrigins)
	s.TrustedProxies = l.envList(EnvPrefix+"TRUSTED_PROXIES", s.TrustedProxies)
	s.RateLimitPerMinute = l.envInt(EnvPrefix+"RATE_LIMIT_PER_MINUTE", s.RateLimitPerMinute)
	s.RateLimitWhitelist = l.envList(EnvPrefix+"RATE_LIMIT_WHITELIST", s.RateLimitWhitelist)

	p := &cfg.Player
	p.AutoSubmitDelay = l.envDuration(EnvPrefix+"PLAYER_AUTOSUBMIT_DELAY", p.AutoSubmitDelay)
	p.IdleTimeout = l.envDuration(EnvPrefix+"PLAYER_IDLE_TIMEOUT", p.IdleTimeout)

	r := &cfg.Relay
	r.BotToken = l.envString(EnvPrefix+"TELEGRAM_BOT_TOKEN", r.BotToken)
	r.ChatID = l.envString(EnvPrefix+"TELEGRAM_CHAT_ID", r.ChatID)
	r.APIBase = l.envString(EnvPrefix+"TELEGRAM_API_BASE", r.APIBase)
	r.WebhookSecret = l.envString(EnvPrefix+"TELEGRAM_WEBHOOK_SECRET", r.WebhookSecret)
	r.QueueSize = l.envInt(EnvPrefix+"RELAY_QUEUE_SIZE", r.QueueSize)
	r.RatePerSecond = l.envFloat(EnvPrefix+"RELAY_RATE", r.RatePerSecond)
	r.Burst = l.envInt(EnvPrefix+"RELAY_BURST", r.Burst)
	r.SendTimeout = l.envDuration(EnvPrefix+"RELAY_SEND_TIMEOUT", r.SendTimeout)
	r.AckTimeout = l.envDuration(EnvPrefix+"RELAY_ACK_TIMEOUT", r.AckTimeout)

	x := &cfg.Proxy
	x.Enabled = l.envBool(EnvPrefix+"PROXY_ENABLED", x.Enabled)
	x.AllowPublic = l.envBool(EnvPrefix+"PROXY_ALLOW_PUBLIC", x.AllowPublic)
	x.AllowHosts = l.envList(EnvPrefix+"PROXY_ALLOW_HOSTS", x.AllowHosts)
	x.AllowCIDRs = l.envList(EnvPrefix+"PROXY_ALLOW_CIDRS", x.AllowCIDRs)
	x.AllowPorts = l.envIntList(EnvPrefix+"PROXY_ALLOW_PORTS", x.AllowPorts)
	x.DenyHosts = l.envList(EnvPrefix+"PROXY_DENY_HOSTS", x.DenyHosts)
	x.MaxManifestBytes = l.envInt64(EnvPrefix+"PROXY_MAX_MANIFEST_BYTES", x.MaxManifestBytes)
	x.HeaderTimeout = l.envDuration(EnvPrefix+"PROXY_HEADER_TIMEOUT", x.HeaderTimeout)
	x.UserAgent = l.envString(EnvPrefix+"PROXY_USER_AGENT", x.UserAgent)
	x.DecisionTTL = l.envDuration(EnvPrefix+"PROXY_DECISION_TTL", x.DecisionTTL)

	pr := &cfg.Probe
	pr.Enabled = l.envBool(EnvPrefix+"PROBE_ENABLED", pr.Enabled)
	pr.Timeout = l.envDuration(EnvPrefix+"PROBE_TIMEOUT", pr.Timeout)
	pr.RangeBytes = l.envInt64(EnvPrefix+"PROBE_RANGE_BYTES", pr.RangeBytes)
	pr.MaxManifestBytes = l.envInt64(EnvPrefix+"PROBE_MAX_MANIFEST_BYTES", pr.MaxManifestBytes)

	c := &cfg.Cache
	c.Backend = l.envString(EnvPrefix+"CACHE_BACKEND", c.Backend)
	c.CleanupInterval = l.envDuration(EnvPrefix+"CACHE_CLEANUP_INTERVAL", c.CleanupInterval)
	c.MaxEntries = l.envInt(EnvPrefix+"CACHE_MAX_ENTRIES", c.MaxEntries)
	c.Redis.Addr = l.envString(EnvPrefix+"REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = l.envString(EnvPrefix+"REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = l.envInt(EnvPrefix+"REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = l.envString(EnvPrefix+"REDIS_PREFIX", c.Redis.Prefix)

	t := &cfg.Telemetry
	t.Enabled = l.envBool(EnvPrefix+"TRACING_ENABLED", t.Enabled)
	t.ExporterType = l.envString(EnvPrefix+"TRACING_EXPORTER", t.ExporterType)
	t.Endpoint = l.envString(EnvPrefix+"TRACING_ENDPOINT", t.Endpoint)
	t.SamplingRate = l.envFloat(EnvPrefix+"TRACING_SAMPLING_RATE", t.SamplingRate)
}
