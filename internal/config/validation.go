// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"

	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
	"github.com/Johndevils/Arsynox-streaming/internal/validate"
)

// Validate checks a resolved configuration and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("logLevel", cfg.LogLevel, validate.LogLevels)

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	if cfg.Server.MetricsAddr != "" {
		v.ListenAddr("server.metricsAddr", cfg.Server.MetricsAddr)
		if cfg.Server.MetricsAddr == cfg.Server.ListenAddr {
			v.AddError("server.metricsAddr", "must differ from server.listenAddr", cfg.Server.MetricsAddr)
		}
	}
	v.OptionalURL("server.publicURL", cfg.Server.PublicURL, []string{"http", "https"})
	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		v.AddError("server.tlsCert", "tlsCert and tlsKey must be set together", cfg.Server.TLSCert)
	}
	v.PositiveDuration("server.readHeaderTimeout", cfg.Server.ReadHeaderTimeout)
	v.PositiveDuration("server.shutdownTimeout", cfg.Server.ShutdownTimeout)
	v.NonNegative("server.rateLimitPerMinute", cfg.Server.RateLimitPerMinute)
	v.CIDRList("server.trustedProxies", cfg.Server.TrustedProxies)
	v.CIDRList("server.rateLimitWhitelist", cfg.Server.RateLimitWhitelist)

	v.PositiveDuration("player.autoSubmitDelay", cfg.Player.AutoSubmitDelay)
	v.PositiveDuration("player.idleTimeout", cfg.Player.IdleTimeout)

	r := cfg.Relay
	if (r.BotToken == "") != (r.ChatID == "") {
		v.AddError("relay.chatID", "botToken and chatID must be set together", r.ChatID)
	}
	v.URL("relay.apiBase", r.APIBase, []string{"http", "https"})
	v.Positive("relay.queueSize", r.QueueSize)
	if r.RatePerSecond <= 0 {
		v.AddError("relay.ratePerSecond", fmt.Sprintf("value must be positive, got %g", r.RatePerSecond), r.RatePerSecond)
	}
	v.Positive("relay.burst", r.Burst)
	v.PositiveDuration("relay.sendTimeout", r.SendTimeout)
	v.PositiveDuration("relay.ackTimeout", r.AckTimeout)

	x := cfg.Proxy
	if x.Enabled {
		if !x.AllowPublic && len(x.AllowHosts) == 0 && len(x.AllowCIDRs) == 0 {
			v.AddError("proxy.allowHosts", "proxy without allowPublic needs allowHosts or allowCIDRs", nil)
		}
		if err := netx.ValidateCIDRs(x.AllowCIDRs); err != nil {
			v.AddError("proxy.allowCIDRs", err.Error(), x.AllowCIDRs)
		}
		for _, h := range append(append([]string{}, x.AllowHosts...), x.DenyHosts...) {
			if _, err := netx.NormalizeHost(strings.TrimPrefix(h, "*.")); err != nil {
				v.AddError("proxy.hosts", err.Error(), h)
			}
		}
		for _, p := range x.AllowPorts {
			v.Port("proxy.allowPorts", p)
		}
		if x.MaxManifestBytes <= 0 {
			v.AddError("proxy.maxManifestBytes", "value must be positive", x.MaxManifestBytes)
		}
		v.PositiveDuration("proxy.headerTimeout", x.HeaderTimeout)
		v.PositiveDuration("proxy.decisionTTL", x.DecisionTTL)
	}

	if cfg.Probe.Enabled {
		v.PositiveDuration("probe.timeout", cfg.Probe.Timeout)
		if cfg.Probe.RangeBytes <= 0 {
			v.AddError("probe.rangeBytes", "value must be positive", cfg.Probe.RangeBytes)
		}
		if cfg.Probe.MaxManifestBytes <= 0 {
			v.AddError("probe.maxManifestBytes", "value must be positive", cfg.Probe.MaxManifestBytes)
		}
	}

	v.OneOf("cache.backend", cfg.Cache.Backend, []string{CacheBackendMemory, CacheBackendRedis})
	v.NonNegative("cache.maxEntries", cfg.Cache.MaxEntries)
	if cfg.Cache.Backend == CacheBackendRedis {
		v.NotEmpty("cache.redis.addr", cfg.Cache.Redis.Addr)
		v.Range("cache.redis.db", cfg.Cache.Redis.DB, 0, 15)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporterType", cfg.Telemetry.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if !v.IsValid() {
		for range v.Errors() {
			metrics.IncConfigValidationError()
		}
	}
	return v.Err()
}
