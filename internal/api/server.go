// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

// Package api serves the web player, its JSON endpoints, the stream proxy and
// the chat webhook.
package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Johndevils/Arsynox-streaming/internal/api/middleware"
	"github.com/Johndevils/Arsynox-streaming/internal/config"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/health"
	"github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
	"github.com/Johndevils/Arsynox-streaming/internal/version"
)

// SourceWeb tags relay events submitted through the web player.
const SourceWeb = "web"

// Deps are the collaborators the server routes to. Nil Proxy, Prober or
// Webhook leave the matching routes unmounted or answering 503.
type Deps struct {
	Normalizer *normalize.Normalizer
	Relay      *relay.Dispatcher
	Proxy      http.Handler
	Prober     *headless.Prober
	Webhook    http.Handler
	Health     *health.Manager
	Limiter    *ratelimit.Limiter
}

// Server is the HTTP API.
type Server struct {
	mu  sync.RWMutex
	cfg config.AppConfig

	normalizer *normalize.Normalizer
	relay      *relay.Dispatcher
	proxy      http.Handler
	prober     *headless.Prober
	webhook    http.Handler
	health     *health.Manager
	limiter    *ratelimit.Limiter

	trusted   []*net.IPNet
	whitelist []*net.IPNet
	startTime time.Time
	ui        *webUI
}

// New creates the API server. The config is assumed validated.
func New(cfg config.AppConfig, deps Deps) *Server {
	n := deps.Normalizer
	if n == nil {
		n = &normalize.Normalizer{}
	}
	hm := deps.Health
	if hm == nil {
		hm = health.NewManager(cfg.Version)
	}
	s := &Server{
		cfg:        cfg,
		normalizer: n,
		relay:      deps.Relay,
		proxy:      deps.Proxy,
		prober:     deps.Prober,
		webhook:    deps.Webhook,
		health:     hm,
		limiter:    deps.Limiter,
		startTime:  time.Now(),
		ui:         newWebUI(),
	}
	s.trusted = parseNets("server.trustedProxies", cfg.Server.TrustedProxies)
	s.whitelist = parseNets("server.rateLimitWhitelist", cfg.Server.RateLimitWhitelist)
	return s
}

func parseNets(field string, entries []string) []*net.IPNet {
	nets, err := middleware.ParseCIDRs(entries)
	if err != nil {
		log.L().Warn().Err(err).Str("field", field).Msg("invalid CIDR configuration, ignoring value")
		return nil
	}
	return nets
}

// Handler returns the configured HTTP handler with all routes and middleware applied.
func (s *Server) Handler() http.Handler {
	return s.routes()
}

// UpdateConfig applies the settings that may change without a restart: player
// timings shown to the UI, the public URL and the log level.
func (s *Server) UpdateConfig(cfg config.AppConfig) {
	s.mu.Lock()
	s.cfg.Player = cfg.Player
	s.cfg.Server.PublicURL = cfg.Server.PublicURL
	s.cfg.Relay.AckTimeout = cfg.Relay.AckTimeout
	s.cfg.LogLevel = cfg.LogLevel
	s.mu.Unlock()
}

// GetConfig returns the configuration the server currently runs with.
func (s *Server) GetConfig() config.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// HealthManager returns the health check manager.
func (s *Server) HealthManager() *health.Manager {
	return s.health
}

func (s *Server) versionString() string {
	if v := s.GetConfig().Version; v != "" {
		return v
	}
	return version.Version
}
