// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	_ "embed"
	"net/http"
	"time"

	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
	"github.com/Johndevils/Arsynox-streaming/internal/version"
)

//go:embed openapi.yaml
var openAPISpec []byte

// GetStatus implements GET /api/status, polled by the web player.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.GetConfig()
	hr := s.health.Ready(r.Context())

	resp := StatusResponse{
		Status:        StatusResponseStatus(hr.Status),
		Version:       s.versionString(),
		Commit:        version.Commit,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Time:          time.Now().UTC(),
		Relay:         Feature{Enabled: s.relay.Enabled()},
		Proxy:         Feature{Enabled: s.proxy != nil},
		Probe:         Feature{Enabled: s.prober != nil},
		Player: PlayerStatus{
			AutoSubmitDelayMs: cfg.Player.AutoSubmitDelay.Milliseconds(),
			IdleTimeoutMs:     cfg.Player.IdleTimeout.Milliseconds(),
		},
	}
	if resp.Proxy.Enabled {
		resp.Proxy.Endpoint = optional(proxy.DefaultEndpoint)
	}
	if resp.Probe.Enabled {
		resp.Probe.Endpoint = optional(PathProbe)
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// GetOpenAPI serves the embedded document.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openAPISpec)
}

// GetHealth implements GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.health.ServeHealth(w, r)
}

// GetReady implements GET /readyz.
func (s *Server) GetReady(w http.ResponseWriter, r *http.Request) {
	s.health.ServeReady(w, r)
}

// ProxyGet hands the request to the stream proxy, which reads url itself.
func (s *Server) ProxyGet(w http.ResponseWriter, r *http.Request, _ ProxyGetParams) {
	s.proxy.ServeHTTP(w, r)
}

func (s *Server) ProxyHead(w http.ResponseWriter, r *http.Request, _ ProxyHeadParams) {
	s.proxy.ServeHTTP(w, r)
}

// TelegramWebhook hands bot updates to the relay webhook.
func (s *Server) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	s.webhook.ServeHTTP(w, r)
}
