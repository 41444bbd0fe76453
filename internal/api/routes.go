// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Johndevils/Arsynox-streaming/internal/api/middleware"
	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
)

// Route paths.
const (
	PathNormalize = "/api/normalize"
	PathStream    = "/api/stream"
	PathProbe     = "/api/probe"
	PathStatus    = "/api/status"
	PathOpenAPI   = "/api/openapi.yaml"
	PathWebhook   = "/telegram/webhook"
	PathHealthz   = "/healthz"
	PathReadyz    = "/readyz"
)

func (s *Server) routes() http.Handler {
	cfg := s.GetConfig()
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:     true,
		AllowedOrigins: cfg.Server.AllowedOrigins,

		EnableSecurityHeaders: true,
		CSP:                   middleware.DefaultCSP,
		TrustedProxies:        s.trusted,

		EnableMetrics:  true,
		TracingService: "arsynox-api",
		EnableLogging:  true,

		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateLimitWhitelist: s.whitelist,
	})
	r.NotFound(problem.NotFound)
	r.MethodNotAllowed(problem.MethodNotAllowed)

	wrapper := ServerInterfaceWrapper{Handler: s, ErrorHandlerFunc: bindError}
	s.registerPublicRoutes(r, wrapper)
	s.registerAPIRoutes(r, wrapper)
	s.registerProxyRoutes(r, wrapper)

	return r
}

func (s *Server) registerPublicRoutes(r chi.Router, wrapper ServerInterfaceWrapper) {
	r.Get(PathHealthz, wrapper.GetHealth)
	r.Get(PathReadyz, wrapper.GetReady)

	r.Get("/", s.handleIndex)
	r.Get("/index.html", redirectTo("/", http.StatusMovedPermanently))
	r.Handle("/static/*", s.ui.static())

	if s.webhook != nil {
		// Telegram posts without an Origin; the secret header authenticates it.
		r.Post(PathWebhook, wrapper.TelegramWebhook)
	}
}

func (s *Server) registerAPIRoutes(r chi.Router, wrapper ServerInterfaceWrapper) {
	r.Get(PathNormalize, wrapper.Normalize)
	r.Get(PathStatus, wrapper.GetStatus)
	r.Get(PathOpenAPI, wrapper.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(middleware.CSRFProtection(s.GetConfig().Server.AllowedOrigins))
		r.Post(PathStream, wrapper.SubmitStream)

		probe := r
		if s.limiter != nil {
			probe = r.With(ratelimit.Middleware(s.limiter, ratelimit.ClassProbe, s.trusted))
		}
		probe.Post(PathProbe, wrapper.ProbeStream)
	})
}

func (s *Server) registerProxyRoutes(r chi.Router, wrapper ServerInterfaceWrapper) {
	if s.proxy == nil {
		return
	}
	r.Get(proxy.DefaultEndpoint, wrapper.ProxyGet)
	r.Head(proxy.DefaultEndpoint, wrapper.ProxyHead)
}

// bindError maps parameter binding failures onto problem responses.
func bindError(w http.ResponseWriter, r *http.Request, err error) {
	var required *RequiredParamError
	if errors.As(err, &required) {
		problem.BadRequest(w, r, strings.ToUpper(required.ParamName)+"_REQUIRED", "query parameter "+required.ParamName+" is required")
		return
	}
	problem.BadRequest(w, r, "INVALID_INPUT", err.Error())
}

func redirectTo(path string, code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, code)
	}
}
