// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
)

//go:embed web/index.html.tmpl web/static
var webFS embed.FS

// HLSScriptURL is the adaptive engine loaded by the player page.
const HLSScriptURL = "https://cdn.jsdelivr.net/npm/hls.js@1.5.17/dist/hls.min.js"

type webUI struct {
	index  *template.Template
	assets http.Handler
}

type indexData struct {
	Version           string
	HLSScript         string
	InitialURL        string
	AutoSubmitDelayMS int64
	IdleTimeoutMS     int64
	ProxyEndpoint     string
	RelayEnabled      bool
}

func newWebUI() *webUI {
	index := template.Must(template.ParseFS(webFS, "web/index.html.tmpl"))
	static, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return &webUI{
		index:  index,
		assets: http.StripPrefix("/static/", http.FileServer(http.FS(static))),
	}
}

func (u *webUI) static() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		u.assets.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	cfg := s.GetConfig()
	data := indexData{
		Version:           s.versionString(),
		HLSScript:         HLSScriptURL,
		InitialURL:        r.URL.Query().Get("url"),
		AutoSubmitDelayMS: cfg.Player.AutoSubmitDelay.Milliseconds(),
		IdleTimeoutMS:     cfg.Player.IdleTimeout.Milliseconds(),
		RelayEnabled:      s.relay.Enabled(),
	}
	if s.proxy != nil {
		data.ProxyEndpoint = proxy.DefaultEndpoint
	}

	var buf bytes.Buffer
	if err := s.ui.index.Execute(&buf, data); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "ui.render_failed").
			Msg("failed to render player page")
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", "UI_RENDER", "", nil)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_, _ = w.Write(buf.Bytes())
}
