// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/config"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

const testOrigin = "http://example.com"

type fakeSender struct {
	mu    sync.Mutex
	err   error
	block chan struct{}
	sent  []string
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID, text string) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return f.err
}

func startDispatcher(t *testing.T, sender relay.Sender, chatID string) *relay.Dispatcher {
	t.Helper()
	d := relay.NewDispatcher(sender, relay.DispatcherConfig{ChatID: chatID, RateLimit: 100, Burst: 100})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return d
}

func newTestServer(t *testing.T, mutate func(*config.AppConfig), deps Deps) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Version = "v-test"
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, deps).Handler()
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Origin", testOrigin)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestNormalizeEndpoint(t *testing.T) {
	h := newTestServer(t, nil, Deps{})

	w := do(h, http.MethodGet, "/api/normalize?url="+
		"https%253A%252F%252Fcdn.example.com%252Flive%252Fmaster.m3u8", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[NormalizeResponse](t, w)
	assert.Equal(t, "https://cdn.example.com/live/master.m3u8", got.Url)
	assert.Equal(t, string(normalize.HLS), got.Type)
	assert.True(t, got.Hls)
	assert.False(t, got.Degraded)
}

func TestNormalizeEndpoint_RequiresURL(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	w := do(h, http.MethodGet, "/api/normalize?url=%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, problem.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "URL_REQUIRED", decode[map[string]any](t, w)["code"])
}

func TestNormalizeEndpoint_MissingParam(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	w := do(h, http.MethodGet, "/api/normalize", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, problem.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "URL_REQUIRED", decode[map[string]any](t, w)["code"])
}

func TestStreamEndpoint(t *testing.T) {
	tests := []struct {
		name        string
		sender      *fakeSender
		chatID      string
		wantSuccess bool
		wantStatus  StreamResponseStatus
	}{
		{name: "logged", sender: &fakeSender{}, chatID: "-100", wantSuccess: true, wantStatus: StreamResponseStatusLogged},
		{name: "send failure", sender: &fakeSender{err: errors.New("boom")}, chatID: "-100", wantStatus: StreamResponseStatusFailed},
		{name: "no chat configured", sender: &fakeSender{}, chatID: "", wantStatus: StreamResponseStatusDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := startDispatcher(t, tt.sender, tt.chatID)
			h := newTestServer(t, nil, Deps{Relay: d})

			w := do(h, http.MethodPost, "/api/stream", `{"url":"https://cdn.example.com/movie.mp4"}`)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			got := decode[StreamResponse](t, w)
			assert.Equal(t, tt.wantSuccess, got.Success)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, "https://cdn.example.com/movie.mp4", got.Url)
			assert.Equal(t, string(normalize.MP4), got.Type)
			assert.NotEmpty(t, got.Id)
		})
	}
}

func TestStreamEndpoint_NoRelayIsDisabled(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	w := do(h, http.MethodPost, "/api/stream", `{"url":"https://a.example/x.mp4","type":"Custom"}`)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[StreamResponse](t, w)
	assert.False(t, got.Success)
	assert.Equal(t, StreamResponseStatusDisabled, got.Status)
	assert.Equal(t, "Custom", got.Type)
}

func TestStreamEndpoint_PendingAfterAckTimeout(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)
	d := startDispatcher(t, sender, "-100")
	h := newTestServer(t, func(c *config.AppConfig) { c.Relay.AckTimeout = 20 * time.Millisecond }, Deps{Relay: d})

	w := do(h, http.MethodPost, "/api/stream", `{"url":"https://a.example/live.m3u8"}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	got := decode[StreamResponse](t, w)
	assert.Equal(t, StreamResponseStatusPending, got.Status)
	assert.False(t, got.Success)
}

func TestStreamEndpoint_BadRequests(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "empty body", body: "", wantCode: "EMPTY_BODY"},
		{name: "not json", body: "{url", wantCode: "INVALID_JSON"},
		{name: "blank url", body: `{"url":"  "}`, wantCode: "URL_REQUIRED"},
		{name: "bad timestamp", body: `{"url":"https://a.example/x.mp4","timestamp":"yesterday"}`, wantCode: "INVALID_TIMESTAMP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/stream", strings.NewReader(tt.body))
			req.Header.Set("Origin", testOrigin)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode[map[string]any](t, w)["code"])
		})
	}
}

func TestStreamEndpoint_CSRF(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	req := httptest.NewRequest(http.MethodPost, "/api/stream", strings.NewReader(`{"url":"https://a.example/x.mp4"}`))
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "CSRF_FORBIDDEN", decode[map[string]any](t, w)["code"])
}

func TestProbeEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(make([]byte, 512))
	}))
	t.Cleanup(upstream.Close)

	prober := headless.New(headless.Config{Timeout: 5 * time.Second}, headless.Deps{})
	h := newTestServer(t, nil, Deps{Prober: prober})

	w := do(h, http.MethodPost, "/api/probe", `{"url":"`+upstream.URL+`/clip.mp4"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[ProbeResult](t, w)
	assert.Equal(t, ProbeResultOutcomePlaying, got.Outcome)
	assert.Equal(t, string(normalize.MP4), got.Type)
	require.NotNil(t, got.Media)
	assert.Equal(t, http.StatusPartialContent, got.Media.Status)
	require.NotNil(t, got.Media.ContentType)
	assert.Equal(t, "video/mp4", *got.Media.ContentType)
	assert.Nil(t, got.Hls)

	w = do(h, http.MethodPost, "/api/probe", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProbeEndpoint_Disabled(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	w := do(h, http.MethodPost, "/api/probe", `{"url":"https://a.example/x.mp4"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "PROBE_DISABLED", decode[map[string]any](t, w)["code"])
}

func TestStatusEndpoint(t *testing.T) {
	d := startDispatcher(t, &fakeSender{}, "-100")
	h := newTestServer(t, nil, Deps{Relay: d, Proxy: http.NotFoundHandler()})

	w := do(h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[StatusResponse](t, w)
	assert.Equal(t, "v-test", got.Version)
	assert.True(t, got.Relay.Enabled)
	assert.True(t, got.Proxy.Enabled)
	require.NotNil(t, got.Proxy.Endpoint)
	assert.Equal(t, "/proxy", *got.Proxy.Endpoint)
	assert.False(t, got.Probe.Enabled)
	assert.Nil(t, got.Probe.Endpoint)
	assert.Equal(t, int64(500), got.Player.AutoSubmitDelayMs)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestIndexPage(t *testing.T) {
	h := newTestServer(t, nil, Deps{Proxy: http.NotFoundHandler()})

	w := do(h, http.MethodGet, "/?url=https%3A%2F%2Fa.example%2Fx.m3u8%22%3E%3Cscript%3E", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `data-autosubmit-ms="500"`)
	assert.Contains(t, body, `data-proxy="/proxy"`)
	assert.Contains(t, body, HLSScriptURL)
	assert.NotContains(t, body, `"><script>`, "query must be escaped")
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestStaticAssets(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	for _, p := range []string{"/static/app.js", "/static/app.css"} {
		w := do(h, http.MethodGet, p, "")
		assert.Equal(t, http.StatusOK, w.Code, p)
		assert.NotEmpty(t, w.Body.Bytes(), p)
	}
	w := do(h, http.MethodGet, "/static/missing.js", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProxyRouteMountedOnlyWhenEnabled(t *testing.T) {
	called := false
	proxyHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	w := do(newTestServer(t, nil, Deps{}), http.MethodGet, "/proxy?url=x", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(newTestServer(t, nil, Deps{Proxy: proxyHandler}), http.MethodHead, "/proxy?url=x", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, called)
}

func TestProxyRoute_RequiresURL(t *testing.T) {
	called := false
	proxyHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})
	w := do(newTestServer(t, nil, Deps{Proxy: proxyHandler}), http.MethodGet, "/proxy", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "URL_REQUIRED", decode[map[string]any](t, w)["code"])
	assert.False(t, called)
}

func TestWebhookBypassesCSRF(t *testing.T) {
	n, err := normalize.New("")
	require.NoError(t, err)
	hook := relay.WebhookHandler(relay.WebhookConfig{Secret: "s3cret", Normalizer: n})
	h := newTestServer(t, nil, Deps{Webhook: hook})

	req := httptest.NewRequest(http.MethodPost, PathWebhook,
		strings.NewReader(`{"update_id":1,"message":{"message_id":2,"chat":{"id":3},"text":"/help"}}`))
	req.Header.Set(relay.HeaderWebhookSecret, "s3cret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"method":"sendMessage"`)
}

func TestNotFoundIsProblem(t *testing.T) {
	h := newTestServer(t, nil, Deps{})
	w := do(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, problem.ContentType, w.Header().Get("Content-Type"))
}

func TestUpdateConfig(t *testing.T) {
	cfg := config.Default()
	s := New(cfg, Deps{})
	next := cfg
	next.Player.AutoSubmitDelay = 2 * time.Second
	next.Server.ListenAddr = ":9999"
	s.UpdateConfig(next)

	got := s.GetConfig()
	assert.Equal(t, 2*time.Second, got.Player.AutoSubmitDelay)
	assert.Equal(t, ":8080", got.Server.ListenAddr, "listener is not hot-swappable")
}
