package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
)

// loopbackPolicy lets the proxy reach httptest servers.
func loopbackPolicy() netx.OutboundPolicy {
	return netx.OutboundPolicy{
		Enabled: true,
		Allow:   netx.OutboundAllowlist{CIDRs: []string{"127.0.0.1/32"}},
	}
}

func newTestServer(t *testing.T, policy netx.OutboundPolicy, mutate ...func(*Config, *Deps)) *Server {
	t.Helper()
	nop := zerolog.Nop()
	cfg := Config{Policy: policy}
	deps := Deps{Logger: &nop}
	for _, m := range mutate {
		m(&cfg, &deps)
	}
	s, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func proxyRequest(method, upstream string) *http.Request {
	return httptest.NewRequest(method, "/proxy?url="+url.QueryEscape(upstream), nil)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, problem.ContentType, rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew_RequiresEnabledPolicy(t *testing.T) {
	_, err := New(Config{}, Deps{})
	require.ErrorIs(t, err, netx.ErrOutboundDisabled)

	_, err = New(Config{Policy: netx.OutboundPolicy{
		Enabled: true,
		Allow:   netx.OutboundAllowlist{CIDRs: []string{"not-a-cidr"}},
	}}, Deps{})
	require.Error(t, err)
}

func TestProxy_PassthroughWithRange(t *testing.T) {
	var gotRange, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange, gotUA = r.Header.Get("Range"), r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Range", "bytes 0-3/100")
		w.Header().Set("Accept-Ranges", "bytes")
		w.Header().Set("Set-Cookie", "session=secret")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = io.WriteString(w, "abcd")
	}))
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	req := proxyRequest(http.MethodGet, upstream.URL+"/movie.mp4")
	req.Header.Set("Range", "bytes=0-3")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "abcd", rec.Body.String())
	assert.Equal(t, "bytes=0-3", gotRange)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "bytes 0-3/100", rec.Header().Get("Content-Range"))
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestProxy_HeadHasNoBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Type", "video/mp2t")
		w.Header().Set("Content-Length", "188")
	}))
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodHead, upstream.URL+"/seg.ts"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "188", rec.Header().Get("Content-Length"))
	assert.Zero(t, rec.Body.Len())
}

func TestProxy_RequestErrors(t *testing.T) {
	srv := newTestServer(t, loopbackPolicy())

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"missing url", httptest.NewRequest(http.MethodGet, "/proxy", nil), http.StatusBadRequest, "URL_REQUIRED"},
		{"blank url", proxyRequest(http.MethodGet, " \t"), http.StatusBadRequest, "URL_REQUIRED"},
		{"non http", proxyRequest(http.MethodGet, "ftp://files.example/a.ts"), http.StatusBadRequest, "UNSUPPORTED_URL"},
		{"wrong method", httptest.NewRequest(http.MethodPost, "/proxy?url=x", nil), http.StatusMethodNotAllowed, ""},
		{"private host", proxyRequest(http.MethodGet, "http://10.1.2.3/live.m3u8"), http.StatusForbidden, "HOST_NOT_ALLOWED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeProblem(t, rec)["code"])
			}
		})
	}
}

func TestProxy_LoopbackBlockedWithoutAllowlist(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("upstream must not be reached")
	}))
	defer upstream.Close()

	srv := newTestServer(t, netx.OutboundPolicy{Enabled: true, AllowPublic: true})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+"/seg.ts"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestProxy_RedirectRevalidated(t *testing.T) {
	upstream := httptest.NewServer(http.RedirectHandler("http://10.1.2.3/internal.ts", http.StatusFound))
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+"/seg.ts"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "HOST_NOT_ALLOWED", decodeProblem(t, rec)["code"])
}

func TestProxy_UpstreamUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	target := upstream.URL + "/seg.ts"
	upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, target))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", body["code"])
	assert.Equal(t, problem.TypeUpstream, body["type"])
	assert.Equal(t, "connect_reset", body["reason"])
}

func TestProxy_UpstreamStatusPassesThrough(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+"/missing.m3u8"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "gone\n", rec.Body.String())
}

func TestProxy_ManifestRewrittenAfterRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/old.m3u8", http.RedirectHandler("/live/index.m3u8", http.StatusMovedPermanently))
	mux.HandleFunc("/live/index.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = io.WriteString(w, strings.Join([]string{
			"#EXTM3U",
			"#EXT-X-TARGETDURATION:4",
			"#EXTINF:4.0,",
			"seg0.ts",
			"#EXT-X-ENDLIST",
			"",
		}, "\n"))
	})
	upstream := httptest.NewServer(mux)
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+"/old.m3u8"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Body.String(), proxied(upstream.URL+"/live/seg0.ts"))
	assert.Equal(t, rec.Header().Get("Content-Length"), strconvLen(rec.Body.Bytes()))
}

func TestProxy_ManifestTooLarge(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/x-mpegURL")
		_, _ = io.WriteString(w, "#EXTM3U\n"+strings.Repeat("#EXT-X-PADDING\n", 10))
	}))
	defer upstream.Close()

	srv := newTestServer(t, loopbackPolicy(), func(c *Config, _ *Deps) { c.MaxManifestBytes = 16 })
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+"/big.m3u8"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "MANIFEST_TOO_LARGE", decodeProblem(t, rec)["code"])
}

func TestProxy_RateLimitedPerClass(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "x")
	}))
	defer upstream.Close()

	limiter := ratelimit.New(ratelimit.Config{
		GlobalRate:  rate.Inf,
		GlobalBurst: 1,
		PerIPRate:   rate.Inf,
		PerIPBurst:  1,
		ClassRates:  map[string]rate.Limit{ratelimit.ClassManifest: rate.Every(rateWindow)},
		ClassBurst:  map[string]int{ratelimit.ClassManifest: 1},
	})
	srv := newTestServer(t, loopbackPolicy(), func(_ *Config, d *Deps) { d.Limiter = limiter })

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, proxyRequest(http.MethodGet, upstream.URL+path))
		return rec
	}

	assert.Equal(t, http.StatusOK, serve("/a.m3u8").Code)
	rec := serve("/b.m3u8")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, serve("/seg.ts").Code, "media requests have their own budget")
}

const rateWindow = time.Hour

func strconvLen(b []byte) string { return strconv.Itoa(len(b)) }
