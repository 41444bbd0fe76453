// Package proxy relays remote streams for the web player so that upstreams
// without CORS headers stay playable. HLS playlists are rewritten so every
// nested URI comes back through the proxy.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/cache"
	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/platform/httpx"
	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
)

const (
	// DefaultEndpoint is where the proxy is mounted.
	DefaultEndpoint = "/proxy"
	// DefaultMaxManifestBytes caps playlists read for rewriting.
	DefaultMaxManifestBytes = 4 << 20
	// DefaultUserAgent is sent upstream when the client supplies none.
	DefaultUserAgent = "Arsynox/1.0"

	defaultHeaderTimeout = 10 * time.Second
	maxRedirects         = 5
)

// forwarded request headers
var requestHeaders = []string{
	"Range",
	"If-Range",
	"If-None-Match",
	"If-Modified-Since",
	"Accept",
	"Accept-Language",
}

// copied response headers; hop-by-hop and cookie headers never pass
var responseHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Cache-Control",
	"Expires",
	"ETag",
	"Last-Modified",
}

// Config holds the proxy settings.
type Config struct {
	Policy           netx.OutboundPolicy
	Endpoint         string
	MaxManifestBytes int64
	HeaderTimeout    time.Duration
	UserAgent        string
	DecisionTTL      time.Duration
}

// Deps are the collaborators New wires in. All are optional.
type Deps struct {
	Normalizer *normalize.Normalizer
	Cache      cache.Cache
	Resolver   netx.Resolver
	Limiter    *ratelimit.Limiter
	Trusted    []*net.IPNet
	Logger     *zerolog.Logger
	// Guard, when set, replaces the guard built from Policy, Resolver and
	// Cache so other fetchers can share its decisions.
	Guard *HostGuard
}

// Server is the /proxy handler.
type Server struct {
	cfg        Config
	guard      *HostGuard
	client     *http.Client
	normalizer *normalize.Normalizer
	limiter    *ratelimit.Limiter
	trusted    []*net.IPNet
	logger     zerolog.Logger
}

// New builds a proxy. The policy must be enabled; callers decide whether to
// mount the proxy at all.
func New(cfg Config, deps Deps) (*Server, error) {
	if !cfg.Policy.Enabled {
		return nil, fmt.Errorf("proxy: %w", netx.ErrOutboundDisabled)
	}
	if err := netx.ValidateCIDRs(cfg.Policy.Allow.CIDRs); err != nil {
		return nil, fmt.Errorf("proxy: %w", err)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxManifestBytes <= 0 {
		cfg.MaxManifestBytes = DefaultMaxManifestBytes
	}
	if cfg.HeaderTimeout <= 0 {
		cfg.HeaderTimeout = defaultHeaderTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	logger := alog.WithComponent("proxy")
	if deps.Logger != nil {
		logger = *deps.Logger
	}
	n := deps.Normalizer
	if n == nil {
		n = &normalize.Normalizer{}
	}

	guard := deps.Guard
	if guard == nil {
		guard = NewHostGuard(cfg.Policy, deps.Resolver, deps.Cache, cfg.DecisionTTL)
	}
	s := &Server{
		cfg:        cfg,
		guard:      guard,
		normalizer: n,
		limiter:    deps.Limiter,
		trusted:    deps.Trusted,
		logger:     logger,
	}
	s.client = httpx.NewClient(cfg.HeaderTimeout,
		httpx.WithDialControl(s.guard.DialControl()),
		httpx.WithTracing(),
		httpx.WithoutTimeout(),
		httpx.WithRedirectPolicy(s.checkRedirect),
	)
	return s, nil
}

// Close releases idle upstream connections.
func (s *Server) Close() {
	s.client.CloseIdleConnections()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		problem.MethodNotAllowed(w, r)
		return
	}

	raw := r.URL.Query().Get("url")
	if normalize.TrimInvisible(raw) == "" {
		problem.BadRequest(w, r, "URL_REQUIRED", "query parameter url is required")
		return
	}
	res := s.normalizer.Normalize(raw)
	target, ok := netx.ParseDirectHTTPURL(res.URL)
	if !ok {
		problem.BadRequest(w, r, "UNSUPPORTED_URL", "only http and https upstreams can be proxied")
		return
	}

	if s.limiter != nil {
		class := ratelimit.ClassMedia
		if res.IsHLS() {
			class = ratelimit.ClassManifest
		}
		if !s.limiter.Allow(ratelimit.ClientIP(r, s.trusted), class) {
			w.Header().Set("Retry-After", "1")
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too Many Requests",
				"RATE_LIMITED", "request rate exceeded for "+class, nil)
			return
		}
	}

	logger := alog.WithContext(r.Context(), s.logger)
	target, err := s.guard.Check(r.Context(), target)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(alog.FieldEvent, "proxy.refused").
			Str(alog.FieldUpstream, netx.SanitizeURL(res.URL)).
			Msg("upstream refused by host policy")
		if errors.Is(err, ErrHostNotAllowed) {
			problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden",
				"HOST_NOT_ALLOWED", "the upstream host is not allowed", nil)
			return
		}
		s.upstreamFailed(w, r, err)
		return
	}

	resp, err := s.fetch(r, target)
	if err != nil {
		logger.Warn().
			Err(err).
			Str(alog.FieldEvent, "proxy.upstream_failed").
			Str(alog.FieldUpstream, netx.SanitizeURL(target.String())).
			Str("reason", ClassifyUpstreamError(err)).
			Msg("upstream request failed")
		s.upstreamFailed(w, r, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	final := target
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}

	if r.Method == http.MethodGet && resp.StatusCode == http.StatusOK && IsManifest(resp.Header.Get("Content-Type"), final) {
		s.serveManifest(w, r, resp, final, logger)
		return
	}

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	var n int64
	if r.Method != http.MethodHead {
		n, err = io.Copy(w, resp.Body)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug().
				Err(err).
				Str(alog.FieldEvent, "proxy.copy_interrupted").
				Str("reason", ClassifyUpstreamError(err)).
				Int64("bytes", n).
				Msg("stream copy ended early")
		}
	}
	metrics.RecordProxyResponse(resp.StatusCode, n)
}

func (s *Server) fetch(r *http.Request, target *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), nil)
	if err != nil {
		return nil, err
	}
	for _, h := range requestHeaders {
		if v := r.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		ua = s.cfg.UserAgent
	}
	req.Header.Set("User-Agent", ua)
	return s.client.Do(req)
}

func (s *Server) serveManifest(w http.ResponseWriter, r *http.Request, resp *http.Response, final *url.URL, logger zerolog.Logger) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxManifestBytes+1))
	if err != nil {
		s.upstreamFailed(w, r, err)
		return
	}
	if int64(len(body)) > s.cfg.MaxManifestBytes {
		logger.Warn().
			Str(alog.FieldEvent, "proxy.manifest_too_large").
			Str(alog.FieldUpstream, netx.SanitizeURL(final.String())).
			Int64("limit", s.cfg.MaxManifestBytes).
			Msg("manifest exceeds rewrite limit")
		s.upstreamFailed(w, r, ErrManifestTooLarge)
		return
	}

	out, decoded := Rewriter{Endpoint: s.cfg.Endpoint, Base: final}.Manifest(body)
	metrics.RecordManifestRewrite(decoded)

	h := w.Header()
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/vnd.apple.mpegurl"
	}
	h.Set("Content-Type", ct)
	h.Set("Content-Length", strconv.Itoa(len(out)))
	h.Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	n, _ := w.Write(out)
	metrics.RecordProxyResponse(http.StatusOK, int64(n))

	logger.Debug().
		Str(alog.FieldEvent, "proxy.manifest_rewritten").
		Str(alog.FieldUpstream, netx.SanitizeURL(final.String())).
		Bool("decoded", decoded).
		Int("bytes", n).
		Msg("manifest rewritten")
}

// checkRedirect re-applies the host policy to every hop.
func (s *Server) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return ErrTooManyRedirects
	}
	checked, err := s.guard.Check(req.Context(), req.URL)
	if err != nil {
		return err
	}
	req.URL = checked
	return nil
}

func (s *Server) upstreamFailed(w http.ResponseWriter, r *http.Request, err error) {
	metrics.RecordProxyResponse(0, 0)
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	if errors.Is(err, ErrHostNotAllowed) {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden",
			"HOST_NOT_ALLOWED", "a redirect pointed at a host that is not allowed", nil)
		return
	}
	code := "UPSTREAM_UNAVAILABLE"
	if errors.Is(err, ErrManifestTooLarge) {
		code = "MANIFEST_TOO_LARGE"
	}
	problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Bad Gateway", code,
		"the upstream could not be fetched", map[string]any{"reason": ClassifyUpstreamError(err)})
}

func copyHeaders(dst, src http.Header) {
	for _, h := range responseHeaders {
		if v := src.Values(h); len(v) > 0 {
			dst[h] = append([]string(nil), v...)
		}
	}
	dst.Set("Access-Control-Allow-Origin", "*")
	dst.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
}
