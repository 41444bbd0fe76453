// Package httpx builds the outbound HTTP clients used for upstream media, bot API
// and probe traffic. Nothing in the module should use http.DefaultClient.
package httpx

import (
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/Johndevils/Arsynox-streaming/internal/telemetry"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4
)

// Option customises a client built by NewClient.
type Option func(*http.Client)

// WithTracing wraps the transport so outbound requests carry trace context.
func WithTracing() Option {
	return func(c *http.Client) {
		c.Transport = telemetry.Transport(c.Transport)
	}
}

// WithRedirectPolicy installs fn as the client's CheckRedirect hook.
func WithRedirectPolicy(fn func(req *http.Request, via []*http.Request) error) Option {
	return func(c *http.Client) {
		c.CheckRedirect = fn
	}
}

// WithoutTimeout drops the whole-exchange timeout. Streaming bodies (proxied media)
// rely on request contexts instead; dial and header timeouts still apply.
func WithoutTimeout() Option {
	return func(c *http.Client) {
		c.Timeout = 0
	}
}

// WithDialControl runs control before every outbound connect and disables
// environment proxies, so the hook always sees the real upstream address.
func WithDialControl(control func(network, address string, c syscall.RawConn) error) Option {
	return func(c *http.Client) {
		t, ok := c.Transport.(*http.Transport)
		if !ok {
			return
		}
		t = t.Clone()
		t.Proxy = nil
		t.DialContext = (&net.Dialer{
			Timeout:   t.TLSHandshakeTimeout,
			KeepAlive: 30 * time.Second,
			Control:   control,
		}).DialContext
		c.Transport = t
	}
}

// NewClient returns a hardened HTTP client for upstream fetches and ops probes.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := timeout
	if dialTimeout > defaultDialTimeout {
		dialTimeout = defaultDialTimeout
	}

	responseHeaderTimeout := timeout
	if responseHeaderTimeout > defaultResponseHeaderTimeout {
		responseHeaderTimeout = defaultResponseHeaderTimeout
	}

	c := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: responseHeaderTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
