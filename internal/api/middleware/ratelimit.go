// SPDX-License-Identifier: MIT

package middleware

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
)

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	// RequestLimit is the maximum number of requests allowed in the window
	RequestLimit int
	// WindowSize is the time window for rate limiting
	WindowSize time.Duration
	// TrustedProxies may set X-Forwarded-For / X-Real-IP.
	TrustedProxies []*net.IPNet
	// Whitelist addresses are never limited.
	Whitelist []*net.IPNet
}

// RateLimit creates a sliding-window rate limiting middleware keyed by client IP.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestLimit <= 0 || cfg.WindowSize <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	retryAfter := strconv.Itoa(max(1, int(cfg.WindowSize.Seconds())))

	limiter := httprate.NewRateLimiter(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return ratelimit.ClientIP(r, cfg.TrustedProxies), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too Many Requests",
				"RATE_LIMITED", "Too many requests. Please try again later.", nil)
		}),
	)

	return func(next http.Handler) http.Handler {
		limited := limiter.Handler(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(cfg.Whitelist) > 0 && peerIn(r.RemoteAddr, cfg.Whitelist) {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit returns the limiter for general API endpoints: requestsPerMinute
// per client IP.
func APIRateLimit(requestsPerMinute int, trusted, whitelist []*net.IPNet) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		RequestLimit:   requestsPerMinute,
		WindowSize:     time.Minute,
		TrustedProxies: trusted,
		Whitelist:      whitelist,
	})
}
