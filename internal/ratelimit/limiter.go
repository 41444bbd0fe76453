// SPDX-License-Identifier: MIT

// Package ratelimit applies global, per-class and per-client token buckets to
// expensive endpoints (proxy fetches, probes).
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"

	"github.com/Johndevils/Arsynox-streaming/internal/api/problem"
)

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arsynox",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total rate limit rejections",
		},
		[]string{"limit_type", "class"},
	)
)

// Request classes.
const (
	ClassManifest = "manifest"
	ClassMedia    = "media"
	ClassProbe    = "probe"
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // requests per second
	GlobalBurst int        // max burst size

	// Per-IP limits
	PerIPRate  rate.Limit
	PerIPBurst int

	// Per-class limits
	ClassRates map[string]rate.Limit
	ClassBurst map[string]int

	// IdleTTL drops per-IP buckets unused for this long.
	IdleTTL time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		GlobalRate:  200,
		GlobalBurst: 400,

		// Segment fetches arrive in bursts when a player starts or seeks.
		PerIPRate:  20,
		PerIPBurst: 60,

		ClassRates: map[string]rate.Limit{
			ClassManifest: 20,
			ClassMedia:    150,
			ClassProbe:    2,
		},
		ClassBurst: map[string]int{
			ClassManifest: 40,
			ClassMedia:    300,
			ClassProbe:    5,
		},

		IdleTTL: 5 * time.Minute,
	}
}

type ipBucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter manages rate limiting per client and request class.
type Limiter struct {
	config Config
	now    func() time.Time

	global   *rate.Limiter
	perClass map[string]*rate.Limiter

	mu          sync.Mutex
	perIP       map[string]*ipBucket
	lastCleanup time.Time
}

// New creates a new rate limiter with the given config
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 5 * time.Minute
	}
	l := &Limiter{
		config:   config,
		now:      time.Now,
		global:   rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perClass: make(map[string]*rate.Limiter),
		perIP:    make(map[string]*ipBucket),
	}
	l.lastCleanup = l.now()

	for class, classRate := range config.ClassRates {
		l.perClass[class] = rate.NewLimiter(classRate, config.ClassBurst[class])
	}
	return l
}

// Allow checks if a request is allowed under rate limits
// Returns true if allowed, false if rate limited
func (l *Limiter) Allow(clientIP, class string) bool {
	if !l.global.Allow() {
		rateLimitExceeded.WithLabelValues("global", class).Inc()
		return false
	}

	if classLimiter, ok := l.perClass[class]; ok && !classLimiter.Allow() {
		rateLimitExceeded.WithLabelValues("per_class", class).Inc()
		return false
	}

	if !l.ipLimiter(clientIP).Allow() {
		rateLimitExceeded.WithLabelValues("per_ip", class).Inc()
		return false
	}
	return true
}

// Clients is the number of tracked per-IP buckets.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perIP)
}

func (l *Limiter) ipLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) >= l.config.IdleTTL {
		for k, b := range l.perIP {
			if now.Sub(b.seen) >= l.config.IdleTTL {
				delete(l.perIP, k)
			}
		}
		l.lastCleanup = now
	}

	b, ok := l.perIP[ip]
	if !ok {
		b = &ipBucket{limiter: rate.NewLimiter(l.config.PerIPRate, l.config.PerIPBurst)}
		l.perIP[ip] = b
	}
	b.seen = now
	return b.limiter
}

// Middleware rejects requests over the limit with a 429 problem response.
func Middleware(l *Limiter, class string, trusted []*net.IPNet) func(http.Handler) http.Handler {
	return ClassifiedMiddleware(l, func(*http.Request) string { return class }, trusted)
}

// ClassifiedMiddleware is Middleware with the class chosen per request.
func ClassifiedMiddleware(l *Limiter, classify func(*http.Request) string, trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			if class := classify(r); !l.Allow(ClientIP(r, trusted), class) {
				w.Header().Set("Retry-After", "1")
				problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too Many Requests",
					"RATE_LIMITED", "request rate exceeded for "+class, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the client IP from the request. Forwarding headers are honoured
// only when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, trusted []*net.IPNet) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if !peerTrusted(host, trusted) {
		return host
	}

	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return host
}

func peerTrusted(host string, trusted []*net.IPNet) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
