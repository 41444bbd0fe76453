package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Johndevils/Arsynox-streaming/internal/cache"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
)

const (
	// DefaultDecisionTTL bounds how long a host decision is reused.
	DefaultDecisionTTL = 5 * time.Minute

	decisionAllow = "allow"
	denyPrefix    = "deny:"
)

// HostGuard applies the outbound policy to upstream URLs. Decisions are made per
// scheme/host/port, shared between concurrent lookups and cached for a TTL.
// Transient resolver failures are never cached.
type HostGuard struct {
	policy   netx.OutboundPolicy
	resolver netx.Resolver
	cache    cache.Cache
	ttl      time.Duration
	group    singleflight.Group
}

// NewHostGuard builds a guard. A nil resolver uses net.DefaultResolver; a nil
// cache disables decision caching.
func NewHostGuard(policy netx.OutboundPolicy, resolver netx.Resolver, c cache.Cache, ttl time.Duration) *HostGuard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if ttl <= 0 {
		ttl = DefaultDecisionTTL
	}
	return &HostGuard{policy: policy, resolver: resolver, cache: c, ttl: ttl}
}

// Check returns u with a normalized scheme and host, or an error wrapping
// ErrHostNotAllowed when the policy refuses it.
func (g *HostGuard) Check(ctx context.Context, u *url.URL) (*url.URL, error) {
	if u == nil {
		return nil, fmt.Errorf("%w: empty url", ErrHostNotAllowed)
	}
	if u.User != nil {
		return nil, fmt.Errorf("%w: userinfo not allowed", ErrHostNotAllowed)
	}
	host, err := netx.NormalizeHost(u.Hostname())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHostNotAllowed, err)
	}
	scheme := strings.ToLower(u.Scheme)
	origin := scheme + "://" + joinHostPort(host, u.Port())
	key := "hostpolicy:" + origin

	decision, cached, err := g.decide(ctx, key, origin)
	if err != nil {
		return nil, err
	}
	metrics.RecordHostPolicyDecision(decision == decisionAllow, cached)
	if decision != decisionAllow {
		return nil, fmt.Errorf("%w: %s", ErrHostNotAllowed, strings.TrimPrefix(decision, denyPrefix))
	}

	out := *u
	out.Scheme = scheme
	out.Host = joinHostPort(host, u.Port())
	out.Fragment = ""
	out.RawFragment = ""
	return &out, nil
}

func (g *HostGuard) decide(ctx context.Context, key, origin string) (string, bool, error) {
	if v, ok := g.cache.Get(key); ok {
		if s, ok := v.(string); ok {
			return s, true, nil
		}
	}

	v, err, _ := g.group.Do(key, func() (any, error) {
		_, err := g.policy.Validate(ctx, origin+"/", g.resolver)
		switch {
		case err == nil:
			g.cache.Set(key, decisionAllow, g.ttl)
			return decisionAllow, nil
		case isPolicyRefusal(err):
			d := denyPrefix + err.Error()
			g.cache.Set(key, d, g.ttl)
			return d, nil
		default:
			return "", err
		}
	})
	if err != nil {
		return "", false, fmt.Errorf("host policy lookup: %w", err)
	}
	return v.(string), false, nil
}

// DialControl enforces the address rules at connect time.
func (g *HostGuard) DialControl() func(network, address string, c syscall.RawConn) error {
	return g.policy.DialControl()
}

func isPolicyRefusal(err error) bool {
	if errors.Is(err, netx.ErrOutboundNotAllowed) || errors.Is(err, netx.ErrBlockedIP) || errors.Is(err, netx.ErrOutboundDisabled) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}
	// Remaining Validate errors are about the URL shape (scheme, port), which
	// are stable for a given origin.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func joinHostPort(host, port string) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port == "" {
		return host
	}
	return host + ":" + port
}
