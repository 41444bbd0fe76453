// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/net/idna"
)

var (
	// ErrOutboundDisabled indicates outbound HTTP(S) access is disabled by policy.
	ErrOutboundDisabled = errors.New("outbound http(s) disabled")
	// ErrOutboundNotAllowed indicates the URL did not match the allowlist.
	ErrOutboundNotAllowed = errors.New("outbound url not allowed")
	// ErrBlockedIP indicates the target resolves to an address the policy never reaches.
	ErrBlockedIP = errors.New("blocked ip")
)

// OutboundAllowlist defines the allowed outbound URL components.
// Empty Schemes means http and https; empty Ports means any port.
type OutboundAllowlist struct {
	Hosts   []string
	CIDRs   []string
	Ports   []int
	Schemes []string
}

// OutboundPolicy defines the outbound access policy.
type OutboundPolicy struct {
	Enabled bool
	// AllowPublic admits any host that resolves only to public unicast addresses.
	// Without it, only allowlisted hosts and CIDRs are reachable.
	AllowPublic bool
	Allow       OutboundAllowlist
	// DenyHosts are refused even when they would otherwise be allowed.
	DenyHosts []string
}

// Resolver looks up host addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// NormalizeHost validates and normalizes a host for comparison.
func NormalizeHost(raw string) (string, error) {
	host := strings.TrimSpace(raw)
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if strings.Contains(host, "://") {
		return "", fmt.Errorf("host must not include scheme: %s", raw)
	}
	if strings.Contains(host, "/") {
		return "", fmt.Errorf("host must not include path: %s", raw)
	}
	if strings.Contains(host, "@") {
		return "", fmt.Errorf("host must not include userinfo: %s", raw)
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	if strings.Contains(host, ":") && net.ParseIP(host) == nil {
		return "", fmt.Errorf("host must not include port: %s", raw)
	}
	if strings.Contains(host, "%") {
		return "", fmt.Errorf("host must not include zone: %s", raw)
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", fmt.Errorf("host is empty")
	}
	if ip := net.ParseIP(host); ip != nil {
		return strings.ToLower(ip.String()), nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("invalid host %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}

// ValidateOutboundURL verifies a URL against the outbound policy using the system
// resolver and returns a normalized URL string.
func ValidateOutboundURL(ctx context.Context, raw string, policy OutboundPolicy) (string, error) {
	u, err := policy.Validate(ctx, raw, net.DefaultResolver)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Validate checks raw against the policy, resolving its host with r.
func (p OutboundPolicy) Validate(ctx context.Context, raw string, r Resolver) (*url.URL, error) {
	if !p.Enabled {
		return nil, ErrOutboundDisabled
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("outbound url empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("missing url scheme")
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing url host")
	}
	if u.User != nil {
		return nil, fmt.Errorf("userinfo not allowed")
	}
	if u.Fragment != "" {
		return nil, fmt.Errorf("fragments not allowed")
	}

	scheme := strings.ToLower(u.Scheme)
	if !schemeAllowed(p.Allow.Schemes, scheme) {
		return nil, fmt.Errorf("scheme %q not allowed", scheme)
	}

	port, err := urlPort(u, scheme)
	if err != nil {
		return nil, err
	}
	if !portAllowed(p.Allow.Ports, port) {
		return nil, fmt.Errorf("port %d not allowed", port)
	}

	host, err := NormalizeHost(u.Hostname())
	if err != nil {
		return nil, err
	}

	denied, err := normalizeHostAllowlist(p.DenyHosts)
	if err != nil {
		return nil, err
	}
	if hostListed(denied, host) {
		return nil, ErrOutboundNotAllowed
	}
	allowedHosts, err := normalizeHostAllowlist(p.Allow.Hosts)
	if err != nil {
		return nil, err
	}
	allowedCIDRs, err := parseCIDRAllowlist(p.Allow.CIDRs)
	if err != nil {
		return nil, err
	}

	ips, err := resolveHostIPs(ctx, r, host)
	if err != nil {
		return nil, err
	}

	hostAllowed := hostListed(allowedHosts, host)
	public := true
	ipAllowed := false
	for _, ip := range ips {
		inCIDR := ipInCIDRs(ip, allowedCIDRs)
		if isBlockedIP(ip) && !inCIDR {
			return nil, fmt.Errorf("%w %s", ErrBlockedIP, ip.String())
		}
		if inCIDR {
			ipAllowed = true
		}
		if ip.IsPrivate() && !inCIDR {
			public = false
		}
	}

	switch {
	case hostAllowed, ipAllowed:
	case p.AllowPublic && public:
	default:
		return nil, ErrOutboundNotAllowed
	}

	u.Scheme = scheme
	u.Host = joinHostPort(host, u.Port())
	return u, nil
}

// CheckIP reports whether a connection to ip may be made under the policy. It backs
// dial-time enforcement, which closes the gap between validation and connect.
func (p OutboundPolicy) CheckIP(ip net.IP) error {
	cidrs, err := parseCIDRAllowlist(p.Allow.CIDRs)
	if err != nil {
		return err
	}
	if ipInCIDRs(ip, cidrs) {
		return nil
	}
	if isBlockedIP(ip) {
		return fmt.Errorf("%w %s", ErrBlockedIP, ip)
	}
	if ip.IsPrivate() && len(p.Allow.Hosts) == 0 {
		return fmt.Errorf("%w %s", ErrBlockedIP, ip)
	}
	return nil
}

// DialControl returns a net.Dialer Control hook enforcing CheckIP on every connect.
func (p OutboundPolicy) DialControl() func(network, address string, c syscall.RawConn) error {
	return func(_, address string, _ syscall.RawConn) error {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return err
		}
		ip := net.ParseIP(host)
		if ip == nil {
			return fmt.Errorf("dial to non-ip address %q", address)
		}
		return p.CheckIP(ip)
	}
}

func schemeAllowed(allowed []string, scheme string) bool {
	if len(allowed) == 0 {
		return scheme == "http" || scheme == "https"
	}
	for _, s := range allowed {
		if strings.EqualFold(strings.TrimSpace(s), scheme) {
			return true
		}
	}
	return false
}

func portAllowed(allowed []int, port int) bool {
	if len(allowed) == 0 {
		return port > 0 && port <= 65535
	}
	for _, p := range allowed {
		if p == port {
			return true
		}
	}
	return false
}

func urlPort(u *url.URL, scheme string) (int, error) {
	if u.Port() == "" {
		switch scheme {
		case "http":
			return 80, nil
		case "https":
			return 443, nil
		default:
			return 0, fmt.Errorf("unknown scheme %q", scheme)
		}
	}
	portStr := u.Port()
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return port, nil
}

func normalizeHostAllowlist(hosts []string) (map[string]struct{}, error) {
	allow := make(map[string]struct{})
	for _, host := range hosts {
		wildcard := strings.HasPrefix(host, "*.")
		normalized, err := NormalizeHost(strings.TrimPrefix(host, "*."))
		if err != nil {
			return nil, err
		}
		if wildcard {
			normalized = "*." + normalized
		}
		allow[normalized] = struct{}{}
	}
	return allow, nil
}

// hostListed matches host exactly or against a "*.suffix" entry.
func hostListed(list map[string]struct{}, host string) bool {
	if _, ok := list[host]; ok {
		return true
	}
	for i := strings.IndexByte(host, '.'); i >= 0; {
		if _, ok := list["*"+host[i:]]; ok {
			return true
		}
		next := strings.IndexByte(host[i+1:], '.')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return false
}

func parseCIDRAllowlist(entries []string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ip, ipnet, err := net.ParseCIDR(entry)
		if err == nil {
			ipnet.IP = ip
			nets = append(nets, ipnet)
			continue
		}
		ip = net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid CIDR or IP: %s", entry)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		nets = append(nets, &net.IPNet{
			IP:   ip,
			Mask: net.CIDRMask(bits, bits),
		})
	}
	return nets, nil
}

// ValidateCIDRs reports the first malformed CIDR or IP entry.
func ValidateCIDRs(entries []string) error {
	_, err := parseCIDRAllowlist(entries)
	return err
}

func resolveHostIPs(ctx context.Context, r Resolver, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []net.IP{ip}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve host %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve host %q: no addresses", host)
	}
	ips := make([]net.IP, 0, len(addrs))
	for _, addr := range addrs {
		if addr.IP != nil {
			ips = append(ips, addr.IP)
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve host %q: no valid addresses", host)
	}
	return ips, nil
}

func isBlockedIP(ip net.IP) bool {
	if ip == nil {
		return true
	}
	return ip.IsLoopback() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast()
}

func ipInCIDRs(ip net.IP, cidrs []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range cidrs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func joinHostPort(host, port string) string {
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}
