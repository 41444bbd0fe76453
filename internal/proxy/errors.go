// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package proxy

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
)

var (
	// ErrHostNotAllowed means the host policy refused the upstream.
	ErrHostNotAllowed = errors.New("upstream host not allowed")
	// ErrManifestTooLarge means a playlist exceeded the rewrite cap.
	ErrManifestTooLarge = errors.New("manifest too large")
	// ErrTooManyRedirects caps redirect chains.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// ClassifyUpstreamError maps a failed upstream exchange to a short reason label
// for logs. It returns "" when nothing more specific than "error" applies.
// Precedence: policy refusals, then cancellation, then timeouts, then network causes.
func ClassifyUpstreamError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrHostNotAllowed) || errors.Is(err, netx.ErrBlockedIP) || errors.Is(err, netx.ErrOutboundNotAllowed) {
		return "blocked"
	}
	if errors.Is(err, ErrTooManyRedirects) {
		return "redirect_loop"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns"
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return "connect_reset"
	}

	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "connection refused"),
		strings.Contains(s, "connection reset"),
		strings.Contains(s, "broken pipe"):
		return "connect_reset"
	case strings.Contains(s, "tls:"), strings.Contains(s, "x509:"):
		return "tls"
	case strings.Contains(s, "input/output error"), strings.Contains(s, "unexpected eof"):
		return "io_error"
	}
	return ""
}
