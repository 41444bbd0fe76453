// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package net

import (
	"net/url"
	"strings"
)

// sensitiveParams are query keys whose values never reach logs.
var sensitiveParams = []string{"token", "key", "secret", "signature", "sig", "auth", "password", "expires", "policy"}

// SanitizeURL removes user info and redacts credential-like query values for safe logging.
func SanitizeURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	parsedURL.Fragment = ""
	if parsedURL.RawQuery != "" {
		q := parsedURL.Query()
		for k := range q {
			if isSensitiveParam(k) {
				q[k] = []string{"REDACTED"}
			}
		}
		parsedURL.RawQuery = q.Encode()
	}
	return parsedURL.String()
}

func isSensitiveParam(k string) bool {
	k = strings.ToLower(k)
	for _, s := range sensitiveParams {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// ParseDirectHTTPURL validates if a string is a safe, direct HTTP/HTTPS URL.
// It enforces:
//   - Scheme must be "http" or "https"
//   - Host must be non-empty
//   - No embedded User/Password credentials
//
// A fragment is dropped rather than rejected; it never reaches the upstream.
func ParseDirectHTTPURL(s string) (*url.URL, bool) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, false
	}
	if u.Host == "" {
		return nil, false
	}
	if u.User != nil {
		return nil, false
	}
	u.Scheme = scheme
	u.Fragment = ""
	u.RawFragment = ""
	return u, true
}
