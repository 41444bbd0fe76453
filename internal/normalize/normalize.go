// Package normalize turns user-supplied stream links into canonical playable URLs
// and labels them with an advisory stream type.
package normalize

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Token normalizes a string token for matching:
// - trims Unicode whitespace + invisible edge characters
// - folds to NFC so composed and decomposed forms compare equal
// - lowercases for case-insensitive comparisons
func Token(s string) string {
	return strings.ToLower(norm.NFC.String(TrimInvisible(s)))
}

// TrimInvisible trims Unicode whitespace and zero-width characters, which pasted
// links often carry, from both ends of s.
func TrimInvisible(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) ||
			r == '\u200B' || // Zero Width Space
			r == '\u200C' || // Zero Width Non-Joiner
			r == '\u200D' || // Zero Width Joiner
			r == '\uFEFF' // Zero Width Non-Breaking Space (BOM)
	})
}

// maxDecodePasses bounds the unescape loop; real inputs settle in two or three.
const maxDecodePasses = 8

// Result is the outcome of normalizing one raw input.
type Result struct {
	Input     string         `json:"input"`
	URL       string         `json:"url"`
	Type      Classification `json:"type"`
	Rewritten bool           `json:"rewritten"`
	Resolved  bool           `json:"resolved"`
	Degraded  bool           `json:"degraded,omitempty"`
}

// IsHLS reports whether the URL was classified as an HLS manifest.
func (r Result) IsHLS() bool { return r.Type == HLS }

// Normalizer resolves relative inputs against Base. A nil Base leaves relative inputs degraded.
type Normalizer struct {
	Base *url.URL
}

// New parses base and returns a Normalizer bound to it.
func New(base string) (*Normalizer, error) {
	if strings.TrimSpace(base) == "" {
		return &Normalizer{}, nil
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	return &Normalizer{Base: u}, nil
}

// Stream normalizes raw against base.
func Stream(raw string, base *url.URL) Result {
	return (&Normalizer{Base: base}).Normalize(raw)
}

// Normalize never fails: inputs it cannot make sense of come back unchanged as a degraded Direct Link.
func (n *Normalizer) Normalize(raw string) Result {
	degraded := Result{Input: raw, URL: raw, Type: DirectLink, Degraded: true}

	s := TrimInvisible(raw)
	if s == "" {
		return degraded
	}

	s = decode(s)

	resolved := false
	if !hasHTTPScheme(s) {
		ref, err := url.Parse(s)
		if err != nil {
			return degraded
		}
		switch {
		case ref.IsAbs():
			// Non-HTTP absolute reference (blob:, data:); hand it to the engine as is.
		case n == nil || n.Base == nil:
			return degraded
		default:
			s = n.Base.ResolveReference(ref).String()
			resolved = true
		}
	}

	s, rewritten := rewriteProvider(s)

	return Result{
		Input:     raw,
		URL:       s,
		Type:      Classify(s),
		Rewritten: rewritten,
		Resolved:  resolved,
	}
}

func decode(s string) string {
	for i := 0; i < maxDecodePasses && strings.Contains(s, "%"); i++ {
		d, err := url.PathUnescape(s)
		if err != nil || d == s {
			break
		}
		s = d
	}
	// A scheme that is still escaped means a malformed escape elsewhere stopped the loop.
	if hasEncodedScheme(s) {
		if d, err := url.PathUnescape(s); err == nil {
			s = d
		} else {
			s = lenientUnescape(s)
		}
	}
	return s
}

func hasHTTPScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func hasEncodedScheme(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http%3a") || strings.HasPrefix(l, "https%3a")
}

// lenientUnescape decodes every valid %XX escape and keeps malformed ones literally.
func lenientUnescape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

type providerRewrite struct {
	host string
	from string
	to   string
}

// Share links that have a direct-file equivalent.
var providerRewrites = []providerRewrite{
	{host: "pixeldrain.com", from: "/u/", to: "/api/file/"},
}

// rewriteProvider only looks before the query or fragment, so URLs carried in
// query values are never touched.
func rewriteProvider(s string) (string, bool) {
	end := strings.IndexAny(s, "?#")
	if end < 0 {
		end = len(s)
	}
	for _, p := range providerRewrites {
		idx := indexFold(s[:end], p.host+p.from)
		if idx < 0 {
			continue
		}
		at := idx + len(p.host)
		return s[:at] + p.to + s[at+len(p.from):], true
	}
	return s, false
}

// indexFold is a case-insensitive strings.Index for ASCII needles that keeps byte offsets into s.
func indexFold(s, needle string) int {
	for i := 0; i+len(needle) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(needle)], needle) {
			return i
		}
	}
	return -1
}
