package proxy

import (
	"bufio"
	"bytes"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/grafov/m3u8"
)

// uriAttr matches the quoted URI attribute of EXT-X-KEY, EXT-X-MAP, EXT-X-MEDIA,
// EXT-X-I-FRAME-STREAM-INF and friends.
var uriAttr = regexp.MustCompile(`URI="([^"]*)"`)

// IsManifest reports whether an upstream response carries an HLS playlist.
func IsManifest(contentType string, u *url.URL) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.Contains(mt, "mpegurl") {
		return true
	}
	return u != nil && strings.HasSuffix(strings.ToLower(u.Path), ".m3u8")
}

// Rewriter maps playlist URIs onto the proxy endpoint.
type Rewriter struct {
	// Endpoint is the proxy path clients call, e.g. "/proxy".
	Endpoint string
	// Base is the playlist's own URL; relative URIs resolve against it.
	Base *url.URL
}

// URI returns the proxied form of ref. References that do not resolve to
// http(s), such as data: or skd: key URIs, are returned unchanged.
func (rw Rewriter) URI(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	abs := parsed
	if rw.Base != nil {
		abs = rw.Base.ResolveReference(parsed)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ref
	}
	return rw.Endpoint + "?url=" + url.QueryEscape(abs.String())
}

// Manifest rewrites every URI in body. It decodes with m3u8 first and falls back
// to line rewriting when the playlist does not strictly decode; decoded reports
// which ran.
func (rw Rewriter) Manifest(body []byte) (out []byte, decoded bool) {
	if b, ok := rw.decoded(body); ok {
		return b, true
	}
	return rw.Lines(body), false
}

func (rw Rewriter) decoded(body []byte) ([]byte, bool) {
	if !bytes.HasPrefix(bytes.TrimLeft(body, "\ufeff \t\r\n"), []byte("#EXTM3U")) {
		return nil, false
	}
	p, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), true)
	if err != nil {
		return nil, false
	}
	switch listType {
	case m3u8.MASTER:
		mp, ok := p.(*m3u8.MasterPlaylist)
		if !ok {
			return nil, false
		}
		// Renditions are shared by every variant of their group.
		alts := map[*m3u8.Alternative]bool{}
		for _, v := range mp.Variants {
			if v == nil {
				continue
			}
			v.URI = rw.URI(v.URI)
			for _, alt := range v.Alternatives {
				if alt == nil || alt.URI == "" || alts[alt] {
					continue
				}
				alts[alt] = true
				alt.URI = rw.URI(alt.URI)
			}
		}
		mp.ResetCache()
		return mp.Encode().Bytes(), true
	case m3u8.MEDIA:
		pl, ok := p.(*m3u8.MediaPlaylist)
		if !ok {
			return nil, false
		}
		// The decoder shares Key and Map values between the playlist and its
		// segments; each is rewritten once.
		keys := map[*m3u8.Key]bool{}
		maps := map[*m3u8.Map]bool{}
		rw.key(pl.Key, keys)
		rw.mapping(pl.Map, maps)
		for _, seg := range pl.Segments {
			if seg == nil {
				continue
			}
			seg.URI = rw.URI(seg.URI)
			rw.key(seg.Key, keys)
			rw.mapping(seg.Map, maps)
		}
		pl.ResetCache()
		return pl.Encode().Bytes(), true
	}
	return nil, false
}

func (rw Rewriter) key(k *m3u8.Key, seen map[*m3u8.Key]bool) {
	if k == nil || k.URI == "" || seen[k] {
		return
	}
	seen[k] = true
	k.URI = rw.URI(k.URI)
}

func (rw Rewriter) mapping(m *m3u8.Map, seen map[*m3u8.Map]bool) {
	if m == nil || m.URI == "" || seen[m] {
		return
	}
	seen[m] = true
	m.URI = rw.URI(m.URI)
}

// Lines rewrites URI lines and URI="..." tag attributes, leaving everything else
// byte for byte.
func (rw Rewriter) Lines(body []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(body) + len(body)/2)

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), len(body)+1)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			out.WriteString(line)
		case strings.HasPrefix(trimmed, "#"):
			out.WriteString(uriAttr.ReplaceAllStringFunc(line, func(m string) string {
				ref := uriAttr.FindStringSubmatch(m)[1]
				return `URI="` + rw.URI(ref) + `"`
			}))
		default:
			out.WriteString(rw.URI(trimmed))
		}
		out.WriteByte('\n')
	}
	return out.Bytes()
}
