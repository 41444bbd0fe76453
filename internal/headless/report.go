package headless

import (
	"errors"
	"sync"

	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
)

// MediaInfo describes the prefix of a direct media resource.
type MediaInfo struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	// Length is the full resource size, or -1 when the upstream did not say.
	Length    int64 `json:"length"`
	BytesRead int64 `json:"bytes_read"`
}

// HLSInfo describes the playlists an HLS probe walked.
type HLSInfo struct {
	Variants       int     `json:"variants"`
	Segments       int     `json:"segments"`
	TargetDuration float64 `json:"target_duration"`
	Live           bool    `json:"live"`
}

// Report collects what the probe's media and engines observed.
type Report struct {
	mu     sync.Mutex
	mi     *MediaInfo
	hi     *HLSInfo
	reason string
}

func (r *Report) media(status int, contentType string, length, read int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mi = &MediaInfo{Status: status, ContentType: contentType, Length: length, BytesRead: read}
}

func (r *Report) hls(variants, segments int, target float64, closed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hi = &HLSInfo{Variants: variants, Segments: segments, TargetDuration: target, Live: !closed}
}

func (r *Report) fetchError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reason = fetchReason(err)
}

func (r *Report) snapshot() (*MediaInfo, *HLSInfo, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mi, r.hi, r.reason
}

func fetchReason(err error) string {
	var se *StatusError
	switch {
	case errors.As(err, &se):
		return "http_status"
	case errors.Is(err, errManifestTooLarge):
		return "too_large"
	case errors.Is(err, errNotHTTP):
		return "unsupported_url"
	}
	if reason := proxy.ClassifyUpstreamError(err); reason != "" {
		return reason
	}
	return "error"
}

// describeFetchError is the element error text for a failed direct fetch.
func describeFetchError(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	switch fetchReason(err) {
	case "blocked":
		return "upstream host not allowed"
	case "unsupported_url":
		return "unsupported source"
	case "timeout":
		return "network timeout"
	}
	return "network error"
}
