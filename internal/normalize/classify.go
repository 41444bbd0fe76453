package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// Classification is an advisory, human-readable stream type label.
type Classification string

const (
	HLS          Classification = "HLS Stream"
	MP4          Classification = "MP4 Video"
	MKV          Classification = "MKV Video"
	AVI          Classification = "AVI Video"
	MOV          Classification = "MOV Video"
	WebM         Classification = "WebM Video"
	Pixeldrain   Classification = "Pixeldrain"
	CDN          Classification = "CDN Stream"
	CloudStorage Classification = "Cloud Storage"
	Secure       Classification = "Secure Stream"
	StreamLink   Classification = "Stream Link"
	DirectLink   Classification = "Direct Link"
)

// Rule is one (predicate, label) pair. Rules are evaluated in order; the first match wins.
// lower is the lower-cased URL, original the URL as produced by normalization.
type Rule struct {
	Name  string
	Label Classification
	Match func(lower, original string) bool
}

var cdnHostFragments = []string{
	"cloudfront.net",
	"akamaized.net",
	"akamaihd.net",
	"fastly.net",
	"b-cdn.net",
	"bunnycdn",
	"cdn77",
	"llnwd.net",
	"edgecastcdn.net",
	"jsdelivr.net",
}

var storageHostSuffixes = []string{
	"amazonaws.com",
	"storage.googleapis.com",
	"blob.core.windows.net",
	"r2.dev",
	"r2.cloudflarestorage.com",
	"digitaloceanspaces.com",
	"backblazeb2.com",
	"wasabisys.com",
}

var authParams = []string{"token=", "key=", "secret=", "signature="}

func videoExt(ext string) func(lower, _ string) bool {
	re := regexp.MustCompile(`\.` + ext + `(?:$|[?#&/])`)
	return func(lower, _ string) bool { return re.MatchString(lower) }
}

func hostOf(lower string) string {
	u, err := url.Parse(lower)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

var rules = []Rule{
	{Name: "hls", Label: HLS, Match: func(lower, _ string) bool {
		return strings.Contains(lower, ".m3u8") || strings.Contains(lower, "hls")
	}},
	{Name: "mp4", Label: MP4, Match: videoExt("mp4")},
	{Name: "mkv", Label: MKV, Match: videoExt("mkv")},
	{Name: "avi", Label: AVI, Match: videoExt("avi")},
	{Name: "mov", Label: MOV, Match: videoExt("mov")},
	{Name: "webm", Label: WebM, Match: videoExt("webm")},
	{Name: "pixeldrain", Label: Pixeldrain, Match: func(lower, _ string) bool {
		return strings.Contains(lower, "pixeldrain")
	}},
	{Name: "cdn-host", Label: CDN, Match: func(lower, _ string) bool {
		host := hostOf(lower)
		for _, frag := range cdnHostFragments {
			if strings.Contains(host, frag) {
				return true
			}
		}
		return false
	}},
	{Name: "object-storage", Label: CloudStorage, Match: func(lower, _ string) bool {
		host := hostOf(lower)
		for _, suffix := range storageHostSuffixes {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}
		return false
	}},
	{Name: "auth-param", Label: Secure, Match: func(_, original string) bool {
		for _, p := range authParams {
			if strings.Contains(original, p) {
				return true
			}
		}
		return false
	}},
	{Name: "generic-stream", Label: StreamLink, Match: func(lower, _ string) bool {
		return strings.Contains(lower, "cdn") || strings.Contains(lower, "stream")
	}},
}

// Rules returns a copy of the ordered classification table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify labels u using the first matching rule, defaulting to DirectLink.
func Classify(u string) Classification {
	lower := strings.ToLower(u)
	for _, r := range rules {
		if r.Match(lower, u) {
			return r.Label
		}
	}
	return DirectLink
}
