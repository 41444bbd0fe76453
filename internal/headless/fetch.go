package headless

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Guard vets upstream URLs before they are fetched.
type Guard interface {
	Check(ctx context.Context, u *url.URL) (*url.URL, error)
}

// StatusError is a non-success upstream response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned http %d", e.StatusCode)
}

var errNotHTTP = errors.New("not an http(s) url")

type fetcher struct {
	client    *http.Client
	guard     Guard
	userAgent string
}

func (f fetcher) get(ctx context.Context, raw string, rangeBytes int64) (*http.Response, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errNotHTTP
	}
	if f.guard != nil {
		if u, err = f.guard.Check(ctx, u); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if rangeBytes > 0 {
		req.Header.Set("Range", "bytes=0-"+strconv.FormatInt(rangeBytes-1, 10))
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// totalLength reads the full resource size from Content-Range, falling back to
// Content-Length. It returns -1 when unknown.
func totalLength(resp *http.Response) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if _, total, ok := strings.Cut(cr, "/"); ok && total != "*" {
			if n, err := strconv.ParseInt(total, 10, 64); err == nil {
				return n
			}
		}
	}
	return resp.ContentLength
}
