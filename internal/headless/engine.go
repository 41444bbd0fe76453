package headless

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"sync"

	"github.com/grafov/m3u8"

	"github.com/Johndevils/Arsynox-streaming/internal/player"
)

// DefaultMaxManifestBytes caps playlists the engine reads.
const DefaultMaxManifestBytes = 2 << 20

// Engine error details, named after the adaptive-engine error kinds players show.
const (
	DetailManifestLoad    = "manifestLoadError"
	DetailManifestParsing = "manifestParsingError"
	DetailLevelLoad       = "levelLoadError"
	DetailLevelEmpty      = "levelEmptyError"
)

var errManifestTooLarge = errors.New("manifest too large")

// Engines is an HTTP-backed player.EngineFactory for HLS. Each engine fetches and
// decodes the manifest, follows the first variant of a master playlist and
// reports ManifestParsed once a playable media playlist is found.
type Engines struct {
	ctx      context.Context
	fetch    fetcher
	maxBytes int64
	report   *Report

	wg sync.WaitGroup
}

func newEngines(ctx context.Context, f fetcher, maxBytes int64, report *Report) *Engines {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxManifestBytes
	}
	return &Engines{ctx: ctx, fetch: f, maxBytes: maxBytes, report: report}
}

func (e *Engines) Supported() bool { return true }

func (e *Engines) New(events player.EngineEvents) player.Engine {
	ctx, cancel := context.WithCancel(e.ctx)
	return &engine{owner: e, events: events, ctx: ctx, cancel: cancel}
}

// wait blocks until every engine goroutine has returned.
func (e *Engines) wait() { e.wg.Wait() }

type engine struct {
	owner  *Engines
	events player.EngineEvents
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	media player.Media
}

func (g *engine) AttachMedia(m player.Media) {
	g.mu.Lock()
	g.media = m
	g.mu.Unlock()
}

func (g *engine) LoadSource(src string) {
	g.owner.wg.Add(1)
	go func() {
		defer g.owner.wg.Done()
		g.load(src)
	}()
}

// Destroy stops in-flight loads; no callbacks fire afterwards.
func (g *engine) Destroy() { g.cancel() }

func (g *engine) load(src string) {
	pl, listType, final, err := g.playlist(src)
	if err != nil {
		g.fatal(err, DetailManifestLoad)
		return
	}

	variants := 0
	if listType == m3u8.MASTER {
		master := pl.(*m3u8.MasterPlaylist)
		variant := firstVariant(master)
		if variant == nil {
			g.fail(DetailLevelEmpty)
			return
		}
		variants = len(master.Variants)
		ref, err := url.Parse(variant.URI)
		if err != nil {
			g.fail(DetailLevelLoad)
			return
		}
		pl, listType, _, err = g.playlist(final.ResolveReference(ref).String())
		if err != nil {
			g.fatal(err, DetailLevelLoad)
			return
		}
		if listType != m3u8.MEDIA {
			g.fail(DetailLevelLoad)
			return
		}
	}

	media := pl.(*m3u8.MediaPlaylist)
	segments := int(media.Count())
	if segments == 0 {
		g.fail(DetailLevelEmpty)
		return
	}
	g.owner.report.hls(variants, segments, media.TargetDuration, media.Closed)

	if g.ctx.Err() == nil && g.events.ManifestParsed != nil {
		g.events.ManifestParsed()
	}
}

func (g *engine) playlist(src string) (m3u8.Playlist, m3u8.ListType, *url.URL, error) {
	resp, err := g.owner.fetch.get(g.ctx, src, 0)
	if err != nil {
		return nil, 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.owner.maxBytes+1))
	if err != nil {
		return nil, 0, nil, err
	}
	if int64(len(body)) > g.owner.maxBytes {
		return nil, 0, nil, errManifestTooLarge
	}
	pl, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, 0, nil, &parseError{err: err}
	}
	return pl, listType, resp.Request.URL, nil
}

func (g *engine) fatal(err error, loadDetail string) {
	if g.ctx.Err() != nil {
		return
	}
	var pe *parseError
	if errors.As(err, &pe) {
		g.fail(DetailManifestParsing)
		return
	}
	g.owner.report.fetchError(err)
	g.fail(loadDetail)
}

func (g *engine) fail(details string) {
	if g.ctx.Err() != nil || g.events.Error == nil {
		return
	}
	g.events.Error(player.EngineError{Fatal: true, Details: details})
}

func firstVariant(p *m3u8.MasterPlaylist) *m3u8.Variant {
	for _, v := range p.Variants {
		if v != nil && v.URI != "" && !v.Iframe {
			return v
		}
	}
	return nil
}

type parseError struct{ err error }

func (e *parseError) Error() string { return "decode playlist: " + e.err.Error() }
func (e *parseError) Unwrap() error { return e.err }
