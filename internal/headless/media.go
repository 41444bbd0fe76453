package headless

import (
	"context"
	"io"
	"math"
	"mime"
	"sync"

	"github.com/Johndevils/Arsynox-streaming/internal/player"
)

// DefaultRangeBytes is how much of a direct media resource the probe reads.
const DefaultRangeBytes = 64 << 10

// Media is an HTTP-backed player.Media. Setting a source issues a ranged GET and
// reports metadata loaded or an element error through the bound events.
type Media struct {
	ctx        context.Context
	fetch      fetcher
	rangeBytes int64
	report     *Report

	mu      sync.Mutex
	events  player.MediaEvents
	cancel  context.CancelFunc
	src     string
	paused  bool
	current float64
	rate    float64
	muted   bool
	volume  float64
	wg      sync.WaitGroup
}

func newMedia(ctx context.Context, f fetcher, rangeBytes int64, report *Report) *Media {
	if rangeBytes <= 0 {
		rangeBytes = DefaultRangeBytes
	}
	return &Media{ctx: ctx, fetch: f, rangeBytes: rangeBytes, report: report, paused: true, rate: 1, volume: 1}
}

// Bind sets the callbacks element events are reported through.
func (m *Media) Bind(ev player.MediaEvents) {
	m.mu.Lock()
	m.events = ev
	m.mu.Unlock()
}

func (m *Media) SetSource(src string) {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.src = src
	m.current = 0
	m.mu.Unlock()

	if src == "" {
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.load(ctx, src)
	}()
}

func (m *Media) load(ctx context.Context, src string) {
	resp, err := m.fetch.get(ctx, src, m.rangeBytes)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.report.fetchError(err)
		m.emitError(describeFetchError(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, m.rangeBytes))
	if err != nil && ctx.Err() == nil {
		m.emitError("network error: " + err.Error())
		return
	}
	if n == 0 {
		m.emitError("empty response")
		return
	}

	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	m.report.media(resp.StatusCode, ct, totalLength(resp), n)

	m.mu.Lock()
	cb := m.events.MetadataLoaded
	m.mu.Unlock()
	if cb != nil && ctx.Err() == nil {
		cb()
	}
}

func (m *Media) emitError(details string) {
	m.mu.Lock()
	cb := m.events.Error
	m.mu.Unlock()
	if cb != nil {
		cb(details)
	}
}

// Play never meets an autoplay policy in a headless run.
func (m *Media) Play() error {
	m.mu.Lock()
	m.paused = false
	m.mu.Unlock()
	return nil
}

func (m *Media) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

func (m *Media) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Media) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Media) SetCurrentTime(seconds float64) {
	m.mu.Lock()
	m.current = seconds
	m.mu.Unlock()
}

// Duration is unknown for a probe; only a prefix of the resource is read.
func (m *Media) Duration() float64 { return math.NaN() }

func (m *Media) SetPlaybackRate(rate float64) {
	m.mu.Lock()
	m.rate = rate
	m.mu.Unlock()
}

func (m *Media) SetMuted(muted bool) {
	m.mu.Lock()
	m.muted = muted
	m.mu.Unlock()
}

func (m *Media) SetVolume(volume float64) {
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
}

// wait blocks until in-flight loads finish.
func (m *Media) wait() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
