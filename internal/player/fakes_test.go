package player

import (
	"errors"
	"math"
	"sync"

	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

type fakeMedia struct {
	mu         sync.Mutex
	src        string
	sources    []string
	paused     bool
	current    float64
	duration   float64
	rate       float64
	muted      bool
	volume     float64
	playErr    error
	playCalls  int
	pauseCalls int
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{paused: true, duration: math.NaN(), rate: 1, volume: 1}
}

func (m *fakeMedia) SetSource(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = url
	m.sources = append(m.sources, url)
	m.paused = true
}

func (m *fakeMedia) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	if m.playErr != nil {
		return m.playErr
	}
	m.paused = false
	return nil
}

func (m *fakeMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	m.paused = true
}

func (m *fakeMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *fakeMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *fakeMedia) SetCurrentTime(s float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

func (m *fakeMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *fakeMedia) SetPlaybackRate(r float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = r
}

func (m *fakeMedia) SetMuted(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = v
}

func (m *fakeMedia) SetVolume(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
}

type fakeEngine struct {
	events    EngineEvents
	source    string
	media     Media
	destroyed bool
}

func (e *fakeEngine) LoadSource(url string) { e.source = url }
func (e *fakeEngine) AttachMedia(m Media)   { e.media = m }
func (e *fakeEngine) Destroy()              { e.destroyed = true }

type fakeEngines struct {
	supported bool
	engines   []*fakeEngine
}

func (f *fakeEngines) Supported() bool { return f.supported }

func (f *fakeEngines) New(ev EngineEvents) Engine {
	e := &fakeEngine{events: ev}
	f.engines = append(f.engines, e)
	return e
}

func (f *fakeEngines) last() *fakeEngine { return f.engines[len(f.engines)-1] }

func (f *fakeEngines) live() int {
	n := 0
	for _, e := range f.engines {
		if !e.destroyed {
			n++
		}
	}
	return n
}

type fakeView struct {
	mu        sync.Mutex
	buffering bool
	playing   bool
	idle      bool
	speed     float64
	input     string
	notices   []Notice
	progress  [2]float64
}

func (v *fakeView) SetBuffering(on bool) { v.mu.Lock(); v.buffering = on; v.mu.Unlock() }
func (v *fakeView) SetPlaying(p bool)    { v.mu.Lock(); v.playing = p; v.mu.Unlock() }
func (v *fakeView) SetIdle(i bool)       { v.mu.Lock(); v.idle = i; v.mu.Unlock() }
func (v *fakeView) SetSpeed(r float64)   { v.mu.Lock(); v.speed = r; v.mu.Unlock() }
func (v *fakeView) SetInput(u string)    { v.mu.Lock(); v.input = u; v.mu.Unlock() }
func (v *fakeView) SetProgress(c, d float64) {
	v.mu.Lock()
	v.progress = [2]float64{c, d}
	v.mu.Unlock()
}
func (v *fakeView) Notify(n Notice) { v.mu.Lock(); v.notices = append(v.notices, n); v.mu.Unlock() }

func (v *fakeView) lastNotice() Notice {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.notices) == 0 {
		return Notice{}
	}
	return v.notices[len(v.notices)-1]
}

type fakeDisplay struct {
	fullscreen bool
	pip        bool
	pipErr     error
}

func (d *fakeDisplay) Fullscreen() bool             { return d.fullscreen }
func (d *fakeDisplay) SetFullscreen(on bool) error  { d.fullscreen = on; return nil }
func (d *fakeDisplay) PictureInPicture() bool       { return d.pip }
func (d *fakeDisplay) SetPictureInPicture(on bool) error {
	if d.pipErr != nil {
		return d.pipErr
	}
	d.pip = on
	return nil
}

type fakeReporter struct {
	events []relay.Event
	dones  []func(relay.Outcome)
}

func (r *fakeReporter) Report(ev relay.Event, done func(relay.Outcome)) {
	r.events = append(r.events, ev)
	r.dones = append(r.dones, done)
}

var errDecode = errors.New("decode failed")
