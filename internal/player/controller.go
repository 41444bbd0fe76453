// Package player implements the playback controller: it owns one engine handle,
// drives the lifecycle state machine and renders state into a View.
package player

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Johndevils/Arsynox-streaming/internal/fsm"
	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/metrics"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

// Options wires a Controller to its collaborators. Media is required.
type Options struct {
	Media      Media
	Engines    EngineFactory
	View       View
	Display    Display
	Reporter   Reporter
	Clock      Clock
	Normalizer *normalize.Normalizer
	Logger     *zerolog.Logger

	// Source tags relay events ("web", "probe", ...).
	Source string

	IdleTimeout     time.Duration
	AutoSubmitDelay time.Duration
}

// Controller is one playback session owner. All work runs serially; methods may be
// called from any goroutine and return once the work is queued or done.
type Controller struct {
	media      Media
	engines    EngineFactory
	view       View
	display    Display
	reporter   Reporter
	clock      Clock
	normalizer *normalize.Normalizer
	logger     zerolog.Logger
	source     string

	idleTimeout     time.Duration
	autoSubmitDelay time.Duration

	exec    executor
	machine *fsm.Machine[State, Event]

	// Fields below are owned by the executor.
	gen             uint64
	sessionID       string
	current         normalize.Result
	kind            EngineKind
	engine          Engine
	speedIdx        int
	volume          float64
	lastVolume      float64
	muted           bool
	idle            bool
	idleSeq         uint64
	idleTimer       Timer
	bootTimer       Timer
	buffering       bool
	autoplayBlocked bool
	notice          Notice
	lastRelay       relay.Outcome
	created         int
	released        int
	closed          bool

	snapMu    sync.RWMutex
	snap      Snapshot
	observers map[int]func(Snapshot)
	nextObs   int
}

// New builds a controller in the idle state.
func New(opts Options) (*Controller, error) {
	if opts.Media == nil {
		return nil, ErrNoMedia
	}
	c := &Controller{
		media:           opts.Media,
		engines:         opts.Engines,
		view:            opts.View,
		display:         opts.Display,
		reporter:        opts.Reporter,
		clock:           opts.Clock,
		normalizer:      opts.Normalizer,
		source:          opts.Source,
		idleTimeout:     opts.IdleTimeout,
		autoSubmitDelay: opts.AutoSubmitDelay,
		volume:          1,
		lastVolume:      1,
		observers:       map[int]func(Snapshot){},
	}
	if c.view == nil {
		c.view = nopView{}
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}
	if c.normalizer == nil {
		c.normalizer = &normalize.Normalizer{}
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = IdleTimeout
	}
	if c.autoSubmitDelay <= 0 {
		c.autoSubmitDelay = AutoSubmitDelay
	}
	if c.source == "" {
		c.source = "player"
	}
	if opts.Logger != nil {
		c.logger = opts.Logger.With().Str(alog.FieldComponent, "player").Logger()
	} else {
		c.logger = alog.WithComponent("player")
	}

	m, err := fsm.New(StateIdle, Transitions())
	if err != nil {
		return nil, err
	}
	m.OnTransition(c.onTransition)
	c.machine = m
	c.publish()
	return c, nil
}

// Snapshot returns a copy of the last published state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Subscribe registers fn to receive every published snapshot. fn runs on the
// executor goroutine and must not block.
func (c *Controller) Subscribe(fn func(Snapshot)) (cancel func()) {
	c.snapMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.snapMu.Unlock()
	return func() {
		c.snapMu.Lock()
		delete(c.observers, id)
		c.snapMu.Unlock()
	}
}

// MediaEvents returns callbacks a Media implementation reports element events through.
func (c *Controller) MediaEvents() MediaEvents {
	return MediaEvents{
		MetadataLoaded: c.HandleMetadataLoaded,
		Playing:        c.HandlePlaying,
		Paused:         c.HandlePause,
		Waiting:        c.HandleWaiting,
		TimeUpdate:     c.HandleTimeUpdate,
		Error:          c.HandleMediaError,
	}
}

func (c *Controller) run(fn func()) {
	c.exec.do(func() {
		fn()
		c.publish()
	})
}

func (c *Controller) publish() {
	s := Snapshot{
		State:           c.machine.State(),
		SessionID:       c.sessionID,
		URL:             c.current.URL,
		Type:            c.current.Type,
		Engine:          c.kind,
		Rate:            Speeds[c.speedIdx],
		Volume:          c.volume,
		Muted:           c.muted,
		Idle:            c.idle,
		Buffering:       c.buffering,
		AutoplayBlocked: c.autoplayBlocked,
		Notice:          c.notice,
		LastRelay:       c.lastRelay,
		HandlesCreated:  c.created,
		HandlesReleased: c.released,
		Closed:          c.closed,
	}
	if c.display != nil {
		s.Fullscreen = c.display.Fullscreen()
		s.PiP = c.display.PictureInPicture()
	}

	c.snapMu.Lock()
	c.snap = s
	obs := make([]func(Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		obs = append(obs, fn)
	}
	c.snapMu.Unlock()

	for _, fn := range obs {
		fn(s)
	}
}

func (c *Controller) fire(ev Event) bool {
	if _, err := c.machine.Fire(context.Background(), ev); err != nil {
		c.logger.Debug().
			Str(alog.FieldEvent, "player.transition_ignored").
			Str("trigger", string(ev)).
			Err(err).
			Msg("transition not applicable")
		return false
	}
	return true
}

func (c *Controller) onTransition(from, to State, ev Event) {
	metrics.RecordPlayerTransition(string(from), string(to))
	c.logger.Debug().
		Str(alog.FieldEvent, "player.transition").
		Str(alog.FieldSessionID, c.sessionID).
		Str(alog.FieldOldState, string(from)).
		Str(alog.FieldNewState, string(to)).
		Str("trigger", string(ev)).
		Msg("state changed")
}

func (c *Controller) notify(kind NoticeKind, msg string) {
	c.notice = Notice{Kind: kind, Message: msg}
	c.view.Notify(c.notice)
}

func (c *Controller) setBuffering(on bool) {
	c.buffering = on
	c.view.SetBuffering(on)
}

func (c *Controller) capabilities() Capabilities {
	var caps Capabilities
	if c.engines != nil {
		caps.AdaptiveSupported = c.engines.Supported()
	}
	return caps
}

// Submit starts a new playback attempt for raw, releasing the current handle first.
func (c *Controller) Submit(raw string) {
	c.run(func() { c.submit(raw) })
}

func (c *Controller) submit(raw string) {
	if c.closed {
		return
	}
	if strings.TrimSpace(raw) == "" {
		c.notify(NoticeHint, "Enter a stream URL to play.")
		return
	}
	c.stopBootTimer()
	c.release()

	res := c.normalizer.Normalize(raw)
	metrics.RecordClassification(string(res.Type), res.Degraded)
	kind := SelectEngine(res, c.capabilities())

	c.gen++
	gen := c.gen
	c.sessionID = uuid.NewString()
	c.current = res
	c.kind = kind
	c.autoplayBlocked = false
	c.notice = Notice{}
	c.view.SetInput(res.URL)

	c.fire(EventSubmit)
	c.setBuffering(true)
	c.view.SetPlaying(false)

	c.logger.Info().
		Str(alog.FieldEvent, "player.submit").
		Str(alog.FieldSessionID, c.sessionID).
		Str(alog.FieldStreamURL, res.URL).
		Str(alog.FieldStreamType, string(res.Type)).
		Str(alog.FieldEngine, string(kind)).
		Bool("degraded", res.Degraded).
		Msg("loading stream")

	switch kind {
	case EngineAdaptive:
		eng := c.engines.New(EngineEvents{
			ManifestParsed: func() {
				c.run(func() {
					if c.stale(gen, "manifest_parsed") {
						return
					}
					c.onReady()
				})
			},
			Error: func(e EngineError) {
				c.run(func() {
					if c.stale(gen, "engine_error") {
						return
					}
					c.onEngineError(e)
				})
			},
		})
		c.engine = eng
		c.created++
		eng.AttachMedia(c.media)
		eng.LoadSource(res.URL)
	default:
		c.media.SetSource(res.URL)
	}
	c.media.SetPlaybackRate(Speeds[c.speedIdx])

	c.report(gen, res)
}

func (c *Controller) stale(gen uint64, what string) bool {
	if gen == c.gen && !c.closed {
		return false
	}
	c.logger.Debug().
		Str(alog.FieldEvent, "player.stale_event").
		Str("kind", what).
		Uint64(alog.FieldHandle, gen).
		Msg("dropping event from released handle")
	return true
}

// release synchronously destroys the current engine handle and cancels timers.
func (c *Controller) release() {
	c.cancelIdle()
	if c.engine != nil {
		c.engine.Destroy()
		c.engine = nil
		c.released++
	}
	if c.kind == EngineDirect && c.current.URL != "" {
		c.media.SetSource("")
	}
}

func (c *Controller) report(gen uint64, res normalize.Result) {
	if c.reporter == nil {
		return
	}
	ev := relay.Event{
		ID:        uuid.NewString(),
		URL:       res.URL,
		Type:      string(res.Type),
		Timestamp: c.clock.Now().UTC(),
		Source:    c.source,
	}
	c.reporter.Report(ev, func(o relay.Outcome) {
		c.run(func() { c.onRelayOutcome(gen, o) })
	})
}

func (c *Controller) onRelayOutcome(gen uint64, o relay.Outcome) {
	if gen != c.gen {
		return
	}
	c.lastRelay = o
	switch o {
	case relay.OutcomeLogged:
		c.notify(NoticeRelay, "Stream logged.")
	case relay.OutcomeDisabled:
		c.notify(NoticeRelay, "Logging disabled.")
	default:
		c.notify(NoticeRelay, "Logging failed; playback is unaffected.")
	}
}

func (c *Controller) onReady() {
	if c.machine.State() != StateLoading {
		return
	}
	c.fire(EventReady)
	c.setBuffering(false)
	c.startPlayback()
}

// startPlayback attempts Play and maps a refusal to the paused presentation.
func (c *Controller) startPlayback() {
	err := c.media.Play()
	switch {
	case err == nil:
		c.autoplayBlocked = false
		c.onPlaying()
	case errors.Is(err, ErrAutoplayBlocked):
		c.autoplayBlocked = true
		c.notify(NoticeHint, "Click play to start playback.")
		c.onPause()
	default:
		c.fail(err.Error())
	}
}

func (c *Controller) onEngineError(e EngineError) {
	if !e.Fatal {
		c.logger.Debug().
			Str(alog.FieldEvent, "player.engine_warning").
			Str("details", e.Details).
			Msg("non-fatal engine error ignored")
		return
	}
	c.fail(e.Details)
}

func (c *Controller) fail(details string) {
	if !c.fire(EventFatal) {
		return
	}
	c.setBuffering(false)
	c.cancelIdle()
	c.view.SetPlaying(false)
	c.notify(NoticeError, "Stream Error: "+details)
	c.logger.Warn().
		Str(alog.FieldEvent, "player.fatal").
		Str(alog.FieldSessionID, c.sessionID).
		Str(alog.FieldStreamURL, c.current.URL).
		Str("details", details).
		Msg("playback failed")
}

func (c *Controller) onPlaying() {
	switch c.machine.State() {
	case StateLoading:
		c.fire(EventReady)
	default:
		if !c.fire(EventPlay) {
			return
		}
	}
	c.autoplayBlocked = false
	c.setBuffering(false)
	c.view.SetPlaying(true)
	c.restartIdle()
}

func (c *Controller) onPause() {
	c.fire(EventPause)
	c.view.SetPlaying(false)
	c.cancelIdle()
}

// HandleMetadataLoaded is the element "loadedmetadata" event.
func (c *Controller) HandleMetadataLoaded() {
	c.run(func() {
		if c.closed || c.kind != EngineDirect {
			return
		}
		c.onReady()
	})
}

// HandlePlaying is the element "playing" event.
func (c *Controller) HandlePlaying() {
	c.run(func() {
		if c.closed {
			return
		}
		c.onPlaying()
	})
}

// HandlePause is the element "pause" event.
func (c *Controller) HandlePause() {
	c.run(func() {
		if c.closed {
			return
		}
		c.onPause()
	})
}

// HandleWaiting is the element "waiting" event.
func (c *Controller) HandleWaiting() {
	c.run(func() {
		switch c.machine.State() {
		case StateLoading, StatePlaying:
			c.setBuffering(true)
		}
	})
}

// HandleTimeUpdate is the element "timeupdate" event.
func (c *Controller) HandleTimeUpdate() {
	c.run(func() {
		d := c.media.Duration()
		if math.IsNaN(d) {
			return
		}
		c.view.SetProgress(c.media.CurrentTime(), d)
	})
}

// HandleMediaError is the element "error" event; it is fatal for the current attempt.
func (c *Controller) HandleMediaError(details string) {
	c.run(func() {
		if c.closed {
			return
		}
		c.fail(details)
	})
}

// PointerActivity cancels the idle presentation and, while playing, restarts the timer.
func (c *Controller) PointerActivity() {
	c.run(c.restartIdle)
}

func (c *Controller) restartIdle() {
	c.cancelIdle()
	if c.closed || c.machine.State() != StatePlaying {
		return
	}
	seq := c.idleSeq
	c.idleTimer = c.clock.AfterFunc(c.idleTimeout, func() {
		c.run(func() {
			if seq != c.idleSeq || c.machine.State() != StatePlaying {
				return
			}
			c.idle = true
			c.view.SetIdle(true)
		})
	})
}

func (c *Controller) cancelIdle() {
	c.idleSeq++
	if c.idleTimer != nil {
		c.idleTimer.Stop()
		c.idleTimer = nil
	}
	if c.idle {
		c.idle = false
		c.view.SetIdle(false)
	}
}

// TogglePlay plays a paused element or pauses a playing one.
func (c *Controller) TogglePlay() {
	c.run(func() {
		if c.closed || c.current.URL == "" {
			return
		}
		if c.media.Paused() {
			c.startPlayback()
			return
		}
		c.media.Pause()
		c.onPause()
	})
}

// Seek jumps to fraction of the duration. Unknown or infinite durations make it a no-op.
func (c *Controller) Seek(fraction float64) {
	c.run(func() { c.seek(fraction) })
}

func (c *Controller) seek(fraction float64) {
	t, ok := seekTarget(fraction, c.media.Duration())
	if !ok {
		return
	}
	c.media.SetCurrentTime(t)
}

// SeekDigit seeks to d×10 percent for d in 0..9.
func (c *Controller) SeekDigit(d int) {
	if d < 0 || d > 9 {
		return
	}
	c.Seek(float64(d) / 10)
}

// Skip moves the position by delta seconds; the element enforces its own bounds.
func (c *Controller) Skip(delta time.Duration) {
	c.run(func() {
		c.media.SetCurrentTime(c.media.CurrentTime() + delta.Seconds())
		c.restartIdle()
	})
}

// ChangeSpeed advances to the next playback rate, wrapping.
func (c *Controller) ChangeSpeed() {
	c.run(func() {
		c.speedIdx = (c.speedIdx + 1) % len(Speeds)
		rate := Speeds[c.speedIdx]
		c.media.SetPlaybackRate(rate)
		c.view.SetSpeed(rate)
	})
}

// ToggleMute mutes, or unmutes restoring the last non-zero volume.
func (c *Controller) ToggleMute() {
	c.run(func() {
		if c.muted {
			c.muted = false
			if c.volume == 0 {
				c.volume = c.lastVolume
				c.media.SetVolume(c.volume)
			}
			c.media.SetMuted(false)
			return
		}
		c.muted = true
		c.media.SetMuted(true)
	})
}

// ChangeVolume sets the volume in [0, 1]. Zero implies muted.
func (c *Controller) ChangeVolume(v float64) {
	c.run(func() {
		if math.IsNaN(v) {
			return
		}
		v = math.Max(0, math.Min(1, v))
		c.volume = v
		c.media.SetVolume(v)
		if v == 0 {
			c.muted = true
		} else {
			c.lastVolume = v
			c.muted = false
		}
		c.media.SetMuted(c.muted)
	})
}

// ToggleFullscreen flips fullscreen when a Display is wired.
func (c *Controller) ToggleFullscreen() {
	c.run(func() {
		if c.display == nil {
			return
		}
		if err := c.display.SetFullscreen(!c.display.Fullscreen()); err != nil {
			c.notify(NoticeInfo, "Fullscreen unavailable: "+err.Error())
		}
	})
}

// TogglePiP flips picture-in-picture when a Display is wired.
func (c *Controller) TogglePiP() {
	c.run(func() {
		if c.display == nil {
			return
		}
		if err := c.display.SetPictureInPicture(!c.display.PictureInPicture()); err != nil {
			c.notify(NoticeInfo, "Picture-in-picture unavailable: "+err.Error())
		}
	})
}

// Boot handles the page-load query: a url parameter pre-fills the input and
// submits it after AutoSubmitDelay.
func (c *Controller) Boot(query url.Values) {
	raw := strings.TrimSpace(query.Get("url"))
	if raw == "" {
		return
	}
	c.run(func() {
		if c.closed {
			return
		}
		c.view.SetInput(raw)
		c.stopBootTimer()
		c.bootTimer = c.clock.AfterFunc(c.autoSubmitDelay, func() { c.Submit(raw) })
	})
}

func (c *Controller) stopBootTimer() {
	if c.bootTimer != nil {
		c.bootTimer.Stop()
		c.bootTimer = nil
	}
}

// Close releases the engine handle and stops timers. Later calls are ignored.
func (c *Controller) Close() {
	c.run(func() {
		if c.closed {
			return
		}
		c.stopBootTimer()
		c.release()
		c.gen++
		c.closed = true
		c.setBuffering(false)
		c.logger.Debug().
			Str(alog.FieldEvent, "player.closed").
			Str(alog.FieldSessionID, c.sessionID).
			Int("handles_created", c.created).
			Int("handles_released", c.released).
			Msg("controller closed")
	})
}
