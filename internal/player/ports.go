package player

import (
	"errors"

	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

// ErrAutoplayBlocked is returned by Media.Play when the runtime refuses unattended playback.
var ErrAutoplayBlocked = errors.New("autoplay blocked")

// ErrNoMedia is returned by New when no playback element is supplied.
var ErrNoMedia = errors.New("player: media element is required")

// Media is the playback element. Duration reports NaN or +Inf while unknown or live.
type Media interface {
	SetSource(url string)
	Play() error
	Pause()
	Paused() bool
	CurrentTime() float64
	SetCurrentTime(seconds float64)
	Duration() float64
	SetPlaybackRate(rate float64)
	SetMuted(muted bool)
	SetVolume(volume float64)
}

// MediaEvents are the element callbacks a Media implementation reports through.
type MediaEvents struct {
	MetadataLoaded func()
	Playing        func()
	Paused         func()
	Waiting        func()
	TimeUpdate     func()
	Error          func(details string)
}

// EngineError is an error emitted by the adaptive engine.
type EngineError struct {
	Fatal   bool
	Details string
}

// EngineEvents are the lifecycle callbacks an Engine reports through.
type EngineEvents struct {
	ManifestParsed func()
	Error          func(EngineError)
}

// Engine is one adaptive-streaming engine handle.
type Engine interface {
	LoadSource(url string)
	AttachMedia(m Media)
	Destroy()
}

// EngineFactory creates engine handles bound to a set of callbacks.
type EngineFactory interface {
	Supported() bool
	New(events EngineEvents) Engine
}

// NoticeKind classifies a transient user notification.
type NoticeKind string

const (
	NoticeInfo  NoticeKind = "info"
	NoticeHint  NoticeKind = "hint"
	NoticeError NoticeKind = "error"
	NoticeRelay NoticeKind = "relay"
)

// Notice is a transient message for the user. It never blocks interaction.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// View renders controller state.
type View interface {
	SetBuffering(on bool)
	SetPlaying(playing bool)
	SetIdle(idle bool)
	SetProgress(current, duration float64)
	SetSpeed(rate float64)
	SetInput(url string)
	Notify(n Notice)
}

// Display toggles presentation modes. It is optional.
type Display interface {
	Fullscreen() bool
	SetFullscreen(on bool) error
	PictureInPicture() bool
	SetPictureInPicture(on bool) error
}

// Reporter receives stream requests. Report must not block; done may run on any goroutine.
type Reporter interface {
	Report(ev relay.Event, done func(relay.Outcome))
}

type nopView struct{}

func (nopView) SetBuffering(bool)            {}
func (nopView) SetPlaying(bool)              {}
func (nopView) SetIdle(bool)                 {}
func (nopView) SetProgress(float64, float64) {}
func (nopView) SetSpeed(float64)             {}
func (nopView) SetInput(string)              {}
func (nopView) Notify(Notice)                {}
