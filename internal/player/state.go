package player

import (
	"github.com/Johndevils/Arsynox-streaming/internal/fsm"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
)

// State is the lifecycle state of the current playback attempt.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateError   State = "error"
)

// Event drives the lifecycle state machine.
type Event string

const (
	EventSubmit Event = "submit"
	EventReady  Event = "ready"
	EventFatal  Event = "fatal"
	EventPlay   Event = "play"
	EventPause  Event = "pause"
)

// Transitions is the lifecycle table. Error is terminal only for the current attempt.
func Transitions() []fsm.Transition[State, Event] {
	return []fsm.Transition[State, Event]{
		{From: fsm.Any, Event: EventSubmit, To: StateLoading},
		{From: StateLoading, Event: EventReady, To: StatePlaying},
		{From: StateLoading, Event: EventFatal, To: StateError},
		{From: StatePlaying, Event: EventFatal, To: StateError},
		{From: StatePaused, Event: EventPlay, To: StatePlaying},
		{From: StatePlaying, Event: EventPlay, To: StatePlaying},
		{From: StatePlaying, Event: EventPause, To: StatePaused},
	}
}

// Snapshot is a read-only copy of the controller's observable state.
type Snapshot struct {
	State           State                    `json:"state"`
	SessionID       string                   `json:"session_id,omitempty"`
	URL             string                   `json:"url,omitempty"`
	Type            normalize.Classification `json:"type,omitempty"`
	Engine          EngineKind               `json:"engine,omitempty"`
	Rate            float64                  `json:"rate"`
	Volume          float64                  `json:"volume"`
	Muted           bool                     `json:"muted"`
	Idle            bool                     `json:"idle"`
	Buffering       bool                     `json:"buffering"`
	Fullscreen      bool                     `json:"fullscreen"`
	PiP             bool                     `json:"pip"`
	AutoplayBlocked bool                     `json:"autoplay_blocked"`
	Notice          Notice                   `json:"notice"`
	LastRelay       relay.Outcome            `json:"last_relay,omitempty"`
	HandlesCreated  int                      `json:"handles_created"`
	HandlesReleased int                      `json:"handles_released"`
	Closed          bool                     `json:"closed"`
}

// LiveHandles is the number of engine handles created and not yet released.
func (s Snapshot) LiveHandles() int {
	return s.HandlesCreated - s.HandlesReleased
}
