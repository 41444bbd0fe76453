// Package relay forwards stream requests to a chat-bot API for logging and link sharing.
// Delivery is best-effort: callers get an Outcome, never an error that could gate playback.
package relay

import (
	"errors"
	"time"
)

// Event is one stream request as seen by the relay.
type Event struct {
	ID        string    `json:"id,omitempty"`
	URL       string    `json:"url"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// Outcome is the acknowledgement reported back to the caller.
type Outcome string

const (
	OutcomeLogged   Outcome = "logged"
	OutcomeDisabled Outcome = "disabled"
	OutcomeFailed   Outcome = "failed"
)

// Success reports whether the relay acknowledged the event.
func (o Outcome) Success() bool { return o == OutcomeLogged }

var (
	// ErrRelayDisabled is returned when no bot token or chat is configured.
	ErrRelayDisabled = errors.New("relay disabled")
	// ErrQueueFull is returned when the dispatcher backlog is saturated.
	ErrQueueFull = errors.New("relay queue full")
	// ErrDispatcherClosed is returned after Run has exited.
	ErrDispatcherClosed = errors.New("relay dispatcher closed")
)

// OutcomeFor maps a delivery error to its Outcome.
func OutcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeLogged
	case errors.Is(err, ErrRelayDisabled):
		return OutcomeDisabled
	default:
		return OutcomeFailed
	}
}
