package player

import (
	"fmt"
	"math"
	"time"

	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
)

// EngineKind is how a canonical URL is handed to the playback element.
type EngineKind string

const (
	// EngineAdaptive feeds the URL to an adaptive-streaming engine attached to the element.
	EngineAdaptive EngineKind = "adaptive"
	// EngineDirect assigns the URL as the element's source.
	EngineDirect EngineKind = "direct"
)

// Capabilities are the runtime flags engine selection depends on.
type Capabilities struct {
	AdaptiveSupported bool
}

// SelectEngine picks the adaptive engine for HLS URLs whenever the runtime supports it,
// even where the element could play HLS natively. Everything else is assigned directly.
func SelectEngine(res normalize.Result, caps Capabilities) EngineKind {
	if res.IsHLS() && caps.AdaptiveSupported {
		return EngineAdaptive
	}
	return EngineDirect
}

// Speeds is the ordered playback-rate cycle.
var Speeds = []float64{1, 1.25, 1.5, 2, 0.5}

const (
	// IdleTimeout is how long pointer inactivity lasts before the idle presentation.
	IdleTimeout = 3 * time.Second
	// AutoSubmitDelay is the pause between a ?url= boot and the automatic submit.
	AutoSubmitDelay = 500 * time.Millisecond
)

// knownDuration reports whether d is usable for seeking.
func knownDuration(d float64) bool {
	return !math.IsNaN(d) && !math.IsInf(d, 0) && d > 0
}

// seekTarget maps fraction onto [0, duration).
func seekTarget(fraction, duration float64) (float64, bool) {
	if !knownDuration(duration) || math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return 0, false
	}
	t := fraction * duration
	if t < 0 {
		t = 0
	}
	if t >= duration {
		t = math.Nextafter(duration, 0)
	}
	return t, true
}

// FormatClock renders seconds as mm:ss; unknown values render as 00:00.
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return "00:00"
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
