package player

import "time"

// SkipStep is the jump applied by the arrow keys and the skip buttons.
const SkipStep = 10 * time.Second

// HandleKey maps a keyboard key (DOM KeyboardEvent.key naming) to a control action.
// It reports whether the key was bound.
func (c *Controller) HandleKey(key string) bool {
	switch key {
	case " ", "Space", "Spacebar":
		c.TogglePlay()
	case "f", "F":
		c.ToggleFullscreen()
	case "m", "M":
		c.ToggleMute()
	case "ArrowLeft":
		c.Skip(-SkipStep)
	case "ArrowRight":
		c.Skip(SkipStep)
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			c.SeekDigit(int(key[0] - '0'))
			return true
		}
		return false
	}
	return true
}
