package player

import "sync"

// executor serialises controller work. The goroutine that finds it idle drains the
// queue; calls made while it is draining (including re-entrant ones) are appended
// and run in order by that goroutine.
type executor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func (e *executor) do(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()
		next()
		e.mu.Lock()
	}
	e.running = false
	e.mu.Unlock()
}
