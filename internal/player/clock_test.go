package player

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClock_FiresInDeadlineOrder(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewMockClock(start)

	var fired []string
	clk.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	clk.AfterFunc(time.Second, func() {
		fired = append(fired, "a")
		clk.AfterFunc(500*time.Millisecond, func() { fired = append(fired, "a2") })
	})
	clk.AfterFunc(5*time.Second, func() { fired = append(fired, "late") })

	clk.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "a2", "b"}, fired)
	assert.Equal(t, start.Add(2*time.Second), clk.Now())
	assert.Equal(t, 1, clk.Pending())
}

func TestMockClock_Stop(t *testing.T) {
	clk := NewMockClock(time.Unix(0, 0))
	called := false
	tm := clk.AfterFunc(time.Second, func() { called = true })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	clk.Advance(time.Hour)
	assert.False(t, called)
	assert.Zero(t, clk.Pending())
}

func TestRealClock_AfterFunc(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	RealClock{}.AfterFunc(time.Millisecond, wg.Done)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.Fail(t, "timer did not fire")
	}
}
