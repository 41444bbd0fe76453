// Copyright (c) 2025 Johndevils
// Licensed under the PolyForm Noncommercial License 1.0.0
// This software is restricted to non-commercial use only.

package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

const (
	off state = "off"
	on  state = "on"

	flip  event = "flip"
	reset event = "reset"
)

func table() []Transition[state, event] {
	return []Transition[state, event]{
		{From: off, Event: flip, To: on},
		{From: on, Event: flip, To: off},
		{From: Any, Event: reset, To: off},
	}
}

func TestMachine_Fire(t *testing.T) {
	m := MustNew(off, table())

	got, err := m.Fire(context.Background(), flip)
	require.NoError(t, err)
	assert.Equal(t, on, got)
	assert.Equal(t, on, m.State())

	got, err = m.Fire(context.Background(), reset)
	require.NoError(t, err)
	assert.Equal(t, off, got)
}

func TestMachine_UnknownTransition(t *testing.T) {
	m := MustNew(off, []Transition[state, event]{{From: off, Event: flip, To: on}})
	_, _ = m.Fire(context.Background(), flip)

	cur, err := m.Fire(context.Background(), flip)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, on, cur)
	assert.False(t, m.Can(flip))
}

func TestMachine_ConcreteBeatsWildcard(t *testing.T) {
	m := MustNew(on, []Transition[state, event]{
		{From: Any, Event: reset, To: off},
		{From: on, Event: reset, To: on},
	})
	got, err := m.Fire(context.Background(), reset)
	require.NoError(t, err)
	assert.Equal(t, on, got)
}

func TestMachine_DuplicateRejected(t *testing.T) {
	_, err := New(off, []Transition[state, event]{
		{From: off, Event: flip, To: on},
		{From: off, Event: flip, To: off},
	})
	require.Error(t, err)
}

func TestMachine_GuardBlocks(t *testing.T) {
	blocked := errors.New("blocked")
	m := MustNew(off, []Transition[state, event]{{
		From: off, Event: flip, To: on,
		Guard: func(context.Context, state, event) error { return blocked },
	}})
	cur, err := m.Fire(context.Background(), flip)
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, off, cur)
}

func TestMachine_ObserverSeesEveryTransition(t *testing.T) {
	m := MustNew(off, table())
	var seen []string
	m.OnTransition(func(from, to state, ev event) {
		seen = append(seen, string(from)+">"+string(to))
	})
	_, _ = m.Fire(context.Background(), flip)
	_, _ = m.Fire(context.Background(), flip)
	_, _ = m.Fire(context.Background(), reset)
	assert.Equal(t, []string{"off>on", "on>off", "off>off"}, seen)
}
