// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

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
	idle    state = "idle"
	running state = "running"
	done    state = "done"

	start  event = "start"
	finish event = "finish"
	reset  event = "reset"
)

func newMachine(t *testing.T, extra ...Transition[state, event]) *Machine[state, event] {
	t.Helper()
	table := append([]Transition[state, event]{
		{From: idle, Event: start, To: running},
		{From: running, Event: finish, To: done},
		{FromAny: true, Event: reset, To: idle},
	}, extra...)
	m, err := New(idle, table)
	require.NoError(t, err)
	return m
}

func TestMachine_Fire(t *testing.T) {
	m := newMachine(t)
	var seen []string
	m.OnTransition(func(from, to state, ev event) {
		seen = append(seen, string(from)+">"+string(to))
	})

	to, err := m.Fire(context.Background(), start)
	require.NoError(t, err)
	assert.Equal(t, running, to)

	_, err = m.Fire(context.Background(), start)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, running, m.State())

	_, err = m.Fire(context.Background(), finish)
	require.NoError(t, err)
	assert.Equal(t, []string{"idle>running", "running>done"}, seen)
}

func TestMachine_Wildcard(t *testing.T) {
	m := newMachine(t)
	for _, ev := range []event{start, finish} {
		_, err := m.Fire(context.Background(), ev)
		require.NoError(t, err)
	}
	assert.True(t, m.Can(reset))
	to, err := m.Fire(context.Background(), reset)
	require.NoError(t, err)
	assert.Equal(t, idle, to)
}

func TestMachine_GuardRejects(t *testing.T) {
	blocked := errors.New("blocked")
	m, err := New(idle, []Transition[state, event]{
		{From: idle, Event: start, To: running, Guard: func(context.Context, state, event) error { return blocked }},
	})
	require.NoError(t, err)

	_, err = m.Fire(context.Background(), start)
	assert.ErrorIs(t, err, blocked)
	assert.Equal(t, idle, m.State())
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(idle, []Transition[state, event]{
		{From: idle, Event: start, To: running},
		{From: idle, Event: start, To: done},
	})
	assert.Error(t, err)

	_, err = New(idle, []Transition[state, event]{
		{FromAny: true, Event: reset, To: idle},
		{FromAny: true, Event: reset, To: done},
	})
	assert.Error(t, err)
}
