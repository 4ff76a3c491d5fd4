// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small table-driven state machine runner.
//
// A Machine is not safe for concurrent use. It is meant to be owned by a
// single goroutine (the viewer event loop), which serializes every Fire.
package fsm

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when no edge matches the current state
// and event.
var ErrInvalidTransition = errors.New("fsm: invalid transition")

// Transition describes a single edge in the FSM. An edge with FromAny set
// matches every state that has no specific edge for the event.
// Guard may reject the transition; Action performs side-effects.
type Transition[S ~string, E ~string] struct {
	From    S
	FromAny bool
	Event   E
	To      S
	Guard   func(ctx context.Context, from S, event E) error
	Action  func(ctx context.Context, from S, to S, event E) error
}

// Machine is a small, test-friendly FSM runner.
// It is intentionally strict: unknown transitions are errors.
type Machine[S ~string, E ~string] struct {
	state    S
	index    map[string]Transition[S, E]
	wildcard map[E]Transition[S, E]
	observer func(from, to S, event E)
}

func New[S ~string, E ~string](initial S, transitions []Transition[S, E]) (*Machine[S, E], error) {
	idx := make(map[string]Transition[S, E], len(transitions))
	wild := make(map[E]Transition[S, E])
	for _, t := range transitions {
		if t.FromAny {
			if _, exists := wild[t.Event]; exists {
				return nil, fmt.Errorf("duplicate wildcard transition: * -> %s", t.Event)
			}
			wild[t.Event] = t
			continue
		}
		k := key(t.From, t.Event)
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t
	}
	return &Machine[S, E]{state: initial, index: idx, wildcard: wild}, nil
}

// OnTransition registers fn to run after every applied transition.
func (m *Machine[S, E]) OnTransition(fn func(from, to S, event E)) {
	m.observer = fn
}

func (m *Machine[S, E]) State() S {
	return m.state
}

// Can reports whether event has an edge out of the current state.
func (m *Machine[S, E]) Can(event E) bool {
	_, ok := m.lookup(m.state, event)
	return ok
}

// Fire applies an event. The state only changes when the guard and the
// action both succeed.
func (m *Machine[S, E]) Fire(ctx context.Context, event E) (S, error) {
	from := m.state
	t, ok := m.lookup(from, event)
	if !ok {
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}

	to := t.To
	if t.Guard != nil {
		if err := t.Guard(ctx, from, event); err != nil {
			return from, err
		}
	}
	if t.Action != nil {
		if err := t.Action(ctx, from, to, event); err != nil {
			return from, err
		}
	}

	m.state = to
	if m.observer != nil {
		m.observer(from, to, event)
	}
	return to, nil
}

// Reset forces the machine into state without running any edge.
func (m *Machine[S, E]) Reset(state S) {
	m.state = state
}

func (m *Machine[S, E]) lookup(from S, event E) (Transition[S, E], bool) {
	if t, ok := m.index[key(from, event)]; ok {
		return t, true
	}
	t, ok := m.wildcard[event]
	return t, ok
}

func key[S ~string, E ~string](from S, event E) string {
	return string(from) + "|" + string(event)
}
