// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package lifecycle

import (
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"github.com/tochemey/robokit/errors"
)

// Listener is notified after every successful transition
type Listener func(id string, from, to State)

// IllegalStateTransitionError is returned when a transition is not allowed
type IllegalStateTransitionError struct {
	ID      string
	Current State
	Target  State
}

var _ error = (*IllegalStateTransitionError)(nil)

// Error implements the standard error interface
func (e *IllegalStateTransitionError) Error() string {
	return fmt.Sprintf("(id=%s) %s: %s -> %s", e.ID, errors.ErrIllegalStateTransition, e.Current, e.Target)
}

func (e *IllegalStateTransitionError) Unwrap() error {
	return errors.ErrIllegalStateTransition
}

// Machine tracks the state of a single unit or context.
// Transitions are atomic; listeners run synchronously on the calling goroutine
// in registration order.
type Machine struct {
	id        string
	state     *atomic.Int32
	mu        sync.RWMutex
	listeners []Listener
}

// NewMachine creates a Machine in the Uninitialized state
func NewMachine(id string) *Machine {
	return &Machine{
		id:    id,
		state: atomic.NewInt32(int32(Uninitialized)),
	}
}

// ID returns the identifier passed to listeners
func (m *Machine) ID() string {
	return m.id
}

// State returns the current state
func (m *Machine) State() State {
	return State(m.state.Load())
}

// AddListener registers a listener
func (m *Machine) AddListener(listener Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, listener)
	m.mu.Unlock()
}

// TransitionTo moves the machine to target when allowed from the current state
func (m *Machine) TransitionTo(target State) error {
	for {
		current := m.State()
		if !CanTransition(current, target) {
			return &IllegalStateTransitionError{ID: m.id, Current: current, Target: target}
		}
		if m.state.CompareAndSwap(int32(current), int32(target)) {
			m.notify(current, target)
			return nil
		}
	}
}

// CompareAndTransition moves the machine from -> to only when the current
// state is from. It is used to claim a transition so that concurrent callers
// cannot both run the same hook.
func (m *Machine) CompareAndTransition(from, to State) error {
	if !CanTransition(from, to) {
		return &IllegalStateTransitionError{ID: m.id, Current: from, Target: to}
	}
	if !m.state.CompareAndSwap(int32(from), int32(to)) {
		return &IllegalStateTransitionError{ID: m.id, Current: m.State(), Target: to}
	}
	m.notify(from, to)
	return nil
}

// Fail moves the machine to Failed. It is a no-op when already terminal.
func (m *Machine) Fail() {
	_ = m.TransitionTo(Failed)
}

func (m *Machine) notify(from, to State) {
	m.mu.RLock()
	listeners := m.listeners
	m.mu.RUnlock()
	for _, listener := range listeners {
		listener(m.id, from, to)
	}
}
