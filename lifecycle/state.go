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

// Package lifecycle defines the states shared by units and contexts and the
// edges allowed between them.
package lifecycle

// State is a lifecycle phase
type State int32

const (
	Uninitialized State = iota
	Initialized
	Starting
	Started
	Stopping
	Stopped
	ShuttingDown
	Shutdown
	Failed
)

var names = [...]string{
	Uninitialized: "UNINITIALIZED",
	Initialized:   "INITIALIZED",
	Starting:      "STARTING",
	Started:       "STARTED",
	Stopping:      "STOPPING",
	Stopped:       "STOPPED",
	ShuttingDown:  "SHUTTING_DOWN",
	Shutdown:      "SHUTDOWN",
	Failed:        "FAILED",
}

// String returns the state name
func (s State) String() string {
	if s < 0 || int(s) >= len(names) {
		return "UNKNOWN"
	}
	return names[s]
}

// IsTerminal reports whether no further transition is allowed except the
// release path of a failed unit.
func (s State) IsTerminal() bool {
	return s == Shutdown || s == Failed
}

// IsActive reports whether messages are delivered in that state. Messages
// sent in any other live state wait in the mailbox.
func (s State) IsActive() bool {
	return s == Started
}

// edges lists the allowed targets per source state. Failed is added to every
// non-terminal source by CanTransition.
var edges = map[State][]State{
	Uninitialized: {Initialized, ShuttingDown},
	Initialized:   {Starting, ShuttingDown},
	Starting:      {Started},
	Started:       {Stopping},
	Stopping:      {Stopped},
	Stopped:       {Starting, ShuttingDown},
	ShuttingDown:  {Shutdown},
	Failed:        {ShuttingDown},
}

// CanTransition reports whether from -> to is an allowed edge
func CanTransition(from, to State) bool {
	if to == Failed {
		return !from.IsTerminal()
	}
	for _, target := range edges[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Edges returns every allowed (from, to) pair
func Edges() [][2]State {
	var out [][2]State
	for from := Uninitialized; from <= Failed; from++ {
		for to := Uninitialized; to <= Failed; to++ {
			if CanTransition(from, to) {
				out = append(out, [2]State{from, to})
			}
		}
	}
	return out
}
