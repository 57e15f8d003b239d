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

package robo

import (
	"github.com/tochemey/robokit/log"
	"github.com/tochemey/robokit/scheduler"
)

// UnitContext is the view a unit has of its hosting Context. It only allows
// lookups; a unit cannot change the lifecycle of its context.
type UnitContext interface {
	// ContextID returns the id of the hosting context
	ContextID() string
	// UnitID returns the id of the unit
	UnitID() string
	// Logger returns a logger tagged with the unit and context ids
	Logger() log.Logger
	// Scheduler returns the pools shared by the units of the context
	Scheduler() *scheduler.Scheduler
	// Reference looks up a unit of the same context
	Reference(id string) (Reference, bool)
	// RemoteReference returns a reference to a unit of another context
	RemoteReference(contextID, unitID string) (Reference, error)
	// Self returns the reference of the unit
	Self() Reference
}

type unitContext struct {
	cell *cell
}

var _ UnitContext = (*unitContext)(nil)

func (x *unitContext) ContextID() string {
	return x.cell.owner.id
}

func (x *unitContext) UnitID() string {
	return x.cell.id
}

func (x *unitContext) Logger() log.Logger {
	return x.cell.logger
}

func (x *unitContext) Scheduler() *scheduler.Scheduler {
	return x.cell.owner.scheduler
}

func (x *unitContext) Reference(id string) (Reference, bool) {
	return x.cell.owner.Reference(id)
}

func (x *unitContext) RemoteReference(contextID, unitID string) (Reference, error) {
	return x.cell.owner.RemoteReference(contextID, unitID)
}

func (x *unitContext) Self() Reference {
	return x.cell
}
