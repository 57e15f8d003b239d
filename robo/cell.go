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
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/future"
	"github.com/tochemey/robokit/lifecycle"
	"github.com/tochemey/robokit/log"
)

// cell hosts a unit inside a Context. It is the local Reference to the unit.
type cell struct {
	id          string
	owner       *Context
	unit        Unit
	config      *config.Configuration
	machine     *lifecycle.Machine
	mailbox     *mailbox
	logger      log.Logger
	messageType reflect.Type
	attributes  map[string]attribute.Descriptor
}

var _ Reference = (*cell)(nil)

func newCell(owner *Context, id string, unit Unit, cfg *config.Configuration) *cell {
	if cfg == nil {
		cfg = config.Empty()
	}

	c := &cell{
		id:         id,
		owner:      owner,
		unit:       unit,
		config:     cfg.Freeze(),
		machine:    lifecycle.NewMachine(id),
		mailbox:    newMailbox(),
		logger:     owner.logger.With("unit", id, "context", owner.id),
	}

	if typer, ok := unit.(MessageTyper); ok {
		c.messageType = typer.MessageType()
	}
	return c
}

func (c *cell) ID() string {
	return c.id
}

func (c *cell) ContextID() string {
	return c.owner.id
}

func (c *cell) State() lifecycle.State {
	return c.machine.State()
}

func (c *cell) Configuration() *config.Configuration {
	return c.config
}

func (c *cell) Equal(other Reference) bool {
	return equal(c, other)
}

func (c *cell) String() string {
	return c.owner.id + "/" + c.id
}

// Send enqueues msg on the unit mailbox. Messages queue while the unit is not
// started and are drained, in order, once it starts.
func (c *cell) Send(msg any) error {
	if err := c.accepts(msg); err != nil {
		return err
	}

	switch state := c.machine.State(); state {
	case lifecycle.ShuttingDown, lifecycle.Shutdown, lifecycle.Failed:
		return rerrors.NewErrDeliveryFailed(fmt.Errorf("unit %s is %s", c, state))
	default:
	}

	if err := c.mailbox.put(msg); err != nil {
		return rerrors.NewErrDeliveryFailed(fmt.Errorf("unit %s is %s", c, c.machine.State()))
	}
	return c.schedule()
}

func (c *cell) accepts(msg any) error {
	if msg == nil {
		return rerrors.NewErrInvalidMessage(fmt.Errorf("nil message for unit %s", c))
	}
	if c.messageType != nil && !reflect.TypeOf(msg).AssignableTo(c.messageType) {
		return rerrors.NewErrInvalidMessage(fmt.Errorf("unit %s accepts %s, got %T", c, c.messageType, msg))
	}
	return nil
}

// schedule starts a drain on the worker pool unless one is already running.
// When the pool rejects the drain, queued messages stay in the mailbox and the
// next accepted send drains them.
func (c *cell) schedule() error {
	if !c.machine.State().IsActive() || !c.mailbox.claim() {
		return nil
	}

	if err := c.owner.scheduler.Execute(c.drain); err != nil {
		c.mailbox.unclaim()
		return err
	}
	return nil
}

func (c *cell) drain() {
	ctx := c.owner.runContext()
	for {
		for c.machine.State().IsActive() {
			msg, ok := c.mailbox.take()
			if !ok {
				break
			}
			c.deliver(ctx, msg)
		}

		if !c.mailbox.release() {
			return
		}

		// start claims the mailbox again once the unit is back to Started
		if !c.machine.State().IsActive() {
			c.mailbox.unclaim()
			return
		}
	}
}

func (c *cell) deliver(ctx context.Context, msg any) {
	defer func() {
		if r := recover(); r != nil {
			err := rerrors.Recovered(r)
			c.logger.Errorf("unit %s failed handling %T: %v", c, msg, err)
			c.machine.Fail()
		}
	}()
	c.unit.OnMessage(ctx, msg)
}

// Attribute answers on the blocking pool, or on its own goroutine when the
// pools are not running. The caller never runs the hook.
func (c *cell) Attribute(d attribute.Descriptor) *future.Future[any] {
	if d == nil {
		return future.Failed[any](rerrors.NewErrUnknownAttribute(c.id, ""))
	}

	switch state := c.machine.State(); state {
	case lifecycle.Shutdown, lifecycle.Failed:
		return future.Failed[any](rerrors.NewErrDeliveryFailed(fmt.Errorf("unit %s is %s", c, state)))
	default:
	}

	known, ok := c.attributes[d.Key()]
	if !ok {
		return future.Failed[any](rerrors.NewErrUnknownAttribute(c.id, d.Name()))
	}

	f, completer := future.New[any](future.WithTimeoutError(rerrors.ErrAttributeTimeout))
	err := c.owner.scheduler.ExecuteBlocking(func() {
		completer.Complete(c.attribute(known))
	})

	switch {
	case err == nil:
	case errors.Is(err, rerrors.ErrSchedulerStopped):
		go func() { completer.Complete(c.attribute(known)) }()
	default:
		completer.Failure(err)
	}
	return f
}

func (c *cell) attribute(d attribute.Descriptor) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rerrors.Recovered(r)
			c.logger.Errorf("unit %s failed answering attribute %s: %v", c, d.Name(), err)
		}
	}()

	value, err = c.unit.OnGetAttribute(d)
	if err != nil {
		return nil, err
	}

	if t := d.Type(); t != nil && (value == nil || !reflect.TypeOf(value).AssignableTo(t)) {
		return nil, fmt.Errorf("unit %s answered %T for attribute %s of type %s", c, value, d.Name(), t)
	}
	return value, nil
}

// lookupAttribute finds a published descriptor by wire type name and name
func (c *cell) lookupAttribute(typeName, name string) (attribute.Descriptor, bool) {
	d, ok := c.attributes[attribute.Key(typeName, name)]
	return d, ok
}

func (c *cell) initialize() error {
	if current := c.machine.State(); current != lifecycle.Uninitialized {
		return &lifecycle.IllegalStateTransitionError{ID: c.id, Current: current, Target: lifecycle.Initialized}
	}

	if err := c.hook(func() error { return c.unit.OnInitialize(&unitContext{cell: c}, c.config) }); err != nil {
		c.machine.Fail()
		return rerrors.NewUnitError(c.id, err)
	}

	c.attributes = make(map[string]attribute.Descriptor)
	for _, d := range c.unit.KnownAttributes() {
		if d != nil {
			c.attributes[d.Key()] = d
		}
	}
	return c.machine.TransitionTo(lifecycle.Initialized)
}

func (c *cell) start() error {
	if err := c.claim(lifecycle.Starting, lifecycle.Initialized, lifecycle.Stopped); err != nil {
		return err
	}

	if err := c.hook(c.unit.OnStart); err != nil {
		c.machine.Fail()
		return rerrors.NewUnitError(c.id, err)
	}

	if err := c.machine.TransitionTo(lifecycle.Started); err != nil {
		return err
	}

	if err := c.schedule(); err != nil {
		c.logger.Warnf("unit %s could not drain its mailbox: %v", c, err)
	}
	return nil
}

func (c *cell) stop() error {
	if err := c.claim(lifecycle.Stopping, lifecycle.Started); err != nil {
		return err
	}

	if err := c.hook(c.unit.OnStop); err != nil {
		c.machine.Fail()
		return rerrors.NewUnitError(c.id, err)
	}
	return c.machine.TransitionTo(lifecycle.Stopped)
}

func (c *cell) shutdown() error {
	if err := c.claim(lifecycle.ShuttingDown, lifecycle.Uninitialized, lifecycle.Initialized, lifecycle.Stopped, lifecycle.Failed); err != nil {
		return err
	}

	if err := c.hook(c.unit.OnShutdown); err != nil {
		c.machine.Fail()
		return rerrors.NewUnitError(c.id, err)
	}

	if dropped := c.mailbox.close(); dropped > 0 {
		c.logger.Debugf("unit %s dropped %d pending messages", c, dropped)
	}
	return c.machine.TransitionTo(lifecycle.Shutdown)
}

// claim moves the machine to target from the first matching source so that
// concurrent callers never run the same hook twice
func (c *cell) claim(target lifecycle.State, sources ...lifecycle.State) error {
	current := c.machine.State()
	for _, source := range sources {
		if current == source {
			return c.machine.CompareAndTransition(source, target)
		}
	}
	return &lifecycle.IllegalStateTransitionError{ID: c.id, Current: current, Target: target}
}

func (c *cell) hook(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = rerrors.Recovered(r)
		}
	}()
	return fn()
}
