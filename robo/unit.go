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

// Package robo hosts units in a Context.
//
// A Context owns its units, the scheduler pools they share and, when
// configured, the discovery service and remote server that let units of other
// contexts reach them. Units never see each other directly: they talk through
// References, which dispatch in process or over the network.
package robo

import (
	"context"
	"reflect"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
)

// Unit is a message-driven component hosted by a Context.
//
// Lifecycle hooks run in this order: OnInitialize once at build time, then
// OnStart and OnStop for every start/stop cycle, then OnShutdown once. A hook
// returning an error moves the unit to FAILED. OnMessage and OnGetAttribute
// may run concurrently with each other; messages are delivered one at a time
// in the order they were sent.
type Unit interface {
	// OnInitialize receives the unit configuration
	OnInitialize(ctx UnitContext, cfg *config.Configuration) error
	// OnStart is called when the context starts
	OnStart() error
	// OnStop is called when the context stops
	OnStop() error
	// OnShutdown releases the unit resources
	OnShutdown() error
	// OnMessage handles a message
	OnMessage(ctx context.Context, msg any)
	// OnGetAttribute answers an attribute query. It is only called for
	// descriptors listed by KnownAttributes.
	OnGetAttribute(d attribute.Descriptor) (any, error)
	// KnownAttributes lists the attributes published by the unit
	KnownAttributes() []attribute.Descriptor
}

// MessageTyper is implemented by units that only accept one message type.
// Messages that are not assignable to MessageType are rejected with
// ErrInvalidMessage.
type MessageTyper interface {
	MessageType() reflect.Type
}

// UnitBase provides no-op hooks. Embed it and override what is needed.
type UnitBase struct{}

var _ Unit = (*UnitBase)(nil)

// OnInitialize implements Unit
func (UnitBase) OnInitialize(UnitContext, *config.Configuration) error { return nil }

// OnStart implements Unit
func (UnitBase) OnStart() error { return nil }

// OnStop implements Unit
func (UnitBase) OnStop() error { return nil }

// OnShutdown implements Unit
func (UnitBase) OnShutdown() error { return nil }

// OnMessage implements Unit
func (UnitBase) OnMessage(context.Context, any) {}

// OnGetAttribute implements Unit
func (UnitBase) OnGetAttribute(d attribute.Descriptor) (any, error) {
	return nil, rerrors.NewErrUnknownAttribute("", d.Name())
}

// KnownAttributes implements Unit
func (UnitBase) KnownAttributes() []attribute.Descriptor { return nil }
