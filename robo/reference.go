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
	"fmt"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/future"
	"github.com/tochemey/robokit/lifecycle"
)

// Reference is a handle to a unit, local or remote. It does not keep the unit
// alive: once the unit is shut down, sends fail with ErrDeliveryFailed.
type Reference interface {
	// ID returns the unit id
	ID() string
	// ContextID returns the id of the context hosting the unit
	ContextID() string
	// State returns the unit state. Remote references report STARTED while the
	// hosting context can be resolved and UNINITIALIZED otherwise.
	State() lifecycle.State
	// Configuration returns the unit configuration, nil for remote units
	Configuration() *config.Configuration
	// Send delivers msg without waiting for it to be handled
	Send(msg any) error
	// Attribute queries an attribute value
	Attribute(d attribute.Descriptor) *future.Future[any]
	// Equal reports whether both references point to the same unit
	Equal(other Reference) bool
}

// GetAttribute queries a typed attribute
//
//	count, err := robo.GetAttribute(ref, units.DescriptorTotalMessages).Await(time.Second)
func GetAttribute[T any](ref Reference, d attribute.TypedDescriptor[T]) *future.Future[T] {
	return future.Map(ref.Attribute(d), d.Cast)
}

func equal(a, b Reference) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID() == b.ID() && a.ContextID() == b.ContextID()
}

// remoteReference points to a unit of another context
type remoteReference struct {
	owner     *Context
	contextID string
	unitID    string
}

var _ Reference = (*remoteReference)(nil)

func (r *remoteReference) ID() string {
	return r.unitID
}

func (r *remoteReference) ContextID() string {
	return r.contextID
}

func (r *remoteReference) State() lifecycle.State {
	if _, err := r.owner.resolve(r.contextID); err != nil {
		return lifecycle.Uninitialized
	}
	return lifecycle.Started
}

func (r *remoteReference) Configuration() *config.Configuration {
	return nil
}

// Send resolves the hosting context synchronously and fails fast with
// ErrUnknownContext. Serialization and transmission run on the blocking pool;
// their failures are only logged and metered.
func (r *remoteReference) Send(msg any) error {
	if msg == nil {
		return rerrors.NewErrInvalidMessage(fmt.Errorf("nil message for unit %s", r.unitID))
	}

	endpoint, err := r.owner.resolve(r.contextID)
	if err != nil {
		return err
	}

	client := r.owner.client()
	if client == nil {
		return rerrors.ErrContextNotStarted
	}

	return r.owner.scheduler.ExecuteBlocking(func() {
		_ = client.SendMessage(r.owner.runContext(), endpoint.Address(), r.contextID, r.unitID, msg)
	})
}

// Attribute asks the remote unit for an attribute. The exchange is bounded by
// the remote attribute timeout; callers waiting less get ErrAttributeTimeout
// from the future.
func (r *remoteReference) Attribute(d attribute.Descriptor) *future.Future[any] {
	if d == nil {
		return future.Failed[any](rerrors.NewErrUnknownAttribute(r.unitID, ""))
	}

	endpoint, err := r.owner.resolve(r.contextID)
	if err != nil {
		return future.Failed[any](err)
	}

	client := r.owner.client()
	if client == nil {
		return future.Failed[any](rerrors.ErrContextNotStarted)
	}

	f, completer := future.New[any](future.WithTimeoutError(rerrors.ErrAttributeTimeout))
	err = r.owner.scheduler.ExecuteBlocking(func() {
		ctx, cancel := context.WithTimeout(r.owner.runContext(), r.owner.remoteConfig.AttributeTimeout())
		defer cancel()
		completer.Complete(client.GetAttribute(ctx, endpoint.Address(), r.contextID, r.unitID, d.Name(), d.TypeName()))
	})
	if err != nil {
		completer.Failure(err)
	}
	return f
}

func (r *remoteReference) Equal(other Reference) bool {
	return equal(r, other)
}

func (r *remoteReference) String() string {
	return r.contextID + "/" + r.unitID
}
