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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalStateTransition is returned when a lifecycle transition is not
	// along one of the allowed edges.
	ErrIllegalStateTransition = errors.New("illegal state transition")

	// ErrDuplicateUnitID is returned at build time when two units share the same id.
	ErrDuplicateUnitID = errors.New("duplicate unit id")

	// ErrMissingConfigValue is returned when a required configuration value is absent.
	ErrMissingConfigValue = errors.New("missing configuration value")

	// ErrInvalidConfigValue is returned when a configuration value cannot be used.
	ErrInvalidConfigValue = errors.New("invalid configuration value")

	// ErrUnknownAttribute is returned when a unit does not publish the requested attribute.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrAttributeTimeout is returned when an attribute read does not complete in time.
	ErrAttributeTimeout = errors.New("attribute request timed out")

	// ErrSchedulerSaturated is returned when a bounded pool cannot accept more work.
	ErrSchedulerSaturated = errors.New("scheduler saturated")

	// ErrSchedulerStopped is returned when work is submitted to a stopped scheduler.
	ErrSchedulerStopped = errors.New("scheduler is not running")

	// ErrUnknownContext is returned when a context id cannot be resolved through discovery.
	ErrUnknownContext = errors.New("unknown context")

	// ErrDeliveryFailed is returned when a message cannot be handed to its target.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUnitNotFound is returned when a unit id is not registered in a context.
	ErrUnitNotFound = errors.New("unit not found")

	// ErrUnknownUnitType is returned when no factory is registered for a unit type tag.
	ErrUnknownUnitType = errors.New("unknown unit type")

	// ErrSystemSettingsAlreadySet is returned when system settings are provided by more than one source.
	ErrSystemSettingsAlreadySet = errors.New("system settings already set")

	// ErrInvalidMessage is returned when a message does not match what the unit accepts.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrContextNotStarted is returned when remote operations are used before the context started.
	ErrContextNotStarted = errors.New("context is not started")

	// ErrAlreadyStarted is returned when a background service is started twice.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotStarted is returned when a background service is used before it started.
	ErrNotStarted = errors.New("not started")

	// ErrRemotingDisabled is returned when a remote reference is requested on a
	// context without remoting.
	ErrRemotingDisabled = errors.New("remoting is not enabled")
)

// NewErrDuplicateUnitID formats an ErrDuplicateUnitID with the given id.
func NewErrDuplicateUnitID(id string) error {
	return fmt.Errorf("(unit=%s) %w", id, ErrDuplicateUnitID)
}

// NewErrMissingConfigValue formats an ErrMissingConfigValue with the given key.
func NewErrMissingConfigValue(key string) error {
	return fmt.Errorf("(key=%s) %w", key, ErrMissingConfigValue)
}

// NewErrInvalidConfigValue formats an ErrInvalidConfigValue with the given key and reason.
func NewErrInvalidConfigValue(key string, err error) error {
	return fmt.Errorf("(key=%s) %w: %w", key, ErrInvalidConfigValue, err)
}

// NewErrUnknownAttribute formats an ErrUnknownAttribute with the given attribute name.
func NewErrUnknownAttribute(unitID, name string) error {
	return fmt.Errorf("(unit=%s, attribute=%s) %w", unitID, name, ErrUnknownAttribute)
}

// NewErrUnknownContext formats an ErrUnknownContext with the given context id.
func NewErrUnknownContext(contextID string) error {
	return fmt.Errorf("(context=%s) %w", contextID, ErrUnknownContext)
}

// NewErrUnitNotFound formats an ErrUnitNotFound with the given unit id.
func NewErrUnitNotFound(id string) error {
	return fmt.Errorf("(unit=%s) %w", id, ErrUnitNotFound)
}

// NewErrUnknownUnitType formats an ErrUnknownUnitType with the given type tag.
func NewErrUnknownUnitType(tag string) error {
	return fmt.Errorf("(type=%s) %w", tag, ErrUnknownUnitType)
}

// NewErrDeliveryFailed wraps a cause into ErrDeliveryFailed.
func NewErrDeliveryFailed(err error) error {
	return errors.Join(ErrDeliveryFailed, err)
}

// NewErrInvalidMessage wraps a cause into ErrInvalidMessage.
func NewErrInvalidMessage(err error) error {
	return errors.Join(ErrInvalidMessage, err)
}

// UnitError attaches the id of the offending unit to an error
type UnitError struct {
	UnitID string
	Err    error
}

var _ error = (*UnitError)(nil)

// NewUnitError creates a UnitError
func NewUnitError(unitID string, err error) *UnitError {
	return &UnitError{UnitID: unitID, Err: err}
}

// Error implements the standard error interface
func (e *UnitError) Error() string {
	return fmt.Sprintf("unit=%s: %v", e.UnitID, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Recovered converts a value returned by recover into a PanicError
func Recovered(r any) *PanicError {
	if err, ok := r.(error); ok {
		return NewPanicError(err)
	}
	return NewPanicError(fmt.Errorf("%v", r))
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
