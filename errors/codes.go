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
)

// codes maps the sentinels that cross process boundaries to stable wire codes.
var codes = []struct {
	code string
	err  error
}{
	{"unknown_attribute", ErrUnknownAttribute},
	{"attribute_timeout", ErrAttributeTimeout},
	{"unit_not_found", ErrUnitNotFound},
	{"delivery_failed", ErrDeliveryFailed},
	{"invalid_message", ErrInvalidMessage},
	{"scheduler_saturated", ErrSchedulerSaturated},
	{"context_not_started", ErrContextNotStarted},
	{"illegal_state_transition", ErrIllegalStateTransition},
}

// Code returns the wire code of err, or the empty string when err does not
// wrap one of the known sentinels.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

// FromCode rebuilds an error from a wire code and message. Unknown codes
// produce a plain error carrying the message.
func FromCode(code, message string) error {
	for _, c := range codes {
		if c.code == code {
			if message == "" || message == c.err.Error() {
				return c.err
			}
			return &remoteError{message: message, cause: c.err}
		}
	}
	if message == "" {
		return nil
	}
	return errors.New(message)
}

type remoteError struct {
	message string
	cause   error
}

func (e *remoteError) Error() string { return e.message }
func (e *remoteError) Unwrap() error { return e.cause }
