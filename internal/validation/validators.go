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

package validation

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]*$`)

const maxIDLength = 255

type booleanValidator struct {
	ok      bool
	message string
}

// NewBooleanValidator fails with message when ok is false
func NewBooleanValidator(ok bool, message string) Validator {
	return booleanValidator{ok: ok, message: message}
}

func (v booleanValidator) Validate() error {
	if !v.ok {
		return errors.New(v.message)
	}
	return nil
}

type emptyStringValidator struct {
	field string
	value string
}

// NewEmptyStringValidator fails when value is blank
func NewEmptyStringValidator(field, value string) Validator {
	return emptyStringValidator{field: field, value: value}
}

func (v emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return fmt.Errorf("the [%s] is required", v.field)
	}
	return nil
}

type idValidator struct {
	field string
	id    string
}

// NewIDValidator checks that id is usable as a unit or context identifier
func NewIDValidator(field, id string) Validator {
	return idValidator{field: field, id: id}
}

func (v idValidator) Validate() error {
	if err := NewEmptyStringValidator(v.field, v.id).Validate(); err != nil {
		return err
	}
	if len(v.id) > maxIDLength {
		return fmt.Errorf("the [%s] exceeds %d characters", v.field, maxIDLength)
	}
	if !idPattern.MatchString(v.id) {
		return fmt.Errorf("the [%s]=(%s) contains invalid characters", v.field, v.id)
	}
	return nil
}

type positiveDurationValidator struct {
	field string
	value time.Duration
}

// NewPositiveDurationValidator fails when value is not strictly positive
func NewPositiveDurationValidator(field string, value time.Duration) Validator {
	return positiveDurationValidator{field: field, value: value}
}

func (v positiveDurationValidator) Validate() error {
	if v.value <= 0 {
		return fmt.Errorf("the [%s] must be positive, got %s", v.field, v.value)
	}
	return nil
}

type portValidator struct {
	field string
	port  int
}

// NewPortValidator checks that port is in [0, 65535]. Zero lets the OS pick.
func NewPortValidator(field string, port int) Validator {
	return portValidator{field: field, port: port}
}

func (v portValidator) Validate() error {
	if v.port < 0 || v.port > 65535 {
		return fmt.Errorf("the [%s]=(%d) is not a valid port", v.field, v.port)
	}
	return nil
}

// TCPAddressValidator checks a host:port address
type TCPAddressValidator struct {
	address string
}

var _ Validator = (*TCPAddressValidator)(nil)

// NewTCPAddressValidator creates a TCPAddressValidator
func NewTCPAddressValidator(address string) *TCPAddressValidator {
	return &TCPAddressValidator{address: address}
}

// Validate implements Validator
func (a *TCPAddressValidator) Validate() error {
	host, port, err := net.SplitHostPort(strings.TrimSpace(a.address))
	if err != nil {
		return fmt.Errorf("invalid address=(%s): %w", a.address, err)
	}
	num, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid address=(%s): %w", a.address, err)
	}
	if host == "" || num > 65535 || num < 0 {
		return fmt.Errorf("invalid address=(%s)", a.address)
	}
	return nil
}

type multicastValidator struct {
	field string
	group string
}

// NewMulticastGroupValidator checks that group is an IPv4 multicast address
func NewMulticastGroupValidator(field, group string) Validator {
	return multicastValidator{field: field, group: group}
}

func (v multicastValidator) Validate() error {
	ip := net.ParseIP(strings.TrimSpace(v.group))
	if ip == nil || ip.To4() == nil || !ip.IsMulticast() {
		return fmt.Errorf("the [%s]=(%s) is not an IPv4 multicast address", v.field, v.group)
	}
	return nil
}
