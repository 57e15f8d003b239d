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

// Package attribute defines typed, named queries for introspectable unit state.
package attribute

import (
	"fmt"
	"reflect"
)

// Descriptor identifies an attribute by value type and name
type Descriptor interface {
	// Name returns the attribute name
	Name() string
	// Type returns the value type
	Type() reflect.Type
	// TypeName returns the value type name used on the wire
	TypeName() string
	// Key returns the lookup key combining type and name
	Key() string
}

// TypedDescriptor is a Descriptor whose value type is known at compile time
type TypedDescriptor[T any] struct {
	name string
	typ  reflect.Type
}

var _ Descriptor = TypedDescriptor[int]{}

// New creates a descriptor for values of type T
//
//	var TotalMessages = attribute.New[int]("getNumberOfSentMessages")
func New[T any](name string) TypedDescriptor[T] {
	return TypedDescriptor[T]{name: name, typ: reflect.TypeFor[T]()}
}

// Name returns the attribute name
func (d TypedDescriptor[T]) Name() string { return d.name }

// Type returns the value type
func (d TypedDescriptor[T]) Type() reflect.Type { return d.typ }

// TypeName returns the value type name
func (d TypedDescriptor[T]) TypeName() string { return d.typ.String() }

// Key returns the lookup key
func (d TypedDescriptor[T]) Key() string { return Key(d.typ.String(), d.name) }

// String returns a readable form of the descriptor
func (d TypedDescriptor[T]) String() string {
	return fmt.Sprintf("%s(%s)", d.name, d.typ)
}

// Cast converts a value returned for this descriptor to T
func (d TypedDescriptor[T]) Cast(v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("attribute %s: got %T, expected %s", d.name, v, d.typ)
	}
	return out, nil
}

// Dynamic is a Descriptor built from a wire type name and attribute name.
// It is used to answer remote queries where the value type is not known
// at compile time.
type Dynamic struct {
	name     string
	typeName string
}

var _ Descriptor = Dynamic{}

// NewDynamic creates a Dynamic descriptor
func NewDynamic(typeName, name string) Dynamic {
	return Dynamic{name: name, typeName: typeName}
}

// Name returns the attribute name
func (d Dynamic) Name() string { return d.name }

// Type returns nil since the type is only known by name
func (d Dynamic) Type() reflect.Type { return nil }

// TypeName returns the value type name
func (d Dynamic) TypeName() string { return d.typeName }

// Key returns the lookup key
func (d Dynamic) Key() string { return Key(d.typeName, d.name) }

// Key builds the lookup key of a descriptor
func Key(typeName, name string) string {
	return typeName + "/" + name
}

// Equal reports whether two descriptors name the same attribute
func Equal(a, b Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// Contains reports whether d is in the given set
func Contains(set []Descriptor, d Descriptor) bool {
	for _, candidate := range set {
		if Equal(candidate, d) {
			return true
		}
	}
	return false
}
