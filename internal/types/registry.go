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

// Package types keeps a mapping between wire type names and Go types so that
// values crossing the network can be rebuilt with their exact type.
package types

import (
	"reflect"
	"strings"
	"sync"
)

// Registry defines the types registry interface
type Registry interface {
	// Register records the exact runtime type of v, pointer-ness included.
	// v may also be a reflect.Type.
	Register(v any)
	// Deregister removes the type of v
	Deregister(v any)
	// Exists reports whether the type of v is registered
	Exists(v any) bool
	// Types returns a copy of the registered types keyed by name
	Types() map[string]reflect.Type
	// TypeOf returns the type registered under name
	TypeOf(name string) (reflect.Type, bool)
}

type registry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

var _ Registry = (*registry)(nil)

// NewRegistry creates an empty registry
func NewRegistry() Registry {
	return &registry{types: make(map[string]reflect.Type)}
}

// Register an object type
func (r *registry) Register(v any) {
	rtype := ReflectType(v)
	if rtype == nil {
		return
	}
	r.mu.Lock()
	r.types[nameOf(rtype)] = rtype
	r.mu.Unlock()
}

// Deregister removes the registered type
func (r *registry) Deregister(v any) {
	rtype := ReflectType(v)
	if rtype == nil {
		return
	}
	r.mu.Lock()
	delete(r.types, nameOf(rtype))
	r.mu.Unlock()
}

// Exists reports whether the type of v is registered
func (r *registry) Exists(v any) bool {
	rtype := ReflectType(v)
	if rtype == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[nameOf(rtype)]
	return ok
}

// Types returns a snapshot of the registry
func (r *registry) Types() map[string]reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]reflect.Type, len(r.types))
	for k, v := range r.types {
		out[k] = v
	}
	return out
}

// TypeOf returns the type registered under name
func (r *registry) TypeOf(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out, ok := r.types[lowTrim(name)]
	return out, ok
}

// ReflectType returns the exact runtime type of v
func ReflectType(v any) reflect.Type {
	if t, ok := v.(reflect.Type); ok {
		return t
	}
	return reflect.TypeOf(v)
}

// Name returns the wire name of the type of v
func Name(v any) string {
	rtype := ReflectType(v)
	if rtype == nil {
		return ""
	}
	return nameOf(rtype)
}

func nameOf(t reflect.Type) string {
	name := t.String()
	if pkg := t.PkgPath(); pkg != "" && t.Kind() != reflect.Pointer {
		name = pkg + "." + t.Name()
	} else if t.Kind() == reflect.Pointer && t.Elem().PkgPath() != "" {
		name = "*" + t.Elem().PkgPath() + "." + t.Elem().Name()
	}
	return lowTrim(name)
}

// lowTrim trims any space and lowers the string value
func lowTrim(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
