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

// Package config holds the ordered, typed key/value configuration consumed by
// units and by the builder.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tochemey/robokit/errors"
)

// Configuration is an ordered mapping from keys to scalar values or child
// configurations. Values keep their insertion order.
//
// Getters accept dotted paths: Integer("worker.poolSize", 0) first looks up
// the literal key and then walks the child named "worker".
//
// A Configuration is safe for concurrent reads. Once frozen, every setter panics.
type Configuration struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
	frozen bool
}

// New creates an empty Configuration
func New() *Configuration {
	return &Configuration{values: make(map[string]any)}
}

// Empty returns an empty frozen Configuration
func Empty() *Configuration {
	c := New()
	c.frozen = true
	return c
}

// Names returns every key in insertion order
func (c *Configuration) Names() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// ValueNames returns the keys holding scalar values, in insertion order
func (c *Configuration) ValueNames() []string {
	return c.names(false)
}

// ChildNames returns the keys holding child configurations, in insertion order
func (c *Configuration) ChildNames() []string {
	return c.names(true)
}

// Len returns the number of entries
func (c *Configuration) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Has reports whether the key (or dotted path) exists
func (c *Configuration) Has(key string) bool {
	_, ok := c.lookup(key)
	return ok
}

// Value returns the raw value stored under key
func (c *Configuration) Value(key string) (any, bool) {
	return c.lookup(key)
}

// Child returns the child configuration stored under key, or nil
func (c *Configuration) Child(key string) *Configuration {
	v, ok := c.lookup(key)
	if !ok {
		return nil
	}
	child, _ := v.(*Configuration)
	return child
}

// String returns the value under key as a string or def when absent
func (c *Configuration) String(key, def string) string {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case string:
		return x
	case *Configuration:
		return def
	default:
		return fmt.Sprint(x)
	}
}

// Integer returns the value under key as an int or def when absent or not numeric
func (c *Configuration) Integer(key string, def int) int {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	n, ok := toInt(v)
	if !ok {
		return def
	}
	return n
}

// Float returns the value under key as a float64 or def when absent or not numeric
func (c *Configuration) Float(key string, def float64) float64 {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	f, ok := toFloat(v)
	if !ok {
		return def
	}
	return f
}

// Boolean returns the value under key as a bool or def when absent
func (c *Configuration) Boolean(key string, def bool) bool {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return def
		}
		return b
	default:
		return def
	}
}

// Duration returns the value under key as a time.Duration. Strings are
// parsed with time.ParseDuration and numbers are read as milliseconds.
func (c *Configuration) Duration(key string, def time.Duration) time.Duration {
	v, ok := c.lookup(key)
	if !ok {
		return def
	}
	switch x := v.(type) {
	case time.Duration:
		return x
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return def
		}
		return d
	default:
		n, ok := toInt(v)
		if !ok {
			return def
		}
		return time.Duration(n) * time.Millisecond
	}
}

// RequiredString returns the non-empty string under key or ErrMissingConfigValue
func (c *Configuration) RequiredString(key string) (string, error) {
	s := c.String(key, "")
	if s == "" {
		return "", errors.NewErrMissingConfigValue(key)
	}
	return s, nil
}

// RequiredInteger returns the integer under key or ErrMissingConfigValue
func (c *Configuration) RequiredInteger(key string) (int, error) {
	v, ok := c.lookup(key)
	if !ok {
		return 0, errors.NewErrMissingConfigValue(key)
	}
	n, ok := toInt(v)
	if !ok {
		return 0, errors.NewErrInvalidConfigValue(key, fmt.Errorf("%v is not an integer", v))
	}
	return n, nil
}

// SetString stores a string value
func (c *Configuration) SetString(key, value string) *Configuration {
	return c.set(key, value)
}

// SetInteger stores an integer value
func (c *Configuration) SetInteger(key string, value int) *Configuration {
	return c.set(key, int64(value))
}

// SetFloat stores a floating-point value
func (c *Configuration) SetFloat(key string, value float64) *Configuration {
	return c.set(key, value)
}

// SetBoolean stores a boolean value
func (c *Configuration) SetBoolean(key string, value bool) *Configuration {
	return c.set(key, value)
}

// SetValue stores an arbitrary value. Child configurations are accepted as well.
func (c *Configuration) SetValue(key string, value any) *Configuration {
	return c.set(key, value)
}

// SetChild stores a child configuration. A nil child creates an empty one.
func (c *Configuration) SetChild(key string, child *Configuration) *Configuration {
	if child == nil {
		child = New()
	}
	return c.set(key, child)
}

// Freeze makes the configuration and every child read-only
func (c *Configuration) Freeze() *Configuration {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.frozen = true
	children := make([]*Configuration, 0)
	for _, v := range c.values {
		if child, ok := v.(*Configuration); ok {
			children = append(children, child)
		}
	}
	c.mu.Unlock()

	for _, child := range children {
		child.Freeze()
	}
	return c
}

// Frozen reports whether setters are disabled
func (c *Configuration) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Copy returns a deep, mutable copy
func (c *Configuration) Copy() *Configuration {
	out := New()
	if c == nil {
		return out
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, k := range c.keys {
		v := c.values[k]
		if child, ok := v.(*Configuration); ok {
			v = child.Copy()
		}
		out.keys = append(out.keys, k)
		out.values[k] = v
	}
	return out
}

// Merge copies every entry of other into c. Existing keys are overwritten and
// children are merged recursively.
func (c *Configuration) Merge(other *Configuration) *Configuration {
	if other == nil {
		return c
	}
	for _, k := range other.Names() {
		v, _ := other.Value(k)
		if child, ok := v.(*Configuration); ok {
			if mine := c.directChild(k); mine != nil {
				mine.Merge(child)
				continue
			}
			c.set(k, child.Copy())
			continue
		}
		c.set(k, v)
	}
	return c
}

// GoString renders the configuration for diagnostics
func (c *Configuration) GoString() string {
	var sb strings.Builder
	c.render(&sb, "")
	return sb.String()
}

func (c *Configuration) render(sb *strings.Builder, indent string) {
	for _, k := range c.Names() {
		v, _ := c.Value(k)
		if child, ok := v.(*Configuration); ok {
			fmt.Fprintf(sb, "%s%s:\n", indent, k)
			child.render(sb, indent+"  ")
			continue
		}
		fmt.Fprintf(sb, "%s%s: %v\n", indent, k, v)
	}
}

func (c *Configuration) set(key string, value any) *Configuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frozen {
		panic(fmt.Sprintf("config: cannot set %q on a frozen configuration", key))
	}
	if c.values == nil {
		c.values = make(map[string]any)
	}
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
	return c
}

func (c *Configuration) names(children bool) []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		_, isChild := c.values[k].(*Configuration)
		if isChild == children {
			out = append(out, k)
		}
	}
	return out
}

func (c *Configuration) directChild(key string) *Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	child, _ := c.values[key].(*Configuration)
	return child
}

func (c *Configuration) lookup(key string) (any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.RLock()
	v, ok := c.values[key]
	c.mu.RUnlock()
	if ok {
		return v, true
	}

	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	child := c.directChild(head)
	if child == nil {
		return nil, false
	}
	return child.lookup(rest)
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint64:
		return int(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
