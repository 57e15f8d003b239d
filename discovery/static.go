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

package discovery

import (
	"sort"
	"sync"

	rerrors "github.com/tochemey/robokit/errors"
)

// Resolver turns a context id into the endpoint of its remote server
type Resolver interface {
	// Resolve returns the endpoint of the context or ErrUnknownContext
	Resolve(contextID string) (Endpoint, error)
}

var (
	_ Resolver = (*Service)(nil)
	_ Resolver = (*Static)(nil)
)

// Static resolves contexts from a fixed table. It fits deployments where the
// multicast group is not routed and peers are known ahead of time.
type Static struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewStatic creates a Static resolver. Descriptors without an id or a port
// are skipped.
func NewStatic(descriptors ...Descriptor) *Static {
	s := &Static{descriptors: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		s.Add(d)
	}
	return s
}

// Add registers or replaces a descriptor
func (s *Static) Add(descriptor Descriptor) {
	if descriptor.ID == "" || descriptor.Port == 0 {
		return
	}
	s.mu.Lock()
	s.descriptors[descriptor.ID] = descriptor.copy()
	s.mu.Unlock()
}

// Remove drops a descriptor
func (s *Static) Remove(contextID string) {
	s.mu.Lock()
	delete(s.descriptors, contextID)
	s.mu.Unlock()
}

// Resolve implements Resolver
func (s *Static) Resolve(contextID string) (Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.descriptors[contextID]
	if !ok {
		return Endpoint{}, rerrors.NewErrUnknownContext(contextID)
	}
	return d.Endpoint(), nil
}

// Descriptors returns the table ordered by id
func (s *Static) Descriptors() []Descriptor {
	s.mu.RLock()
	out := make([]Descriptor, 0, len(s.descriptors))
	for _, d := range s.descriptors {
		out = append(out, d.copy())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
