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
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	countAttribute = attribute.New[int]("count")
	slowAttribute  = attribute.New[int]("slow")
	nameAttribute  = attribute.New[string]("name")
)

// journal records the hooks called across units in call order
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) record(entry string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}

type testUnit struct {
	UnitBase

	id      string
	journal *journal

	initErr  error
	startErr error
	panicOn  any
	release  chan struct{}
	onStart  func(ctx UnitContext)

	mu       sync.Mutex
	ctx      UnitContext
	name     string
	received []any
	notify   chan any
}

func newTestUnit(id string, j *journal) *testUnit {
	return &testUnit{id: id, journal: j, notify: make(chan any, 1024)}
}

func (x *testUnit) OnInitialize(ctx UnitContext, cfg *config.Configuration) error {
	x.journal.record("initialize:" + x.id)
	if x.initErr != nil {
		return x.initErr
	}
	x.mu.Lock()
	x.ctx = ctx
	x.name = cfg.String("name", x.id)
	x.mu.Unlock()
	return nil
}

func (x *testUnit) OnStart() error {
	x.journal.record("start:" + x.id)
	if x.onStart != nil {
		x.mu.Lock()
		ctx := x.ctx
		x.mu.Unlock()
		x.onStart(ctx)
	}
	return x.startErr
}

func (x *testUnit) OnStop() error {
	x.journal.record("stop:" + x.id)
	return nil
}

func (x *testUnit) OnShutdown() error {
	x.journal.record("shutdown:" + x.id)
	return nil
}

func (x *testUnit) OnMessage(_ context.Context, msg any) {
	if x.panicOn != nil && msg == x.panicOn {
		panic(errors.New("boom"))
	}
	x.mu.Lock()
	x.received = append(x.received, msg)
	x.mu.Unlock()
	x.notify <- msg
}

func (x *testUnit) OnGetAttribute(d attribute.Descriptor) (any, error) {
	switch {
	case attribute.Equal(d, countAttribute):
		x.mu.Lock()
		defer x.mu.Unlock()
		return len(x.received), nil
	case attribute.Equal(d, nameAttribute):
		x.mu.Lock()
		defer x.mu.Unlock()
		return x.name, nil
	case attribute.Equal(d, slowAttribute):
		<-x.release
		return 0, nil
	}
	return x.UnitBase.OnGetAttribute(d)
}

func (x *testUnit) KnownAttributes() []attribute.Descriptor {
	return []attribute.Descriptor{countAttribute, nameAttribute, slowAttribute}
}

func (x *testUnit) messages() []any {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]any, len(x.received))
	copy(out, x.received)
	return out
}
