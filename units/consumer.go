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

package units

import (
	"context"
	"sync"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/robo"
)

// StringConsumer records the strings it receives
type StringConsumer struct {
	robo.UnitBase

	ctx   robo.UnitContext
	latch *Latch

	mu       sync.RWMutex
	received []string
}

var _ robo.Unit = (*StringConsumer)(nil)

// NewStringConsumer creates a StringConsumer
func NewStringConsumer() *StringConsumer {
	return &StringConsumer{}
}

func (x *StringConsumer) OnInitialize(ctx robo.UnitContext, cfg *config.Configuration) error {
	x.ctx = ctx
	x.latch = NewLatch(cfg.Integer(KeyTotalMessages, 0))
	return nil
}

func (x *StringConsumer) OnMessage(_ context.Context, msg any) {
	s, ok := msg.(string)
	if !ok {
		return
	}
	x.mu.Lock()
	x.received = append(x.received, s)
	x.mu.Unlock()
	x.latch.CountDown()
}

func (x *StringConsumer) OnGetAttribute(d attribute.Descriptor) (any, error) {
	switch {
	case attribute.Equal(d, DescriptorTotalMessages):
		x.mu.RLock()
		defer x.mu.RUnlock()
		return len(x.received), nil
	case attribute.Equal(d, DescriptorReceivedMessages):
		return x.ReceivedMessages(), nil
	case attribute.Equal(d, DescriptorLatch):
		return x.latch, nil
	default:
		return nil, rerrors.NewErrUnknownAttribute(x.ctx.UnitID(), d.Name())
	}
}

func (x *StringConsumer) KnownAttributes() []attribute.Descriptor {
	return []attribute.Descriptor{DescriptorTotalMessages, DescriptorReceivedMessages, DescriptorLatch}
}

// ReceivedMessages returns a copy of the received strings in arrival order
func (x *StringConsumer) ReceivedMessages() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, len(x.received))
	copy(out, x.received)
	return out
}
