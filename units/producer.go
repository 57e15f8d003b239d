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
	"fmt"

	"go.uber.org/atomic"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/robo"
)

// StringProducer sends a random string to its target unit every time it
// receives SendRandomMessage
type StringProducer struct {
	robo.UnitBase

	ctx    robo.UnitContext
	target string
	sent   *atomic.Int64
	latch  *Latch
}

var _ robo.Unit = (*StringProducer)(nil)

// NewStringProducer creates a StringProducer
func NewStringProducer() *StringProducer {
	return &StringProducer{sent: atomic.NewInt64(0)}
}

// OnInitialize reads the target and the number of messages the latch waits for
func (x *StringProducer) OnInitialize(ctx robo.UnitContext, cfg *config.Configuration) error {
	target, err := cfg.RequiredString(KeyTarget)
	if err != nil {
		return err
	}
	x.ctx = ctx
	x.target = target
	x.latch = NewLatch(cfg.Integer(KeyTotalMessages, 0))
	return nil
}

func (x *StringProducer) OnMessage(_ context.Context, msg any) {
	if msg != SendRandomMessage {
		x.ctx.Logger().Debugf("ignoring %v", msg)
		return
	}

	ref, ok := x.ctx.Reference(x.target)
	if !ok {
		x.ctx.Logger().Warnf("target unit %s not found", x.target)
		return
	}

	if err := ref.Send(randomMessage()); err != nil {
		x.ctx.Logger().Warnf("failed to send to %s: %v", x.target, err)
		return
	}
	x.sent.Inc()
	x.latch.CountDown()
}

func (x *StringProducer) OnGetAttribute(d attribute.Descriptor) (any, error) {
	switch {
	case attribute.Equal(d, DescriptorTotalMessages):
		return int(x.sent.Load()), nil
	case attribute.Equal(d, DescriptorLatch):
		return x.latch, nil
	default:
		return nil, rerrors.NewErrUnknownAttribute(x.ctx.UnitID(), d.Name())
	}
}

func (x *StringProducer) KnownAttributes() []attribute.Descriptor {
	return []attribute.Descriptor{DescriptorTotalMessages, DescriptorLatch}
}

// RemoteStringProducer is a StringProducer whose target lives in another
// context
type RemoteStringProducer struct {
	robo.UnitBase

	ctx           robo.UnitContext
	target        string
	targetContext string
	sent          *atomic.Int64
}

var _ robo.Unit = (*RemoteStringProducer)(nil)

// NewRemoteStringProducer creates a RemoteStringProducer
func NewRemoteStringProducer() *RemoteStringProducer {
	return &RemoteStringProducer{sent: atomic.NewInt64(0)}
}

func (x *RemoteStringProducer) OnInitialize(ctx robo.UnitContext, cfg *config.Configuration) error {
	target, err := cfg.RequiredString(KeyTarget)
	if err != nil {
		return err
	}
	targetContext, err := cfg.RequiredString(KeyTargetContext)
	if err != nil {
		return err
	}
	x.ctx = ctx
	x.target = target
	x.targetContext = targetContext
	return nil
}

func (x *RemoteStringProducer) OnMessage(_ context.Context, msg any) {
	if msg != SendRandomMessage {
		return
	}

	ref, err := x.ctx.RemoteReference(x.targetContext, x.target)
	if err == nil {
		err = ref.Send(randomMessage())
	}
	if err != nil {
		x.ctx.Logger().Warn(fmt.Errorf("failed to send to %s/%s: %w", x.targetContext, x.target, err))
		return
	}
	x.sent.Inc()
}

func (x *RemoteStringProducer) OnGetAttribute(d attribute.Descriptor) (any, error) {
	if attribute.Equal(d, DescriptorTotalMessages) {
		return int(x.sent.Load()), nil
	}
	return nil, rerrors.NewErrUnknownAttribute(x.ctx.UnitID(), d.Name())
}

func (x *RemoteStringProducer) KnownAttributes() []attribute.Descriptor {
	return []attribute.Descriptor{DescriptorTotalMessages}
}
