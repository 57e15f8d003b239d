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

// Package units provides the string units used to exercise a context: a
// producer sending random strings, a consumer recording them and a producer
// reaching a consumer hosted by another context.
package units

import (
	"github.com/google/uuid"

	"github.com/tochemey/robokit/attribute"
	"github.com/tochemey/robokit/robo"
)

// Type tags
const (
	StringProducerType       = "stringProducer"
	StringConsumerType       = "stringConsumer"
	RemoteStringProducerType = "remoteStringProducer"
)

// Configuration keys
const (
	KeyTarget        = "target"
	KeyTargetContext = "targetContext"
	KeyTotalMessages = "totalMessages"
)

// SendRandomMessage asks a producer to send a random string to its target
const SendRandomMessage = "sendRandomMessage"

// Attributes published by the string units
var (
	DescriptorTotalMessages    = attribute.New[int]("getNumberOfSentMessages")
	DescriptorReceivedMessages = attribute.New[[]string]("getReceivedMessages")
	DescriptorLatch            = attribute.New[*Latch]("getLatch")
)

// Register binds the string units to their type tags
func Register(registry *robo.Registry) {
	registry.Register(StringProducerType, func() robo.Unit { return NewStringProducer() })
	registry.Register(StringConsumerType, func() robo.Unit { return NewStringConsumer() })
	registry.Register(RemoteStringProducerType, func() robo.Unit { return NewRemoteStringProducer() })
}

func init() {
	Register(robo.DefaultRegistry)
}

func randomMessage() string {
	return uuid.NewString()
}
