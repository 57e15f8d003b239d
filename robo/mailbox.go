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
	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"
)

const (
	idle int32 = iota
	busy
	closed
)

// mailboxHint sizes the first chunk of a mailbox queue
const mailboxHint = 16

// mailbox queues the messages of a unit in arrival order and records whether
// a drain owns it. Any number of senders put concurrently. Only the drain
// that won the claim takes messages.
type mailbox struct {
	messages *queue.Queue
	state    *atomic.Int32
}

func newMailbox() *mailbox {
	return &mailbox{
		messages: queue.New(mailboxHint),
		state:    atomic.NewInt32(idle),
	}
}

// put appends msg. It fails once the mailbox is closed.
func (m *mailbox) put(msg any) error {
	return m.messages.Put(msg)
}

// claim hands the mailbox to the caller when it holds messages and no drain
// owns it
func (m *mailbox) claim() bool {
	return !m.messages.Empty() && m.state.CompareAndSwap(idle, busy)
}

// take returns the next message. Only the owner of the claim calls it, so a
// non empty queue never blocks Get.
func (m *mailbox) take() (any, bool) {
	if m.messages.Empty() {
		return nil, false
	}
	items, err := m.messages.Get(1)
	if err != nil || len(items) == 0 {
		return nil, false
	}
	return items[0], true
}

// unclaim gives the claim back
func (m *mailbox) unclaim() {
	m.state.CompareAndSwap(busy, idle)
}

// release gives the claim back and claims it again when a message landed
// after the last take. It reports whether the caller still owns the mailbox.
func (m *mailbox) release() bool {
	m.unclaim()
	return m.claim()
}

// close drops the pending messages and returns how many were dropped
func (m *mailbox) close() int {
	m.state.Store(closed)
	return len(m.messages.Dispose())
}
