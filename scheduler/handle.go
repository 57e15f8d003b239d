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

package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// Handle controls a scheduled job
type Handle struct {
	id        string
	scheduler *Scheduler
	task      func(ctx context.Context)
	periodic  bool
	interval  time.Duration
	maxRuns   int64

	key       *atomic.String
	claimed   *atomic.Int64
	runs      *atomic.Int64
	cancelled *atomic.Bool
	finished  *atomic.Bool
}

func newHandle(s *Scheduler, task func(ctx context.Context), periodic bool, maxRuns int64) *Handle {
	return &Handle{
		id:        uuid.NewString(),
		scheduler: s,
		task:      task,
		periodic:  periodic,
		maxRuns:   maxRuns,
		key:       atomic.NewString(""),
		claimed:   atomic.NewInt64(0),
		runs:      atomic.NewInt64(0),
		cancelled: atomic.NewBool(false),
		finished:  atomic.NewBool(false),
	}
}

// ID returns the handle identifier
func (h *Handle) ID() string {
	return h.id
}

// Runs returns the number of completed executions
func (h *Handle) Runs() int {
	return int(h.runs.Load())
}

// Cancelled reports whether Cancel was called or the scheduler stopped
func (h *Handle) Cancelled() bool {
	return h.cancelled.Load()
}

// Done reports whether the job will not run again
func (h *Handle) Done() bool {
	return h.cancelled.Load() || h.finished.Load()
}

// Cancel prevents any future execution of the job. A job cancelled before its
// first run never runs. Cancelling while the task is running does not
// interrupt it. Cancel returns false when the job had already finished or was
// already cancelled.
func (h *Handle) Cancel() bool {
	if h.finished.Load() {
		return false
	}
	if !h.cancelled.CompareAndSwap(false, true) {
		return false
	}
	h.scheduler.deleteJob(h)
	return true
}

// fire runs one execution of the task. It reports whether the task ran.
func (h *Handle) fire(ctx context.Context) bool {
	if h.Done() || !h.scheduler.IsStarted() {
		return false
	}
	if h.maxRuns > 0 && h.claimed.Inc() > h.maxRuns {
		return false
	}

	h.run(ctx)
	runs := h.runs.Inc()

	switch {
	case !h.periodic, h.maxRuns > 0 && runs >= h.maxRuns:
		h.finish()
	case !h.cancelled.Load():
		h.scheduler.reschedule(h)
	}
	return true
}

func (h *Handle) finish() {
	h.finished.Store(true)
	h.scheduler.untrack(h)
}

func (h *Handle) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			h.scheduler.logger.Errorf("recovered panic in scheduled job %s: %v", h.id, r)
		}
	}()
	h.task(ctx)
}
