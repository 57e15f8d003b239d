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
	"runtime"
	"time"

	"github.com/tochemey/robokit/log"
)

// Default pool sizes
const (
	DefaultTimedPoolSize    = 2
	DefaultBlockingPoolSize = 4
	DefaultStopTimeout      = 5 * time.Second
)

// Pool names a scheduler pool
type Pool int

const (
	// WorkerPool runs message deliveries and short unit work
	WorkerPool Pool = iota
	// BlockingPool runs work expected to block on I/O
	BlockingPool
	// TimedPool runs delayed and periodic jobs
	TimedPool
)

// String returns the pool name
func (p Pool) String() string {
	switch p {
	case WorkerPool:
		return "worker"
	case BlockingPool:
		return "blocking"
	case TimedPool:
		return "scheduler"
	default:
		return "unknown"
	}
}

// Option is the interface that applies a Scheduler option.
type Option interface {
	// Apply sets the Option value of a Scheduler.
	Apply(scheduler *Scheduler)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(scheduler *Scheduler)

// Apply applies the Scheduler option
func (f OptionFunc) Apply(scheduler *Scheduler) {
	f(scheduler)
}

// WithWorkerPoolSize sets the number of worker pool goroutines
func WithWorkerPoolSize(size int) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		if size > 0 {
			scheduler.workerSize = size
		}
	})
}

// WithBlockingPoolSize sets the number of blocking pool goroutines
func WithBlockingPoolSize(size int) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		if size > 0 {
			scheduler.blockingSize = size
		}
	})
}

// WithTimedPoolSize sets the number of goroutines running timed jobs
func WithTimedPoolSize(size int) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		if size > 0 {
			scheduler.timedSize = size
		}
	})
}

// WithQueueBound caps the number of pending tasks of a pool. For the timed
// pool it caps the number of live jobs. Zero means unbounded.
func WithQueueBound(pool Pool, bound int) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		switch pool {
		case WorkerPool:
			scheduler.workerBound = bound
		case BlockingPool:
			scheduler.blockingBound = bound
		case TimedPool:
			scheduler.timedBound = bound
		default:
		}
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		scheduler.logger = logger
	})
}

// WithStopTimeout sets how long Stop waits for running work
func WithStopTimeout(timeout time.Duration) Option {
	return OptionFunc(func(scheduler *Scheduler) {
		scheduler.stopTimeout = timeout
	})
}

func defaultWorkerPoolSize() int {
	return runtime.NumCPU()
}

// JobOption configures a scheduled job
type JobOption func(*jobSettings)

type jobSettings struct {
	runCount int64
}

// WithRunCount limits a periodic job to n executions. Zero means forever.
func WithRunCount(n int) JobOption {
	return func(s *jobSettings) {
		if n > 0 {
			s.runCount = int64(n)
		}
	}
}
