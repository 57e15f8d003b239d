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

// Package scheduler provides the three execution pools exposed to units: the
// worker pool for message deliveries, the blocking pool for I/O bound work and
// the timed pool for delayed and periodic jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reugn/go-quartz/job"
	quartzlogger "github.com/reugn/go-quartz/logger"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/atomic"

	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/internal/workerpool"
	"github.com/tochemey/robokit/log"
)

// Scheduler owns the worker, blocking and timed pools.
//
// Pools queue work when saturated. When a queue bound is configured,
// submissions beyond it fail with ErrSchedulerSaturated. The bound of the
// timed pool counts the jobs that are scheduled and not yet done.
type Scheduler struct {
	mu sync.Mutex

	workerSize    int
	blockingSize  int
	timedSize     int
	workerBound   int
	blockingBound int
	timedBound    int
	stopTimeout   time.Duration
	logger        log.Logger

	worker   *workerpool.WorkerPool
	blocking *workerpool.WorkerPool
	timed    quartz.Scheduler
	started  *atomic.Bool

	handlesMu sync.Mutex
	handles   map[string]*Handle
}

// New creates a Scheduler. Call Start before submitting work.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		workerSize:   defaultWorkerPoolSize(),
		blockingSize: DefaultBlockingPoolSize,
		timedSize:    DefaultTimedPoolSize,
		stopTimeout:  DefaultStopTimeout,
		logger:       log.DefaultLogger,
		started:      atomic.NewBool(false),
		handles:      make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Size returns the number of goroutines of the given pool
func (s *Scheduler) Size(pool Pool) int {
	switch pool {
	case WorkerPool:
		return s.workerSize
	case BlockingPool:
		return s.blockingSize
	case TimedPool:
		return s.timedSize
	default:
		return 0
	}
}

// Pending returns the number of queued or running tasks of the worker or
// blocking pool, or the number of live jobs of the timed pool.
func (s *Scheduler) Pending(pool Pool) int {
	if pool == TimedPool {
		s.handlesMu.Lock()
		defer s.handlesMu.Unlock()
		return len(s.handles)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch pool {
	case WorkerPool:
		if s.worker != nil {
			return s.worker.Pending()
		}
	case BlockingPool:
		if s.blocking != nil {
			return s.blocking.Pending()
		}
	default:
	}
	return 0
}

// IsStarted reports whether the scheduler accepts work
func (s *Scheduler) IsStarted() bool {
	return s.started.Load()
}

// Start starts the three pools. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return nil
	}

	s.logger.Info("starting scheduler...")

	timed, err := quartz.NewStdScheduler(
		quartz.WithLogger(quartzlogger.NewSimpleLogger(nil, quartzlogger.LevelOff)),
		quartz.WithWorkerLimit(s.timedSize))
	if err != nil {
		return fmt.Errorf("failed to create timed pool: %w", err)
	}

	onPanic := func(name string, recovered any) {
		s.logger.Errorf("recovered panic in %s pool: %v", name, recovered)
	}

	s.worker = workerpool.New(s.workerSize,
		workerpool.WithName(WorkerPool.String()),
		workerpool.WithQueueBound(s.workerBound),
		workerpool.WithPanicHandler(onPanic))
	s.blocking = workerpool.New(s.blockingSize,
		workerpool.WithName(BlockingPool.String()),
		workerpool.WithQueueBound(s.blockingBound),
		workerpool.WithPanicHandler(onPanic))

	s.worker.Start()
	s.blocking.Start()
	timed.Start(context.WithoutCancel(ctx))
	s.timed = timed
	s.started.Store(true)

	s.logger.Infof("scheduler started (worker=%d, blocking=%d, timed=%d)", s.workerSize, s.blockingSize, s.timedSize)
	return nil
}

// Stop cancels every scheduled job and drains the worker and blocking pools.
// No scheduled job is resubmitted after Stop returns.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started.Load() {
		s.mu.Unlock()
		return nil
	}

	s.logger.Info("stopping scheduler...")
	s.started.Store(false)

	s.handlesMu.Lock()
	for id, h := range s.handles {
		h.cancelled.Store(true)
		delete(s.handles, id)
	}
	s.handlesMu.Unlock()

	timed, worker, blocking := s.timed, s.worker, s.blocking
	_ = timed.Clear()
	timed.Stop()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.stopTimeout)
	defer cancel()
	timed.Wait(ctx)

	err := errors.Join(worker.Stop(ctx), blocking.Stop(ctx))
	s.logger.Info("scheduler stopped")
	return err
}

// Execute runs task on the worker pool
func (s *Scheduler) Execute(task func()) error {
	return s.submit(WorkerPool, task)
}

// ExecuteBlocking runs task on the blocking pool
func (s *Scheduler) ExecuteBlocking(task func()) error {
	return s.submit(BlockingPool, task)
}

// Schedule runs task once on the timed pool after delay
func (s *Scheduler) Schedule(delay time.Duration, task func(ctx context.Context)) (*Handle, error) {
	return s.schedule(newHandle(s, task, false, 1), delay)
}

// SchedulePeriodic runs task on the timed pool after initialDelay and then
// interval after the end of each run, until the handle is cancelled, the run
// count is reached or the scheduler stops. Runs of one job never overlap.
func (s *Scheduler) SchedulePeriodic(initialDelay, interval time.Duration, task func(ctx context.Context), opts ...JobOption) (*Handle, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("periodic interval must be positive, got %s", interval)
	}

	settings := new(jobSettings)
	for _, opt := range opts {
		opt(settings)
	}

	h := newHandle(s, task, true, settings.runCount)
	h.interval = interval
	return s.schedule(h, initialDelay)
}

func (s *Scheduler) schedule(h *Handle, delay time.Duration) (*Handle, error) {
	if err := s.track(h); err != nil {
		return nil, err
	}
	if err := s.scheduleJob(h, delay); err != nil {
		s.untrack(h)
		return nil, err
	}
	return h, nil
}

func (s *Scheduler) submit(pool Pool, task func()) error {
	if !s.started.Load() {
		return fmt.Errorf("(pool=%s) %w", pool, rerrors.ErrSchedulerStopped)
	}

	s.mu.Lock()
	target := s.worker
	if pool == BlockingPool {
		target = s.blocking
	}
	s.mu.Unlock()

	switch err := target.Submit(task); {
	case err == nil:
		return nil
	case errors.Is(err, workerpool.ErrPoolSaturated):
		return fmt.Errorf("(pool=%s) %w", pool, rerrors.ErrSchedulerSaturated)
	default:
		return fmt.Errorf("(pool=%s) %w", pool, rerrors.ErrSchedulerStopped)
	}
}

// track registers a new job of the timed pool
func (s *Scheduler) track(h *Handle) error {
	s.handlesMu.Lock()
	defer s.handlesMu.Unlock()
	if s.timedBound > 0 && len(s.handles) >= s.timedBound {
		return fmt.Errorf("(pool=%s) %w", TimedPool, rerrors.ErrSchedulerSaturated)
	}
	s.handles[h.id] = h
	return nil
}

func (s *Scheduler) untrack(h *Handle) {
	s.handlesMu.Lock()
	delete(s.handles, h.id)
	s.handlesMu.Unlock()
}

// scheduleJob registers a one-shot quartz job running the handle's task after delay
func (s *Scheduler) scheduleJob(h *Handle, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return fmt.Errorf("(pool=%s) %w", TimedPool, rerrors.ErrSchedulerStopped)
	}

	if delay < 0 {
		delay = 0
	}

	key := uuid.NewString()
	h.key.Store(key)

	functionJob := job.NewFunctionJob[bool](func(ctx context.Context) (bool, error) {
		return h.fire(ctx), nil
	})

	detail := quartz.NewJobDetail(functionJob, quartz.NewJobKey(key))
	return s.timed.ScheduleJob(detail, quartz.NewRunOnceTrigger(delay))
}

// deleteJob removes the quartz job currently bound to the handle
func (s *Scheduler) deleteJob(h *Handle) {
	s.untrack(h)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started.Load() || s.timed == nil {
		return
	}
	if key := h.key.Load(); key != "" {
		_ = s.timed.DeleteJob(quartz.NewJobKey(key))
	}
}

// reschedule queues the next run of a periodic handle once the previous one
// has returned.
func (s *Scheduler) reschedule(h *Handle) {
	if err := s.scheduleJob(h, h.interval); err != nil {
		if s.started.Load() {
			s.logger.Warnf("failed to reschedule periodic job %s: %v", h.id, err)
		}
		h.finish()
		return
	}
	// a Cancel racing with the reschedule may have missed the new key
	if h.cancelled.Load() {
		s.deleteJob(h)
	}
}
