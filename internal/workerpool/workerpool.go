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

package workerpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"go.uber.org/atomic"
)

var (
	// ErrPoolSaturated is returned when the queue bound is reached
	ErrPoolSaturated = errors.New("worker pool saturated")
	// ErrPoolStopped is returned when a task is submitted to a pool that is not running
	ErrPoolStopped = errors.New("worker pool is not running")
)

// WorkerPool runs tasks on a fixed number of goroutines fed by a shared queue.
// Tasks queue when every worker is busy; when a bound is set, submission fails
// with ErrPoolSaturated once the number of pending tasks reaches it.
type WorkerPool struct {
	name    string
	size    int
	bound   int64
	onPanic func(name string, recovered any)

	tasks    *queue.Queue
	pending  *atomic.Int64
	started  *atomic.Bool
	stopping *atomic.Bool
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// New creates a WorkerPool with size workers. A size below one is raised to one.
func New(size int, opts ...Option) *WorkerPool {
	if size < 1 {
		size = 1
	}
	pool := &WorkerPool{
		name:     "workerpool",
		size:     size,
		pending:  atomic.NewInt64(0),
		started:  atomic.NewBool(false),
		stopping: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(pool)
	}
	return pool
}

// Name returns the pool name
func (p *WorkerPool) Name() string {
	return p.name
}

// Size returns the number of workers
func (p *WorkerPool) Size() int {
	return p.size
}

// Bound returns the queue bound, zero when unbounded
func (p *WorkerPool) Bound() int {
	return int(p.bound)
}

// Pending returns the number of tasks queued or running
func (p *WorkerPool) Pending() int {
	return int(p.pending.Load())
}

// Running reports whether the pool accepts tasks
func (p *WorkerPool) Running() bool {
	return p.started.Load() && !p.stopping.Load()
}

// Start spawns the workers. Starting a running pool is a no-op.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started.Load() {
		return
	}

	p.tasks = queue.New(int64(p.size))
	p.stopping.Store(false)
	p.started.Store(true)

	for range p.size {
		p.wg.Add(1)
		go p.work(p.tasks)
	}
}

// Submit queues a task
func (p *WorkerPool) Submit(task func()) error {
	if !p.Running() {
		return ErrPoolStopped
	}

	if p.bound > 0 {
		for {
			current := p.pending.Load()
			if current >= p.bound {
				return ErrPoolSaturated
			}
			if p.pending.CompareAndSwap(current, current+1) {
				break
			}
		}
	} else {
		p.pending.Inc()
	}

	if err := p.tasks.Put(task); err != nil {
		p.pending.Dec()
		return ErrPoolStopped
	}
	return nil
}

// Stop stops accepting tasks and waits for queued tasks to drain until ctx
// is done. Tasks still queued when ctx is done are dropped.
func (p *WorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started.Load() {
		return nil
	}

	p.stopping.Store(true)

	var err error
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
drain:
	for p.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break drain
		case <-ticker.C:
		}
	}

	dropped := p.tasks.Dispose()
	p.pending.Sub(int64(len(dropped)))
	if err == nil {
		p.wg.Wait()
	}
	p.started.Store(false)
	return err
}

func (p *WorkerPool) work(tasks *queue.Queue) {
	defer p.wg.Done()
	for {
		items, err := tasks.Get(1)
		if err != nil {
			return
		}
		for _, item := range items {
			if task, ok := item.(func()); ok {
				p.run(task)
			}
			p.pending.Dec()
		}
	}
}

func (p *WorkerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(p.name, r)
		}
	}()
	task()
}
