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

// Package future provides a single-assignment, generic Future and its
// Completer.
//
//	f, completer := future.New[int]()
//	go func() { completer.Success(42) }()
//
//	v, err := f.Await(time.Second)
package future

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is the default error returned by Await when the deadline elapses
var ErrTimeout = errors.New("future: timeout")

// Future represents a value that becomes available at some point, or an
// error if the value could not be produced. Any number of goroutines may
// wait on the same Future.
type Future[T any] struct {
	done       chan struct{}
	once       sync.Once
	value      T
	err        error
	timeoutErr error
}

// Completer writes the outcome of a Future. Only the first call wins.
type Completer[T any] interface {
	// Success completes the Future with a value
	Success(T)
	// Failure completes the Future with an error
	Failure(error)
	// Complete completes the Future with a value or, when err is not nil, an error
	Complete(T, error)
}

// Option configures a Future
type Option func(*settings)

type settings struct {
	timeoutErr error
}

// WithTimeoutError sets the error returned by Await when the deadline elapses
func WithTimeoutError(err error) Option {
	return func(s *settings) { s.timeoutErr = err }
}

// New creates a pending Future and the Completer that finishes it
func New[T any](opts ...Option) (*Future[T], Completer[T]) {
	s := &settings{timeoutErr: ErrTimeout}
	for _, opt := range opts {
		opt(s)
	}
	f := &Future[T]{
		done:       make(chan struct{}),
		timeoutErr: s.timeoutErr,
	}
	return f, &completer[T]{future: f}
}

// Run executes task on a new goroutine and completes the returned Future
// with its outcome.
func Run[T any](task func() (T, error), opts ...Option) *Future[T] {
	f, c := New[T](opts...)
	go func() {
		c.Complete(task())
	}()
	return f
}

// Completed returns a Future already holding v
func Completed[T any](v T) *Future[T] {
	f, c := New[T]()
	c.Success(v)
	return f
}

// Failed returns a Future already holding err
func Failed[T any](err error) *Future[T] {
	f, c := New[T]()
	c.Failure(err)
	return f
}

// Map returns a Future holding fn applied to the value of f
func Map[T, R any](f *Future[T], fn func(T) (R, error)) *Future[R] {
	out, c := New[R](WithTimeoutError(f.timeoutErr))
	go func() {
		<-f.done
		if f.err != nil {
			c.Failure(f.err)
			return
		}
		c.Complete(fn(f.value))
	}()
	return out
}

// Await blocks until the Future completes or timeout elapses. A timeout of
// zero or less waits forever. On timeout the configured timeout error is
// returned and the Future stays pending.
func (f *Future[T]) Await(timeout time.Duration) (T, error) {
	if timeout <= 0 {
		<-f.done
		return f.value, f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		var zero T
		return zero, f.timeoutErr
	}
}

// Get blocks until the Future completes or ctx is done. When the context
// deadline elapses the configured timeout error is returned.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, f.timeoutErr
		}
		return zero, ctx.Err()
	}
}

// Poll returns the outcome without blocking. The last value reports whether
// the Future has completed.
func (f *Future[T]) Poll() (T, error, bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

// Done returns a channel closed once the Future completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[T]) complete(v T, err error) {
	f.once.Do(func() {
		f.value = v
		f.err = err
		close(f.done)
	})
}

type completer[T any] struct {
	future *Future[T]
}

func (c *completer[T]) Success(v T) {
	c.future.complete(v, nil)
}

func (c *completer[T]) Failure(err error) {
	var zero T
	c.future.complete(zero, err)
}

func (c *completer[T]) Complete(v T, err error) {
	if err != nil {
		c.Failure(err)
		return
	}
	c.Success(v)
}
