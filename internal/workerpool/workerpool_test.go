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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestWorkerPool(t *testing.T) {
	t.Run("With tasks run", func(t *testing.T) {
		pool := New(4, WithName("worker"))
		pool.Start()
		assert.True(t, pool.Running())
		assert.Equal(t, "worker", pool.Name())
		assert.Equal(t, 4, pool.Size())

		count := atomic.NewInt32(0)
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			require.NoError(t, pool.Submit(func() {
				defer wg.Done()
				count.Inc()
			}))
		}
		wg.Wait()
		assert.EqualValues(t, 100, count.Load())
		require.NoError(t, pool.Stop(context.Background()))
		assert.False(t, pool.Running())
	})
	t.Run("With fixed concurrency", func(t *testing.T) {
		pool := New(2)
		pool.Start()

		active := atomic.NewInt32(0)
		peak := atomic.NewInt32(0)
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			require.NoError(t, pool.Submit(func() {
				defer wg.Done()
				n := active.Inc()
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				active.Dec()
			}))
		}
		wg.Wait()
		assert.LessOrEqual(t, peak.Load(), int32(2))
		require.NoError(t, pool.Stop(context.Background()))
	})
	t.Run("With queue bound", func(t *testing.T) {
		pool := New(1, WithQueueBound(2))
		pool.Start()

		release := make(chan struct{})
		require.NoError(t, pool.Submit(func() { <-release }))
		require.NoError(t, pool.Submit(func() {}))
		assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolSaturated)
		assert.Equal(t, 2, pool.Pending())
		assert.Equal(t, 2, pool.Bound())

		close(release)
		require.NoError(t, pool.Stop(context.Background()))
		assert.Zero(t, pool.Pending())
	})
	t.Run("With submit after stop", func(t *testing.T) {
		pool := New(1)
		assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolStopped)
		pool.Start()
		require.NoError(t, pool.Stop(context.Background()))
		assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolStopped)
	})
	t.Run("With stop deadline", func(t *testing.T) {
		pool := New(1)
		pool.Start()
		release := make(chan struct{})
		defer close(release)
		require.NoError(t, pool.Submit(func() { <-release }))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, pool.Stop(ctx), context.DeadlineExceeded)
	})
	t.Run("With panic recovered", func(t *testing.T) {
		recovered := make(chan any, 1)
		pool := New(1, WithPanicHandler(func(_ string, r any) { recovered <- r }))
		pool.Start()
		require.NoError(t, pool.Submit(func() { panic("boom") }))

		select {
		case r := <-recovered:
			assert.Equal(t, "boom", r)
		case <-time.After(time.Second):
			t.Fatal("panic was not reported")
		}

		done := make(chan struct{})
		require.NoError(t, pool.Submit(func() { close(done) }))
		<-done
		require.NoError(t, pool.Stop(context.Background()))
	})
	t.Run("With restart", func(t *testing.T) {
		pool := New(1)
		pool.Start()
		require.NoError(t, pool.Stop(context.Background()))
		pool.Start()
		done := make(chan struct{})
		require.NoError(t, pool.Submit(func() { close(done) }))
		<-done
		require.NoError(t, pool.Stop(context.Background()))
	})
}
