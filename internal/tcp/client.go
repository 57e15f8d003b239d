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

package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Client is a connection-pooling TCP client for a single address. It keeps a
// LIFO pool of idle connections for reuse. Stale connections are evicted
// lazily on Get.
//
// A connection obtained with Get is owned by the caller until it is returned
// with Put or Discard, and must not be shared between goroutines.
type Client struct {
	addr        string
	codec       *Codec
	dialer      net.Dialer
	dialRetries int
	maxIdle     int
	idleTimeout time.Duration

	mu     sync.Mutex
	idle   []idleConn
	closed *atomic.Bool
}

type idleConn struct {
	conn  net.Conn
	since time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMaxIdleConns sets the maximum number of idle connections kept in the
// pool. Zero disables pooling.
func WithMaxIdleConns(n int) ClientOption {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxIdle = n
	}
}

// WithIdleTimeout sets how long an idle connection stays in the pool
func WithIdleTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.idleTimeout = d }
}

// WithDialTimeout sets the timeout of a single dial attempt
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.dialer.Timeout = d
		}
	}
}

// WithDialRetries sets how many times a failed dial is retried
func WithDialRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.dialRetries = n
		}
	}
}

// NewClient creates a Client for addr (host:port) using codec for framing.
//
// Defaults: 4 max idle connections, 30s idle timeout, 2s dial timeout,
// 2 dial retries.
func NewClient(addr string, codec *Codec, opts ...ClientOption) *Client {
	c := &Client{
		addr:        addr,
		codec:       codec,
		dialRetries: 2,
		maxIdle:     4,
		idleTimeout: 30 * time.Second,
		closed:      atomic.NewBool(false),
		dialer: net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.idle = make([]idleConn, 0, c.maxIdle)
	return c
}

// Addr returns the target address
func (c *Client) Addr() string {
	return c.addr
}

// Get returns a pooled connection or dials a new one. The caller must call
// Put after a successful exchange or Discard on error.
func (c *Client) Get(ctx context.Context) (net.Conn, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	cutoff := time.Now().Add(-c.idleTimeout)

	c.mu.Lock()
	for len(c.idle) > 0 {
		n := len(c.idle)
		ic := c.idle[n-1]
		c.idle[n-1] = idleConn{}
		c.idle = c.idle[:n-1]

		if ic.since.Before(cutoff) {
			_ = ic.conn.Close()
			continue
		}

		c.mu.Unlock()
		return ic.conn, nil
	}
	c.mu.Unlock()

	return c.dial(ctx)
}

// Put returns a healthy connection to the idle pool. The connection is
// closed when the pool is full.
func (c *Client) Put(conn net.Conn) {
	if c.closed.Load() {
		_ = conn.Close()
		return
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = conn.Close()
		return
	}

	c.mu.Lock()
	if len(c.idle) < c.maxIdle {
		c.idle = append(c.idle, idleConn{conn: conn, since: time.Now()})
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	_ = conn.Close()
}

// Discard closes a connection without returning it to the pool
func (c *Client) Discard(conn net.Conn) {
	_ = conn.Close()
}

// Send writes body as a single frame. When ctx carries a deadline it is used
// as the write deadline.
func (c *Client) Send(ctx context.Context, body []byte) error {
	frame, err := c.codec.Encode(body)
	if err != nil {
		return err
	}

	conn, err := c.Get(ctx)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			c.Discard(conn)
			return err
		}
	}

	if _, err := conn.Write(frame); err != nil {
		c.Discard(conn)
		return err
	}

	c.Put(conn)
	return nil
}

// Exchange writes body as a frame and waits for the response frame on the
// same connection. When ctx carries a deadline it bounds the whole exchange.
func (c *Client) Exchange(ctx context.Context, body []byte) ([]byte, error) {
	frame, err := c.codec.Encode(body)
	if err != nil {
		return nil, err
	}

	conn, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			c.Discard(conn)
			return nil, err
		}
	}

	// a cancelled ctx interrupts the pending read
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(frame); err != nil {
		c.Discard(conn)
		return nil, err
	}

	resp, err := c.codec.ReadFrame(conn)
	if err != nil {
		c.Discard(conn)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if !stop() {
		c.Discard(conn)
		return resp, nil
	}

	c.Put(conn)
	return resp, nil
}

// Close shuts down the client and closes all pooled connections.
// Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	idle := c.idle
	c.idle = nil
	c.mu.Unlock()

	var err error
	for i := range idle {
		err = multierr.Append(err, idle[i].conn.Close())
	}
	return err
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	var conn net.Conn
	retrier := retry.NewRetrier(c.dialRetries+1, 50*time.Millisecond, c.dialer.Timeout)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		raw, err := c.dialer.DialContext(ctx, "tcp", c.addr)
		if err != nil {
			return err
		}
		conn = raw
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}
