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
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// RequestHandlerFunc serves an accepted connection. The connection is closed
// once the handler returns.
type RequestHandlerFunc func(ctx context.Context, conn net.Conn)

// ServerOption configures a Server before it is started.
type ServerOption func(*Server)

// WithRequestHandler sets the callback invoked for every accepted connection
func WithRequestHandler(f RequestHandlerFunc) ServerOption {
	return func(s *Server) { s.requestHandler = f }
}

// WithListenConfig overrides the socket options of the listener
func WithListenConfig(config *ListenConfig) ServerOption {
	return func(s *Server) {
		if config != nil {
			s.listenConfig = config
		}
	}
}

// WithMaxConnections caps the number of connections served at once. Extra
// connections are closed on accept. Zero means unlimited.
func WithMaxConnections(limit int32) ServerOption {
	return func(s *Server) { s.maxConns = limit }
}

// Server accepts TCP connections and hands each one to a RequestHandlerFunc
// on its own goroutine.
//
// Create a Server with NewServer, then call Listen followed by Serve. Use
// Shutdown from another goroutine to stop it.
type Server struct {
	listenAddr     *net.TCPAddr
	listener       *net.TCPListener
	listenConfig   *ListenConfig
	requestHandler RequestHandlerFunc
	maxConns       int32

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[net.Conn]struct{}

	connWaitGroup     sync.WaitGroup
	activeConnections *atomic.Int32
	acceptedConns     *atomic.Int64
	shutdown          *atomic.Bool
}

// NewServer creates a Server bound to the given address (host:port)
func NewServer(listenAddr string, opts ...ServerOption) (*Server, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("resolving address %q: %w", listenAddr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		listenAddr:        tcpAddr,
		listenConfig:      &ListenConfig{SocketReuseAddr: true},
		requestHandler:    func(context.Context, net.Conn) {},
		ctx:               ctx,
		cancel:            cancel,
		conns:             make(map[net.Conn]struct{}),
		activeConnections: atomic.NewInt32(0),
		acceptedConns:     atomic.NewInt64(0),
		shutdown:          atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Listen creates the TCP listener
func (s *Server) Listen() error {
	if s.shutdown.Load() {
		return ErrServerClosed
	}

	network := "tcp4"
	if s.listenAddr.IP.To4() == nil && len(s.listenAddr.IP) == net.IPv6len {
		network = "tcp6"
	}

	lc := net.ListenConfig{Control: s.listenConfig.control()}
	listener, err := lc.Listen(s.ctx, network, s.listenAddr.String())
	if err != nil {
		return err
	}

	tcpListener, ok := listener.(*net.TCPListener)
	if !ok {
		return errors.Join(listener.Close(), errors.New("listener is not a TCP listener"))
	}
	s.listener = tcpListener
	return nil
}

// ListenAddr returns the address the server is listening on, which is useful
// when the server was started on port 0. It returns nil before Listen.
func (s *Server) ListenAddr() *net.TCPAddr {
	if s.listener == nil {
		return nil
	}
	addr, _ := s.listener.Addr().(*net.TCPAddr)
	return addr
}

// ActiveConnections returns the number of connections being served
func (s *Server) ActiveConnections() int32 {
	return s.activeConnections.Load()
}

// AcceptedConnections returns the number of connections accepted since start
func (s *Server) AcceptedConnections() int64 {
	return s.acceptedConns.Load()
}

// Serve runs the accept loop and blocks until the server is shut down
func (s *Server) Serve() error {
	if s.listener == nil {
		return ErrNoListener
	}

	for {
		conn, err := s.listener.AcceptTCP()
		if err != nil {
			if s.shutdown.Load() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		s.acceptedConns.Inc()
		if s.maxConns > 0 && s.activeConnections.Load() >= s.maxConns {
			_ = conn.Close()
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}

		go s.serveConn(conn)
	}
}

// Shutdown stops accepting connections and waits up to timeout for the
// handlers to return. Idle connections are interrupted immediately.
// Shutdown is idempotent.
func (s *Server) Shutdown(timeout time.Duration) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	// unblock handlers parked on a read
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.SetReadDeadline(time.Now())
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.connWaitGroup.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
	case <-timer.C:
		s.mu.Lock()
		for conn := range s.conns {
			_ = conn.Close()
		}
		s.mu.Unlock()
		<-done
	}
	return err
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutdown.Load() {
		return false
	}
	s.conns[conn] = struct{}{}
	s.connWaitGroup.Add(1)
	s.activeConnections.Inc()
	return true
}

func (s *Server) serveConn(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.activeConnections.Dec()
		s.connWaitGroup.Done()
	}()
	s.requestHandler(s.ctx, conn)
}
