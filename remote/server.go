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

package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"

	rerrors "github.com/tochemey/robokit/errors"
	imetric "github.com/tochemey/robokit/internal/metric"
	"github.com/tochemey/robokit/internal/tcp"
	"github.com/tochemey/robokit/log"
)

// Handler receives the requests decoded by a Server
type Handler interface {
	// Tell delivers msg to the unit
	Tell(ctx context.Context, unitID string, msg any) error
	// Attribute reads an attribute of the unit
	Attribute(ctx context.Context, unitID, name, typeName string) (any, error)
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets the server logger
func WithServerLogger(logger log.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// WithServerMetric records received messages
func WithServerMetric(m *imetric.RemoteMetric) ServerOption {
	return func(s *Server) { s.metric = m }
}

// WithContextID sets the id of the context served, used for logging and to
// reject envelopes addressed to another context
func WithContextID(id string) ServerOption {
	return func(s *Server) { s.contextID = id }
}

// Server decodes envelopes received over TCP and dispatches them to a Handler
type Server struct {
	config     *Config
	handler    Handler
	serializer *Serializer
	logger     log.Logger
	metric     *imetric.RemoteMetric
	contextID  string

	mu      sync.Mutex
	codec   *tcp.Codec
	server  *tcp.Server
	addr    *net.TCPAddr
	serveWg sync.WaitGroup
	started *atomic.Bool
}

// NewServer creates a Server for the given configuration and handler
func NewServer(config *Config, handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		config:     config,
		handler:    handler,
		serializer: NewSerializer(),
		logger:     log.DefaultLogger,
		started:    atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listener and serves in the background
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started.Load() {
		return rerrors.ErrAlreadyStarted
	}

	if err := s.config.Validate(); err != nil {
		return err
	}

	codec, err := s.config.codec()
	if err != nil {
		return err
	}

	hostPort := net.JoinHostPort(s.config.Host(), strconv.Itoa(s.config.Port()))
	server, err := tcp.NewServer(hostPort, tcp.WithRequestHandler(s.serveConn))
	if err != nil {
		return errors.Join(err, codec.Close())
	}

	if err := server.Listen(); err != nil {
		return errors.Join(fmt.Errorf("failed to listen on %s: %w", hostPort, err), codec.Close())
	}

	s.codec = codec
	s.server = server
	s.addr = server.ListenAddr()
	s.started.Store(true)

	s.serveWg.Add(1)
	go func() {
		defer s.serveWg.Done()
		if err := server.Serve(); err != nil {
			s.logger.Errorf("remote server on %s stopped: %v", s.addr, err)
		}
	}()

	s.logger.Infof("remote server listening on %s", s.addr)
	return nil
}

// Stop closes the listener and waits for in-flight requests until ctx is done
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started.Load() {
		return nil
	}
	s.started.Store(false)

	timeout := s.config.WriteTimeout()
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	err := s.server.Shutdown(timeout)
	s.serveWg.Wait()
	err = errors.Join(err, s.codec.Close())
	s.logger.Infof("remote server on %s stopped", s.addr)
	return err
}

// Addr returns the bound address, nil before Start
func (s *Server) Addr() *net.TCPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound port, 0 before Start
func (s *Server) Port() int {
	if addr := s.Addr(); addr != nil {
		return addr.Port
	}
	return 0
}

// Host returns the host published to peers
func (s *Server) Host() string {
	return s.config.AdvertisedHost()
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	for {
		body, err := s.codec.ReadFrame(conn)
		if err != nil {
			return
		}

		envelope, err := s.serializer.UnmarshalEnvelope(body)
		if err != nil {
			s.logger.Warnf("dropping frame from %s: %v", conn.RemoteAddr(), err)
			continue
		}

		switch envelope.Kind {
		case KindTell:
			s.tell(ctx, envelope)
		case KindAttributeRequest:
			response := s.attribute(ctx, envelope)
			if err := s.respond(conn, response); err != nil {
				s.logger.Warnf("failed to answer attribute request from %s: %v", conn.RemoteAddr(), err)
				return
			}
		default:
			s.logger.Warnf("unexpected %s envelope from %s", envelope.Kind, conn.RemoteAddr())
		}
	}
}

func (s *Server) tell(ctx context.Context, envelope *Envelope) {
	if s.metric != nil {
		s.metric.Received().Add(ctx, 1, metric.WithAttributes(attribute.String("unit", envelope.UnitID)))
	}

	if err := s.checkTarget(envelope); err != nil {
		s.logger.Warn(err)
		return
	}

	msg, err := s.serializer.Deserialize(envelope.Payload)
	if err != nil {
		s.logger.Warnf("dropping message for unit %s from context %s: %v", envelope.UnitID, envelope.SourceContext, err)
		return
	}

	if err := s.handler.Tell(ctx, envelope.UnitID, msg); err != nil {
		s.logger.Warnf("failed to deliver message from context %s to unit %s: %v", envelope.SourceContext, envelope.UnitID, err)
	}
}

func (s *Server) attribute(ctx context.Context, envelope *Envelope) *Envelope {
	response := &Envelope{
		Kind:          KindAttributeResponse,
		CorrelationID: envelope.CorrelationID,
		SourceContext: s.contextID,
		TargetContext: envelope.SourceContext,
		UnitID:        envelope.UnitID,
		Attribute:     envelope.Attribute,
		AttributeType: envelope.AttributeType,
	}

	fail := func(err error) *Envelope {
		response.Error = err.Error()
		response.ErrorCode = rerrors.Code(err)
		return response
	}

	if err := s.checkTarget(envelope); err != nil {
		return fail(err)
	}

	value, err := s.handler.Attribute(ctx, envelope.UnitID, envelope.Attribute, envelope.AttributeType)
	if err != nil {
		return fail(err)
	}

	payload, err := s.serializer.Serialize(value)
	if err != nil {
		return fail(err)
	}
	response.Payload = payload
	return response
}

func (s *Server) checkTarget(envelope *Envelope) error {
	if s.contextID != "" && envelope.TargetContext != "" && envelope.TargetContext != s.contextID {
		return rerrors.NewErrUnitNotFound(envelope.TargetContext + "/" + envelope.UnitID)
	}
	return nil
}

func (s *Server) respond(conn net.Conn, envelope *Envelope) error {
	body, err := s.serializer.MarshalEnvelope(envelope)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout())); err != nil {
		return err
	}
	return s.codec.WriteFrame(conn, body)
}
