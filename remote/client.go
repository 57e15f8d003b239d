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
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	rerrors "github.com/tochemey/robokit/errors"
	imetric "github.com/tochemey/robokit/internal/metric"
	"github.com/tochemey/robokit/internal/tcp"
	"github.com/tochemey/robokit/log"
)

// ErrClientClosed is returned when using a closed Client
var ErrClientClosed = errors.New("remote: client is closed")

// ClientOption configures a Client
type ClientOption func(*Client)

// WithClientLogger sets the client logger
func WithClientLogger(logger log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithClientMetric records sent messages and failures
func WithClientMetric(m *imetric.RemoteMetric) ClientOption {
	return func(c *Client) { c.metric = m }
}

// WithSourceContext sets the context id stamped on outgoing envelopes
func WithSourceContext(id string) ClientOption {
	return func(c *Client) { c.source = id }
}

// Client sends envelopes to remote contexts. It keeps one connection pool per
// endpoint address. Client is safe for concurrent use.
type Client struct {
	config     *Config
	codec      *tcp.Codec
	serializer *Serializer
	logger     log.Logger
	metric     *imetric.RemoteMetric
	source     string

	mu      sync.Mutex
	clients map[string]*tcp.Client
	closed  *atomic.Bool
}

// NewClient creates a Client
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	codec, err := config.codec()
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:     config,
		codec:      codec,
		serializer: NewSerializer(),
		logger:     log.DefaultLogger,
		clients:    make(map[string]*tcp.Client),
		closed:     atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Tell writes a fire-and-forget envelope to the endpoint address
func (c *Client) Tell(ctx context.Context, addr string, envelope *Envelope) error {
	client, err := c.client(addr)
	if err != nil {
		return err
	}

	body, err := c.serializer.MarshalEnvelope(envelope)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.WriteTimeout())
	defer cancel()
	return client.Send(ctx, body)
}

// Ask writes a request envelope and waits for its response on the same
// connection
func (c *Client) Ask(ctx context.Context, addr string, envelope *Envelope) (*Envelope, error) {
	client, err := c.client(addr)
	if err != nil {
		return nil, err
	}

	if envelope.CorrelationID == "" {
		envelope.CorrelationID = uuid.NewString()
	}

	body, err := c.serializer.MarshalEnvelope(envelope)
	if err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.AttributeTimeout())
		defer cancel()
	}

	raw, err := client.Exchange(ctx, body)
	if err != nil {
		return nil, err
	}

	response, err := c.serializer.UnmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}

	if response.Kind != KindAttributeResponse || response.CorrelationID != envelope.CorrelationID {
		return nil, fmt.Errorf("%w: unexpected %s response", ErrInvalidEnvelope, response.Kind)
	}
	return response, nil
}

// SendMessage serializes msg and tells it to a unit of the remote context.
// Failures are logged and counted before being returned.
func (c *Client) SendMessage(ctx context.Context, addr, targetContext, unitID string, msg any) error {
	err := c.sendMessage(ctx, addr, targetContext, unitID, msg)
	attrs := metric.WithAttributes(
		attribute.String("context", targetContext),
		attribute.String("unit", unitID))

	if err != nil {
		c.logger.Warnf("failed to send message to unit %s of context %s (%s): %v", unitID, targetContext, addr, err)
		if c.metric != nil {
			c.metric.SendFailures().Add(ctx, 1, attrs)
		}
		return err
	}

	if c.metric != nil {
		c.metric.Sent().Add(ctx, 1, attrs)
	}
	return nil
}

func (c *Client) sendMessage(ctx context.Context, addr, targetContext, unitID string, msg any) error {
	payload, err := c.serializer.Serialize(msg)
	if err != nil {
		return err
	}

	return c.Tell(ctx, addr, &Envelope{
		Kind:          KindTell,
		SourceContext: c.source,
		TargetContext: targetContext,
		UnitID:        unitID,
		Payload:       payload,
	})
}

// GetAttribute reads an attribute of a unit of the remote context. Errors
// reported by the remote side are mapped back to their sentinels.
func (c *Client) GetAttribute(ctx context.Context, addr, targetContext, unitID, name, typeName string) (any, error) {
	response, err := c.Ask(ctx, addr, &Envelope{
		Kind:          KindAttributeRequest,
		SourceContext: c.source,
		TargetContext: targetContext,
		UnitID:        unitID,
		Attribute:     name,
		AttributeType: typeName,
	})
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("(unit=%s, attribute=%s) %w", unitID, name, rerrors.ErrAttributeTimeout)
		}
		return nil, err
	}

	if response.Error != "" || response.ErrorCode != "" {
		return nil, rerrors.FromCode(response.ErrorCode, response.Error)
	}

	return c.serializer.Deserialize(response.Payload)
}

// Close closes every pooled connection. Close is idempotent.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	clients := c.clients
	c.clients = make(map[string]*tcp.Client)
	c.mu.Unlock()

	eg := new(errgroup.Group)
	for _, client := range clients {
		eg.Go(client.Close)
	}
	return errors.Join(eg.Wait(), c.codec.Close())
}

func (c *Client) client(addr string) (*tcp.Client, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[addr]; ok {
		return client, nil
	}

	client := tcp.NewClient(addr, c.codec,
		tcp.WithDialTimeout(c.config.DialTimeout()),
		tcp.WithMaxIdleConns(c.config.MaxIdleConns()))
	c.clients[addr] = client
	return client, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
