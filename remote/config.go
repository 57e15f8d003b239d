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

// Package remote carries messages and attribute queries between contexts over
// TCP. Payloads are CBOR encoded and tagged with their Go type so that the
// receiving unit sees the exact value that was sent.
package remote

import (
	"net"
	"strconv"
	"time"

	"github.com/tochemey/robokit/internal/tcp"
	"github.com/tochemey/robokit/internal/validation"
)

// Default values
const (
	DefaultDialTimeout      = 2 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultAttributeTimeout = 5 * time.Second
	DefaultMaxIdleConns     = 4
	DefaultMaxFrameSize     = tcp.DefaultMaxFrameSize

	minFrameSize = 16 << 10
)

// Config defines the remote configuration.
//
// Host must be an IP address. When Host is 0.0.0.0 the advertised host is
// resolved to a private interface address, falling back to a public one.
type Config struct {
	host             string
	port             int
	advertisedHost   string
	compression      Compression
	dialTimeout      time.Duration
	writeTimeout     time.Duration
	attributeTimeout time.Duration
	maxFrameSize     int
	maxIdleConns     int
}

var _ validation.Validator = (*Config)(nil)

// NewConfig returns a Config for the given bind host and port. Port 0 binds
// an ephemeral port.
func NewConfig(host string, port int, opts ...Option) *Config {
	cfg := DefaultConfig()
	cfg.host = host
	cfg.port = port
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// DefaultConfig binds 127.0.0.1 on an ephemeral port without compression
func DefaultConfig() *Config {
	return &Config{
		host:             "127.0.0.1",
		port:             0,
		compression:      NoCompression,
		dialTimeout:      DefaultDialTimeout,
		writeTimeout:     DefaultWriteTimeout,
		attributeTimeout: DefaultAttributeTimeout,
		maxFrameSize:     DefaultMaxFrameSize,
		maxIdleConns:     DefaultMaxIdleConns,
	}
}

// Host returns the bind host
func (x *Config) Host() string {
	return x.host
}

// Port returns the bind port
func (x *Config) Port() int {
	return x.port
}

// AdvertisedHost returns the host published to peers
func (x *Config) AdvertisedHost() string {
	if x.advertisedHost == "" {
		return x.host
	}
	return x.advertisedHost
}

// Compression returns the compression applied to outgoing frames
func (x *Config) Compression() Compression {
	return x.compression
}

// DialTimeout returns the timeout of a single dial attempt
func (x *Config) DialTimeout() time.Duration {
	return x.dialTimeout
}

// WriteTimeout returns the timeout of a single frame write
func (x *Config) WriteTimeout() time.Duration {
	return x.writeTimeout
}

// AttributeTimeout returns the upper bound of a remote attribute exchange when
// the caller gives none
func (x *Config) AttributeTimeout() time.Duration {
	return x.attributeTimeout
}

// MaxFrameSize returns the largest frame body accepted
func (x *Config) MaxFrameSize() int {
	return x.maxFrameSize
}

// MaxIdleConns returns the number of pooled connections per peer
func (x *Config) MaxIdleConns() int {
	return x.maxIdleConns
}

// Sanitize resolves the advertised host when it is not set explicitly
func (x *Config) Sanitize() error {
	if x.advertisedHost != "" {
		return nil
	}
	host, err := tcp.GetBindIP(net.JoinHostPort(x.host, strconv.Itoa(x.port)))
	if err != nil {
		return err
	}
	x.advertisedHost = host
	return nil
}

// Validate checks the configuration
func (x *Config) Validate() error {
	return validation.
		New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("remote.host", x.host)).
		AddAssertion(net.ParseIP(x.host) != nil, "remote.host must be an IP address").
		AddValidator(validation.NewPortValidator("remote.port", x.port)).
		AddAssertion(x.compression >= NoCompression && x.compression <= BrotliCompression, "invalid remote.compression").
		AddValidator(validation.NewPositiveDurationValidator("remote.dialTimeout", x.dialTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("remote.writeTimeout", x.writeTimeout)).
		AddValidator(validation.NewPositiveDurationValidator("remote.attributeTimeout", x.attributeTimeout)).
		AddAssertion(x.maxFrameSize >= minFrameSize && x.maxFrameSize <= DefaultMaxFrameSize, "remote.maxFrameSize must be between 16KB and 16MB").
		AddAssertion(x.maxIdleConns > 0, "remote.maxIdleConns must be greater than 0").
		Validate()
}

func (x *Config) codec() (*tcp.Codec, error) {
	return tcp.NewCodec(
		tcp.WithCompression(x.compression.algorithm()),
		tcp.WithMaxFrameSize(x.maxFrameSize))
}
