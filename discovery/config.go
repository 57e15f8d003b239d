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

// Package discovery announces a context on a UDP multicast group and tracks
// the contexts heard on the same group.
//
// Every running service with a local descriptor sends a heartbeat at a fixed
// interval. Peers are considered stale once a whole interval has elapsed
// without a heartbeat and are evicted once the number of missed heartbeats
// exceeds the allowed misses.
package discovery

import (
	"fmt"
	"net"
	"time"

	"github.com/tochemey/robokit/internal/validation"
)

// Default values
const (
	DefaultGroup                  = "238.12.15.254"
	DefaultPort                   = 0x0FFE
	DefaultHeartbeatInterval      = time.Second
	DefaultAllowedHeartbeatMisses = 10.0

	// MinHeartbeatInterval keeps the reaper period, half an interval, above
	// the timer resolution
	MinHeartbeatInterval = 2 * time.Millisecond

	maxPacketSize = 8 << 10
)

// Config defines the discovery service configuration
type Config struct {
	group          string
	port           int
	interval       time.Duration
	allowedMisses  float64
	interfaceName  string
	loopback       bool
	descriptor     *Descriptor
	readWaitPeriod time.Duration
}

var _ validation.Validator = (*Config)(nil)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(config *Config)

// Apply applies the option
func (f OptionFunc) Apply(c *Config) {
	f(c)
}

// WithGroup sets the multicast group
func WithGroup(group string) Option {
	return OptionFunc(func(config *Config) {
		config.group = group
	})
}

// WithPort sets the multicast port
func WithPort(port int) Option {
	return OptionFunc(func(config *Config) {
		config.port = port
	})
}

// WithHeartbeatInterval sets the interval between two heartbeats
func WithHeartbeatInterval(interval time.Duration) Option {
	return OptionFunc(func(config *Config) {
		config.interval = interval
	})
}

// WithAllowedHeartbeatMisses sets how many heartbeats a peer may miss before
// it is evicted. Fractional values are allowed. Below 1 a peer is evicted
// before it is ever reported stale.
func WithAllowedHeartbeatMisses(misses float64) Option {
	return OptionFunc(func(config *Config) {
		config.allowedMisses = misses
	})
}

// WithInterface joins the group on the named network interface instead of
// the system default
func WithInterface(name string) Option {
	return OptionFunc(func(config *Config) {
		config.interfaceName = name
	})
}

// WithLoopback enables or disables multicast loopback, which lets contexts on
// the same host hear each other
func WithLoopback(enabled bool) Option {
	return OptionFunc(func(config *Config) {
		config.loopback = enabled
	})
}

// WithDescriptor sets the descriptor announced by the service. Without it
// the service only listens.
func WithDescriptor(descriptor Descriptor) Option {
	return OptionFunc(func(config *Config) {
		d := descriptor.copy()
		config.descriptor = &d
	})
}

// NewConfig creates a Config
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		group:          DefaultGroup,
		port:           DefaultPort,
		interval:       DefaultHeartbeatInterval,
		allowedMisses:  DefaultAllowedHeartbeatMisses,
		loopback:       true,
		readWaitPeriod: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Group returns the multicast group
func (x *Config) Group() string {
	return x.group
}

// Port returns the multicast port
func (x *Config) Port() int {
	return x.port
}

// HeartbeatInterval returns the heartbeat interval
func (x *Config) HeartbeatInterval() time.Duration {
	return x.interval
}

// AllowedHeartbeatMisses returns the eviction threshold
func (x *Config) AllowedHeartbeatMisses() float64 {
	return x.allowedMisses
}

// Interface returns the configured interface name
func (x *Config) Interface() string {
	return x.interfaceName
}

// Loopback reports whether multicast loopback is enabled
func (x *Config) Loopback() bool {
	return x.loopback
}

// Descriptor returns the local descriptor, nil when the service only listens
func (x *Config) Descriptor() *Descriptor {
	if x.descriptor == nil {
		return nil
	}
	d := x.descriptor.copy()
	return &d
}

// Validate checks the configuration
func (x *Config) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewMulticastGroupValidator("discovery.group", x.group)).
		AddAssertion(x.port > 0 && x.port <= 65535, fmt.Sprintf("discovery.port=(%d) must be between 1 and 65535", x.port)).
		AddAssertion(x.interval >= MinHeartbeatInterval,
			fmt.Sprintf("discovery.heartbeatInterval=(%s) must be at least %s", x.interval, MinHeartbeatInterval)).
		AddAssertion(x.allowedMisses > 0, "discovery.allowedHeartbeatMisses must be greater than 0")

	if x.descriptor != nil {
		chain = chain.AddValidator(validation.NewIDValidator("discovery.descriptor.id", x.descriptor.ID)).
			AddValidator(validation.NewPortValidator("discovery.descriptor.port", x.descriptor.Port))
	}
	return chain.Validate()
}

func (x *Config) groupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(x.group).To4(), Port: x.port}
}

func (x *Config) networkInterface() (*net.Interface, error) {
	if x.interfaceName == "" {
		return nil, nil
	}
	return net.InterfaceByName(x.interfaceName)
}
