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

package robo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/tochemey/robokit/discovery"
	rerrors "github.com/tochemey/robokit/errors"
	imetric "github.com/tochemey/robokit/internal/metric"
	"github.com/tochemey/robokit/lifecycle"
	"github.com/tochemey/robokit/log"
	"github.com/tochemey/robokit/remote"
	"github.com/tochemey/robokit/scheduler"
)

// Context owns a set of units and the services they share.
//
// Start brings up the scheduler, the remote server and the discovery service
// before starting the units in registration order. Stop stops the units in
// reverse order and keeps the services running so that the context can be
// started again. Shutdown releases everything.
//
// A hook error moves the offending unit to FAILED and is returned by the
// context operation; the other units are unaffected.
type Context struct {
	id        string
	logger    log.Logger
	machine   *lifecycle.Machine
	scheduler *scheduler.Scheduler
	metadata  discovery.Metadata

	discoveryOptions []discovery.Option
	startedDiscovery bool
	resolver         discovery.Resolver
	remoteConfig     *remote.Config

	// servicesMu guards the services created at start, which units may read
	// from their hooks while mu is held
	servicesMu   sync.RWMutex
	discovery    *discovery.Service
	remoteServer *remote.Server
	remoteClient *remote.Client

	meter        metric.Meter
	registration metric.Registration

	// mu serializes lifecycle operations
	mu           sync.Mutex
	infraStarted bool

	unitsMu sync.RWMutex
	units   []*cell
	index   map[string]*cell

	runCtx context.Context
	cancel context.CancelFunc
}

func newContext(id string, logger log.Logger) *Context {
	runCtx, cancel := context.WithCancel(context.Background())
	return &Context{
		id:      id,
		logger:  logger,
		machine: lifecycle.NewMachine(id),
		index:   make(map[string]*cell),
		runCtx:  runCtx,
		cancel:  cancel,
	}
}

// ID returns the context id
func (c *Context) ID() string {
	return c.id
}

// State returns the context state
func (c *Context) State() lifecycle.State {
	return c.machine.State()
}

// AddListener registers a listener for the context state changes
func (c *Context) AddListener(listener lifecycle.Listener) {
	c.machine.AddListener(listener)
}

// Scheduler returns the pools shared by the units
func (c *Context) Scheduler() *scheduler.Scheduler {
	return c.scheduler
}

// Discovery returns the discovery service, nil when discovery is disabled
// or not started yet
func (c *Context) Discovery() *discovery.Service {
	c.servicesMu.RLock()
	defer c.servicesMu.RUnlock()
	return c.discovery
}

// Reference returns the reference of a unit of this context. Units are
// removed once shut down.
func (c *Context) Reference(id string) (Reference, bool) {
	c.unitsMu.RLock()
	defer c.unitsMu.RUnlock()
	unit, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return unit, true
}

// Units returns the references of the units in registration order
func (c *Context) Units() []Reference {
	cells := c.cells()
	out := make([]Reference, 0, len(cells))
	for _, unit := range cells {
		out = append(out, unit)
	}
	return out
}

// RemoteReference returns a reference to a unit of another context. The
// context is resolved on every use, so the reference can be created before
// the peer is discovered. A reference to this context's own id is a local
// lookup.
func (c *Context) RemoteReference(contextID, unitID string) (Reference, error) {
	if contextID == c.id {
		ref, ok := c.Reference(unitID)
		if !ok {
			return nil, rerrors.NewErrUnitNotFound(unitID)
		}
		return ref, nil
	}

	if c.remoteConfig == nil {
		return nil, rerrors.ErrRemotingDisabled
	}
	return &remoteReference{owner: c, contextID: contextID, unitID: unitID}, nil
}

// Descriptor returns the descriptor announced by this context. Host and Port
// are only set once the remote server listens.
func (c *Context) Descriptor() discovery.Descriptor {
	d := discovery.Descriptor{ID: c.id, Metadata: c.metadata.Copy()}
	c.servicesMu.RLock()
	server := c.remoteServer
	c.servicesMu.RUnlock()
	if server != nil && server.Port() != 0 {
		d.Host = server.Host()
		d.Port = server.Port()
	}
	return d
}

// Start starts the services, then every unit in registration order. Units
// that fail to start are reported in the returned error; the context is
// STARTED once every unit is either STARTED or FAILED.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.claim(lifecycle.Starting, lifecycle.Initialized, lifecycle.Stopped); err != nil {
		return err
	}

	if !c.infraStarted {
		if err := c.startServices(ctx); err != nil {
			c.machine.Fail()
			return err
		}
		c.infraStarted = true
	}

	var err error
	for _, unit := range c.cells() {
		if unit.State() == lifecycle.Failed {
			continue
		}
		if e := unit.start(); e != nil {
			c.logger.Errorf("unit %s failed to start: %v", unit, e)
			err = multierr.Append(err, e)
		}
	}

	if e := c.machine.TransitionTo(lifecycle.Started); e != nil {
		return multierr.Append(err, e)
	}
	c.logger.Infof("context %s started", c.id)
	return err
}

// Stop stops the started units in reverse registration order
func (c *Context) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop(ctx)
}

func (c *Context) stop(context.Context) error {
	if err := c.claim(lifecycle.Stopping, lifecycle.Started); err != nil {
		return err
	}

	var err error
	cells := c.cells()
	for i := len(cells) - 1; i >= 0; i-- {
		unit := cells[i]
		if unit.State() != lifecycle.Started {
			continue
		}
		if e := unit.stop(); e != nil {
			c.logger.Errorf("unit %s failed to stop: %v", unit, e)
			err = multierr.Append(err, e)
		}
	}

	if e := c.machine.TransitionTo(lifecycle.Stopped); e != nil {
		return multierr.Append(err, e)
	}
	c.logger.Infof("context %s stopped", c.id)
	return err
}

// Shutdown stops the context when started, shuts the units down in reverse
// registration order, then stops the remote server, the discovery service
// and the scheduler. Every error is collected; the shutdown always runs to
// completion.
func (c *Context) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.machine.State() == lifecycle.Started {
		err = multierr.Append(err, c.stop(ctx))
	}

	if e := c.claim(lifecycle.ShuttingDown, lifecycle.Uninitialized, lifecycle.Initialized, lifecycle.Stopped, lifecycle.Failed); e != nil {
		return multierr.Append(err, e)
	}

	cells := c.cells()
	for i := len(cells) - 1; i >= 0; i-- {
		unit := cells[i]
		if e := unit.shutdown(); e != nil {
			c.logger.Errorf("unit %s failed to shut down: %v", unit, e)
			err = multierr.Append(err, e)
		}
	}

	c.unitsMu.Lock()
	c.units = nil
	c.index = make(map[string]*cell)
	c.unitsMu.Unlock()

	err = multierr.Append(err, c.stopServices(ctx))
	c.cancel()

	if e := c.machine.TransitionTo(lifecycle.Shutdown); e != nil {
		return multierr.Append(err, e)
	}
	c.logger.Infof("context %s shut down", c.id)
	return err
}

func (c *Context) startServices(ctx context.Context) error {
	if err := c.scheduler.Start(ctx); err != nil {
		return err
	}

	if c.remoteConfig != nil {
		if err := c.startRemote(ctx); err != nil {
			return errors.Join(fmt.Errorf("context %s: %w", c.id, err), c.stopServices(ctx))
		}
	}

	service := c.Discovery()
	if service == nil && c.discoveryOptions != nil {
		opts := make([]discovery.Option, 0, len(c.discoveryOptions)+1)
		opts = append(opts, c.discoveryOptions...)
		opts = append(opts, discovery.WithDescriptor(c.Descriptor()))

		serviceOpts := []discovery.ServiceOption{discovery.WithLogger(c.logger)}
		if c.meter != nil {
			serviceOpts = append(serviceOpts, discovery.WithMeter(c.meter))
		}
		service = discovery.NewService(discovery.NewConfig(opts...), serviceOpts...)

		c.servicesMu.Lock()
		c.discovery = service
		c.servicesMu.Unlock()
	}

	if service != nil && !service.IsStarted() {
		if err := service.Start(ctx); err != nil {
			return errors.Join(fmt.Errorf("context %s: %w", c.id, err), c.stopServices(ctx))
		}
		c.startedDiscovery = true
	}

	if c.meter != nil {
		if err := c.registerMetrics(); err != nil {
			return errors.Join(err, c.stopServices(ctx))
		}
	}
	return nil
}

func (c *Context) startRemote(ctx context.Context) error {
	var remoteMetric *imetric.RemoteMetric
	if c.meter != nil {
		m, err := imetric.NewRemoteMetric(c.meter)
		if err != nil {
			return err
		}
		remoteMetric = m
	}

	server := remote.NewServer(c.remoteConfig, &contextHandler{owner: c},
		remote.WithServerLogger(c.logger),
		remote.WithServerMetric(remoteMetric),
		remote.WithContextID(c.id))
	if err := server.Start(ctx); err != nil {
		return err
	}

	client, err := remote.NewClient(c.remoteConfig,
		remote.WithClientLogger(c.logger),
		remote.WithClientMetric(remoteMetric),
		remote.WithSourceContext(c.id))
	if err != nil {
		return errors.Join(err, server.Stop(ctx))
	}

	c.servicesMu.Lock()
	c.remoteServer = server
	c.remoteClient = client
	c.servicesMu.Unlock()
	return nil
}

func (c *Context) stopServices(ctx context.Context) error {
	var err error
	if c.registration != nil {
		err = multierr.Append(err, c.registration.Unregister())
		c.registration = nil
	}

	c.servicesMu.Lock()
	server, client, service := c.remoteServer, c.remoteClient, c.discovery
	c.remoteClient = nil
	c.servicesMu.Unlock()

	if server != nil {
		err = multierr.Append(err, server.Stop(ctx))
	}

	if client != nil {
		err = multierr.Append(err, client.Close())
	}

	if service != nil && c.startedDiscovery {
		err = multierr.Append(err, service.Stop(ctx))
		c.startedDiscovery = false
	}

	return multierr.Append(err, c.scheduler.Stop(ctx))
}

func (c *Context) registerMetrics() error {
	instruments, err := imetric.NewContextMetric(c.meter)
	if err != nil {
		return err
	}

	registration, err := c.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		var failed int64
		cells := c.cells()
		for _, unit := range cells {
			if unit.State() == lifecycle.Failed {
				failed++
			}
		}
		attrs := metric.WithAttributes(contextAttribute(c.id))
		observer.ObserveInt64(instruments.Units(), int64(len(cells)), attrs)
		observer.ObserveInt64(instruments.FailedUnits(), failed, attrs)
		return nil
	}, instruments.Units(), instruments.FailedUnits())
	if err != nil {
		return err
	}
	c.registration = registration
	return nil
}

// resolve finds the remote endpoint of a context. An explicit resolver is
// consulted before discovery.
func (c *Context) resolve(contextID string) (discovery.Endpoint, error) {
	if c.resolver != nil {
		endpoint, err := c.resolver.Resolve(contextID)
		if err == nil || c.Discovery() == nil {
			return endpoint, err
		}
	}

	if service := c.Discovery(); service != nil {
		return service.Resolve(contextID)
	}
	return discovery.Endpoint{}, rerrors.NewErrUnknownContext(contextID)
}

func (c *Context) client() *remote.Client {
	c.servicesMu.RLock()
	defer c.servicesMu.RUnlock()
	return c.remoteClient
}

func contextAttribute(id string) attribute.KeyValue {
	return attribute.String("context", id)
}

func (c *Context) runContext() context.Context {
	return c.runCtx
}

func (c *Context) cells() []*cell {
	c.unitsMu.RLock()
	defer c.unitsMu.RUnlock()
	out := make([]*cell, len(c.units))
	copy(out, c.units)
	return out
}

func (c *Context) unit(id string) (*cell, bool) {
	c.unitsMu.RLock()
	defer c.unitsMu.RUnlock()
	unit, ok := c.index[id]
	return unit, ok
}

func (c *Context) register(unit *cell) {
	c.unitsMu.Lock()
	c.units = append(c.units, unit)
	c.index[unit.id] = unit
	c.unitsMu.Unlock()
}

func (c *Context) claim(target lifecycle.State, sources ...lifecycle.State) error {
	current := c.machine.State()
	for _, source := range sources {
		if current == source {
			return c.machine.CompareAndTransition(source, target)
		}
	}
	return &lifecycle.IllegalStateTransitionError{ID: c.id, Current: current, Target: target}
}
