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
	"fmt"

	goset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/tochemey/robokit/config"
	"github.com/tochemey/robokit/discovery"
	rerrors "github.com/tochemey/robokit/errors"
	imetric "github.com/tochemey/robokit/internal/metric"
	"github.com/tochemey/robokit/internal/validation"
	"github.com/tochemey/robokit/lifecycle"
	"github.com/tochemey/robokit/log"
	"github.com/tochemey/robokit/remote"
	"github.com/tochemey/robokit/scheduler"
)

// Option is the interface that applies a Builder option.
type Option interface {
	// Apply sets the Option value of a Builder.
	Apply(builder *Builder)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(builder *Builder)

// Apply applies the Builder option
func (f OptionFunc) Apply(builder *Builder) {
	f(builder)
}

// WithContextID sets the context id. It takes precedence over the id of the
// system settings.
func WithContextID(id string) Option {
	return OptionFunc(func(b *Builder) {
		b.contextID = id
	})
}

// WithSystemConfiguration sets the system settings
func WithSystemConfiguration(cfg *config.Configuration) Option {
	return OptionFunc(func(b *Builder) {
		b.setSystem(cfg)
	})
}

// WithLogger sets the logger shared by the context and its units
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	})
}

// WithRegistry sets the registry used to resolve unit type tags
func WithRegistry(registry *Registry) Option {
	return OptionFunc(func(b *Builder) {
		if registry != nil {
			b.registry = registry
		}
	})
}

// WithDiscovery injects a discovery service. The context starts the service
// when it is not running yet and only stops it in that case.
func WithDiscovery(service *discovery.Service) Option {
	return OptionFunc(func(b *Builder) {
		b.discovery = service
	})
}

// WithResolver sets a resolver consulted before discovery when resolving
// remote contexts
func WithResolver(resolver discovery.Resolver) Option {
	return OptionFunc(func(b *Builder) {
		b.resolver = resolver
	})
}

// WithRemote enables remote messaging. It takes precedence over the remote
// system settings.
func WithRemote(cfg *remote.Config) Option {
	return OptionFunc(func(b *Builder) {
		b.remote = cfg
	})
}

// WithMetrics publishes the context instruments on the global meter provider
func WithMetrics() Option {
	return OptionFunc(func(b *Builder) {
		b.metrics = true
	})
}

// WithMeterProvider publishes the context instruments on the given provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(b *Builder) {
		b.metrics = true
		b.meterProvider = provider
	})
}

type declaration struct {
	id     string
	unit   Unit
	config *config.Configuration
}

// Builder assembles a Context from configuration documents and programmatic
// declarations. Errors are recorded as they happen; Build returns the first
// one and nothing is registered.
type Builder struct {
	contextID     string
	system        *config.Configuration
	logger        log.Logger
	registry      *Registry
	discovery     *discovery.Service
	resolver      discovery.Resolver
	remote        *remote.Config
	metrics       bool
	meterProvider metric.MeterProvider

	ids          goset.Set[string]
	declarations []declaration
	err          error
}

// NewBuilder creates a Builder
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger:   log.DefaultLogger,
		registry: DefaultRegistry,
		ids:      goset.NewThreadUnsafeSet[string](),
	}
	for _, opt := range opts {
		opt.Apply(b)
	}
	return b
}

// AddDocument adds the system settings, when present, and the units of a
// configuration document
func (b *Builder) AddDocument(data []byte) *Builder {
	if b.err != nil {
		return b
	}

	doc, err := config.ParseDocument(data)
	if err != nil {
		b.fail(err)
		return b
	}

	if doc.System != nil {
		b.setSystem(doc.System)
	}
	for _, unit := range doc.Units {
		b.Add(unit.Type, unit.Config, unit.ID)
	}
	return b
}

// AddSystemDocument only reads the system section of a configuration
// document
func (b *Builder) AddSystemDocument(data []byte) *Builder {
	if b.err != nil {
		return b
	}

	doc, err := config.ParseDocument(data)
	if err != nil {
		b.fail(err)
		return b
	}
	if doc.System == nil {
		b.fail(rerrors.NewErrMissingConfigValue("system"))
		return b
	}
	b.setSystem(doc.System)
	return b
}

// Add declares a unit created by the factory registered under unitType
func (b *Builder) Add(unitType string, cfg *config.Configuration, id string) *Builder {
	if b.err != nil {
		return b
	}

	factory, ok := b.registry.Lookup(unitType)
	if !ok {
		b.fail(rerrors.NewUnitError(id, rerrors.NewErrUnknownUnitType(unitType)))
		return b
	}
	return b.declare(declaration{id: id, unit: factory(), config: cfg})
}

// AddUnit declares an already constructed unit
func (b *Builder) AddUnit(id string, unit Unit, cfg *config.Configuration) *Builder {
	if b.err != nil {
		return b
	}
	if unit == nil {
		b.fail(rerrors.NewUnitError(id, fmt.Errorf("unit is nil")))
		return b
	}
	return b.declare(declaration{id: id, unit: unit, config: cfg})
}

// Build creates the Context and initializes its units in registration order.
// When a unit fails to initialize, the units already initialized are shut
// down and the error carries the failing unit id.
func (b *Builder) Build() (*Context, error) {
	if b.err != nil {
		return nil, b.err
	}

	settings := new(systemSettings)
	if b.system != nil {
		parsed, err := parseSystem(b.system)
		if err != nil {
			return nil, err
		}
		settings = parsed
	}

	id := b.contextID
	if id == "" {
		id = settings.id
	}
	if id == "" {
		id = uuid.NewString()
	}

	remoteConfig := settings.remote
	if b.remote != nil {
		remoteConfig = b.remote
	}

	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewIDValidator("context id", id))
	if remoteConfig != nil {
		chain = chain.AddValidator(remoteConfig)
	}
	if b.discovery == nil && settings.discoveryEnabled {
		chain = chain.AddValidator(discovery.NewConfig(settings.discovery...))
	}
	if err := chain.Validate(); err != nil {
		return nil, err
	}

	ctx := newContext(id, b.logger)
	ctx.scheduler = scheduler.New(append(settings.scheduler, scheduler.WithLogger(b.logger))...)
	ctx.metadata = settings.metadata
	ctx.remoteConfig = remoteConfig
	ctx.resolver = b.resolver
	ctx.discovery = b.discovery
	if b.discovery == nil && settings.discoveryEnabled {
		ctx.discoveryOptions = settings.discovery
	}
	if b.metrics {
		ctx.meter = imetric.New(imetric.WithMeterProvider(b.meterProvider)).Meter()
	}

	cells := make([]*cell, 0, len(b.declarations))
	for _, declared := range b.declarations {
		unit := newCell(ctx, declared.id, declared.unit, declared.config)
		ctx.register(unit)
		cells = append(cells, unit)
	}

	for i, unit := range cells {
		if err := unit.initialize(); err != nil {
			b.logger.Errorf("unit %s failed to initialize: %v", unit, err)
			for j := i - 1; j >= 0; j-- {
				err = multierr.Append(err, cells[j].shutdown())
			}
			ctx.cancel()
			return nil, err
		}
	}

	if err := ctx.machine.TransitionTo(lifecycle.Initialized); err != nil {
		ctx.cancel()
		return nil, err
	}

	b.logger.Infof("context %s built with %d units", id, len(cells))
	return ctx, nil
}

func (b *Builder) declare(declared declaration) *Builder {
	if err := validation.NewIDValidator("unit id", declared.id).Validate(); err != nil {
		b.fail(rerrors.NewUnitError(declared.id, rerrors.NewErrInvalidConfigValue("id", err)))
		return b
	}

	if !b.ids.Add(declared.id) {
		b.fail(rerrors.NewUnitError(declared.id, rerrors.NewErrDuplicateUnitID(declared.id)))
		return b
	}

	b.declarations = append(b.declarations, declared)
	return b
}

func (b *Builder) setSystem(cfg *config.Configuration) {
	if cfg == nil {
		return
	}
	if b.system != nil {
		b.fail(rerrors.ErrSystemSettingsAlreadySet)
		return
	}
	b.system = cfg
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}
