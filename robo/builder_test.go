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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/tochemey/robokit/config"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/lifecycle"
	"github.com/tochemey/robokit/log"
	"github.com/tochemey/robokit/remote"
	"github.com/tochemey/robokit/scheduler"
)

const unitsDocument = `
units:
  - id: alpha
    type: sample
    config:
      name: Alpha
  - id: beta
    type: sample
`

const systemOnlyDocument = `
system:
  id: galactica
  scheduler:
    poolSize: 3
  worker:
    poolSize: 2
  blocking:
    poolSize: 4
  metadata:
    name: Caprica
    class: Cylon
`

func sampleRegistry() *Registry {
	registry := NewRegistry()
	registry.Register("sample", func() Unit { return newTestUnit("sample", nil) })
	return registry
}

func TestBuilder(t *testing.T) {
	t.Run("With units from a document", func(t *testing.T) {
		ctx := context.Background()
		robo, err := newTestBuilder(WithRegistry(sampleRegistry()), WithContextID("docs")).
			AddDocument([]byte(unitsDocument)).
			Build()
		require.NoError(t, err)

		refs := robo.Units()
		require.Len(t, refs, 2)
		assert.Equal(t, "alpha", refs[0].ID())
		assert.Equal(t, "beta", refs[1].ID())
		assert.Equal(t, "Alpha", refs[0].Configuration().String("name", ""))
		assert.True(t, refs[0].Configuration().Frozen())

		require.NoError(t, robo.Shutdown(ctx))
	})
	t.Run("With duplicate ids regardless of source order", func(t *testing.T) {
		_, err := newTestBuilder(WithRegistry(sampleRegistry())).
			AddDocument([]byte(unitsDocument)).
			AddUnit("beta", newTestUnit("beta", nil), nil).
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, rerrors.ErrDuplicateUnitID)
		var unitErr *rerrors.UnitError
		require.True(t, errors.As(err, &unitErr))
		assert.Equal(t, "beta", unitErr.UnitID)

		_, err = newTestBuilder(WithRegistry(sampleRegistry())).
			AddUnit("beta", newTestUnit("beta", nil), nil).
			AddDocument([]byte(unitsDocument)).
			Build()
		assert.ErrorIs(t, err, rerrors.ErrDuplicateUnitID)

		_, err = newTestBuilder().
			AddUnit("twin", newTestUnit("twin", nil), nil).
			AddUnit("twin", newTestUnit("twin", nil), nil).
			Build()
		assert.ErrorIs(t, err, rerrors.ErrDuplicateUnitID)
	})
	t.Run("With the first recorded error kept", func(t *testing.T) {
		j := new(journal)
		_, err := newTestBuilder().
			AddUnit("twin", newTestUnit("twin", j), nil).
			AddUnit("twin", newTestUnit("twin", j), nil).
			Add("unknown", nil, "other").
			Build()
		assert.ErrorIs(t, err, rerrors.ErrDuplicateUnitID)
		assert.Empty(t, j.list())
	})
	t.Run("With an unknown unit type", func(t *testing.T) {
		_, err := newTestBuilder().Add("teleporter", nil, "unit").Build()
		assert.ErrorIs(t, err, rerrors.ErrUnknownUnitType)
	})
	t.Run("With an invalid unit id", func(t *testing.T) {
		_, err := newTestBuilder().AddUnit("", newTestUnit("", nil), nil).Build()
		assert.ErrorIs(t, err, rerrors.ErrInvalidConfigValue)

		_, err = newTestBuilder().AddUnit("bad id!", newTestUnit("bad", nil), nil).Build()
		assert.ErrorIs(t, err, rerrors.ErrInvalidConfigValue)
	})
	t.Run("With an initialize failure carrying the unit id", func(t *testing.T) {
		j := new(journal)
		broken := newTestUnit("broken", j)
		broken.initErr = rerrors.NewErrMissingConfigValue("target")

		_, err := newTestBuilder().
			AddUnit("first", newTestUnit("first", j), nil).
			AddUnit("broken", broken, nil).
			AddUnit("last", newTestUnit("last", j), nil).
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, rerrors.ErrMissingConfigValue)
		var unitErr *rerrors.UnitError
		require.True(t, errors.As(err, &unitErr))
		assert.Equal(t, "broken", unitErr.UnitID)

		assert.Equal(t, []string{"initialize:first", "initialize:broken", "shutdown:first"}, j.list())
	})
	t.Run("With system settings set twice", func(t *testing.T) {
		_, err := newTestBuilder(WithSystemConfiguration(config.New().SetString("id", "one"))).
			AddSystemDocument([]byte(systemOnlyDocument)).
			Build()
		assert.ErrorIs(t, err, rerrors.ErrSystemSettingsAlreadySet)

		_, err = newTestBuilder().
			AddSystemDocument([]byte(systemOnlyDocument)).
			AddDocument([]byte(systemOnlyDocument)).
			Build()
		assert.ErrorIs(t, err, rerrors.ErrSystemSettingsAlreadySet)
	})
	t.Run("With a system document without a system section", func(t *testing.T) {
		_, err := newTestBuilder().AddSystemDocument([]byte(unitsDocument)).Build()
		assert.ErrorIs(t, err, rerrors.ErrMissingConfigValue)
	})
	t.Run("With system settings applied", func(t *testing.T) {
		ctx := context.Background()
		robo, err := newTestBuilder(WithRegistry(sampleRegistry())).
			AddSystemDocument([]byte(systemOnlyDocument)).
			AddDocument([]byte(unitsDocument)).
			Build()
		require.NoError(t, err)

		assert.Equal(t, "galactica", robo.ID())
		assert.Equal(t, 3, robo.Scheduler().Size(scheduler.TimedPool))
		assert.Equal(t, 2, robo.Scheduler().Size(scheduler.WorkerPool))
		assert.Equal(t, 4, robo.Scheduler().Size(scheduler.BlockingPool))

		descriptor := robo.Descriptor()
		assert.Equal(t, "galactica", descriptor.ID)
		assert.Equal(t, []string{"name", "class"}, descriptor.Metadata.Keys())
		assert.Zero(t, descriptor.Port)

		require.NoError(t, robo.Shutdown(ctx))
	})
	t.Run("With a bounded timed pool", func(t *testing.T) {
		ctx := context.Background()
		robo, err := newTestBuilder().
			AddSystemDocument([]byte("system:\n  scheduler:\n    queueBound: 1\n")).
			Build()
		require.NoError(t, err)
		require.NoError(t, robo.Start(ctx))

		handle, err := robo.Scheduler().Schedule(time.Hour, func(context.Context) {})
		require.NoError(t, err)
		_, err = robo.Scheduler().Schedule(time.Hour, func(context.Context) {})
		assert.ErrorIs(t, err, rerrors.ErrSchedulerSaturated)
		assert.True(t, handle.Cancel())

		require.NoError(t, robo.Shutdown(ctx))
	})
	t.Run("With the context id option taking precedence", func(t *testing.T) {
		robo, err := newTestBuilder(WithContextID("override")).
			AddSystemDocument([]byte(systemOnlyDocument)).
			Build()
		require.NoError(t, err)
		assert.Equal(t, "override", robo.ID())
		require.NoError(t, robo.Shutdown(context.Background()))
	})
	t.Run("With a generated context id", func(t *testing.T) {
		robo, err := newTestBuilder().Build()
		require.NoError(t, err)
		assert.NotEmpty(t, robo.ID())
		assert.Equal(t, lifecycle.Initialized, robo.State())
		require.NoError(t, robo.Shutdown(context.Background()))
	})
	t.Run("With invalid system values", func(t *testing.T) {
		system := config.New().
			SetInteger(KeyWorkerPoolSize, 0).
			SetInteger(KeyBlockingQueueBound, -1)
		_, err := newTestBuilder(WithSystemConfiguration(system)).Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, rerrors.ErrInvalidConfigValue)
		assert.Contains(t, err.Error(), KeyWorkerPoolSize)
		assert.Contains(t, err.Error(), KeyBlockingQueueBound)
	})
	t.Run("With an invalid remote configuration", func(t *testing.T) {
		_, err := newTestBuilder(WithRemote(remote.NewConfig("not-an-ip", 0))).Build()
		require.Error(t, err)
	})
	t.Run("With metrics on a meter provider", func(t *testing.T) {
		ctx := context.Background()
		robo, err := newTestBuilder(WithMeterProvider(noop.NewMeterProvider())).
			AddUnit("unit", newTestUnit("unit", nil), nil).
			Build()
		require.NoError(t, err)
		require.NoError(t, robo.Start(ctx))
		require.NoError(t, robo.Shutdown(ctx))
	})
	t.Run("With a panic in a lifecycle hook", func(t *testing.T) {
		_, err := newTestBuilder(WithLogger(log.DiscardLogger)).
			AddUnit("panicky", panickyUnit{}, nil).
			Build()
		require.Error(t, err)
		var panicErr *rerrors.PanicError
		assert.True(t, errors.As(err, &panicErr))
	})
}

type panickyUnit struct {
	UnitBase
}

func (panickyUnit) OnInitialize(UnitContext, *config.Configuration) error {
	panic("initialize")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("b", func() Unit { return panickyUnit{} })
	registry.Register("a", func() Unit { return panickyUnit{} })
	registry.Register("", func() Unit { return panickyUnit{} })
	registry.Register("nil", nil)

	assert.Equal(t, []string{"a", "b"}, registry.Tags())
	_, ok := registry.Lookup("a")
	assert.True(t, ok)
	_, ok = registry.Lookup("nil")
	assert.False(t, ok)
}
