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

package metric

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestProvider(t *testing.T) {
	t.Run("With global provider", func(t *testing.T) {
		prev := otel.GetMeterProvider()
		recorder := &recorderMeterProvider{MeterProvider: noop.NewMeterProvider()}
		otel.SetMeterProvider(recorder)
		t.Cleanup(func() { otel.SetMeterProvider(prev) })

		provider := New()
		require.NotNil(t, provider.Meter())
		require.Equal(t, recorder, provider.meterProvider)
		require.Equal(t, []string{instrumentationName}, recorder.called)
	})
	t.Run("With custom provider", func(t *testing.T) {
		custom := &recorderMeterProvider{MeterProvider: noop.NewMeterProvider()}
		provider := New(WithMeterProvider(custom))
		require.Equal(t, custom, provider.meterProvider)
		require.Equal(t, []string{instrumentationName}, custom.called)
	})
	t.Run("With nil provider ignored", func(t *testing.T) {
		provider := New(WithMeterProvider(nil))
		require.NotNil(t, provider.meterProvider)
		require.NotNil(t, provider.Meter())
	})
}

func TestInstruments(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	t.Run("With context instruments", func(t *testing.T) {
		instruments, err := NewContextMetric(meter)
		require.NoError(t, err)
		require.NotNil(t, instruments.Units())
		require.NotNil(t, instruments.FailedUnits())
	})
	t.Run("With remote instruments", func(t *testing.T) {
		instruments, err := NewRemoteMetric(meter)
		require.NoError(t, err)
		require.NotNil(t, instruments.Sent())
		require.NotNil(t, instruments.SendFailures())
		require.NotNil(t, instruments.Received())
	})
	t.Run("With discovery instruments", func(t *testing.T) {
		instruments, err := NewDiscoveryMetric(meter)
		require.NoError(t, err)
		require.NotNil(t, instruments.Peers())
	})
}

func TestInstrumentErrors(t *testing.T) {
	errBoom := errors.New("boom")
	testCases := []struct {
		name    string
		failKey string
		create  func(metric.Meter) error
	}{
		{name: "units gauge", failKey: "robokit.context.units", create: func(m metric.Meter) error { _, err := NewContextMetric(m); return err }},
		{name: "failed units gauge", failKey: "robokit.context.failed_units", create: func(m metric.Meter) error { _, err := NewContextMetric(m); return err }},
		{name: "sent counter", failKey: "robokit.remote.sent", create: func(m metric.Meter) error { _, err := NewRemoteMetric(m); return err }},
		{name: "send failures counter", failKey: "robokit.remote.send_failures", create: func(m metric.Meter) error { _, err := NewRemoteMetric(m); return err }},
		{name: "received counter", failKey: "robokit.remote.received", create: func(m metric.Meter) error { _, err := NewRemoteMetric(m); return err }},
		{name: "peers gauge", failKey: "robokit.discovery.peers", create: func(m metric.Meter) error { _, err := NewDiscoveryMetric(m); return err }},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			meter := failingMeter{
				Meter:    noop.NewMeterProvider().Meter("test"),
				failures: map[string]error{tt.failKey: errBoom},
			}
			require.ErrorIs(t, tt.create(meter), errBoom)
		})
	}
}

type recorderMeterProvider struct {
	metric.MeterProvider
	called []string
}

func (p *recorderMeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	p.called = append(p.called, name)
	return p.MeterProvider.Meter(name, opts...)
}

type failingMeter struct {
	metric.Meter
	failures map[string]error
}

func (m failingMeter) Int64Counter(name string, opts ...metric.Int64CounterOption) (metric.Int64Counter, error) {
	if err, ok := m.failures[name]; ok {
		return nil, err
	}
	return m.Meter.Int64Counter(name, opts...)
}

func (m failingMeter) Int64ObservableGauge(name string, opts ...metric.Int64ObservableGaugeOption) (metric.Int64ObservableGauge, error) {
	if err, ok := m.failures[name]; ok {
		return nil, err
	}
	return m.Meter.Int64ObservableGauge(name, opts...)
}
