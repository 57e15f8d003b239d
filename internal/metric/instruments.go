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

import "go.opentelemetry.io/otel/metric"

// ContextMetric describes the units hosted by a context.
//
// Instruments:
//   - robokit.context.units         (Int64ObservableGauge)
//   - robokit.context.failed_units  (Int64ObservableGauge)
type ContextMetric struct {
	units       metric.Int64ObservableGauge
	failedUnits metric.Int64ObservableGauge
}

// NewContextMetric creates the context instruments
func NewContextMetric(meter metric.Meter) (*ContextMetric, error) {
	var (
		instruments ContextMetric
		err         error
	)

	if instruments.units, err = meter.Int64ObservableGauge(
		"robokit.context.units",
		metric.WithDescription("Number of units registered in the context"),
	); err != nil {
		return nil, err
	}

	if instruments.failedUnits, err = meter.Int64ObservableGauge(
		"robokit.context.failed_units",
		metric.WithDescription("Number of units in the FAILED state"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// Units returns the gauge observing the registered unit count
func (x *ContextMetric) Units() metric.Int64ObservableGauge {
	return x.units
}

// FailedUnits returns the gauge observing the failed unit count
func (x *ContextMetric) FailedUnits() metric.Int64ObservableGauge {
	return x.failedUnits
}

// RemoteMetric counts remote traffic.
//
// Instruments:
//   - robokit.remote.sent           (Int64Counter)
//   - robokit.remote.send_failures  (Int64Counter)
//   - robokit.remote.received       (Int64Counter)
type RemoteMetric struct {
	sent         metric.Int64Counter
	sendFailures metric.Int64Counter
	received     metric.Int64Counter
}

// NewRemoteMetric creates the remote instruments
func NewRemoteMetric(meter metric.Meter) (*RemoteMetric, error) {
	var (
		instruments RemoteMetric
		err         error
	)

	if instruments.sent, err = meter.Int64Counter(
		"robokit.remote.sent",
		metric.WithDescription("Number of messages sent to remote contexts"),
	); err != nil {
		return nil, err
	}

	if instruments.sendFailures, err = meter.Int64Counter(
		"robokit.remote.send_failures",
		metric.WithDescription("Number of remote sends that could not be delivered"),
	); err != nil {
		return nil, err
	}

	if instruments.received, err = meter.Int64Counter(
		"robokit.remote.received",
		metric.WithDescription("Number of messages received from remote contexts"),
	); err != nil {
		return nil, err
	}

	return &instruments, nil
}

// Sent returns the sent messages counter
func (x *RemoteMetric) Sent() metric.Int64Counter {
	return x.sent
}

// SendFailures returns the failed sends counter
func (x *RemoteMetric) SendFailures() metric.Int64Counter {
	return x.sendFailures
}

// Received returns the received messages counter
func (x *RemoteMetric) Received() metric.Int64Counter {
	return x.received
}

// DiscoveryMetric observes the peer registry.
type DiscoveryMetric struct {
	peers metric.Int64ObservableGauge
}

// NewDiscoveryMetric creates the discovery instruments
func NewDiscoveryMetric(meter metric.Meter) (*DiscoveryMetric, error) {
	peers, err := meter.Int64ObservableGauge(
		"robokit.discovery.peers",
		metric.WithDescription("Number of live peers in the discovery registry"),
	)
	if err != nil {
		return nil, err
	}
	return &DiscoveryMetric{peers: peers}, nil
}

// Peers returns the gauge observing the live peer count
func (x *DiscoveryMetric) Peers() metric.Int64ObservableGauge {
	return x.peers
}
