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

	"go.uber.org/multierr"

	"github.com/tochemey/robokit/config"
	"github.com/tochemey/robokit/discovery"
	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/remote"
	"github.com/tochemey/robokit/scheduler"
)

// System configuration keys
const (
	KeyID                     = "id"
	KeyTimedPoolSize          = "scheduler.poolSize"
	KeyTimedQueueBound        = "scheduler.queueBound"
	KeyWorkerPoolSize         = "worker.poolSize"
	KeyWorkerQueueBound       = "worker.queueBound"
	KeyBlockingPoolSize       = "blocking.poolSize"
	KeyBlockingQueueBound     = "blocking.queueBound"
	KeyDiscoveryEnabled       = "discovery.enabled"
	KeyDiscoveryGroup         = "discovery.group"
	KeyDiscoveryPort          = "discovery.port"
	KeyDiscoveryInterval      = "discovery.heartbeatInterval"
	KeyDiscoveryAllowedMisses = "discovery.allowedHeartbeatMisses"
	KeyDiscoveryInterface     = "discovery.interface"
	KeyDiscoveryLoopback      = "discovery.loopback"
	KeyRemoteHost             = "remote.host"
	KeyRemotePort             = "remote.port"
	KeyRemoteAdvertisedHost   = "remote.advertisedHost"
	KeyRemoteCompression      = "remote.compression"
	KeyRemoteAttributeTimeout = "remote.attributeTimeout"
	KeyMetadata               = "metadata"

	keyRemote         = "remote"
	defaultRemoteHost = "127.0.0.1"
)

// systemSettings is the typed form of the system section
type systemSettings struct {
	id               string
	scheduler        []scheduler.Option
	discoveryEnabled bool
	discovery        []discovery.Option
	remote           *remote.Config
	metadata         discovery.Metadata
}

func parseSystem(cfg *config.Configuration) (*systemSettings, error) {
	settings := &systemSettings{id: cfg.String(KeyID, "")}
	var err error

	positive := func(key string, apply func(int) scheduler.Option) {
		if _, ok := cfg.Value(key); !ok {
			return
		}
		n := cfg.Integer(key, -1)
		if n <= 0 {
			err = multierr.Append(err, rerrors.NewErrInvalidConfigValue(key, fmt.Errorf("must be a positive integer")))
			return
		}
		settings.scheduler = append(settings.scheduler, apply(n))
	}
	bound := func(key string, pool scheduler.Pool) {
		if _, ok := cfg.Value(key); !ok {
			return
		}
		n := cfg.Integer(key, -1)
		if n < 0 {
			err = multierr.Append(err, rerrors.NewErrInvalidConfigValue(key, fmt.Errorf("must be zero or a positive integer")))
			return
		}
		settings.scheduler = append(settings.scheduler, scheduler.WithQueueBound(pool, n))
	}

	positive(KeyTimedPoolSize, scheduler.WithTimedPoolSize)
	positive(KeyWorkerPoolSize, scheduler.WithWorkerPoolSize)
	positive(KeyBlockingPoolSize, scheduler.WithBlockingPoolSize)
	bound(KeyTimedQueueBound, scheduler.TimedPool)
	bound(KeyWorkerQueueBound, scheduler.WorkerPool)
	bound(KeyBlockingQueueBound, scheduler.BlockingPool)

	settings.discoveryEnabled = cfg.Boolean(KeyDiscoveryEnabled, false)
	if settings.discoveryEnabled {
		settings.discovery = []discovery.Option{
			discovery.WithGroup(cfg.String(KeyDiscoveryGroup, discovery.DefaultGroup)),
			discovery.WithPort(cfg.Integer(KeyDiscoveryPort, discovery.DefaultPort)),
			discovery.WithHeartbeatInterval(cfg.Duration(KeyDiscoveryInterval, discovery.DefaultHeartbeatInterval)),
			discovery.WithAllowedHeartbeatMisses(cfg.Float(KeyDiscoveryAllowedMisses, discovery.DefaultAllowedHeartbeatMisses)),
			discovery.WithInterface(cfg.String(KeyDiscoveryInterface, "")),
			discovery.WithLoopback(cfg.Boolean(KeyDiscoveryLoopback, true)),
		}
	}

	if cfg.Child(keyRemote) != nil {
		compression, cerr := remote.ParseCompression(cfg.String(KeyRemoteCompression, ""))
		if cerr != nil {
			err = multierr.Append(err, rerrors.NewErrInvalidConfigValue(KeyRemoteCompression, cerr))
		}

		opts := []remote.Option{remote.WithCompression(compression)}
		if host := cfg.String(KeyRemoteAdvertisedHost, ""); host != "" {
			opts = append(opts, remote.WithAdvertisedHost(host))
		}
		if timeout := cfg.Duration(KeyRemoteAttributeTimeout, 0); timeout > 0 {
			opts = append(opts, remote.WithAttributeTimeout(timeout))
		}
		settings.remote = remote.NewConfig(
			cfg.String(KeyRemoteHost, defaultRemoteHost),
			cfg.Integer(KeyRemotePort, 0),
			opts...)
	}

	if md := cfg.Child(KeyMetadata); md != nil {
		for _, name := range md.ValueNames() {
			settings.metadata.Set(name, md.String(name, ""))
		}
	}

	if err != nil {
		return nil, err
	}
	return settings, nil
}
