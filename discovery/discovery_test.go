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

package discovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/internal/pause"
	"github.com/tochemey/robokit/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) listen(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func newTestService(clock *fakeClock, opts ...Option) (*Service, *recorder) {
	opts = append([]Option{WithHeartbeatInterval(time.Second), WithAllowedHeartbeatMisses(3)}, opts...)
	service := NewService(NewConfig(opts...), WithLogger(log.DiscardLogger))
	service.now = clock.Now
	rec := new(recorder)
	service.AddListener(rec.listen)
	return service, rec
}

func packet(t *testing.T, instance string, seq uint64, descriptor Descriptor) []byte {
	t.Helper()
	out, err := encodePacket(&heartbeat{
		Instance:       instance,
		Seq:            seq,
		IntervalMillis: 1000,
		Descriptor:     descriptor,
	})
	require.NoError(t, err)
	return out
}

func caprica() Descriptor {
	return Descriptor{
		ID:       "6",
		Metadata: NewMetadata("name", "Caprica", "class", "Cylon"),
		Host:     "127.0.0.1",
		Port:     9000,
	}
}

func TestMetadata(t *testing.T) {
	t.Run("With insertion order preserved", func(t *testing.T) {
		md := NewMetadata("name", "Caprica", "class", "Cylon", "dangling")
		md.Set("name", "Six")
		require.Equal(t, []string{"name", "class"}, md.Keys())
		value, ok := md.Get("name")
		require.True(t, ok)
		assert.Equal(t, "Six", value)
		assert.Equal(t, 2, md.Len())
	})
	t.Run("With order significant for equality", func(t *testing.T) {
		a := NewMetadata("a", "1", "b", "2")
		b := NewMetadata("b", "2", "a", "1")
		assert.False(t, a.Equal(b))
		assert.True(t, a.Equal(a.Copy()))
	})
	t.Run("With CBOR round trip", func(t *testing.T) {
		md := NewMetadata("z", "last", "a", "first")
		raw, err := cbor.Marshal(md)
		require.NoError(t, err)

		var decoded Metadata
		require.NoError(t, cbor.Unmarshal(raw, &decoded))
		assert.True(t, md.Equal(decoded))
		assert.Equal(t, []string{"z", "a"}, decoded.Keys())
	})
	t.Run("With copy independent", func(t *testing.T) {
		md := NewMetadata("a", "1")
		cp := md.Copy()
		cp.Set("a", "2")
		value, _ := md.Get("a")
		assert.Equal(t, "1", value)
	})
}

func TestConfig(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		config := NewConfig()
		assert.Equal(t, "238.12.15.254", config.Group())
		assert.Equal(t, 4094, config.Port())
		assert.Equal(t, time.Second, config.HeartbeatInterval())
		assert.InDelta(t, 10.0, config.AllowedHeartbeatMisses(), 0)
		assert.True(t, config.Loopback())
		assert.Nil(t, config.Descriptor())
		require.NoError(t, config.Validate())
	})
	t.Run("With invalid values", func(t *testing.T) {
		config := NewConfig(
			WithGroup("10.0.0.1"),
			WithPort(0),
			WithHeartbeatInterval(time.Nanosecond),
			WithAllowedHeartbeatMisses(0),
			WithDescriptor(Descriptor{ID: "bad id"}),
		)
		err := config.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "discovery.group")
		assert.Contains(t, err.Error(), "discovery.port")
		assert.Contains(t, err.Error(), "discovery.heartbeatInterval")
		assert.Contains(t, err.Error(), "discovery.allowedHeartbeatMisses")
		assert.Contains(t, err.Error(), "discovery.descriptor.id")
	})
	t.Run("With fractional misses and the smallest interval", func(t *testing.T) {
		config := NewConfig(
			WithHeartbeatInterval(MinHeartbeatInterval),
			WithAllowedHeartbeatMisses(0.5))
		require.NoError(t, config.Validate())
		assert.InDelta(t, 0.5, config.AllowedHeartbeatMisses(), 0)

		err := NewConfig(WithHeartbeatInterval(MinHeartbeatInterval - time.Nanosecond)).Validate()
		assert.ErrorContains(t, err, "discovery.heartbeatInterval")
	})
	t.Run("With descriptor copied", func(t *testing.T) {
		d := caprica()
		config := NewConfig(WithDescriptor(d))
		d.Metadata.Set("name", "changed")
		got := config.Descriptor()
		require.NotNil(t, got)
		value, _ := got.Metadata.Get("name")
		assert.Equal(t, "Caprica", value)
	})
}

func TestPacket(t *testing.T) {
	t.Run("With round trip", func(t *testing.T) {
		raw := packet(t, "instance", 7, caprica())
		h, err := decodePacket(raw)
		require.NoError(t, err)
		assert.Equal(t, "instance", h.Instance)
		assert.EqualValues(t, 7, h.Seq)
		assert.Equal(t, time.Second, h.interval())
		assert.True(t, caprica().Equal(h.Descriptor))
	})
	t.Run("With foreign packets rejected", func(t *testing.T) {
		_, err := decodePacket([]byte("RK00|cluster|127.0.0.1:3222"))
		require.ErrorIs(t, err, errInvalidPacket)

		_, err = decodePacket(append([]byte("RK01"), 0xff, 0x00))
		require.ErrorIs(t, err, errInvalidPacket)
	})
	t.Run("With missing fields rejected", func(t *testing.T) {
		raw, err := encodePacket(&heartbeat{Instance: "x", Seq: 1, IntervalMillis: 1000})
		require.NoError(t, err)
		_, err = decodePacket(raw)
		require.ErrorIs(t, err, errInvalidPacket)

		raw, err = encodePacket(&heartbeat{Instance: "x", Seq: 1, Descriptor: caprica()})
		require.NoError(t, err)
		_, err = decodePacket(raw)
		require.ErrorIs(t, err, errInvalidPacket)
	})
}

func TestRegistry(t *testing.T) {
	t.Run("With own heartbeat ignored", func(t *testing.T) {
		service, rec := newTestService(newFakeClock())
		service.handlePacket(packet(t, service.instance, 1, caprica()))
		assert.Empty(t, service.DiscoveredContexts())
		assert.Empty(t, rec.kinds())
	})
	t.Run("With new peer alive", func(t *testing.T) {
		service, rec := newTestService(newFakeClock())
		service.handlePacket(packet(t, "peer", 1, caprica()))

		d, ok := service.Descriptor("6")
		require.True(t, ok)
		value, _ := d.Metadata.Get("class")
		assert.Equal(t, "Cylon", value)
		assert.Equal(t, PeerReachable, service.PeerState("6"))
		assert.Equal(t, []EventKind{PeerAlive}, rec.kinds())

		endpoint, err := service.Resolve("6")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", endpoint.Address())
	})
	t.Run("With garbage dropped", func(t *testing.T) {
		service, rec := newTestService(newFakeClock())
		service.handlePacket([]byte("noise"))
		assert.Empty(t, service.DiscoveredContexts())
		assert.Empty(t, rec.kinds())
	})
	t.Run("With metadata update", func(t *testing.T) {
		service, rec := newTestService(newFakeClock())
		service.handlePacket(packet(t, "peer", 1, caprica()))
		service.handlePacket(packet(t, "peer", 2, caprica()))

		updated := caprica()
		updated.Metadata.Set("name", "Six")
		service.handlePacket(packet(t, "peer", 3, updated))

		d, ok := service.Descriptor("6")
		require.True(t, ok)
		value, _ := d.Metadata.Get("name")
		assert.Equal(t, "Six", value)
		assert.Equal(t, []EventKind{PeerAlive, PeerUpdated}, rec.kinds())
	})
	t.Run("With old sequence refreshing liveness only", func(t *testing.T) {
		clock := newFakeClock()
		service, rec := newTestService(clock)
		service.handlePacket(packet(t, "peer", 5, caprica()))

		clock.Advance(2 * time.Second)
		require.Equal(t, PeerStale, service.PeerState("6"))

		replayed := caprica()
		replayed.Port = 1
		service.handlePacket(packet(t, "peer", 4, replayed))

		assert.Equal(t, PeerReachable, service.PeerState("6"))
		d, _ := service.Descriptor("6")
		assert.Equal(t, 9000, d.Port)
		assert.Equal(t, []EventKind{PeerAlive}, rec.kinds())
	})
	t.Run("With restarted peer resetting its sequence", func(t *testing.T) {
		service, rec := newTestService(newFakeClock())
		service.handlePacket(packet(t, "before", 100, caprica()))

		restarted := caprica()
		restarted.Port = 9001
		service.handlePacket(packet(t, "after", 1, restarted))
		service.handlePacket(packet(t, "after", 2, restarted))

		endpoint, err := service.Resolve("6")
		require.NoError(t, err)
		assert.Equal(t, 9001, endpoint.Port)
		assert.Equal(t, []EventKind{PeerAlive, PeerUpdated}, rec.kinds())
	})
	t.Run("With ordered snapshot", func(t *testing.T) {
		service, _ := newTestService(newFakeClock())
		for _, id := range []string{"9", "7", "8"} {
			service.handlePacket(packet(t, "peer-"+id, 1, Descriptor{ID: id}))
		}
		var ids []string
		for _, d := range service.DiscoveredContexts() {
			ids = append(ids, d.ID)
		}
		assert.Equal(t, []string{"7", "8", "9"}, ids)
	})
	t.Run("With unknown context", func(t *testing.T) {
		service, _ := newTestService(newFakeClock())
		_, err := service.Resolve("42")
		require.ErrorIs(t, err, rerrors.ErrUnknownContext)
		assert.Equal(t, PeerUnknown, service.PeerState("42"))
	})
	t.Run("With listen-only peer not resolvable", func(t *testing.T) {
		service, _ := newTestService(newFakeClock())
		service.handlePacket(packet(t, "peer", 1, Descriptor{ID: "7"}))
		_, ok := service.Descriptor("7")
		require.True(t, ok)
		_, err := service.Resolve("7")
		require.ErrorIs(t, err, rerrors.ErrUnknownContext)
	})
}

func TestStaleness(t *testing.T) {
	t.Run("With stale then evicted", func(t *testing.T) {
		clock := newFakeClock()
		service, rec := newTestService(clock)
		service.handlePacket(packet(t, "peer", 1, caprica()))

		clock.Advance(time.Second)
		assert.Equal(t, PeerReachable, service.PeerState("6"))

		clock.Advance(500 * time.Millisecond)
		assert.Equal(t, PeerStale, service.PeerState("6"))
		_, ok := service.Descriptor("6")
		assert.True(t, ok)

		clock.Advance(1500 * time.Millisecond)
		assert.Equal(t, PeerStale, service.PeerState("6"))

		clock.Advance(time.Millisecond)
		assert.Equal(t, PeerUnknown, service.PeerState("6"))
		_, ok = service.Descriptor("6")
		assert.False(t, ok)
		assert.Empty(t, service.DiscoveredContexts())

		service.reap()
		assert.Equal(t, []EventKind{PeerAlive, PeerEvicted}, rec.kinds())
	})
	t.Run("With fractional threshold", func(t *testing.T) {
		clock := newFakeClock()
		service, _ := newTestService(clock, WithAllowedHeartbeatMisses(2.5))
		service.handlePacket(packet(t, "peer", 1, caprica()))

		clock.Advance(2400 * time.Millisecond)
		assert.Equal(t, PeerStale, service.PeerState("6"))
		clock.Advance(200 * time.Millisecond)
		assert.Equal(t, PeerUnknown, service.PeerState("6"))
	})
	t.Run("With rejoin after eviction", func(t *testing.T) {
		clock := newFakeClock()
		service, rec := newTestService(clock)
		service.handlePacket(packet(t, "peer", 1, caprica()))

		clock.Advance(10 * time.Second)
		service.handlePacket(packet(t, "peer", 2, caprica()))

		assert.Equal(t, PeerReachable, service.PeerState("6"))
		assert.Equal(t, []EventKind{PeerAlive, PeerEvicted, PeerAlive}, rec.kinds())
	})
	t.Run("With reaper keeping live peers", func(t *testing.T) {
		clock := newFakeClock()
		service, rec := newTestService(clock)
		service.handlePacket(packet(t, "peer", 1, caprica()))
		clock.Advance(2 * time.Second)
		service.reap()
		assert.Len(t, service.DiscoveredContexts(), 1)
		assert.Equal(t, []EventKind{PeerAlive}, rec.kinds())
	})
}

func TestService(t *testing.T) {
	if testing.Short() {
		t.Skip("multicast tests skipped in short mode")
	}

	ctx := context.TODO()
	port := dynaport.Get(1)[0]

	t.Run("With two contexts discovering each other", func(t *testing.T) {
		six := NewService(NewConfig(
			WithPort(port),
			WithHeartbeatInterval(100*time.Millisecond),
			WithDescriptor(Descriptor{ID: "6", Metadata: NewMetadata("name", "Caprica", "class", "Cylon"), Host: "127.0.0.1", Port: 9006}),
		), WithLogger(log.DiscardLogger), WithMeter(noop.NewMeterProvider().Meter("test")))

		seven := NewService(NewConfig(
			WithPort(port),
			WithHeartbeatInterval(100*time.Millisecond),
			WithDescriptor(Descriptor{ID: "7", Host: "127.0.0.1", Port: 9007}),
		), WithLogger(log.DiscardLogger))

		if err := six.Start(ctx); err != nil {
			t.Skipf("multicast unavailable: %v", err)
		}
		t.Cleanup(func() { _ = six.Stop(ctx) })
		if err := seven.Start(ctx); err != nil {
			t.Skipf("multicast unavailable: %v", err)
		}
		t.Cleanup(func() { _ = seven.Stop(ctx) })

		require.ErrorIs(t, six.Start(ctx), rerrors.ErrAlreadyStarted)

		discovered := false
		for range 50 {
			_, a := six.Descriptor("7")
			_, b := seven.Descriptor("6")
			if a && b {
				discovered = true
				break
			}
			pause.For(100 * time.Millisecond)
		}
		if !discovered {
			t.Skip("multicast packets are not delivered on this host")
		}

		d, ok := seven.Descriptor("6")
		require.True(t, ok)
		name, _ := d.Metadata.Get("name")
		assert.Equal(t, "Caprica", name)
		assert.Equal(t, "127.0.0.1:9006", mustResolve(t, seven, "6"))

		// own heartbeats never show up
		_, ok = six.Descriptor("6")
		assert.False(t, ok)
	})
	t.Run("With listen-only service", func(t *testing.T) {
		listener := NewService(NewConfig(WithPort(port)), WithLogger(log.DiscardLogger))
		if err := listener.Start(ctx); err != nil {
			t.Skipf("multicast unavailable: %v", err)
		}
		assert.True(t, listener.IsStarted())
		require.NoError(t, listener.Stop(ctx))
		require.NoError(t, listener.Stop(ctx))
		assert.False(t, listener.IsStarted())
	})
	t.Run("With invalid config", func(t *testing.T) {
		service := NewService(NewConfig(WithGroup("127.0.0.1")), WithLogger(log.DiscardLogger))
		require.Error(t, service.Start(ctx))
		assert.False(t, service.IsStarted())
	})
}

func mustResolve(t *testing.T, service *Service, id string) string {
	t.Helper()
	endpoint, err := service.Resolve(id)
	require.NoError(t, err)
	return endpoint.Address()
}

func TestStatic(t *testing.T) {
	t.Run("With known and unknown contexts", func(t *testing.T) {
		static := NewStatic(caprica(), Descriptor{ID: "no-port"}, Descriptor{ID: "7", Host: "127.0.0.1", Port: 9007})

		endpoint, err := static.Resolve("6")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9000", endpoint.Address())

		_, err = static.Resolve("no-port")
		require.ErrorIs(t, err, rerrors.ErrUnknownContext)

		assert.Len(t, static.Descriptors(), 2)
		assert.Equal(t, "6", static.Descriptors()[0].ID)

		static.Remove("6")
		_, err = static.Resolve("6")
		require.ErrorIs(t, err, rerrors.ErrUnknownContext)
	})
}
