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
	"errors"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	rerrors "github.com/tochemey/robokit/errors"
	imetric "github.com/tochemey/robokit/internal/metric"
	"github.com/tochemey/robokit/log"
)

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLogger sets the service logger
func WithLogger(logger log.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMeter publishes the live peer count on the given meter
func WithMeter(meter metric.Meter) ServiceOption {
	return func(s *Service) { s.meter = meter }
}

type peer struct {
	descriptor Descriptor
	instance   string
	seq        uint64
	interval   time.Duration
	lastSeen   time.Time
}

// Service announces the local descriptor and maintains the registry of the
// contexts heard on the multicast group.
//
// Reads filter out peers past the eviction threshold even when the reaper has
// not removed them yet. Service is safe for concurrent use.
type Service struct {
	config   *Config
	logger   log.Logger
	meter    metric.Meter
	instance string
	now      func() time.Time

	mu    sync.RWMutex
	peers map[string]*peer

	listenersMu sync.RWMutex
	listeners   []Listener

	lifecycleMu  sync.Mutex
	recv         *net.UDPConn
	send         *net.UDPConn
	registration metric.Registration
	done         chan struct{}
	wg           sync.WaitGroup

	seq     *atomic.Uint64
	started *atomic.Bool
}

// NewService creates a Service. Call Start to join the group.
func NewService(config *Config, opts ...ServiceOption) *Service {
	s := &Service{
		config:   config,
		logger:   log.DefaultLogger,
		instance: uuid.NewString(),
		now:      time.Now,
		peers:    make(map[string]*peer),
		seq:      atomic.NewUint64(0),
		started:  atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start joins the multicast group and starts the receive, reap and, when the
// service has a local descriptor, broadcast loops.
func (s *Service) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started.Load() {
		return rerrors.ErrAlreadyStarted
	}

	if err := s.config.Validate(); err != nil {
		return err
	}

	recv, err := listenMulticast(ctx, s.config)
	if err != nil {
		return err
	}

	var send *net.UDPConn
	if s.config.descriptor != nil {
		send, err = dialMulticast(s.config)
		if err != nil {
			return errors.Join(err, recv.Close())
		}
	}

	if s.meter != nil {
		if err := s.registerMetrics(); err != nil {
			return errors.Join(err, closeAll(recv, send))
		}
	}

	s.recv = recv
	s.send = send
	s.done = make(chan struct{})
	s.started.Store(true)

	s.wg.Add(2)
	go s.recvLoop(recv, s.done)
	go s.reapLoop(s.done)

	if send != nil {
		packet := s.config.Descriptor()
		s.wg.Add(1)
		go s.sendLoop(send, *packet, s.done)
		s.logger.Infof("discovery announcing context %s on %s", packet.ID, s.config.groupAddr())
		return nil
	}

	s.logger.Infof("discovery listening on %s", s.config.groupAddr())
	return nil
}

// Stop leaves the group, stops every loop and clears the registry
func (s *Service) Stop(context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	close(s.done)
	err := closeAll(s.recv, s.send)
	s.wg.Wait()

	if s.registration != nil {
		err = errors.Join(err, s.registration.Unregister())
		s.registration = nil
	}

	s.mu.Lock()
	s.peers = make(map[string]*peer)
	s.mu.Unlock()

	s.recv, s.send = nil, nil
	s.logger.Infof("discovery on %s stopped", s.config.groupAddr())
	return err
}

// IsStarted reports whether the service has joined the group
func (s *Service) IsStarted() bool {
	return s.started.Load()
}

// Config returns the service configuration
func (s *Service) Config() *Config {
	return s.config
}

// Descriptor returns the descriptor of a live peer
func (s *Service) Descriptor(id string) (*Descriptor, bool) {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.peers[id]
	if !ok || s.evictable(p, now) {
		return nil, false
	}
	d := p.descriptor.copy()
	return &d, true
}

// DiscoveredContexts returns a snapshot of the live peers ordered by id
func (s *Service) DiscoveredContexts() []Descriptor {
	now := s.now()
	s.mu.RLock()
	out := make([]Descriptor, 0, len(s.peers))
	for _, p := range s.peers {
		if !s.evictable(p, now) {
			out = append(out, p.descriptor.copy())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Resolve returns the remote endpoint of a live peer. It fails with
// ErrUnknownContext when the peer is unknown, evicted or announces no
// endpoint.
func (s *Service) Resolve(id string) (Endpoint, error) {
	d, ok := s.Descriptor(id)
	if !ok || d.Port == 0 {
		return Endpoint{}, rerrors.NewErrUnknownContext(id)
	}
	return d.Endpoint(), nil
}

// PeerState returns the liveness of a peer
func (s *Service) PeerState(id string) PeerState {
	now := s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.peers[id]
	if !ok {
		return PeerUnknown
	}

	missed := s.missed(p, now)
	switch {
	case missed > s.config.allowedMisses:
		return PeerUnknown
	case missed > 1:
		return PeerStale
	default:
		return PeerReachable
	}
}

// AddListener registers a listener for registry events
func (s *Service) AddListener(listener Listener) {
	if listener == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, listener)
	s.listenersMu.Unlock()
}

func (s *Service) sendLoop(conn *net.UDPConn, descriptor Descriptor, done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.interval)
	defer ticker.Stop()

	for {
		s.broadcast(conn, descriptor)
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (s *Service) broadcast(conn *net.UDPConn, descriptor Descriptor) {
	packet, err := encodePacket(&heartbeat{
		Instance:       s.instance,
		Seq:            s.seq.Inc(),
		IntervalMillis: s.config.interval.Milliseconds(),
		Descriptor:     descriptor,
	})
	if err != nil {
		s.logger.Errorf("failed to encode heartbeat of context %s: %v", descriptor.ID, err)
		return
	}

	if _, err := conn.Write(packet); err != nil && !s.stopping() {
		s.logger.Debugf("failed to send heartbeat of context %s: %v", descriptor.ID, err)
	}
}

func (s *Service) recvLoop(conn *net.UDPConn, done <-chan struct{}) {
	defer s.wg.Done()
	buf := make([]byte, maxPacketSize)
	for {
		select {
		case <-done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(s.config.readWaitPeriod))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if s.stopping() {
				return
			}
			if !isTimeout(err) {
				s.logger.Debugf("discovery read failed: %v", err)
			}
			continue
		}

		if n > 0 {
			s.handlePacket(buf[:n])
		}
	}
}

func (s *Service) reapLoop(done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *Service) handlePacket(data []byte) {
	h, err := decodePacket(data)
	if err != nil {
		s.logger.Debug(err)
		return
	}

	if h.Instance == s.instance {
		return
	}

	s.emit(s.observe(h, s.now()))
}

// observe records a heartbeat and returns the resulting events
func (s *Service) observe(h *heartbeat, now time.Time) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	id := h.Descriptor.ID
	p, ok := s.peers[id]
	if ok && s.evictable(p, now) {
		delete(s.peers, id)
		events = append(events, Event{Kind: PeerEvicted, Descriptor: p.descriptor.copy()})
		ok = false
	}

	if !ok {
		p = &peer{
			descriptor: h.Descriptor.copy(),
			instance:   h.Instance,
			seq:        h.Seq,
			interval:   h.interval(),
			lastSeen:   now,
		}
		s.peers[id] = p
		return append(events, Event{Kind: PeerAlive, Descriptor: p.descriptor.copy()})
	}

	p.lastSeen = now
	switch {
	case p.instance != h.Instance:
		// the peer restarted: its sequence starts over
		p.instance = h.Instance
	case h.Seq <= p.seq:
		return events
	}

	p.seq = h.Seq
	p.interval = h.interval()
	if !p.descriptor.Equal(h.Descriptor) {
		p.descriptor = h.Descriptor.copy()
		events = append(events, Event{Kind: PeerUpdated, Descriptor: p.descriptor.copy()})
	}
	return events
}

func (s *Service) reap() {
	now := s.now()
	var events []Event

	s.mu.Lock()
	for id, p := range s.peers {
		if s.evictable(p, now) {
			delete(s.peers, id)
			events = append(events, Event{Kind: PeerEvicted, Descriptor: p.descriptor.copy()})
		}
	}
	s.mu.Unlock()

	sort.Slice(events, func(i, j int) bool { return events[i].Descriptor.ID < events[j].Descriptor.ID })
	s.emit(events)
}

func (s *Service) emit(events []Event) {
	if len(events) == 0 {
		return
	}

	s.listenersMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, event := range events {
		s.logger.Debugf("discovery %s: context %s", event.Kind, event.Descriptor.ID)
		for _, listener := range listeners {
			listener(event)
		}
	}
}

func (s *Service) missed(p *peer, now time.Time) float64 {
	return float64(now.Sub(p.lastSeen)) / float64(p.interval)
}

func (s *Service) evictable(p *peer, now time.Time) bool {
	return s.missed(p, now) > s.config.allowedMisses
}

func (s *Service) stopping() bool {
	return !s.started.Load()
}

func (s *Service) registerMetrics() error {
	instruments, err := imetric.NewDiscoveryMetric(s.meter)
	if err != nil {
		return err
	}

	registration, err := s.meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		observer.ObserveInt64(instruments.Peers(), int64(len(s.DiscoveredContexts())))
		return nil
	}, instruments.Peers())
	if err != nil {
		return err
	}
	s.registration = registration
	return nil
}

func closeAll(conns ...*net.UDPConn) error {
	eg := new(errgroup.Group)
	for _, conn := range conns {
		if conn != nil {
			eg.Go(conn.Close)
		}
	}
	return eg.Wait()
}
