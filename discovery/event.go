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

import "fmt"

// EventKind classifies a registry change
type EventKind int

const (
	// PeerAlive is emitted when a context is heard for the first time or
	// rejoins after eviction
	PeerAlive EventKind = iota + 1
	// PeerUpdated is emitted when a known context announces a different descriptor
	PeerUpdated
	// PeerEvicted is emitted when a context missed too many heartbeats
	PeerEvicted
)

// String returns the kind name
func (k EventKind) String() string {
	switch k {
	case PeerAlive:
		return "PeerAlive"
	case PeerUpdated:
		return "PeerUpdated"
	case PeerEvicted:
		return "PeerEvicted"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a registry change. Descriptor is the last descriptor known
// for the peer.
type Event struct {
	Kind       EventKind
	Descriptor Descriptor
}

// Listener receives registry events. Listeners run synchronously on the
// receive loop and must not block.
type Listener func(Event)

// PeerState is the liveness of a peer as seen by the local service
type PeerState int

const (
	// PeerUnknown means the peer was never heard or has been evicted
	PeerUnknown PeerState = iota
	// PeerReachable means the last heartbeat is at most one interval old
	PeerReachable
	// PeerStale means at least one heartbeat was missed
	PeerStale
)

// String returns the state name
func (s PeerState) String() string {
	switch s {
	case PeerUnknown:
		return "UNKNOWN"
	case PeerReachable:
		return "ALIVE"
	case PeerStale:
		return "STALE"
	default:
		return fmt.Sprintf("PeerState(%d)", int(s))
	}
}
