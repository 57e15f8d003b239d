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
	"bytes"
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

var (
	packetMagic = []byte("RK01")

	errInvalidPacket = errors.New("discovery: invalid heartbeat packet")

	encMode, _ = cbor.EncOptions{IndefLength: cbor.IndefLengthForbidden}.EncMode()
	decMode, _ = cbor.DecOptions{
		MaxNestedLevels:  16,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: 1024,
		MaxMapPairs:      1024,
	}.DecMode()
)

// heartbeat is the body of a discovery packet.
//
//	┌─────────┬──────────────────────────────────────────────────┐
//	│ "RK01"  │ CBOR {instance, seq, intervalMillis, descriptor} │
//	│ 4 bytes │ N bytes                                          │
//	└─────────┴──────────────────────────────────────────────────┘
//
// Instance changes on every process start so that a restarted peer is not
// mistaken for a replay of old packets.
type heartbeat struct {
	Instance       string     `cbor:"1,keyasint"`
	Seq            uint64     `cbor:"2,keyasint"`
	IntervalMillis int64      `cbor:"3,keyasint"`
	Descriptor     Descriptor `cbor:"4,keyasint"`
}

func (h *heartbeat) interval() time.Duration {
	return time.Duration(h.IntervalMillis) * time.Millisecond
}

func encodePacket(h *heartbeat) ([]byte, error) {
	body, err := encMode.Marshal(h)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(packetMagic)+len(body))
	out = append(out, packetMagic...)
	out = append(out, body...)
	if len(out) > maxPacketSize {
		return nil, errors.Join(errInvalidPacket, errors.New("descriptor too large"))
	}
	return out, nil
}

func decodePacket(data []byte) (*heartbeat, error) {
	if !bytes.HasPrefix(data, packetMagic) {
		return nil, errInvalidPacket
	}

	h := new(heartbeat)
	if err := decMode.Unmarshal(data[len(packetMagic):], h); err != nil {
		return nil, errors.Join(errInvalidPacket, err)
	}

	if h.Instance == "" || h.Descriptor.ID == "" || h.IntervalMillis <= 0 {
		return nil, errInvalidPacket
	}
	return h, nil
}
