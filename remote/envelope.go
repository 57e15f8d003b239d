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

package remote

import (
	"errors"
	"fmt"
)

// Kind identifies the purpose of an Envelope
type Kind uint8

const (
	// KindTell carries a fire-and-forget message
	KindTell Kind = iota + 1
	// KindAttributeRequest asks a unit for an attribute value
	KindAttributeRequest
	// KindAttributeResponse answers a KindAttributeRequest
	KindAttributeResponse
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindTell:
		return "tell"
	case KindAttributeRequest:
		return "attributeRequest"
	case KindAttributeResponse:
		return "attributeResponse"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Envelope is the unit of exchange between contexts. Payload holds a value
// encoded by Serializer.
type Envelope struct {
	Kind          Kind   `cbor:"1,keyasint"`
	CorrelationID string `cbor:"2,keyasint,omitempty"`
	SourceContext string `cbor:"3,keyasint,omitempty"`
	TargetContext string `cbor:"4,keyasint,omitempty"`
	UnitID        string `cbor:"5,keyasint"`
	Attribute     string `cbor:"6,keyasint,omitempty"`
	AttributeType string `cbor:"7,keyasint,omitempty"`
	Payload       []byte `cbor:"8,keyasint,omitempty"`
	Error         string `cbor:"9,keyasint,omitempty"`
	ErrorCode     string `cbor:"10,keyasint,omitempty"`
}

// ErrInvalidEnvelope is returned for envelopes that cannot be decoded or are
// missing required fields
var ErrInvalidEnvelope = errors.New("remote: invalid envelope")

// MarshalEnvelope encodes an envelope
func (s *Serializer) MarshalEnvelope(envelope *Envelope) ([]byte, error) {
	if envelope == nil {
		return nil, ErrNilMessage
	}
	out, err := s.encMode.Marshal(envelope)
	if err != nil {
		return nil, errors.Join(ErrSerializeFailed, err)
	}
	return out, nil
}

// UnmarshalEnvelope decodes and checks an envelope
func (s *Serializer) UnmarshalEnvelope(data []byte) (*Envelope, error) {
	envelope := new(Envelope)
	if err := s.decMode.Unmarshal(data, envelope); err != nil {
		return nil, errors.Join(ErrInvalidEnvelope, err)
	}

	switch envelope.Kind {
	case KindTell, KindAttributeRequest:
		if envelope.UnitID == "" {
			return nil, fmt.Errorf("%w: missing unit id", ErrInvalidEnvelope)
		}
	case KindAttributeResponse:
	default:
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidEnvelope, envelope.Kind)
	}
	return envelope, nil
}
