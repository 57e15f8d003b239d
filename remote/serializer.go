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
	"encoding/binary"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/tochemey/robokit/internal/types"
)

// typesRegistry resolves payload types from their wire names on the receive
// path. Builtin scalars are registered at init; unit message and attribute
// types are added with RegisterSerializableTypes.
var typesRegistry = types.NewRegistry()

func init() {
	RegisterSerializableTypes(
		"", false,
		int(0), int32(0), int64(0),
		float32(0), float64(0),
		[]byte(nil), []string(nil),
	)
}

// Serializer errors.
var (
	// ErrNilMessage is returned when serializing nil
	ErrNilMessage = errors.New("remote: message is nil")
	// ErrTypeNotRegistered is returned when the payload type is unknown to the registry
	ErrTypeNotRegistered = errors.New("remote: type not registered")
	// ErrSerializeFailed wraps CBOR marshaling failures
	ErrSerializeFailed = errors.New("remote: failed to serialize message")
	// ErrDeserializeFailed wraps CBOR unmarshaling failures
	ErrDeserializeFailed = errors.New("remote: failed to deserialize message")
	// ErrInvalidPayload is returned for truncated or inconsistent payloads
	ErrInvalidPayload = errors.New("remote: malformed or truncated payload")

	cborEncOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	cborDecOpts = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		UTF8:            cbor.UTF8DecodeInvalid,
	}
)

// RegisterSerializableTypes registers the exact types of the given values.
// A value and a pointer to it are distinct types:
//
//	remote.RegisterSerializableTypes(Reading{}, new(Command))
func RegisterSerializableTypes(values ...any) {
	for _, v := range values {
		typesRegistry.Register(v)
	}
}

// Serializer encodes values as self-describing CBOR payloads.
//
// # Payload layout
//
//	┌──────────┬────────────┬──────────────┐
//	│ nameLen  │ type name  │ CBOR bytes   │
//	│ 4 bytes  │ N bytes    │ M bytes      │
//	│ uint32BE │            │              │
//	└──────────┴────────────┴──────────────┘
//
// Serializer is stateless and safe for concurrent use.
type Serializer struct {
	encMode cbor.EncMode
	decMode cbor.DecMode
}

// NewSerializer returns a Serializer backed by the package type registry
func NewSerializer() *Serializer {
	encMode, _ := cborEncOpts.EncMode()
	decMode, _ := cborDecOpts.DecMode()
	return &Serializer{encMode: encMode, decMode: decMode}
}

// Serialize encodes message. Its exact type must be registered.
func (s *Serializer) Serialize(message any) ([]byte, error) {
	if message == nil {
		return nil, ErrNilMessage
	}

	name := types.Name(message)
	if _, ok := typesRegistry.TypeOf(name); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, name)
	}

	body, err := s.encMode.Marshal(message)
	if err != nil {
		return nil, errors.Join(ErrSerializeFailed, err)
	}

	out := make([]byte, 4, 4+len(name)+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(name)))
	out = append(out, name...)
	out = append(out, body...)
	return out, nil
}

// Deserialize decodes a payload produced by Serialize into a fresh value of
// the registered type. The returned value has exactly the type that was
// serialized.
func (s *Serializer) Deserialize(data []byte) (any, error) {
	if len(data) < 4 {
		return nil, ErrInvalidPayload
	}

	nameLen := int(binary.BigEndian.Uint32(data[:4]))
	if nameLen == 0 || 4+nameLen > len(data) {
		return nil, ErrInvalidPayload
	}

	name := string(data[4 : 4+nameLen])
	rtype, ok := typesRegistry.TypeOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotRegistered, name)
	}

	ptr := reflect.New(rtype)
	if err := s.decMode.Unmarshal(data[4+nameLen:], ptr.Interface()); err != nil {
		return nil, errors.Join(ErrDeserializeFailed, err)
	}
	return ptr.Elem().Interface(), nil
}

// TypeName returns the wire name of the type of v
func TypeName(v any) string {
	return types.Name(v)
}
