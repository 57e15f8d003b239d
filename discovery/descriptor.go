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
	"net"
	"strconv"

	"github.com/fxamacker/cbor/v2"
)

// Metadata is an ordered set of string key/value pairs describing a context.
// Keys keep their insertion order; setting an existing key replaces its value
// in place. The zero value is ready to use.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata builds Metadata from alternating keys and values. A trailing
// key without a value is ignored.
func NewMetadata(keyValues ...string) Metadata {
	var m Metadata
	for i := 0; i+1 < len(keyValues); i += 2 {
		m.Set(keyValues[i], keyValues[i+1])
	}
	return m
}

// Set adds or replaces a key
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value of key
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys
func (m Metadata) Len() int {
	return len(m.keys)
}

// Equal reports whether both sets hold the same pairs in the same order
func (m Metadata) Equal(other Metadata) bool {
	if len(m.keys) != len(other.keys) {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// Copy returns a deep copy
func (m Metadata) Copy() Metadata {
	var out Metadata
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

type metadataEntry struct {
	_     struct{} `cbor:",toarray"`
	Key   string
	Value string
}

// MarshalCBOR encodes the pairs as an array so that order survives the wire
func (m Metadata) MarshalCBOR() ([]byte, error) {
	entries := make([]metadataEntry, 0, len(m.keys))
	for _, k := range m.keys {
		entries = append(entries, metadataEntry{Key: k, Value: m.values[k]})
	}
	return cbor.Marshal(entries)
}

// UnmarshalCBOR implements cbor.Unmarshaler
func (m *Metadata) UnmarshalCBOR(data []byte) error {
	var entries []metadataEntry
	if err := cbor.Unmarshal(data, &entries); err != nil {
		return err
	}
	*m = Metadata{}
	for _, e := range entries {
		m.Set(e.Key, e.Value)
	}
	return nil
}

// Descriptor identifies a context on the network and tells peers where its
// remote endpoint listens. A Port of zero means the context is not reachable
// for remote messaging.
type Descriptor struct {
	ID       string   `cbor:"1,keyasint"`
	Metadata Metadata `cbor:"2,keyasint"`
	Host     string   `cbor:"3,keyasint,omitempty"`
	Port     int      `cbor:"4,keyasint,omitempty"`
}

// Endpoint returns the remote endpoint of the descriptor
func (d Descriptor) Endpoint() Endpoint {
	return Endpoint{Host: d.Host, Port: d.Port}
}

// Equal reports whether both descriptors carry the same information
func (d Descriptor) Equal(other Descriptor) bool {
	return d.ID == other.ID &&
		d.Host == other.Host &&
		d.Port == other.Port &&
		d.Metadata.Equal(other.Metadata)
}

func (d Descriptor) copy() Descriptor {
	d.Metadata = d.Metadata.Copy()
	return d
}

// Endpoint is the TCP address of a context remote server
type Endpoint struct {
	Host string
	Port int
}

// Address returns host:port
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsZero reports whether the endpoint is unset
func (e Endpoint) IsZero() bool {
	return e.Host == "" && e.Port == 0
}
