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

package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/tochemey/robokit/errors"
)

// Document is a declarative system description
//
//	system:
//	  id: mySystem
//	  worker:
//	    poolSize: 5
//	units:
//	  - id: producer
//	    type: stringProducer
//	    config:
//	      target: consumer
type Document struct {
	// System holds the system settings, nil when the section is absent
	System *Configuration
	// Units lists the declared units in document order
	Units []UnitDocument
}

// UnitDocument declares a single unit
type UnitDocument struct {
	ID     string
	Type   string
	Config *Configuration
}

// ParseDocument decodes a YAML document
func ParseDocument(data []byte) (*Document, error) {
	var root yaml.Node
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&root); err != nil {
		if err == io.EOF {
			return &Document{}, nil
		}
		return nil, fmt.Errorf("config: failed to decode document: %w", err)
	}

	if len(root.Content) == 0 {
		return &Document{}, nil
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: line %d: document root must be a mapping", top.Line)
	}

	doc := new(Document)
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, value := top.Content[i], top.Content[i+1]
		switch key.Value {
		case "system":
			system, err := decodeMapping(value)
			if err != nil {
				return nil, err
			}
			doc.System = system.Freeze()
		case "units":
			units, err := decodeUnits(value)
			if err != nil {
				return nil, err
			}
			doc.Units = units
		default:
			return nil, fmt.Errorf("config: line %d: unknown section %q", key.Line, key.Value)
		}
	}
	return doc, nil
}

// ReadDocument reads and decodes a YAML document from a file
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

func decodeUnits(node *yaml.Node) ([]UnitDocument, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("config: line %d: units must be a sequence", node.Line)
	}

	units := make([]UnitDocument, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config: line %d: unit must be a mapping", item.Line)
		}

		unit := UnitDocument{Config: Empty()}
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, value := item.Content[i], item.Content[i+1]
			switch key.Value {
			case "id":
				unit.ID = value.Value
			case "type":
				unit.Type = value.Value
			case "config":
				cfg, err := decodeMapping(value)
				if err != nil {
					return nil, err
				}
				unit.Config = cfg.Freeze()
			default:
				return nil, fmt.Errorf("config: line %d: unknown unit field %q", key.Line, key.Value)
			}
		}

		if unit.ID == "" {
			return nil, fmt.Errorf("config: line %d: %w", item.Line, errors.NewErrMissingConfigValue("id"))
		}
		if unit.Type == "" {
			return nil, fmt.Errorf("config: line %d: unit %s: %w", item.Line, unit.ID, errors.NewErrMissingConfigValue("type"))
		}
		units = append(units, unit)
	}
	return units, nil
}

func decodeMapping(node *yaml.Node) (*Configuration, error) {
	cfg := New()
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return cfg, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config: line %d: expected a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		v, err := decodeValue(value)
		if err != nil {
			return nil, err
		}
		cfg.set(key.Value, v)
	}
	return cfg, nil
}

func decodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.MappingNode:
		return decodeMapping(node)
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.ScalarNode:
		return decodeScalar(node)
	default:
		return nil, fmt.Errorf("config: line %d: unsupported node", node.Line)
	}
}

func decodeScalar(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!int":
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("config: line %d: %w", node.Line, err)
		}
		return n, nil
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("config: line %d: %w", node.Line, err)
		}
		return f, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, fmt.Errorf("config: line %d: %w", node.Line, err)
		}
		return b, nil
	case "!!null":
		return nil, nil
	default:
		return node.Value, nil
	}
}
