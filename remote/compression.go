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
	"fmt"
	"strings"

	"github.com/tochemey/robokit/internal/tcp"
)

// Compression is the algorithm applied to frames sent between contexts.
// Receivers accept both compressed and plain frames, so peers may differ.
type Compression int

const (
	// NoCompression sends frames as is
	NoCompression Compression = iota
	// ZstdCompression compresses every frame body with Zstandard
	ZstdCompression
	// BrotliCompression compresses every frame body with Brotli
	BrotliCompression
)

// String returns the configuration name of the compression
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	case BrotliCompression:
		return "brotli"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

// ParseCompression parses a configuration value. The empty string means none.
func ParseCompression(value string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "none":
		return NoCompression, nil
	case "zstd":
		return ZstdCompression, nil
	case "brotli":
		return BrotliCompression, nil
	default:
		return NoCompression, fmt.Errorf("unknown compression %q", value)
	}
}

func (c Compression) algorithm() tcp.Algorithm {
	switch c {
	case ZstdCompression:
		return tcp.Zstd
	case BrotliCompression:
		return tcp.Brotli
	default:
		return tcp.Plain
	}
}
