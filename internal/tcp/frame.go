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

package tcp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

const (
	// DefaultMaxFrameSize bounds a single frame body (16 MiB)
	DefaultMaxFrameSize = 16 << 20

	headerSize = 4
	flagsSize  = 1

	// flagZstd marks a zstd compressed body
	flagZstd byte = 0x1
	// flagBrotli marks a brotli compressed body
	flagBrotli byte = 0x2
)

// Algorithm is the compression applied to written frames
type Algorithm uint8

const (
	// Plain writes bodies as is
	Plain Algorithm = iota
	// Zstd compresses bodies with Zstandard
	Zstd
	// Brotli compresses bodies with Brotli
	Brotli
)

// Codec reads and writes frames. A frame is laid out as
//
//	u32 length | u8 flags | body
//
// where length counts the flags byte and the body. A Codec is safe for
// concurrent use.
type Codec struct {
	maxFrameSize int
	algorithm    Algorithm
	encoder      *zstd.Encoder
	decoder      *zstd.Decoder
	brotli       *brotliCodec
}

// CodecOption configures a Codec
type CodecOption func(*codecConfig)

type codecConfig struct {
	maxFrameSize int
	algorithm    Algorithm
	level        zstd.EncoderLevel
	brotliLevel  int
}

// WithCompression sets the compression of written frames. Frames of every
// algorithm are always accepted on read.
func WithCompression(algorithm Algorithm) CodecOption {
	return func(c *codecConfig) { c.algorithm = algorithm }
}

// WithBrotliLevel sets the Brotli quality, from 0 to 11
func WithBrotliLevel(level int) CodecOption {
	return func(c *codecConfig) {
		if level >= brotli.BestSpeed && level <= brotli.BestCompression {
			c.brotliLevel = level
		}
	}
}

// WithZstdLevel sets the Zstandard compression level
func WithZstdLevel(level zstd.EncoderLevel) CodecOption {
	return func(c *codecConfig) { c.level = level }
}

// WithMaxFrameSize caps the body size of a frame
func WithMaxFrameSize(size int) CodecOption {
	return func(c *codecConfig) {
		if size > 0 {
			c.maxFrameSize = size
		}
	}
}

// NewCodec creates a Codec
func NewCodec(opts ...CodecOption) (*Codec, error) {
	cfg := codecConfig{
		maxFrameSize: DefaultMaxFrameSize,
		level:        zstd.SpeedDefault,
		brotliLevel:  brotli.DefaultCompression,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(cfg.level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithLowerEncoderMem(true))
	if err != nil {
		return nil, fmt.Errorf("invalid zstd encoder options: %w", err)
	}

	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
		zstd.WithDecoderMaxMemory(uint64(cfg.maxFrameSize)))
	if err != nil {
		return nil, errors.Join(err, encoder.Close())
	}

	return &Codec{
		maxFrameSize: cfg.maxFrameSize,
		algorithm:    cfg.algorithm,
		encoder:      encoder,
		decoder:      decoder,
		brotli:       newBrotliCodec(cfg.brotliLevel),
	}, nil
}

// Algorithm returns the compression of written frames
func (c *Codec) Algorithm() Algorithm {
	return c.algorithm
}

// Compressed reports whether written frames are compressed
func (c *Codec) Compressed() bool {
	return c.algorithm != Plain
}

// MaxFrameSize returns the body size limit
func (c *Codec) MaxFrameSize() int {
	return c.maxFrameSize
}

// Encode returns body wrapped in a frame
func (c *Codec) Encode(body []byte) ([]byte, error) {
	if len(body) > c.maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}

	var flags byte
	payload := body
	switch c.algorithm {
	case Zstd:
		payload = c.encoder.EncodeAll(body, make([]byte, 0, len(body)/2+16))
		flags |= flagZstd
	case Brotli:
		compressed, err := c.brotli.encode(body)
		if err != nil {
			return nil, err
		}
		payload = compressed
		flags |= flagBrotli
	default:
	}

	frame := make([]byte, headerSize+flagsSize+len(payload))
	binary.BigEndian.PutUint32(frame[:headerSize], uint32(flagsSize+len(payload)))
	frame[headerSize] = flags
	copy(frame[headerSize+flagsSize:], payload)
	return frame, nil
}

// WriteFrame encodes body and writes it to w in one call
func (c *Codec) WriteFrame(w io.Writer, body []byte) error {
	frame, err := c.Encode(body)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadFrame reads one frame from r and returns its decoded body
func (c *Codec) ReadFrame(r io.Reader) ([]byte, error) {
	var header [headerSize + flagsSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header[:headerSize])
	if length < flagsSize {
		return nil, ErrInvalidFrame
	}

	size := int(length) - flagsSize
	if size > c.maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	flags := header[headerSize]
	switch {
	case flags == 0:
		return payload, nil
	case flags == flagZstd:
		body, err := c.decoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}
		return body, nil
	case flags == flagBrotli:
		body, err := c.brotli.decode(payload, c.maxFrameSize)
		switch {
		case errors.Is(err, ErrFrameTooLarge):
			return nil, err
		case err != nil:
			return nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w: unknown flags 0x%x", ErrInvalidFrame, flags)
	}
}

// Close releases the compression resources
func (c *Codec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
