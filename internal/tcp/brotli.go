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
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/andybalholm/brotli"
)

// brotliCodec compresses frame bodies with pooled Brotli writers and readers.
// It is safe for concurrent use.
type brotliCodec struct {
	level   int
	writers sync.Pool
	readers sync.Pool
}

func newBrotliCodec(level int) *brotliCodec {
	b := &brotliCodec{level: level}
	b.writers.New = func() any { return brotli.NewWriterLevel(nil, b.level) }
	b.readers.New = func() any { return brotli.NewReader(nil) }
	return b
}

func (b *brotliCodec) encode(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(body)/2 + 16)

	w := b.writers.Get().(*brotli.Writer)
	w.Reset(&buf)
	defer func() {
		w.Reset(nil)
		b.writers.Put(w)
	}()

	if _, err := w.Write(body); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode inflates payload and fails once the body would exceed limit
func (b *brotliCodec) decode(payload []byte, limit int) ([]byte, error) {
	r := b.readers.Get().(*brotli.Reader)
	defer b.readers.Put(r)

	if err := r.Reset(bytes.NewReader(payload)); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(body) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes once inflated", ErrFrameTooLarge, limit)
	}
	return body, nil
}
