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
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
)

func newCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	codec, err := NewCodec(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = codec.Close() })
	return codec
}

func TestCodec(t *testing.T) {
	t.Run("With plain frame", func(t *testing.T) {
		codec := newCodec(t)
		var buf bytes.Buffer
		require.NoError(t, codec.WriteFrame(&buf, []byte("hello")))

		raw := buf.Bytes()
		assert.EqualValues(t, 6, binary.BigEndian.Uint32(raw[:4]))
		assert.Zero(t, raw[4])

		body, err := codec.ReadFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), body)
	})
	t.Run("With compressed frame", func(t *testing.T) {
		codec := newCodec(t, WithCompression(Zstd))
		require.True(t, codec.Compressed())

		payload := bytes.Repeat([]byte("robokit "), 512)
		var buf bytes.Buffer
		require.NoError(t, codec.WriteFrame(&buf, payload))
		assert.Less(t, buf.Len(), len(payload))
		assert.Equal(t, flagZstd, buf.Bytes()[4])

		// a plain codec still reads compressed frames
		body, err := newCodec(t).ReadFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, payload, body)
	})
	t.Run("With brotli frame", func(t *testing.T) {
		codec := newCodec(t, WithCompression(Brotli), WithBrotliLevel(5))
		require.True(t, codec.Compressed())
		assert.Equal(t, Brotli, codec.Algorithm())

		payload := bytes.Repeat([]byte("robokit "), 512)
		var buf bytes.Buffer
		require.NoError(t, codec.WriteFrame(&buf, payload))
		assert.Less(t, buf.Len(), len(payload))
		assert.Equal(t, flagBrotli, buf.Bytes()[4])

		body, err := newCodec(t, WithCompression(Zstd)).ReadFrame(&buf)
		require.NoError(t, err)
		assert.Equal(t, payload, body)

		frame, err := codec.Encode(payload)
		require.NoError(t, err)
		_, err = newCodec(t, WithMaxFrameSize(64)).ReadFrame(bytes.NewReader(frame))
		assert.ErrorIs(t, err, ErrFrameTooLarge)

		// a truncated brotli body
		cut := frame[:len(frame)/2]
		binary.BigEndian.PutUint32(cut[:4], uint32(len(cut)-4))
		_, err = codec.ReadFrame(bytes.NewReader(cut))
		assert.ErrorIs(t, err, ErrInvalidFrame)
	})
	t.Run("With several frames on one stream", func(t *testing.T) {
		codec := newCodec(t)
		var buf bytes.Buffer
		for i := range 3 {
			require.NoError(t, codec.WriteFrame(&buf, []byte(strconv.Itoa(i))))
		}
		for i := range 3 {
			body, err := codec.ReadFrame(&buf)
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(i), string(body))
		}
		_, err := codec.ReadFrame(&buf)
		assert.ErrorIs(t, err, io.EOF)
	})
	t.Run("With frame too large", func(t *testing.T) {
		codec := newCodec(t, WithMaxFrameSize(8))
		_, err := codec.Encode(make([]byte, 9))
		assert.ErrorIs(t, err, ErrFrameTooLarge)

		frame, err := newCodec(t).Encode(make([]byte, 9))
		require.NoError(t, err)
		_, err = codec.ReadFrame(bytes.NewReader(frame))
		assert.ErrorIs(t, err, ErrFrameTooLarge)
	})
	t.Run("With invalid frames", func(t *testing.T) {
		codec := newCodec(t)
		_, err := codec.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 0, 0}))
		assert.ErrorIs(t, err, ErrInvalidFrame)

		_, err = codec.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 2, 0x4, 'a'}))
		assert.ErrorIs(t, err, ErrInvalidFrame)

		_, err = codec.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 3, flagZstd, 'a', 'b'}))
		assert.ErrorIs(t, err, ErrInvalidFrame)

		_, err = codec.ReadFrame(bytes.NewReader([]byte{0, 0, 0, 9, 0, 'a'}))
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func echoServer(t *testing.T, codec *Codec) *Server {
	t.Helper()
	handler := func(_ context.Context, conn net.Conn) {
		for {
			body, err := codec.ReadFrame(conn)
			if err != nil {
				return
			}
			if err := codec.WriteFrame(conn, append([]byte("echo:"), body...)); err != nil {
				return
			}
		}
	}

	server, err := NewServer("127.0.0.1:0", WithRequestHandler(handler))
	require.NoError(t, err)
	require.NoError(t, server.Listen())
	go func() { _ = server.Serve() }()
	t.Cleanup(func() { _ = server.Shutdown(time.Second) })
	return server
}

func TestServerAndClient(t *testing.T) {
	t.Run("With exchange", func(t *testing.T) {
		codec := newCodec(t, WithCompression(Zstd))
		server := echoServer(t, codec)
		client := NewClient(server.ListenAddr().String(), codec)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		for i := range 5 {
			resp, err := client.Exchange(ctx, []byte(strconv.Itoa(i)))
			require.NoError(t, err)
			assert.Equal(t, "echo:"+strconv.Itoa(i), string(resp))
		}
		// the connection was reused
		assert.EqualValues(t, 1, server.AcceptedConnections())
		assert.EqualValues(t, 1, server.ActiveConnections())
	})
	t.Run("With send", func(t *testing.T) {
		codec := newCodec(t)
		received := make(chan []byte, 1)
		server, err := NewServer("127.0.0.1:0", WithRequestHandler(func(_ context.Context, conn net.Conn) {
			body, err := codec.ReadFrame(conn)
			if err == nil {
				received <- body
			}
		}))
		require.NoError(t, err)
		require.NoError(t, server.Listen())
		go func() { _ = server.Serve() }()
		defer server.Shutdown(time.Second)

		client := NewClient(server.ListenAddr().String(), codec)
		defer client.Close()
		require.NoError(t, client.Send(context.Background(), []byte("fire")))

		select {
		case body := <-received:
			assert.Equal(t, "fire", string(body))
		case <-time.After(time.Second):
			t.Fatal("frame not received")
		}
	})
	t.Run("With dial failure", func(t *testing.T) {
		ports := dynaport.Get(1)
		codec := newCodec(t)
		client := NewClient(net.JoinHostPort("127.0.0.1", strconv.Itoa(ports[0])), codec,
			WithDialRetries(1),
			WithDialTimeout(100*time.Millisecond))
		defer client.Close()

		err := client.Send(context.Background(), []byte("lost"))
		require.Error(t, err)
	})
	t.Run("With exchange cancelled", func(t *testing.T) {
		codec := newCodec(t)
		server, err := NewServer("127.0.0.1:0", WithRequestHandler(func(ctx context.Context, conn net.Conn) {
			_, _ = codec.ReadFrame(conn)
			<-ctx.Done()
		}))
		require.NoError(t, err)
		require.NoError(t, server.Listen())
		go func() { _ = server.Serve() }()
		defer server.Shutdown(time.Second)

		client := NewClient(server.ListenAddr().String(), codec)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err = client.Exchange(ctx, []byte("ping"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded) || isTimeout(err))
		assert.Less(t, time.Since(start), time.Second)
	})
	t.Run("With closed client", func(t *testing.T) {
		client := NewClient("127.0.0.1:1", newCodec(t))
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
		_, err := client.Get(context.Background())
		assert.ErrorIs(t, err, ErrClientClosed)
	})
	t.Run("With shutdown interrupting idle connections", func(t *testing.T) {
		codec := newCodec(t)
		server := echoServer(t, codec)
		client := NewClient(server.ListenAddr().String(), codec)
		defer client.Close()

		_, err := client.Exchange(context.Background(), []byte("x"))
		require.NoError(t, err)

		start := time.Now()
		require.NoError(t, server.Shutdown(5*time.Second))
		assert.Less(t, time.Since(start), time.Second)
		assert.Zero(t, server.ActiveConnections())
		assert.NoError(t, server.Shutdown(time.Second))
		assert.ErrorIs(t, server.Listen(), ErrServerClosed)
	})
	t.Run("With serve before listen", func(t *testing.T) {
		server, err := NewServer("127.0.0.1:0")
		require.NoError(t, err)
		assert.ErrorIs(t, server.Serve(), ErrNoListener)
		assert.Nil(t, server.ListenAddr())
	})
}

func TestGetBindIP(t *testing.T) {
	t.Run("With explicit address", func(t *testing.T) {
		ip, err := GetBindIP("127.0.0.1:4000")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", ip)
	})
	t.Run("With unspecified address", func(t *testing.T) {
		ip, err := GetBindIP("0.0.0.0:4000")
		if err != nil {
			t.Skipf("no usable interface address: %v", err)
		}
		assert.NotEqual(t, "0.0.0.0", ip)
		assert.NotNil(t, net.ParseIP(ip))
	})
	t.Run("With invalid address", func(t *testing.T) {
		_, err := GetBindIP("not an address")
		assert.Error(t, err)
	})
	t.Run("With host port", func(t *testing.T) {
		host, port, err := GetHostPort("127.0.0.1:4094")
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", host)
		assert.Equal(t, 4094, port)
	})
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
