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

package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
	Unit  string `json:"unit"`
}

func decodeEntries(t *testing.T, raw string) []entry {
	t.Helper()
	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var e entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestZap(t *testing.T) {
	t.Run("With Info level filters debug", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.Debug("hidden")
		logger.Info("visible")
		logger.Warnf("visible %d", 2)

		entries := decodeEntries(t, buffer.String())
		require.Len(t, entries, 2)
		assert.Equal(t, "info", entries[0].Level)
		assert.Equal(t, "visible", entries[0].Msg)
		assert.Equal(t, "warn", entries[1].Level)
		assert.Equal(t, "visible 2", entries[1].Msg)
		assert.Equal(t, InfoLevel, logger.LogLevel())
		assert.False(t, logger.Enabled(DebugLevel))
		assert.True(t, logger.Enabled(ErrorLevel))
	})
	t.Run("With fields", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buffer).With("unit", "producer", 42, "skipped")
		logger.Debug("hello")

		entries := decodeEntries(t, buffer.String())
		require.Len(t, entries, 1)
		assert.Equal(t, "producer", entries[0].Unit)
		assert.Equal(t, "debug", entries[0].Level)
	})
	t.Run("With file output buffered", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "robokit.log")
		file, err := os.Create(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = file.Close() })

		logger := NewZap(InfoLevel, file)
		logger.Info("buffered")
		require.NoError(t, logger.Flush())

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		entries := decodeEntries(t, string(content))
		require.Len(t, entries, 1)
		assert.Equal(t, "buffered", entries[0].Msg)
		assert.Len(t, logger.LogOutput(), 1)
	})
	t.Run("With standard logger", func(t *testing.T) {
		buffer := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buffer)
		logger.StdLogger().Print("from std")
		assert.Contains(t, buffer.String(), "from std")
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	logger.Info("nothing")
	logger.Errorf("nothing %s", "at all")
	assert.Equal(t, logger, logger.With("k", "v"))
	assert.False(t, logger.Enabled(InfoLevel))
	assert.NoError(t, logger.Flush())
	assert.Panics(t, func() { logger.Panic("boom") })
}

func TestParseLevel(t *testing.T) {
	for _, level := range []Level{InfoLevel, WarningLevel, ErrorLevel, FatalLevel, PanicLevel, DebugLevel} {
		assert.Equal(t, level, ParseLevel(level.String()))
	}
	assert.Equal(t, InvalidLevel, ParseLevel("loud"))
}
