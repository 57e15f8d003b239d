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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tochemey/robokit/errors"
)

const systemDocument = `
system:
  id: mySystem
  scheduler:
    poolSize: 11
  worker:
    poolSize: 5
  blocking:
    poolSize: 13
  discovery:
    enabled: true
    allowedHeartbeatMisses: 22.5
  metadata:
    name: Caprica
    class: Cylon
units:
  - id: producer
    type: stringProducer
    config:
      target: consumer
      totalMessages: 10
  - id: consumer
    type: stringConsumer
    config:
      totalMessages: 10
      commands:
        left: l
        right: r
        stop: s
`

func TestParseDocument(t *testing.T) {
	t.Run("With system and units", func(t *testing.T) {
		doc, err := ParseDocument([]byte(systemDocument))
		require.NoError(t, err)
		require.NotNil(t, doc.System)

		assert.Equal(t, "mySystem", doc.System.String("id", ""))
		assert.Equal(t, 11, doc.System.Integer("scheduler.poolSize", 0))
		assert.Equal(t, 5, doc.System.Integer("worker.poolSize", 0))
		assert.Equal(t, 13, doc.System.Integer("blocking.poolSize", 0))
		assert.True(t, doc.System.Boolean("discovery.enabled", false))
		assert.InDelta(t, 22.5, doc.System.Float("discovery.allowedHeartbeatMisses", 0), 1e-9)
		assert.Equal(t, []string{"name", "class"}, doc.System.Child("metadata").ValueNames())
		assert.True(t, doc.System.Frozen())

		require.Len(t, doc.Units, 2)
		producer := doc.Units[0]
		assert.Equal(t, "producer", producer.ID)
		assert.Equal(t, "stringProducer", producer.Type)
		assert.Equal(t, "consumer", producer.Config.String("target", ""))
		assert.Equal(t, 10, producer.Config.Integer("totalMessages", 0))

		consumer := doc.Units[1]
		assert.Equal(t, []string{"left", "right", "stop"}, consumer.Config.Child("commands").ValueNames())
	})
	t.Run("With units only", func(t *testing.T) {
		doc, err := ParseDocument([]byte("units:\n  - id: consumer\n    type: stringConsumer\n"))
		require.NoError(t, err)
		assert.Nil(t, doc.System)
		require.Len(t, doc.Units, 1)
		assert.Zero(t, doc.Units[0].Config.Len())
	})
	t.Run("With empty document", func(t *testing.T) {
		doc, err := ParseDocument(nil)
		require.NoError(t, err)
		assert.Nil(t, doc.System)
		assert.Empty(t, doc.Units)
	})
	t.Run("With missing unit id", func(t *testing.T) {
		_, err := ParseDocument([]byte("units:\n  - type: stringConsumer\n"))
		assert.ErrorIs(t, err, errors.ErrMissingConfigValue)
	})
	t.Run("With missing unit type", func(t *testing.T) {
		_, err := ParseDocument([]byte("units:\n  - id: consumer\n"))
		assert.ErrorIs(t, err, errors.ErrMissingConfigValue)
	})
	t.Run("With unknown section", func(t *testing.T) {
		_, err := ParseDocument([]byte("plugins: []\n"))
		assert.Error(t, err)
	})
	t.Run("With malformed yaml", func(t *testing.T) {
		_, err := ParseDocument([]byte("units: [\n"))
		assert.Error(t, err)
	})
	t.Run("With file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.yaml")
		require.NoError(t, os.WriteFile(path, []byte(systemDocument), 0o600))
		doc, err := ReadDocument(path)
		require.NoError(t, err)
		assert.Len(t, doc.Units, 2)
	})
}
