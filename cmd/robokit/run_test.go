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

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `
system:
  id: cli
units:
  - id: producer
    type: stringProducer
    config:
      target: consumer
  - id: consumer
    type: stringConsumer
`

func TestRun(t *testing.T) {
	t.Run("With a valid document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.yaml")
		require.NoError(t, os.WriteFile(path, []byte(document), 0o600))

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		require.NoError(t, run(ctx, &runOptions{configPath: path, logLevel: "error"}))
	})
	t.Run("With a missing document", func(t *testing.T) {
		err := run(context.Background(), &runOptions{configPath: filepath.Join(t.TempDir(), "missing.yaml"), logLevel: "error"})
		assert.Error(t, err)
	})
	t.Run("With an unknown unit type", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "system.yaml")
		require.NoError(t, os.WriteFile(path, []byte("units:\n  - id: x\n    type: warpDrive\n"), 0o600))
		err := run(context.Background(), &runOptions{configPath: path, logLevel: "error"})
		assert.Error(t, err)
	})
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}
