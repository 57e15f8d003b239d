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

package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("With no validator", func(t *testing.T) {
		require.NoError(t, New().Validate())
	})
	t.Run("With single violation", func(t *testing.T) {
		err := New().AddValidator(NewEmptyStringValidator("field", "")).Validate()
		require.Error(t, err)
		assert.EqualError(t, err, "the [field] is required")
	})
	t.Run("With FailFast", func(t *testing.T) {
		err := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		assert.EqualError(t, err, "the [field] is required")
	})
	t.Run("With AllErrors", func(t *testing.T) {
		chain := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false")
		err := chain.Validate()
		assert.EqualError(t, err, "the [field] is required; this is false")
		// running twice does not accumulate
		assert.EqualError(t, chain.Validate(), "the [field] is required; this is false")
	})
}

func TestValidators(t *testing.T) {
	t.Run("With id", func(t *testing.T) {
		require.NoError(t, NewIDValidator("id", "producer-1").Validate())
		require.NoError(t, NewIDValidator("id", "6").Validate())
		require.Error(t, NewIDValidator("id", "").Validate())
		require.Error(t, NewIDValidator("id", "$omeN@me").Validate())
		require.Error(t, NewIDValidator("id", strings.Repeat("a", 300)).Validate())
	})
	t.Run("With duration", func(t *testing.T) {
		require.NoError(t, NewPositiveDurationValidator("interval", time.Second).Validate())
		require.Error(t, NewPositiveDurationValidator("interval", 0).Validate())
	})
	t.Run("With port", func(t *testing.T) {
		require.NoError(t, NewPortValidator("port", 0).Validate())
		require.NoError(t, NewPortValidator("port", 4094).Validate())
		require.Error(t, NewPortValidator("port", 70000).Validate())
		require.Error(t, NewPortValidator("port", -1).Validate())
	})
	t.Run("With tcp address", func(t *testing.T) {
		require.NoError(t, NewTCPAddressValidator("127.0.0.1:3222").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1").Validate())
		require.Error(t, NewTCPAddressValidator(":3222").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1:abc").Validate())
		require.Error(t, NewTCPAddressValidator("127.0.0.1:70000").Validate())
	})
	t.Run("With multicast group", func(t *testing.T) {
		require.NoError(t, NewMulticastGroupValidator("group", "238.12.15.254").Validate())
		require.Error(t, NewMulticastGroupValidator("group", "127.0.0.1").Validate())
		require.Error(t, NewMulticastGroupValidator("group", "ff02::1").Validate())
		require.Error(t, NewMulticastGroupValidator("group", "nope").Validate())
	})
}
