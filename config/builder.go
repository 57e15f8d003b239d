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

// Builder assembles a Configuration programmatically
//
//	cfg := config.NewBuilder().
//		AddString("target", "consumer").
//		AddInteger("totalMessages", 10).
//		Build()
type Builder struct {
	cfg *Configuration
}

// NewBuilder creates a Builder
func NewBuilder() *Builder {
	return &Builder{cfg: New()}
}

// AddString adds a string value
func (b *Builder) AddString(key, value string) *Builder {
	b.cfg.SetString(key, value)
	return b
}

// AddInteger adds an integer value
func (b *Builder) AddInteger(key string, value int) *Builder {
	b.cfg.SetInteger(key, value)
	return b
}

// AddFloat adds a floating-point value
func (b *Builder) AddFloat(key string, value float64) *Builder {
	b.cfg.SetFloat(key, value)
	return b
}

// AddBoolean adds a boolean value
func (b *Builder) AddBoolean(key string, value bool) *Builder {
	b.cfg.SetBoolean(key, value)
	return b
}

// AddChild adds a child configuration
func (b *Builder) AddChild(key string, child *Configuration) *Builder {
	b.cfg.SetChild(key, child)
	return b
}

// Build returns the frozen configuration. The builder must not be reused.
func (b *Builder) Build() *Configuration {
	return b.cfg.Freeze()
}
