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

package robo

import (
	"context"

	rerrors "github.com/tochemey/robokit/errors"
	"github.com/tochemey/robokit/remote"
)

// contextHandler dispatches the requests received by the remote server to the
// units of its context
type contextHandler struct {
	owner *Context
}

var _ remote.Handler = (*contextHandler)(nil)

func (h *contextHandler) Tell(_ context.Context, unitID string, msg any) error {
	unit, ok := h.owner.unit(unitID)
	if !ok {
		return rerrors.NewErrUnitNotFound(unitID)
	}
	return unit.Send(msg)
}

func (h *contextHandler) Attribute(ctx context.Context, unitID, name, typeName string) (any, error) {
	unit, ok := h.owner.unit(unitID)
	if !ok {
		return nil, rerrors.NewErrUnitNotFound(unitID)
	}

	d, ok := unit.lookupAttribute(typeName, name)
	if !ok {
		return nil, rerrors.NewErrUnknownAttribute(unitID, name)
	}

	ctx, cancel := context.WithTimeout(ctx, h.owner.remoteConfig.AttributeTimeout())
	defer cancel()
	return unit.Attribute(d).Get(ctx)
}
