/*
mips64vm pure-interpreter JIT fallback.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package none satisfies emu/core's Runner interface without
// translating anything, for hosts where emu/jit/amd64 does not apply
// (non-amd64 builds) or when the JIT is configured off. Every call
// declines, so emu/core's runOnce falls back to Interp.Step for every
// instruction, preserving the same guest-visible behavior the JIT
// path produces, just without the speedup, satisfying the parity
// requirement that interpreted and translated execution never
// disagree.
package none

import (
	"errors"

	"github.com/rcornwell/mips64vm/emu/mips64"
)

// ErrNotTranslated is returned unconditionally by RunBlock.
var ErrNotTranslated = errors.New("jit/none: translation unavailable")

// Manager is a no-op stand-in for *jit.Manager.
type Manager struct{}

// NewManager returns the fallback Runner.
func NewManager() *Manager {
	return &Manager{}
}

// RunBlock always declines, handing the instruction back to the
// interpreter.
func (*Manager) RunBlock(_ *mips64.CPU) (int, error) {
	return 0, ErrNotTranslated
}

// Close is a no-op, present so callers can treat Manager and
// *jit.Manager interchangeably in deferred cleanup.
func (*Manager) Close() error { return nil }
