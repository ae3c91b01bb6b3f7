/*
mips64vm - Main process.

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

//go:build amd64

package main

import (
	"github.com/rcornwell/mips64vm/emu/core"
	"github.com/rcornwell/mips64vm/emu/jit"
	"github.com/rcornwell/mips64vm/emu/jit/none"
	"github.com/rcornwell/mips64vm/emu/mts"
)

// jitArenaSize bounds the amd64 translation arena to a fixed size
// rather than one that grows on demand.
const jitArenaSize = 4 << 20

// newRunner builds the amd64 translator when enabled, or the
// pure-interpreter fallback when the configuration turns the JIT off.
func newRunner(m *mts.MTS, enable bool) (core.Runner, error) {
	if !enable {
		return none.NewManager(), nil
	}
	return jit.NewManager(m, jitArenaSize)
}
