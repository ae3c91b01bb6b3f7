/*
mips64vm amd64 JIT backend.

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

package amd64

import (
	"unsafe"

	"github.com/rcornwell/mips64vm/emu/mips64"
)

// RunBlock calls into arena-resident machine code at codePtr, with
// cpu loaded into the fixed CPU-pointer register first. The assembly
// side (trampoline_amd64.s) uses the stable ABI0 stack-based calling
// convention rather than the newer internal register ABI, since this
// code is written once and never round-tripped through the compiler's
// own register allocator.
func RunBlock(codePtr unsafe.Pointer, cpu *mips64.CPU)

// Call is the exported entry point the manager uses; it exists only
// to keep the unsafe.Pointer conversion out of package jit.
func Call(code []byte, cpu *mips64.CPU) {
	if len(code) == 0 {
		return
	}
	RunBlock(unsafe.Pointer(&code[0]), cpu)
}
