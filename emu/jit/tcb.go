/*
mips64vm JIT translated-code-block manager.

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

package jit

// tcb is one translated code block: a run of guest instructions
// starting at StartPC that were all emittable (see amd64.Emittable),
// terminated either by the first unemittable opcode or by a branch,
// plus the host bytes the emitter produced for them.
//
// An earlier pass carried a Patches field meant for direct
// inter-block linking (rewriting a branch's epilogue to jump straight
// into another cached block's CodePtr instead of returning to the Go
// dispatch loop). It is left out here: patching a live JMP's rel32
// operand to point at another arena allocation is exactly the kind of
// raw-machine-code surgery that is not safe to get right without ever
// running it, so every branch instead always writes its resolved PC
// and returns (see emu/jit/amd64's EmitBranch); the dispatch loop
// re-enters the cache by StartPC on every block, which costs a RET
// and a map lookup per block but never risks a corrupted jump target.
type tcb struct {
	StartPC  uint64
	PhysPage uintptr // mts entry.PhysPageKey() of the page StartPC was fetched from
	CodePtr  []byte
	// InsnPtr[i] is the offset into CodePtr where the i'th guest
	// instruction's code begins. It has one entry per translated
	// instruction (NumInsns of them); a block ends at the first
	// unemittable opcode or the first branch.
	InsnPtr  []int32
	AccCount uint64

	NumInsns int

	// WritesPC is true for a block containing any memory op or
	// branch: such a block writes cpu.PC itself on every exit path
	// (the miss bailout, a branch epilogue, or the straight-line fall
	// off the end), since a mid-block bailout means fewer than
	// NumInsns guest instructions actually retired and
	// start+4*NumInsns would be wrong. RunBlock trusts the block's
	// own write instead of computing PC itself whenever this is set.
	WritesPC bool
}
