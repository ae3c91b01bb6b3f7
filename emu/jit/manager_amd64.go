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

//go:build amd64

package jit

import (
	"errors"

	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/jit/amd64"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/emu/mts"
)

// ErrNoBlock is returned by RunBlock when the guest PC has no
// emittable instruction waiting (the very first opcode at that PC is
// itself outside the bounded subset); the caller (emu/core) falls
// back to Interp.Step for that single instruction.
var ErrNoBlock = errors.New("jit: no translatable block at pc")

// maxBlockInsns bounds how far a single translation scans ahead, so
// one pathological straight-line run of ALU ops can't grow the arena
// allocation for a single block without limit.
const maxBlockInsns = 64

// Manager owns the exec arena and the StartPC-keyed TCB cache. It
// satisfies emu/core's Runner interface.
type Manager struct {
	arena *Arena
	mts   *mts.MTS
	cache map[uint64]*tcb

	// pageIndex buckets every cached block's StartPC under the
	// physical page its first instruction was fetched from, so a
	// store to that page can drop exactly those blocks (see
	// InvalidatePage) instead of the whole cache.
	pageIndex map[uintptr]map[uint64]struct{}
}

// partialFlushAccCount is the access-count ceiling a partial flush
// evicts at or below: a block run this many times or fewer is cheap
// to recompile later, a busier one is worth keeping past one arena
// exhaustion.
const partialFlushAccCount = 100

// NewManager builds a JIT bound to the MTS cache it fetches
// instruction words through, with a fixed-size code arena of the
// given size.
func NewManager(m *mts.MTS, arenaSize int) (*Manager, error) {
	a, err := NewArena(arenaSize)
	if err != nil {
		return nil, err
	}
	return &Manager{
		arena:     a,
		mts:       m,
		cache:     make(map[uint64]*tcb),
		pageIndex: make(map[uintptr]map[uint64]struct{}),
	}, nil
}

// Close releases the arena's mapping.
func (mgr *Manager) Close() error {
	return mgr.arena.Close()
}

// RunBlock finds or builds the TCB starting at cpu.PC and runs it,
// returning how many guest instructions it executed.
func (mgr *Manager) RunBlock(cpu *mips64.CPU) (int, error) {
	start := cpu.PC
	block, ok := mgr.cache[start]
	if !ok {
		b, err := mgr.translate(start)
		if err != nil {
			return 0, err
		}
		block = b
		mgr.cache[start] = block
		mgr.indexPage(block)
	}
	if block.NumInsns == 0 {
		return 0, ErrNoBlock
	}

	amd64.Call(block.CodePtr, cpu)
	block.AccCount++
	if !block.WritesPC {
		cpu.PC = start + uint64(block.NumInsns)*4
	}
	cpu.CycleCount += uint64(block.NumInsns)
	return block.NumInsns, nil
}

// Invalidate drops every cached block and reclaims the arena. It is
// the blunt instrument (a TLB/ASID change that could affect any
// mapping); a guest store only needs InvalidatePage.
func (mgr *Manager) Invalidate() error {
	mgr.cache = make(map[uint64]*tcb)
	mgr.pageIndex = make(map[uintptr]map[uint64]struct{})
	return mgr.arena.Reset()
}

// InvalidatePage drops every cached block whose first instruction was
// fetched from physPage, the host RAM page identity mts.entry's
// PhysPageKey reports. Interp wires this in through OnInvalidate so a
// guest store that hits translated code is visible to the next fetch
// of that page without waiting for a full Invalidate.
func (mgr *Manager) InvalidatePage(physPage uintptr) {
	starts, ok := mgr.pageIndex[physPage]
	if !ok {
		return
	}
	for start := range starts {
		delete(mgr.cache, start)
	}
	delete(mgr.pageIndex, physPage)
}

func (mgr *Manager) indexPage(b *tcb) {
	if b.NumInsns == 0 || b.PhysPage == 0 {
		return
	}
	starts, ok := mgr.pageIndex[b.PhysPage]
	if !ok {
		starts = make(map[uint64]struct{})
		mgr.pageIndex[b.PhysPage] = starts
	}
	starts[b.StartPC] = struct{}{}
}

// FlushJIT evicts every cached block whose AccCount is at most
// threshold, without touching the AccCount of any survivor, and
// returns how many were evicted. It does not touch the arena itself:
// a bump allocator has no way to reclaim an individual evicted
// block's bytes, only every byte at once (see allocCode), so freeing
// the arena is left to the caller once it has confirmed doing so is
// safe. Calling FlushJIT(0) twice in a row evicts the same (empty,
// after the first call) set the second time, since the first pass
// already removed everything with AccCount<=0 and never bumps a
// survivor's count.
func (mgr *Manager) FlushJIT(threshold uint64) int {
	evicted := 0
	for start, b := range mgr.cache {
		if b.AccCount > threshold {
			continue
		}
		delete(mgr.cache, start)
		if starts, ok := mgr.pageIndex[b.PhysPage]; ok {
			delete(starts, start)
			if len(starts) == 0 {
				delete(mgr.pageIndex, b.PhysPage)
			}
		}
		evicted++
	}
	return evicted
}

// allocCode bump-allocates n bytes of executable memory for a
// newly-translated block, running the same partial-then-full flush
// escalation a TCB's creation does when the arena runs out of room: a
// partial flush (drop blocks with AccCount<=partialFlushAccCount)
// reclaims the arena only if it happens to empty the cache, since
// resetting a bump allocator out from under a surviving block's
// CodePtr would hand that same memory to the next allocation while
// the survivor is still cached. If the cache is still non-empty after
// the partial pass, a full flush (every block, regardless of
// AccCount) always empties it, so the arena can always be reclaimed
// at that point.
func (mgr *Manager) allocCode(n int) ([]byte, error) {
	code, err := mgr.arena.Alloc(n)
	if err == nil {
		return code, nil
	}

	mgr.FlushJIT(partialFlushAccCount)
	if len(mgr.cache) == 0 {
		if err := mgr.arena.Reset(); err != nil {
			return nil, err
		}
	}
	if code, err := mgr.arena.Alloc(n); err == nil {
		return code, nil
	}

	mgr.FlushJIT(^uint64(0))
	if err := mgr.arena.Reset(); err != nil {
		return nil, err
	}
	return mgr.arena.Alloc(n)
}

// translate scans forward from start while instructions stay inside
// the emittable subset and emits their host code directly into the
// arena, which is already executable. A branch, once reached, always
// ends the block: its delay slot is inlined when safe to (see
// amd64.DelaySlotInlinable), otherwise the block ends before the
// branch and the interpreter runs the branch-plus-delay-slot pair as
// a unit.
func (mgr *Manager) translate(start uint64) (*tcb, error) {
	insnPtrs := make([]int32, 0, maxBlockInsns)
	var buf []byte
	var physPage uintptr
	writesPC := false

	vaddr := start
	for i := 0; i < maxBlockInsns; i++ {
		e, miss := mgr.mts.Translate(vaddr, false)
		if miss != mts.MissNone || e == nil || !e.IsRAM() {
			break
		}
		if i == 0 {
			physPage = e.PhysPageKey()
		}
		word := uint32(e.ReadRAMFast(vaddr, 4))
		k := ilt.Lookup(word)
		d := mips64.DecodeWord(word)

		if ilt.IsBranch(k) {
			if !amd64.EmittableBranch(k) {
				break
			}
			delay, ok := mgr.emitDelaySlot(vaddr + 4)
			if !ok {
				break
			}
			insnPtrs = append(insnPtrs, int32(len(buf)))
			buf = amd64.EmitBranch(buf, k, d, vaddr, delay)
			writesPC = true
			vaddr += 4
			break
		}

		if !amd64.Emittable(k) {
			break
		}
		if amd64.IsMemEmittable(k) {
			writesPC = true
		}
		insnPtrs = append(insnPtrs, int32(len(buf)))
		buf = amd64.Emit(buf, k, d, vaddr)
		vaddr += 4
	}

	if len(insnPtrs) == 0 {
		return &tcb{StartPC: start, NumInsns: 0}, nil
	}

	if writesPC {
		// The straight-line fallthrough (every translated memory op
		// hit its FastLine probe, or the block simply ran out of
		// room without reaching a branch) still has to leave cpu.PC
		// where RunBlock expects it, since RunBlock will not touch PC
		// itself for a WritesPC block.
		buf = amd64.EmitFinalPC(buf, vaddr)
	}
	buf = amd64.EmitReturn(buf)
	code, err := mgr.allocCode(len(buf))
	if err != nil {
		return nil, err
	}
	copy(code, buf)

	return &tcb{
		StartPC:  start,
		PhysPage: physPage,
		CodePtr:  code,
		InsnPtr:  insnPtrs,
		NumInsns: len(insnPtrs),
		WritesPC: writesPC,
	}, nil
}

// emitDelaySlot fetches and decodes the instruction at a branch's
// delay-slot vaddr and, if it is safe to inline (see
// amd64.DelaySlotInlinable), returns its emitted bytes (nil for a
// literal NOP). ok is false when the slot cannot be translated, in
// which case the caller must not emit the branch either.
func (mgr *Manager) emitDelaySlot(vaddr uint64) (delay []byte, ok bool) {
	e, miss := mgr.mts.Translate(vaddr, false)
	if miss != mts.MissNone || e == nil || !e.IsRAM() {
		return nil, false
	}
	word := uint32(e.ReadRAMFast(vaddr, 4))
	k := ilt.Lookup(word)
	if ilt.IsBranch(k) {
		return nil, false
	}
	if !amd64.DelaySlotInlinable(word, k) {
		return nil, false
	}
	return amd64.EmitDelaySlot(word, k, mips64.DecodeWord(word)), true
}
