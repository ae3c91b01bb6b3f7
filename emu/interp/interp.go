/*
mips64vm interpreter: ground-truth single-instruction executor.

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

// Package interp is the one-instruction-at-a-time executor and ground
// truth for instruction semantics: a fetch/execute pipeline over
// MIPS64's fixed 4-byte words with delay slots. It is also the
// fallback emu/core runs for opcodes the JIT declines to translate, and
// the primitive behind cpu_step.
package interp

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/emu/mts"
)

// Errors surfaced at the core boundary.
var (
	ErrUnknownOpcode     = errors.New("interp: unknown opcode")
	ErrInvalidDelaySlot  = errors.New("interp: branch found in delay slot")
)

// Handler mutates CPU state for one decoded instruction. Branch
// handlers set the new PC through ip.setPC, which marks pcChanged to
// suppress the default PC+4 increment.
type Handler func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag

// Interp ties a CPU, its MTS cache, and the handler tables together.
type Interp struct {
	CPU *mips64.CPU
	MTS *mts.MTS
	Log *slog.Logger

	handlers [lastKind]Handler
	memOps   [mips64.NumMemOps]func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag

	pcChanged bool
	inDelay   bool

	// Breakpoints, consulted by Step so the debug console can halt
	// the dispatch loop at a guest vaddr.
	OnBreakpoint func(pc uint64)

	// OnInvalidate is called with a physical-page key (mts.entry's
	// PhysPageKey) after every successful RAM store, so a JIT manager
	// can drop any translated block compiled from that page without
	// the interpreter importing emu/jit. Nil when no JIT is attached.
	OnInvalidate func(physPage uintptr)
}

const lastKind = int(ilt.KindSD) + 1

// New builds an interpreter bound to a CPU and its MTS cache,
// registering every opcode handler.
func New(cpu *mips64.CPU, m *mts.MTS, log *slog.Logger) *Interp {
	ip := &Interp{CPU: cpu, MTS: m, Log: log}
	ip.registerALU()
	ip.registerBranch()
	ip.registerMem()
	ip.registerCP0()
	ip.registerMemOps()
	return ip
}

func (ip *Interp) register(k ilt.Kind, h Handler) {
	ip.handlers[k] = h
}

func (ip *Interp) setPC(pc uint64) {
	ip.CPU.PC = pc
	ip.pcChanged = true
}

// fetch reads one instruction word through the MTS path so it stays
// callable from non-translated contexts, using the same lookup
// translated code's fast path relies on.
func (ip *Interp) fetch(vaddr uint64) (uint32, mips64.ExceptionFlag) {
	e, miss := ip.MTS.Translate(vaddr, false)
	if miss != mts.MissNone {
		ip.raiseTLBMiss(vaddr, miss, false)
		return 0, mips64.Exception
	}
	if !e.IsRAM() {
		dev, off := e.Device()
		return uint32(dev.PhysRead(off+(vaddr&0xfff), 4)), mips64.NoException
	}
	return uint32(e.ReadRAMFast(vaddr, 4)), mips64.NoException
}

// Step executes exactly one architectural instruction. For a branch
// that instruction includes its mandatory delay slot (MIPS delay-slot
// law), so from the dispatch loop's point of view a branch-plus-delay
// pair is one atomic step.
func (ip *Interp) Step() error {
	cpu := ip.CPU
	if cpu.State != mips64.Running {
		return nil
	}
	cpu.ReestablishZero()

	if cpu.PendingIRQ() {
		ip.tryDeliverIRQ()
		if cpu.State != mips64.Running {
			return nil
		}
	}

	pc := cpu.PC
	word, exc := ip.fetch(pc)
	if exc == mips64.Exception {
		return nil
	}

	if ip.OnBreakpoint != nil {
		ip.OnBreakpoint(pc)
	}

	return ip.execWord(pc, word, false)
}

// execWord decodes and dispatches one instruction word already
// fetched at vaddr pc. inDelaySlot marks that this word is itself
// being executed as someone else's delay slot, in which case it must
// not itself be a branch, which raises InvalidDelaySlot.
func (ip *Interp) execWord(pc uint64, word uint32, inDelaySlot bool) error {
	cpu := ip.CPU
	d := mips64.DecodeWord(word)
	kind := ilt.Lookup(word)

	if inDelaySlot && ilt.IsBranch(kind) {
		ip.raiseInvalidDelaySlot(pc)
		return ErrInvalidDelaySlot
	}

	handler := ip.handlers[kind]
	if handler == nil {
		ip.raiseUnknownOpcode(pc)
		return fmt.Errorf("%w: 0x%08x at 0x%016x", ErrUnknownOpcode, word, pc)
	}

	ip.pcChanged = false
	exc := handler(ip, d)
	if exc == mips64.Exception {
		return nil
	}

	if !ip.pcChanged {
		cpu.PC = pc + 4
	}
	cpu.CycleCount++
	return nil
}

// execDelaySlot fetches and executes the instruction immediately
// after a branch, in-stream, with the delay-slot flag set so branches
// there are rejected.
func (ip *Interp) execDelaySlot(vaddr uint64) error {
	ip.inDelay = true
	defer func() { ip.inDelay = false }()
	word, exc := ip.fetch(vaddr)
	if exc == mips64.Exception {
		return nil
	}
	return ip.execWord(vaddr, word, true)
}

// branchTo finishes a non-likely branch: always execute the delay
// slot, then set PC to target if taken, else fall through past it.
func (ip *Interp) branchTo(pc uint64, taken bool, target uint64) mips64.ExceptionFlag {
	if err := ip.execDelaySlot(pc + 4); err != nil {
		return mips64.Exception
	}
	if taken {
		ip.setPC(target)
	} else {
		ip.setPC(pc + 8)
	}
	return mips64.NoException
}

// branchLikelyTo finishes a "likely" branch: the delay slot executes
// only when the branch is taken.
func (ip *Interp) branchLikelyTo(pc uint64, taken bool, target uint64) mips64.ExceptionFlag {
	if taken {
		if err := ip.execDelaySlot(pc + 4); err != nil {
			return mips64.Exception
		}
		ip.setPC(target)
	} else {
		ip.setPC(pc + 8)
	}
	return mips64.NoException
}

// tryDeliverIRQ evaluates Status.IM & Cause.IP, gated by IE and
// !(EXL||ERL), and if a line is pending, redirects to the exception
// vector.
func (ip *Interp) tryDeliverIRQ() {
	cpu := ip.CPU
	status := cpu.CP0[mips64.CP0Status]
	if status&mips64.StatusIE == 0 || status&(mips64.StatusEXL|mips64.StatusERL) != 0 {
		return
	}
	cause := cpu.CP0[mips64.CP0Cause]
	pending := (status & mips64.StatusIM) >> 8 & (cause & mips64.CauseIP >> 8)
	if pending == 0 {
		return
	}
	ip.raiseException(mips64.ExcInt, cpu.PC, false)
}

// raiseException sets EPC (if EXL clear), writes Cause with the
// exception code and the BD flag, sets EXL, and redirects PC to the
// vector.
func (ip *Interp) raiseException(code uint32, badPC uint64, inDelaySlot bool) {
	cpu := ip.CPU
	status := cpu.CP0[mips64.CP0Status]
	cause := cpu.CP0[mips64.CP0Cause]
	cause &^= mips64.CauseExcMask
	cause |= uint64(code) << mips64.CauseExcSft
	if inDelaySlot {
		cause |= mips64.CauseBD
		if status&mips64.StatusEXL == 0 {
			cpu.CP0[mips64.CP0EPC] = badPC - 4
		}
	} else if status&mips64.StatusEXL == 0 {
		cpu.CP0[mips64.CP0EPC] = badPC
	}
	cpu.CP0[mips64.CP0Cause] = cause
	cpu.CP0[mips64.CP0Status] = status | mips64.StatusEXL

	base := mips64.VectorRAMBase
	if status&mips64.StatusBEV != 0 {
		base = mips64.VectorBootBase
	}
	offset := mips64.VectorGeneral
	if code == mips64.ExcTLBL || code == mips64.ExcTLBS {
		offset = mips64.VectorTLBRefill
	}
	ip.setPC(base + offset)
}

func (ip *Interp) raiseTLBMiss(vaddr uint64, reason mts.MissReason, write bool) {
	cpu := ip.CPU
	cpu.CP0[mips64.CP0BadVAddr] = vaddr
	code := mips64.ExcTLBL
	if write {
		code = mips64.ExcTLBS
	}
	_ = reason
	ip.raiseException(uint32(code), cpu.PC, ip.inDelay)
}

// raiseUnknownOpcode logs the offending opcode and halts the CPU.
func (ip *Interp) raiseUnknownOpcode(pc uint64) {
	if ip.Log != nil {
		ip.Log.Error("unknown opcode", "pc", pc)
	}
	ip.CPU.State = mips64.Halted
}

// raiseInvalidDelaySlot halts and logs the registers (the dump itself
// is the debug console's job; here we just halt and log).
func (ip *Interp) raiseInvalidDelaySlot(pc uint64) {
	if ip.Log != nil {
		ip.Log.Error("branch in delay slot", "pc", pc, "gpr", ip.CPU.GPR)
	}
	ip.CPU.State = mips64.Halted
}

// ExecOpcodeOnly runs one already-fetched instruction word through
// execWord, skipping Step's IRQ poll and breakpoint callback; a branch
// word still executes its delay slot through its handler.
func (ip *Interp) ExecOpcodeOnly(pc uint64, word uint32) error {
	return ip.execWord(pc, word, false)
}

// RebuildMTSFromTLB flushes the MTS cache so every later access
// refills from the current TLB; the mappings cp0.MapAllTLBToMTS
// computes are not installed eagerly.
func (ip *Interp) RebuildMTSFromTLB() {
	ip.MTS.Flush()
	for _, p := range cp0.MapAllTLBToMTS(ip.CPU) {
		_ = p // demand-filled on next access; nothing to eagerly populate
	}
}
