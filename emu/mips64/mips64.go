/*
	mips64vm MIPS64 core definitions.

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

// Package mips64 holds the guest register file, CPU state, and the
// constants shared between the interpreter and the JIT. Everything
// that must agree between the two execution modes lives here so that
// emitted code and interpreted code never disagree about layout.
package mips64

import "sync/atomic"

// Run state of a guest CPU.
type RunState uint8

const (
	Running RunState = iota
	Halted
	Suspended
)

// MemOp identifies a memory-operation handler kind. It indexes the
// interpreter's Go function table; the JIT keys its memory emitters
// by ilt.Kind instead.
type MemOp uint8

const (
	OpLB MemOp = iota
	OpLBU
	OpLH
	OpLHU
	OpLW
	OpLWU
	OpLD
	OpLWL
	OpLWR
	OpLDL
	OpLDR
	OpLL
	OpLLD
	OpSB
	OpSH
	OpSW
	OpSD
	OpSWL
	OpSWR
	OpSDL
	OpSDR
	OpSC
	OpSCD
	OpLWC1
	OpSWC1
	OpLDC1
	OpSDC1
	OpCache
	OpPref
	NumMemOps
)

// GPR indices with architectural names for the ones that matter to
// the core (the rest are plain r0..r31).
const (
	RegZero = 0
	RegRA   = 31
)

// CP0 register indices.
const (
	CP0Index    = 0
	CP0Random   = 1
	CP0EntryLo0 = 2
	CP0EntryLo1 = 3
	CP0Context  = 4
	CP0PageMask = 5
	CP0Wired    = 6
	CP0Info     = 7
	CP0BadVAddr = 8
	CP0Count    = 9
	CP0EntryHi  = 10
	CP0Compare  = 11
	CP0Status   = 12
	CP0Cause    = 13
	CP0EPC      = 14
	CP0PRId     = 15
	CP0Config   = 16
	CP0LLAddr   = 17
	CP0WatchLo  = 18
	CP0WatchHi  = 19
	CP0XContext = 20
	CP0ECC      = 26
	CP0CacheErr = 27
	CP0TagLo    = 28
	CP0TagHi    = 29
	CP0ErrorEPC = 30
	CP0Desave   = 31
)

// Status register bit layout.
const (
	StatusIE  uint64 = 1 << 0
	StatusEXL uint64 = 1 << 1
	StatusERL uint64 = 1 << 2
	StatusBEV uint64 = 1 << 22
	StatusIM0 uint64 = 1 << 8
	StatusIM  uint64 = 0xff << 8
)

// Cause register bit layout.
const (
	CauseExcMask uint64 = 0x7c
	CauseExcSft         = 2
	CauseIP0     uint64 = 1 << 8
	CauseIP      uint64 = 0xff << 8
	CauseBD      uint64 = 1 << 31
)

// Exception codes (Cause.ExcCode).
const (
	ExcInt    = 0
	ExcMod    = 1
	ExcTLBL   = 2
	ExcTLBS   = 3
	ExcAdEL   = 4
	ExcAdES   = 5
	ExcSys    = 8
	ExcBp     = 9
	ExcRI     = 10
	ExcCpU    = 11
	ExcOv     = 12
	ExcTr     = 13
	ExcFPE    = 15
	ExcWATCH  = 23
)

// Exception vector offsets and bases.
const (
	VectorGeneral  uint64 = 0x180
	VectorTLBRefill uint64 = 0x000
	VectorBootBase uint64 = 0xffffffffbfc00200
	VectorRAMBase  uint64 = 0xffffffff80000000
)

// TLB geometry.
const (
	NumTLBEntries   = 64
	TLBPageMaskBits = 0x01ffe000 // bits 13..24
)

// NumFastLines is the line count of the JIT's inline data-cache probe
// (emu/jit/amd64's load/store fast path): a direct-mapped array of
// recently resolved guest pages, indexed by the low bits of the page
// number, kept warm by every emu/mts.Translate call so translated code
// hits it without leaving the arena. Must be a power of two so the
// index reduces to a single AND.
const NumFastLines = 64

// FastLineEntry is one line of the fast-path probe: Tag is the guest
// page number currently cached there, Host is that page's host base
// address. A Tag of ^uint64(0) never matches a real page number and
// marks the line invalid.
type FastLineEntry struct {
	Tag  uint64
	Host uintptr
}

// TLBEntry mirrors a single MIPS64 TLB row: {mask, hi, lo0, lo1}.
type TLBEntry struct {
	Mask uint64
	Hi   uint64
	Lo0  uint64
	Lo1  uint64
}

// Global returns whether both halves of the entry are marked global.
func (e *TLBEntry) Global() bool {
	return e.Lo0&1 != 0 && e.Lo1&1 != 0
}

// ExceptionFlag is the return value threaded through every memory-op
// and instruction handler. It is not a Go error: it signals that a
// guest-visible exception was posted and the dispatch loop must
// redirect. A guest fault is not itself an API-level error.
type ExceptionFlag uint8

const (
	NoException ExceptionFlag = iota
	Exception
)

// CPU is the canonical guest CPU state. A fixed host register holds a
// pointer to this structure throughout translated code; byte offsets
// into it are exported from layout.go so the interpreter and the JIT
// never disagree about where a field lives.
type CPU struct {
	GPR [32]uint64
	PC  uint64
	HI  uint64
	LO  uint64

	LLBit  bool
	LLAddr uint64

	// FPR backs LWC1/SWC1/LDC1/SDC1 register-move traffic only; no
	// floating-point arithmetic is modeled.
	FPR [32]uint64

	CP0 [32]uint64
	TLB [NumTLBEntries]TLBEntry

	// FastLine backs the JIT's inline load/store fast path; see
	// FastLineEntry.
	FastLine [NumFastLines]FastLineEntry

	VirtCount   uint32
	VirtCompare uint32

	irqPending atomic.Uint32
	irqCause   atomic.Uint32

	State RunState

	PageMask uint64 // configured physical-address-bus mask

	ClockDivisor uint32
	TimerFreqHz  uint32

	IdlePC     uint64
	HasIdlePC  bool
	idleStreak int

	Breakpoints []uint64

	JITEnabled bool

	// CycleCount is a diagnostic counter of interpreted/dispatched
	// instructions, not an architectural register.
	CycleCount uint64

	// TimerDrift counts timer ticks that arrived while a prior one
	// was still pending; it is a diagnostic counter, not corrective.
	TimerDrift uint64
}

// New returns a freshly reset CPU. BEV defaults set so the first
// fetch after reset reads the bootstrap vector.
func New() *CPU {
	cpu := &CPU{
		JITEnabled:   true,
		ClockDivisor: 4,
		TimerFreqHz:  100,
	}
	cpu.Reset()
	return cpu
}

// Reset restores architectural reset state.
func (cpu *CPU) Reset() {
	cpu.GPR = [32]uint64{}
	cpu.PC = VectorBootBase
	cpu.HI, cpu.LO = 0, 0
	cpu.LLBit = false
	cpu.CP0 = [32]uint64{}
	cpu.CP0[CP0Status] = StatusBEV | StatusERL
	cpu.CP0[CP0PRId] = 0x00040102 // R4400-ish PRId, matches the c7200-class core
	cpu.CP0[CP0Config] = 0x00018080
	cpu.CP0[CP0Random] = NumTLBEntries - 1
	cpu.CP0[CP0Wired] = 0
	cpu.TLB = [NumTLBEntries]TLBEntry{}
	for i := range cpu.FastLine {
		cpu.FastLine[i] = FastLineEntry{Tag: ^uint64(0)}
	}
	cpu.VirtCount, cpu.VirtCompare = 0, 0
	cpu.State = Running
	cpu.irqPending.Store(0)
	cpu.irqCause.Store(0)
	cpu.idleStreak = 0
}

// RaiseIRQ atomically sets IRQ line number (0..7) pending and ORs the
// matching bit into Cause.IP.
func (cpu *CPU) RaiseIRQ(line uint) {
	bit := uint32(1) << line
	cpu.irqPending.Or(bit)
	cpu.irqCause.Or(bit)
}

// LowerIRQ clears the line's pending and cause bits.
func (cpu *CPU) LowerIRQ(line uint) {
	bit := uint32(1) << line
	cpu.irqPending.And(^bit)
	cpu.irqCause.And(^bit)
}

// IRQCauseBits returns the current IP bits for folding into Cause.
func (cpu *CPU) IRQCauseBits() uint32 {
	return cpu.irqCause.Load()
}

// PendingIRQ reports whether any IRQ line is currently latched.
func (cpu *CPU) PendingIRQ() bool {
	return cpu.irqPending.Load() != 0
}

// ReadGPR returns a general register, enforcing gpr[0] == 0.
func (cpu *CPU) ReadGPR(reg uint8) uint64 {
	if reg == RegZero {
		return 0
	}
	return cpu.GPR[reg]
}

// WriteGPR writes a general register; writes to r0 are discarded.
func (cpu *CPU) WriteGPR(reg uint8, value uint64) {
	if reg == RegZero {
		return
	}
	cpu.GPR[reg] = value
}

// ReestablishZero re-derives the gpr[0]==0 invariant rather than
// special-casing every write site, restoring it at instruction
// boundaries instead of guarding every WriteGPR call.
func (cpu *CPU) ReestablishZero() {
	cpu.GPR[RegZero] = 0
}

// ReadFPR and WriteFPR access the register-move-only FPU file; unlike
// GPR there is no hardwired-zero register.
func (cpu *CPU) ReadFPR(reg uint8) uint64  { return cpu.FPR[reg] }
func (cpu *CPU) WriteFPR(reg uint8, v uint64) { cpu.FPR[reg] = v }

// KernelMode reports whether the CPU is currently in kernel mode
// (used by CP0 register-access privilege checks).
func (cpu *CPU) KernelMode() bool {
	status := cpu.CP0[CP0Status]
	if status&StatusEXL != 0 || status&StatusERL != 0 {
		return true
	}
	return (status>>3)&0x3 == 0 // KSU == kernel
}
