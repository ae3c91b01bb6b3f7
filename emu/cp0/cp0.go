/*
mips64vm CP0 system coprocessor and TLB.

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

// Package cp0 implements the System Coprocessor register semantics,
// TLB read/write/probe, and the Count/Compare timer synthesis as
// package functions that take a *mips64.CPU.
package cp0

import "github.com/rcornwell/mips64vm/emu/mips64"

// Masking rules for the registers whose write-visible bits are a
// strict subset of their 64-bit storage.
const (
	pageMaskSafe uint64 = 0x01ffe000 // bits 13..24
	entryHiSafe  uint64 = 0xc00000ffffffe0ff
	entryLoSafe  uint64 = 0x3fffffff
	wiredSafe           = mips64.NumTLBEntries - 1
)

// CheckKernelMode reports whether a CP0 instruction may execute given
// the CPU's current privilege (KernelMode, or CoprocessorUsable bit
// for user mode).
func CheckKernelMode(cpu *mips64.CPU) bool {
	if cpu.KernelMode() {
		return true
	}
	return cpu.CP0[mips64.CP0Status]&(1<<28) != 0 // CU0
}

// recomputePending recomputes Cause.IP-derived pending state after
// any Status/Cause write. The actual evaluation (Status.IM & Cause.IP,
// gated by IE/EXL/ERL) happens at poll time in the interpreter/JIT;
// here we only fold the asynchronous hardware IRQ bits already
// latched by RaiseIRQ into Cause.IP so MFC0 CAUSE observes them.
func recomputePending(cpu *mips64.CPU) {
	cause := cpu.CP0[mips64.CP0Cause]
	cause &^= mips64.CauseIP
	cause |= uint64(cpu.IRQCauseBits()) << 8
	cpu.CP0[mips64.CP0Cause] = cause
}

// GetReg reads a CP0 register, synthesizing Count/Compare from the
// VirtCount/VirtCompare scratch counters so translated code observes a
// monotonically advancing counter without a system call.
func GetReg(cpu *mips64.CPU, reg uint8) uint64 {
	switch reg {
	case mips64.CP0Count:
		return uint64(cpu.VirtCount) * uint64(cpu.ClockDivisor)
	case mips64.CP0Compare:
		return uint64(cpu.VirtCompare)
	case mips64.CP0Random:
		return uint64(mips64.NumTLBEntries-1) - uint64(cpu.CP0[mips64.CP0Wired])
	default:
		return cpu.CP0[reg]
	}
}

// SetReg writes a CP0 register honoring each register's mask rules.
// It does not itself check kernel-mode privilege; callers (MTC0/DMTC0
// handlers) do that first.
func SetReg(cpu *mips64.CPU, reg uint8, value uint64) {
	switch reg {
	case mips64.CP0Status, mips64.CP0Cause:
		cpu.CP0[reg] = value
		recomputePending(cpu)
	case mips64.CP0PageMask:
		cpu.CP0[reg] = value & pageMaskSafe
	case mips64.CP0EntryHi:
		cpu.CP0[reg] = value & entryHiSafe
	case mips64.CP0EntryLo0, mips64.CP0EntryLo1:
		cpu.CP0[reg] = value & entryLoSafe
	case mips64.CP0Random, mips64.CP0PRId, mips64.CP0Config:
		// read-only: ignored.
	case mips64.CP0Wired:
		cpu.CP0[reg] = value & wiredSafe
	case mips64.CP0Compare:
		cpu.CP0[reg] = value
		cpu.CP0[mips64.CP0Cause] &^= mips64.CauseIP0 << 7 // clear timer IRQ bit (IP7)
		divisor := uint64(cpu.ClockDivisor)
		if divisor == 0 {
			divisor = 1
		}
		count := GetReg(cpu, mips64.CP0Count)
		cpu.VirtCompare = uint32((value - count) / divisor)
		cpu.VirtCount = 0
	case mips64.CP0Count:
		cpu.CP0[reg] = value
		divisor := uint64(cpu.ClockDivisor)
		if divisor == 0 {
			divisor = 1
		}
		compare := cpu.CP0[mips64.CP0Compare]
		cpu.VirtCompare = uint32((compare - value) / divisor)
		cpu.VirtCount = 0
	default:
		cpu.CP0[reg] = value
	}
}

// TickTimer advances virt_cnt by one tick (called on the CPU goroutine
// by emu/core when a timer-tick packet arrives from emu/timer)
// and reports whether virt_cnt has just reached virt_cmp. The
// narrow-window "virt_cnt == virt_cmp" equality check is intentional:
// a skipped tick that jumps past virt_cmp will miss the interrupt,
// matching the original hardware-counter behavior rather than
// "fixing" it with a >= comparison.
func TickTimer(cpu *mips64.CPU) (timerIRQ bool) {
	cpu.VirtCount++
	if cpu.VirtCount == cpu.VirtCompare {
		cpu.CP0[mips64.CP0Cause] |= mips64.CauseIP0 << 7 // IP7, the timer interrupt line
		return true
	}
	return false
}

// pageSize returns the MTS page size in bytes for a TLB entry's
// PageMask field: page_size = (PageMask + 0x2000) >> 1.
func pageSize(pageMask uint64) uint64 {
	return (pageMask + 0x2000) >> 1
}

// ExecTLBP implements TLBP: search the TLB for an entry whose VPN2
// matches EntryHi's VPN2 (matching either the global bit or the
// ASID); on success write Index, on failure set bit 31 (probe
// failed).
func ExecTLBP(cpu *mips64.CPU) {
	entryHi := cpu.CP0[mips64.CP0EntryHi]
	asid := entryHi & 0xff
	for i := range cpu.TLB {
		e := &cpu.TLB[i]
		mask := ^e.Mask &^ 0x1fff
		if (e.Hi^entryHi)&mask != 0 {
			continue
		}
		if e.Global() || (e.Hi&0xff) == asid {
			cpu.CP0[mips64.CP0Index] = uint64(i)
			return
		}
	}
	cpu.CP0[mips64.CP0Index] = 1 << 31 // probe-failed bit
}

// ExecTLBR implements TLBR: copy entry[Index] into
// PageMask/EntryHi/EntryLo0/EntryLo1, mirroring the G bit into both
// EntryLo's and clearing it in EntryHi.
func ExecTLBR(cpu *mips64.CPU) {
	idx := cpu.CP0[mips64.CP0Index] & (mips64.NumTLBEntries - 1)
	e := &cpu.TLB[idx]
	g := e.Global()
	cpu.CP0[mips64.CP0PageMask] = e.Mask
	cpu.CP0[mips64.CP0EntryHi] = e.Hi &^ 1
	lo0, lo1 := e.Lo0, e.Lo1
	if g {
		lo0 |= 1
		lo1 |= 1
	} else {
		lo0 &^= 1
		lo1 &^= 1
	}
	cpu.CP0[mips64.CP0EntryLo0] = lo0
	cpu.CP0[mips64.CP0EntryLo1] = lo1
}

// ExecTLBWI implements TLBWI: write entry[Index] from
// PageMask/EntryHi/EntryLo0/EntryLo1; the AND of the two EntryLo G
// bits is written back into bit 0 of both stored EntryLo values, which
// is where TLBEntry.Global reads it. The G bits are not cleared, and
// the stored EntryHi carries no G bit. Returns the written entry so the caller (MTS) can
// invalidate/rebuild the mapped pages.
func ExecTLBWI(cpu *mips64.CPU) mips64.TLBEntry {
	idx := cpu.CP0[mips64.CP0Index] & (mips64.NumTLBEntries - 1)
	return writeTLB(cpu, uint8(idx))
}

// ExecTLBWR writes to the register pointed at by Random instead of
// Index, otherwise identical to TLBWI.
func ExecTLBWR(cpu *mips64.CPU) mips64.TLBEntry {
	idx := GetReg(cpu, mips64.CP0Random) & (mips64.NumTLBEntries - 1)
	return writeTLB(cpu, uint8(idx))
}

func writeTLB(cpu *mips64.CPU, idx uint8) mips64.TLBEntry {
	lo0, lo1 := cpu.CP0[mips64.CP0EntryLo0], cpu.CP0[mips64.CP0EntryLo1]
	g := (lo0 & 1) != 0 && (lo1&1) != 0
	if g {
		lo0 |= 1
		lo1 |= 1
	} else {
		lo0 &^= 1
		lo1 &^= 1
	}
	e := mips64.TLBEntry{
		Mask: cpu.CP0[mips64.CP0PageMask],
		Hi:   cpu.CP0[mips64.CP0EntryHi],
		Lo0:  lo0,
		Lo1:  lo1,
	}
	cpu.TLB[idx] = e
	return e
}

// MappedPage describes one half of a TLB entry mapped into MTS.
type MappedPage struct {
	VPage  uint64
	PFN    uint64 // physical frame, already shifted and masked
	Valid  bool
	Dirty  bool
	Global bool
}

// MapTLBToMTS computes the even/odd MTS page mappings for a TLB
// entry: page_size = (PageMask+0x2000)>>1, the even page sits at VPN2
// and the odd page at VPN2+page_size, and each PFN is shifted left 6
// and masked by the physical-address-bus mask, only when Valid is set.
func MapTLBToMTS(cpu *mips64.CPU, e mips64.TLBEntry) (even, odd MappedPage) {
	size := pageSize(e.Mask)
	vpn2 := e.Hi &^ 0x1fff
	busMask := cpu.PageMask
	if busMask == 0 {
		busMask = 0x0fffffff // default 256 MiB bus mask if unconfigured
	}
	even = MappedPage{
		VPage:  vpn2,
		PFN:    (e.Lo0 >> 6 << 12) & busMask,
		Valid:  e.Lo0&2 != 0,
		Dirty:  e.Lo0&4 != 0,
		Global: e.Global(),
	}
	odd = MappedPage{
		VPage:  vpn2 + size,
		PFN:    (e.Lo1 >> 6 << 12) & busMask,
		Valid:  e.Lo1&2 != 0,
		Dirty:  e.Lo1&4 != 0,
		Global: e.Global(),
	}
	return even, odd
}

// MapAllTLBToMTS computes every valid page mapping of every TLB
// entry; emu/interp's RebuildMTSFromTLB walks it after flushing the
// MTS cache.
func MapAllTLBToMTS(cpu *mips64.CPU) []MappedPage {
	pages := make([]MappedPage, 0, 2*mips64.NumTLBEntries)
	for i := range cpu.TLB {
		even, odd := MapTLBToMTS(cpu, cpu.TLB[i])
		if even.Valid {
			pages = append(pages, even)
		}
		if odd.Valid {
			pages = append(pages, odd)
		}
	}
	return pages
}
