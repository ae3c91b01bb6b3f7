package cp0

import (
	"testing"

	"github.com/rcornwell/mips64vm/emu/mips64"
)

func TestSetRegMasksPageMaskEntryHiEntryLo(t *testing.T) {
	cpu := mips64.New()

	SetReg(cpu, mips64.CP0PageMask, ^uint64(0))
	if cpu.CP0[mips64.CP0PageMask] != pageMaskSafe {
		t.Errorf("PageMask = %#x, want %#x", cpu.CP0[mips64.CP0PageMask], pageMaskSafe)
	}

	SetReg(cpu, mips64.CP0EntryHi, ^uint64(0))
	if cpu.CP0[mips64.CP0EntryHi] != entryHiSafe {
		t.Errorf("EntryHi = %#x, want %#x", cpu.CP0[mips64.CP0EntryHi], entryHiSafe)
	}

	SetReg(cpu, mips64.CP0EntryLo0, ^uint64(0))
	if cpu.CP0[mips64.CP0EntryLo0] != entryLoSafe {
		t.Errorf("EntryLo0 = %#x, want %#x", cpu.CP0[mips64.CP0EntryLo0], entryLoSafe)
	}
}

func TestSetRegIgnoresReadOnlyRegisters(t *testing.T) {
	cpu := mips64.New()
	want := cpu.CP0[mips64.CP0PRId]
	SetReg(cpu, mips64.CP0PRId, 0xdeadbeef)
	if cpu.CP0[mips64.CP0PRId] != want {
		t.Errorf("PRId changed to %#x, want unchanged %#x", cpu.CP0[mips64.CP0PRId], want)
	}
}

func TestGetRegSynthesizesRandomFromWired(t *testing.T) {
	cpu := mips64.New()
	SetReg(cpu, mips64.CP0Wired, 3)
	got := GetReg(cpu, mips64.CP0Random)
	want := uint64(mips64.NumTLBEntries-1) - 3
	if got != want {
		t.Errorf("Random = %d, want %d", got, want)
	}
}

func TestCheckKernelModeAllowsResetStateAndUserCU0(t *testing.T) {
	cpu := mips64.New()
	if !CheckKernelMode(cpu) {
		t.Error("fresh CPU should be in kernel mode after reset (ERL set)")
	}

	cpu.CP0[mips64.CP0Status] = 0x10 | 1<<28 // user mode (KSU=2), CU0 set
	if !CheckKernelMode(cpu) {
		t.Error("user mode with CU0 set should be allowed CP0 access")
	}
}

func TestExecTLBWIAndTLBRRoundTrip(t *testing.T) {
	cpu := mips64.New()
	cpu.CP0[mips64.CP0EntryHi] = 0x2000
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = (5 << 6) | 2 | 4 // PFN 5, valid, dirty
	cpu.CP0[mips64.CP0EntryLo1] = (6 << 6) | 2
	cpu.CP0[mips64.CP0Index] = 4

	ExecTLBWI(cpu)

	cpu.CP0[mips64.CP0EntryHi] = 0
	cpu.CP0[mips64.CP0EntryLo0] = 0
	cpu.CP0[mips64.CP0EntryLo1] = 0
	cpu.CP0[mips64.CP0Index] = 4
	ExecTLBR(cpu)

	if cpu.CP0[mips64.CP0EntryHi] != 0x2000 {
		t.Errorf("EntryHi after TLBR = %#x, want 0x2000", cpu.CP0[mips64.CP0EntryHi])
	}
	if cpu.CP0[mips64.CP0EntryLo0] != (5<<6)|2|4 {
		t.Errorf("EntryLo0 after TLBR = %#x", cpu.CP0[mips64.CP0EntryLo0])
	}
}

func TestExecTLBPFindsMatchingEntry(t *testing.T) {
	cpu := mips64.New()
	cpu.CP0[mips64.CP0EntryHi] = 0x3000
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = 2
	cpu.CP0[mips64.CP0EntryLo1] = 2
	cpu.CP0[mips64.CP0Index] = 7
	ExecTLBWI(cpu)

	cpu.CP0[mips64.CP0Index] = 0
	ExecTLBP(cpu)
	if cpu.CP0[mips64.CP0Index] != 7 {
		t.Errorf("Index after TLBP = %d, want 7", cpu.CP0[mips64.CP0Index])
	}
}

func TestExecTLBPMissSetsFailureBit(t *testing.T) {
	cpu := mips64.New()
	cpu.CP0[mips64.CP0EntryHi] = 0x9000
	ExecTLBP(cpu)
	if cpu.CP0[mips64.CP0Index]&(1<<31) == 0 {
		t.Error("TLBP miss should set the probe-failed bit")
	}
}

func TestMapTLBToMTSComputesEvenOddPages(t *testing.T) {
	e := mips64.TLBEntry{
		Mask: 0,
		Hi:   0x4000,
		Lo0:  (1 << 6) | 2 | 4,
		Lo1:  (2 << 6) | 2,
	}
	cpu := mips64.New()
	cpu.PageMask = 0x0fffffff

	even, odd := MapTLBToMTS(cpu, e)
	if even.VPage != 0x4000 || !even.Valid || !even.Dirty {
		t.Errorf("even page = %+v", even)
	}
	if odd.VPage != 0x4000+pageSize(0) || !odd.Valid || odd.Dirty {
		t.Errorf("odd page = %+v", odd)
	}
}

func TestTickTimerFiresOnlyAtExactEquality(t *testing.T) {
	cpu := mips64.New()
	cpu.VirtCompare = 3
	for i := 0; i < 2; i++ {
		if TickTimer(cpu) {
			t.Fatalf("tick %d fired early", i)
		}
	}
	if !TickTimer(cpu) {
		t.Error("tick should fire when VirtCount reaches VirtCompare")
	}
}
