package interp

import (
	"encoding/binary"
	"testing"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/emu/mts"
)

func identityMap(cpu *mips64.CPU, vaddr uint64) {
	vpn2 := vaddr &^ 0x1fff
	cpu.CP0[mips64.CP0EntryHi] = vpn2
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = (vpn2>>12)<<6 | 2 | 4   // even page maps to itself, valid, dirty
	cpu.CP0[mips64.CP0EntryLo1] = (vpn2>>12+1)<<6 | 2 | 4 // odd page maps to itself, valid, dirty
	cpu.CP0[mips64.CP0Index] = 0
	cp0.ExecTLBWI(cpu)
}

func putWord(ram *memory.RAM, offset uint64, word uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], word)
	for i, x := range b {
		ram.Bytes()[offset+uint64(i)] = x
	}
}

func newTestInterp(t *testing.T) (*Interp, *mips64.CPU, *memory.RAM) {
	t.Helper()
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := mts.New(cpu)
	m.AddRAM(ram)
	ip := New(cpu, m, nil)
	return ip, cpu, ram
}

func TestStepExecutesALUAndAdvancesPC(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x1000)
	putWord(ram, 0x1000, 0x24010005) // addiu $1,$0,5
	putWord(ram, 0x1004, 0x34021234) // ori $2,$0,0x1234
	cpu.PC = 0x1000

	if err := ip.Step(); err != nil {
		t.Fatalf("Step (addiu): %v", err)
	}
	if cpu.GPR[1] != 5 {
		t.Errorf("GPR[1] = %d, want 5", cpu.GPR[1])
	}
	if cpu.PC != 0x1004 {
		t.Errorf("PC = %#x, want 0x1004", cpu.PC)
	}

	if err := ip.Step(); err != nil {
		t.Fatalf("Step (ori): %v", err)
	}
	if cpu.GPR[2] != 0x1234 {
		t.Errorf("GPR[2] = %#x, want 0x1234", cpu.GPR[2])
	}
	if cpu.PC != 0x1008 {
		t.Errorf("PC = %#x, want 0x1008", cpu.PC)
	}
}

func TestStepExecutesTakenBranchAndItsDelaySlot(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x2000)
	putWord(ram, 0x2000, 0x10220002) // beq $1,$2,2 (GPR1==GPR2==0, always taken)
	putWord(ram, 0x2004, 0x24030009) // addiu $3,$0,9 (delay slot)
	cpu.PC = 0x2000

	if err := ip.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.GPR[3] != 9 {
		t.Errorf("GPR[3] = %d, want 9 (delay slot must execute)", cpu.GPR[3])
	}
	want := uint64(0x2000 + 4 + (2 << 2))
	if cpu.PC != want {
		t.Errorf("PC = %#x, want %#x", cpu.PC, want)
	}
}

func TestStepLoadStoreRoundTrip(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x3000)
	putWord(ram, 0x3000, 0xac410000) // sw $1,0($2)
	putWord(ram, 0x3004, 0x8c430000) // lw $3,0($2)
	cpu.PC = 0x3000
	cpu.GPR[1] = 0x11223344
	cpu.GPR[2] = 0x3100

	if err := ip.Step(); err != nil {
		t.Fatalf("Step (sw): %v", err)
	}
	if err := ip.Step(); err != nil {
		t.Fatalf("Step (lw): %v", err)
	}
	if cpu.GPR[3] != 0x11223344 {
		t.Errorf("GPR[3] = %#x, want 0x11223344", cpu.GPR[3])
	}
}

func TestStepHaltsOnUnknownOpcode(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x4000)
	putWord(ram, 0x4000, 0xec000000) // reserved
	cpu.PC = 0x4000

	err := ip.Step()
	if err == nil {
		t.Fatal("Step should return an error for an unknown opcode")
	}
	if cpu.State != mips64.Halted {
		t.Errorf("State = %v, want Halted", cpu.State)
	}
}

func TestStepRedirectsToTLBRefillVectorOnFetchMiss(t *testing.T) {
	ip, cpu, _ := newTestInterp(t)
	// No TLB entry installed: fetching cpu.PC (the boot vector) misses.

	if err := ip.Step(); err != nil {
		t.Fatalf("Step should not surface a Go error on a TLB miss: %v", err)
	}
	if cpu.State != mips64.Running {
		t.Errorf("State = %v, want Running (exceptions redirect, they don't halt)", cpu.State)
	}
	if cpu.PC != mips64.VectorBootBase+mips64.VectorTLBRefill {
		t.Errorf("PC = %#x, want the TLB refill vector", cpu.PC)
	}
	if cpu.CP0[mips64.CP0Status]&mips64.StatusEXL == 0 {
		t.Error("Status.EXL should be set after the exception")
	}
}

func TestCP0AccessBlockedOutsideKernelMode(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x5000)
	putWord(ram, 0x5000, 0x40816000) // mtc0 $1,$12 (Status)
	cpu.PC = 0x5000
	cpu.CP0[mips64.CP0Status] = 0x10 // user mode (KSU=2), CU0 clear

	if err := ip.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	want := mips64.VectorRAMBase + mips64.VectorGeneral
	if cpu.PC != want {
		t.Errorf("PC = %#x, want %#x (CpU exception vector)", cpu.PC, want)
	}
	if cpu.CP0[mips64.CP0Status]&mips64.StatusEXL == 0 {
		t.Error("Status.EXL should be set after the CpU exception")
	}
}

func TestCP0AccessAllowedInKernelMode(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x6000)
	putWord(ram, 0x6000, 0x40816000) // mtc0 $1,$12 (Status)
	cpu.PC = 0x6000
	cpu.GPR[1] = mips64.StatusBEV | mips64.StatusERL

	if err := ip.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.CP0[mips64.CP0Status] != mips64.StatusBEV|mips64.StatusERL {
		t.Errorf("Status = %#x, want %#x", cpu.CP0[mips64.CP0Status], mips64.StatusBEV|mips64.StatusERL)
	}
}

func TestExecWordRejectsBranchInDelaySlot(t *testing.T) {
	ip, cpu, ram := newTestInterp(t)
	identityMap(cpu, 0x7000)
	putWord(ram, 0x7000, 0x10220002) // beq $1,$2,2
	putWord(ram, 0x7004, 0x10220002) // another beq: illegal in a delay slot
	cpu.PC = 0x7000

	if err := ip.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.State != mips64.Halted {
		t.Errorf("State = %v, want Halted after a branch-in-delay-slot violation", cpu.State)
	}
}
