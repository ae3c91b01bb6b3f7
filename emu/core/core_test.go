package core

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/master"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
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

func newTestCore(t *testing.T) (*Core, chan master.Packet, *memory.RAM) {
	t.Helper()
	ch := make(chan master.Packet, 8)
	c := New(nil, ch)
	ram := memory.New(0, 0x10000)
	c.AddRAM(ram)
	return c, ch, ram
}

func putWord(ram *memory.RAM, offset uint64, word uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], word)
	for i, x := range b {
		ram.Bytes()[offset+uint64(i)] = x
	}
}

func TestStartStepsOneInstructionOnStep(t *testing.T) {
	c, ch, ram := newTestCore(t)
	identityMap(c.CPU, 0x1000)
	putWord(ram, 0x1000, 0x24010005) // addiu $1,$0,5
	c.CPU.PC = 0x1000

	go c.Start()
	defer c.Stop()

	ch <- master.Packet{Msg: master.Step}
	time.Sleep(20 * time.Millisecond)

	if c.CPU.GPR[1] != 5 {
		t.Errorf("GPR[1] = %d, want 5", c.CPU.GPR[1])
	}
}

func TestRunAndHaltToggleRunningState(t *testing.T) {
	c, _, _ := newTestCore(t)
	go c.Start()
	defer c.Stop()

	c.Run()
	time.Sleep(10 * time.Millisecond)
	if !c.running {
		t.Error("running should be true after Run")
	}

	c.Halt()
	time.Sleep(10 * time.Millisecond)
	if c.running {
		t.Error("running should be false after Halt")
	}
}

func TestOnBreakpointAddsAndRemoves(t *testing.T) {
	c, _, _ := newTestCore(t)
	c.onBreakpoint(0x1000, false)
	c.onBreakpoint(0x2000, false)
	if len(c.CPU.Breakpoints) != 2 {
		t.Fatalf("Breakpoints = %v, want 2 entries", c.CPU.Breakpoints)
	}
	c.onBreakpoint(0x1000, true)
	if len(c.CPU.Breakpoints) != 1 || c.CPU.Breakpoints[0] != 0x2000 {
		t.Errorf("Breakpoints after remove = %v", c.CPU.Breakpoints)
	}
}

func TestOnTimerTickRaisesIRQOnEquality(t *testing.T) {
	c, _, _ := newTestCore(t)
	c.CPU.VirtCompare = 1
	c.onTimerTick()
	if !c.CPU.PendingIRQ() {
		t.Error("timer tick reaching VirtCompare should raise an IRQ")
	}
}

type stubJIT struct {
	invalidated []uintptr
}

func (s *stubJIT) RunBlock(_ *mips64.CPU) (int, error) { return 0, nil }
func (s *stubJIT) InvalidatePage(physPage uintptr)     { s.invalidated = append(s.invalidated, physPage) }

func TestSetJITWiresInvalidatePageIntoInterp(t *testing.T) {
	c, _, _ := newTestCore(t)
	jit := &stubJIT{}
	c.SetJIT(jit)

	if c.Interp.OnInvalidate == nil {
		t.Fatal("SetJIT did not wire Interp.OnInvalidate")
	}
	c.Interp.OnInvalidate(0x4000)
	if len(jit.invalidated) != 1 || jit.invalidated[0] != 0x4000 {
		t.Errorf("invalidated = %v, want [0x4000]", jit.invalidated)
	}
}

func TestSetJITWithoutInvalidatePageClearsCallback(t *testing.T) {
	c, _, _ := newTestCore(t)
	c.Interp.OnInvalidate = func(uintptr) {}
	c.SetJIT(&noInvalidateRunner{})
	if c.Interp.OnInvalidate != nil {
		t.Error("SetJIT should clear OnInvalidate for a Runner without InvalidatePage")
	}
}

type noInvalidateRunner struct{}

func (noInvalidateRunner) RunBlock(_ *mips64.CPU) (int, error) { return 0, nil }

func TestStopReturnsPromptlyWhenLoopIdle(t *testing.T) {
	c, _, _ := newTestCore(t)
	go c.Start()

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within its own timeout budget")
	}
}
