//go:build amd64

package jit

import (
	"encoding/binary"
	"testing"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/emu/mts"
)

// newTestSystem builds a CPU whose 4 KiB page at vaddr 0x1000 (the odd
// half of VPN2 0) is mapped to RAM physical page 0, so tests can fetch
// and run code
// without involving a real boot image.
func newTestSystem(t *testing.T) (*mips64.CPU, *mts.MTS, *memory.RAM) {
	t.Helper()
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := mts.New(cpu)
	m.AddRAM(ram)

	cpu.CP0[mips64.CP0EntryHi] = 0x1000
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = (0 << 6) | 2 | 4 // PFN 0, valid, dirty
	cpu.CP0[mips64.CP0EntryLo1] = (0 << 6) | 2 | 4 // PFN 0, valid, dirty
	cpu.CP0[mips64.CP0Index] = 0
	cp0.ExecTLBWI(cpu)

	return cpu, m, ram
}

func putWord(t *testing.T, ram *memory.RAM, offset uint64, word uint32) {
	t.Helper()
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], word)
	for i, c := range b {
		ram.Bytes()[offset+uint64(i)] = c
	}
}

func TestManagerTranslatesStraightLineALURun(t *testing.T) {
	cpu, m, ram := newTestSystem(t)

	// addiu $1, $0, 5 ; addiu $2, $0, 7 ; addu $3, $1, $2
	words := []uint32{
		0x24010005,
		0x24020007,
		0x00221821,
	}
	for i, w := range words {
		putWord(t, ram, uint64(i*4), w)
	}

	cpu.PC = 0x1000
	mgr, err := NewManager(m, 1<<16)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	n, err := mgr.RunBlock(cpu)
	if err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	if n != len(words) {
		t.Fatalf("ran %d instructions, want %d", n, len(words))
	}
	if cpu.GPR[1] != 5 || cpu.GPR[2] != 7 || cpu.GPR[3] != 12 {
		t.Errorf("registers = %d,%d,%d; want 5,7,12", cpu.GPR[1], cpu.GPR[2], cpu.GPR[3])
	}
	if cpu.PC != 0x1000+uint64(len(words))*4 {
		t.Errorf("PC = %#x, want %#x", cpu.PC, 0x1000+uint64(len(words))*4)
	}
}

func TestManagerDeclinesUnemittableFirstInstruction(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	// mfc0 $1, $12 (CP0 access) is outside both the ALU and memory
	// fast-path subsets.
	putWord(t, ram, 0, 0x40016000)

	cpu.PC = 0x1000
	mgr, err := NewManager(m, 4096)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	if _, err := mgr.RunBlock(cpu); err != ErrNoBlock {
		t.Fatalf("RunBlock err = %v, want ErrNoBlock", err)
	}
}

func TestManagerCachesBlocksByStartPC(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	putWord(t, ram, 0, 0x24010001) // addiu $1, $0, 1

	cpu.PC = 0x1000
	mgr, err := NewManager(m, 4096)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("first RunBlock: %v", err)
	}
	if len(mgr.cache) != 1 {
		t.Fatalf("cache size = %d, want 1", len(mgr.cache))
	}

	cpu.PC = 0x1000
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("second RunBlock: %v", err)
	}
	if len(mgr.cache) != 1 {
		t.Errorf("cache grew on repeat visit: %d entries", len(mgr.cache))
	}
	if mgr.cache[0x1000].AccCount != 2 {
		t.Errorf("AccCount = %d, want 2", mgr.cache[0x1000].AccCount)
	}
}

func TestFlushJITEvictsAtOrBelowThresholdOnly(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	putWord(t, ram, 0, 0x24010001) // addiu $1, $0, 1, at 0x1000
	putWord(t, ram, 8, 0x24020002) // addiu $2, $0, 2, at 0x1008 (same mapped page)

	mgr, err := NewManager(m, 4096)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	cpu.PC = 0x1000
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock(0x1000): %v", err)
	}
	cpu.PC = 0x1008
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock(0x1008): %v", err)
	}
	cpu.PC = 0x1008
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock(0x1008) again: %v", err)
	}

	// 0x1000 has AccCount 1, 0x1008 has AccCount 2.
	if n := mgr.FlushJIT(1); n != 1 {
		t.Fatalf("FlushJIT(1) evicted %d, want 1", n)
	}
	if _, ok := mgr.cache[0x1000]; ok {
		t.Error("block at 0x1000 should have been evicted")
	}
	if _, ok := mgr.cache[0x1008]; !ok {
		t.Error("block at 0x1008 (AccCount 2) should have survived threshold 1")
	}
}

func TestFlushJITZeroThresholdIsIdempotent(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	putWord(t, ram, 0, 0x24010001)

	mgr, err := NewManager(m, 4096)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	cpu.PC = 0x1000
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock: %v", err)
	}
	// The run left AccCount at 1; reset it so threshold 0 covers it.
	mgr.cache[0x1000].AccCount = 0

	first := mgr.FlushJIT(0)
	second := mgr.FlushJIT(0)
	if first != 1 {
		t.Errorf("first FlushJIT(0) evicted %d, want 1", first)
	}
	if second != 0 {
		t.Errorf("second FlushJIT(0) evicted %d, want 0", second)
	}
}

func TestInvalidatePageDropsAllBlocksSharingThatPage(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	putWord(t, ram, 0, 0x24010001)  // block at 0x1000
	putWord(t, ram, 4, 0x24020002)  // block at 0x1004, same 4 KiB guest page

	mgr, err := NewManager(m, 4096)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	cpu.PC = 0x1000
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock(0x1000): %v", err)
	}
	cpu.PC = 0x1004
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("RunBlock(0x1004): %v", err)
	}
	if len(mgr.cache) != 2 {
		t.Fatalf("cache size = %d, want 2 before invalidation", len(mgr.cache))
	}

	physPage := mgr.cache[0x1000].PhysPage
	mgr.InvalidatePage(physPage)
	if len(mgr.cache) != 0 {
		t.Errorf("cache size = %d after InvalidatePage, want 0", len(mgr.cache))
	}
	if _, ok := mgr.pageIndex[physPage]; ok {
		t.Error("InvalidatePage should have removed the now-empty page bucket")
	}
}

func TestAllocCodeEscalatesFromPartialToFullFlush(t *testing.T) {
	cpu, m, ram := newTestSystem(t)
	// Each word is its own one-instruction block: the zero word right
	// after it (uninitialized RAM, decoding as a non-ALU SLL) ends the
	// block before it can grow past one instruction.
	putWord(t, ram, 0, 0x24010001) // addiu $1, $0, 1, at 0x1000
	putWord(t, ram, 8, 0x24020002) // addiu $2, $0, 2, at 0x1008

	// An arena barely large enough for one block forces every
	// subsequent translation to exhaust it.
	mgr, err := NewManager(m, 32)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer mgr.Close()

	cpu.PC = 0x1000
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("first RunBlock: %v", err)
	}
	// Bump this block's AccCount above partialFlushAccCount so the
	// next translation's partial flush can't reclaim the arena and
	// must escalate to a full flush.
	mgr.cache[0x1000].AccCount = partialFlushAccCount + 1

	cpu.PC = 0x1008
	if _, err := mgr.RunBlock(cpu); err != nil {
		t.Fatalf("second RunBlock (expected to force a full flush): %v", err)
	}
	if _, ok := mgr.cache[0x1000]; ok {
		t.Error("a full flush should have evicted the busy block at 0x1000 too")
	}
	if _, ok := mgr.cache[0x1008]; !ok {
		t.Error("the newly translated block at 0x1008 should be cached")
	}
}
