package mts

import (
	"testing"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

func identityMap(cpu *mips64.CPU, vaddr uint64, pfn uint64) {
	cpu.CP0[mips64.CP0EntryHi] = vaddr &^ 0x1fff
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = (pfn << 6) | 2 | 4 // valid, dirty
	cpu.CP0[mips64.CP0EntryLo1] = (pfn << 6) | 2 | 4 // same frame for the odd half
	cpu.CP0[mips64.CP0Index] = 0
	cp0.ExecTLBWI(cpu)
}

func TestTranslateFillsFromTLBOnMiss(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)
	identityMap(cpu, 0x1000, 0)

	e, miss := m.Translate(0x1000, false)
	if miss != MissNone {
		t.Fatalf("Translate miss = %v, want MissNone", miss)
	}
	if !e.IsRAM() {
		t.Error("entry should be RAM-backed")
	}
	if m.TLBFills != 1 {
		t.Errorf("TLBFills = %d, want 1", m.TLBFills)
	}
}

func TestTranslateHitsCacheOnSecondLookup(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)
	identityMap(cpu, 0x2000, 0)

	if _, miss := m.Translate(0x2000, false); miss != MissNone {
		t.Fatalf("first Translate miss = %v", miss)
	}
	if _, miss := m.Translate(0x2000, false); miss != MissNone {
		t.Fatalf("second Translate miss = %v", miss)
	}
	if m.Hits != 1 {
		t.Errorf("Hits = %d, want 1", m.Hits)
	}
	if m.TLBFills != 1 {
		t.Errorf("TLBFills = %d, want 1 (no re-fill on cache hit)", m.TLBFills)
	}
}

func TestTranslateReportsRefillWhenVPN2Unmapped(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)

	_, miss := m.Translate(0x9000, false)
	if miss != MissRefill {
		t.Errorf("miss = %v, want MissRefill", miss)
	}
}

func TestTranslateReportsInvalidWhenPageNotValid(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)

	cpu.CP0[mips64.CP0EntryHi] = 0x3000
	cpu.CP0[mips64.CP0PageMask] = 0
	cpu.CP0[mips64.CP0EntryLo0] = 0 // valid bit clear
	cpu.CP0[mips64.CP0EntryLo1] = 0
	cpu.CP0[mips64.CP0Index] = 0
	cp0.ExecTLBWI(cpu)

	_, miss := m.Translate(0x3000, false)
	if miss != MissInvalid {
		t.Errorf("miss = %v, want MissInvalid", miss)
	}
}

func TestFlushDropsCachedTranslations(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)
	identityMap(cpu, 0x4000, 0)

	m.Translate(0x4000, false)
	m.Flush()
	m.Translate(0x4000, false)
	if m.TLBFills != 2 {
		t.Errorf("TLBFills = %d, want 2 after Flush forces a re-fill", m.TLBFills)
	}
}

func TestReadRAMFastAndWriteRAMFastRoundTrip(t *testing.T) {
	cpu := mips64.New()
	ram := memory.New(0, 0x10000)
	m := New(cpu)
	m.AddRAM(ram)
	identityMap(cpu, 0x5000, 0)

	e, _ := m.Translate(0x5000, true)
	e.WriteRAMFast(0x5000, 4, 0x11223344)
	if got := e.ReadRAMFast(0x5000, 4); got != 0x11223344 {
		t.Errorf("ReadRAMFast = %#x, want 0x11223344", got)
	}
}
