/*
mips64vm software MMU (Memory Translation Subsystem).

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

// Package mts is the two-level software MMU cache: a first-level
// table keyed by the high bits of the guest page number yields a
// fixed-stride chunk, so the fast path stays allocation-free after
// warm-up; a miss walks the TLB (emu/cp0) and fills the cache, or
// posts a guest exception.
package mts

import (
	"unsafe"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/device"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

const (
	pageShift  = 12 // 4 KiB pages
	chunkBits  = 10 // 1024 entries per chunk
	chunkMask  = (1 << chunkBits) - 1
)

// entryKind distinguishes a RAM mapping from an MMIO mapping.
type entryKind uint8

const (
	kindNone entryKind = iota
	kindRAM
	kindDevice
)

// entry is one cached translation: a guest virtual page mapped
// either to a host byte slice (RAM) or a device + offset (MMIO). It
// is immutable once inserted; invalidation is by replacement, not
// mutation.
type entry struct {
	kind      entryKind
	vpage     uint64 // guest vpage this slot currently caches
	valid     bool
	host      []byte // RAM fast-path slice, base-aligned to the page
	dev       device.Device
	devOffset uint64
	dirty     bool
}

type chunk [1 << chunkBits]entry

// physRegion is one physical-address-space mapping, either backed by
// RAM or a device.
type physRegion struct {
	base, size uint64
	ram        *memory.RAM
	dev        device.Device
}

// MTS is the per-CPU software MMU cache. It is exclusively owned by
// the CPU thread that created it; no other goroutine may touch it.
type MTS struct {
	cpu     *mips64.CPU
	chunks  map[uint64]*chunk
	regions []physRegion

	Lookups    uint64
	Hits       uint64
	TLBFills   uint64
}

// New creates an MTS cache bound to a CPU's TLB.
func New(cpu *mips64.CPU) *MTS {
	return &MTS{cpu: cpu, chunks: make(map[uint64]*chunk)}
}

// AddRAM registers a RAM-backed physical region.
func (m *MTS) AddRAM(ram *memory.RAM) {
	m.regions = append(m.regions, physRegion{base: ram.Base(), size: ram.Size(), ram: ram})
}

// AddDevice registers an MMIO physical region.
func (m *MTS) AddDevice(base, size uint64, dev device.Device) {
	m.regions = append(m.regions, physRegion{base: base, size: size, dev: dev})
}

func (m *MTS) findPhys(paddr uint64) (physRegion, uint64, bool) {
	for _, r := range m.regions {
		if paddr >= r.base && paddr-r.base < r.size {
			return r, paddr - r.base, true
		}
	}
	return physRegion{}, 0, false
}

// Flush drops every cached translation (called on TLBWI/TLBWR
// invalidation and by RebuildFromTLB), including the JIT's
// fast-line probe: a stale Host pointer there would let translated
// code read or write a page that no longer maps where the line says
// it does.
func (m *MTS) Flush() {
	m.chunks = make(map[uint64]*chunk)
	for i := range m.cpu.FastLine {
		m.cpu.FastLine[i] = mips64.FastLineEntry{Tag: ^uint64(0)}
	}
}

// InvalidatePage drops the cache slot for a single guest vpage, if
// any, without disturbing the rest of the chunk, and the fast-line
// entry for that page if it is the one currently cached there.
func (m *MTS) InvalidatePage(vpage uint64) {
	if c, ok := m.chunks[vpage>>chunkBits]; ok {
		idx := vpage & chunkMask
		if c[idx].valid && c[idx].vpage == vpage {
			c[idx] = entry{}
		}
	}
	fi := vpage & (mips64.NumFastLines - 1)
	if m.cpu.FastLine[fi].Tag == vpage {
		m.cpu.FastLine[fi] = mips64.FastLineEntry{Tag: ^uint64(0)}
	}
}

// RebuildFromTLB repopulates nothing eagerly (the cache is a demand
// fill) but clears stale state, so later lookups refill from the
// current TLB rather than from mappings cached before a TLB change.
// The debug console's restore command does not call it.
func (m *MTS) RebuildFromTLB() {
	m.Flush()
}

func vpageOf(vaddr uint64) uint64 { return vaddr >> pageShift }

func (m *MTS) slot(vpage uint64) (*chunk, uint64) {
	key := vpage >> chunkBits
	c, ok := m.chunks[key]
	if !ok {
		c = &chunk{}
		m.chunks[key] = c
	}
	return c, vpage & chunkMask
}

// Exception reasons posted by a miss: TLB-refill when VPN2 is
// entirely unmapped, TLB-invalid when mapped but V=0.
type MissReason uint8

const (
	MissNone MissReason = iota
	MissRefill
	MissInvalid
)

// fillFromTLB performs the slow-path TLB walk: search the TLB for a
// VPN2/ASID match, and on hit insert a fresh MTS entry for the
// half-page containing vaddr.
func (m *MTS) fillFromTLB(vaddr uint64, write bool) (MissReason, *entry) {
	m.TLBFills++
	entryHi := m.cpu.CP0[mips64.CP0EntryHi]
	asid := entryHi & 0xff
	vpn2 := vaddr &^ 0x1fff

	for i := range m.cpu.TLB {
		e := &m.cpu.TLB[i]
		mask := ^e.Mask &^ 0x1fff
		if (e.Hi^vpn2)&mask != 0 {
			continue
		}
		if !e.Global() && (e.Hi&0xff) != asid {
			continue
		}
		even, odd := cp0.MapTLBToMTS(m.cpu, *e)
		half := even
		// The odd page starts page_size bytes above VPN2, so the
		// page_size bit of vaddr selects the half.
		if vaddr&(odd.VPage-even.VPage) != 0 {
			half = odd
		}
		if !half.Valid {
			return MissInvalid, nil
		}
		if write && !half.Dirty {
			return MissInvalid, nil
		}
		return MissNone, m.install(half, vaddr, write)
	}
	return MissRefill, nil
}

func (m *MTS) install(half cp0.MappedPage, vaddr uint64, write bool) *entry {
	vpage := vpageOf(vaddr)
	pageBase := half.PFN
	region, off, ok := m.findPhys(pageBase)
	c, idx := m.slot(vpage)
	if !ok {
		c[idx] = entry{kind: kindNone, vpage: vpage, valid: false}
		return &c[idx]
	}
	if region.ram != nil {
		pageStart := off &^ 0xfff
		c[idx] = entry{
			kind:  kindRAM,
			vpage: vpage,
			valid: true,
			host:  region.ram.Bytes()[pageStart : pageStart+0x1000],
			dirty: half.Dirty,
		}
	} else {
		c[idx] = entry{
			kind:      kindDevice,
			vpage:     vpage,
			valid:     true,
			dev:       region.dev,
			devOffset: off &^ 0xfff,
		}
	}
	return &c[idx]
}

// Translate resolves a guest virtual address to the cached entry,
// filling the cache from the TLB on a miss. It is the function the
// interpreter calls for every load/store, and the one the JIT's slow
// path falls through to.
func (m *MTS) Translate(vaddr uint64, write bool) (*entry, MissReason) {
	m.Lookups++
	vpage := vpageOf(vaddr)
	if c, ok := m.chunks[vpage>>chunkBits]; ok {
		idx := vpage & chunkMask
		if c[idx].valid && c[idx].vpage == vpage {
			if write && c[idx].kind == kindRAM && !c[idx].dirty {
				// falls through to slow path to re-check the dirty bit
			} else {
				m.Hits++
				m.fillFastLine(vpage, &c[idx])
				return &c[idx], MissNone
			}
		}
	}
	reason, e := m.fillFromTLB(vaddr, write)
	if reason == MissNone {
		m.fillFastLine(vpage, e)
	}
	return e, reason
}

// fillFastLine refreshes the JIT's inline fast-path line for vpage so
// a translated block's next pass through this page hits without
// leaving the arena. Device mappings are left out: the fast path only
// ever dereferences a host RAM page directly.
func (m *MTS) fillFastLine(vpage uint64, e *entry) {
	if e == nil || e.kind != kindRAM {
		return
	}
	idx := vpage & (mips64.NumFastLines - 1)
	m.cpu.FastLine[idx] = mips64.FastLineEntry{
		Tag:  vpage,
		Host: uintptr(unsafe.Pointer(&e.host[0])),
	}
}

// swapGuestBytes/putGuestBytes isolate the guest-endian byte assembly
// for the RAM accessors below; the JIT's inline fast path emits its own
// byte-at-a-time sequence. The guest is big-endian (the conventional
// Cisco MIPS64 byte order).
func swapGuestBytes(b []byte, size int) uint64 {
	var v uint64
	for i := 0; i < size; i++ {
		v = (v << 8) | uint64(b[i])
	}
	return v
}

func putGuestBytes(b []byte, size int, value uint64) {
	for i := size - 1; i >= 0; i-- {
		b[i] = byte(value)
		value >>= 8
	}
}

// ReadRAMFast reads size bytes from a RAM-backed entry's host page at
// the given vaddr's page offset, dereferencing the host pointer
// directly instead of going through a byte-at-a-time device path.
func (e *entry) ReadRAMFast(vaddr uint64, size int) uint64 {
	off := vaddr & 0xfff
	return swapGuestBytes(e.host[off:off+uint64(size)], size)
}

// WriteRAMFast is the store counterpart of ReadRAMFast.
func (e *entry) WriteRAMFast(vaddr uint64, size int, value uint64) {
	off := vaddr & 0xfff
	putGuestBytes(e.host[off:off+uint64(size)], size, value)
}

// IsRAM reports whether the entry is a RAM mapping.
func (e *entry) IsRAM() bool { return e.kind == kindRAM }

// PhysPageKey identifies the host RAM page backing this entry, stable
// across every guest vpage mapped to the same physical page. The JIT
// uses it to bucket translated blocks for store-side self-modifying-
// code invalidation; it returns 0 for a non-RAM (device) entry, which
// never backs a translated block.
func (e *entry) PhysPageKey() uintptr {
	if e.kind != kindRAM {
		return 0
	}
	return uintptr(unsafe.Pointer(&e.host[0]))
}

// Device returns the mapped device and its byte offset for an MMIO
// entry.
func (e *entry) Device() (device.Device, uint64) { return e.dev, e.devOffset }
