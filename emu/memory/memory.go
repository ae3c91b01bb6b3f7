/*
mips64vm Guest RAM region.

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

// Package memory is the RAM region external collaborator: a flat
// byte-addressed store plus the two image-loading entry points
// (cpu_load_raw/cpu_load_elf) the core's configuration surface
// requires. RAM size is part of the configuration rather than a
// compile-time constant, so the region is returned by a constructor
// instead of living as a fixed package-global array.
package memory

import (
	"errors"
	"fmt"

	elf "github.com/yalue/elf_reader"
)

// RAM is a contiguous, byte-addressable guest memory region. It is
// not safe for concurrent use: it is exclusively owned by the CPU
// thread that maps it through MTS.
type RAM struct {
	base uint64 // guest physical base address
	data []byte
}

// New allocates a RAM region of the given size (bytes) starting at
// guest physical address base.
func New(base uint64, size uint64) *RAM {
	return &RAM{base: base, data: make([]byte, size)}
}

// Size returns the region's size in bytes.
func (r *RAM) Size() uint64 { return uint64(len(r.data)) }

// Base returns the region's guest physical base address.
func (r *RAM) Base() uint64 { return r.base }

// Contains reports whether a physical address falls inside the
// region.
func (r *RAM) Contains(paddr uint64) bool {
	return paddr >= r.base && paddr-r.base < uint64(len(r.data))
}

// Bytes returns the backing slice, for MTS to take a host pointer
// into directly: the RAM fast path dereferences the host pointer
// without going back through RAM's own accessors.
func (r *RAM) Bytes() []byte { return r.data }

// ErrOutOfRange is returned by the bounds-checked accessors below.
var ErrOutOfRange = errors.New("memory: address out of range")

// ReadPhys reads size bytes (1, 2, 4, 8) at a guest physical address,
// honoring guest (big-endian) byte order.
func (r *RAM) ReadPhys(paddr uint64, size int) (uint64, error) {
	if !r.Contains(paddr) || !r.Contains(paddr+uint64(size)-1) {
		return 0, ErrOutOfRange
	}
	off := paddr - r.base
	var v uint64
	for i := 0; i < size; i++ {
		v = (v << 8) | uint64(r.data[off+uint64(i)])
	}
	return v, nil
}

// WritePhys writes size bytes (1, 2, 4, 8) at a guest physical
// address, honoring guest (big-endian) byte order.
func (r *RAM) WritePhys(paddr uint64, size int, value uint64) error {
	if !r.Contains(paddr) || !r.Contains(paddr+uint64(size)-1) {
		return ErrOutOfRange
	}
	off := paddr - r.base
	for i := size - 1; i >= 0; i-- {
		r.data[off+uint64(i)] = byte(value)
		value >>= 8
	}
	return nil
}

// LoadRaw copies a raw ROM/firmware image into the region starting at
// guest physical address paddr.
func (r *RAM) LoadRaw(paddr uint64, image []byte) error {
	if !r.Contains(paddr) || !r.Contains(paddr+uint64(len(image))-1) {
		return fmt.Errorf("%w: raw image of %d bytes at 0x%x", ErrOutOfRange, len(image), paddr)
	}
	copy(r.data[paddr-r.base:], image)
	return nil
}

// LoadELF loads every SHF_ALLOC section of an ELF image into the
// region and returns the entry point.
func (r *RAM) LoadELF(image []byte) (entry uint64, err error) {
	f, err := elf.ParseELFFile(image)
	if err != nil {
		return 0, fmt.Errorf("memory: parsing ELF image: %w", err)
	}

	sections := f.GetSectionCount()
	for i := uint16(0); i < sections; i++ {
		header, e := f.GetSectionHeader(i)
		if e != nil {
			continue
		}
		if header.Flags()&elf.SectionAlloc == 0 {
			continue
		}
		content, e := f.GetSectionContent(i)
		if e != nil {
			return 0, fmt.Errorf("memory: reading section %d content: %w", i, e)
		}
		addr := header.VirtualAddress()
		if len(content) == 0 {
			continue
		}
		if e := r.LoadRaw(addr, content); e != nil {
			return 0, fmt.Errorf("memory: loading section %d: %w", i, e)
		}
	}
	return f.GetFileHeader().EntryPoint(), nil
}
