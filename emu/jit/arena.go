/*
mips64vm JIT executable code arena.

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

// Package jit owns the translated-code-block arena and manager: a
// bump-allocated slab of mmap'd executable memory, and a per-start-PC
// lookup from guest address to the TCB compiled for it.
package jit

import (
	"errors"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrArenaFull is returned once an Arena's fixed slab runs out of
// room; the manager's caller is expected to flush and rebuild rather
// than grow it.
var ErrArenaFull = errors.New("jit: arena full")

// Arena is a single mmap'd slab of host memory mapped read-write-
// execute once at init and bump-allocated from thereafter: every TCB's
// bytes are written directly into their final executable location, so
// there is no separate writable staging buffer to copy out of before a
// block can run.
type Arena struct {
	mu     sync.Mutex
	mem    []byte
	cursor int
}

// NewArena mmaps size bytes of anonymous, private memory with
// read+write+execute permission.
func NewArena(size int) (*Arena, error) {
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE|unix.PROT_EXEC, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, err
	}
	return &Arena{mem: mem}, nil
}

// Close unmaps the arena's memory.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mem == nil {
		return nil
	}
	err := unix.Munmap(a.mem)
	a.mem = nil
	return err
}

// Reset rewinds the cursor to the start, discarding every block
// previously emitted into the arena. Callers must not keep using
// CodePtr slices from before a Reset.
func (a *Arena) Reset() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursor = 0
	return nil
}

// Alloc bump-allocates n bytes from the arena and returns a slice
// into it for the caller to fill with machine code.
func (a *Arena) Alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cursor+n > len(a.mem) {
		return nil, ErrArenaFull
	}
	buf := a.mem[a.cursor : a.cursor+n]
	a.cursor += n
	return buf, nil
}
