/*
mips64vm Memory-mapped I/O device interface.

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
package device

// Device is the external collaborator interface for memory-mapped
// I/O: a physical-memory map consumer that may read or write CPU
// registers (e.g. to raise an IRQ line) but must not hold locks across
// the call, since the calling CPU thread owns no lock of its own
// around MTS dispatch.
type Device interface {
	// Name identifies the device for logging and debug commands.
	Name() string

	// PhysRead returns size bytes (1, 2, 4, or 8) read from offset
	// bytes into the device's window.
	PhysRead(offset uint64, size int) uint64

	// PhysWrite stores size bytes (1, 2, 4, or 8) at offset bytes
	// into the device's window.
	PhysWrite(offset uint64, size int, value uint64)

	// Shutdown releases any resources held by the device.
	Shutdown()
}

// NoDevice is the sentinel device identifier meaning "no device
// mapped here".
const NoDevice = ^uint32(0)
