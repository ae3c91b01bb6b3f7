/*
mips64vm control-plane packets between the console/CLI and the core.

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

// Package master carries control-plane requests from the debug
// console / CLI goroutine into the CPU thread's dispatch loop, and
// periodic ticks from the timer goroutine into the same loop.
package master

// Msg identifies the kind of control-plane packet.
type Msg int

const (
	Start      Msg = iota // begin running the dispatch loop
	Stop                  // halt the dispatch loop
	Step                  // single-step one instruction, then pause
	TimerTick             // timer goroutine's periodic tick
	LoadRaw               // load a raw image at a physical address
	LoadELF               // load an ELF image
	Breakpoint            // add/remove a breakpoint
)

// Packet is one control-plane message posted to the CPU's master
// channel.
type Packet struct {
	Msg     Msg
	Addr    uint64 // physical address for LoadRaw, guest vaddr for Breakpoint
	Data    []byte // image bytes for LoadRaw/LoadELF
	Remove  bool   // Breakpoint: true to remove rather than add
}
