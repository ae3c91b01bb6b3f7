/*
mips64vm core dispatch loop.

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

// Package core runs one guest CPU's dispatch loop on its own
// goroutine: the loop repeatedly steps the interpreter (or, when
// enabled and available, asks the JIT to run a translated block) and
// drains control-plane packets between instructions, one goroutine
// per CPU.
package core

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/interp"
	"github.com/rcornwell/mips64vm/emu/master"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/emu/mts"
)

// Runner executes one translated block and reports how many guest
// instructions it ran; it is satisfied by *jit.Manager when the JIT is
// enabled on amd64, and by jit/none's Manager, which always declines,
// otherwise.
type Runner interface {
	RunBlock(cpu *mips64.CPU) (instrs int, err error)
}

// Core owns one CPU, its MTS cache, and the interpreter/JIT bound to
// it, and runs them on a dedicated goroutine.
type Core struct {
	wg      sync.WaitGroup
	done    chan struct{}
	running bool
	stepOne bool

	master chan master.Packet

	CPU    *mips64.CPU
	MTS    *mts.MTS
	Interp *interp.Interp
	JIT    Runner // nil disables translation; every block falls to Interp.Step
	ram    *memory.RAM

	Log *slog.Logger
}

// New builds a Core around a freshly constructed CPU, wiring its MTS
// cache and interpreter.
func New(log *slog.Logger, masterCh chan master.Packet) *Core {
	cpu := mips64.New()
	m := mts.New(cpu)
	ip := interp.New(cpu, m, log)
	return &Core{
		done:   make(chan struct{}),
		master: masterCh,
		CPU:    cpu,
		MTS:    m,
		Interp: ip,
		Log:    log,
	}
}

// AddRAM forwards to the MTS cache's physical-region table and keeps
// a reference for LoadRaw/LoadELF control-plane requests.
func (c *Core) AddRAM(ram *memory.RAM) {
	c.MTS.AddRAM(ram)
	c.ram = ram
}

// invalidator is satisfied by *jit.Manager; emu/jit/none's Manager
// does not implement it, since it never caches anything a guest store
// could invalidate.
type invalidator interface {
	InvalidatePage(physPage uintptr)
}

// SetJIT installs r as the block runner and, if r also implements
// InvalidatePage, wires Interp's store path to it: a guest store that
// overlaps a translated page drops exactly that page's cached blocks
// before the next fetch can observe stale code.
func (c *Core) SetJIT(r Runner) {
	c.JIT = r
	if inv, ok := r.(invalidator); ok {
		c.Interp.OnInvalidate = inv.InvalidatePage
	} else {
		c.Interp.OnInvalidate = nil
	}
}

// Start runs the dispatch loop until Stop is called or the channel is
// closed. It is meant to run on its own goroutine.
func (c *Core) Start() {
	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case <-c.done:
			if c.Log != nil {
				c.Log.Info("core shutdown")
			}
			return
		case packet, ok := <-c.master:
			if !ok {
				return
			}
			c.processPacket(packet)
		default:
		}

		if !c.running && !c.stepOne {
			// Idle: block on the next control-plane packet instead of
			// spinning a poll loop.
			select {
			case <-c.done:
				return
			case packet, ok := <-c.master:
				if !ok {
					return
				}
				c.processPacket(packet)
			}
			continue
		}

		c.runOnce()

		if c.stepOne {
			c.stepOne = false
			c.running = false
		}
	}
}

// runOnce advances the CPU by one translated block (if a JIT is
// wired) or, failing that, exactly one interpreted instruction.
func (c *Core) runOnce() {
	if c.CPU.State != mips64.Running {
		c.running = false
		return
	}
	if c.JIT != nil {
		if _, err := c.JIT.RunBlock(c.CPU); err == nil {
			return
		}
	}
	if err := c.Interp.Step(); err != nil && c.Log != nil {
		c.Log.Error("step failed", "err", err)
	}
}

// Post delivers one control-plane packet to the dispatch loop. It is
// the debug console's only way to reach a running Core: every
// interaction goes through the master channel rather than touching
// CPU state directly.
func (c *Core) Post(packet master.Packet) {
	c.master <- packet
}

// Run requests the dispatch loop begin free-running execution.
func (c *Core) Run() { c.Post(master.Packet{Msg: master.Start}) }

// Halt requests the dispatch loop suspend execution.
func (c *Core) Halt() { c.Post(master.Packet{Msg: master.Stop}) }

// StepOne requests exactly one instruction (or translated block) run.
func (c *Core) StepOne() { c.Post(master.Packet{Msg: master.Step}) }

// Stop signals the dispatch loop to exit and waits up to one second
// for it to do so.
func (c *Core) Stop() {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		if c.Log != nil {
			c.Log.Warn("timed out waiting for core to stop")
		}
	}
}

// processPacket applies one control-plane request from the debug
// console or timer goroutine.
func (c *Core) processPacket(packet master.Packet) {
	switch packet.Msg {
	case master.Start:
		c.running = true
	case master.Stop:
		c.running = false
	case master.Step:
		c.stepOne = true
	case master.TimerTick:
		c.onTimerTick()
	case master.LoadRaw:
		c.onLoadRaw(packet.Addr, packet.Data)
	case master.LoadELF:
		c.onLoadELF(packet.Data)
	case master.Breakpoint:
		c.onBreakpoint(packet.Addr, packet.Remove)
	}
}

// onTimerTick advances the virtual Count/Compare pair by one tick and
// raises the timer interrupt line (IP7) on the narrow-window equality
// cp0.TickTimer checks.
func (c *Core) onTimerTick() {
	if cp0.TickTimer(c.CPU) {
		c.CPU.RaiseIRQ(7)
	}
}

func (c *Core) onLoadRaw(addr uint64, data []byte) {
	if c.ram == nil {
		return
	}
	if err := c.ram.LoadRaw(addr, data); err != nil && c.Log != nil {
		c.Log.Error("load raw image failed", "err", err)
	}
}

func (c *Core) onLoadELF(image []byte) {
	if c.ram == nil {
		return
	}
	entry, err := c.ram.LoadELF(image)
	if err != nil {
		if c.Log != nil {
			c.Log.Error("load ELF image failed", "err", err)
		}
		return
	}
	c.CPU.PC = entry
}

func (c *Core) onBreakpoint(addr uint64, remove bool) {
	bps := c.CPU.Breakpoints
	if remove {
		out := bps[:0]
		for _, b := range bps {
			if b != addr {
				out = append(out, b)
			}
		}
		c.CPU.Breakpoints = out
		return
	}
	c.CPU.Breakpoints = append(bps, addr)
}
