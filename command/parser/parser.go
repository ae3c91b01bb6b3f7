/*
mips64vm debug console command parser.

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

// Package parser implements the interactive debug console's command
// verbs (step, continue, regs, tlb, break, mem, save, restore, quit)
// through a dispatch table keyed by verb name, with a
// ProcessCommand(line) (quit bool, err error) contract the caller's
// read loop drives until quit is true.
package parser

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rcornwell/mips64vm/emu/core"
	"github.com/rcornwell/mips64vm/emu/master"
	"github.com/rcornwell/mips64vm/emu/mips64"
	"github.com/rcornwell/mips64vm/util/hex"
)

type cmdFunc func(c *core.Core, args []string) (quit bool, err error)

var commands = map[string]cmdFunc{
	"step":     cmdStep,
	"continue": cmdContinue,
	"regs":     cmdRegs,
	"tlb":      cmdTLB,
	"break":    cmdBreak,
	"mem":      cmdMem,
	"save":     cmdSave,
	"restore":  cmdRestore,
	"quit":     cmdQuit,
}

// CompleteCmd returns every registered verb that is a prefix of line,
// for the console's tab-completion hook.
func CompleteCmd(line string) []string {
	var out []string
	for name := range commands {
		if strings.HasPrefix(name, line) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ProcessCommand parses one console line and runs the matching verb.
func ProcessCommand(line string, c *core.Core) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	fn, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return false, fmt.Errorf("unknown command: %s", fields[0])
	}
	return fn(c, fields[1:])
}

func cmdStep(c *core.Core, _ []string) (bool, error) {
	c.StepOne()
	return false, nil
}

func cmdContinue(c *core.Core, _ []string) (bool, error) {
	c.Run()
	return false, nil
}

func cmdRegs(c *core.Core, _ []string) (bool, error) {
	var b strings.Builder
	b.WriteString("PC  ")
	hex.FormatDword(&b, []uint64{c.CPU.PC})
	b.WriteString("\n")
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "R%-2d ", i)
		hex.FormatDword(&b, c.CPU.GPR[i:i+4])
		b.WriteString("\n")
	}
	b.WriteString("HI  ")
	hex.FormatDword(&b, []uint64{c.CPU.HI})
	b.WriteString("LO  ")
	hex.FormatDword(&b, []uint64{c.CPU.LO})
	b.WriteString("\n")
	fmt.Fprintf(&b, "Status %016x Cause %016x EPC %016x\n",
		c.CPU.CP0[mips64.CP0Status], c.CPU.CP0[mips64.CP0Cause], c.CPU.CP0[mips64.CP0EPC])
	fmt.Println(b.String())
	return false, nil
}

func cmdTLB(c *core.Core, args []string) (bool, error) {
	if len(args) == 0 {
		for i, e := range c.CPU.TLB {
			fmt.Printf("[%02d] mask=%#x hi=%#x lo0=%#x lo1=%#x\n", i, e.Mask, e.Hi, e.Lo0, e.Lo1)
		}
		return false, nil
	}
	idx, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil || int(idx) >= len(c.CPU.TLB) {
		return false, fmt.Errorf("invalid TLB index: %s", args[0])
	}
	e := c.CPU.TLB[idx]
	fmt.Printf("[%02d] mask=%#x hi=%#x lo0=%#x lo1=%#x\n", idx, e.Mask, e.Hi, e.Lo0, e.Lo1)
	return false, nil
}

func cmdBreak(c *core.Core, args []string) (bool, error) {
	if len(args) == 0 {
		for _, addr := range c.CPU.Breakpoints {
			fmt.Printf("%#016x\n", addr)
		}
		return false, nil
	}
	remove := false
	addrArg := args[0]
	if strings.HasPrefix(addrArg, "-") {
		remove = true
		addrArg = addrArg[1:]
	}
	addr, err := strconv.ParseUint(addrArg, 0, 64)
	if err != nil {
		return false, fmt.Errorf("invalid address: %s", args[0])
	}
	c.Post(master.Packet{Msg: master.Breakpoint, Addr: addr, Remove: remove})
	return false, nil
}

func cmdMem(c *core.Core, args []string) (bool, error) {
	if len(args) < 1 {
		return false, fmt.Errorf("mem requires an address")
	}
	addr, err := strconv.ParseUint(args[0], 0, 64)
	if err != nil {
		return false, fmt.Errorf("invalid address: %s", args[0])
	}
	count := 1
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return false, fmt.Errorf("invalid count: %s", args[1])
		}
		count = n
	}
	for i := 0; i < count; i++ {
		va := addr + uint64(i)*8
		e, miss := c.MTS.Translate(va, false)
		if miss != 0 || e == nil || !e.IsRAM() {
			fmt.Printf("%#016x  <unmapped>\n", va)
			continue
		}
		fmt.Printf("%#016x  %#016x\n", va, e.ReadRAMFast(va, 8))
	}
	return false, nil
}

func cmdSave(c *core.Core, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("save requires a file name")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return false, err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "PC %016x\n", c.CPU.PC)
	for i, v := range c.CPU.GPR {
		fmt.Fprintf(w, "R%d %016x\n", i, v)
	}
	fmt.Fprintf(w, "HI %016x\n", c.CPU.HI)
	fmt.Fprintf(w, "LO %016x\n", c.CPU.LO)
	return false, w.Flush()
}

func cmdRestore(c *core.Core, args []string) (bool, error) {
	if len(args) != 1 {
		return false, fmt.Errorf("restore requires a file name")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var name string
		var value uint64
		if _, err := fmt.Sscanf(scanner.Text(), "%s %x", &name, &value); err != nil {
			continue
		}
		switch {
		case name == "PC":
			c.CPU.PC = value
		case name == "HI":
			c.CPU.HI = value
		case name == "LO":
			c.CPU.LO = value
		case strings.HasPrefix(name, "R"):
			idx, err := strconv.Atoi(name[1:])
			if err == nil && idx >= 0 && idx < 32 {
				c.CPU.GPR[idx] = value
			}
		}
	}
	return false, scanner.Err()
}

func cmdQuit(_ *core.Core, _ []string) (bool, error) {
	return true, nil
}
