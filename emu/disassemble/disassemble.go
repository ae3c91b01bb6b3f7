/*
mips64vm disassembler.

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

// Package disassembler formats a decoded MIPS64 instruction word as
// text for the debug console's memory dump. Rather than a second
// opcode-to-format table, it keys a switch on ilt.Kind's operand
// shape directly, since MIPS64's fixed-width encoding makes the
// format determinable from the decoded kind alone.
package disassembler

import (
	"fmt"

	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

type operandShape int

const (
	shapeNone operandShape = iota
	shapeRRR               // rd, rs, rt
	shapeRRShift           // rd, rt, shamt
	shapeRRVar             // rd, rt, rs  (variable shift: shift amount in rs)
	shapeRR                // rd, rs      (MFHI/MTLO-style single operand skipped by caller)
	shapeRTImm             // rt, rs, imm
	shapeLUI               // rt, imm
	shapeBranch2           // rs, rt, offset
	shapeBranch1           // rs, offset
	shapeJump              // target
	shapeJR                // rs
	shapeJALR              // rd, rs
	shapeMemRef            // rt, offset(rs)
	shapeCP0               // rt, rd (cp0 reg)
)

var shapeOf = map[ilt.Kind]operandShape{
	ilt.KindADD: shapeRRR, ilt.KindADDU: shapeRRR, ilt.KindSUB: shapeRRR, ilt.KindSUBU: shapeRRR,
	ilt.KindAND: shapeRRR, ilt.KindOR: shapeRRR, ilt.KindXOR: shapeRRR, ilt.KindNOR: shapeRRR,
	ilt.KindSLT: shapeRRR, ilt.KindSLTU: shapeRRR,
	ilt.KindDADD: shapeRRR, ilt.KindDADDU: shapeRRR, ilt.KindDSUB: shapeRRR, ilt.KindDSUBU: shapeRRR,
	ilt.KindMOVZ: shapeRRR, ilt.KindMOVN: shapeRRR,

	ilt.KindSLL: shapeRRShift, ilt.KindSRL: shapeRRShift, ilt.KindSRA: shapeRRShift,
	ilt.KindDSLL: shapeRRShift, ilt.KindDSRL: shapeRRShift, ilt.KindDSRA: shapeRRShift,
	ilt.KindDSLL32: shapeRRShift, ilt.KindDSRL32: shapeRRShift, ilt.KindDSRA32: shapeRRShift,

	ilt.KindSLLV: shapeRRVar, ilt.KindSRLV: shapeRRVar, ilt.KindSRAV: shapeRRVar,
	ilt.KindDSLLV: shapeRRVar, ilt.KindDSRLV: shapeRRVar, ilt.KindDSRAV: shapeRRVar,

	ilt.KindADDI: shapeRTImm, ilt.KindADDIU: shapeRTImm, ilt.KindSLTI: shapeRTImm, ilt.KindSLTIU: shapeRTImm,
	ilt.KindANDI: shapeRTImm, ilt.KindORI: shapeRTImm, ilt.KindXORI: shapeRTImm,
	ilt.KindDADDI: shapeRTImm, ilt.KindDADDIU: shapeRTImm,

	ilt.KindLUI: shapeLUI,

	ilt.KindBEQ: shapeBranch2, ilt.KindBNE: shapeBranch2, ilt.KindBEQL: shapeBranch2, ilt.KindBNEL: shapeBranch2,

	ilt.KindBLEZ: shapeBranch1, ilt.KindBGTZ: shapeBranch1, ilt.KindBLEZL: shapeBranch1, ilt.KindBGTZL: shapeBranch1,
	ilt.KindBLTZ: shapeBranch1, ilt.KindBGEZ: shapeBranch1, ilt.KindBLTZL: shapeBranch1, ilt.KindBGEZL: shapeBranch1,
	ilt.KindBLTZAL: shapeBranch1, ilt.KindBGEZAL: shapeBranch1,

	ilt.KindJ: shapeJump, ilt.KindJAL: shapeJump,
	ilt.KindJR: shapeJR, ilt.KindJALR: shapeJALR,

	ilt.KindLB: shapeMemRef, ilt.KindLBU: shapeMemRef, ilt.KindLH: shapeMemRef, ilt.KindLHU: shapeMemRef,
	ilt.KindLW: shapeMemRef, ilt.KindLWU: shapeMemRef, ilt.KindLD: shapeMemRef,
	ilt.KindLWL: shapeMemRef, ilt.KindLWR: shapeMemRef, ilt.KindLDL: shapeMemRef, ilt.KindLDR: shapeMemRef,
	ilt.KindSB: shapeMemRef, ilt.KindSH: shapeMemRef, ilt.KindSW: shapeMemRef, ilt.KindSD: shapeMemRef,
	ilt.KindSWL: shapeMemRef, ilt.KindSWR: shapeMemRef, ilt.KindSDL: shapeMemRef, ilt.KindSDR: shapeMemRef,
	ilt.KindLL: shapeMemRef, ilt.KindLLD: shapeMemRef, ilt.KindSC: shapeMemRef, ilt.KindSCD: shapeMemRef,
	ilt.KindLWC1: shapeMemRef, ilt.KindSWC1: shapeMemRef, ilt.KindLDC1: shapeMemRef, ilt.KindSDC1: shapeMemRef,
	ilt.KindCACHE: shapeMemRef,

	ilt.KindMFC0: shapeCP0, ilt.KindDMFC0: shapeCP0, ilt.KindMTC0: shapeCP0, ilt.KindDMTC0: shapeCP0,

	ilt.KindMFHI: shapeRR, ilt.KindMFLO: shapeRR,
	ilt.KindMTHI: shapeJR, ilt.KindMTLO: shapeJR,
	ilt.KindMULT: shapeBranch2, ilt.KindMULTU: shapeBranch2, ilt.KindDIV: shapeBranch2, ilt.KindDIVU: shapeBranch2,
	ilt.KindDMULT: shapeBranch2, ilt.KindDMULTU: shapeBranch2, ilt.KindDDIV: shapeBranch2, ilt.KindDDIVU: shapeBranch2,
}

func reg(n uint8) string { return fmt.Sprintf("$%d", n) }

// Disassemble formats one instruction word as "MNEMONIC operands",
// padding the mnemonic to a fixed column for aligned listings.
func Disassemble(word uint32) string {
	mnemonic := ilt.Mnemonic(word)
	d := mips64.DecodeWord(word)
	k := ilt.Lookup(word)

	name := mnemonic + "        "
	name = name[:8]

	switch shapeOf[k] {
	case shapeRRR:
		return name + reg(d.RD) + "," + reg(d.RS) + "," + reg(d.RT)
	case shapeRRShift:
		return name + reg(d.RD) + "," + reg(d.RT) + "," + fmt.Sprintf("%d", d.Shamt)
	case shapeRRVar:
		return name + reg(d.RD) + "," + reg(d.RT) + "," + reg(d.RS)
	case shapeRR:
		return name + reg(d.RD)
	case shapeRTImm:
		return name + reg(d.RT) + "," + reg(d.RS) + "," + fmt.Sprintf("%d", int64(mips64.SignExtend16(d.Imm16)))
	case shapeLUI:
		return name + reg(d.RT) + "," + fmt.Sprintf("0x%x", d.Imm16)
	case shapeBranch2:
		return name + reg(d.RS) + "," + reg(d.RT) + "," + fmt.Sprintf("%d", int64(mips64.SignExtend16(d.Imm16))<<2)
	case shapeBranch1:
		return name + reg(d.RS) + "," + fmt.Sprintf("%d", int64(mips64.SignExtend16(d.Imm16))<<2)
	case shapeJump:
		return name + fmt.Sprintf("0x%x", uint64(d.Target)<<2)
	case shapeJR:
		return name + reg(d.RS)
	case shapeJALR:
		return name + reg(d.RD) + "," + reg(d.RS)
	case shapeMemRef:
		return name + reg(d.RT) + "," + fmt.Sprintf("%d(%s)", int64(mips64.SignExtend16(d.Imm16)), reg(d.RS))
	case shapeCP0:
		return name + reg(d.RT) + "," + fmt.Sprintf("$%d", d.RD)
	default:
		return name
	}
}
