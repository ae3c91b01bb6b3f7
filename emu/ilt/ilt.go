/*
	mips64vm Instruction Lookup Table.

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

// Package ilt decodes a 32-bit MIPS64 instruction word to a Kind in
// O(1) expected time. It is the one place both the interpreter and
// the JIT ask "what instruction is this", so the two execution modes
// can never disagree about decode.
//
// Decode is a switch on the primary opcode, with a second switch for
// the SPECIAL (funct), REGIMM (rt) and COP0 (rs/funct) groups, since
// those opcodes need a secondary field that the primary opcode alone
// cannot express.
package ilt

import "github.com/rcornwell/mips64vm/emu/mips64"

// Kind identifies a decoded instruction for dispatch purposes. The
// interpreter and the JIT each keep their own Kind-indexed handler
// table; this package only answers "which Kind is this word".
type Kind uint16

const (
	KindUnknown Kind = iota
	KindSLL
	KindSRL
	KindSRA
	KindSLLV
	KindSRLV
	KindSRAV
	KindJR
	KindJALR
	KindMOVZ
	KindMOVN
	KindSYSCALL
	KindBREAK
	KindSYNC
	KindMFHI
	KindMTHI
	KindMFLO
	KindMTLO
	KindDSLLV
	KindDSRLV
	KindDSRAV
	KindMULT
	KindMULTU
	KindDIV
	KindDIVU
	KindDMULT
	KindDMULTU
	KindDDIV
	KindDDIVU
	KindADD
	KindADDU
	KindSUB
	KindSUBU
	KindAND
	KindOR
	KindXOR
	KindNOR
	KindSLT
	KindSLTU
	KindDADD
	KindDADDU
	KindDSUB
	KindDSUBU
	KindDSLL
	KindDSRL
	KindDSRA
	KindDSLL32
	KindDSRL32
	KindDSRA32
	KindBLTZ
	KindBGEZ
	KindBLTZL
	KindBGEZL
	KindBLTZAL
	KindBGEZAL
	KindJ
	KindJAL
	KindBEQ
	KindBNE
	KindBLEZ
	KindBGTZ
	KindADDI
	KindADDIU
	KindSLTI
	KindSLTIU
	KindANDI
	KindORI
	KindXORI
	KindLUI
	KindMFC0
	KindDMFC0
	KindMTC0
	KindDMTC0
	KindTLBR
	KindTLBWI
	KindTLBWR
	KindTLBP
	KindERET
	KindBEQL
	KindBNEL
	KindBLEZL
	KindBGTZL
	KindDADDI
	KindDADDIU
	KindLDL
	KindLDR
	KindLB
	KindLH
	KindLWL
	KindLW
	KindLBU
	KindLHU
	KindLWR
	KindLWU
	KindSB
	KindSH
	KindSWL
	KindSW
	KindSDL
	KindSDR
	KindSWR
	KindCACHE
	KindLL
	KindLWC1
	KindLLD
	KindLDC1
	KindLD
	KindSC
	KindSWC1
	KindSCD
	KindSDC1
	KindSD
)

// Lookup returns the Kind for a raw instruction word, or KindUnknown
// when no case matches. Each primary/SPECIAL/REGIMM/COP0 case maps to
// exactly one Kind, so no two cases overlap; the virtual-instruction
// synonyms handled by Mnemonic below execute identically to their
// general form, so Lookup does not distinguish them.
func Lookup(word uint32) Kind {
	d := mips64.DecodeWord(word)
	switch d.Opcode {
	case mips64.OpSPECIAL:
		return lookupSpecial(d)
	case mips64.OpREGIMM:
		return lookupRegimm(d)
	case mips64.OpCOP0:
		return lookupCop0(d)
	case mips64.OpJ:
		return KindJ
	case mips64.OpJAL:
		return KindJAL
	case mips64.OpBEQ:
		return KindBEQ
	case mips64.OpBNE:
		return KindBNE
	case mips64.OpBLEZ:
		return KindBLEZ
	case mips64.OpBGTZ:
		return KindBGTZ
	case mips64.OpADDI:
		return KindADDI
	case mips64.OpADDIU:
		return KindADDIU
	case mips64.OpSLTI:
		return KindSLTI
	case mips64.OpSLTIU:
		return KindSLTIU
	case mips64.OpANDI:
		return KindANDI
	case mips64.OpORI:
		return KindORI
	case mips64.OpXORI:
		return KindXORI
	case mips64.OpLUI:
		return KindLUI
	case mips64.OpBEQL:
		return KindBEQL
	case mips64.OpBNEL:
		return KindBNEL
	case mips64.OpBLEZL:
		return KindBLEZL
	case mips64.OpBGTZL:
		return KindBGTZL
	case mips64.OpDADDI:
		return KindDADDI
	case mips64.OpDADDIU:
		return KindDADDIU
	case mips64.OpLDL:
		return KindLDL
	case mips64.OpLDR:
		return KindLDR
	case mips64.OpLB:
		return KindLB
	case mips64.OpLH:
		return KindLH
	case mips64.OpLWL:
		return KindLWL
	case mips64.OpLW:
		return KindLW
	case mips64.OpLBU:
		return KindLBU
	case mips64.OpLHU:
		return KindLHU
	case mips64.OpLWR:
		return KindLWR
	case mips64.OpLWU:
		return KindLWU
	case mips64.OpSB:
		return KindSB
	case mips64.OpSH:
		return KindSH
	case mips64.OpSWL:
		return KindSWL
	case mips64.OpSW:
		return KindSW
	case mips64.OpSDL:
		return KindSDL
	case mips64.OpSDR:
		return KindSDR
	case mips64.OpSWR:
		return KindSWR
	case mips64.OpCACHE:
		return KindCACHE
	case mips64.OpLL:
		return KindLL
	case mips64.OpLWC1:
		return KindLWC1
	case mips64.OpLLD:
		return KindLLD
	case mips64.OpLDC1:
		return KindLDC1
	case mips64.OpLD:
		return KindLD
	case mips64.OpSC:
		return KindSC
	case mips64.OpSWC1:
		return KindSWC1
	case mips64.OpSCD:
		return KindSCD
	case mips64.OpSDC1:
		return KindSDC1
	case mips64.OpSD:
		return KindSD
	default:
		return KindUnknown
	}
}

func lookupSpecial(d mips64.Decode) Kind {
	switch d.Funct {
	case mips64.FnSLL:
		return KindSLL
	case mips64.FnSRL:
		return KindSRL
	case mips64.FnSRA:
		return KindSRA
	case mips64.FnSLLV:
		return KindSLLV
	case mips64.FnSRLV:
		return KindSRLV
	case mips64.FnSRAV:
		return KindSRAV
	case mips64.FnJR:
		return KindJR
	case mips64.FnJALR:
		return KindJALR
	case mips64.FnMOVZ:
		return KindMOVZ
	case mips64.FnMOVN:
		return KindMOVN
	case mips64.FnSYSCALL:
		return KindSYSCALL
	case mips64.FnBREAK:
		return KindBREAK
	case mips64.FnSYNC:
		return KindSYNC
	case mips64.FnMFHI:
		return KindMFHI
	case mips64.FnMTHI:
		return KindMTHI
	case mips64.FnMFLO:
		return KindMFLO
	case mips64.FnMTLO:
		return KindMTLO
	case mips64.FnDSLLV:
		return KindDSLLV
	case mips64.FnDSRLV:
		return KindDSRLV
	case mips64.FnDSRAV:
		return KindDSRAV
	case mips64.FnMULT:
		return KindMULT
	case mips64.FnMULTU:
		return KindMULTU
	case mips64.FnDIV:
		return KindDIV
	case mips64.FnDIVU:
		return KindDIVU
	case mips64.FnDMULT:
		return KindDMULT
	case mips64.FnDMULTU:
		return KindDMULTU
	case mips64.FnDDIV:
		return KindDDIV
	case mips64.FnDDIVU:
		return KindDDIVU
	case mips64.FnADD:
		return KindADD
	case mips64.FnADDU:
		return KindADDU
	case mips64.FnSUB:
		return KindSUB
	case mips64.FnSUBU:
		return KindSUBU
	case mips64.FnAND:
		return KindAND
	case mips64.FnOR:
		return KindOR
	case mips64.FnXOR:
		return KindXOR
	case mips64.FnNOR:
		return KindNOR
	case mips64.FnSLT:
		return KindSLT
	case mips64.FnSLTU:
		return KindSLTU
	case mips64.FnDADD:
		return KindDADD
	case mips64.FnDADDU:
		return KindDADDU
	case mips64.FnDSUB:
		return KindDSUB
	case mips64.FnDSUBU:
		return KindDSUBU
	case mips64.FnDSLL:
		return KindDSLL
	case mips64.FnDSRL:
		return KindDSRL
	case mips64.FnDSRA:
		return KindDSRA
	case mips64.FnDSLL32:
		return KindDSLL32
	case mips64.FnDSRL32:
		return KindDSRL32
	case mips64.FnDSRA32:
		return KindDSRA32
	default:
		return KindUnknown
	}
}

func lookupRegimm(d mips64.Decode) Kind {
	switch d.RT {
	case mips64.RtBLTZ:
		return KindBLTZ
	case mips64.RtBGEZ:
		return KindBGEZ
	case mips64.RtBLTZL:
		return KindBLTZL
	case mips64.RtBGEZL:
		return KindBGEZL
	case mips64.RtBLTZAL:
		return KindBLTZAL
	case mips64.RtBGEZAL:
		return KindBGEZAL
	default:
		return KindUnknown
	}
}

func lookupCop0(d mips64.Decode) Kind {
	switch d.RS {
	case mips64.CoRsMF:
		return KindMFC0
	case mips64.CoRsDMF:
		return KindDMFC0
	case mips64.CoRsMT:
		return KindMTC0
	case mips64.CoRsDMT:
		return KindDMTC0
	case mips64.CoRsCO:
		switch d.Funct {
		case mips64.CoFnTLBR:
			return KindTLBR
		case mips64.CoFnTLBWI:
			return KindTLBWI
		case mips64.CoFnTLBWR:
			return KindTLBWR
		case mips64.CoFnTLBP:
			return KindTLBP
		case mips64.CoFnERET:
			return KindERET
		default:
			return KindUnknown
		}
	default:
		return KindUnknown
	}
}

// IsBranch reports whether Kind is a branch or jump, or one of ERET,
// SYSCALL and BREAK, for delay-slot bookkeeping: these opcodes may not
// themselves occupy a delay slot.
func IsBranch(k Kind) bool {
	switch k {
	case KindBEQ, KindBNE, KindBLEZ, KindBGTZ, KindBEQL, KindBNEL, KindBLEZL, KindBGTZL,
		KindBLTZ, KindBGEZ, KindBLTZL, KindBGEZL, KindBLTZAL, KindBGEZAL,
		KindJ, KindJAL, KindJR, KindJALR, KindERET, KindSYSCALL, KindBREAK:
		return true
	default:
		return false
	}
}

// IsLikely reports whether a branch Kind is a "likely" variant whose
// delay slot is nullified when not taken.
func IsLikely(k Kind) bool {
	switch k {
	case KindBEQL, KindBNEL, KindBLEZL, KindBGTZL, KindBLTZL, KindBGEZL:
		return true
	default:
		return false
	}
}

// Mnemonic returns a disassembly-friendly name, recognizing the
// virtual-instruction synonyms the architecture defines (LI, MOVE, B,
// NOP, …) before falling back to the general form's name — these
// synonyms execute identically to their general form, so only the
// display name, not the dispatch Kind, distinguishes them.
func Mnemonic(word uint32) string {
	d := mips64.DecodeWord(word)
	k := Lookup(word)
	switch k {
	case KindADDIU:
		if d.RS == mips64.RegZero {
			return "LI"
		}
	case KindADDU:
		if d.RT == mips64.RegZero {
			return "MOVE"
		}
	case KindBEQ:
		if d.RS == mips64.RegZero && d.RT == mips64.RegZero {
			return "B"
		}
	case KindSLL:
		if word == 0 {
			return "NOP"
		}
	case KindOR:
		if d.RT == mips64.RegZero {
			return "MOVE"
		}
	}
	return kindNames[k]
}

var kindNames = map[Kind]string{
	KindUnknown: "???",
	KindSLL: "SLL", KindSRL: "SRL", KindSRA: "SRA",
	KindSLLV: "SLLV", KindSRLV: "SRLV", KindSRAV: "SRAV",
	KindJR: "JR", KindJALR: "JALR", KindMOVZ: "MOVZ", KindMOVN: "MOVN",
	KindSYSCALL: "SYSCALL", KindBREAK: "BREAK", KindSYNC: "SYNC",
	KindMFHI: "MFHI", KindMTHI: "MTHI", KindMFLO: "MFLO", KindMTLO: "MTLO",
	KindDSLLV: "DSLLV", KindDSRLV: "DSRLV", KindDSRAV: "DSRAV",
	KindMULT: "MULT", KindMULTU: "MULTU", KindDIV: "DIV", KindDIVU: "DIVU",
	KindDMULT: "DMULT", KindDMULTU: "DMULTU", KindDDIV: "DDIV", KindDDIVU: "DDIVU",
	KindADD: "ADD", KindADDU: "ADDU", KindSUB: "SUB", KindSUBU: "SUBU",
	KindAND: "AND", KindOR: "OR", KindXOR: "XOR", KindNOR: "NOR",
	KindSLT: "SLT", KindSLTU: "SLTU",
	KindDADD: "DADD", KindDADDU: "DADDU", KindDSUB: "DSUB", KindDSUBU: "DSUBU",
	KindDSLL: "DSLL", KindDSRL: "DSRL", KindDSRA: "DSRA",
	KindDSLL32: "DSLL32", KindDSRL32: "DSRL32", KindDSRA32: "DSRA32",
	KindBLTZ: "BLTZ", KindBGEZ: "BGEZ", KindBLTZL: "BLTZL", KindBGEZL: "BGEZL",
	KindBLTZAL: "BLTZAL", KindBGEZAL: "BGEZAL",
	KindJ: "J", KindJAL: "JAL",
	KindBEQ: "BEQ", KindBNE: "BNE", KindBLEZ: "BLEZ", KindBGTZ: "BGTZ",
	KindADDI: "ADDI", KindADDIU: "ADDIU", KindSLTI: "SLTI", KindSLTIU: "SLTIU",
	KindANDI: "ANDI", KindORI: "ORI", KindXORI: "XORI", KindLUI: "LUI",
	KindMFC0: "MFC0", KindDMFC0: "DMFC0", KindMTC0: "MTC0", KindDMTC0: "DMTC0",
	KindTLBR: "TLBR", KindTLBWI: "TLBWI", KindTLBWR: "TLBWR", KindTLBP: "TLBP", KindERET: "ERET",
	KindBEQL: "BEQL", KindBNEL: "BNEL", KindBLEZL: "BLEZL", KindBGTZL: "BGTZL",
	KindDADDI: "DADDI", KindDADDIU: "DADDIU", KindLDL: "LDL", KindLDR: "LDR",
	KindLB: "LB", KindLH: "LH", KindLWL: "LWL", KindLW: "LW", KindLBU: "LBU", KindLHU: "LHU",
	KindLWR: "LWR", KindLWU: "LWU",
	KindSB: "SB", KindSH: "SH", KindSWL: "SWL", KindSW: "SW",
	KindSDL: "SDL", KindSDR: "SDR", KindSWR: "SWR", KindCACHE: "CACHE",
	KindLL: "LL", KindLWC1: "LWC1", KindLLD: "LLD", KindLDC1: "LDC1", KindLD: "LD",
	KindSC: "SC", KindSWC1: "SWC1", KindSCD: "SCD", KindSDC1: "SDC1", KindSD: "SD",
}
