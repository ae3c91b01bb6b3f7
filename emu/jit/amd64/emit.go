/*
mips64vm amd64 JIT backend.

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

// Package amd64 is the host-native code generator for a bounded
// subset of the guest ISA: register-register and register-immediate
// integer ALU ops (this file), the load/store fast path (emit_mem.go)
// and branch/jump-with-delay-slot sequences (emit_branch.go). CP0
// access and anything outside that subset ends the block and falls
// back to the interpreter. Each emittable kind appends bytes to a
// growable buffer through a small set of per-opcode helpers rather
// than a dispatch table of Go closures.
//
// Only amd64 needs to know any of this; every other host architecture
// runs the emu/jit/none fallback instead.
package amd64

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// reg is a subset of the amd64 general-purpose register encoding
// (rax..rdi, no REX.B extension needed since the emitter never
// touches r8-r15).
type reg byte

const (
	rax reg = 0
	rcx reg = 1
	rdx reg = 2
	rbx reg = 3
	rsp reg = 4
	rbp reg = 5
	rsi reg = 6
	rdi reg = 7
)

// cpuReg is the fixed host register holding *mips64.CPU for the
// lifetime of a translated block. The trampoline loads it before
// CALLing into the arena.
const cpuReg = rdi

// isALUEmittable reports whether a Kind is one of the plain
// register-register/register-immediate ALU ops, the only kinds this
// package is willing to inline into a branch's delay slot: a delay
// slot with its own internal bailout (a memory-fast-path miss) would
// overwrite the branch's staged PC before the branch gets to commit
// it, so loads and stores never go in a delay slot.
func isALUEmittable(k ilt.Kind) bool {
	switch k {
	case ilt.KindADD, ilt.KindADDU, ilt.KindSUB, ilt.KindSUBU,
		ilt.KindAND, ilt.KindOR, ilt.KindXOR, ilt.KindNOR,
		ilt.KindADDI, ilt.KindADDIU:
		return true
	default:
		return false
	}
}

// Emittable reports whether a Kind is one the emitter knows how to
// translate as an ordinary, block-continuing instruction: the ALU
// subset plus the load/store fast path. Branches are handled
// separately by EmittableBranch since they always end a block. The
// TCB builder calls this once per instruction and ends the block on
// the first false.
func Emittable(k ilt.Kind) bool {
	if isALUEmittable(k) {
		return true
	}
	return isMemEmittable(k)
}

// Emit appends the host machine code for one guest instruction to
// buf and returns the extended slice. d is the already-decoded
// instruction, pc its guest vaddr (needed by the memory fast path's
// miss bailout, which must resume the interpreter at this exact
// instruction); k must satisfy Emittable(k).
func Emit(buf []byte, k ilt.Kind, d mips64.Decode, pc uint64) []byte {
	switch k {
	case ilt.KindADD, ilt.KindADDU:
		return emitRRR(buf, 0x01, d.RD, d.RS, d.RT)
	case ilt.KindSUB, ilt.KindSUBU:
		return emitRRR(buf, 0x29, d.RD, d.RS, d.RT)
	case ilt.KindAND:
		return emitRRR(buf, 0x21, d.RD, d.RS, d.RT)
	case ilt.KindOR:
		return emitRRR(buf, 0x09, d.RD, d.RS, d.RT)
	case ilt.KindXOR:
		return emitRRR(buf, 0x31, d.RD, d.RS, d.RT)
	case ilt.KindNOR:
		// NOR rd, rs, rt == rd = ^(rs | rt).
		buf = emitLoadGPR(buf, rax, d.RS)
		buf = emitLoadGPR(buf, rcx, d.RT)
		buf = emitALURegReg(buf, 0x09, rax, rcx)
		buf = emitNot(buf, rax)
		return emitStoreGPR(buf, d.RD, rax)
	case ilt.KindADDI, ilt.KindADDIU:
		imm := int32(int16(d.Imm16))
		buf = emitLoadGPR(buf, rax, d.RS)
		buf = emitAddImm32(buf, rax, imm)
		return emitStoreGPR(buf, d.RT, rax)
	default:
		if isMemEmittable(k) {
			return emitMem(buf, k, d, pc)
		}
		return buf
	}
}

// emitRRR emits `rd = rs <alu> rt` for a three-register ALU op whose
// amd64 opcode is the "r/m64, r64" destination-in-r/m form (ADD=0x01,
// SUB=0x29, AND=0x21, OR=0x09, XOR=0x31).
func emitRRR(buf []byte, op byte, rd, rs, rt uint8) []byte {
	buf = emitLoadGPR(buf, rax, rs)
	buf = emitLoadGPR(buf, rcx, rt)
	buf = emitALURegReg(buf, op, rax, rcx)
	return emitStoreGPR(buf, rd, rax)
}

// emitLoadGPR emits `MOV dst, [cpuReg+OffsetGPR(n)]`.
func emitLoadGPR(buf []byte, dst reg, n uint8) []byte {
	return emitMovRegMem(buf, dst, cpuReg, mips64.OffsetGPR(n))
}

// emitStoreGPR emits `MOV [cpuReg+OffsetGPR(n)], src`, or nothing for
// the hardwired-zero register: writes to r0 are discarded at emission
// time instead of at runtime.
func emitStoreGPR(buf []byte, n uint8, src reg) []byte {
	if n == mips64.RegZero {
		return buf
	}
	return emitMovMemReg(buf, cpuReg, mips64.OffsetGPR(n), src)
}

// emitStoreGPRImm32 emits `MOV [cpuReg+OffsetGPR(n)], imm32`
// (sign-extended), eliding the write for r0 exactly like
// emitStoreGPR.
func emitStoreGPRImm32(buf []byte, n uint8, imm int32) []byte {
	if n == mips64.RegZero {
		return buf
	}
	return emitMovMemImm32(buf, cpuReg, mips64.OffsetGPR(n), imm)
}

// emitMovRegMem emits `MOV r64, [base+disp32]` (opcode 0x8B).
func emitMovRegMem(buf []byte, dst, base reg, disp int32) []byte {
	rex := byte(0x48) | (byte(dst)>>3)<<2 | byte(base)>>3
	modrm := byte(0x80) | (byte(dst)&7)<<3 | (byte(base) & 7)
	buf = append(buf, rex, 0x8B, modrm)
	return appendImm32(buf, disp)
}

// emitMovMemReg emits `MOV [base+disp32], r64` (opcode 0x89).
func emitMovMemReg(buf []byte, base reg, disp int32, src reg) []byte {
	rex := byte(0x48) | (byte(src)>>3)<<2 | byte(base)>>3
	modrm := byte(0x80) | (byte(src)&7)<<3 | (byte(base) & 7)
	buf = append(buf, rex, 0x89, modrm)
	return appendImm32(buf, disp)
}

// emitALURegReg emits `<op> dst, src` using the "r/m64, r64" encoding
// shared by ADD/SUB/AND/OR/XOR: dst is the r/m operand (mod=11), src
// is the reg-field operand.
func emitALURegReg(buf []byte, op byte, dst, src reg) []byte {
	rex := byte(0x48) | (byte(src)>>3)<<2 | byte(dst)>>3
	modrm := byte(0xC0) | (byte(src)&7)<<3 | (byte(dst) & 7)
	return append(buf, rex, op, modrm)
}

// emitNot emits `NOT dst` (opcode 0xF7 /2).
func emitNot(buf []byte, dst reg) []byte {
	rex := byte(0x48) | byte(dst)>>3
	modrm := byte(0xC0) | 2<<3 | (byte(dst) & 7)
	return append(buf, rex, 0xF7, modrm)
}

// emitAddImm32 emits `ADD dst, imm32` (opcode 0x81 /0 id), sign
// extended to 64 bits, matching guest ADDIU's sign-extended
// 16-bit-immediate-in-a-64-bit-register semantics.
func emitAddImm32(buf []byte, dst reg, imm int32) []byte {
	rex := byte(0x48) | byte(dst)>>3
	modrm := byte(0xC0) | (byte(dst) & 7)
	buf = append(buf, rex, 0x81, modrm)
	return appendImm32(buf, imm)
}

// emitMovRegReg emits `MOV dst, src` (opcode 0x89, register-direct).
func emitMovRegReg(buf []byte, dst, src reg) []byte {
	return emitALURegReg(buf, 0x89, dst, src)
}

// emitCmpRegReg emits `CMP a, b` (opcode 0x39, register-direct),
// setting flags from a-b without storing the result.
func emitCmpRegReg(buf []byte, a, b reg) []byte {
	return emitALURegReg(buf, 0x39, a, b)
}

// emitGroup1Imm32 emits a group-1 `<op> dst, imm32` (opcode 0x81,
// sign-extended to 64 bits), where sub picks the operation out of the
// ModRM reg field: 0=ADD, 4=AND, 7=CMP.
func emitGroup1Imm32(buf []byte, sub byte, dst reg, imm int32) []byte {
	rex := byte(0x48) | byte(dst)>>3
	modrm := byte(0xC0) | sub<<3 | (byte(dst) & 7)
	buf = append(buf, rex, 0x81, modrm)
	return appendImm32(buf, imm)
}

func emitAndImm32(buf []byte, dst reg, imm int32) []byte {
	return emitGroup1Imm32(buf, 4, dst, imm)
}

func emitCmpRegImm32(buf []byte, dst reg, imm int32) []byte {
	return emitGroup1Imm32(buf, 7, dst, imm)
}

// emitShiftImm emits a group-2 shift `<op> dst, imm8` (opcode 0xC1),
// where sub picks SHL=4, SHR=5, SAR=7.
func emitShiftImm(buf []byte, sub byte, dst reg, imm8 byte) []byte {
	rex := byte(0x48) | byte(dst)>>3
	modrm := byte(0xC0) | sub<<3 | (byte(dst) & 7)
	return append(buf, rex, 0xC1, modrm, imm8)
}

func emitShlImm(buf []byte, dst reg, imm8 byte) []byte { return emitShiftImm(buf, 4, dst, imm8) }
func emitShrImm(buf []byte, dst reg, imm8 byte) []byte { return emitShiftImm(buf, 5, dst, imm8) }
func emitSarImm(buf []byte, dst reg, imm8 byte) []byte { return emitShiftImm(buf, 7, dst, imm8) }

// emitLeaRegMem emits `LEA dst, [base+disp32]` (opcode 0x8D), the
// same addressing shape as emitMovRegMem without the memory read.
func emitLeaRegMem(buf []byte, dst, base reg, disp int32) []byte {
	rex := byte(0x48) | (byte(dst)>>3)<<2 | byte(base)>>3
	modrm := byte(0x80) | (byte(dst)&7)<<3 | (byte(base) & 7)
	buf = append(buf, rex, 0x8D, modrm)
	return appendImm32(buf, disp)
}

// emitMovzxByteMem emits `MOVZX dst, byte [base+disp32]` (0F B6 /r),
// zero-extending a single guest byte into a 64-bit host register.
func emitMovzxByteMem(buf []byte, dst, base reg, disp int32) []byte {
	rex := byte(0x48) | (byte(dst)>>3)<<2 | byte(base)>>3
	modrm := byte(0x80) | (byte(dst)&7)<<3 | (byte(base) & 7)
	buf = append(buf, rex, 0x0F, 0xB6, modrm)
	return appendImm32(buf, disp)
}

// emitMovByteMemReg emits `MOV [base+disp32], src8` (opcode 0x88 /r),
// the low byte of src. Callers restrict src to rax/rcx/rdx/rbx so the
// byte always means al/cl/dl/bl, never the REX-only spl/bpl/sil/dil
// forms.
func emitMovByteMemReg(buf []byte, base reg, disp int32, src reg) []byte {
	rex := byte(0x40) | (byte(src)>>3)<<2 | byte(base)>>3
	modrm := byte(0x80) | (byte(src)&7)<<3 | (byte(base) & 7)
	buf = append(buf, rex, 0x88, modrm)
	return appendImm32(buf, disp)
}

// emitMovMemImm32 emits `MOV [base+disp32], imm32` (opcode 0xC7 /0),
// sign-extended to 64 bits. Every PC and link-register value this
// package writes as an immediate lives in a compatibility-segment
// vaddr (top 33 bits either all zero or all one, e.g. VectorBootBase
// = 0xffffffffbfc00200), so the sign-extension this opcode performs
// always reconstructs the full 64-bit value correctly.
func emitMovMemImm32(buf []byte, base reg, disp int32, imm int32) []byte {
	rex := byte(0x48) | byte(base)>>3
	modrm := byte(0x80) | (byte(base) & 7)
	buf = append(buf, rex, 0xC7, modrm)
	buf = appendImm32(buf, disp)
	return appendImm32(buf, imm)
}

// emitJccRel32 emits a near conditional jump (0F 8x) with a
// placeholder rel32, returning the buffer and the offset of the
// 4-byte displacement field for patchRel32 to fill in once the
// target offset is known.
func emitJccRel32(buf []byte, cc byte) ([]byte, int) {
	buf = append(buf, 0x0F, cc, 0, 0, 0, 0)
	return buf, len(buf) - 4
}

// patchRel32 fixes up a previously emitted rel32 displacement at
// immPos (as returned by emitJccRel32) to land at byte offset target
// within buf.
func patchRel32(buf []byte, immPos, target int) {
	rel := uint32(int32(target - (immPos + 4)))
	buf[immPos+0] = byte(rel)
	buf[immPos+1] = byte(rel >> 8)
	buf[immPos+2] = byte(rel >> 16)
	buf[immPos+3] = byte(rel >> 24)
}

// emitRet emits a bare `RET` (0xC3), the last byte of every block the
// manager hands to the trampoline.
func emitRet(buf []byte) []byte {
	return append(buf, 0xC3)
}

// EmitReturn is the exported form of emitRet, called once by the
// manager after the last translated instruction.
func EmitReturn(buf []byte) []byte {
	return emitRet(buf)
}

// EmitFinalPC writes pc into cpu.PC. The manager calls this once, in
// place of letting RunBlock compute start+4*NumInsns, for any block
// that contains a memory op or branch: a mid-block bailout from one
// of those means the straight-line fallthrough case (every probe hit)
// still has to leave PC somewhere RunBlock can trust without knowing
// whether a bailout happened earlier in the same block.
func EmitFinalPC(buf []byte, pc uint64) []byte {
	return emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(pc))
}

func appendImm32(buf []byte, v int32) []byte {
	u := uint32(v)
	return append(buf, byte(u), byte(u>>8), byte(u>>16), byte(u>>24))
}
