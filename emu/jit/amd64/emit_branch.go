package amd64

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// EmittableBranch reports whether k is a branch/jump Kind this
// package can emit as a block terminator. Unlike Emittable, a true
// result here does not mean the manager may always emit it: the
// delay slot must also be inlinable (see DelaySlotInlinable).
func EmittableBranch(k ilt.Kind) bool {
	switch k {
	case ilt.KindBEQ, ilt.KindBNE, ilt.KindBLEZ, ilt.KindBGTZ,
		ilt.KindBEQL, ilt.KindBNEL, ilt.KindBLEZL, ilt.KindBGTZL,
		ilt.KindJ, ilt.KindJAL, ilt.KindJR, ilt.KindJALR:
		return true
	default:
		return false
	}
}

// DelaySlotInlinable reports whether the instruction at a branch's
// delay slot can be folded into the branch's emitted code: a literal
// NOP (word 0) needs no bytes at all, and a plain ALU op is safe to
// run inline since it never touches cpu.PC. Anything else (including
// a memory op, whose own miss bailout would stomp the branch's staged
// PC) forces the manager to leave this branch untranslated.
func DelaySlotInlinable(delayWord uint32, delayKind ilt.Kind) bool {
	return delayWord == 0 || isALUEmittable(delayKind)
}

// EmitDelaySlot returns the bytes for a branch's delay slot, or nil
// for a literal NOP. Callers must have already checked
// DelaySlotInlinable.
func EmitDelaySlot(delayWord uint32, delayKind ilt.Kind, delayDecode mips64.Decode) []byte {
	if delayWord == 0 {
		return nil
	}
	return Emit(nil, delayKind, delayDecode, 0)
}

// jumpTarget computes the J-format absolute target the same way the
// interpreter does: the top bits of pc+4 concatenated with the
// shifted 26-bit index.
func jumpTarget(pc uint64, d mips64.Decode) uint64 {
	return (pc+4)&^uint64(0x0fffffff) | uint64(d.Target)<<2
}

// EmitBranch emits one branch/jump's host code, including its
// (already emitted) delay slot and the epilogue that writes the
// resolved PC and returns to the trampoline. pc is the branch's own
// guest vaddr; delay is EmitDelaySlot's result (nil for an empty/NOP
// delay slot).
func EmitBranch(buf []byte, k ilt.Kind, d mips64.Decode, pc uint64, delay []byte) []byte {
	switch k {
	case ilt.KindBEQ, ilt.KindBNE, ilt.KindBLEZ, ilt.KindBGTZ:
		return emitCondBranch(buf, k, d, pc, delay, false)
	case ilt.KindBEQL, ilt.KindBNEL, ilt.KindBLEZL, ilt.KindBGTZL:
		return emitCondBranch(buf, k, d, pc, delay, true)
	case ilt.KindJ:
		return emitJump(buf, pc, jumpTarget(pc, d), delay, 0)
	case ilt.KindJAL:
		return emitJump(buf, pc, jumpTarget(pc, d), delay, mips64.RegRA)
	case ilt.KindJR:
		return emitJumpReg(buf, d.RS, delay, 0, 0)
	case ilt.KindJALR:
		link := d.RD
		if link == 0 {
			link = mips64.RegRA
		}
		return emitJumpReg(buf, d.RS, delay, link, int32(pc+8))
	default:
		return buf
	}
}

// condCodes returns the Jcc opcode byte (following 0x0F) that takes
// the branch, and the one that doesn't.
func condCodes(k ilt.Kind) (taken, notTaken byte) {
	switch k {
	case ilt.KindBEQ, ilt.KindBEQL:
		return 0x84, 0x85 // JE, JNE
	case ilt.KindBNE, ilt.KindBNEL:
		return 0x85, 0x84 // JNE, JE
	case ilt.KindBLEZ, ilt.KindBLEZL:
		return 0x8E, 0x8F // JLE, JG (signed)
	default: // BGTZ, BGTZL
		return 0x8F, 0x8E // JG, JLE (signed)
	}
}

// emitCondBranch emits a compare-and-branch whose target and
// fallthrough are both compile-time constants. A non-likely branch
// always runs its delay slot first, straight-line, and only the final
// PC written differs by outcome. A likely branch skips the delay slot
// entirely when not taken, so the two outcomes are full alternative
// tails instead of a shared prefix.
func emitCondBranch(buf []byte, k ilt.Kind, d mips64.Decode, pc uint64, delay []byte, likely bool) []byte {
	target := pc + 4 + uint64(int64(int16(d.Imm16))<<2)
	fallthroughPC := pc + 8

	buf = emitLoadGPR(buf, rax, d.RS)
	switch k {
	case ilt.KindBEQ, ilt.KindBNE, ilt.KindBEQL, ilt.KindBNEL:
		buf = emitLoadGPR(buf, rcx, d.RT)
		buf = emitCmpRegReg(buf, rax, rcx)
	default: // BLEZ/BGTZ family compares rs against zero
		buf = emitCmpRegImm32(buf, rax, 0)
	}

	takenCC, notTakenCC := condCodes(k)

	if !likely {
		buf = append(buf, delay...)
		buf, jpos := emitJccRel32(buf, takenCC)
		buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(fallthroughPC))
		buf = emitRet(buf)
		patchRel32(buf, jpos, len(buf))
		buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(target))
		return emitRet(buf)
	}

	buf, jpos := emitJccRel32(buf, notTakenCC)
	buf = append(buf, delay...)
	buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(target))
	buf = emitRet(buf)
	patchRel32(buf, jpos, len(buf))
	buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(fallthroughPC))
	return emitRet(buf)
}

// emitJump emits an unconditional J/JAL: link (if linkReg != 0) is
// written before the delay slot, matching the interpreter's order, in
// case the delay slot itself overwrites the same register.
func emitJump(buf []byte, pc, target uint64, delay []byte, linkReg uint8) []byte {
	if linkReg != 0 {
		buf = emitStoreGPRImm32(buf, linkReg, int32(pc+8))
	}
	buf = append(buf, delay...)
	buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(target))
	return emitRet(buf)
}

// emitJumpReg emits JR/JALR: the target register is read and staged
// into cpu.PC before the delay slot runs, since the delay slot's own
// emitted code may reuse rax and must not disturb the already-latched
// target. linkVal is only used when linkReg != 0.
func emitJumpReg(buf []byte, rs uint8, delay []byte, linkReg uint8, linkVal int32) []byte {
	buf = emitLoadGPR(buf, rax, rs)
	buf = emitMovMemReg(buf, cpuReg, mips64.OffsetPC, rax)
	if linkReg != 0 {
		buf = emitStoreGPRImm32(buf, linkReg, linkVal)
	}
	buf = append(buf, delay...)
	return emitRet(buf)
}
