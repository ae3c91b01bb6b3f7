package amd64

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// memSpec describes one memory-op Kind's size and how a load widens
// its result to 64 bits.
type memSpec struct {
	size   int
	store  bool
	signed bool
}

var memSpecs = map[ilt.Kind]memSpec{
	ilt.KindLB:  {size: 1, signed: true},
	ilt.KindLBU: {size: 1, signed: false},
	ilt.KindLH:  {size: 2, signed: true},
	ilt.KindLHU: {size: 2, signed: false},
	ilt.KindLW:  {size: 4, signed: true},
	ilt.KindLWU: {size: 4, signed: false},
	ilt.KindLD:  {size: 8, signed: false},
	ilt.KindSB:  {size: 1, store: true},
	ilt.KindSH:  {size: 2, store: true},
	ilt.KindSW:  {size: 4, store: true},
	ilt.KindSD:  {size: 8, store: true},
}

// isMemEmittable reports whether k is one of the load/store kinds
// the fast path below handles.
func isMemEmittable(k ilt.Kind) bool {
	_, ok := memSpecs[k]
	return ok
}

// IsMemEmittable is the exported form of isMemEmittable: the manager
// uses it to decide whether a translated block must write its own PC
// (see tcb.WritesPC) instead of trusting RunBlock's start+4*NumInsns
// shortcut.
func IsMemEmittable(k ilt.Kind) bool {
	return isMemEmittable(k)
}

// emitMem emits the inline load/store fast path for one memory
// instruction: compute the guest vaddr, probe cpu.FastLine (the
// direct-mapped cache mts.Translate keeps warm) for the page, and on
// a hit dereference the cached host pointer directly, byte-swapping
// the big-endian guest value a byte at a time so no 16/32-bit operand
// size prefix is ever needed. On a miss the block bails out to the
// interpreter by writing this instruction's own PC and returning:
// Step will redo the translation (and refill the line) the ordinary
// way.
//
// Self-modifying code: a store that misses the fast line bails to the
// interpreter, whose store path invalidates the owning page's TCBs
// (see jit.Manager.InvalidatePage). A store that hits writes directly
// through the cached host pointer without that callback, so a block
// that overwrites its own page via a hit store is not detected until
// some other, interpreter-executed store touches the same page. This
// mirrors the common real-world case (code and the data it modifies
// are rarely in the same translated block) rather than chasing full
// same-block SMC precision.
func emitMem(buf []byte, k ilt.Kind, d mips64.Decode, pc uint64) []byte {
	spec := memSpecs[k]

	// vaddr = gpr[rs] + sign_extend(imm16)
	buf = emitLoadGPR(buf, rax, d.RS)
	buf = emitAddImm32(buf, rax, int32(int16(d.Imm16)))

	// vpage = vaddr >> 12; line index = vpage & (NumFastLines-1).
	buf = emitMovRegReg(buf, rcx, rax)
	buf = emitShrImm(buf, rcx, 12)
	buf = emitMovRegReg(buf, rbx, rcx)
	buf = emitAndImm32(buf, rbx, mips64.NumFastLines-1)
	buf = emitShlImm(buf, rbx, log2StrictPow2(mips64.FastLineStride))

	// rsi = &cpu.FastLine[idx]
	buf = emitLeaRegMem(buf, rsi, cpuReg, mips64.OffsetFastLine0)
	buf = emitALURegReg(buf, 0x01, rsi, rbx)

	buf = emitMovRegMem(buf, rdx, rsi, 0) // rdx = Tag
	buf = emitCmpRegReg(buf, rdx, rcx)    // Tag == vpage?

	var jnePos int
	buf, jnePos = emitJccRel32(buf, 0x85) // JNE miss

	buf = emitMemHit(buf, spec, d)

	var jmpPos int
	buf = append(buf, 0xE9, 0, 0, 0, 0)
	jmpPos = len(buf) - 4

	missStart := len(buf)
	patchRel32(buf, jnePos, missStart)
	buf = emitMovMemImm32(buf, cpuReg, mips64.OffsetPC, int32(pc))
	buf = emitRet(buf)

	afterMiss := len(buf)
	patchRel32(buf, jmpPos, afterMiss)
	return buf
}

// emitMemHit emits the hit path once rsi points at the matched
// FastLine entry, rax still holds the full vaddr and rcx/rbx are
// free to reuse.
func emitMemHit(buf []byte, spec memSpec, d mips64.Decode) []byte {
	buf = emitMovRegMem(buf, rdx, rsi, 8) // rdx = Host base for this page
	buf = emitMovRegReg(buf, rcx, rax)
	buf = emitAndImm32(buf, rcx, 0xfff) // rcx = page offset
	buf = emitALURegReg(buf, 0x01, rdx, rcx) // rdx = host byte address

	if spec.store {
		return emitStoreBytes(buf, rdx, spec.size, d.RT)
	}
	return emitLoadBytesTo(buf, rdx, spec, d.RT)
}

// emitLoadBytes composes a big-endian value of spec.size bytes read
// one at a time from [addr+0 .. addr+size-1] (byte 0 is the MSB) into
// rbx and sign- or zero-extends it there; emitLoadBytesTo stores rbx
// to the target GPR.
func emitLoadBytes(buf []byte, addr reg, spec memSpec) []byte {
	buf = emitALURegReg(buf, 0x31, rbx, rbx) // rbx = 0
	for i := 0; i < spec.size; i++ {
		buf = emitMovzxByteMem(buf, rcx, addr, int32(i))
		buf = emitShlImm(buf, rbx, 8)
		buf = emitALURegReg(buf, 0x09, rbx, rcx) // rbx |= rcx
	}
	if spec.signed && spec.size < 8 {
		shift := byte(64 - 8*spec.size)
		buf = emitShlImm(buf, rbx, shift)
		buf = emitSarImm(buf, rbx, shift)
	}
	return buf
}

func emitLoadBytesTo(buf []byte, addr reg, spec memSpec, rt uint8) []byte {
	buf = emitLoadBytes(buf, addr, spec)
	return emitStoreGPR(buf, rt, rbx)
}

// emitStoreBytes writes GPR rt's low spec.size bytes to
// [addr+0..addr+size-1] in big-endian order (byte 0, at addr+0, is
// the MSB).
func emitStoreBytes(buf []byte, addr reg, size int, rt uint8) []byte {
	buf = emitLoadGPR(buf, rax, rt)
	for i := 0; i < size; i++ {
		shift := byte(8 * (size - 1 - i))
		buf = emitMovRegReg(buf, rcx, rax)
		if shift > 0 {
			buf = emitShrImm(buf, rcx, shift)
		}
		buf = emitMovByteMemReg(buf, addr, int32(i), rcx)
	}
	return buf
}

// log2StrictPow2 returns log2(n) for a positive power of two,
// panicking otherwise: FastLineStride is a compile-time constant
// derived from FastLineEntry's layout, so a non-power-of-two value
// here means that struct changed shape.
func log2StrictPow2(n int32) byte {
	if n <= 0 || n&(n-1) != 0 {
		panic("amd64: FastLineStride is not a power of two")
	}
	var shift byte
	for n > 1 {
		n >>= 1
		shift++
	}
	return shift
}
