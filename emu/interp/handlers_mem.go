package interp

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// loadSize and storeSize are the single MTS-mediated access
// chokepoint every load/store handler funnels through, so address
// translation and exception handling live in exactly one place.
func (ip *Interp) loadSize(vaddr uint64, size int, signExt bool) (uint64, mips64.ExceptionFlag) {
	e, miss := ip.MTS.Translate(vaddr, false)
	if miss != 0 {
		ip.raiseTLBMiss(vaddr, miss, false)
		return 0, mips64.Exception
	}
	var v uint64
	if e.IsRAM() {
		v = e.ReadRAMFast(vaddr, size)
	} else {
		dev, off := e.Device()
		v = dev.PhysRead(off+(vaddr&0xfff), size)
	}
	if signExt {
		v = signExtendSize(v, size)
	}
	return v, mips64.NoException
}

func (ip *Interp) storeSize(vaddr uint64, size int, value uint64) mips64.ExceptionFlag {
	e, miss := ip.MTS.Translate(vaddr, true)
	if miss != 0 {
		ip.raiseTLBMiss(vaddr, miss, true)
		return mips64.Exception
	}
	if e.IsRAM() {
		e.WriteRAMFast(vaddr, size, value)
		if ip.OnInvalidate != nil {
			ip.OnInvalidate(e.PhysPageKey())
		}
	} else {
		dev, off := e.Device()
		dev.PhysWrite(off+(vaddr&0xfff), size, value)
	}
	return mips64.NoException
}

func signExtendSize(v uint64, size int) uint64 {
	switch size {
	case 1:
		return uint64(int64(int8(v)))
	case 2:
		return uint64(int64(int16(v)))
	case 4:
		return uint64(int64(int32(v)))
	default:
		return v
	}
}

func memOpSize(op mips64.MemOp) int {
	switch op {
	case mips64.OpLB, mips64.OpLBU, mips64.OpSB:
		return 1
	case mips64.OpLH, mips64.OpLHU, mips64.OpSH:
		return 2
	case mips64.OpLW, mips64.OpLWU, mips64.OpSW, mips64.OpLWC1, mips64.OpSWC1, mips64.OpLL, mips64.OpSC:
		return 4
	default:
		return 8
	}
}

func effectiveAddr(d mips64.Decode, cpu *mips64.CPU) uint64 {
	return cpu.ReadGPR(d.RS) + mips64.SignExtend16(d.Imm16)
}

// loadCommon and storeCommon cover every plain (aligned) load/store,
// including the register-move-only coprocessor-1 opcodes, which read
// or write the FPR file instead of GPR.
func (ip *Interp) loadCommon(d mips64.Decode, op mips64.MemOp, signExt bool) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	v, exc := ip.loadSize(vaddr, memOpSize(op), signExt)
	if exc == mips64.Exception {
		return exc
	}
	if op == mips64.OpLWC1 || op == mips64.OpLDC1 {
		ip.CPU.WriteFPR(d.RT, v)
	} else {
		ip.CPU.WriteGPR(d.RT, v)
	}
	return mips64.NoException
}

func (ip *Interp) storeCommon(d mips64.Decode, op mips64.MemOp) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	var v uint64
	if op == mips64.OpSWC1 || op == mips64.OpSDC1 {
		v = ip.CPU.ReadFPR(d.RT)
	} else {
		v = ip.CPU.ReadGPR(d.RT)
	}
	return ip.storeSize(vaddr, memOpSize(op), v)
}

// maskLow returns the low nbits of an all-ones mask, saturating at 64
// bits rather than overflowing a uint64 shift.
func maskLow(nbits uint) uint64 {
	if nbits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << nbits) - 1
}

// unalignedLeft implements LWL/LDL: merge the bytes from vaddr to the
// end of its naturally-aligned word/doubleword into the high-order
// bits of the register, leaving the low-order bits untouched, per the
// MIPS64 architecture manual's byte-lane description.
func (ip *Interp) unalignedLeft(d mips64.Decode, wordSize int, signExt bool) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	align := uint64(wordSize - 1)
	base := vaddr &^ align
	off := vaddr & align
	nbytes := uint(wordSize) - uint(off)

	raw, exc := ip.loadSize(base, wordSize, false)
	if exc == mips64.Exception {
		return exc
	}
	shift := uint(off) * 8
	merged := (raw & maskLow(nbytes*8)) << shift
	old := ip.CPU.ReadGPR(d.RT) & maskLow(shift)
	result := merged | old
	if wordSize == 4 {
		result = signExtendSize(result&0xffffffff, 4)
	}
	ip.CPU.WriteGPR(d.RT, result)
	return mips64.NoException
}

// unalignedRight implements LWR/LDR: the complementary half of
// unalignedLeft, merging the bytes from the start of the aligned
// word/doubleword up to vaddr into the low-order bits of the
// register.
func (ip *Interp) unalignedRight(d mips64.Decode, wordSize int, signExt bool) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	align := uint64(wordSize - 1)
	base := vaddr &^ align
	off := vaddr & align
	nbytes := uint(off) + 1

	raw, exc := ip.loadSize(base, wordSize, false)
	if exc == mips64.Exception {
		return exc
	}
	shiftKeep := nbytes * 8
	var extracted uint64
	if shiftKeep >= uint(wordSize)*8 {
		extracted = raw
	} else {
		extracted = raw >> (uint(wordSize)*8 - shiftKeep)
	}
	old := ip.CPU.ReadGPR(d.RT) &^ maskLow(shiftKeep)
	result := old | extracted
	if wordSize == 4 && signExt && shiftKeep >= 32 {
		result = signExtendSize(result&0xffffffff, 4)
	}
	ip.CPU.WriteGPR(d.RT, result)
	return mips64.NoException
}

func (ip *Interp) unalignedStoreLeft(d mips64.Decode, wordSize int) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	align := uint64(wordSize - 1)
	base := vaddr &^ align
	off := vaddr & align
	nbytes := uint(wordSize) - uint(off)

	raw, exc := ip.loadSize(base, wordSize, false)
	if exc == mips64.Exception {
		return exc
	}
	shift := uint(off) * 8
	rt := ip.CPU.ReadGPR(d.RT)
	top := (rt >> shift) & maskLow(nbytes * 8)
	result := (raw &^ maskLow(nbytes*8)) | top
	return ip.storeSize(base, wordSize, result)
}

func (ip *Interp) unalignedStoreRight(d mips64.Decode, wordSize int) mips64.ExceptionFlag {
	vaddr := effectiveAddr(d, ip.CPU)
	align := uint64(wordSize - 1)
	base := vaddr &^ align
	off := vaddr & align
	nbytes := uint(off) + 1
	shiftKeep := nbytes * 8

	raw, exc := ip.loadSize(base, wordSize, false)
	if exc == mips64.Exception {
		return exc
	}
	rt := ip.CPU.ReadGPR(d.RT)
	var bottom uint64
	if shiftKeep >= uint(wordSize)*8 {
		bottom = rt
	} else {
		bottom = rt & maskLow(shiftKeep)
	}
	shift := uint(wordSize)*8 - shiftKeep
	result := (raw &^ (maskLow(shiftKeep) << shift)) | (bottom << shift)
	return ip.storeSize(base, wordSize, result)
}

// registerMem wires up every load/store Kind, including the
// unaligned-lane and linked-load/store-conditional families.
func (ip *Interp) registerMem() {
	r := ip.register

	r(ilt.KindLB, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLB, true) })
	r(ilt.KindLBU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLBU, false) })
	r(ilt.KindLH, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLH, true) })
	r(ilt.KindLHU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLHU, false) })
	r(ilt.KindLW, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLW, true) })
	r(ilt.KindLWU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLWU, false) })
	r(ilt.KindLD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.loadCommon(d, mips64.OpLD, false) })
	r(ilt.KindSB, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.storeCommon(d, mips64.OpSB) })
	r(ilt.KindSH, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.storeCommon(d, mips64.OpSH) })
	r(ilt.KindSW, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.storeCommon(d, mips64.OpSW) })
	r(ilt.KindSD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.storeCommon(d, mips64.OpSD) })

	r(ilt.KindLWL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedLeft(d, 4, true) })
	r(ilt.KindLWR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedRight(d, 4, true) })
	r(ilt.KindLDL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedLeft(d, 8, false) })
	r(ilt.KindLDR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedRight(d, 8, false) })
	r(ilt.KindSWL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedStoreLeft(d, 4) })
	r(ilt.KindSWR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedStoreRight(d, 4) })
	r(ilt.KindSDL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedStoreLeft(d, 8) })
	r(ilt.KindSDR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag { return ip.unalignedStoreRight(d, 8) })

	r(ilt.KindLL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		vaddr := effectiveAddr(d, ip.CPU)
		v, exc := ip.loadSize(vaddr, 4, true)
		if exc == mips64.Exception {
			return exc
		}
		ip.CPU.LLBit, ip.CPU.LLAddr = true, vaddr
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindLLD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		vaddr := effectiveAddr(d, ip.CPU)
		v, exc := ip.loadSize(vaddr, 8, false)
		if exc == mips64.Exception {
			return exc
		}
		ip.CPU.LLBit, ip.CPU.LLAddr = true, vaddr
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindSC, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		vaddr := effectiveAddr(d, ip.CPU)
		ok := ip.CPU.LLBit && ip.CPU.LLAddr == vaddr
		ip.CPU.LLBit = false
		if ok {
			if exc := ip.storeSize(vaddr, 4, ip.CPU.ReadGPR(d.RT)); exc == mips64.Exception {
				return exc
			}
			ip.CPU.WriteGPR(d.RT, 1)
		} else {
			ip.CPU.WriteGPR(d.RT, 0)
		}
		return mips64.NoException
	})
	r(ilt.KindSCD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		vaddr := effectiveAddr(d, ip.CPU)
		ok := ip.CPU.LLBit && ip.CPU.LLAddr == vaddr
		ip.CPU.LLBit = false
		if ok {
			if exc := ip.storeSize(vaddr, 8, ip.CPU.ReadGPR(d.RT)); exc == mips64.Exception {
				return exc
			}
			ip.CPU.WriteGPR(d.RT, 1)
		} else {
			ip.CPU.WriteGPR(d.RT, 0)
		}
		return mips64.NoException
	})

	r(ilt.KindCACHE, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		// The cache op/target field is ignored; this core has no
		// modeled instruction or data cache to operate on. The
		// effective address is still translated, so an unmapped one
		// raises the same TLB exception a load would.
		vaddr := effectiveAddr(d, ip.CPU)
		if _, miss := ip.MTS.Translate(vaddr, false); miss != 0 {
			ip.raiseTLBMiss(vaddr, miss, false)
			return mips64.Exception
		}
		return mips64.NoException
	})
}

// registerMemOps populates the MemOp-indexed function table
// (Interp.memOps). Translated JIT blocks do not call into it: a
// memory reference they do not inline ends or bails out of the block.
func (ip *Interp) registerMemOps() {
	set := func(op mips64.MemOp, fn func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag) {
		ip.memOps[op] = fn
	}

	load := func(op mips64.MemOp, size int, signExt bool, toFPR bool) func(*Interp, uint64, uint8) mips64.ExceptionFlag {
		return func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag {
			v, exc := ip.loadSize(vaddr, size, signExt)
			if exc == mips64.Exception {
				return exc
			}
			if toFPR {
				ip.CPU.WriteFPR(reg, v)
			} else {
				ip.CPU.WriteGPR(reg, v)
			}
			return mips64.NoException
		}
	}
	store := func(op mips64.MemOp, size int, fromFPR bool) func(*Interp, uint64, uint8) mips64.ExceptionFlag {
		return func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag {
			var v uint64
			if fromFPR {
				v = ip.CPU.ReadFPR(reg)
			} else {
				v = ip.CPU.ReadGPR(reg)
			}
			return ip.storeSize(vaddr, size, v)
		}
	}

	set(mips64.OpLB, load(mips64.OpLB, 1, true, false))
	set(mips64.OpLBU, load(mips64.OpLBU, 1, false, false))
	set(mips64.OpLH, load(mips64.OpLH, 2, true, false))
	set(mips64.OpLHU, load(mips64.OpLHU, 2, false, false))
	set(mips64.OpLW, load(mips64.OpLW, 4, true, false))
	set(mips64.OpLWU, load(mips64.OpLWU, 4, false, false))
	set(mips64.OpLD, load(mips64.OpLD, 8, false, false))
	set(mips64.OpSB, store(mips64.OpSB, 1, false))
	set(mips64.OpSH, store(mips64.OpSH, 2, false))
	set(mips64.OpSW, store(mips64.OpSW, 4, false))
	set(mips64.OpSD, store(mips64.OpSD, 8, false))
	set(mips64.OpLWC1, load(mips64.OpLWC1, 4, false, true))
	set(mips64.OpSWC1, store(mips64.OpSWC1, 4, true))
	set(mips64.OpLDC1, load(mips64.OpLDC1, 8, false, true))
	set(mips64.OpSDC1, store(mips64.OpSDC1, 8, true))
	set(mips64.OpLL, load(mips64.OpLL, 4, true, false))
	set(mips64.OpSC, store(mips64.OpSC, 4, false))
	set(mips64.OpLLD, load(mips64.OpLLD, 8, false, false))
	set(mips64.OpSCD, store(mips64.OpSCD, 8, false))
	set(mips64.OpCache, func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag { return mips64.NoException })
	set(mips64.OpPref, func(ip *Interp, vaddr uint64, reg uint8) mips64.ExceptionFlag { return mips64.NoException })
}
