package interp

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// registerALU wires up every integer ALU, shift, and multiply/divide
// opcode. None of these touch PC.
func (ip *Interp) registerALU() {
	r := ip.register

	r(ilt.KindADDIU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		v := ip.CPU.ReadGPR(d.RS) + mips64.SignExtend16(d.Imm16)
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindADDI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		// Overflow-trapping variant; overflow detection is out of
		// scope here, so this behaves as ADDIU.
		v := ip.CPU.ReadGPR(d.RS) + mips64.SignExtend16(d.Imm16)
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindDADDI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, ip.CPU.ReadGPR(d.RS)+mips64.SignExtend16(d.Imm16))
		return mips64.NoException
	})
	r(ilt.KindDADDIU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, ip.CPU.ReadGPR(d.RS)+mips64.SignExtend16(d.Imm16))
		return mips64.NoException
	})
	r(ilt.KindSLTI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		var v uint64
		if int64(ip.CPU.ReadGPR(d.RS)) < int64(mips64.SignExtend16(d.Imm16)) {
			v = 1
		}
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindSLTIU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		var v uint64
		if ip.CPU.ReadGPR(d.RS) < mips64.SignExtend16(d.Imm16) {
			v = 1
		}
		ip.CPU.WriteGPR(d.RT, v)
		return mips64.NoException
	})
	r(ilt.KindANDI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, ip.CPU.ReadGPR(d.RS)&uint64(d.Imm16))
		return mips64.NoException
	})
	r(ilt.KindORI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, ip.CPU.ReadGPR(d.RS)|uint64(d.Imm16))
		return mips64.NoException
	})
	r(ilt.KindXORI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, ip.CPU.ReadGPR(d.RS)^uint64(d.Imm16))
		return mips64.NoException
	})
	r(ilt.KindLUI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RT, mips64.SignExtend32(uint32(d.Imm16)<<16))
		return mips64.NoException
	})

	r(ilt.KindADD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)+ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindADDU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)+ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindSUB, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)-ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindSUBU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)-ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindDADD, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)+ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindDADDU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)+ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindDSUB, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)-ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindDSUBU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)-ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindAND, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)&ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindOR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)|ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindXOR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS)^ip.CPU.ReadGPR(d.RT))
		return mips64.NoException
	})
	r(ilt.KindNOR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ^(ip.CPU.ReadGPR(d.RS) | ip.CPU.ReadGPR(d.RT)))
		return mips64.NoException
	})
	r(ilt.KindSLT, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		var v uint64
		if int64(ip.CPU.ReadGPR(d.RS)) < int64(ip.CPU.ReadGPR(d.RT)) {
			v = 1
		}
		ip.CPU.WriteGPR(d.RD, v)
		return mips64.NoException
	})
	r(ilt.KindSLTU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		var v uint64
		if ip.CPU.ReadGPR(d.RS) < ip.CPU.ReadGPR(d.RT) {
			v = 1
		}
		ip.CPU.WriteGPR(d.RD, v)
		return mips64.NoException
	})
	r(ilt.KindMOVZ, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		if ip.CPU.ReadGPR(d.RT) == 0 {
			ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS))
		}
		return mips64.NoException
	})
	r(ilt.KindMOVN, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		if ip.CPU.ReadGPR(d.RT) != 0 {
			ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RS))
		}
		return mips64.NoException
	})

	r(ilt.KindSLL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		v := uint32(ip.CPU.ReadGPR(d.RT)) << d.Shamt
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(v))
		return mips64.NoException
	})
	r(ilt.KindSRL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		v := uint32(ip.CPU.ReadGPR(d.RT)) >> d.Shamt
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(v))
		return mips64.NoException
	})
	r(ilt.KindSRA, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		v := int32(uint32(ip.CPU.ReadGPR(d.RT))) >> d.Shamt
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(uint32(v)))
		return mips64.NoException
	})
	r(ilt.KindSLLV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x1f
		v := uint32(ip.CPU.ReadGPR(d.RT)) << sh
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(v))
		return mips64.NoException
	})
	r(ilt.KindSRLV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x1f
		v := uint32(ip.CPU.ReadGPR(d.RT)) >> sh
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(v))
		return mips64.NoException
	})
	r(ilt.KindSRAV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x1f
		v := int32(uint32(ip.CPU.ReadGPR(d.RT))) >> sh
		ip.CPU.WriteGPR(d.RD, mips64.SignExtend32(uint32(v)))
		return mips64.NoException
	})
	r(ilt.KindDSLL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)<<d.Shamt)
		return mips64.NoException
	})
	r(ilt.KindDSRL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)>>d.Shamt)
		return mips64.NoException
	})
	r(ilt.KindDSRA, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, uint64(int64(ip.CPU.ReadGPR(d.RT))>>d.Shamt))
		return mips64.NoException
	})
	r(ilt.KindDSLL32, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)<<(32+uint(d.Shamt)))
		return mips64.NoException
	})
	r(ilt.KindDSRL32, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)>>(32+uint(d.Shamt)))
		return mips64.NoException
	})
	r(ilt.KindDSRA32, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, uint64(int64(ip.CPU.ReadGPR(d.RT))>>(32+uint(d.Shamt))))
		return mips64.NoException
	})
	r(ilt.KindDSLLV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x3f
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)<<sh)
		return mips64.NoException
	})
	r(ilt.KindDSRLV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x3f
		ip.CPU.WriteGPR(d.RD, ip.CPU.ReadGPR(d.RT)>>sh)
		return mips64.NoException
	})
	r(ilt.KindDSRAV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		sh := uint(ip.CPU.ReadGPR(d.RS)) & 0x3f
		ip.CPU.WriteGPR(d.RD, uint64(int64(ip.CPU.ReadGPR(d.RT))>>sh))
		return mips64.NoException
	})

	r(ilt.KindMFHI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.HI)
		return mips64.NoException
	})
	r(ilt.KindMTHI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.HI = ip.CPU.ReadGPR(d.RS)
		return mips64.NoException
	})
	r(ilt.KindMFLO, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.WriteGPR(d.RD, ip.CPU.LO)
		return mips64.NoException
	})
	r(ilt.KindMTLO, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.CPU.LO = ip.CPU.ReadGPR(d.RS)
		return mips64.NoException
	})
	r(ilt.KindMULT, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		prod := int64(int32(ip.CPU.ReadGPR(d.RS))) * int64(int32(ip.CPU.ReadGPR(d.RT)))
		ip.CPU.LO = mips64.SignExtend32(uint32(prod))
		ip.CPU.HI = mips64.SignExtend32(uint32(prod >> 32))
		return mips64.NoException
	})
	r(ilt.KindMULTU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		prod := uint64(uint32(ip.CPU.ReadGPR(d.RS))) * uint64(uint32(ip.CPU.ReadGPR(d.RT)))
		ip.CPU.LO = mips64.SignExtend32(uint32(prod))
		ip.CPU.HI = mips64.SignExtend32(uint32(prod >> 32))
		return mips64.NoException
	})
	r(ilt.KindDIV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		rs, rt := int32(ip.CPU.ReadGPR(d.RS)), int32(ip.CPU.ReadGPR(d.RT))
		if rt != 0 {
			ip.CPU.LO = mips64.SignExtend32(uint32(rs / rt))
			ip.CPU.HI = mips64.SignExtend32(uint32(rs % rt))
		}
		return mips64.NoException
	})
	r(ilt.KindDIVU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		rs, rt := uint32(ip.CPU.ReadGPR(d.RS)), uint32(ip.CPU.ReadGPR(d.RT))
		if rt != 0 {
			ip.CPU.LO = mips64.SignExtend32(uint32(rs / rt))
			ip.CPU.HI = mips64.SignExtend32(uint32(rs % rt))
		}
		return mips64.NoException
	})
	r(ilt.KindDMULT, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		hi, lo := mulHiLo64(uint64(int64(ip.CPU.ReadGPR(d.RS))), uint64(int64(ip.CPU.ReadGPR(d.RT))))
		ip.CPU.HI, ip.CPU.LO = hi, lo
		return mips64.NoException
	})
	r(ilt.KindDMULTU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		hi, lo := mulHiLo64(ip.CPU.ReadGPR(d.RS), ip.CPU.ReadGPR(d.RT))
		ip.CPU.HI, ip.CPU.LO = hi, lo
		return mips64.NoException
	})
	r(ilt.KindDDIV, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		rs, rt := int64(ip.CPU.ReadGPR(d.RS)), int64(ip.CPU.ReadGPR(d.RT))
		if rt != 0 {
			ip.CPU.LO, ip.CPU.HI = uint64(rs/rt), uint64(rs%rt)
		}
		return mips64.NoException
	})
	r(ilt.KindDDIVU, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		rs, rt := ip.CPU.ReadGPR(d.RS), ip.CPU.ReadGPR(d.RT)
		if rt != 0 {
			ip.CPU.LO, ip.CPU.HI = rs/rt, rs%rt
		}
		return mips64.NoException
	})

	r(ilt.KindSYNC, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		// Host is strongly ordered; SYNC is a no-op here.
		return mips64.NoException
	})
	r(ilt.KindSYSCALL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.raiseException(mips64.ExcSys, ip.CPU.PC, ip.inDelay)
		return mips64.Exception
	})
	r(ilt.KindBREAK, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		ip.raiseException(mips64.ExcBp, ip.CPU.PC, ip.inDelay)
		return mips64.Exception
	})

	// FPU register-move opcodes only; no FPU arithmetic is modeled
	// beyond moving values in and out of the register file.
	r(ilt.KindLWC1, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.loadCommon(d, mips64.OpLWC1, false)
	})
	r(ilt.KindSWC1, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.storeCommon(d, mips64.OpSWC1)
	})
	r(ilt.KindLDC1, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.loadCommon(d, mips64.OpLDC1, false)
	})
	r(ilt.KindSDC1, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.storeCommon(d, mips64.OpSDC1)
	})
}

func mulHiLo64(a, b uint64) (hi, lo uint64) {
	const mask32 = 0xffffffff
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	lo = aLo * bLo
	mid1 := aHi * bLo
	mid2 := aLo * bHi
	carry := ((lo>>32)+(mid1&mask32)+(mid2&mask32))>>32
	hi = aHi*bHi + (mid1 >> 32) + (mid2 >> 32) + carry
	lo = lo + mid1<<32 + mid2<<32
	return hi, lo
}
