package interp

import (
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// jumpTarget computes the J-format absolute target: the top bits of
// PC+4 (above the 28-bit region the 26-bit instr_index<<2 can reach)
// concatenated with the shifted index.
func jumpTarget(pc uint64, d mips64.Decode) uint64 {
	return (pc+4)&^uint64(0x0fffffff) | uint64(d.Target)<<2
}

// registerBranch wires up every branch, jump, and trap-on-compare-free
// control-transfer Kind. Every handler that can branch calls
// ip.branchTo/branchLikelyTo, which themselves execute the mandatory
// delay slot.
func (ip *Interp) registerBranch() {
	r := ip.register

	cmp := func(taken func(rs, rt uint64) bool) Handler {
		return func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
			rs, rt := ip.CPU.ReadGPR(d.RS), ip.CPU.ReadGPR(d.RT)
			off := mips64.SignExtend16(d.Imm16) << 2
			return ip.branchTo(ip.CPU.PC, taken(rs, rt), ip.CPU.PC+4+off)
		}
	}
	cmpLikely := func(taken func(rs, rt uint64) bool) Handler {
		return func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
			rs, rt := ip.CPU.ReadGPR(d.RS), ip.CPU.ReadGPR(d.RT)
			off := mips64.SignExtend16(d.Imm16) << 2
			return ip.branchLikelyTo(ip.CPU.PC, taken(rs, rt), ip.CPU.PC+4+off)
		}
	}

	r(ilt.KindBEQ, cmp(func(rs, rt uint64) bool { return rs == rt }))
	r(ilt.KindBNE, cmp(func(rs, rt uint64) bool { return rs != rt }))
	r(ilt.KindBLEZ, cmp(func(rs, _ uint64) bool { return int64(rs) <= 0 }))
	r(ilt.KindBGTZ, cmp(func(rs, _ uint64) bool { return int64(rs) > 0 }))
	r(ilt.KindBEQL, cmpLikely(func(rs, rt uint64) bool { return rs == rt }))
	r(ilt.KindBNEL, cmpLikely(func(rs, rt uint64) bool { return rs != rt }))
	r(ilt.KindBLEZL, cmpLikely(func(rs, _ uint64) bool { return int64(rs) <= 0 }))
	r(ilt.KindBGTZL, cmpLikely(func(rs, _ uint64) bool { return int64(rs) > 0 }))

	r(ilt.KindBLTZ, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchTo(ip.CPU.PC, int64(ip.CPU.ReadGPR(d.RS)) < 0, ip.CPU.PC+4+off)
	})
	r(ilt.KindBGEZ, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchTo(ip.CPU.PC, int64(ip.CPU.ReadGPR(d.RS)) >= 0, ip.CPU.PC+4+off)
	})
	r(ilt.KindBLTZL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchLikelyTo(ip.CPU.PC, int64(ip.CPU.ReadGPR(d.RS)) < 0, ip.CPU.PC+4+off)
	})
	r(ilt.KindBGEZL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchLikelyTo(ip.CPU.PC, int64(ip.CPU.ReadGPR(d.RS)) >= 0, ip.CPU.PC+4+off)
	})
	r(ilt.KindBLTZAL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		taken := int64(ip.CPU.ReadGPR(d.RS)) < 0
		ip.CPU.WriteGPR(mips64.RegRA, pc+8)
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchTo(pc, taken, pc+4+off)
	})
	r(ilt.KindBGEZAL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		taken := int64(ip.CPU.ReadGPR(d.RS)) >= 0
		ip.CPU.WriteGPR(mips64.RegRA, pc+8)
		off := mips64.SignExtend16(d.Imm16) << 2
		return ip.branchTo(pc, taken, pc+4+off)
	})

	r(ilt.KindJ, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		return ip.branchTo(pc, true, jumpTarget(pc, d))
	})
	r(ilt.KindJAL, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		ip.CPU.WriteGPR(mips64.RegRA, pc+8)
		return ip.branchTo(pc, true, jumpTarget(pc, d))
	})
	r(ilt.KindJR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		target := ip.CPU.ReadGPR(d.RS)
		return ip.branchTo(pc, true, target)
	})
	r(ilt.KindJALR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		pc := ip.CPU.PC
		target := ip.CPU.ReadGPR(d.RS)
		linkReg := d.RD
		if linkReg == 0 {
			linkReg = mips64.RegRA
		}
		ip.CPU.WriteGPR(linkReg, pc+8)
		return ip.branchTo(pc, true, target)
	})
}
