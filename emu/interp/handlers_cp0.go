package interp

import (
	"github.com/rcornwell/mips64vm/emu/cp0"
	"github.com/rcornwell/mips64vm/emu/ilt"
	"github.com/rcornwell/mips64vm/emu/mips64"
)

// cp0Privileged guards every CP0 instruction behind
// cp0.CheckKernelMode, raising a coprocessor-unusable exception on
// failure.
func (ip *Interp) cp0Privileged(pc uint64, body func()) mips64.ExceptionFlag {
	if !cp0.CheckKernelMode(ip.CPU) {
		ip.raiseException(mips64.ExcCpU, pc, ip.inDelay)
		return mips64.Exception
	}
	body()
	return mips64.NoException
}

// registerCP0 wires up the System Coprocessor register-move,
// TLB-maintenance, and exception-return opcodes.
func (ip *Interp) registerCP0() {
	r := ip.register

	r(ilt.KindMFC0, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			v := cp0.GetReg(ip.CPU, d.RD)
			ip.CPU.WriteGPR(d.RT, mips64.SignExtend32(uint32(v)))
		})
	})
	r(ilt.KindDMFC0, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			ip.CPU.WriteGPR(d.RT, cp0.GetReg(ip.CPU, d.RD))
		})
	})
	r(ilt.KindMTC0, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			cp0.SetReg(ip.CPU, d.RD, mips64.SignExtend32(uint32(ip.CPU.ReadGPR(d.RT))))
		})
	})
	r(ilt.KindDMTC0, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			cp0.SetReg(ip.CPU, d.RD, ip.CPU.ReadGPR(d.RT))
		})
	})

	r(ilt.KindTLBP, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() { cp0.ExecTLBP(ip.CPU) })
	})
	r(ilt.KindTLBR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() { cp0.ExecTLBR(ip.CPU) })
	})
	r(ilt.KindTLBWI, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			cp0.ExecTLBWI(ip.CPU)
			// A conservative full flush rather than tracking which
			// vpages the overwritten entry used to own: correctness
			// over avoiding a demand-refill.
			ip.MTS.Flush()
		})
	})
	r(ilt.KindTLBWR, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			cp0.ExecTLBWR(ip.CPU)
			ip.MTS.Flush()
		})
	})
	r(ilt.KindERET, func(ip *Interp, d mips64.Decode) mips64.ExceptionFlag {
		return ip.cp0Privileged(ip.CPU.PC, func() {
			status := ip.CPU.CP0[mips64.CP0Status]
			ip.CPU.LLBit = false
			if status&mips64.StatusERL != 0 {
				ip.setPC(ip.CPU.CP0[mips64.CP0ErrorEPC])
				ip.CPU.CP0[mips64.CP0Status] = status &^ mips64.StatusERL
			} else {
				ip.setPC(ip.CPU.CP0[mips64.CP0EPC])
				ip.CPU.CP0[mips64.CP0Status] = status &^ mips64.StatusEXL
			}
		})
	})
}
