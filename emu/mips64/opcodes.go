package mips64

// Primary opcode field (bits 31..26).
const (
	OpSPECIAL = 0x00
	OpREGIMM  = 0x01
	OpJ       = 0x02
	OpJAL     = 0x03
	OpBEQ     = 0x04
	OpBNE     = 0x05
	OpBLEZ    = 0x06
	OpBGTZ    = 0x07
	OpADDI    = 0x08
	OpADDIU   = 0x09
	OpSLTI    = 0x0a
	OpSLTIU   = 0x0b
	OpANDI    = 0x0c
	OpORI     = 0x0d
	OpXORI    = 0x0e
	OpLUI     = 0x0f
	OpCOP0    = 0x10
	OpCOP1    = 0x11
	OpBEQL    = 0x14
	OpBNEL    = 0x15
	OpBLEZL   = 0x16
	OpBGTZL   = 0x17
	OpDADDI   = 0x18
	OpDADDIU  = 0x19
	OpLDL     = 0x1a
	OpLDR     = 0x1b
	OpLB      = 0x20
	OpLH      = 0x21
	OpLWL     = 0x22
	OpLW      = 0x23
	OpLBU     = 0x24
	OpLHU     = 0x25
	OpLWR     = 0x26
	OpLWU     = 0x27
	OpSB      = 0x28
	OpSH      = 0x29
	OpSWL     = 0x2a
	OpSW      = 0x2b
	OpSDL     = 0x2c
	OpSDR     = 0x2d
	OpSWR     = 0x2e
	OpCACHE   = 0x2f
	OpLL      = 0x30
	OpLWC1    = 0x31
	OpLLD     = 0x34
	OpLDC1    = 0x35
	OpLD      = 0x37
	OpSC      = 0x38
	OpSWC1    = 0x39
	OpSCD     = 0x3c
	OpSDC1    = 0x3d
	OpSD      = 0x3f
)

// SPECIAL function field (bits 5..0) when primary opcode is SPECIAL.
const (
	FnSLL     = 0x00
	FnSRL     = 0x02
	FnSRA     = 0x03
	FnSLLV    = 0x04
	FnSRLV    = 0x06
	FnSRAV    = 0x07
	FnJR      = 0x08
	FnJALR    = 0x09
	FnMOVZ    = 0x0a
	FnMOVN    = 0x0b
	FnSYSCALL = 0x0c
	FnBREAK   = 0x0d
	FnSYNC    = 0x0f
	FnMFHI    = 0x10
	FnMTHI    = 0x11
	FnMFLO    = 0x12
	FnMTLO    = 0x13
	FnDSLLV   = 0x14
	FnDSRLV   = 0x16
	FnDSRAV   = 0x17
	FnMULT    = 0x18
	FnMULTU   = 0x19
	FnDIV     = 0x1a
	FnDIVU    = 0x1b
	FnDMULT   = 0x1c
	FnDMULTU  = 0x1d
	FnDDIV    = 0x1e
	FnDDIVU   = 0x1f
	FnADD     = 0x20
	FnADDU    = 0x21
	FnSUB     = 0x22
	FnSUBU    = 0x23
	FnAND     = 0x24
	FnOR      = 0x25
	FnXOR     = 0x26
	FnNOR     = 0x27
	FnSLT     = 0x2a
	FnSLTU    = 0x2b
	FnDADD    = 0x2c
	FnDADDU   = 0x2d
	FnDSUB    = 0x2e
	FnDSUBU   = 0x2f
	FnTGE     = 0x30
	FnTGEU    = 0x31
	FnTLT     = 0x32
	FnTLTU    = 0x33
	FnTEQ     = 0x34
	FnTNE     = 0x36
	FnDSLL    = 0x38
	FnDSRL    = 0x3a
	FnDSRA    = 0x3b
	FnDSLL32  = 0x3c
	FnDSRL32  = 0x3e
	FnDSRA32  = 0x3f
)

// REGIMM rt field (bits 20..16) when primary opcode is REGIMM.
const (
	RtBLTZ   = 0x00
	RtBGEZ   = 0x01
	RtBLTZL  = 0x02
	RtBGEZL  = 0x03
	RtBLTZAL = 0x10
	RtBGEZAL = 0x11
)

// COP0 rs field (bits 25..21) when primary opcode is COP0.
const (
	CoRsMF   = 0x00
	CoRsDMF  = 0x01
	CoRsMT   = 0x04
	CoRsDMT  = 0x05
	CoRsCO   = 0x10 // co-processor operation, funct in low 6 bits
)

// COP0 CO function field.
const (
	CoFnTLBR  = 0x01
	CoFnTLBWI = 0x02
	CoFnTLBWR = 0x06
	CoFnTLBP  = 0x08
	CoFnERET  = 0x18
)

// Decode splits a 32-bit instruction word into its fields. Not every
// field is meaningful for every instruction; callers interpret them
// according to the opcode/funct per the ILT's matched handler.
type Decode struct {
	Word   uint32
	Opcode uint8
	RS     uint8
	RT     uint8
	RD     uint8
	Shamt  uint8
	Funct  uint8
	Imm16  uint16
	Target uint32
}

// DecodeWord splits a raw instruction word into its fields.
func DecodeWord(word uint32) Decode {
	return Decode{
		Word:   word,
		Opcode: uint8(word >> 26),
		RS:     uint8((word >> 21) & 0x1f),
		RT:     uint8((word >> 16) & 0x1f),
		RD:     uint8((word >> 11) & 0x1f),
		Shamt:  uint8((word >> 6) & 0x1f),
		Funct:  uint8(word & 0x3f),
		Imm16:  uint16(word & 0xffff),
		Target: word & 0x03ffffff,
	}
}

// SignExtend16 sign-extends a 16-bit immediate to 64 bits.
func SignExtend16(imm uint16) uint64 {
	return uint64(int64(int16(imm)))
}

// SignExtend32 sign-extends a 32-bit value to 64 bits.
func SignExtend32(v uint32) uint64 {
	return uint64(int64(int32(v)))
}
