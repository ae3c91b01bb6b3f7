package mips64

import "unsafe"

// Byte offsets into CPU, computed once from the canonical structure
// so that emitted code (which bakes offsets into its addressing
// modes) and the interpreter (which uses these same constants through
// the accessors above) can never disagree about layout.
var (
	probe CPU

	OffsetGPR0      = int32(unsafe.Offsetof(probe.GPR))
	OffsetPC        = int32(unsafe.Offsetof(probe.PC))
	OffsetHI        = int32(unsafe.Offsetof(probe.HI))
	OffsetLO        = int32(unsafe.Offsetof(probe.LO))
	OffsetCP00      = int32(unsafe.Offsetof(probe.CP0))
	OffsetFastLine0 = int32(unsafe.Offsetof(probe.FastLine))
	FastLineStride  = int32(unsafe.Sizeof(probe.FastLine[0]))
)

// OffsetGPR returns the byte offset of GPR[n] within CPU.
func OffsetGPR(reg uint8) int32 {
	return OffsetGPR0 + int32(reg)*8
}

// OffsetCP0 returns the byte offset of CP0[n] within CPU.
func OffsetCP0(reg uint8) int32 {
	return OffsetCP00 + int32(reg)*8
}

// OffsetFastLine returns the byte offset of FastLine[n] within CPU.
func OffsetFastLine(n uint8) int32 {
	return OffsetFastLine0 + int32(n)*FastLineStride
}
