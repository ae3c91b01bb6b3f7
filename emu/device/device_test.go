package device

import "testing"

type fakeDevice struct {
	name string
	regs map[uint64]uint64
}

func (f *fakeDevice) Name() string { return f.name }

func (f *fakeDevice) PhysRead(offset uint64, size int) uint64 { return f.regs[offset] }

func (f *fakeDevice) PhysWrite(offset uint64, size int, value uint64) { f.regs[offset] = value }

func (f *fakeDevice) Shutdown() {}

func TestDeviceImplementationsRoundTripRegisterAccess(t *testing.T) {
	var d Device = &fakeDevice{name: "uart0", regs: map[uint64]uint64{}}
	d.PhysWrite(4, 4, 0x2a)
	if got := d.PhysRead(4, 4); got != 0x2a {
		t.Errorf("PhysRead(4) = %#x, want 0x2a", got)
	}
	if d.Name() != "uart0" {
		t.Errorf("Name() = %s, want uart0", d.Name())
	}
}

func TestNoDeviceIsDistinctFromAnyRealIndex(t *testing.T) {
	if NoDevice == 0 {
		t.Error("NoDevice should not collide with a valid zero device index")
	}
	if NoDevice != ^uint32(0) {
		t.Errorf("NoDevice = %#x, want all-ones", NoDevice)
	}
}
