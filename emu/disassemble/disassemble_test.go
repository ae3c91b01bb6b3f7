package disassembler

import "testing"

func TestDisassembleADDIU(t *testing.T) {
	// addiu $1, $2, 10
	word := uint32(0x24410000 | 10)
	got := Disassemble(word)
	want := "ADDIU   $1,$2,10"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestDisassembleADD(t *testing.T) {
	// add $1, $2, $3: opcode 0, rs=2 rt=3 rd=1 shamt=0 funct=0x20
	word := uint32(2)<<21 | uint32(3)<<16 | uint32(1)<<11 | 0x20
	got := Disassemble(word)
	want := "ADD     $1,$2,$3"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestDisassembleLW(t *testing.T) {
	// lw $4, -8($29): opcode 0x23, rs=29, rt=4, imm=-8
	word := uint32(0x23)<<26 | uint32(29)<<21 | uint32(4)<<16 | uint32(0xfff8)
	got := Disassemble(word)
	want := "LW      $4,-8($29)"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestDisassembleBEQ(t *testing.T) {
	// beq $1, $2, 4: opcode 4, rs=1, rt=2, imm=1 (word offset)
	word := uint32(4)<<26 | uint32(1)<<21 | uint32(2)<<16 | 1
	got := Disassemble(word)
	want := "BEQ     $1,$2,4"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestDisassembleJ(t *testing.T) {
	// j 0x1000 -> target index = 0x400
	word := uint32(2)<<26 | uint32(0x400)
	got := Disassemble(word)
	want := "J       0x1000"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}

func TestDisassembleSLL(t *testing.T) {
	// sll $1, $2, 4: opcode 0, rt=2, rd=1, shamt=4, funct=0
	word := uint32(2)<<16 | uint32(1)<<11 | uint32(4)<<6
	got := Disassemble(word)
	want := "SLL     $1,$2,4"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
