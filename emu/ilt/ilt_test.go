package ilt

import "testing"

func TestLookupRecognizesPrimaryAndSpecialOpcodes(t *testing.T) {
	cases := []struct {
		name string
		word uint32
		want Kind
	}{
		{"addiu $1,$0,5", 0x24010005, KindADDIU},
		{"addu $3,$1,$2", 0x00221821, KindADDU},
		{"nor $3,$1,$2", 0x00221827, KindNOR},
		{"beq $1,$2,8", 0x10220002, KindBEQ},
		{"lw $1,0($2)", 0x8c410000, KindLW},
		{"sw $1,0($2)", 0xac410000, KindSW},
		{"jr $31", 0x03e00008, KindJR},
	}
	for _, c := range cases {
		if got := Lookup(c.word); got != c.want {
			t.Errorf("%s: Lookup(%#08x) = %v, want %v", c.name, c.word, got, c.want)
		}
	}
}

func TestLookupRejectsUnknownOpcode(t *testing.T) {
	if got := Lookup(0xec000000); got != KindUnknown {
		t.Errorf("Lookup(reserved) = %v, want KindUnknown", got)
	}
}

func TestIsBranchCoversBranchesAndJumpsOnly(t *testing.T) {
	if !IsBranch(KindBEQ) {
		t.Error("BEQ should be a branch")
	}
	if !IsBranch(KindJ) {
		t.Error("J should be a branch")
	}
	if IsBranch(KindADDU) {
		t.Error("ADDU should not be a branch")
	}
}

func TestIsLikelyOnlyMatchesLikelyVariants(t *testing.T) {
	if !IsLikely(KindBEQL) {
		t.Error("BEQL should be likely")
	}
	if IsLikely(KindBEQ) {
		t.Error("BEQ should not be likely")
	}
}

func TestMnemonicFormatsKnownAndUnknownWords(t *testing.T) {
	if got := Mnemonic(0x24010005); got == "" {
		t.Error("Mnemonic for addiu should not be empty")
	}
	if got := Mnemonic(0xec000000); got == "" {
		t.Error("Mnemonic for an unknown word should still produce text")
	}
}
