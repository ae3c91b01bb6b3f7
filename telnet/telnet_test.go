package telnet

import "testing"

func TestAttachNonTerminalIsNoOp(t *testing.T) {
	// Under `go test`, stdin is not a terminal, so Attach must not
	// attempt MakeRaw and Detach must be a harmless no-op.
	s, err := Attach()
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if s.raw {
		t.Error("raw = true for a non-terminal stdin")
	}
	if err := s.Detach(); err != nil {
		t.Errorf("Detach: %v", err)
	}
}
