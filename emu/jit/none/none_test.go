package none

import (
	"errors"
	"testing"

	"github.com/rcornwell/mips64vm/emu/mips64"
)

func TestRunBlockAlwaysDeclines(t *testing.T) {
	mgr := NewManager()
	cpu := mips64.New()

	n, err := mgr.RunBlock(cpu)
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
	if !errors.Is(err, ErrNotTranslated) {
		t.Errorf("err = %v, want ErrNotTranslated", err)
	}
	if err := mgr.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
