package parser

import (
	"testing"

	"github.com/rcornwell/mips64vm/emu/core"
	"github.com/rcornwell/mips64vm/emu/master"
	"github.com/rcornwell/mips64vm/emu/memory"
)

func newTestCore(t *testing.T) (*core.Core, chan master.Packet) {
	t.Helper()
	ch := make(chan master.Packet, 8)
	c := core.New(nil, ch)
	c.AddRAM(memory.New(0, 0x10000))
	return c, ch
}

func TestProcessCommandEmptyLineIsNoop(t *testing.T) {
	c, _ := newTestCore(t)
	quit, err := ProcessCommand("   ", c)
	if quit || err != nil {
		t.Errorf("empty line: quit=%v err=%v, want false, nil", quit, err)
	}
}

func TestProcessCommandRejectsUnknownVerb(t *testing.T) {
	c, _ := newTestCore(t)
	_, err := ProcessCommand("frobnicate", c)
	if err == nil {
		t.Error("unknown verb should return an error")
	}
}

func TestProcessCommandQuitReturnsTrue(t *testing.T) {
	c, _ := newTestCore(t)
	quit, err := ProcessCommand("quit", c)
	if !quit || err != nil {
		t.Errorf("quit: quit=%v err=%v, want true, nil", quit, err)
	}
}

func TestProcessCommandStepPostsStepPacket(t *testing.T) {
	c, ch := newTestCore(t)
	if _, err := ProcessCommand("step", c); err != nil {
		t.Fatalf("step: %v", err)
	}
	select {
	case p := <-ch:
		if p.Msg != master.Step {
			t.Errorf("posted Msg = %v, want Step", p.Msg)
		}
	default:
		t.Fatal("step should post a packet to the master channel")
	}
}

func TestProcessCommandBreakPostsAddAndRemove(t *testing.T) {
	c, ch := newTestCore(t)
	if _, err := ProcessCommand("break 0x1000", c); err != nil {
		t.Fatalf("break add: %v", err)
	}
	p := <-ch
	if p.Msg != master.Breakpoint || p.Addr != 0x1000 || p.Remove {
		t.Errorf("add packet = %+v", p)
	}

	if _, err := ProcessCommand("break -0x1000", c); err != nil {
		t.Fatalf("break remove: %v", err)
	}
	p = <-ch
	if p.Msg != master.Breakpoint || p.Addr != 0x1000 || !p.Remove {
		t.Errorf("remove packet = %+v", p)
	}
}

func TestProcessCommandBreakRejectsBadAddress(t *testing.T) {
	c, _ := newTestCore(t)
	if _, err := ProcessCommand("break not-a-number", c); err == nil {
		t.Error("break with a malformed address should error")
	}
}

func TestProcessCommandMemRequiresAnAddress(t *testing.T) {
	c, _ := newTestCore(t)
	if _, err := ProcessCommand("mem", c); err == nil {
		t.Error("mem with no address should error")
	}
}

func TestProcessCommandTLBRejectsOutOfRangeIndex(t *testing.T) {
	c, _ := newTestCore(t)
	if _, err := ProcessCommand("tlb 999", c); err == nil {
		t.Error("tlb with an out-of-range index should error")
	}
}

func TestCompleteCmdReturnsSortedPrefixMatches(t *testing.T) {
	got := CompleteCmd("s")
	want := []string{"save", "step"}
	if len(got) != len(want) {
		t.Fatalf("CompleteCmd(\"s\") = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CompleteCmd(\"s\")[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
