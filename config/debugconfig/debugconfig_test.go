package debugconfig

import (
	"testing"

	"github.com/rcornwell/mips64vm/config/configparser"
	"github.com/rcornwell/mips64vm/util/debug"
)

func TestApplyEnablesEveryNamedGroup(t *testing.T) {
	cfg := &configparser.Config{DebugGroups: []string{"cpu", "TLB"}}
	if err := Apply(cfg); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !debug.Enabled(debug.CPU) {
		t.Error("cpu group should be enabled")
	}
	if !debug.Enabled(debug.TLB) {
		t.Error("tlb group should be enabled")
	}
}

func TestApplyReportsFirstUnknownGroup(t *testing.T) {
	cfg := &configparser.Config{DebugGroups: []string{"cpu", "nonsense"}}
	if err := Apply(cfg); err == nil {
		t.Fatal("Apply should error on an unrecognized debug group")
	}
}
