package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerWritesLevelMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, nil, &debug)
	log := slog.New(h)

	log.Info("block translated", "pc", "0x1000")

	out := buf.String()
	if !strings.Contains(out, "INFO:") {
		t.Errorf("output %q missing level prefix", out)
	}
	if !strings.Contains(out, "block translated") {
		t.Errorf("output %q missing message", out)
	}
	if !strings.Contains(out, "0x1000") {
		t.Errorf("output %q missing attr value", out)
	}
}

func TestHandlerEnabledDefersToUnderlyingLevel(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}, &debug)

	if h.Enabled(nil, slog.LevelInfo) {
		t.Error("Info should be disabled when the handler level is Warn")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Error("Error should be enabled when the handler level is Warn")
	}
}

func TestSetDebugTogglesStderrMirroring(t *testing.T) {
	var buf bytes.Buffer
	debug := false
	h := NewHandler(&buf, nil, &debug)
	if h.debug {
		t.Fatal("debug should start false")
	}
	enabled := true
	h.SetDebug(&enabled)
	if !h.debug {
		t.Error("SetDebug(true) should flip h.debug to true")
	}
}
