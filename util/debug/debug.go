/*
mips64vm mask-gated debug logging.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package debug gates verbose component tracing behind a bitmask.
// Instead of a dedicated debug file and channel/device-number prefix,
// each category writes through the process's slog.Logger at Debug
// level, since every component already carries one.
package debug

import (
	"fmt"
	"log/slog"
	"strings"
)

// Category bits, one per subsystem a config file's "debug" line can
// name.
const (
	CPU uint32 = 1 << iota
	JIT
	TLB
	IRQ
)

var names = map[string]uint32{
	"cpu": CPU,
	"jit": JIT,
	"tlb": TLB,
	"irq": IRQ,
}

var mask uint32

// Enable turns on tracing for the named category ("cpu", "jit", "tlb",
// "irq"), case-insensitively.
func Enable(category string) bool {
	bit, ok := names[strings.ToLower(category)]
	if !ok {
		return false
	}
	mask |= bit
	return true
}

// Enabled reports whether any of the given category bits are active.
func Enabled(category uint32) bool {
	return mask&category != 0
}

// Tracef logs format/args at Debug level through log through the
// given logger when category is enabled; a nil logger is a silent
// no-op so callers need not guard every call site.
func Tracef(log *slog.Logger, category uint32, format string, args ...any) {
	if log == nil || mask&category == 0 {
		return
	}
	log.Debug(fmt.Sprintf(format, args...))
}
