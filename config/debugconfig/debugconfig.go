/*
mips64vm debug category wiring.

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

// Package debugconfig applies a loaded configuration's debug group
// list to the util/debug mask, covering the flat category set (cpu,
// jit, tlb, irq) this emulator's ambient config grammar carries.
package debugconfig

import (
	"fmt"

	"github.com/rcornwell/mips64vm/config/configparser"
	"github.com/rcornwell/mips64vm/util/debug"
)

// Apply enables every debug group named in cfg.DebugGroups, returning
// an error naming the first group it doesn't recognize.
func Apply(cfg *configparser.Config) error {
	for _, group := range cfg.DebugGroups {
		if !debug.Enable(group) {
			return fmt.Errorf("unknown debug group: %s", group)
		}
	}
	return nil
}
