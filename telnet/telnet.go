/*
mips64vm local console raw-mode helper.

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

// Package telnet manages the debug console's local-terminal attach
// path: putting a real attached TTY into raw mode so the console
// reader sees every keystroke immediately instead of line-buffered,
// using golang.org/x/term.
package telnet

import (
	"os"

	"golang.org/x/term"
)

// Session holds the state needed to restore a terminal's original
// mode on shutdown.
type Session struct {
	fd       int
	oldState *term.State
	raw      bool
}

// Attach puts stdin into raw mode when it is a real terminal,
// returning a Session whose Detach restores it. Attaching to a
// non-terminal stdin (a pipe, a redirected file) is a no-op so
// scripted/non-interactive runs are unaffected.
func Attach() (*Session, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &Session{fd: fd}, nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return &Session{fd: fd, oldState: old, raw: true}, nil
}

// Detach restores the terminal's original mode, if Attach changed it.
func (s *Session) Detach() error {
	if !s.raw {
		return nil
	}
	return term.Restore(s.fd, s.oldState)
}
