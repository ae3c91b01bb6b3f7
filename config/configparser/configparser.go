/*
mips64vm configuration file parser.

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

// Package configparser reads a flat "option = value" text configuration
// file covering the scalar option set a single emulated CPU needs:
// RAM size, ROM image path, entry/idle PC, JIT enable, clock divisor,
// timer frequency, breakpoint list, and physical address-bus mask.
package configparser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Config holds every option a configuration file can set. Fields left
// at their zero value keep whatever default the caller populated
// Config with before calling LoadConfigFile.
type Config struct {
	RAMSizeBytes  uint64
	ROMPath       string
	ELFPath       string
	EntryPC       uint64
	IdlePC        uint64
	JITEnable     bool
	ClockDivisor  uint
	TimerFreqHz   int
	AddrBusMask   uint64
	Breakpoints   []uint64
	DebugGroups   []string
}

var lineNumber int

// LoadConfigFile parses name into cfg, applying one "option = value"
// (or bare switch) assignment per non-comment, non-blank line.
func LoadConfigFile(name string, cfg *Config) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	lineNumber = 0
	reader := bufio.NewReader(file)
	for {
		raw, err := reader.ReadString('\n')
		lineNumber++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		if perr := parseLine(raw, cfg); perr != nil {
			return perr
		}
		if err != nil {
			break
		}
	}
	return nil
}

func parseLine(raw string, cfg *Config) error {
	line := stripComment(raw)
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	name, value, hasValue := splitAssignment(line)
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)

	switch name {
	case "ramsize":
		n, err := parseSize(value)
		if err != nil {
			return fmt.Errorf("line %d: ramsize: %w", lineNumber, err)
		}
		cfg.RAMSizeBytes = n
	case "rom":
		if !hasValue {
			return fmt.Errorf("line %d: rom requires a path", lineNumber)
		}
		cfg.ROMPath = value
	case "elf":
		if !hasValue {
			return fmt.Errorf("line %d: elf requires a path", lineNumber)
		}
		cfg.ELFPath = value
	case "entrypc":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: entrypc: %w", lineNumber, err)
		}
		cfg.EntryPC = n
	case "idlepc":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: idlepc: %w", lineNumber, err)
		}
		cfg.IdlePC = n
	case "jit":
		cfg.JITEnable = parseBool(value)
	case "clockdivisor":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: clockdivisor: %w", lineNumber, err)
		}
		cfg.ClockDivisor = uint(n)
	case "timerfreq":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: timerfreq: %w", lineNumber, err)
		}
		cfg.TimerFreqHz = int(n)
	case "addrbusmask":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: addrbusmask: %w", lineNumber, err)
		}
		cfg.AddrBusMask = n
	case "breakpoint":
		n, err := parseUint(value)
		if err != nil {
			return fmt.Errorf("line %d: breakpoint: %w", lineNumber, err)
		}
		cfg.Breakpoints = append(cfg.Breakpoints, n)
	case "debug":
		for _, group := range strings.Split(value, ",") {
			group = strings.TrimSpace(group)
			if group != "" {
				cfg.DebugGroups = append(cfg.DebugGroups, group)
			}
		}
	default:
		return fmt.Errorf("line %d: unknown option %q", lineNumber, name)
	}
	return nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// splitAssignment separates "name = value" or bare "name" (a switch,
// e.g. "jit" alone meaning enabled).
func splitAssignment(line string) (name, value string, hasValue bool) {
	if i := strings.IndexByte(line, '='); i >= 0 {
		return line[:i], line[i+1:], true
	}
	return line, "true", false
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "true", "yes", "on", "1":
		return true
	default:
		return false
	}
}

// parseUint accepts decimal or 0x-prefixed hex.
func parseUint(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	base := 10
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		v = v[2:]
		base = 16
	}
	return strconv.ParseUint(v, base, 64)
}

// parseSize accepts a plain integer or one suffixed with K/M/G
// (binary multiples), matching the address-literal convention used
// throughout the rest of the configuration grammar.
func parseSize(v string) (uint64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, errors.New("missing value")
	}
	last := v[len(v)-1]
	mult := uint64(1)
	switch unicode.ToUpper(rune(last)) {
	case 'K':
		mult = 1 << 10
		v = v[:len(v)-1]
	case 'M':
		mult = 1 << 20
		v = v[:len(v)-1]
	case 'G':
		mult = 1 << 30
		v = v[:len(v)-1]
	}
	n, err := parseUint(v)
	if err != nil {
		return 0, err
	}
	return n * mult, nil
}
