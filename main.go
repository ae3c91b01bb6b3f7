/*
mips64vm - Main process.

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

package main

import (
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/mips64vm/command/reader"
	"github.com/rcornwell/mips64vm/config/configparser"
	"github.com/rcornwell/mips64vm/config/debugconfig"
	"github.com/rcornwell/mips64vm/emu/core"
	"github.com/rcornwell/mips64vm/emu/master"
	"github.com/rcornwell/mips64vm/emu/memory"
	"github.com/rcornwell/mips64vm/emu/timer"
	"github.com/rcornwell/mips64vm/telnet"
	"github.com/rcornwell/mips64vm/util/logger"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "mips64vm.cfg", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optROM := getopt.StringLong("rom", 'r', "", "Raw ROM/boot image to load at the configured entry PC")
	optELF := getopt.StringLong("elf", 'e', "", "ELF image to load (overrides the configured entry PC)")
	optJIT := getopt.BoolLong("jit", 'j', "Enable the JIT (overrides the configuration file)")
	optNoJIT := getopt.BoolLong("no-jit", 0, "Disable the JIT (overrides the configuration file)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if optLogFile != nil && *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	debugOn := false
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, &debugOn))
	slog.SetDefault(Logger)

	Logger.Info("mips64vm started")

	cfg := configparser.Config{
		RAMSizeBytes: 64 << 20,
		ClockDivisor: 1,
		TimerFreqHz:  100,
	}
	if optConfig != nil && *optConfig != "" {
		if _, err := os.Stat(*optConfig); err == nil {
			if err := configparser.LoadConfigFile(*optConfig, &cfg); err != nil {
				Logger.Error(err.Error())
				os.Exit(1)
			}
		}
	}
	if err := debugconfig.Apply(&cfg); err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	if optROM != nil && *optROM != "" {
		cfg.ROMPath = *optROM
	}
	if optELF != nil && *optELF != "" {
		cfg.ELFPath = *optELF
	}
	if optJIT != nil && *optJIT {
		cfg.JITEnable = true
	}
	if optNoJIT != nil && *optNoJIT {
		cfg.JITEnable = false
	}

	masterChannel := make(chan master.Packet)

	c := core.New(Logger, masterChannel)
	c.CPU.PageMask = cfg.AddrBusMask
	c.CPU.ClockDivisor = uint32(cfg.ClockDivisor)
	c.CPU.TimerFreqHz = uint32(cfg.TimerFreqHz)
	c.CPU.JITEnabled = cfg.JITEnable
	if cfg.IdlePC != 0 {
		c.CPU.IdlePC = cfg.IdlePC
		c.CPU.HasIdlePC = true
	}
	c.CPU.Breakpoints = append(c.CPU.Breakpoints, cfg.Breakpoints...)

	ram := memory.New(0, cfg.RAMSizeBytes)
	c.AddRAM(ram)

	runner, err := newRunner(c.MTS, cfg.JITEnable)
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}
	c.SetJIT(runner)

	switch {
	case cfg.ELFPath != "":
		image, err := os.ReadFile(cfg.ELFPath)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		entry, err := ram.LoadELF(image)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		c.CPU.PC = entry
	case cfg.ROMPath != "":
		image, err := os.ReadFile(cfg.ROMPath)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		if err := ram.LoadRaw(cfg.EntryPC, image); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		c.CPU.PC = cfg.EntryPC
	default:
		c.CPU.PC = cfg.EntryPC
	}

	tick := timer.New(masterChannel, cfg.TimerFreqHz, Logger)
	tick.Start()

	go c.Start()

	console, err := telnet.Attach()
	if err != nil {
		Logger.Error(err.Error())
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go reader.ConsoleReader(c)

	<-sigChan

	Logger.Info("shutting down")
	if err := console.Detach(); err != nil {
		Logger.Warn(err.Error())
	}
	tick.Shutdown()
	c.Stop()
}
