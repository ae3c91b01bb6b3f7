/*
mips64vm regular timer event.

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

// Package timer drives the CPU's virtual Count/Compare pair from a
// dedicated goroutine at a configurable frequency, posting
// master.TimerTick packets instead of directly touching CP0 state, so
// the tick is applied on the CPU's own goroutine rather than the
// timer's.
package timer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/mips64vm/emu/master"
)

type Timer struct {
	wg      sync.WaitGroup
	running bool
	master  chan master.Packet
	enable  chan bool
	done    chan struct{}
	ticker  *time.Ticker
	period  time.Duration

	Log *slog.Logger
}

// New creates a timer that will post master.TimerTick packets at
// freqHz once started. freqHz <= 0 defaults to 100 Hz (a 10ms period),
// matching the CPU's default ClockDivisor/TimerFreqHz reset values.
func New(masterChannel chan master.Packet, freqHz int, log *slog.Logger) *Timer {
	if freqHz <= 0 {
		freqHz = 100
	}
	t := &Timer{
		master: masterChannel,
		enable: make(chan bool, 1),
		done:   make(chan struct{}),
		period: time.Second / time.Duration(freqHz),
		Log:    log,
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// Start enables periodic tick delivery.
func (t *Timer) Start() { t.enable <- true }

// Stop suspends tick delivery without tearing down the goroutine.
func (t *Timer) Stop() { t.enable <- false }

// Shutdown stops the timer goroutine, waiting up to one second.
func (t *Timer) Shutdown() {
	close(t.done)
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		if t.Log != nil {
			t.Log.Warn("timed out waiting for timer to finish")
		}
	}
}

func (t *Timer) run() {
	defer t.wg.Done()
	t.ticker = time.NewTicker(t.period)
	defer t.ticker.Stop()

	for {
		select {
		case <-t.ticker.C:
			if t.running {
				t.master <- master.Packet{Msg: master.TimerTick}
			}
		case t.running = <-t.enable:
			if t.running {
				t.ticker.Reset(t.period)
			}
		case <-t.done:
			return
		}
	}
}
