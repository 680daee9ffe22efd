// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
)

// Timebase is the free running microsecond counter the protocol is timed
// against.
//
// Micros must be monotonic for the duration of a transaction. The counter may
// wrap around; the driver only ever uses the difference of two values.
type Timebase interface {
	Micros() uint32
	// Sleep blocks for at least d. It is used for the start signal and the
	// delay between attempts, which are not timing critical.
	Sleep(d time.Duration)
}

// ClockTimebase is a Timebase derived from a clockwork.Clock.
type ClockTimebase struct {
	clock clockwork.Clock
	epoch time.Time
}

// NewClockTimebase returns a Timebase counting microseconds from now.
//
// Use clockwork.NewRealClock() on hardware. A clockwork.FakeClock doesn't
// advance on its own, use the dht11test package to simulate a sensor instead.
func NewClockTimebase(c clockwork.Clock) *ClockTimebase {
	return &ClockTimebase{clock: c, epoch: c.Now()}
}

// Micros implements Timebase.
func (c *ClockTimebase) Micros() uint32 {
	return uint32(c.clock.Since(c.epoch) / time.Microsecond)
}

// Sleep implements Timebase.
func (c *ClockTimebase) Sleep(d time.Duration) {
	c.clock.Sleep(d)
}

// waitLevel polls the line until it reads l or until more than timeout µs
// elapsed. It returns how long it polled.
//
// There is no delay between reads; this is the tightest loop the hardware
// allows.
func waitLevel(p gpio.PinIn, tb Timebase, l gpio.Level, timeout uint32) (uint32, bool) {
	start := tb.Micros()
	for p.Read() != l {
		if elapsed := tb.Micros() - start; elapsed > timeout {
			return elapsed, false
		}
	}
	return tb.Micros() - start, true
}

// spin burns n loop iterations. It is not time calibrated. The result must be
// stored by the caller so the loop isn't discarded.
func spin(n int) int {
	s := 0
	for i := 0; i < n; i++ {
		s += i
	}
	return s
}
