// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht11test simulates a DHT11 on a fake GPIO to test the driver
// without hardware.
//
// Time is virtual: every Read() of the line advances a fake clock by
// Sensor.PollCost, and Timebase.Sleep() advances it by the requested
// duration. The driver timing is thus fully deterministic.
package dht11test

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Default pulse lengths, from the datasheet.
const (
	ResponseDelay = 30 * time.Microsecond
	AckLow        = 80 * time.Microsecond
	AckHigh       = 80 * time.Microsecond
	BitLow        = 50 * time.Microsecond
	ZeroHigh      = 26 * time.Microsecond
	OneHigh       = 70 * time.Microsecond

	// MinStartLow is the shortest start signal the sensor answers to.
	MinStartLow = 18 * time.Millisecond
)

// Timebase implements dht11.Timebase on the fake clock of a Sensor.
type Timebase struct {
	clock clockwork.FakeClock
	epoch time.Time
}

// Micros implements dht11.Timebase.
func (t *Timebase) Micros() uint32 {
	return uint32(t.clock.Since(t.epoch) / time.Microsecond)
}

// Sleep implements dht11.Timebase. It advances the fake clock.
func (t *Timebase) Sleep(d time.Duration) {
	t.clock.Advance(d)
}

type level struct {
	l gpio.Level
	d time.Duration
}

// Sensor is a simulated DHT11 attached to a pin.
//
// Modify its exported members before starting a transaction.
type Sensor struct {
	gpiotest.Pin

	// Frame is sent on each answered start signal.
	Frame [5]byte
	// Zero and One are the lengths of the high pulses encoding the bits.
	Zero, One time.Duration
	// High overrides Zero and One for individual bits when non-nil.
	High func(bit int, one bool) time.Duration
	// PollCost is how much the virtual time advances on each Read().
	PollCost time.Duration
	// Silent makes the sensor ignore start signals.
	Silent bool
	// Drop makes the sensor ignore that many start signals before answering.
	Drop int

	mu       sync.Mutex
	clock    clockwork.FakeClock
	tb       *Timebase
	driving  bool
	lowSince time.Time
	armed    bool
	starts   int
	answers  int
	origin   time.Time
	wave     []level
	reads    int
}

// NewSensor returns a Sensor sending frame.
func NewSensor(name string, frame [5]byte) *Sensor {
	c := clockwork.NewFakeClock()
	s := &Sensor{
		Pin:      gpiotest.Pin{N: name, Num: 4, Fn: "In/PullUp", L: gpio.High, Clock: c},
		Frame:    frame,
		Zero:     ZeroHigh,
		One:      OneHigh,
		PollCost: time.Microsecond,
		clock:    c,
		tb:       &Timebase{clock: c, epoch: c.Now()},
	}
	return s
}

// Timebase returns the virtual microsecond counter to pass in dht11.Opts.
func (s *Sensor) Timebase() *Timebase {
	return s.tb
}

// Starts returns the number of valid start signals received.
func (s *Sensor) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts
}

// Answers returns the number of start signals the sensor answered.
func (s *Sensor) Answers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers
}

// Reads returns the number of times the line was read.
func (s *Sensor) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Out implements gpio.PinOut.
func (s *Sensor) Out(l gpio.Level) error {
	s.mu.Lock()
	now := s.clock.Now()
	if l == gpio.Low {
		if !s.driving || s.Pin.Read() == gpio.High {
			s.lowSince = now
		}
		s.armed = false
		s.wave = nil
	} else if s.driving && s.Pin.Read() == gpio.Low && now.Sub(s.lowSince) >= MinStartLow {
		s.armed = true
	}
	s.driving = true
	s.mu.Unlock()
	return s.Pin.Out(l)
}

// In implements gpio.PinIn. Releasing the line after a start signal makes the
// sensor answer.
func (s *Sensor) In(pull gpio.Pull, edge gpio.Edge) error {
	s.mu.Lock()
	if s.driving && s.armed {
		s.starts++
		s.armed = false
		if !s.Silent && s.starts > s.Drop {
			s.answers++
			s.origin = s.clock.Now()
			s.wave = s.waveform()
		}
	}
	s.driving = false
	s.mu.Unlock()
	return s.Pin.In(pull, edge)
}

// Read implements gpio.PinIn. It advances the virtual time by PollCost then
// samples the line.
func (s *Sensor) Read() gpio.Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	s.clock.Advance(s.PollCost)
	if s.driving {
		return s.Pin.Read()
	}
	if s.wave == nil {
		return gpio.High
	}
	t := s.clock.Now().Sub(s.origin)
	for _, seg := range s.wave {
		if t < seg.d {
			return seg.l
		}
		t -= seg.d
	}
	// Transaction over, the pull-up takes over.
	return gpio.High
}

func (s *Sensor) waveform() []level {
	w := make([]level, 0, 4+2*8*len(s.Frame))
	w = append(w, level{gpio.High, ResponseDelay}, level{gpio.Low, AckLow}, level{gpio.High, AckHigh})
	for i := 0; i < 8*len(s.Frame); i++ {
		one := s.Frame[i/8]&(1<<uint(7-i%8)) != 0
		d := s.Zero
		if one {
			d = s.One
		}
		if s.High != nil {
			d = s.High(i, one)
		}
		w = append(w, level{gpio.Low, BitLow}, level{gpio.High, d})
	}
	return append(w, level{gpio.Low, BitLow})
}

var _ gpio.PinIO = &Sensor{}
