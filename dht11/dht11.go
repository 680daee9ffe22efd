// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// MinInterval is the minimum interval between two readings recommended by
// the datasheet. SenseContinuous() rejects shorter intervals.
const MinInterval = time.Second

// Opts holds the configuration options for the device. Timeouts are in µs.
type Opts struct {
	// StartLow is how long the line is held low to start a transaction.
	// Default is 20ms.
	StartLow time.Duration
	// StartHighSpins is the length of the short high pulse sent after the
	// start signal, in loop iterations. Default is 80.
	StartHighSpins int
	// AckTimeout bounds each half of the sensor acknowledgment. Default is
	// 120µs.
	AckTimeout uint32
	// BitLowTimeout bounds the gap before each bit. Default is 80µs.
	BitLowTimeout uint32
	// BitHighTimeout bounds the wait for the start of a bit pulse. Default is
	// 120µs.
	BitHighTimeout uint32
	// BitEndTimeout bounds the bit pulse itself. Default is 300µs.
	BitEndTimeout uint32
	// BitThreshold is the pulse length above which a bit is 1. Default is
	// 50µs.
	BitThreshold uint32
	// Attempts is the number of transactions tried by Read(). Default is 3.
	Attempts int
	// RetryDelay lets the sensor settle between attempts. Default is 200ms.
	// It is slept through Timebase.Sleep rather than busy-waited, so other
	// goroutines may run between attempts.
	RetryDelay time.Duration
	// Timebase defaults to the real clock.
	Timebase Timebase
	// Tracer is optional.
	Tracer Tracer
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	StartLow:       20 * time.Millisecond,
	StartHighSpins: 80,
	AckTimeout:     120,
	BitLowTimeout:  80,
	BitHighTimeout: 120,
	BitEndTimeout:  300,
	BitThreshold:   50,
	Attempts:       3,
	RetryDelay:     200 * time.Millisecond,
}

// Dev is a handle to a DHT11 connected to a single GPIO.
type Dev struct {
	line gpio.PinIO
	opts Opts
	tb   Timebase

	// mu is held for a whole transaction.
	mu   sync.Mutex
	spun int

	smu  sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Dev reading the sensor on line. The line must have a pull-up,
// either internal or external. The Opts can be nil, zero fields are set to
// their default.
//
// The line is released to input, which is the idle state of the bus.
func New(line gpio.PinIO, opts *Opts) (*Dev, error) {
	if line == nil {
		return nil, errors.New("dht11: line is nil")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{line: line, opts: *opts}
	d.opts.setDefaults()
	d.tb = d.opts.Timebase
	if d.tb == nil {
		d.tb = NewClockTimebase(clockwork.NewRealClock())
	}
	if err := d.release(); err != nil {
		return nil, err
	}
	return d, nil
}

func (o *Opts) setDefaults() {
	if o.StartLow <= 0 {
		o.StartLow = DefaultOpts.StartLow
	}
	if o.StartHighSpins <= 0 {
		o.StartHighSpins = DefaultOpts.StartHighSpins
	}
	if o.AckTimeout == 0 {
		o.AckTimeout = DefaultOpts.AckTimeout
	}
	if o.BitLowTimeout == 0 {
		o.BitLowTimeout = DefaultOpts.BitLowTimeout
	}
	if o.BitHighTimeout == 0 {
		o.BitHighTimeout = DefaultOpts.BitHighTimeout
	}
	if o.BitEndTimeout == 0 {
		o.BitEndTimeout = DefaultOpts.BitEndTimeout
	}
	if o.BitThreshold == 0 {
		o.BitThreshold = DefaultOpts.BitThreshold
	}
	if o.Attempts <= 0 {
		o.Attempts = DefaultOpts.Attempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultOpts.RetryDelay
	}
}

// Read runs a transaction and returns a reading with a valid checksum.
//
// Up to Opts.Attempts attempts are made; a timeout and a checksum mismatch
// both consume one attempt. When all attempts failed, the error is an
// *ExhaustedError. Other errors come from the GPIO itself.
//
// Read blocks the calling goroutine, and its OS thread, until done.
func (d *Dev) Read() (Reading, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A GC pause or a goroutine switch in the middle of a bit corrupts it.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	pauseGC()
	defer resumeGC()

	if err := d.release(); err != nil {
		return Reading{}, err
	}
	var last error
	for attempt := 1; attempt <= d.opts.Attempts; attempt++ {
		if attempt > 1 {
			d.tb.Sleep(d.opts.RetryDelay)
		}
		d.trace(Event{Kind: EventAttempt, Attempt: attempt})

		var f Frame
		if err := d.decode(attempt, &f); err != nil {
			var te *TimeoutError
			if !errors.As(err, &te) {
				return Reading{}, err
			}
			last = err
			continue
		}
		if !f.Valid() {
			last = &ChecksumError{Frame: f, Want: f.Checksum()}
			d.trace(Event{Kind: EventChecksum, Attempt: attempt, Frame: f, Err: last})
			continue
		}
		d.trace(Event{Kind: EventChecksum, Attempt: attempt, Frame: f})
		d.trace(Event{Kind: EventReading, Attempt: attempt, Frame: f})
		return f.Reading(), nil
	}
	return Reading{}, &ExhaustedError{Attempts: d.opts.Attempts, Last: last}
}

// decode runs one transaction and fills f. f must be zero.
func (d *Dev) decode(attempt int, f *Frame) error {
	o := &d.opts
	if err := d.release(); err != nil {
		return err
	}
	if err := d.line.Out(gpio.Low); err != nil {
		return fmt.Errorf("dht11: start signal: %w", err)
	}
	d.tb.Sleep(o.StartLow)
	if err := d.line.Out(gpio.High); err != nil {
		return fmt.Errorf("dht11: start signal: %w", err)
	}
	d.spun = spin(o.StartHighSpins)
	if err := d.release(); err != nil {
		return err
	}
	d.trace(Event{Kind: EventStart, Attempt: attempt})

	if w, ok := waitLevel(d.line, d.tb, gpio.Low, o.AckTimeout); !ok {
		return d.timeout(attempt, StageAckLow, -1, w)
	}
	if w, ok := waitLevel(d.line, d.tb, gpio.High, o.AckTimeout); !ok {
		return d.timeout(attempt, StageAckHigh, -1, w)
	}
	d.trace(Event{Kind: EventAck, Attempt: attempt})

	for i := 0; i < frameBits; i++ {
		if w, ok := waitLevel(d.line, d.tb, gpio.Low, o.BitLowTimeout); !ok {
			return d.timeout(attempt, StageBitLow, i, w)
		}
		if w, ok := waitLevel(d.line, d.tb, gpio.High, o.BitHighTimeout); !ok {
			return d.timeout(attempt, StageBitHigh, i, w)
		}
		t0 := d.tb.Micros()
		if w, ok := waitLevel(d.line, d.tb, gpio.Low, o.BitEndTimeout); !ok {
			return d.timeout(attempt, StageBitEnd, i, w)
		}
		high := d.tb.Micros() - t0
		one := high > o.BitThreshold
		if one {
			f.setBit(i)
		}
		// Skip building an Event per bit when nobody listens.
		if d.opts.Tracer != nil {
			d.trace(Event{Kind: EventBit, Attempt: attempt, Bit: i, Value: one, Elapsed: high})
		}
	}
	return nil
}

func (d *Dev) timeout(attempt int, s Stage, bit int, waited uint32) error {
	err := &TimeoutError{Stage: s, Bit: bit, Waited: waited}
	d.trace(Event{Kind: EventTimeout, Attempt: attempt, Bit: bit, Elapsed: waited, Err: err})
	return err
}

func (d *Dev) trace(e Event) {
	if d.opts.Tracer != nil {
		d.opts.Tracer.Trace(e)
	}
}

// gcPause counts the transactions in progress, over all devices. The GC
// percent is saved by the first one and restored by the last one.
var gcPause struct {
	sync.Mutex
	n       int
	percent int
}

func pauseGC() {
	gcPause.Lock()
	defer gcPause.Unlock()
	if gcPause.n == 0 {
		gcPause.percent = debug.SetGCPercent(-1)
	}
	gcPause.n++
}

func resumeGC() {
	gcPause.Lock()
	defer gcPause.Unlock()
	gcPause.n--
	if gcPause.n == 0 {
		debug.SetGCPercent(gcPause.percent)
	}
}

// release sets the line as a pulled-up input, letting the sensor drive it.
func (d *Dev) release() error {
	if err := d.line.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("dht11: release line: %w", err)
	}
	return nil
}

// Sense implements physic.SenseEnv. The pressure is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	r, err := d.Read()
	if err != nil {
		return err
	}
	r.Env(e)
	return nil
}

// SenseContinuous implements physic.SenseEnv. Failed readings are skipped.
// The minimum interval is MinInterval. To end the read, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < MinInterval {
		return nil, fmt.Errorf("dht11: invalid interval %s, minimum is %s", interval, MinInterval)
	}
	d.smu.Lock()
	defer d.smu.Unlock()
	if d.stop != nil {
		return nil, errors.New("dht11: SenseContinuous already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Celsius / 10
	e.Pressure = 0
	e.Humidity = physic.PercentRH / 10
}

// Halt implements conn.Resource. It stops a running SenseContinuous() and
// releases the line.
func (d *Dev) Halt() error {
	d.smu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.smu.Unlock()
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release()
}

func (d *Dev) String() string {
	return "dht11{" + d.line.String() + "}"
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
