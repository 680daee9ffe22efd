// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// EventKind is a protocol milestone reported to a Tracer.
type EventKind int

const (
	// EventAttempt is sent before each attempt.
	EventAttempt EventKind = iota
	// EventStart is sent once the start signal was sent and the line
	// released.
	EventStart
	// EventAck is sent when the sensor acknowledged the start signal.
	EventAck
	// EventBit is sent for every decoded bit. Elapsed is the high pulse length.
	EventBit
	// EventTimeout is sent when an attempt is aborted. Err is a *TimeoutError.
	EventTimeout
	// EventChecksum is sent when a frame was captured. Err is nil or a
	// *ChecksumError.
	EventChecksum
	// EventReading is sent when Read() returns a valid reading.
	EventReading
)

func (k EventKind) String() string {
	switch k {
	case EventAttempt:
		return "attempt"
	case EventStart:
		return "start"
	case EventAck:
		return "ack"
	case EventBit:
		return "bit"
	case EventTimeout:
		return "timeout"
	case EventChecksum:
		return "checksum"
	case EventReading:
		return "reading"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event describes a protocol milestone. Only the fields relevant to Kind are
// set.
type Event struct {
	Kind    EventKind
	Attempt int
	Bit     int
	Value   bool
	Elapsed uint32
	Frame   Frame
	Err     error
}

// Tracer receives protocol events.
//
// Trace is called synchronously from within the timing critical loop, an
// implementation must return quickly or it will make attempts fail.
type Tracer interface {
	Trace(e Event)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(e Event)

// Trace implements Tracer.
func (f TracerFunc) Trace(e Event) {
	f(e)
}

type multiTracer []Tracer

// MultiTracer returns a Tracer forwarding each event to all tracers, in order.
// nil tracers are skipped. It returns nil when no tracer is left.
func MultiTracer(tracers ...Tracer) Tracer {
	var m multiTracer
	for _, t := range tracers {
		if t != nil {
			m = append(m, t)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

func (m multiTracer) Trace(e Event) {
	for _, t := range m {
		t.Trace(e)
	}
}

type logTracer struct {
	l logrus.FieldLogger
}

// LogTracer returns a Tracer logging events at debug level.
//
// Logging every bit is slow on small hosts. Use it to diagnose wiring, not in
// production.
func LogTracer(l logrus.FieldLogger) Tracer {
	return &logTracer{l: l}
}

func (t *logTracer) Trace(e Event) {
	l := t.l.WithFields(logrus.Fields{"event": e.Kind, "attempt": e.Attempt})
	switch e.Kind {
	case EventBit:
		l.Debugf("bit %d=%t high=%dµs", e.Bit, e.Value, e.Elapsed)
	case EventTimeout:
		l.Debug(e.Err)
	case EventChecksum:
		if e.Err != nil {
			l.Debug(e.Err)
		} else {
			l.Debugf("checksum ok %v", e.Frame)
		}
	case EventReading:
		l.Debugf("OK %v", e.Frame.Reading())
	default:
		l.Debug(e.Kind)
	}
}
