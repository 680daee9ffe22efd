// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"errors"
	"fmt"
)

// ErrExhausted is matched by errors.Is() against the error returned by
// Dev.Read() when no attempt produced a valid frame.
var ErrExhausted = errors.New("dht11: attempts exhausted")

// Stage identifies the level transition a TimeoutError was waiting for.
type Stage int

const (
	StageAckLow Stage = iota
	StageAckHigh
	StageBitLow
	StageBitHigh
	StageBitEnd
)

func (s Stage) String() string {
	switch s {
	case StageAckLow:
		return "ack low"
	case StageAckHigh:
		return "ack high"
	case StageBitLow:
		return "bit low"
	case StageBitHigh:
		return "bit high"
	case StageBitEnd:
		return "bit end"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// TimeoutError is reported when a level transition did not happen within its
// window. This covers a missing sensor, a disconnected line and a protocol
// desync.
type TimeoutError struct {
	Stage Stage
	// Bit is the frame bit index (0..39) or -1 during the acknowledgment.
	Bit int
	// Waited is how long the line was polled, in µs.
	Waited uint32
}

func (e *TimeoutError) Error() string {
	if e.Bit < 0 {
		return fmt.Sprintf("dht11: no %s after %dµs", e.Stage, e.Waited)
	}
	return fmt.Sprintf("dht11: no %s for bit %d after %dµs", e.Stage, e.Bit, e.Waited)
}

// ChecksumError is reported when a complete frame was captured but its fifth
// byte doesn't match the sum of the four data bytes.
type ChecksumError struct {
	Frame Frame
	Want  byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("dht11: checksum mismatch got=0x%02x expected=0x%02x", e.Frame[4], e.Want)
}

// ExhaustedError is the only acquisition error returned by Dev.Read(). Last
// holds the failure of the final attempt, either a *TimeoutError or a
// *ChecksumError.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("dht11: no valid reading after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}
