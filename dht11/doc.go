// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht11 reads the AOSONG DHT11 temperature/humidity sensor over its
// proprietary single-wire protocol.
//
// The sensor has no bus controller support: the host pulls the data line low
// for about 20ms, releases it, and the sensor answers with an 80µs low / 80µs
// high acknowledgment followed by 40 bits. Each bit is a ~50µs low gap and a
// high pulse whose length encodes the value: ~26µs for 0, ~70µs for 1. The
// fifth byte is the low 8 bits of the sum of the first four.
//
// The driver decodes the frame by busy-polling gpio.PinIO.Read() against a
// microsecond Timebase. Read() is synchronous and does not yield: the calling
// goroutine is locked to its OS thread and the garbage collector is paused for
// the duration of the transaction. A transaction cannot be canceled once
// started. It takes from ~25ms to a few hundred milliseconds when attempts
// have to be repeated.
//
// Do not read the sensor more often than once per second.
//
// # Datasheet
//
// https://www.mouser.com/datasheet/2/758/DHT11-Technical-Data-Sheet-Translated-Version-1143054.pdf
package dht11
