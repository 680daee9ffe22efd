// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the additive checksum used by the single-wire DHTxx sensors.
package common

// Sum8 returns the low 8 bits of the sum of all bytes. It is the checksum
// appended by AOSONG single-wire sensors (DHT11, DHT22) to their data frames.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		// Overflow wraps, which is the modulo 256 the sensors use.
		sum += val
	}
	return sum
}
