// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package readout formats DHT11 readings for humans: plain text, a gauge on
// an ANSI terminal or an image for a periph display.
package readout

import (
	"fmt"

	"github.com/GermanBionicSystems/singlewire/dht11"
)

// Text returns the reading as two lines:
//
//	Humidity: 60.0%
//	Temperature: 25.0C
func Text(r dht11.Reading) string {
	return fmt.Sprintf("Humidity: %d.%d%%\nTemperature: %d.%dC\n", r.HumidityInt, r.HumidityDec, r.TemperatureInt, r.TemperatureDec)
}

// tenths returns humidity and temperature in tenths of a unit.
func tenths(r dht11.Reading) (int, int) {
	return 10*int(r.HumidityInt) + int(r.HumidityDec), 10*int(r.TemperatureInt) + int(r.TemperatureDec)
}
