// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"fmt"

	"github.com/GermanBionicSystems/singlewire/common"
	"periph.io/x/conn/v3/physic"
)

const (
	frameBytes = 5
	frameBits  = 8 * frameBytes
)

// Frame is the raw data sent by the sensor, in wire order: humidity integer
// part, humidity decimal part, temperature integer part, temperature decimal
// part, checksum.
type Frame [frameBytes]byte

// bitPosition maps a frame bit index (0..39, wire order) to its byte and its
// shift within that byte. Bytes are sent MSB first.
func bitPosition(i int) (int, uint) {
	return i / 8, uint(7 - i%8)
}

func (f *Frame) setBit(i int) {
	b, shift := bitPosition(i)
	f[b] |= 1 << shift
}

// Checksum returns the checksum expected for the four data bytes.
func (f *Frame) Checksum() byte {
	return common.Sum8(f[:4])
}

// Valid returns true if the fifth byte matches the data bytes.
func (f *Frame) Valid() bool {
	return f.Checksum() == f[4]
}

// Reading returns the frame content as a Reading. It doesn't verify the
// checksum.
func (f *Frame) Reading() Reading {
	return Reading{
		HumidityInt:    f[0],
		HumidityDec:    f[1],
		TemperatureInt: f[2],
		TemperatureDec: f[3],
		Checksum:       f[4],
	}
}

// Reading is a validated measurement. The decimal parts are in tenths.
type Reading struct {
	HumidityInt    uint8
	HumidityDec    uint8
	TemperatureInt uint8
	TemperatureDec uint8
	Checksum       uint8
}

// Humidity returns the relative humidity.
func (r Reading) Humidity() physic.RelativeHumidity {
	return physic.RelativeHumidity(r.HumidityInt)*physic.PercentRH + physic.RelativeHumidity(r.HumidityDec)*physic.PercentRH/10
}

// Temperature returns the temperature.
func (r Reading) Temperature() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(r.TemperatureInt)*physic.Celsius + physic.Temperature(r.TemperatureDec)*physic.Celsius/10
}

// Env fills e with the reading. The sensor doesn't measure pressure.
func (r Reading) Env(e *physic.Env) {
	e.Temperature = r.Temperature()
	e.Pressure = 0
	e.Humidity = r.Humidity()
}

func (r Reading) String() string {
	return fmt.Sprintf("%d.%d%%rH %d.%d°C", r.HumidityInt, r.HumidityDec, r.TemperatureInt, r.TemperatureDec)
}
