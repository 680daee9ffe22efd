// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// The data line of the sensor, with a pull-up resistor.
	p := gpioreg.ByName("GPIO4")
	if p == nil {
		log.Fatal("failed to find GPIO4")
	}

	d, err := dht11.New(p, nil) // nil for default options or &dht11.DefaultOpts
	if err != nil {
		log.Fatalf("failed to initialize dht11: %v", err)
	}
	defer d.Halt()

	r, err := d.Read()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Humidity: %d.%d%%\n", r.HumidityInt, r.HumidityDec)
	fmt.Printf("Temperature: %d.%dC\n", r.TemperatureInt, r.TemperatureDec)
}

func ExampleDev_SenseContinuous() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	d, err := dht11.New(gpioreg.ByName("GPIO4"), nil)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Halt()

	ch, err := d.SenseContinuous(2 * dht11.MinInterval)
	if err != nil {
		log.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		e := <-ch
		fmt.Printf("%8s %9s\n", e.Temperature, e.Humidity)
	}
	var p physic.Env
	d.Precision(&p)
	fmt.Printf("precision: %s %s\n", p.Temperature, p.Humidity)
}
