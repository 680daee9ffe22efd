// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package singlewire is a container for the DHT11 single-wire sensor driver
// and its tools.
//
// The driver is in dht11, a simulated sensor to test against is in
// dht11/dht11test. readout formats the readings for a terminal or a periph
// display, publish sends them to MQTT or Kafka, metrics exports Prometheus
// counters and cmd/dht11 ties everything together.
package singlewire
