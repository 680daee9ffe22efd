// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports the activity of a DHT11 as Prometheus metrics.
//
// Metrics is a dht11.Tracer; install it in dht11.Opts.Tracer.
package metrics

import (
	"errors"
	"net/http"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts transactions and keeps the last valid reading.
type Metrics struct {
	attempts       prometheus.Counter
	timeouts       *prometheus.CounterVec
	checksumErrors prometheus.Counter
	readings       prometheus.Counter
	bitHigh        prometheus.Histogram
	humidity       prometheus.Gauge
	temperature    prometheus.Gauge
}

// New returns Metrics registered on reg. The pin name is added as a constant
// label.
func New(reg prometheus.Registerer, pin string) (*Metrics, error) {
	labels := prometheus.Labels{"pin": pin}
	m := &Metrics{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dht11_attempts_total",
			Help:        "Transactions started, including retries.",
			ConstLabels: labels,
		}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dht11_timeouts_total",
			Help:        "Transactions aborted by a timeout, by protocol stage.",
			ConstLabels: labels,
		}, []string{"stage"}),
		checksumErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dht11_checksum_errors_total",
			Help:        "Frames received with an invalid checksum.",
			ConstLabels: labels,
		}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dht11_readings_total",
			Help:        "Valid readings.",
			ConstLabels: labels,
		}),
		bitHigh: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dht11_bit_high_microseconds",
			Help:        "Measured length of the data bit pulses.",
			Buckets:     []float64{10, 20, 30, 40, 50, 60, 70, 80, 100, 150},
			ConstLabels: labels,
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht11_humidity_percent",
			Help:        "Last relative humidity read.",
			ConstLabels: labels,
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht11_temperature_celsius",
			Help:        "Last temperature read.",
			ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.timeouts, m.checksumErrors, m.readings, m.bitHigh, m.humidity, m.temperature} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Trace implements dht11.Tracer.
func (m *Metrics) Trace(e dht11.Event) {
	switch e.Kind {
	case dht11.EventAttempt:
		m.attempts.Inc()
	case dht11.EventBit:
		m.bitHigh.Observe(float64(e.Elapsed))
	case dht11.EventTimeout:
		stage := "unknown"
		var te *dht11.TimeoutError
		if errors.As(e.Err, &te) {
			stage = te.Stage.String()
		}
		m.timeouts.WithLabelValues(stage).Inc()
	case dht11.EventChecksum:
		if e.Err != nil {
			m.checksumErrors.Inc()
		}
	case dht11.EventReading:
		r := e.Frame.Reading()
		m.readings.Inc()
		m.humidity.Set(float64(r.HumidityInt) + float64(r.HumidityDec)/10)
		m.temperature.Set(float64(r.TemperatureInt) + float64(r.TemperatureDec)/10)
	}
}

// NewRouter returns the HTTP routes of the daemon: /metrics serves g and
// /health always answers 200.
func NewRouter(g prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods("GET")
	return r
}

var _ dht11.Tracer = &Metrics{}
