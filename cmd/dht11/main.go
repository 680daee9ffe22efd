// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// dht11 reads a DHT11 sensor periodically, prints the readings and
// optionally publishes them to an MQTT broker.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/GermanBionicSystems/singlewire/metrics"
	"github.com/GermanBionicSystems/singlewire/publish"
	"github.com/GermanBionicSystems/singlewire/readout"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

type config struct {
	pin      string
	interval time.Duration
	count    int
	mqttURL  string
	kafkaURL string
	httpAddr string
	plain    bool
	verbose  bool
}

func (c *config) register(fs *flag.FlagSet) {
	fs.StringVar(&c.pin, "pin", c.pin, "GPIO the sensor data line is connected to")
	fs.DurationVar(&c.interval, "interval", c.interval, "time between readings, at least 1s")
	fs.IntVar(&c.count, "count", c.count, "number of readings, 0 means forever")
	fs.StringVar(&c.mqttURL, "mqtt", c.mqttURL, "MQTT broker URL, e.g. mqtt://localhost:1883/home")
	fs.StringVar(&c.kafkaURL, "kafka", c.kafkaURL, "Kafka brokers and topic, e.g. kafka://localhost:9092/dht11")
	fs.StringVar(&c.httpAddr, "http", c.httpAddr, "address to serve /metrics on, e.g. :9110")
	fs.BoolVar(&c.plain, "plain", c.plain, "print plain text even on a terminal")
	fs.BoolVar(&c.verbose, "v", c.verbose, "log every decoded bit")
}

// defaultConfig returns the defaults, overridden by the environment.
func defaultConfig() (config, error) {
	c := config{pin: "GPIO4", interval: 2 * time.Second}
	if val := os.Getenv("DHT11_PIN"); val != "" {
		c.pin = val
	}
	if val := os.Getenv("DHT11_MQTT"); val != "" {
		c.mqttURL = val
	}
	if val := os.Getenv("DHT11_KAFKA"); val != "" {
		c.kafkaURL = val
	}
	if val := os.Getenv("DHT11_HTTP"); val != "" {
		c.httpAddr = val
	}
	if val := os.Getenv("DHT11_INTERVAL"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return c, fmt.Errorf("DHT11_INTERVAL: %w", err)
		}
		c.interval = d
	}
	return c, nil
}

func (c *config) validate() error {
	if c.pin == "" {
		return errors.New("-pin is required")
	}
	if c.interval < dht11.MinInterval {
		return fmt.Errorf("-interval must be at least %s", dht11.MinInterval)
	}
	if c.count < 0 {
		return errors.New("-count must be positive")
	}
	return nil
}

func parseConfig(args []string) (config, error) {
	c, err := defaultConfig()
	if err != nil {
		return c, err
	}
	fs := flag.NewFlagSet("dht11", flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	if fs.NArg() != 0 {
		return c, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return c, c.validate()
}

// sink receives the valid readings.
type sink interface {
	Publish(r dht11.Reading) error
}

// loop reads the sensor count times, or until stop is closed when count is 0.
// Failed readings are logged and skipped.
func loop(d *dht11.Dev, term *readout.Terminal, sinks []sink, c *config, log logrus.FieldLogger, stop <-chan struct{}) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for i := 0; c.count == 0 || i < c.count; i++ {
		if i != 0 {
			select {
			case <-stop:
				return nil
			case <-t.C:
			}
		}
		r, err := d.Read()
		if err != nil {
			if errors.Is(err, dht11.ErrExhausted) {
				log.WithError(err).Warn("reading failed")
				continue
			}
			return err
		}
		log.WithField("reading", r).Debug("read")
		if err := term.Show(r); err != nil {
			return err
		}
		for _, s := range sinks {
			if err := s.Publish(r); err != nil {
				log.WithError(err).WithField("sink", s).Warn("publication failed")
			}
		}
	}
	return nil
}

func mainImpl() error {
	c, err := parseConfig(os.Args[1:])
	if err != nil {
		return err
	}
	logger := logrus.New()
	if c.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithFields(logrus.Fields{"sensor": "dht11", "pin": c.pin})

	if _, err := host.Init(); err != nil {
		return err
	}
	p := gpioreg.ByName(c.pin)
	if p == nil {
		return fmt.Errorf("unknown pin %q", c.pin)
	}
	opts := dht11.DefaultOpts
	var tracers []dht11.Tracer
	if c.verbose {
		tracers = append(tracers, dht11.LogTracer(log))
	}
	if c.httpAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.New(reg, c.pin)
		if err != nil {
			return err
		}
		tracers = append(tracers, m)
		srv := &http.Server{
			Addr:              c.httpAddr,
			Handler:           handlers.RecoveryHandler()(handlers.LoggingHandler(logger.Writer(), metrics.NewRouter(reg))),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server")
			}
		}()
		defer srv.Close()
		log.WithField("addr", c.httpAddr).Info("serving metrics")
	}
	opts.Tracer = dht11.MultiTracer(tracers...)
	d, err := dht11.New(p, &opts)
	if err != nil {
		return err
	}
	defer d.Halt()

	var sinks []sink
	if c.mqttURL != "" {
		m, err := publish.Dial(c.mqttURL)
		if err != nil {
			return err
		}
		defer m.Close()
		log.WithField("topic", m.Topic()).Info("publishing to mqtt")
		sinks = append(sinks, m)
	}
	if c.kafkaURL != "" {
		k, err := publish.NewKafka(c.kafkaURL, "")
		if err != nil {
			return err
		}
		defer k.Close()
		log.WithField("kafka", c.kafkaURL).Info("publishing to kafka")
		sinks = append(sinks, k)
	}

	term := readout.NewTerminal(&readout.TermOpts{Plain: c.plain})
	defer term.Halt()

	stop := make(chan struct{})
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		close(stop)
	}()
	return loop(d, term, sinks, &c, log, stop)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "dht11: %s.\n", err)
		os.Exit(1)
	}
}
