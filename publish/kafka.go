// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of kafka.Writer used to publish readings.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes readings on a Kafka topic, keyed by the client id so the
// readings of a sensor stay ordered within a partition.
type Kafka struct {
	w       messageWriter
	key     []byte
	timeout time.Duration
}

// NewKafka returns a Kafka publisher from a URL like
// kafka://broker1:9092,broker2:9092/topic. The key defaults to
// DefaultClientID().
func NewKafka(serverURL, key string) (*Kafka, error) {
	rest, ok := strings.CutPrefix(serverURL, "kafka://")
	brokers, topic, _ := strings.Cut(rest, "/")
	if !ok || brokers == "" {
		return nil, fmt.Errorf("publish: invalid kafka URL %q", serverURL)
	}
	topic = strings.Trim(topic, "/")
	if topic == "" {
		topic = "dht11"
	}
	if key == "" {
		id, err := DefaultClientID()
		if err != nil {
			return nil, err
		}
		key = id
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: DefaultTimeout,
	}
	return newKafka(w, key, DefaultTimeout), nil
}

func newKafka(w messageWriter, key string, timeout time.Duration) *Kafka {
	return &Kafka{w: w, key: []byte(key), timeout: timeout}
}

// Publish implements the same contract as MQTT.Publish.
func (k *Kafka) Publish(r dht11.Reading) error {
	b, err := json.Marshal(NewPayload(r))
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	if err := k.w.WriteMessages(ctx, kafka.Message{Key: k.key, Value: b}); err != nil {
		return fmt.Errorf("publish: kafka: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	return k.w.Close()
}

func (k *Kafka) String() string {
	return "kafka{" + string(k.key) + "}"
}
