// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/GermanBionicSystems/singlewire/dht11/dht11test"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getDev(t *testing.T, s *dht11test.Sensor, tr dht11.Tracer) *dht11.Dev {
	opts := dht11.DefaultOpts
	opts.Timebase = s.Timebase()
	opts.Tracer = tr
	d, err := dht11.New(s, &opts)
	require.NoError(t, err)
	return d
}

func TestReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "GPIO4")
	require.NoError(t, err)
	s := dht11test.NewSensor("GPIO4", [5]byte{45, 5, 21, 3, 74})
	d := getDev(t, s, m)
	_, err = d.Read()
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.readings))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.checksumErrors))
	assert.InDelta(t, 45.5, testutil.ToFloat64(m.humidity), 1e-9)
	assert.InDelta(t, 21.3, testutil.ToFloat64(m.temperature), 1e-9)
	assert.Equal(t, 0, testutil.CollectAndCount(m.timeouts))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "GPIO4")
	require.NoError(t, err)
	s := dht11test.NewSensor("GPIO4", [5]byte{60, 0, 25, 0, 86})
	d := getDev(t, s, m)
	_, err = d.Read()
	require.ErrorIs(t, err, dht11.ErrExhausted)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.checksumErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.readings))

	s.Silent = true
	_, err = d.Read()
	require.ErrorIs(t, err, dht11.ErrExhausted)
	assert.Equal(t, 6.0, testutil.ToFloat64(m.attempts))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.timeouts.WithLabelValues("ack low")))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "GPIO4")
	require.NoError(t, err)
	_, err = New(reg, "GPIO4")
	require.Error(t, err)
}

func TestRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "GPIO4")
	require.NoError(t, err)
	m.Trace(dht11.Event{Kind: dht11.EventReading, Frame: dht11.Frame{60, 0, 25, 0, 85}})
	srv := httptest.NewServer(NewRouter(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(b), `dht11_humidity_percent{pin="GPIO4"} 60`), string(b))

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
