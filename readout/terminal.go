// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package readout

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Full scale of the gauges, in tenths. The DHT11 measures 20-90%rH and
// 0-50°C.
const (
	humidityScale    = 1000
	temperatureScale = 500
)

// TermOpts represents the options available for the terminal output.
type TermOpts struct {
	// Width is the number of cells of each gauge. Default is 40.
	Width int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Plain disables the gauges even on a terminal.
	Plain bool

	_ struct{}
}

// Terminal prints readings on a console, as two colored gauges when the
// output is a terminal and as Text() otherwise.
type Terminal struct {
	w       io.Writer
	width   int
	color   bool
	palette ansi256.Palette

	buf bytes.Buffer
}

// NewTerminal returns a Terminal that prints on stdout.
func NewTerminal(opts *TermOpts) *Terminal {
	fd := os.Stdout.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return newTerminal(colorable.NewColorableStdout(), tty, opts)
}

// NewTerminalWriter returns a Terminal that prints on w. Gauges are enabled
// unless opts.Plain is set.
func NewTerminalWriter(w io.Writer, opts *TermOpts) *Terminal {
	return newTerminal(w, true, opts)
}

func newTerminal(w io.Writer, tty bool, opts *TermOpts) *Terminal {
	if opts == nil {
		opts = &TermOpts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	width := opts.Width
	if width <= 0 {
		width = 40
	}
	return &Terminal{w: w, width: width, color: tty && !opts.Plain, palette: *p}
}

// Show prints a reading.
func (t *Terminal) Show(r dht11.Reading) error {
	if !t.color {
		_, err := io.WriteString(t.w, Text(r))
		return err
	}
	h, c := tenths(r)
	t.buf.Reset()
	t.gauge(h, humidityScale, humidityColor)
	fmt.Fprintf(&t.buf, " %3d.%d%%rH\n", r.HumidityInt, r.HumidityDec)
	t.gauge(c, temperatureScale, temperatureColor)
	fmt.Fprintf(&t.buf, " %3d.%d°C\n", r.TemperatureInt, r.TemperatureDec)
	_, err := t.buf.WriteTo(t.w)
	return err
}

func (t *Terminal) gauge(v, scale int, c func(v int) color.NRGBA) {
	n := cells(v, scale, t.width)
	_, _ = t.buf.WriteString("\r\033[0m")
	for i := 0; i < t.width; i++ {
		if i < n {
			_, _ = t.buf.WriteString(t.palette.Block(c(i * scale / t.width)))
		} else {
			_, _ = t.buf.WriteString(t.palette.Block(color.NRGBA{0x30, 0x30, 0x30, 255}))
		}
	}
	_, _ = t.buf.WriteString("\033[0m")
}

func (t *Terminal) String() string {
	return "Terminal"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors.
func (t *Terminal) Halt() error {
	if !t.color {
		return nil
	}
	_, err := io.WriteString(t.w, "\033[0m")
	return err
}

// cells returns the number of filled cells for v out of scale, clamped to
// width.
func cells(v, scale, width int) int {
	if v <= 0 {
		return 0
	}
	if v >= scale {
		return width
	}
	return v * width / scale
}

// humidityColor goes from sand to deep blue.
func humidityColor(v int) color.NRGBA {
	return color.NRGBA{
		R: byte(0xe0 - 0xd0*v/humidityScale),
		G: byte(0xc0 - 0x80*v/humidityScale),
		B: byte(0x60 + 0x9f*v/humidityScale),
		A: 255,
	}
}

// temperatureColor goes from blue to red.
func temperatureColor(v int) color.NRGBA {
	return color.NRGBA{
		R: byte(0x20 + 0xdf*v/temperatureScale),
		G: 0x40,
		B: byte(0xff - 0xdf*v/temperatureScale),
		A: 255,
	}
}
