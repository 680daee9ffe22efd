// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package readout

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/GermanBionicSystems/singlewire/dht11"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"
)

// Below this height, the text is drawn with the fixed 7x13 font.
const minTrueTypeHeight = 48

var (
	regularOnce sync.Once
	regular     *truetype.Font
	regularErr  error
)

func regularFont() (*truetype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = truetype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// face returns the font face to draw two lines of text in an image h pixels
// high.
func face(h int) (font.Face, error) {
	if h < minTrueTypeHeight {
		return basicfont.Face7x13, nil
	}
	f, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("readout: %w", err)
	}
	return truetype.NewFace(f, &truetype.Options{Size: float64(h) / 4}), nil
}

// Image draws the reading, black on white, in a w x h image: humidity and
// temperature on two lines, with a humidity bar at the bottom.
func Image(r dht11.Reading, w, h int) (image.Image, error) {
	if w <= 0 || h <= 0 {
		return nil, errors.New("readout: invalid image size")
	}
	f, err := face(h)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetRGB(0, 0, 0)
	dc.SetFontFace(f)

	padding := float64(h) / 16
	hum := fmt.Sprintf("%d.%d%%", r.HumidityInt, r.HumidityDec)
	temp := fmt.Sprintf("%d.%dC", r.TemperatureInt, r.TemperatureDec)
	_, th := dc.MeasureString(hum)
	dc.DrawString(hum, padding, padding+th)
	dc.DrawString(temp, padding, 2*(padding+th))

	hv, _ := tenths(r)
	bar := float64(h) / 8
	dc.DrawRectangle(padding, float64(h)-padding-bar, float64(w)-2*padding, bar)
	dc.Stroke()
	dc.DrawRectangle(padding, float64(h)-padding-bar, (float64(w)-2*padding)*float64(cells(hv, humidityScale, 1000))/1000, bar)
	dc.Fill()
	return dc.Image(), nil
}

// DrawTo draws the reading on the whole surface of a display.
func DrawTo(d display.Drawer, r dht11.Reading) error {
	b := d.Bounds()
	img, err := Image(r, b.Dx(), b.Dy())
	if err != nil {
		return err
	}
	return d.Draw(b, img, image.Point{})
}
