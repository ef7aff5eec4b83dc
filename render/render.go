// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render turns sensor frames and calibrations into images.
package render

import (
	"image"
	"image/png"
	"io"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// AGC reduces the dynamic range of f down to 8 bits very naively without
// gamma. dst must have the sensor's bounds.
//
// Values that are not finite are drawn black.
func AGC(f *sensor.Frame, dst *image.Gray) {
	floor := f.Min
	delta := f.Max - floor
	for y := 0; y < f.Sensor.Rows; y++ {
		for x := 0; x < f.Sensor.Cols; x++ {
			v := f.Value(x, y)
			i := y*dst.Stride + x
			if delta <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				dst.Pix[i] = 0
				continue
			}
			dst.Pix[i] = uint8(math.Round((v - floor) * 255 / delta))
		}
	}
}

// Gray returns f as an 8 bits image.
func Gray(f *sensor.Frame) *image.Gray {
	img := image.NewGray(f.Bounds())
	AGC(f, img)
	return img
}

// ColorMap returns the color map used for sensor frames.
func ColorMap() palette.ColorMap {
	return moreland.BlackBody()
}

// Colorize maps f through cm, from f.Min to f.Max. cm's range is
// overwritten.
//
// Values that are not finite are left transparent.
func Colorize(f *sensor.Frame, cm palette.ColorMap) (*image.RGBA, error) {
	lo, hi := span(f.Min, f.Max)
	cm.SetMin(lo)
	cm.SetMax(hi)
	img := image.NewRGBA(f.Bounds())
	for y := 0; y < f.Sensor.Rows; y++ {
		for x := 0; x < f.Sensor.Cols; x++ {
			v := f.Value(x, y)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			c, err := cm.At(clamp(v, lo, hi))
			if err != nil {
				return nil, err
			}
			img.Set(x, y, c)
		}
	}
	return img, nil
}

// EncodePNG writes f as a PNG, colorized when colorized is true and in
// grayscale otherwise.
func EncodePNG(w io.Writer, f *sensor.Frame, colorized bool) error {
	if !colorized {
		return png.Encode(w, Gray(f))
	}
	img, err := Colorize(f, ColorMap())
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// span widens an empty range so that a color map can be built from it.
func span(lo, hi float64) (float64, float64) {
	if hi <= lo {
		return lo - 0.5, lo + 0.5
	}
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
