// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensor

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Frame is one capture of a Sensor, raw or corrected, stored row-major.
//
// Frame implements image.Image. It is seen as a Gray16 scaled linearly
// between Min and Max so it can be PNG encoded as-is.
type Frame struct {
	Sensor *Sensor
	Pix    []float64
	Min    float64 // Smallest finite value in Pix.
	Max    float64 // Largest finite value in Pix.
}

// NewFrame wraps pix as a frame of s. pix is not copied.
func NewFrame(s *Sensor, pix []float64) (*Frame, error) {
	if len(pix) != s.Pixels() {
		return nil, fmt.Errorf("%s frame needs %d values, got %d", s.Name, s.Pixels(), len(pix))
	}
	f := &Frame{Sensor: s, Pix: pix}
	f.UpdateStats()
	return f, nil
}

func (f *Frame) ColorModel() color.Model {
	return color.Gray16Model
}

func (f *Frame) Bounds() image.Rectangle {
	return f.Sensor.Bounds()
}

func (f *Frame) At(x, y int) color.Color {
	return color.Gray16{f.Gray16At(x, y)}
}

// Gray16At returns the value at (x, y) scaled to [0, 65535]. Values that are
// not finite are 0.
func (f *Frame) Gray16At(x, y int) uint16 {
	v := f.Value(x, y)
	delta := f.Max - f.Min
	if delta <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return uint16(math.Round((v - f.Min) / delta * 0xffff))
}

// Value returns the unscaled value at (x, y).
func (f *Frame) Value(x, y int) float64 {
	return f.Pix[y*f.Sensor.Cols+x]
}

// UpdateStats recomputes Min and Max. It must be called after Pix is
// modified in place.
func (f *Frame) UpdateStats() {
	f.Min = math.Inf(1)
	f.Max = math.Inf(-1)
	for _, v := range f.Pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v > f.Max {
			f.Max = v
		}
		if v < f.Min {
			f.Min = v
		}
	}
	if f.Min > f.Max {
		f.Min, f.Max = 0, 0
	}
}

// Equal returns true if both frames come from the same sensor and hold the
// same values.
func (f *Frame) Equal(r *Frame) bool {
	if f.Sensor != r.Sensor || len(f.Pix) != len(r.Pix) {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != r.Pix[i] {
			return false
		}
	}
	return true
}

// Grid returns a copy of the frame in its native Rows x Cols layout.
func (f *Frame) Grid() *mat.Dense {
	return mat.NewDense(f.Sensor.Rows, f.Sensor.Cols, append([]float64(nil), f.Pix...))
}
