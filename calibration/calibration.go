// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package calibration fits and applies a per-pixel affine correction
//
//	corrected = raw*gain + offset
//
// mapping raw sensor readings to physical units.
//
// Each pixel is fitted independently by ordinary least squares against a set
// of captures of a uniform target at known values (temperature or distance).
package calibration

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// ErrShapeMismatch is matched by every *ShapeMismatchError with errors.Is.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeMismatchError is returned when a frame and a calibration do not have
// the same number of pixels.
type ShapeMismatchError struct {
	Raw    int // Length of the raw frame or sample.
	Gain   int // Length of the gain array.
	Offset int // Length of the offset array.
	Sample int // Index of the offending sample in Solve, -1 in Apply.
}

func (e *ShapeMismatchError) Error() string {
	if e.Sample >= 0 {
		return fmt.Sprintf("shape mismatch: sample %d has %d values, expected %d", e.Sample, e.Raw, e.Gain)
	}
	return fmt.Sprintf("shape mismatch: raw %d, gain %d, offset %d", e.Raw, e.Gain, e.Offset)
}

// Is implements errors.Is.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// Pixel is the affine calibration of one pixel.
type Pixel struct {
	Gain   float64
	Offset float64
}

// Identity leaves a reading untouched.
var Identity = Pixel{Gain: 1}

// Apply returns the corrected value of raw.
func (p Pixel) Apply(raw float64) float64 {
	return raw*p.Gain + p.Offset
}

// Calibration holds one Pixel per sensor pixel, as two parallel arrays.
//
// The arrays are filled by Solve and not modified afterward.
type Calibration struct {
	Gain   []float64
	Offset []float64
}

// New returns an identity calibration of n pixels.
func New(n int) *Calibration {
	c := &Calibration{Gain: make([]float64, n), Offset: make([]float64, n)}
	for i := range c.Gain {
		c.Gain[i] = 1
	}
	return c
}

// Len returns the number of pixels.
func (c *Calibration) Len() int {
	return len(c.Gain)
}

// At returns the calibration of pixel i.
func (c *Calibration) At(i int) Pixel {
	return Pixel{Gain: c.Gain[i], Offset: c.Offset[i]}
}

// Clone returns a deep copy.
func (c *Calibration) Clone() *Calibration {
	return &Calibration{
		Gain:   append([]float64(nil), c.Gain...),
		Offset: append([]float64(nil), c.Offset...),
	}
}

// Apply returns a new frame where out[i] = raw[i]*gain[i] + offset[i].
//
// raw, the gain array and the offset array must have the same length,
// otherwise a *ShapeMismatchError is returned and no output is produced. raw
// is never modified.
func Apply(raw []float64, c *Calibration) ([]float64, error) {
	if len(raw) != len(c.Gain) || len(raw) != len(c.Offset) {
		return nil, &ShapeMismatchError{Raw: len(raw), Gain: len(c.Gain), Offset: len(c.Offset), Sample: -1}
	}
	out := make([]float64, len(raw))
	floats.MulTo(out, raw, c.Gain)
	floats.Add(out, c.Offset)
	return out, nil
}

// ApplyFrame corrects a sensor frame and returns a new frame of the same
// sensor.
func (c *Calibration) ApplyFrame(f *sensor.Frame) (*sensor.Frame, error) {
	out, err := Apply(f.Pix, c)
	if err != nil {
		return nil, err
	}
	return sensor.NewFrame(f.Sensor, out)
}

// GainGrid returns the gains reshaped in the sensor's native layout.
func (c *Calibration) GainGrid(s *sensor.Sensor) (*mat.Dense, error) {
	return grid(c.Gain, s)
}

// OffsetGrid returns the offsets reshaped in the sensor's native layout.
func (c *Calibration) OffsetGrid(s *sensor.Sensor) (*mat.Dense, error) {
	return grid(c.Offset, s)
}

func grid(v []float64, s *sensor.Sensor) (*mat.Dense, error) {
	if len(v) != s.Pixels() {
		return nil, &ShapeMismatchError{Raw: s.Pixels(), Gain: len(v), Offset: len(v), Sample: -1}
	}
	return mat.NewDense(s.Rows, s.Cols, append([]float64(nil), v...)), nil
}
