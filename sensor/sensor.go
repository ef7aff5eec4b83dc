// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensor describes the two low resolution sensors mounted on the
// badge and the frames they produce.
//
// References:
// MLX90640 32x24 far infrared array, 55°x35° field of view.
//
// VL53L5CX 8x8 multizone time of flight ranging sensor, 45°x45° square field
// of view:
//   https://www.st.com/resource/en/datasheet/vl53l5cx.pdf
package sensor

import (
	"fmt"
	"image"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// Unit is the physical unit a calibrated frame is expressed in.
type Unit int

// Valid values for Unit.
const (
	Celsius    Unit = 0
	Millimetre Unit = 1
)

func (u Unit) String() string {
	switch u {
	case Celsius:
		return "°C"
	case Millimetre:
		return "mm"
	default:
		return fmt.Sprintf("Unit(%d)", int(u))
	}
}

// Format prints v expressed in u, e.g. "20.5°C" or "400mm".
func (u Unit) Format(v float64) string {
	switch u {
	case Celsius:
		return Temperature(v).String()
	case Millimetre:
		return Distance(v).String()
	default:
		return fmt.Sprintf("%g%s", v, u)
	}
}

// Temperature converts degrees Celsius to a physic.Temperature.
func Temperature(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

// Distance converts millimetres to a physic.Distance.
func Distance(mm float64) physic.Distance {
	return physic.Distance(mm * float64(physic.MilliMetre))
}

// Millimetres converts a physic.Distance back to millimetres.
func Millimetres(d physic.Distance) float64 {
	return float64(d) / float64(physic.MilliMetre)
}

// Sensor describes a fixed size array of pixels.
//
// Pixels are stored row-major; Rows x Cols is the native layout of the
// physical array.
type Sensor struct {
	Name string
	Rows int
	Cols int
	Unit Unit
}

var (
	// Thermal is the MLX90640 far infrared array, 768 pixels.
	Thermal = &Sensor{Name: "MLX90640", Rows: 24, Cols: 32, Unit: Celsius}
	// Depth is the VL53L5CX time of flight sensor in 8x8 mode, 64 zones.
	Depth = &Sensor{Name: "VL53L5CX", Rows: 8, Cols: 8, Unit: Millimetre}
)

// ByName returns the sensor matching name. Both the chip name and the role
// ("thermal", "depth") are accepted.
func ByName(name string) (*Sensor, error) {
	switch strings.ToLower(name) {
	case "thermal", strings.ToLower(Thermal.Name):
		return Thermal, nil
	case "depth", strings.ToLower(Depth.Name):
		return Depth, nil
	}
	return nil, fmt.Errorf("unknown sensor %q", name)
}

// Pixels returns the number of pixels of the sensor.
func (s *Sensor) Pixels() int {
	return s.Rows * s.Cols
}

// Bounds returns the native layout as an image rectangle.
func (s *Sensor) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Cols, s.Rows)
}

func (s *Sensor) String() string {
	return fmt.Sprintf("%s (%dx%d, %s)", s.Name, s.Rows, s.Cols, s.Unit)
}
