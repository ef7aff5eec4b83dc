// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensor

import (
	"image/color"
	"math"
	"testing"

	"go.viam.com/test"
)

func TestByName(t *testing.T) {
	data := []struct {
		name string
		want *Sensor
	}{
		{"thermal", Thermal},
		{"MLX90640", Thermal},
		{"Depth", Depth},
		{"vl53l5cx", Depth},
	}
	for _, line := range data {
		s, err := ByName(line.name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s, test.ShouldEqual, line.want)
	}
	_, err := ByName("amg8833")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPixels(t *testing.T) {
	test.That(t, Thermal.Pixels(), test.ShouldEqual, 768)
	test.That(t, Depth.Pixels(), test.ShouldEqual, 64)
	test.That(t, Thermal.Bounds().Dx(), test.ShouldEqual, 32)
	test.That(t, Thermal.Bounds().Dy(), test.ShouldEqual, 24)
}

func TestFormat(t *testing.T) {
	test.That(t, Celsius.Format(20), test.ShouldEqual, "20°C")
	test.That(t, Millimetre.Format(400), test.ShouldEqual, "400mm")
	test.That(t, Millimetres(Distance(123.5)), test.ShouldAlmostEqual, 123.5)
	test.That(t, Temperature(-10).Celsius(), test.ShouldAlmostEqual, -10.)
}

func TestNewFrame(t *testing.T) {
	if _, err := NewFrame(Depth, make([]float64, 63)); err == nil {
		t.Fatal("short frame")
	}
	pix := make([]float64, 64)
	for i := range pix {
		pix[i] = float64(i)
	}
	pix[10] = math.NaN()
	f, err := NewFrame(Depth, pix)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Min, test.ShouldEqual, 0.)
	test.That(t, f.Max, test.ShouldEqual, 63.)
	test.That(t, f.At(7, 7).(color.Gray16).Y, test.ShouldEqual, uint16(0xffff))
	test.That(t, f.Gray16At(0, 0), test.ShouldEqual, uint16(0))
	test.That(t, f.Gray16At(2, 1), test.ShouldEqual, uint16(0))
	test.That(t, f.Value(3, 2), test.ShouldEqual, 19.)

	g := f.Grid()
	r, c := g.Dims()
	test.That(t, r, test.ShouldEqual, 8)
	test.That(t, c, test.ShouldEqual, 8)
	test.That(t, g.At(2, 3), test.ShouldEqual, 19.)
}

func TestFrameEqual(t *testing.T) {
	a, _ := NewFrame(Depth, make([]float64, 64))
	b, _ := NewFrame(Depth, make([]float64, 64))
	if !a.Equal(b) {
		t.Fatal("expected equal")
	}
	b.Pix[5] = 1
	if a.Equal(b) {
		t.Fatal("expected different")
	}
	c, _ := NewFrame(Thermal, make([]float64, 768))
	if a.Equal(c) {
		t.Fatal("different sensors")
	}
}

func TestFrameFlat(t *testing.T) {
	f, _ := NewFrame(Depth, make([]float64, 64))
	if v := f.Gray16At(1, 1); v != 0 {
		t.Fatal(v)
	}
}

func TestFrameInf(t *testing.T) {
	pix := make([]float64, 64)
	for i := range pix {
		pix[i] = float64(i)
	}
	pix[9] = math.Inf(1)
	pix[18] = math.Inf(-1)
	f, err := NewFrame(Depth, pix)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Min, test.ShouldEqual, 0.)
	test.That(t, f.Max, test.ShouldEqual, 63.)
	test.That(t, f.Gray16At(1, 1), test.ShouldEqual, uint16(0))
	test.That(t, f.Gray16At(2, 2), test.ShouldEqual, uint16(0))
	test.That(t, f.Gray16At(7, 7), test.ShouldEqual, uint16(0xffff))
}
