// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package calibration

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.viam.com/test"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

func TestSolve_exactRecovery(t *testing.T) {
	const pixels = 768
	gains := make([]float64, pixels)
	offsets := make([]float64, pixels)
	for p := range gains {
		gains[p] = 0.5 + float64(p%17)*0.125
		offsets[p] = -20 + float64(p%11)*3.5
	}
	truths := []float64{10, 25.5, 40, 62.25}
	set := make(Set, len(truths))
	for i, truth := range truths {
		raw := make([]float64, pixels)
		for p := range raw {
			raw[p] = (truth - offsets[p]) / gains[p]
		}
		set[i] = Sample{Raw: raw, Truth: truth}
	}
	c, r, err := Solve(context.Background(), set, pixels)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, pixels)
	test.That(t, r.Count(StatusFitted), test.ShouldEqual, pixels)
	for p := 0; p < pixels; p++ {
		test.That(t, c.Gain[p], test.ShouldAlmostEqual, gains[p], 1e-9)
		test.That(t, c.Offset[p], test.ShouldAlmostEqual, offsets[p], 1e-9)
		test.That(t, r.Pixels[p].RSS, test.ShouldAlmostEqual, 0, 1e-9)
		test.That(t, r.Pixels[p].Samples, test.ShouldEqual, len(truths))
	}

	// The fit does not depend on the scale of the raw readings.
	data := []struct {
		gain   float64
		offset float64
	}{
		{1e7, 3},
		{1e-7, 3},
		{1e12, -40},
	}
	for i, line := range data {
		set := Set{}
		for _, truth := range []float64{10, 20, 30} {
			set = append(set, Sample{Raw: []float64{(truth - line.offset) / line.gain}, Truth: truth})
		}
		c, r, err := Solve(context.Background(), set, 1)
		test.That(t, err, test.ShouldBeNil)
		if r.Pixels[0].Status != StatusFitted {
			t.Fatalf("#%d: %s", i, r.Pixels[0].Status)
		}
		if d := math.Abs(c.Gain[0]/line.gain - 1); d > 1e-9 {
			t.Fatalf("#%d: gain %g, expected %g", i, c.Gain[0], line.gain)
		}
		test.That(t, c.Offset[0], test.ShouldAlmostEqual, line.offset, 1e-6)
	}
}

func TestSolve_twoSamples(t *testing.T) {
	// Pixel 0 sees 10 at 20°C and 20 at 40°C.
	set := Set{
		{Raw: fill(768, 10), Truth: 20},
		{Raw: fill(768, 20), Truth: 40},
	}
	c, _, err := Solve(context.Background(), set, sensor.Thermal.Pixels())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.At(0).Gain, test.ShouldAlmostEqual, 2.)
	test.That(t, c.At(0).Offset, test.ShouldAlmostEqual, 0.)

	raw := fill(768, 15)
	out, err := Apply(raw, c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out[0], test.ShouldAlmostEqual, 30.)
}

func TestSolve_empty(t *testing.T) {
	c, r, err := Solve(context.Background(), nil, 64)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Len(), test.ShouldEqual, 64)
	test.That(t, r.Samples, test.ShouldEqual, 0)
	test.That(t, r.Count(StatusIdentity), test.ShouldEqual, 64)
	for p := 0; p < 64; p++ {
		test.That(t, c.At(p), test.ShouldResemble, Identity)
	}
}

func TestSolve_zeroVariance(t *testing.T) {
	set := Set{
		{Raw: fill(64, 5), Truth: 10},
		{Raw: fill(64, 5), Truth: 20},
		{Raw: fill(64, 5), Truth: 36},
	}
	// Pixel 3 has variance, the rest does not.
	set[1].Raw[3] = 7
	c, r, err := Solve(context.Background(), set, 64)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Count(StatusIllConditioned), test.ShouldEqual, 63)
	test.That(t, r.Indexes(StatusFitted), test.ShouldResemble, []int{3})
	px := c.At(0)
	test.That(t, math.IsNaN(px.Gain) || math.IsInf(px.Gain, 0), test.ShouldBeFalse)
	test.That(t, px.Gain, test.ShouldEqual, 1.)
	test.That(t, px.Offset, test.ShouldAlmostEqual, 22-5.)
	test.That(t, r.Pixels[0].Status, test.ShouldEqual, StatusIllConditioned)
	// (10-22)² + (20-22)² + (36-22)²
	test.That(t, r.Pixels[0].RSS, test.ShouldAlmostEqual, 144+4+196.)
}

func TestSolve_singleSample(t *testing.T) {
	c, r, err := Solve(context.Background(), Set{{Raw: fill(4, 3), Truth: 30}}, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Count(StatusIllConditioned), test.ShouldEqual, 4)
	test.That(t, c.At(2), test.ShouldResemble, Pixel{Gain: 1, Offset: 27})
}

func TestSolve_invalidInput(t *testing.T) {
	set := Set{
		{Raw: []float64{1, 2}, Truth: 10},
		{Raw: []float64{math.NaN(), 4}, Truth: 20},
	}
	c, r, err := Solve(context.Background(), set, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Pixels[0].Status, test.ShouldEqual, StatusInvalidInput)
	test.That(t, c.At(0), test.ShouldResemble, Identity)
	test.That(t, r.Pixels[1].Status, test.ShouldEqual, StatusFitted)
	test.That(t, c.At(1).Gain, test.ShouldAlmostEqual, 5.)
	test.That(t, c.At(1).Offset, test.ShouldAlmostEqual, 0.)

	set[1].Raw[0] = 3
	set[1].Truth = math.Inf(1)
	_, r, err = Solve(context.Background(), set, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.Count(StatusInvalidInput), test.ShouldEqual, 2)
}

func TestSolve_shape(t *testing.T) {
	set := Set{
		{Raw: fill(64, 1), Truth: 1},
		{Raw: fill(63, 2), Truth: 2},
	}
	c, r, err := Solve(context.Background(), set, 64)
	test.That(t, c, test.ShouldBeNil)
	test.That(t, r, test.ShouldBeNil)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
	var shape *ShapeMismatchError
	test.That(t, errors.As(err, &shape), test.ShouldBeTrue)
	test.That(t, shape.Sample, test.ShouldEqual, 1)
	test.That(t, shape.Raw, test.ShouldEqual, 63)
	test.That(t, err.Error(), test.ShouldContainSubstring, "sample 1")

	if _, _, err := Solve(context.Background(), nil, -1); err == nil {
		t.Fatal("negative pixel count")
	}
}

func TestSolve_workers(t *testing.T) {
	set := noisySet(768, 7)
	want, wantReport, err := Solve(context.Background(), set, 768)
	test.That(t, err, test.ShouldBeNil)
	for _, workers := range []int{0, 2, 3, 16, 768, 10000} {
		got, gotReport, err := Solve(context.Background(), set, 768, WithWorkers(workers))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, got.Gain, test.ShouldResemble, want.Gain)
		test.That(t, got.Offset, test.ShouldResemble, want.Offset)
		test.That(t, gotReport, test.ShouldResemble, wantReport)
	}
}

func TestSolve_canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Solve(ctx, noisySet(64, 3), 64, WithWorkers(4))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestSolve_logger(t *testing.T) {
	set := Set{
		{Raw: fill(4, 5), Truth: 10},
		{Raw: fill(4, 5), Truth: 20},
	}
	a, _, err := Solve(context.Background(), set, 4, WithLogger(zap.NewExample()))
	test.That(t, err, test.ShouldBeNil)
	b, _, err := Solve(context.Background(), set, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldResemble, b)
}

func TestApply_identity(t *testing.T) {
	raw := []float64{-3, 0, 1.5, 1e6}
	out, err := Apply(raw, New(len(raw)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, raw)
	out[0] = 42
	test.That(t, raw[0], test.ShouldEqual, -3.)
}

func TestApply(t *testing.T) {
	c := &Calibration{Gain: []float64{2, 0.5, -1}, Offset: []float64{1, 0, 10}}
	raw := []float64{3, 4, 5}
	out, err := Apply(raw, c)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldResemble, []float64{7, 2, 5})
	test.That(t, raw, test.ShouldResemble, []float64{3, 4, 5})
}

func TestApply_shape(t *testing.T) {
	out, err := Apply(make([]float64, 100), New(64))
	test.That(t, out, test.ShouldBeNil)
	var shape *ShapeMismatchError
	test.That(t, errors.As(err, &shape), test.ShouldBeTrue)
	test.That(t, *shape, test.ShouldResemble, ShapeMismatchError{Raw: 100, Gain: 64, Offset: 64, Sample: -1})
	test.That(t, err.Error(), test.ShouldEqual, "shape mismatch: raw 100, gain 64, offset 64")

	c := New(4)
	c.Offset = c.Offset[:3]
	_, err = Apply(make([]float64, 4), c)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
}

func TestApplyFrame(t *testing.T) {
	c := New(64)
	for i := range c.Gain {
		c.Gain[i] = 2
		c.Offset[i] = 1
	}
	f, err := sensor.NewFrame(sensor.Depth, fill(64, 10))
	test.That(t, err, test.ShouldBeNil)
	out, err := c.ApplyFrame(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Sensor, test.ShouldEqual, sensor.Depth)
	test.That(t, out.Min, test.ShouldEqual, 21.)
	test.That(t, f.Pix[0], test.ShouldEqual, 10.)

	th, _ := sensor.NewFrame(sensor.Thermal, fill(768, 10))
	_, err = c.ApplyFrame(th)
	test.That(t, errors.Is(err, ErrShapeMismatch), test.ShouldBeTrue)
}

func TestGrid(t *testing.T) {
	c := New(64)
	c.Gain[9] = 3
	c.Offset[63] = -1
	g, err := c.GainGrid(sensor.Depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.At(1, 1), test.ShouldEqual, 3.)
	o, err := c.OffsetGrid(sensor.Depth)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.At(7, 7), test.ShouldEqual, -1.)
	// The grid is a copy.
	g.Set(0, 0, 5)
	test.That(t, c.Gain[0], test.ShouldEqual, 1.)
	_, err = c.GainGrid(sensor.Thermal)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestClone(t *testing.T) {
	c := New(2)
	d := c.Clone()
	d.Gain[0] = 4
	test.That(t, c.Gain[0], test.ShouldEqual, 1.)
}

func TestSaveLoad(t *testing.T) {
	set := noisySet(64, 4)
	set[0].Raw[5], set[1].Raw[5], set[2].Raw[5], set[3].Raw[5] = 1, 1, 1, 1
	c, r, err := Solve(context.Background(), set, 64)
	test.That(t, err, test.ShouldBeNil)
	var buf bytes.Buffer
	test.That(t, Save(&buf, sensor.Depth, c, r), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, `"status": "ill-conditioned"`)

	f, err := LoadFile(bytes.NewReader(buf.Bytes()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.Report.Pixels[5].Status, test.ShouldEqual, StatusIllConditioned)
	test.That(t, f.Report.Count(StatusFitted), test.ShouldEqual, 63)

	s, got, err := Load(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s, test.ShouldEqual, sensor.Depth)
	for p := 0; p < 64; p++ {
		test.That(t, got.Gain[p], test.ShouldAlmostEqual, c.Gain[p])
		test.That(t, got.Offset[p], test.ShouldAlmostEqual, c.Offset[p])
	}

	if err := Save(&buf, sensor.Thermal, c, nil); !errors.Is(err, ErrShapeMismatch) {
		t.Fatal(err)
	}
}

func TestLoad_fail(t *testing.T) {
	data := []string{
		``,
		`{"sensor": "amg8833", "rows": 8, "cols": 8}`,
		`{"sensor": "VL53L5CX", "rows": 4, "cols": 16, "gain": [], "offset": []}`,
		`{"sensor": "VL53L5CX", "rows": 8, "cols": 8, "gain": [1], "offset": [0]}`,
		`{"sensor": "VL53L5CX", "rows": 8, "cols": 8, "gain": [], "offset": [], "report": {"pixels": [{"status": "bogus"}]}}`,
	}
	for _, line := range data {
		if _, _, err := Load(strings.NewReader(line)); err == nil {
			t.Fatalf("expected failure for %q", line)
		}
	}
}

func TestStatus(t *testing.T) {
	for _, s := range []Status{StatusIdentity, StatusFitted, StatusIllConditioned, StatusInvalidInput} {
		b, err := s.MarshalText()
		test.That(t, err, test.ShouldBeNil)
		var got Status
		test.That(t, got.UnmarshalText(b), test.ShouldBeNil)
		test.That(t, got, test.ShouldEqual, s)
	}
	test.That(t, Status(42).String(), test.ShouldEqual, "Status(42)")
}

//

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// noisySet returns n samples with a deterministic per-pixel response and a
// small deterministic perturbation so the fit is not exact.
func noisySet(pixels, n int) Set {
	set := make(Set, n)
	for i := range set {
		truth := 15 + 7.5*float64(i)
		raw := make([]float64, pixels)
		for p := range raw {
			raw[p] = (truth-float64(p%5))/(1+float64(p%3)*0.1) + 0.01*math.Sin(float64(p*n+i))
		}
		set[i] = Sample{Raw: raw, Truth: truth}
	}
	return set
}
