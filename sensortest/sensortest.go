// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensortest implements a fake sensor with a known per-pixel
// response.
package sensortest

import (
	"math/rand"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// Fake is a sensor whose pixel p reads (truth - Offset[p]) / Gain[p], plus
// gaussian noise of standard deviation Noise.
//
// Want is the calibration that exactly undoes the response.
type Fake struct {
	Sensor *sensor.Sensor
	Want   *calibration.Calibration
	Noise  float64

	rand   *rand.Rand
	scene  *scene
	frames int
}

// New returns a deterministic fake for s. Gains are in [0.8, 1.2] and offsets
// in [-5, 5].
func New(s *sensor.Sensor, seed int64) *Fake {
	r := rand.New(rand.NewSource(seed))
	want := calibration.New(s.Pixels())
	for p := range want.Gain {
		want.Gain[p] = 0.8 + 0.4*r.Float64()
		want.Offset[p] = -5 + 10*r.Float64()
	}
	return &Fake{Sensor: s, Want: want, rand: r, scene: makeScene(r, s)}
}

// Raw returns the raw frame of a uniform target at truth.
func (f *Fake) Raw(truth float64) []float64 {
	out := make([]float64, f.Sensor.Pixels())
	for p := range out {
		out[p] = f.raw(p, truth)
	}
	return out
}

func (f *Fake) raw(p int, truth float64) float64 {
	v := (truth - f.Want.Offset[p]) / f.Want.Gain[p]
	if f.Noise != 0 {
		v += f.rand.NormFloat64() * f.Noise
	}
	return v
}

// Set returns one sample per truth.
func (f *Fake) Set(truths ...float64) calibration.Set {
	set := make(calibration.Set, len(truths))
	for i, t := range truths {
		set[i] = calibration.Sample{Raw: f.Raw(t), Truth: t}
	}
	return set
}

// NextFrame returns a raw frame of a slowly moving scene.
func (f *Fake) NextFrame() *sensor.Frame {
	f.frames++
	f.scene.update()
	pix := make([]float64, f.Sensor.Pixels())
	for y := 0; y < f.Sensor.Rows; y++ {
		for x := 0; x < f.Sensor.Cols; x++ {
			p := y*f.Sensor.Cols + x
			pix[p] = f.raw(p, f.scene.value(float64(x), float64(y)))
		}
	}
	fr, _ := sensor.NewFrame(f.Sensor, pix)
	return fr
}

// Frames returns the number of frames returned by NextFrame.
func (f *Fake) Frames() int {
	return f.frames
}

//

type blob struct {
	intensity float64
	x         float64
	y         float64
}

// scene is a few blobs drifting over a uniform background.
type scene struct {
	rand       *rand.Rand
	background float64
	blobs      []blob
}

func makeScene(r *rand.Rand, s *sensor.Sensor) *scene {
	sc := &scene{rand: r, blobs: make([]blob, 4)}
	spread := 1.
	if s.Unit == sensor.Millimetre {
		sc.background = 1000
		spread = 50
	} else {
		sc.background = 22
	}
	for i := range sc.blobs {
		sc.blobs[i].intensity = r.NormFloat64() * 10 * spread
		sc.blobs[i].x = r.Float64() * float64(s.Cols)
		sc.blobs[i].y = r.Float64() * float64(s.Rows)
	}
	return sc
}

func (s *scene) update() {
	for i := range s.blobs {
		s.blobs[i].x += s.rand.NormFloat64() * 0.1
		s.blobs[i].y += s.rand.NormFloat64() * 0.1
	}
}

func (s *scene) value(x, y float64) float64 {
	v := s.background
	for _, b := range s.blobs {
		d := (b.x-x)*(b.x-x) + (b.y-y)*(b.y-y)
		v += b.intensity / (1 + d)
	}
	return v
}
