// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package geometry projects a depth frame into a 3D scene and paints it with
// a thermal frame.
//
// Coordinates are in metres. The depth sensor is at the origin looking
// toward +Z with +Y up.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// zoneAngle is half the depth sensor's field of view, in degrees.
const zoneAngle = 45. / 2

// backgroundScale is the size of the background relative to the largest
// zone.
const backgroundScale = 20

// Square is a square parallel to the sensor plane, at Z = Min.Z.
type Square struct {
	Min  r3.Vector
	Side float64
}

// Contains returns true if p, assumed to be on the square's plane, is inside
// it.
func (s *Square) Contains(p r3.Vector) bool {
	return p.X >= s.Min.X && p.X <= s.Min.X+s.Side && p.Y >= s.Min.Y && p.Y <= s.Min.Y+s.Side
}

// Scene is the set of surfaces rays can hit.
type Scene struct {
	Zones      []Square
	Background Square
}

// NewScene builds one square per depth zone, sized to the zone's footprint
// at its measured distance, plus a large background square at the deepest
// distance so that rays leaving the zones still hit something.
//
// Zones without a return (distance 0) or with a negative corrected distance
// are skipped.
func NewScene(depth *sensor.Frame) (*Scene, error) {
	if depth.Sensor.Unit != sensor.Millimetre {
		return nil, fmt.Errorf("%s is not a depth sensor", depth.Sensor.Name)
	}
	s := &Scene{}
	tan := math.Tan(zoneAngle * math.Pi / 180)
	largest := 0.
	deepest := 0.
	cols := depth.Sensor.Cols
	half := float64(cols / 2)
	for y := 0; y < depth.Sensor.Rows; y++ {
		for x := 0; x < cols; x++ {
			d := depth.Value(x, y) / 1000
			if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			side := d * tan / float64(cols/2)
			largest = math.Max(largest, side)
			deepest = math.Max(deepest, d)
			s.Zones = append(s.Zones, Square{
				Min:  r3.Vector{X: (float64(x) - half) * side, Y: (float64(y) - half) * side, Z: d},
				Side: side,
			})
		}
	}
	if len(s.Zones) == 0 {
		return nil, errors.New("depth frame has no return")
	}
	size := largest * backgroundScale
	s.Background = Square{Min: r3.Vector{X: -size / 2, Y: -size / 2, Z: deepest}, Side: size}
	return s, nil
}

// Ray is a half line. Dir is a unit vector.
type Ray struct {
	Origin r3.Vector
	Dir    r3.Vector
}

// At returns the point at distance t along r.
func (r *Ray) At(t float64) r3.Vector {
	return r.Origin.Add(r.Dir.Mul(t))
}

// hit returns the distance at which r crosses sq, if it does.
func hit(r *Ray, sq *Square) (float64, bool) {
	if r.Dir.Z == 0 {
		return 0, false
	}
	t := (sq.Min.Z - r.Origin.Z) / r.Dir.Z
	if t <= 0 {
		return 0, false
	}
	return t, sq.Contains(r.At(t))
}

// Cast returns the distance to the nearest surface hit by r.
func (s *Scene) Cast(r *Ray) (float64, bool) {
	best := math.Inf(1)
	for i := range s.Zones {
		if t, ok := hit(r, &s.Zones[i]); ok && t < best {
			best = t
		}
	}
	if t, ok := hit(r, &s.Background); ok && t < best {
		best = t
	}
	return best, !math.IsInf(best, 1)
}

// Camera is a pinhole camera.
type Camera struct {
	Eye    r3.Vector // Position.
	Center r3.Vector // Point looked at.
	Up     r3.Vector
	FOV    float64 // Horizontal field of view in degrees.
	Width  int
	Height int
}

// Rays returns one ray per pixel through the pixel's center, left to right
// then top to bottom.
func (c *Camera) Rays() []Ray {
	forward := c.Center.Sub(c.Eye).Normalize()
	right := c.Up.Cross(forward).Normalize()
	up := forward.Cross(right)
	f := float64(c.Width) / 2 / math.Tan(c.FOV*math.Pi/360)
	out := make([]Ray, 0, c.Width*c.Height)
	for v := 0; v < c.Height; v++ {
		dy := (float64(c.Height)/2 - float64(v) - 0.5) / f
		for u := 0; u < c.Width; u++ {
			dx := (float64(u) + 0.5 - float64(c.Width)/2) / f
			dir := forward.Add(right.Mul(dx)).Add(up.Mul(dy)).Normalize()
			out = append(out, Ray{Origin: c.Eye, Dir: dir})
		}
	}
	return out
}
