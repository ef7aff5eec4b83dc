// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package geometry

import (
	"bufio"
	"fmt"
	"image/color"
	"io"

	"github.com/golang/geo/r3"
	"gonum.org/v1/plot/palette"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/render"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// ThermalCamera is the thermal sensor pose relative to the depth sensor.
//
// It is 18.5mm below and 50mm in front. The ray grid is square; the sensor
// rows use the middle of it.
var ThermalCamera = Camera{
	Eye:    r3.Vector{X: 0, Y: -0.0185, Z: 0.05},
	Center: r3.Vector{X: 0, Y: 0, Z: 1},
	Up:     r3.Vector{X: 0, Y: 1, Z: 0},
	FOV:    38,
	Width:  32,
	Height: 32,
}

// Point is a colored point of a cloud.
type Point struct {
	Pos   r3.Vector
	Color color.RGBA
}

// Cloud casts the rays of cam into scene and colors every hit with the
// matching pixel of thermal, mapped through cm.
//
// cam must be as wide as the thermal sensor and at least as tall. The thermal
// rows are centered vertically in the ray grid; rays above and below them,
// and rays that hit nothing, produce no point.
func Cloud(scene *Scene, cam *Camera, thermal *sensor.Frame, cm palette.ColorMap) ([]Point, error) {
	s := thermal.Sensor
	if cam.Width != s.Cols || cam.Height < s.Rows {
		return nil, fmt.Errorf("camera is %dx%d, %s needs %d columns and at least %d rows", cam.Width, cam.Height, s.Name, s.Cols, s.Rows)
	}
	img, err := render.Colorize(thermal, cm)
	if err != nil {
		return nil, err
	}
	skip := (cam.Height - s.Rows) / 2
	rays := cam.Rays()
	out := make([]Point, 0, s.Pixels())
	for v := skip; v < skip+s.Rows; v++ {
		// The image is mirrored vertically.
		y := s.Rows - 1 - (v - skip)
		for u := 0; u < cam.Width; u++ {
			r := &rays[v*cam.Width+u]
			t, ok := scene.Cast(r)
			if !ok {
				continue
			}
			out = append(out, Point{Pos: r.At(t), Color: img.RGBAAt(u, y)})
		}
	}
	return out, nil
}

// WritePLY writes pts as an ASCII PLY point cloud with vertex colors.
func WritePLY(w io.Writer, pts []Point) error {
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "ply\nformat ascii 1.0\nelement vertex %d\n", len(pts))
	for _, p := range []string{"float x", "float y", "float z", "uchar red", "uchar green", "uchar blue"} {
		fmt.Fprintf(b, "property %s\n", p)
	}
	b.WriteString("end_header\n")
	for _, p := range pts {
		fmt.Fprintf(b, "%g %g %g %d %d %d\n", p.Pos.X, p.Pos.Y, p.Pos.Z, p.Color.R, p.Color.G, p.Color.B)
	}
	return b.Flush()
}
