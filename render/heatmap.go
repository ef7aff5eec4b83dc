// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Size of a SideBySide image.
const (
	Width  = 24 * vg.Centimeter
	Height = 10 * vg.Centimeter
)

// grid exposes a matrix as a plotter.GridXYZ. Row 0 is drawn at the bottom.
type grid struct {
	m        mat.Matrix
	min, max float64
}

func newGrid(m mat.Matrix) *grid {
	g := &grid{m: m, min: math.Inf(1), max: math.Inf(-1)}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			g.min = math.Min(g.min, v)
			g.max = math.Max(g.max, v)
		}
	}
	if g.min > g.max {
		g.min, g.max = 0, 0
	}
	g.min, g.max = span(g.min, g.max)
	return g
}

func (g *grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g *grid) Z(c, r int) float64 {
	return g.m.At(r, c)
}

func (g *grid) X(c int) float64 {
	return float64(c)
}

func (g *grid) Y(r int) float64 {
	return float64(r)
}

func (g *grid) Min() float64 {
	return g.min
}

func (g *grid) Max() float64 {
	return g.max
}

// HeatMap returns a plot of m titled title.
func HeatMap(title string, m mat.Matrix) *plot.Plot {
	g := newGrid(m)
	h := plotter.NewHeatMap(g, ColorMap().Palette(255))
	h.Rasterized = true
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s [%.4g, %.4g]", title, g.min, g.max)
	p.X.Label.Text = "column"
	p.Y.Label.Text = "row"
	p.Add(h)
	return p
}

// SideBySide writes a PNG with the heat maps of left and right next to each
// other, under a common title.
func SideBySide(w io.Writer, title, leftTitle, rightTitle string, left, right mat.Matrix) error {
	plots := [][]*plot.Plot{{HeatMap(leftTitle, left), HeatMap(rightTitle, right)}}
	img := vgimg.New(Width, Height)
	dc := draw.New(img)
	sty := plots[0][0].Title.TextStyle
	dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Millimeter}, title)
	t := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadTop:    sty.Height(title) + 2*vg.Millimeter,
		PadBottom: vg.Millimeter,
		PadLeft:   vg.Millimeter,
		PadRight:  vg.Millimeter,
		PadX:      4 * vg.Millimeter,
	}
	canvases := plot.Align(plots, t, dc)
	for i, p := range plots[0] {
		p.Draw(canvases[0][i])
	}
	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}
