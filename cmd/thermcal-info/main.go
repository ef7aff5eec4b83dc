// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcal-info prints the content of a calibration file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

func summary(w io.Writer, s *sensor.Sensor, f *calibration.File, pixel int) error {
	c := f.Calibration()
	fmt.Fprintf(w, "Sensor:       %s\n", s)
	if c.Len() == 0 {
		return errors.New("empty calibration")
	}
	gm, gs := stat.MeanStdDev(c.Gain, nil)
	om, osd := stat.MeanStdDev(c.Offset, nil)
	fmt.Fprintf(w, "Gain:         %.4g - %.4g (mean %.4g, stddev %.3g)\n", floats.Min(c.Gain), floats.Max(c.Gain), gm, gs)
	fmt.Fprintf(w, "Offset:       %s - %s (mean %s, stddev %.3g)\n", s.Unit.Format(floats.Min(c.Offset)), s.Unit.Format(floats.Max(c.Offset)), s.Unit.Format(om), osd)
	if r := f.Report; r != nil {
		fmt.Fprintf(w, "Samples:      %d\n", r.Samples)
		for _, st := range []calibration.Status{calibration.StatusFitted, calibration.StatusIllConditioned, calibration.StatusInvalidInput, calibration.StatusIdentity} {
			fmt.Fprintf(w, "%-14s%d\n", st.String()+":", r.Count(st))
		}
		for _, st := range []calibration.Status{calibration.StatusIllConditioned, calibration.StatusInvalidInput} {
			for _, p := range r.Indexes(st) {
				fmt.Fprintf(w, "  %s at row %d column %d\n", st, p/s.Cols, p%s.Cols)
			}
		}
	}
	if pixel < 0 {
		return nil
	}
	if pixel >= c.Len() {
		return fmt.Errorf("pixel %d out of range [0, %d)", pixel, c.Len())
	}
	px := c.At(pixel)
	fmt.Fprintf(w, "Pixel %d:      gain %g offset %g\n", pixel, px.Gain, px.Offset)
	if f.Report != nil {
		pr := f.Report.Pixels[pixel]
		fmt.Fprintf(w, "  status %s, %d samples, rss %g\n", pr.Status, pr.Samples, pr.RSS)
	}
	return nil
}

func mainImpl() error {
	pixel := flag.Int("pixel", -1, "print the details of this pixel")
	flag.Parse()
	if flag.NArg() != 1 {
		return errors.New("supply path to a calibration file")
	}
	r, err := os.Open(flag.Arg(0))
	if err != nil {
		return err
	}
	defer r.Close()
	f, err := calibration.LoadFile(r)
	if err != nil {
		return err
	}
	s, err := sensor.ByName(f.Sensor)
	if err != nil {
		return err
	}
	return summary(os.Stdout, s, f, *pixel)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcal-info: %s.\n", err)
		os.Exit(1)
	}
}
