// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcal-apply corrects a single capture.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/capture"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/internal/tool"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/render"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// write encodes f according to the extension of path.
func write(w io.Writer, path string, f *sensor.Frame, colorized bool) error {
	switch filepath.Ext(path) {
	case ".csv":
		return capture.WriteFrame(w, f)
	case ".png":
		return render.EncodePNG(w, f, colorized)
	default:
		return fmt.Errorf("%s: unsupported output format, use .csv or .png", path)
	}
}

// save writes f to path.
func save(path string, f *sensor.Frame, colorized bool) (err error) {
	o, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := o.Close(); err == nil {
			err = err2
		}
	}()
	return write(o, path, f, colorized)
}

func mainImpl() error {
	calPath := flag.String("cal", "", "calibration file written by thermcal")
	out := flag.String("o", "", "output file, .csv or .png")
	colorized := flag.Bool("color", false, "save a colorized PNG instead of the default 8 bits gray")
	meta := flag.Bool("meta", false, "print frame statistics")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 1 {
		return errors.New("supply path to the CSV capture to correct")
	}
	if *calPath == "" || *out == "" {
		return errors.New("-cal and -o are required")
	}
	log, err := tool.Logger(*verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	s, c, err := tool.LoadCalibration(*calPath, nil)
	if err != nil {
		return err
	}
	raw, err := capture.ReadFile(flag.Arg(0), s)
	if err != nil {
		return err
	}
	corrected, err := c.ApplyFrame(raw)
	if err != nil {
		return err
	}
	log.Debug("corrected", zap.Stringer("sensor", s), zap.Float64("min", corrected.Min), zap.Float64("max", corrected.Max))
	if *meta {
		fmt.Printf("Sensor:    %s\n", s)
		fmt.Printf("Raw:       %g - %g\n", raw.Min, raw.Max)
		fmt.Printf("Corrected: %s - %s\n", s.Unit.Format(corrected.Min), s.Unit.Format(corrected.Max))
	}
	return save(*out, corrected, *colorized)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcal-apply: %s.\n", err)
		os.Exit(1)
	}
}
