// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package capture reads and writes the CSV frames saved by the badge.
//
// A thermal frame is 24 lines of 32 values, each line terminated by a comma.
// A depth frame is 64 lines, one per zone; the first column is the nearest
// return and the others are ignored.
//
// Calibration captures are named after their ground truth, e.g. "20.5.csv"
// was taken in front of a 20.5°C target.
package capture

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// Ext is the extension of capture files.
const Ext = ".csv"

// ReadFrame parses one frame of sensor s.
func ReadFrame(r io.Reader, s *sensor.Sensor) (*sensor.Frame, error) {
	c := csv.NewReader(r)
	c.FieldsPerRecord = -1
	c.TrimLeadingSpace = true
	records, err := c.ReadAll()
	if err != nil {
		return nil, err
	}
	var pix []float64
	if s == sensor.Depth {
		pix, err = depthValues(records, s)
	} else {
		pix, err = gridValues(records, s)
	}
	if err != nil {
		return nil, err
	}
	return sensor.NewFrame(s, pix)
}

func gridValues(records [][]string, s *sensor.Sensor) ([]float64, error) {
	if len(records) != s.Rows {
		return nil, fmt.Errorf("%s frame has %d lines, expected %d", s.Name, len(records), s.Rows)
	}
	pix := make([]float64, 0, s.Pixels())
	for y, rec := range records {
		// Lines end with a comma.
		if len(rec) == s.Cols+1 && rec[s.Cols] == "" {
			rec = rec[:s.Cols]
		}
		if len(rec) != s.Cols {
			return nil, fmt.Errorf("line %d has %d values, expected %d", y+1, len(rec), s.Cols)
		}
		for x, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", y+1, x+1, err)
			}
			pix = append(pix, v)
		}
	}
	return pix, nil
}

func depthValues(records [][]string, s *sensor.Sensor) ([]float64, error) {
	if len(records) != s.Pixels() {
		return nil, fmt.Errorf("%s frame has %d lines, expected %d", s.Name, len(records), s.Pixels())
	}
	pix := make([]float64, s.Pixels())
	for i, rec := range records {
		v, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		pix[i] = v
	}
	return pix, nil
}

// WriteFrame writes f in the format ReadFrame reads.
func WriteFrame(w io.Writer, f *sensor.Frame) error {
	c := csv.NewWriter(w)
	s := f.Sensor
	if s == sensor.Depth {
		for _, v := range f.Pix {
			if err := c.Write([]string{format(v)}); err != nil {
				return err
			}
		}
	} else {
		rec := make([]string, s.Cols+1)
		for y := 0; y < s.Rows; y++ {
			for x := 0; x < s.Cols; x++ {
				rec[x] = format(f.Value(x, y))
			}
			if err := c.Write(rec); err != nil {
				return err
			}
		}
	}
	c.Flush()
	return c.Error()
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadFile reads one frame from path.
func ReadFile(path string, s *sensor.Sensor) (*sensor.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fr, err := ReadFrame(f, s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fr, nil
}

// ParseTruth returns the ground truth encoded in a capture file name.
func ParseTruth(path string) (float64, error) {
	name := filepath.Base(path)
	v, err := strconv.ParseFloat(strings.TrimSuffix(name, Ext), 64)
	if err != nil {
		return 0, fmt.Errorf("%s: file name is not a ground truth value", name)
	}
	return v, nil
}

// List returns the capture files in dir, sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Ext) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadDir reads every capture in dir as a calibration sample of sensor s.
//
// Every invalid file is reported in the returned error; no partial set is
// returned.
func LoadDir(dir string, s *sensor.Sensor) (calibration.Set, error) {
	files, err := List(dir)
	if err != nil {
		return nil, err
	}
	set := make(calibration.Set, 0, len(files))
	var errs error
	for _, path := range files {
		truth, err := ParseTruth(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		f, err := ReadFile(path, s)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		set = append(set, calibration.Sample{Raw: f.Pix, Truth: truth})
	}
	if errs != nil {
		return nil, errs
	}
	return set, nil
}
