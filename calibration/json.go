// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package calibration

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// File is the on-disk form of a calibration for one sensor.
type File struct {
	Sensor string    `json:"sensor"`
	Rows   int       `json:"rows"`
	Cols   int       `json:"cols"`
	Gain   []float64 `json:"gain"`
	Offset []float64 `json:"offset"`
	Report *Report   `json:"report,omitempty"`
}

// Save writes c for sensor s as indented JSON. r is optional.
func Save(w io.Writer, s *sensor.Sensor, c *Calibration, r *Report) error {
	if c.Len() != s.Pixels() || len(c.Offset) != s.Pixels() {
		return &ShapeMismatchError{Raw: s.Pixels(), Gain: c.Len(), Offset: len(c.Offset), Sample: -1}
	}
	f := File{Sensor: s.Name, Rows: s.Rows, Cols: s.Cols, Gain: c.Gain, Offset: c.Offset, Report: r}
	data, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// Load reads a calibration written by Save and checks it against the
// sensor it names.
func Load(r io.Reader) (*sensor.Sensor, *Calibration, error) {
	f, err := LoadFile(r)
	if err != nil {
		return nil, nil, err
	}
	s, err := sensor.ByName(f.Sensor)
	if err != nil {
		return nil, nil, err
	}
	return s, f.Calibration(), nil
}

// LoadFile is like Load but returns the whole file, including the stored
// report if any.
func LoadFile(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	s, err := sensor.ByName(f.Sensor)
	if err != nil {
		return nil, err
	}
	if f.Rows != s.Rows || f.Cols != s.Cols {
		return nil, fmt.Errorf("calibration for %s is %dx%d, expected %dx%d", s.Name, f.Rows, f.Cols, s.Rows, s.Cols)
	}
	if len(f.Gain) != s.Pixels() || len(f.Offset) != s.Pixels() {
		return nil, &ShapeMismatchError{Raw: s.Pixels(), Gain: len(f.Gain), Offset: len(f.Offset), Sample: -1}
	}
	if f.Report != nil && len(f.Report.Pixels) != s.Pixels() {
		return nil, fmt.Errorf("calibration report has %d pixels, expected %d", len(f.Report.Pixels), s.Pixels())
	}
	return &f, nil
}

// Calibration returns the gain and offset arrays of f.
func (f *File) Calibration() *Calibration {
	return &Calibration{Gain: f.Gain, Offset: f.Offset}
}
