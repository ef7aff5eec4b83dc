// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tool holds the plumbing shared by the commands.
package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/maruel/interrupt"
	"go.uber.org/zap"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// Logger returns a development logger if verbose is set, a no-op logger
// otherwise.
func Logger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

// Context returns a context canceled on Ctrl-C.
func Context() context.Context {
	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-interrupt.Channel
		cancel()
	}()
	return ctx
}

// LoadCalibration reads the calibration file at path. If want is not nil,
// the file must be for this sensor.
func LoadCalibration(path string, want *sensor.Sensor) (*sensor.Sensor, *calibration.Calibration, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	s, c, err := calibration.Load(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if want != nil && s != want {
		return nil, nil, fmt.Errorf("%s: calibration is for %s, expected %s", path, s.Name, want.Name)
	}
	return s, c, nil
}

// SaveCalibration writes c to path.
func SaveCalibration(path string, s *sensor.Sensor, c *calibration.Calibration, r *calibration.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := f.Close(); err == nil {
			err = err2
		}
	}()
	return calibration.Save(f, s, c, r)
}
