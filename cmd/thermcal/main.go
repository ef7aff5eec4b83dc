// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcal computes the per-pixel calibration of the thermal camera and the
// depth sensor from captures of uniform targets.
//
// For each sensor it writes the calibration as JSON, a plot of the gains and
// offsets, and a before/after plot of every example capture.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/capture"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/config"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/internal/tool"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/render"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

type runner struct {
	cfg   *config.Config
	log   *zap.Logger
	plots bool
}

// run calibrates sensor s.
func (r *runner) run(ctx context.Context, s *sensor.Sensor) error {
	folders := r.cfg.For(s)
	set, err := capture.LoadDir(folders.Calibration, s)
	if err != nil {
		return err
	}
	r.log.Info("loaded", zap.Stringer("sensor", s), zap.Int("samples", len(set)), zap.String("dir", folders.Calibration))
	c, report, err := calibration.Solve(ctx, set, s.Pixels(), calibration.WithWorkers(r.cfg.Goroutines()), calibration.WithLogger(r.log))
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d samples, %d fitted, %d ill-conditioned, %d invalid\n",
		s.Name, len(set), report.Count(calibration.StatusFitted), report.Count(calibration.StatusIllConditioned), report.Count(calibration.StatusInvalidInput))
	if err := os.MkdirAll(r.cfg.Output, 0o755); err != nil {
		return err
	}
	if err := tool.SaveCalibration(filepath.Join(r.cfg.Output, folders.File), s, c, report); err != nil {
		return err
	}
	if !r.plots {
		return nil
	}
	gain, err := c.GainGrid(s)
	if err != nil {
		return err
	}
	offset, err := c.OffsetGrid(s)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("%s calibration", s.Name)
	if err := r.plot(role(s)+"-calibration.png", title, "Gain", "Offset", orient(s, gain), orient(s, offset)); err != nil {
		return err
	}
	return r.examples(s, folders.Examples, c)
}

// examples plots every capture in dir before and after correction.
func (r *runner) examples(s *sensor.Sensor, dir string, c *calibration.Calibration) error {
	files, err := capture.List(dir)
	if errors.Is(err, os.ErrNotExist) {
		r.log.Info("no examples", zap.String("dir", dir))
		return nil
	}
	if err != nil {
		return err
	}
	for _, path := range files {
		raw, err := capture.ReadFile(path, s)
		if err != nil {
			return err
		}
		corrected, err := c.ApplyFrame(raw)
		if err != nil {
			return err
		}
		name := role(s) + "-" + strings.TrimSuffix(filepath.Base(path), capture.Ext) + ".png"
		title := fmt.Sprintf("%s example %s", s.Name, filepath.Base(path))
		if err := r.plot(name, title, "Raw", "Corrected", orient(s, raw.Grid()), orient(s, corrected.Grid())); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) plot(name, title, left, right string, a, b mat.Matrix) (err error) {
	path := filepath.Join(r.cfg.Output, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := f.Close(); err == nil {
			err = err2
		}
	}()
	r.log.Debug("plot", zap.String("path", path))
	return render.SideBySide(f, title, left, right, a, b)
}

// orient returns m as the sensor is seen. The depth zones are stored column
// first.
func orient(s *sensor.Sensor, m *mat.Dense) mat.Matrix {
	if s == sensor.Depth {
		return m.T()
	}
	return m
}

func role(s *sensor.Sensor) string {
	if s == sensor.Depth {
		return "depth"
	}
	return "thermal"
}

func mainImpl() error {
	configPath := flag.String("config", "", "configuration file; defaults to ~/.config/thermcal/thermcal.yaml")
	only := flag.String("sensor", "", "only calibrate this sensor: thermal or depth")
	output := flag.String("o", "", "output directory, overrides the configuration")
	workers := flag.Int("workers", 0, "goroutines used to solve, overrides the configuration")
	noPlots := flag.Bool("noplots", false, "do not write plots")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}

	log, err := tool.Logger(*verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	if *configPath == "" {
		if *configPath, err = config.Path(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *output != "" {
		cfg.Output = *output
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}
	sensors := []*sensor.Sensor{sensor.Thermal, sensor.Depth}
	if *only != "" {
		s, err := sensor.ByName(*only)
		if err != nil {
			return err
		}
		sensors = []*sensor.Sensor{s}
	}

	ctx := tool.Context()
	r := &runner{cfg: cfg, log: log, plots: !*noPlots}
	for _, s := range sensors {
		if err := r.run(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcal: %s.\n", err)
		os.Exit(1)
	}
}
