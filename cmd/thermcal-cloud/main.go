// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcal-cloud projects a depth capture in space and paints it with a
// thermal capture taken at the same time. The result is a PLY point cloud.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/capture"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/geometry"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/internal/tool"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/render"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// load reads a capture and corrects it when calPath is set.
func load(path, calPath string, s *sensor.Sensor) (*sensor.Frame, error) {
	f, err := capture.ReadFile(path, s)
	if err != nil || calPath == "" {
		return f, err
	}
	_, c, err := tool.LoadCalibration(calPath, s)
	if err != nil {
		return nil, err
	}
	return c.ApplyFrame(f)
}

func cloud(depth, thermal *sensor.Frame) ([]geometry.Point, error) {
	scene, err := geometry.NewScene(depth)
	if err != nil {
		return nil, err
	}
	return geometry.Cloud(scene, &geometry.ThermalCamera, thermal, render.ColorMap())
}

// save writes pts to path as PLY.
func save(path string, pts []geometry.Point) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if err2 := f.Close(); err == nil {
			err = err2
		}
	}()
	return geometry.WritePLY(f, pts)
}

func mainImpl() error {
	depthPath := flag.String("depth", "", "depth capture")
	thermalPath := flag.String("thermal", "", "thermal capture")
	depthCal := flag.String("depthcal", "", "depth calibration; raw values are used if unset")
	thermalCal := flag.String("thermalcal", "", "thermal calibration; raw values are used if unset")
	out := flag.String("o", "cloud.ply", "output PLY file")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *depthPath == "" || *thermalPath == "" {
		return errors.New("-depth and -thermal are required")
	}
	log, err := tool.Logger(*verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	depth, err := load(*depthPath, *depthCal, sensor.Depth)
	if err != nil {
		return err
	}
	thermal, err := load(*thermalPath, *thermalCal, sensor.Thermal)
	if err != nil {
		return err
	}
	pts, err := cloud(depth, thermal)
	if err != nil {
		return err
	}
	log.Info("cloud", zap.Int("points", len(pts)), zap.String("depth range", sensor.Depth.Unit.Format(depth.Max-depth.Min)))
	if err := save(*out, pts); err != nil {
		return err
	}
	fmt.Printf("%d points written to %s\n", len(pts), *out)
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcal-cloud: %s.\n", err)
		os.Exit(1)
	}
}
