// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the tools' configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
)

// Folders holds the capture folders of one sensor.
type Folders struct {
	// Calibration holds captures of a uniform target, named after the ground
	// truth.
	Calibration string `yaml:"calibration"`
	// Examples holds captures to correct with the calibration.
	Examples string `yaml:"examples"`
	// File is the calibration file.
	File string `yaml:"file"`
}

// Viewer configures the live viewer.
type Viewer struct {
	Port   int    `yaml:"port"`
	Watch  string `yaml:"watch"`
	Sensor string `yaml:"sensor"`
	Color  bool   `yaml:"color"`
}

// Config is the content of thermcal.yaml.
type Config struct {
	Thermal Folders `yaml:"thermal"`
	Depth   Folders `yaml:"depth"`
	// Output is where plots are written.
	Output string `yaml:"output"`
	// Workers is the number of goroutines used to solve a calibration. 0 means
	// one per CPU.
	Workers int    `yaml:"workers"`
	Viewer  Viewer `yaml:"viewer"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills unset fields with their default value.
func (c *Config) Normalize() {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&c.Thermal.Calibration, filepath.Join("CalibrationData", "Thermal"))
	def(&c.Depth.Calibration, filepath.Join("CalibrationData", "Depth"))
	def(&c.Thermal.Examples, filepath.Join("Examples", "Thermal"))
	def(&c.Depth.Examples, filepath.Join("Examples", "Depth"))
	def(&c.Thermal.File, "thermal.json")
	def(&c.Depth.File, "depth.json")
	def(&c.Output, "out")
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.Viewer.Port == 0 {
		c.Viewer.Port = 8010
	}
	def(&c.Viewer.Watch, filepath.Join("Data", sensor.Thermal.Name))
	def(&c.Viewer.Sensor, "thermal")
}

// Goroutines returns the number of goroutines to solve with, resolving 0 to
// one per CPU.
func (c *Config) Goroutines() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// For returns the folders of sensor s.
func (c *Config) For(s *sensor.Sensor) *Folders {
	if s == sensor.Depth {
		return &c.Depth
	}
	return &c.Thermal
}

// Validate returns an error if a field has an invalid value.
func (c *Config) Validate() error {
	if _, err := sensor.ByName(c.Viewer.Sensor); err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	if c.Viewer.Port < 0 || c.Viewer.Port > 65535 {
		return fmt.Errorf("viewer: invalid port %d", c.Viewer.Port)
	}
	return nil
}

// Path returns the default location of the configuration file.
func Path() (string, error) {
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, ".config", "thermcal", "thermcal.yaml"), nil
}

// Load reads the configuration at path.
//
// A missing file is not an error; the default configuration is written there
// instead. An existing file is normalized and rewritten when it changed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c := Default()
		return c, c.Save(path)
	}
	if err != nil {
		return nil, err
	}
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if out, err := yaml.Marshal(c); err == nil && !bytes.Equal(out, data) {
		if err := c.Save(path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Save writes c at path, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
