// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	fsnotify "gopkg.in/fsnotify.v1"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/capture"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensortest"
)

// processor corrects raw frames and publishes them.
type processor struct {
	log    *zap.Logger
	sensor *sensor.Sensor
	cal    *calibration.Calibration
	server *WebServer
}

func (p *processor) handle(raw *sensor.Frame, name string) error {
	f, err := p.cal.ApplyFrame(raw)
	if err != nil {
		return err
	}
	p.server.AddFrame(f, name)
	return nil
}

// watchDir publishes every capture written in dir until ctx is canceled.
func (p *processor) watchDir(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err = watcher.Add(dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err = <-watcher.Errors:
			return err
		case e := <-watcher.Events:
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 || !strings.HasSuffix(e.Name, capture.Ext) {
				continue
			}
			raw, err := capture.ReadFile(e.Name, p.sensor)
			if err != nil {
				// Likely still being written; a later event will pick it up.
				p.log.Debug("skipped", zap.String("file", e.Name), zap.Error(err))
				continue
			}
			if err := p.handle(raw, filepath.Base(e.Name)); err != nil {
				return err
			}
		}
	}
}

// fake publishes frames of a simulated sensor every period until ctx is
// canceled.
func (p *processor) fake(ctx context.Context, f *sensortest.Fake, period time.Duration) error {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if err := p.handle(f.NextFrame(), "fake"); err != nil {
				return err
			}
		}
	}
}
