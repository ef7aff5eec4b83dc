// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcal-view serves a live view of the corrected captures written in a
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/calibration"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/config"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/internal/tool"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensor"
	"github.com/D-Winker/Pybadge-Thermal-Depth-Camera/sensortest"
)

func mainImpl() error {
	configPath := flag.String("config", "", "configuration file; defaults to ~/.config/thermcal/thermcal.yaml")
	port := flag.Int("port", 0, "http port to listen on, overrides the configuration")
	watch := flag.String("watch", "", "directory to watch, overrides the configuration")
	sensorName := flag.String("sensor", "", "thermal or depth, overrides the configuration")
	calPath := flag.String("cal", "", "calibration file; raw values are shown if unset")
	fake := flag.Bool("fake", false, "use a simulated sensor instead of watching a directory")
	colorized := flag.Bool("color", false, "colorize frames")
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
	if *port != 0 {
		cfg.Viewer.Port = *port
	}
	if *watch != "" {
		cfg.Viewer.Watch = *watch
	}
	if *sensorName != "" {
		cfg.Viewer.Sensor = *sensorName
	}
	if *colorized {
		cfg.Viewer.Color = true
	}
	s, err := sensor.ByName(cfg.Viewer.Sensor)
	if err != nil {
		return err
	}

	p := &processor{log: log, sensor: s, cal: calibration.New(s.Pixels())}
	var f *sensortest.Fake
	if *fake {
		f = sensortest.New(s, time.Now().UnixNano())
		p.cal = f.Want
	}
	if *calPath != "" {
		if _, p.cal, err = tool.LoadCalibration(*calPath, s); err != nil {
			return err
		}
	}

	ctx := tool.Context()
	p.server = NewWebServer(log, cfg.Viewer.Color)
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Viewer.Port), Handler: p.server.Handler()}
	go func() {
		<-ctx.Done()
		p.server.Close()
		srv.Shutdown(context.Background())
	}()
	fmt.Printf("Listening on %d\n", cfg.Viewer.Port)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http", zap.Error(err))
		}
	}()

	if f != nil {
		return p.fake(ctx, f, 250*time.Millisecond)
	}
	log.Info("watching", zap.String("dir", cfg.Viewer.Watch), zap.Stringer("sensor", s))
	return p.watchDir(ctx, cfg.Viewer.Watch)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcal-view: %s.\n", err)
		os.Exit(1)
	}
}
