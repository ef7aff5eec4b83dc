// Copyright 2026 The Pybadge-Thermal-Depth-Camera Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package calibration

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// varianceEpsilon is the raw variance, relative to the mean square of the raw
// values, under which a pixel cannot be fitted. It does not depend on the
// scale of the readings.
const varianceEpsilon = 1e-12

// Sample is one capture of a uniform target at a known value.
type Sample struct {
	Raw   []float64 // One reading per pixel.
	Truth float64   // Ground truth, same for every pixel.
}

// Set is an ordered collection of samples.
type Set []Sample

// Truths returns the ground truth of every sample.
func (s Set) Truths() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Truth
	}
	return out
}

// Status describes how a pixel was solved.
type Status uint8

// Valid values for Status.
const (
	// StatusIdentity means there was no sample; the pixel kept gain 1 and
	// offset 0.
	StatusIdentity Status = 0
	// StatusFitted means the least squares fit is well defined.
	StatusFitted Status = 1
	// StatusIllConditioned means every sample had the same raw value. Gain is
	// 1 and offset is mean(truth) - mean(raw).
	StatusIllConditioned Status = 2
	// StatusInvalidInput means a raw or truth value was NaN or infinite; the
	// pixel kept gain 1 and offset 0.
	StatusInvalidInput Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusIdentity:
		return "identity"
	case StatusFitted:
		return "fitted"
	case StatusIllConditioned:
		return "ill-conditioned"
	case StatusInvalidInput:
		return "invalid-input"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for _, v := range []Status{StatusIdentity, StatusFitted, StatusIllConditioned, StatusInvalidInput} {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", b)
}

// PixelReport is the diagnostic of one pixel.
type PixelReport struct {
	Status  Status  `json:"status"`
	Samples int     `json:"samples"`
	RSS     float64 `json:"rss"` // Residual sum of squares of the chosen gain and offset.
}

// Report holds the per-pixel diagnostics of Solve. It never affects the
// fitted values.
type Report struct {
	Samples int           `json:"samples"`
	Pixels  []PixelReport `json:"pixels"`
}

// Count returns the number of pixels with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for i := range r.Pixels {
		if r.Pixels[i].Status == s {
			n++
		}
	}
	return n
}

// Indexes returns the pixels with status s in increasing order.
func (r *Report) Indexes(s Status) []int {
	var out []int
	for i := range r.Pixels {
		if r.Pixels[i].Status == s {
			out = append(out, i)
		}
	}
	return out
}

// Option configures Solve.
type Option func(*options)

type options struct {
	workers int
	logger  *zap.Logger
}

// WithWorkers solves pixels with n goroutines. Results do not depend on n.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger logs per-pixel diagnostics at debug level and a summary at info
// level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Solve fits a gain and an offset for each of the pixels independently,
// minimizing
//
//	sum_i (truth_i - (raw_i[p]*gain + offset))^2
//
// over the samples of set.
//
// Every sample must have exactly pixels values, otherwise a
// *ShapeMismatchError is returned. An empty set is valid and returns the
// identity calibration. Pixels without raw variance are not an error; see
// StatusIllConditioned.
func Solve(ctx context.Context, set Set, pixels int, opts ...Option) (*Calibration, *Report, error) {
	o := options{workers: 1, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if pixels < 0 {
		return nil, nil, fmt.Errorf("invalid pixel count %d", pixels)
	}
	for i := range set {
		if len(set[i].Raw) != pixels {
			return nil, nil, &ShapeMismatchError{Raw: len(set[i].Raw), Gain: pixels, Offset: pixels, Sample: i}
		}
	}

	c := New(pixels)
	r := &Report{Samples: len(set), Pixels: make([]PixelReport, pixels)}
	if len(set) == 0 {
		o.logger.Info("empty calibration set, keeping identity", zap.Int("pixels", pixels))
		return c, r, nil
	}

	workers := o.workers
	if workers > pixels {
		workers = pixels
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (pixels + workers - 1) / workers
	truth := set.Truths()
	eg, ctx := errgroup.WithContext(ctx)
	for from := 0; from < pixels; from += chunk {
		from := from
		to := from + chunk
		if to > pixels {
			to = pixels
		}
		// Each goroutine owns the slots [from, to).
		eg.Go(func() error {
			raw := make([]float64, len(set))
			for p := from; p < to; p++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				for i := range set {
					raw[i] = set[i].Raw[p]
				}
				px, pr := fitPixel(raw, truth)
				c.Gain[p] = px.Gain
				c.Offset[p] = px.Offset
				r.Pixels[p] = pr
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	for p := range r.Pixels {
		if r.Pixels[p].Status != StatusFitted {
			o.logger.Debug("pixel not fitted",
				zap.Int("pixel", p),
				zap.Stringer("status", r.Pixels[p].Status),
				zap.Float64("gain", c.Gain[p]),
				zap.Float64("offset", c.Offset[p]))
		}
	}
	o.logger.Info("solved",
		zap.Int("pixels", pixels),
		zap.Int("samples", len(set)),
		zap.Int("ill_conditioned", r.Count(StatusIllConditioned)),
		zap.Int("invalid", r.Count(StatusInvalidInput)))
	return c, r, nil
}

// fitPixel solves the normal equations of one pixel in closed form.
func fitPixel(raw, truth []float64) (Pixel, PixelReport) {
	pr := PixelReport{Samples: len(raw)}
	if !finite(raw) || !finite(truth) {
		pr.Status = StatusInvalidInput
		return Identity, pr
	}
	meanRaw, varRaw := stat.PopMeanVariance(raw, nil)
	if varRaw == 0 || varRaw <= varianceEpsilon*(varRaw+meanRaw*meanRaw) {
		px := Pixel{Gain: 1, Offset: stat.Mean(truth, nil) - meanRaw}
		pr.Status = StatusIllConditioned
		pr.RSS = rss(raw, truth, px)
		return px, pr
	}
	offset, gain := stat.LinearRegression(raw, truth, nil, false)
	px := Pixel{Gain: gain, Offset: offset}
	pr.Status = StatusFitted
	pr.RSS = rss(raw, truth, px)
	return px, pr
}

func rss(raw, truth []float64, px Pixel) float64 {
	sum := 0.
	for i := range raw {
		d := truth[i] - px.Apply(raw[i])
		sum += d * d
	}
	return sum
}

func finite(v []float64) bool {
	return !floats.HasNaN(v) && !math.IsInf(floats.Max(v), 0) && !math.IsInf(floats.Min(v), 0)
}
