package experiment

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/cardiosim/internal/analyzer"
	"github.com/san-kum/cardiosim/internal/config"
)

// SweepPoint is the restitution measurement at one S2 coupling interval.
type SweepPoint struct {
	S2 float64
	analyzer.Point
	Values map[string]float64
}

// Captured reports whether the S2 beat produced a measurable action
// potential.
func (p SweepPoint) Captured() bool {
	return !math.IsNaN(p.S2APD) && !math.IsNaN(p.DI)
}

// SweepResult is a restitution curve. Slope and Intercept are the least
// squares fit of S2 APD against DI over captured points; MaxSlope is the
// steepest slope between neighbouring captured points. All three are NaN
// with fewer than two captured points.
type SweepResult struct {
	Model     string
	Points    []SweepPoint
	Slope     float64
	Intercept float64
	MaxSlope  float64
	Elapsed   time.Duration
}

// Progress is called after each sweep run completes. Calls are serialized.
type Progress func(done, total int, p SweepPoint)

// Sweep runs cfg once per S2 value from cfg.Sweep, in parallel, and fits
// the restitution curve. A restitution analyzer over the final two beats is
// added when cfg does not name one.
func (r *Runner) Sweep(ctx context.Context, cfg *config.Config, progress Progress) (*SweepResult, error) {
	start := time.Now()
	values, err := cfg.Sweep.Values()
	if err != nil {
		return nil, err
	}

	base := cfg.Clone()
	if !hasKind(base.Analyzers, KindRestitution) {
		base.Analyzers = append(base.Analyzers, config.AnalyzerConfig{Kind: KindRestitution, FinalBeats: 2})
	}
	// Traces are per-run detail a sweep does not keep.
	kept := base.Analyzers[:0]
	for _, a := range base.Analyzers {
		if a.Kind != KindTrace && a.Kind != KindSnapshot {
			kept = append(kept, a)
		}
	}
	base.Analyzers = kept

	// Fail on configuration before starting any work.
	if _, err := r.Build(base); err != nil {
		return nil, err
	}

	points := make([]SweepPoint, len(values))
	var (
		mu   sync.Mutex
		done int
	)

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Sweep.Workers > 0 {
		g.SetLimit(cfg.Sweep.Workers)
	}
	for i, s2 := range values {
		i, s2 := i, s2
		g.Go(func() error {
			c := base.Clone()
			c.Pacing.S2 = config.Float(s2)

			e, err := r.Build(c)
			if err != nil {
				return err
			}
			out, err := e.Run(ctx)
			if err != nil {
				return fmt.Errorf("sweep s2=%g: %w", s2, err)
			}

			pt := SweepPoint{S2: s2, Values: out.Values}
			if out.Restitution != nil {
				pt.Point = *out.Restitution
			}
			points[i] = pt

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(values), pt)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &SweepResult{Model: cfg.Model, Points: points}
	res.Intercept, res.Slope, res.MaxSlope = fitRestitution(points)
	res.Elapsed = time.Since(start)

	r.logger.Info("sweep complete",
		"model", cfg.Model,
		"runs", len(points),
		"slope", res.Slope,
		"elapsed", res.Elapsed)
	return res, nil
}

func hasKind(list []config.AnalyzerConfig, kind string) bool {
	for _, a := range list {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

func fitRestitution(points []SweepPoint) (intercept, slope, maxSlope float64) {
	var di, apd []float64
	for _, p := range points {
		if p.Captured() {
			di = append(di, p.DI)
			apd = append(apd, p.S2APD)
		}
	}
	nan := math.NaN()
	if len(di) < 2 {
		return nan, nan, nan
	}

	order := make([]int, len(di))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return di[order[a]] < di[order[b]] })
	x := make([]float64, len(di))
	y := make([]float64, len(di))
	for i, j := range order {
		x[i], y[i] = di[j], apd[j]
	}

	intercept, slope = stat.LinearRegression(x, y, nil, false)

	maxSlope = nan
	for i := 1; i < len(x); i++ {
		dx := x[i] - x[i-1]
		if dx <= 0 {
			continue
		}
		s := (y[i] - y[i-1]) / dx
		if math.IsNaN(maxSlope) || s > maxSlope {
			maxSlope = s
		}
	}
	return intercept, slope, maxSlope
}
