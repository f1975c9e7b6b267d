package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/experiment"
)

var ErrNoCandidate = errors.New("optim: no grid point produced a finite objective")

// Objective scores the reported values of one run. Lower is better; NaN
// marks a point as unusable.
type Objective func(values map[string]float64) float64

// Target scores a run by the distance of one reported value from want.
func Target(name string, want float64) Objective {
	return func(values map[string]float64) float64 {
		v, ok := values[name]
		if !ok {
			return math.NaN()
		}
		return math.Abs(v - want)
	}
}

// Minimize scores a run by one reported value.
func Minimize(name string) Objective {
	return func(values map[string]float64) float64 {
		v, ok := values[name]
		if !ok {
			return math.NaN()
		}
		return v
	}
}

// Candidate is one evaluated grid point.
type Candidate struct {
	Params map[string]float64
	Score  float64
	Values map[string]float64
}

// GridSearch evaluates every combination of parameter values and keeps the
// best scoring one.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges, workers: config.DefaultWorkers}
}

// SetWorkers bounds the number of runs evaluated at once.
func (g *GridSearch) SetWorkers(n int) { g.workers = n }

// Size returns the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search runs base once per grid point, with the point's values as
// parameter overrides, and returns the best candidate along with every
// evaluated point in grid order.
func (g *GridSearch) Search(
	ctx context.Context,
	runner *experiment.Runner,
	base *config.Config,
	objective Objective,
) (*Candidate, []Candidate, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, nil, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	for i, r := range g.ranges {
		if len(r) == 0 {
			return nil, nil, fmt.Errorf("optim: empty range for %s", g.paramNames[i])
		}
	}

	var points []map[string]float64
	g.enumerate(0, make(map[string]float64), &points)

	// Fail on configuration before starting any work.
	if _, err := runner.Build(g.configFor(base, points[0])); err != nil {
		return nil, nil, err
	}

	all := make([]Candidate, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	if g.workers > 0 {
		eg.SetLimit(g.workers)
	}
	for i, p := range points {
		i, p := i, p
		eg.Go(func() error {
			e, err := runner.Build(g.configFor(base, p))
			if err != nil {
				return err
			}
			out, err := e.Run(ctx)
			if err != nil {
				return fmt.Errorf("grid point %v: %w", p, err)
			}

			all[i] = Candidate{Params: p, Score: objective(out.Values), Values: out.Values}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	// Ties go to the earlier grid point.
	var best *Candidate
	for i := range all {
		if !math.IsNaN(all[i].Score) && (best == nil || all[i].Score < best.Score) {
			best = &all[i]
		}
	}
	if best == nil {
		return nil, all, ErrNoCandidate
	}
	return best, all, nil
}

func (g *GridSearch) configFor(base *config.Config, point map[string]float64) *config.Config {
	cfg := base.Clone()
	if cfg.Params == nil {
		cfg.Params = make(map[string]float64, len(point))
	}
	for k, v := range point {
		cfg.Params[k] = v
	}
	return cfg
}

func (g *GridSearch) enumerate(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		*out = append(*out, current)
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		g.enumerate(depth+1, newParams, out)
	}
}

// Range returns the values from..to inclusive in steps of step.
func Range(from, to, step float64) ([]float64, error) {
	if step <= 0 || to < from {
		return nil, fmt.Errorf("optim: invalid range %g:%g:%g", from, to, step)
	}
	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out, nil
}
