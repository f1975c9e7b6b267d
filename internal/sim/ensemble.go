package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Setup builds run i of an ensemble. Each call must return a fresh
// Simulator with its own analyzers; nothing mutable may be shared between
// runs.
type Setup func(i int) (*Simulator, Params, error)

// Ensemble runs independent simulations across a bounded set of workers.
type Ensemble struct {
	workers int
}

// NewEnsemble returns an ensemble using at most workers goroutines. A
// value below one means no limit.
func NewEnsemble(workers int) *Ensemble {
	return &Ensemble{workers: workers}
}

// Run executes n runs and returns their results by index. The first failure
// cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, n int, setup Setup) ([]*Result, error) {
	results := make([]*Result, n)

	g, ctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			s, p, err := setup(i)
			if err != nil {
				return fmt.Errorf("ensemble run %d: %w", i, err)
			}
			res, err := s.Run(ctx, p)
			if err != nil {
				return fmt.Errorf("ensemble run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
