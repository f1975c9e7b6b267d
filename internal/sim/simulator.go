package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/cardiosim/internal/stimulus"
)

// DefaultCheckEvery is how many steps pass between context checks.
const DefaultCheckEvery = 4096

// Result is what a completed run returns.
type Result struct {
	Model      string
	Rule       string
	Iterations int
	Pacing     stimulus.Pacing
	Final      *State
	Values     map[string]float64
	Elapsed    time.Duration
}

// Simulator drives one model through the pacing protocol. A Simulator and
// its analyzers belong to one goroutine; see Ensemble for concurrent runs.
type Simulator struct {
	model      Model
	rule       IterationRule
	keys       PacingKeys
	logger     *slog.Logger
	checkEvery int
	analyzers  []*registration
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithIterationRule replaces DefaultOvershoot.
func WithIterationRule(r IterationRule) SimOption {
	return func(s *Simulator) { s.rule = r }
}

// WithLogger sets the logger for run diagnostics.
func WithLogger(l *slog.Logger) SimOption {
	return func(s *Simulator) { s.logger = l }
}

// WithPacingKeys overrides the parameter names pacing is read from.
func WithPacingKeys(k PacingKeys) SimOption {
	return func(s *Simulator) { s.keys = k }
}

// WithCheckEvery sets how often Run polls its context.
func WithCheckEvery(n int) SimOption {
	return func(s *Simulator) { s.checkEvery = n }
}

func New(m Model, opts ...SimOption) *Simulator {
	s := &Simulator{
		model:      m,
		rule:       DefaultOvershoot,
		keys:       DefaultPacingKeys,
		logger:     slog.Default(),
		checkEvery: DefaultCheckEvery,
		analyzers:  make([]*registration, 0),
	}
	if pk, ok := m.(PacingKeyer); ok {
		s.keys = pk.PacingKeys()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.checkEvery < 1 {
		s.checkEvery = DefaultCheckEvery
	}
	return s
}

// Model returns the model the simulator drives.
func (s *Simulator) Model() Model { return s.model }

// AddAnalyzer appends a to the pipeline. Hooks run in registration order.
func (s *Simulator) AddAnalyzer(a Analyzer, opts ...Option) {
	s.analyzers = append(s.analyzers, register(a, opts))
}

// Analyzers returns the registered analyzers in order.
func (s *Simulator) Analyzers() []Analyzer {
	out := make([]Analyzer, len(s.analyzers))
	for i, r := range s.analyzers {
		out[i] = r.analyzer
	}
	return out
}

// Run executes the full protocol for p.
//
// Configuration is validated before any analyzer hook is invoked. Every
// analyzer is then reset and pre-aggregated against the seeded state, the
// model is advanced for the number of steps the iteration rule yields with
// every analyzer aggregating after each step, and finally each analyzer is
// post-aggregated once with the final state. The first hook error aborts
// the run. Run never fails for numerical reasons; NaN produced by a model
// propagates into the state and analyzer output.
func (s *Simulator) Run(ctx context.Context, p Params) (*Result, error) {
	start := time.Now()

	pacing, err := p.Pacing(s.keys)
	if err != nil {
		return nil, err
	}
	sched, err := stimulus.NewSchedule(pacing)
	if err != nil {
		return nil, pacingError(err, s.keys)
	}
	if err := s.rule.Validate(); err != nil {
		return nil, err
	}
	iterations := s.rule.Iterations(pacing)
	if iterations < 1 {
		return nil, invalid(s.keys.Timestep, fmt.Sprintf("%s yields %d iterations", s.rule, iterations))
	}

	layout := s.model.Layout()
	st, err := SeedState(layout, p)
	if err != nil {
		return nil, err
	}
	k, err := s.model.Constants(p)
	if err != nil {
		return nil, err
	}
	fn, err := s.model.Bind(layout, k)
	if err != nil {
		return nil, err
	}
	if vi := fn.Voltage(); vi < 0 || vi >= layout.Len() {
		return nil, fmt.Errorf("sim: model %s: voltage index %d outside layout of %d", s.model.Name(), vi, layout.Len())
	}

	s.logger.Debug("run starting",
		"model", s.model.Name(),
		"rule", s.rule.String(),
		"iterations", iterations,
		"beats", sched.Beats(),
		"s2_onset", sched.S2,
		"analyzers", len(s.analyzers))

	frame := NewFrame(st)
	for _, r := range s.analyzers {
		r.prepare(sched)
		if err := r.analyzer.Reset(frame); err != nil {
			return nil, r.fail("Reset", -1, err)
		}
	}
	for _, r := range s.analyzers {
		if r.pre == nil {
			continue
		}
		if err := r.pre(frame); err != nil {
			return nil, r.fail("PreAggregate", -1, err)
		}
	}

	onsets := sched.Onsets()
	next := 0
	in := Step{
		Iterations: iterations,
		Dt:         pacing.Timestep,
		Beat:       -1,
		Beats:      sched.Beats(),
	}
	for i := 0; i < iterations; i++ {
		if i%s.checkEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("sim: run canceled at step %d of %d: %w", i, iterations, ctx.Err())
			default:
			}
		}

		for next < len(onsets) && onsets[next] <= i {
			in.Beat = next
			next++
		}
		in.Index = i
		in.Time = float64(i) * in.Dt
		in.Stimulus = sched.At(i)

		advance(st, k, in, fn)

		for _, r := range s.analyzers {
			if r.agg == nil || !r.observes(in) {
				continue
			}
			if err := r.agg(in, frame); err != nil {
				return nil, r.fail("Aggregate", i, err)
			}
		}
	}

	for _, r := range s.analyzers {
		if r.post == nil {
			continue
		}
		if err := r.post(frame); err != nil {
			return nil, r.fail("PostAggregate", -1, err)
		}
	}

	result := &Result{
		Model:      s.model.Name(),
		Rule:       s.rule.String(),
		Iterations: iterations,
		Pacing:     pacing,
		Final:      st,
		Values:     make(map[string]float64),
	}
	for _, r := range s.analyzers {
		if r.reporter == nil {
			continue
		}
		for key, v := range r.reporter.Report() {
			result.Values[r.name+"."+key] = v
		}
	}
	result.Elapsed = time.Since(start)

	s.logger.Debug("run finished",
		"model", result.Model,
		"iterations", iterations,
		"elapsed", result.Elapsed)

	return result, nil
}
