package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/san-kum/cardiosim/internal/analyzer"
	"github.com/san-kum/cardiosim/internal/config"
	"github.com/san-kum/cardiosim/internal/models"
	"github.com/san-kum/cardiosim/internal/sim"
)

var ErrUnknownAnalyzer = errors.New("experiment: unknown analyzer kind")

// Analyzer kinds accepted in config.AnalyzerConfig.Kind.
const (
	KindTrace       = "trace"
	KindAPD         = "apd"
	KindRestitution = "restitution"
	KindExtrema     = "extrema"
	KindSnapshot    = "snapshot"
	KindUpstroke    = "upstroke"
)

// Kinds lists the analyzer kinds in display order.
var Kinds = []string{KindTrace, KindAPD, KindRestitution, KindExtrema, KindSnapshot, KindUpstroke}

// Outcome is a finished run with handles to the analyzers that produce
// more than scalars.
type Outcome struct {
	*sim.Result
	Config      *config.Config
	Params      sim.Params
	Traces      []*analyzer.Trace
	Restitution *analyzer.Point
}

// Experiment is one assembled run: a model, merged parameters and a fresh
// analyzer set. It is not safe for concurrent use.
type Experiment struct {
	cfg       *config.Config
	info      models.Info
	params    sim.Params
	simulator *sim.Simulator

	traces      []*analyzer.Trace
	restitution *analyzer.Restitution
}

// Runner assembles experiments from configs against a model registry.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
}

func NewRunner(reg *Registry, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{registry: reg, logger: logger}
}

// Registry returns the runner's model registry.
func (r *Runner) Registry() *Registry { return r.registry }

// Build resolves the model, merges parameters and creates the analyzers
// named by cfg.
func (r *Runner) Build(cfg *config.Config) (*Experiment, error) {
	m, err := r.registry.GetModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	info := describe(m)

	rule, err := cfg.IterationRule(info.Rule)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:       cfg,
		info:      info,
		params:    m.Defaults().Merge(cfg.Overrides()),
		simulator: sim.New(m, sim.WithIterationRule(rule), sim.WithLogger(r.logger)),
	}
	for i, ac := range cfg.Analyzers {
		if err := e.addAnalyzer(ac); err != nil {
			return nil, fmt.Errorf("analyzer %d: %w", i, err)
		}
	}
	return e, nil
}

func (e *Experiment) addAnalyzer(ac config.AnalyzerConfig) error {
	vars := ac.Vars
	if len(vars) == 0 {
		vars = []string{e.info.Voltage}
	}
	threshold := e.info.Threshold
	if ac.Threshold != nil {
		threshold = *ac.Threshold
	}

	var a sim.Analyzer
	switch ac.Kind {
	case KindTrace:
		t := analyzer.NewTrace(vars...)
		e.traces = append(e.traces, t)
		a = t
	case KindAPD:
		a = analyzer.NewAPDPercent(vars[0], threshold, ac.Repolarization)
	case KindRestitution:
		r := analyzer.NewRestitution(vars[0], threshold)
		r.Repolarization = ac.Repolarization
		e.restitution = r
		a = r
	case KindExtrema:
		a = analyzer.NewExtrema(vars...)
	case KindSnapshot:
		a = analyzer.NewSnapshot(ac.Times...)
	case KindUpstroke:
		a = analyzer.NewUpstroke(vars[0])
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAnalyzer, ac.Kind)
	}

	var opts []sim.Option
	if ac.Name != "" {
		opts = append(opts, sim.Named(ac.Name))
	}
	if ac.Every > 1 {
		opts = append(opts, sim.Every(ac.Every))
	}
	if ac.FinalBeats > 0 {
		opts = append(opts, sim.FinalBeats(ac.FinalBeats))
	}
	e.simulator.AddAnalyzer(a, opts...)
	return nil
}

// Info returns the description of the experiment's model.
func (e *Experiment) Info() models.Info { return e.info }

// Params returns the merged parameters the run will use.
func (e *Experiment) Params() sim.Params { return e.params }

// Simulator returns the underlying simulator for adding analyzers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	res, err := e.simulator.Run(ctx, e.params)
	if err != nil {
		return nil, err
	}
	out := &Outcome{
		Result: res,
		Config: e.cfg,
		Params: e.params,
		Traces: e.traces,
	}
	if e.restitution != nil {
		p := e.restitution.Point()
		out.Restitution = &p
	}
	return out, nil
}

// Run builds and runs cfg.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) (*Outcome, error) {
	e, err := r.Build(cfg)
	if err != nil {
		return nil, err
	}
	out, err := e.Run(ctx)
	if err != nil {
		return nil, err
	}
	r.logger.Info("run complete",
		"model", out.Model,
		"iterations", out.Iterations,
		"rule", out.Rule,
		"elapsed", out.Elapsed)
	return out, nil
}
