package sim

import (
	"fmt"

	"github.com/san-kum/cardiosim/internal/stimulus"
)

// Analyzer observes a run without influencing it. Reset is mandatory and
// must clear every accumulator so the analyzer can be reused across runs.
type Analyzer interface {
	Reset(initial Frame) error
}

// PreAggregator is called once after Reset, before the first step.
type PreAggregator interface {
	PreAggregate(initial Frame) error
}

// Aggregator is called after every observed step, in registration order.
type Aggregator interface {
	Aggregate(in Step, f Frame) error
}

// PostAggregator is called once with the final state.
type PostAggregator interface {
	PostAggregate(final Frame) error
}

// Reporter exposes an analyzer's scalar results. Run collects them into
// Result.Values under "<name>.<key>".
type Reporter interface {
	Name() string
	Report() map[string]float64
}

// AnalyzerFuncs adapts plain functions to every hook. Nil fields are
// no-ops.
type AnalyzerFuncs struct {
	ResetFunc        func(Frame) error
	PreAggregateFunc func(Frame) error
	AggregateFunc    func(Step, Frame) error
	PostFunc         func(Frame) error
}

func (a *AnalyzerFuncs) Reset(f Frame) error {
	if a.ResetFunc == nil {
		return nil
	}
	return a.ResetFunc(f)
}

func (a *AnalyzerFuncs) PreAggregate(f Frame) error {
	if a.PreAggregateFunc == nil {
		return nil
	}
	return a.PreAggregateFunc(f)
}

func (a *AnalyzerFuncs) Aggregate(in Step, f Frame) error {
	if a.AggregateFunc == nil {
		return nil
	}
	return a.AggregateFunc(in, f)
}

func (a *AnalyzerFuncs) PostAggregate(f Frame) error {
	if a.PostFunc == nil {
		return nil
	}
	return a.PostFunc(f)
}

// Option configures an analyzer at registration.
type Option func(*registration)

// Named tags the analyzer. The tag prefixes its reported values and
// appears in errors.
func Named(tag string) Option {
	return func(r *registration) { r.name = tag }
}

// Every restricts Aggregate to step indices that are multiples of k.
func Every(k int) Option {
	return func(r *registration) { r.every = k }
}

// FinalBeats restricts Aggregate to the last n beats of the protocol,
// counting the S2 beat. FinalBeats(2) observes the last S1 beat and S2.
func FinalBeats(n int) Option {
	return func(r *registration) { r.finalBeats = n }
}

// registration holds an analyzer with its optional hooks resolved once, when
// it is added.
type registration struct {
	analyzer Analyzer
	reporter Reporter

	pre  func(Frame) error
	agg  func(Step, Frame) error
	post func(Frame) error

	name       string
	every      int
	finalBeats int
	from       int
}

func register(a Analyzer, opts []Option) *registration {
	r := &registration{analyzer: a}
	if p, ok := a.(PreAggregator); ok {
		r.pre = p.PreAggregate
	}
	if g, ok := a.(Aggregator); ok {
		r.agg = g.Aggregate
	}
	if p, ok := a.(PostAggregator); ok {
		r.post = p.PostAggregate
	}
	if rep, ok := a.(Reporter); ok {
		r.reporter = rep
		r.name = rep.Name()
	}
	if r.name == "" {
		r.name = fmt.Sprintf("%T", a)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// prepare resolves the first observed step against this run's schedule.
func (r *registration) prepare(sched *stimulus.Schedule) {
	r.from = 0
	if r.finalBeats > 0 {
		first := sched.Beats() - r.finalBeats
		if first > 0 {
			r.from = sched.BeatOnset(first)
		}
	}
}

func (r *registration) observes(in Step) bool {
	if in.Index < r.from {
		return false
	}
	return r.every <= 1 || in.Index%r.every == 0
}

func (r *registration) fail(hook string, step int, err error) error {
	return &AnalyzerError{Analyzer: r.name, Hook: hook, Step: step, Err: err}
}
