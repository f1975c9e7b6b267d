package analyzer

import (
	"fmt"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Trace is a point buffer recording selected variables against time. The
// initial state is recorded at t=0. Register it with sim.Every to
// downsample.
type Trace struct {
	name string
	vars []string
	cols []string
	idx  []int

	times []float64
	rows  [][]float64
}

// NewTrace records vars. With no vars every layout variable is recorded.
func NewTrace(vars ...string) *Trace {
	return &Trace{name: "trace", vars: vars}
}

func (t *Trace) Name() string { return t.name }

func (t *Trace) Reset(initial sim.Frame) error {
	l := initial.Layout()
	t.cols = t.vars
	if len(t.cols) == 0 {
		t.cols = l.Names()
	}
	idx, err := l.Lookup(t.cols...)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	t.idx = idx
	t.times = t.times[:0]
	t.rows = t.rows[:0]
	return nil
}

func (t *Trace) PreAggregate(initial sim.Frame) error {
	t.record(0, initial)
	return nil
}

func (t *Trace) Aggregate(in sim.Step, f sim.Frame) error {
	t.record(in.End(), f)
	return nil
}

func (t *Trace) record(at float64, f sim.Frame) {
	row := make([]float64, len(t.idx))
	for i, j := range t.idx {
		row[i] = f.At(j)
	}
	t.times = append(t.times, at)
	t.rows = append(t.rows, row)
}

// Columns returns the recorded variable names in column order.
func (t *Trace) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// Len returns the number of recorded points.
func (t *Trace) Len() int { return len(t.times) }

// Times returns the time of every point.
func (t *Trace) Times() []float64 { return t.times }

// Rows returns one row of values per point, in Columns order.
func (t *Trace) Rows() [][]float64 { return t.rows }

// Series returns the samples of one variable, or nil if it is not traced.
func (t *Trace) Series(name string) []float64 {
	col := -1
	for i, v := range t.cols {
		if v == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[col]
	}
	return out
}

func (t *Trace) Report() map[string]float64 {
	return map[string]float64{"points": float64(len(t.times))}
}
