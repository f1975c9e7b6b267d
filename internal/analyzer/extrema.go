package analyzer

import (
	"fmt"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Extremum is the minimum and maximum of one variable with the times they
// were reached.
type Extremum struct {
	Min, Max   float64
	TMin, TMax float64
}

// Extrema tracks the range of each named variable over the observed steps.
// The initial state counts only when observation starts at the first step.
type Extrema struct {
	vars []string
	idx  []int
	ext  []Extremum

	// reseed is set until the first observed step.
	reseed bool
}

func NewExtrema(vars ...string) *Extrema {
	return &Extrema{vars: vars}
}

func (e *Extrema) Name() string { return "extrema" }

func (e *Extrema) Reset(initial sim.Frame) error {
	idx, err := initial.Layout().Lookup(e.vars...)
	if err != nil {
		return fmt.Errorf("extrema: %w", err)
	}
	e.idx = idx
	e.ext = make([]Extremum, len(idx))
	for i, j := range idx {
		v := initial.At(j)
		e.ext[i] = Extremum{Min: v, Max: v}
	}
	e.reseed = true
	return nil
}

func (e *Extrema) Aggregate(in sim.Step, f sim.Frame) error {
	t := in.End()
	if e.reseed {
		e.reseed = false
		if in.Index > 0 {
			for i, j := range e.idx {
				v := f.At(j)
				e.ext[i] = Extremum{Min: v, Max: v, TMin: t, TMax: t}
			}
			return nil
		}
	}
	for i, j := range e.idx {
		v := f.At(j)
		x := &e.ext[i]
		if v < x.Min {
			x.Min, x.TMin = v, t
		}
		if v > x.Max {
			x.Max, x.TMax = v, t
		}
	}
	return nil
}

// Of returns the extremum for name.
func (e *Extrema) Of(name string) (Extremum, bool) {
	for i, v := range e.vars {
		if v == name && i < len(e.ext) {
			return e.ext[i], true
		}
	}
	return Extremum{}, false
}

func (e *Extrema) Report() map[string]float64 {
	out := make(map[string]float64, 4*len(e.ext))
	for i, x := range e.ext {
		n := e.vars[i]
		out[n+".min"] = x.Min
		out[n+".max"] = x.Max
		out[n+".tmin"] = x.TMin
		out[n+".tmax"] = x.TMax
	}
	return out
}
