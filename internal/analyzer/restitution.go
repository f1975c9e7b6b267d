package analyzer

import (
	"math"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Restitution reports the S1-S2 restitution point of a run: the APD of the
// last S1 beat, the diastolic interval that followed it and the APD of the
// S2 beat. Register it with sim.FinalBeats(2) to skip the earlier beats.
type Restitution struct {
	*APD
	beats int
}

func NewRestitution(variable string, threshold float64) *Restitution {
	return &Restitution{APD: NewAPD(variable, threshold)}
}

func (r *Restitution) Name() string { return "restitution" }

func (r *Restitution) Reset(initial sim.Frame) error {
	r.beats = 0
	return r.APD.Reset(initial)
}

func (r *Restitution) Aggregate(in sim.Step, f sim.Frame) error {
	r.beats = in.Beats
	return r.APD.Aggregate(in, f)
}

// Point is one restitution measurement. Fields that could not be measured
// are NaN.
type Point struct {
	// Coupling is the time between the last S1 onset and the S2 onset.
	Coupling float64
	S1APD    float64
	DI       float64
	S2APD    float64
}

// Point returns the measurement of the completed run.
func (r *Restitution) Point() Point {
	nan := math.NaN()
	p := Point{Coupling: nan, S1APD: nan, DI: nan, S2APD: nan}
	if r.beats < 2 {
		return p
	}

	s1, ok1 := r.APD.Beat(r.beats - 2)
	s2, ok2 := r.APD.Beat(r.beats - 1)
	if ok1 {
		p.S1APD = s1.APD()
	}
	if ok2 {
		p.S2APD = s2.APD()
	}
	if ok1 && ok2 {
		p.Coupling = s2.Onset - s1.Onset
		p.DI = s2.Activation - s1.Repolarization
	}
	return p
}

func (r *Restitution) Report() map[string]float64 {
	p := r.Point()
	return map[string]float64{
		"coupling": p.Coupling,
		"s1_apd":   p.S1APD,
		"di":       p.DI,
		"s2_apd":   p.S2APD,
	}
}
