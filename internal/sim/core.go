package sim

import "github.com/san-kum/cardiosim/internal/stimulus"

// Step describes the iteration being computed.
type Step struct {
	Index      int     // step index, from zero
	Iterations int     // total steps in the run
	Time       float64 // Index * Dt
	Dt         float64
	Stimulus   float64 // stimulus current for this step
	Beat       int     // most recent beat whose onset is <= Index, -1 before the first
	Beats      int     // beats in the schedule, S2 included
}

// End is the time the state reaches once the step is applied.
func (s Step) End() float64 { return float64(s.Index+1) * s.Dt }

// Derivative is a model's per-step payload bound to one run's layout and
// constants.
//
// Derive must first evaluate every rate, steady state and time constant
// from the state as it stands, then advance gates, occupancies and
// concentrations in place using the integrators package, and finally
// return the total ionic current. Which currents read gate values before
// or after their update is part of each model's contract. Any clamping a
// model needs happens inside Derive so it takes effect before the next
// step's rate evaluation. Derive must not touch the voltage variable.
type Derivative interface {
	Voltage() int
	Derive(st *State, in Step) float64
}

// Advance computes one step in place and returns st. The stimulus for the
// step is taken from sched and summed with the ionic current before the
// forward update of the membrane voltage. Iterations is left zero since a
// single step has no run length.
func Advance(st *State, k *Constants, step int, sched *stimulus.Schedule, fn Derivative) *State {
	dt := sched.Timestep()
	in := Step{
		Index:    step,
		Time:     float64(step) * dt,
		Dt:       dt,
		Stimulus: sched.At(step),
		Beat:     sched.BeatAt(step),
		Beats:    sched.Beats(),
	}
	return advance(st, k, in, fn)
}

func advance(st *State, k *Constants, in Step, fn Derivative) *State {
	ionic := fn.Derive(st, in)

	vi := fn.Voltage()
	st.vals[vi] -= in.Dt * (ionic + in.Stimulus) / k.Capacitance()

	if i := st.layout.istim; i >= 0 {
		st.vals[i] = in.Stimulus
	}
	if i := st.layout.iion; i >= 0 {
		st.vals[i] = ionic
	}
	return st
}
