// Package integrators holds the closed-form update rules a cell model uses to
// advance its state by one fixed timestep: explicit forward Euler for
// concentrations and membrane voltage, Rush-Larsen exponential updates for
// two-state gates, and backward-Euler solves for small Markov channel
// clusters.
package integrators

// Forward returns the explicit Euler update v + dt*dvdt.
func Forward(v, dvdt, dt float64) float64 {
	return v + dt*dvdt
}

// ForwardFloor is Forward clamped from below at floor. Models use it for
// concentration pools that must stay non-negative.
func ForwardFloor(v, dvdt, dt, floor float64) float64 {
	next := v + dt*dvdt
	if next < floor {
		return floor
	}
	return next
}
