package integrators

import "math"

// RushLarsen advances a gate obeying dx/dt = (xinf - x) / tau by dt:
//
//	x' = xinf - (xinf - x) * exp(-dt/tau)
//
// The update is exact for constant xinf and tau. An infinite tau freezes the
// gate; tau == 0 snaps it to xinf.
func RushLarsen(x, xinf, tau, dt float64) float64 {
	if math.IsInf(tau, 1) {
		return x
	}
	return xinf - (xinf-x)*math.Exp(-dt/tau)
}

// Decay returns the per-step factor exp(-dt/tau) for a time constant that
// does not depend on state. Models precompute it once per run.
func Decay(dt, tau float64) float64 {
	if math.IsInf(tau, 1) {
		return 1
	}
	return math.Exp(-dt / tau)
}

// RushLarsenDecay is RushLarsen with a precomputed decay factor.
func RushLarsenDecay(x, xinf, decay float64) float64 {
	return xinf - (xinf-x)*decay
}

// RushLarsenRates advances a gate given opening rate alpha and closing rate
// beta. When both rates vanish the gate is left unchanged.
func RushLarsenRates(x, alpha, beta, dt float64) float64 {
	sum := alpha + beta
	if sum == 0 {
		return x
	}
	xinf := alpha / sum
	return xinf - (xinf-x)*math.Exp(-dt*sum)
}

// Steady returns xinf and tau for a gate given alpha and beta. With both
// rates zero tau is +Inf and xinf is 0.
func Steady(alpha, beta float64) (xinf, tau float64) {
	sum := alpha + beta
	if sum == 0 {
		return 0, math.Inf(1)
	}
	return alpha / sum, 1 / sum
}
