package integrators

import "math"

// Normalize enforces non-negativity and conservation on an occupancy vector.
// Every entry except closure that is below the smallest positive float is
// set to exactly zero, then p[closure] = 1 - sum(others). If the others
// already sum past one they are rescaled and the closure state is emptied.
// NaN entries are left alone so a broken model stays visible.
func Normalize(p []float64, closure int) {
	sum := 0.0
	for i := range p {
		if i == closure {
			continue
		}
		if p[i] < math.SmallestNonzeroFloat64 {
			p[i] = 0
		}
		sum += p[i]
	}

	if sum > 1 {
		for i := range p {
			if i != closure {
				p[i] /= sum
			}
		}
		p[closure] = 0
		return
	}
	p[closure] = 1 - sum
}

// Markov3 advances the linear chain 0 <-> 1 <-> 2 by one backward-Euler
// step. kij is the transition rate from state i to state j, held constant
// over the step. State 0 closes the conservation sum.
func Markov3(p [3]float64, k01, k10, k12, k21, dt float64) [3]float64 {
	// Eliminate the end states into the middle equation.
	pa := 1 + dt*k01
	pc := 1 + dt*k21
	den := 1 + dt*k10/pa + dt*k12/pc

	mid := (p[1] + dt*k01*p[0]/pa + dt*k21*p[2]/pc) / den
	out := [3]float64{
		(p[0] + dt*k10*mid) / pa,
		mid,
		(p[2] + dt*k12*mid) / pc,
	}
	Normalize(out[:], 0)
	return out
}

// CycleRates are the eight transition rates of a four-state ring
// 0 <-> 1 <-> 2 <-> 3 <-> 0.
type CycleRates struct {
	K01, K10 float64
	K12, K21 float64
	K23, K32 float64
	K30, K03 float64
}

// Markov4Cycle advances a four-state ring by one backward-Euler step. State 0
// is eliminated through conservation, leaving three equations solved by
// Cramer's rule. State 0 closes the conservation sum.
func Markov4Cycle(p [4]float64, k CycleRates, dt float64) [4]float64 {
	total := p[0] + p[1] + p[2] + p[3]

	a11 := 1 + dt*(k.K10+k.K12+k.K01)
	a12 := dt * (k.K01 - k.K21)
	a13 := dt * k.K01
	b1 := p[1] + dt*k.K01*total

	a21 := -dt * k.K12
	a22 := 1 + dt*(k.K21+k.K23)
	a23 := -dt * k.K32
	b2 := p[2]

	a31 := dt * k.K03
	a32 := dt * (k.K03 - k.K23)
	a33 := 1 + dt*(k.K32+k.K30+k.K03)
	b3 := p[3] + dt*k.K03*total

	det := det3(a11, a12, a13, a21, a22, a23, a31, a32, a33)
	x1 := det3(b1, a12, a13, b2, a22, a23, b3, a32, a33) / det
	x2 := det3(a11, b1, a13, a21, b2, a23, a31, b3, a33) / det
	x3 := det3(a11, a12, b1, a21, a22, b2, a31, a32, b3) / det

	out := [4]float64{0, x1, x2, x3}
	Normalize(out[:], 0)
	return out
}

func det3(a, b, c, d, e, f, g, h, i float64) float64 {
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}
