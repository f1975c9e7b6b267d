package integrators

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func TestForward(t *testing.T) {
	if got := Forward(1, -2, 0.1); math.Abs(got-0.8) > 1e-15 {
		t.Errorf("Forward = %v, want 0.8", got)
	}
	if got := ForwardFloor(0.1, -2, 0.1, 0); got != 0 {
		t.Errorf("ForwardFloor = %v, want 0", got)
	}
}

func TestForward_FirstOrder(t *testing.T) {
	integrate := func(dt float64) float64 {
		v := 1.0
		steps := int(math.Round(1.0 / dt))
		for i := 0; i < steps; i++ {
			v = Forward(v, -v, dt)
		}
		return v
	}

	exact := math.Exp(-1)
	e1 := math.Abs(integrate(0.01) - exact)
	e2 := math.Abs(integrate(0.005) - exact)

	ratio := e1 / e2
	if ratio < 1.9 || ratio > 2.1 {
		t.Errorf("error ratio for halved dt = %.4f, want ~2", ratio)
	}

	// per unit time local error also halves
	local := func(dt float64) float64 {
		return math.Abs(Forward(1, -1, dt)-math.Exp(-dt)) / dt
	}
	lr := local(0.01) / local(0.005)
	if lr < 1.9 || lr > 2.1 {
		t.Errorf("local error ratio = %.4f, want ~2", lr)
	}
}

func TestRushLarsen_SteadyStateIdempotent(t *testing.T) {
	tests := []struct {
		xinf, tau, dt float64
	}{
		{0.3, 1, 0.01},
		{0.3, 1e-4, 10},
		{0.999, 500, 0.1},
		{1e-9, 2.5, 1},
	}

	for _, tt := range tests {
		if got := RushLarsen(tt.xinf, tt.xinf, tt.tau, tt.dt); got != tt.xinf {
			t.Errorf("RushLarsen at steady state (tau=%v dt=%v) = %v, want %v", tt.tau, tt.dt, got, tt.xinf)
		}
	}
}

func TestRushLarsen_Monotone(t *testing.T) {
	for _, dt := range []float64{0.001, 0.1, 5, 1000} {
		for _, start := range []float64{0, 1} {
			x := start
			xinf, tau := 0.4, 3.0
			prevGap := math.Abs(xinf - x)
			for i := 0; i < 200; i++ {
				x = RushLarsen(x, xinf, tau, dt)
				if (start < xinf && x > xinf) || (start > xinf && x < xinf) {
					t.Fatalf("dt=%v: overshoot at step %d: x=%v", dt, i, x)
				}
				gap := math.Abs(xinf - x)
				if gap > prevGap {
					t.Fatalf("dt=%v: gap grew at step %d", dt, i)
				}
				prevGap = gap
			}
		}
	}
}

func TestRushLarsen_Singular(t *testing.T) {
	if got := RushLarsen(0.2, 0.9, math.Inf(1), 0.1); got != 0.2 {
		t.Errorf("infinite tau moved gate to %v", got)
	}
	if got := RushLarsen(0.2, 0.9, 0, 0.1); got != 0.9 {
		t.Errorf("zero tau gave %v, want xinf", got)
	}
	if got := RushLarsenRates(0.2, 0, 0, 0.1); got != 0.2 {
		t.Errorf("zero rates moved gate to %v", got)
	}
	if got := Decay(0.1, math.Inf(1)); got != 1 {
		t.Errorf("Decay with infinite tau = %v, want 1", got)
	}
}

func TestRushLarsenRates_MatchesTauForm(t *testing.T) {
	alpha, beta, dt := 0.3, 1.7, 0.05
	xinf, tau := Steady(alpha, beta)

	a := RushLarsenRates(0.1, alpha, beta, dt)
	b := RushLarsen(0.1, xinf, tau, dt)
	c := RushLarsenDecay(0.1, xinf, Decay(dt, tau))
	if math.Abs(a-b) > 1e-15 || math.Abs(b-c) > 1e-15 {
		t.Errorf("rate form %v, tau form %v, decay form %v disagree", a, b, c)
	}
}

func TestNormalize(t *testing.T) {
	p := []float64{0, 0.3, -1e-18, 0.5}
	Normalize(p, 0)
	if p[2] != 0 {
		t.Errorf("negative occupancy not clamped: %v", p[2])
	}
	if math.Abs(p[0]-0.2) > 1e-15 {
		t.Errorf("closure = %v, want 0.2", p[0])
	}

	over := []float64{0.9, 0.8, 0.4}
	Normalize(over, 0)
	if over[0] != 0 || math.Abs(over[1]+over[2]-1) > 1e-15 {
		t.Errorf("overfull vector not rescaled: %v", over)
	}

	bad := []float64{0, math.NaN(), 0.1}
	Normalize(bad, 0)
	if !math.IsNaN(bad[0]) {
		t.Error("NaN occupancy was masked")
	}
}

func logUniform(r *rand.Rand, lo, hi float64) float64 {
	return math.Exp(math.Log(lo) + r.Float64()*(math.Log(hi)-math.Log(lo)))
}

func randomOccupancy(r *rand.Rand, n int) []float64 {
	p := make([]float64, n)
	sum := 0.0
	for i := range p {
		p[i] = r.Float64()
		sum += p[i]
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}

func TestMarkov3_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	chain, err := NewChain(3)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	for trial := 0; trial < 500; trial++ {
		k01 := logUniform(r, 1e-3, 1e3)
		k10 := logUniform(r, 1e-3, 1e3)
		k12 := logUniform(r, 1e-3, 1e3)
		k21 := logUniform(r, 1e-3, 1e3)
		dt := logUniform(r, 1e-3, 1)

		init := randomOccupancy(r, 3)
		p := [3]float64{init[0], init[1], init[2]}
		ref := append([]float64(nil), init...)

		for step := 0; step < 20; step++ {
			p = Markov3(p, k01, k10, k12, k21, dt)

			sum := p[0] + p[1] + p[2]
			if math.Abs(sum-1) > 1e-9 {
				t.Fatalf("trial %d step %d: sum = %.12f", trial, step, sum)
			}
			for i, v := range p {
				if v < 0 {
					t.Fatalf("trial %d step %d: p[%d] = %v < 0", trial, step, i, v)
				}
			}

			chain.Reset()
			chain.SetRate(0, 1, k01)
			chain.SetRate(1, 0, k10)
			chain.SetRate(1, 2, k12)
			chain.SetRate(2, 1, k21)
			if err := chain.Step(ref, dt, 0); err != nil {
				t.Fatalf("chain step failed: %v", err)
			}
			for i := range ref {
				if math.Abs(ref[i]-p[i]) > 1e-9 {
					t.Fatalf("trial %d step %d: closed form %v, dense solve %v", trial, step, p, ref)
				}
			}
		}
	}
}

func TestMarkov4Cycle_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	chain, err := NewChain(4)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}

	for trial := 0; trial < 500; trial++ {
		k := CycleRates{
			K01: logUniform(r, 1e-3, 1e2), K10: logUniform(r, 1e-3, 1e2),
			K12: logUniform(r, 1e-3, 1e2), K21: logUniform(r, 1e-3, 1e2),
			K23: logUniform(r, 1e-3, 1e2), K32: logUniform(r, 1e-3, 1e2),
			K30: logUniform(r, 1e-3, 1e2), K03: logUniform(r, 1e-3, 1e2),
		}
		dt := logUniform(r, 1e-3, 1)

		init := randomOccupancy(r, 4)
		p := [4]float64{init[0], init[1], init[2], init[3]}
		ref := append([]float64(nil), init...)

		chain.Reset()
		chain.SetRate(0, 1, k.K01)
		chain.SetRate(1, 0, k.K10)
		chain.SetRate(1, 2, k.K12)
		chain.SetRate(2, 1, k.K21)
		chain.SetRate(2, 3, k.K23)
		chain.SetRate(3, 2, k.K32)
		chain.SetRate(3, 0, k.K30)
		chain.SetRate(0, 3, k.K03)

		for step := 0; step < 20; step++ {
			p = Markov4Cycle(p, k, dt)
			if err := chain.Step(ref, dt, 0); err != nil {
				t.Fatalf("chain step failed: %v", err)
			}

			sum := p[0] + p[1] + p[2] + p[3]
			if math.Abs(sum-1) > 1e-9 {
				t.Fatalf("trial %d step %d: sum = %.12f", trial, step, sum)
			}
			for i := range ref {
				if p[i] < 0 {
					t.Fatalf("trial %d step %d: p[%d] = %v < 0", trial, step, i, p[i])
				}
				if math.Abs(ref[i]-p[i]) > 1e-9 {
					t.Fatalf("trial %d step %d: closed form %v, dense solve %v", trial, step, p, ref)
				}
			}
		}
	}
}

// A ring built from two independent gates relaxes to the product of their
// steady states.
func TestMarkov4Cycle_IndependentGates(t *testing.T) {
	aa, ba := 0.8, 0.2 // activation
	ai, bi := 0.05, 0.15

	k := CycleRates{
		K01: aa, K10: ba,
		K12: bi, K21: ai,
		K23: ba, K32: aa,
		K30: ai, K03: bi,
	}

	p := [4]float64{1, 0, 0, 0}
	for i := 0; i < 5000; i++ {
		p = Markov4Cycle(p, k, 0.1)
	}

	ainf, _ := Steady(aa, ba)
	iinf, _ := Steady(ai, bi)
	if math.Abs(p[1]-ainf*iinf) > 1e-9 {
		t.Errorf("open occupancy = %v, want %v", p[1], ainf*iinf)
	}
}

// C0 <-> C1 <-> O with rates (2a, b) and (a, 2b) is a squared gate.
func TestMarkov3_SquaredGate(t *testing.T) {
	a, b := 0.3, 0.1
	p := [3]float64{1, 0, 0}
	for i := 0; i < 10000; i++ {
		p = Markov3(p, 2*a, b, a, 2*b, 0.05)
	}
	xinf, _ := Steady(a, b)
	if math.Abs(p[2]-xinf*xinf) > 1e-9 {
		t.Errorf("open occupancy = %v, want %v", p[2], xinf*xinf)
	}
}

func TestChain_FiveStates(t *testing.T) {
	c, err := NewChain(5)
	if err != nil {
		t.Fatalf("NewChain failed: %v", err)
	}
	for i := 0; i < 4; i++ {
		c.SetRate(i, i+1, 1.5)
		c.SetRate(i+1, i, 0.5)
	}

	p := []float64{1, 0, 0, 0, 0}
	for step := 0; step < 100; step++ {
		if err := c.Step(p, 0.2, 0); err != nil {
			t.Fatalf("step failed: %v", err)
		}
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("step %d: sum = %v", step, sum)
		}
	}
	if p[4] < p[0] {
		t.Errorf("forward-biased chain did not drift forward: %v", p)
	}
}

func TestNewChain_Size(t *testing.T) {
	for _, n := range []int{0, 1, 8} {
		if _, err := NewChain(n); !errors.Is(err, ErrChainSize) {
			t.Errorf("NewChain(%d) error = %v, want ErrChainSize", n, err)
		}
	}

	c, _ := NewChain(3)
	if err := c.Step([]float64{1, 0}, 0.1, 0); !errors.Is(err, ErrChainSize) {
		t.Errorf("Step with short vector error = %v, want ErrChainSize", err)
	}
}
