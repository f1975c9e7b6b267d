package models

import (
	"fmt"
	"math"

	"github.com/san-kum/cardiosim/internal/integrators"
	"github.com/san-kum/cardiosim/internal/sim"
)

// minCai keeps the calcium pool away from zero so the reversal potential
// stays finite.
const minCai = 1e-12

var brParams = []string{
	sim.CapacitanceKey,
	"gNa", "gNaC", "ENa",
	"gs", "EsOffset", "EsSlope",
	"gK1", "gx1",
	"caUptake", "caRest", "caInflux",
}

func brDefaults() sim.Params {
	return sim.Params{
		"V": -84.624, "m": 0.011, "h": 0.988, "j": 0.975,
		"d": 0.003, "f": 0.994, "Cai": 2e-7,

		sim.CapacitanceKey: 1, "gNa": 4, "gNaC": 0.003, "ENa": 50,
		"gs": 0.09, "EsOffset": -82.3, "EsSlope": 13.0287,
		"gK1": 0.35, "gx1": 0.8,
		"caUptake": 0.07, "caRest": 1e-7, "caInflux": 1e-7,

		"s1": 1000, "ns1": 2, "s1Start": 10, "s2": 500,
		"stimdur": 1, "stimmag": -50, "timestep": 0.01,
	}
}

func brConstants(p sim.Params) (*sim.Constants, error) {
	b := sim.NewConstants(p)
	b.Copy(brParams...)
	b.Positive("caRest")
	b.Set("dt", b.Positive("timestep"))
	return b.Build()
}

var beelerReuterLayout = sim.MustLayout(
	sim.Var{Name: "V", Class: sim.Voltage},
	sim.Var{Name: "m", Class: sim.Voltage},
	sim.Var{Name: "h", Class: sim.Voltage},
	sim.Var{Name: "j", Class: sim.Voltage},
	sim.Var{Name: "d", Class: sim.Voltage},
	sim.Var{Name: "f", Class: sim.Voltage},
	sim.Var{Name: "x1", Class: sim.Voltage},
	sim.Var{Name: "Cai", Class: sim.Voltage},
	sim.Var{Name: "INa", Class: sim.Current},
	sim.Var{Name: "Is", Class: sim.Current},
	sim.Var{Name: "IK1", Class: sim.Current},
	sim.Var{Name: "Ix1", Class: sim.Current},
	sim.Var{Name: sim.IionVar, Class: sim.Current},
	sim.Var{Name: sim.IstimVar, Class: sim.Current},
)

// BeelerReuter is the 1977 Beeler-Reuter ventricular myocyte model. All
// gates advance by Rush-Larsen and calcium by forward Euler. Currents are
// evaluated from the gates as they stood at the start of the step.
type BeelerReuter struct{}

func NewBeelerReuter() *BeelerReuter {
	return &BeelerReuter{}
}

func (m *BeelerReuter) Name() string { return "beeler-reuter" }

func (m *BeelerReuter) Layout() *sim.Layout { return beelerReuterLayout }

func (m *BeelerReuter) Defaults() sim.Params {
	p := brDefaults()
	p["x1"] = 0.0001
	return p
}

func (m *BeelerReuter) Constants(p sim.Params) (*sim.Constants, error) {
	return brConstants(p)
}

func (m *BeelerReuter) Bind(l *sim.Layout, k *sim.Constants) (sim.Derivative, error) {
	d, err := bindBR(l, k)
	if err != nil {
		return nil, err
	}
	idx, err := l.Lookup("x1")
	if err != nil {
		return nil, err
	}
	d.x1 = idx[0]
	return d, nil
}

func (m *BeelerReuter) Info() Info {
	return Info{
		Name:        m.Name(),
		Description: "Beeler-Reuter 1977 ventricular action potential, Rush-Larsen gates",
		Voltage:     "V",
		Threshold:   -60,
		Rule:        sim.DefaultOvershoot,
	}
}

var brMarkovLayout = sim.MustLayout(
	sim.Var{Name: "V", Class: sim.Voltage},
	sim.Var{Name: "m", Class: sim.Voltage},
	sim.Var{Name: "h", Class: sim.Voltage},
	sim.Var{Name: "j", Class: sim.Voltage},
	sim.Var{Name: "d", Class: sim.Voltage},
	sim.Var{Name: "f", Class: sim.Voltage},
	sim.Var{Name: "C0", Class: sim.Voltage},
	sim.Var{Name: "C1", Class: sim.Voltage},
	sim.Var{Name: "O", Class: sim.Voltage},
	sim.Var{Name: "Cai", Class: sim.Voltage},
	sim.Var{Name: "INa", Class: sim.Current},
	sim.Var{Name: "Is", Class: sim.Current},
	sim.Var{Name: "IK1", Class: sim.Current},
	sim.Var{Name: "Ix1", Class: sim.Current},
	sim.Var{Name: sim.IionVar, Class: sim.Current},
	sim.Var{Name: sim.IstimVar, Class: sim.Current},
)

// BRMarkov is Beeler-Reuter with the Ix1 activation carried by a three-state
// channel C0 <-> C1 <-> O advanced by backward Euler. The chain rates are
// 2a, b and a, 2b, so O relaxes like the square of an x1 gate.
type BRMarkov struct{}

func NewBRMarkov() *BRMarkov {
	return &BRMarkov{}
}

func (m *BRMarkov) Name() string { return "br-markov" }

func (m *BRMarkov) Layout() *sim.Layout { return brMarkovLayout }

func (m *BRMarkov) Defaults() sim.Params {
	p := brDefaults()
	p["C0"] = 0.99980001
	p["C1"] = 0.00019998
	p["O"] = 1e-8
	return p
}

func (m *BRMarkov) Constants(p sim.Params) (*sim.Constants, error) {
	return brConstants(p)
}

func (m *BRMarkov) Bind(l *sim.Layout, k *sim.Constants) (sim.Derivative, error) {
	d, err := bindBR(l, k)
	if err != nil {
		return nil, err
	}
	idx, err := l.Lookup("C0", "C1", "O")
	if err != nil {
		return nil, err
	}
	d.markov = true
	d.c0, d.c1, d.x1 = idx[0], idx[1], idx[2]
	return d, nil
}

func (m *BRMarkov) Info() Info {
	return Info{
		Name:        m.Name(),
		Description: "Beeler-Reuter with a three-state Markov Ix1 activation",
		Voltage:     "V",
		Threshold:   -60,
		Rule:        sim.DefaultOvershoot,
	}
}

type brDerivative struct {
	v, m, h, j, d, f, cai int
	ina, is, ik1, ix1     int

	// x1 is the x1 gate, or the open state O of the Markov variant.
	x1     int
	c0, c1 int
	markov bool

	dt, gNa, gNaC, eNa         float64
	gs, esOffset, esSlope      float64
	gK1, gx1                   float64
	caUptake, caRest, caInflux float64
}

func bindBR(l *sim.Layout, k *sim.Constants) (*brDerivative, error) {
	idx, err := l.Lookup("V", "m", "h", "j", "d", "f", "Cai", "INa", "Is", "IK1", "Ix1")
	if err != nil {
		return nil, fmt.Errorf("beeler-reuter: %w", err)
	}
	return &brDerivative{
		v: idx[0], m: idx[1], h: idx[2], j: idx[3], d: idx[4], f: idx[5], cai: idx[6],
		ina: idx[7], is: idx[8], ik1: idx[9], ix1: idx[10],

		dt:       k.Value("dt"),
		gNa:      k.Value("gNa"),
		gNaC:     k.Value("gNaC"),
		eNa:      k.Value("ENa"),
		gs:       k.Value("gs"),
		esOffset: k.Value("EsOffset"),
		esSlope:  k.Value("EsSlope"),
		gK1:      k.Value("gK1"),
		gx1:      k.Value("gx1"),
		caUptake: k.Value("caUptake"),
		caRest:   k.Value("caRest"),
		caInflux: k.Value("caInflux"),
	}, nil
}

func (b *brDerivative) Voltage() int { return b.v }

func (b *brDerivative) Derive(st *sim.State, in sim.Step) float64 {
	v := st.At(b.v)
	m, h, j := st.At(b.m), st.At(b.h), st.At(b.j)
	d, f := st.At(b.d), st.At(b.f)
	x1 := st.At(b.x1)
	cai := st.At(b.cai)

	am, bm := alphaM(v), rateBetaM.at(v)
	ah, bh := rateAlphaH.at(v), rateBetaH.at(v)
	aj, bj := rateAlphaJ.at(v), rateBetaJ.at(v)
	ad, bd := rateAlphaD.at(v), rateBetaD.at(v)
	af, bf := rateAlphaF.at(v), rateBetaF.at(v)
	ax, bx := rateAlphaX1.at(v), rateBetaX1.at(v)

	ina := (b.gNa*m*m*m*h*j + b.gNaC) * (v - b.eNa)
	es := b.esOffset - b.esSlope*math.Log(cai)
	is := b.gs * d * f * (v - es)
	ik1 := b.gK1 * ik1Shape(v)
	ix1 := x1 * b.gx1 * ix1Shape(v)

	st.SetAt(b.m, integrators.RushLarsenRates(m, am, bm, b.dt))
	st.SetAt(b.h, integrators.RushLarsenRates(h, ah, bh, b.dt))
	st.SetAt(b.j, integrators.RushLarsenRates(j, aj, bj, b.dt))
	st.SetAt(b.d, integrators.RushLarsenRates(d, ad, bd, b.dt))
	st.SetAt(b.f, integrators.RushLarsenRates(f, af, bf, b.dt))

	if b.markov {
		p := integrators.Markov3([3]float64{st.At(b.c0), st.At(b.c1), x1}, 2*ax, bx, ax, 2*bx, b.dt)
		st.SetAt(b.c0, p[0])
		st.SetAt(b.c1, p[1])
		st.SetAt(b.x1, p[2])
	} else {
		st.SetAt(b.x1, integrators.RushLarsenRates(x1, ax, bx, b.dt))
	}

	dcai := -b.caInflux*is + b.caUptake*(b.caRest-cai)
	st.SetAt(b.cai, integrators.ForwardFloor(cai, dcai, b.dt, minCai))

	st.SetAt(b.ina, ina)
	st.SetAt(b.is, is)
	st.SetAt(b.ik1, ik1)
	st.SetAt(b.ix1, ix1)

	return ina + is + ik1 + ix1
}
