package models

import (
	"fmt"

	"github.com/san-kum/cardiosim/internal/integrators"
	"github.com/san-kum/cardiosim/internal/sim"
)

var minimalLayout = sim.MustLayout(
	sim.Var{Name: "u", Class: sim.Voltage},
	sim.Var{Name: "v", Class: sim.Voltage},
	sim.Var{Name: "w", Class: sim.Voltage},
	sim.Var{Name: "s", Class: sim.Voltage},
	sim.Var{Name: "Jfi", Class: sim.Current},
	sim.Var{Name: "Jso", Class: sim.Current},
	sim.Var{Name: "Jsi", Class: sim.Current},
	sim.Var{Name: sim.IionVar, Class: sim.Current},
	sim.Var{Name: sim.IstimVar, Class: sim.Current},
)

var minimalParams = []string{
	sim.CapacitanceKey,
	"u_o", "u_u", "theta_v", "theta_w", "theta_vm", "theta_o",
	"tau_v1m", "tau_v2m", "tau_vp",
	"tau_w1m", "tau_w2m", "k_wm", "u_wm", "tau_wp",
	"tau_fi", "tau_o1", "tau_o2",
	"tau_so1", "tau_so2", "k_so", "u_so",
	"tau_s1", "tau_s2", "k_s", "u_s",
	"tau_si", "tau_winf", "w_infstar",
}

// Minimal is the Bueno-Orovio, Cherry and Fenton minimal ventricular model
// with the epicardial parameter set. The voltage u is dimensionless. Gates
// advance by Rush-Larsen first and the currents are computed from the
// updated gates.
type Minimal struct{}

func NewMinimal() *Minimal {
	return &Minimal{}
}

func (m *Minimal) Name() string { return "minimal" }

func (m *Minimal) Layout() *sim.Layout { return minimalLayout }

func (m *Minimal) Defaults() sim.Params {
	return sim.Params{
		"u": 0, "v": 1, "w": 1, "s": 0,

		sim.CapacitanceKey: 1, "u_o": 0, "u_u": 1.55, "theta_v": 0.3, "theta_w": 0.13,
		"theta_vm": 0.006, "theta_o": 0.006,
		"tau_v1m": 60, "tau_v2m": 1150, "tau_vp": 1.4506,
		"tau_w1m": 60, "tau_w2m": 15, "k_wm": 65, "u_wm": 0.03, "tau_wp": 200,
		"tau_fi": 0.11, "tau_o1": 400, "tau_o2": 6,
		"tau_so1": 30.0181, "tau_so2": 0.9957, "k_so": 2.0458, "u_so": 0.65,
		"tau_s1": 2.7342, "tau_s2": 16, "k_s": 2.0994, "u_s": 0.9087,
		"tau_si": 1.8875, "tau_winf": 0.07, "w_infstar": 0.94,

		"s1": 1000, "ns1": 2, "s1Start": 10, "s2": 500,
		"stimdur": 1, "stimmag": -1, "timestep": 0.02,
	}
}

func (m *Minimal) Constants(p sim.Params) (*sim.Constants, error) {
	b := sim.NewConstants(p)
	b.Copy(minimalParams...)
	dt := b.Positive("timestep")
	b.Set("dt", dt)
	b.Set("invTauFi", 1/b.Positive("tau_fi"))
	b.Set("invTauSi", 1/b.Positive("tau_si"))
	b.Set("decayVp", integrators.Decay(dt, b.Positive("tau_vp")))
	b.Set("decayWp", integrators.Decay(dt, b.Positive("tau_wp")))
	return b.Build()
}

func (m *Minimal) Bind(l *sim.Layout, k *sim.Constants) (sim.Derivative, error) {
	idx, err := l.Lookup("u", "v", "w", "s", "Jfi", "Jso", "Jsi")
	if err != nil {
		return nil, fmt.Errorf("minimal: %w", err)
	}
	return &minimalDerivative{
		u: idx[0], v: idx[1], w: idx[2], s: idx[3],
		jfi: idx[4], jso: idx[5], jsi: idx[6],

		dt:       k.Value("dt"),
		uo:       k.Value("u_o"),
		uu:       k.Value("u_u"),
		thetaV:   k.Value("theta_v"),
		thetaW:   k.Value("theta_w"),
		thetaVm:  k.Value("theta_vm"),
		thetaO:   k.Value("theta_o"),
		tauV1m:   k.Value("tau_v1m"),
		tauV2m:   k.Value("tau_v2m"),
		tauW1m:   k.Value("tau_w1m"),
		tauW2m:   k.Value("tau_w2m"),
		kWm:      k.Value("k_wm"),
		uWm:      k.Value("u_wm"),
		tauO1:    k.Value("tau_o1"),
		tauO2:    k.Value("tau_o2"),
		tauSo1:   k.Value("tau_so1"),
		tauSo2:   k.Value("tau_so2"),
		kSo:      k.Value("k_so"),
		uSo:      k.Value("u_so"),
		tauS1:    k.Value("tau_s1"),
		tauS2:    k.Value("tau_s2"),
		kS:       k.Value("k_s"),
		uS:       k.Value("u_s"),
		tauWinf:  k.Value("tau_winf"),
		wInfStar: k.Value("w_infstar"),
		invTauFi: k.Value("invTauFi"),
		invTauSi: k.Value("invTauSi"),
		decayVp:  k.Value("decayVp"),
		decayWp:  k.Value("decayWp"),
	}, nil
}

func (m *Minimal) Info() Info {
	return Info{
		Name:        m.Name(),
		Description: "Bueno-Orovio minimal ventricular model, epicardial parameters",
		Voltage:     "u",
		Threshold:   0.13,
		Rule:        sim.Exact{},
	}
}

type minimalDerivative struct {
	u, v, w, s    int
	jfi, jso, jsi int

	dt, uo, uu                      float64
	thetaV, thetaW, thetaVm, thetaO float64
	tauV1m, tauV2m                  float64
	tauW1m, tauW2m, kWm, uWm        float64
	tauO1, tauO2                    float64
	tauSo1, tauSo2, kSo, uSo        float64
	tauS1, tauS2, kS, uS            float64
	tauWinf, wInfStar               float64
	invTauFi, invTauSi              float64
	decayVp, decayWp                float64
}

func (d *minimalDerivative) Voltage() int { return d.u }

func (d *minimalDerivative) Derive(st *sim.State, in sim.Step) float64 {
	u := st.At(d.u)
	v, w, s := st.At(d.v), st.At(d.w), st.At(d.s)

	hv := heaviside(u - d.thetaV)
	hw := heaviside(u - d.thetaW)
	hvm := heaviside(u - d.thetaVm)
	ho := heaviside(u - d.thetaO)

	if hv == 1 {
		v = integrators.RushLarsenDecay(v, 0, d.decayVp)
	} else {
		tauVm := (1-hvm)*d.tauV1m + hvm*d.tauV2m
		vinf := 1 - hvm
		v = integrators.RushLarsen(v, vinf, tauVm, d.dt)
	}

	if hw == 1 {
		w = integrators.RushLarsenDecay(w, 0, d.decayWp)
	} else {
		tauWm := d.tauW1m + (d.tauW2m-d.tauW1m)*sigmoid(d.kWm, u-d.uWm)
		winf := (1-ho)*(1-u/d.tauWinf) + ho*d.wInfStar
		w = integrators.RushLarsen(w, winf, tauWm, d.dt)
	}

	tauS := (1-hw)*d.tauS1 + hw*d.tauS2
	s = integrators.RushLarsen(s, sigmoid(d.kS, u-d.uS), tauS, d.dt)

	st.SetAt(d.v, v)
	st.SetAt(d.w, w)
	st.SetAt(d.s, s)

	tauO := (1-ho)*d.tauO1 + ho*d.tauO2
	tauSo := d.tauSo1 + (d.tauSo2-d.tauSo1)*sigmoid(d.kSo, u-d.uSo)

	jfi := -v * hv * (u - d.thetaV) * (d.uu - u) * d.invTauFi
	jso := (u-d.uo)*(1-hw)/tauO + hw/tauSo
	jsi := -hw * w * s * d.invTauSi

	st.SetAt(d.jfi, jfi)
	st.SetAt(d.jso, jso)
	st.SetAt(d.jsi, jsi)

	return jfi + jso + jsi
}
