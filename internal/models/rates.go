package models

import "math"

// singular is how close V may come to a removable singularity before the
// limiting value is used instead.
const singular = 1e-6

// brRate holds the seven coefficients of the Beeler-Reuter rate form
//
//	(C1 exp(C2 (V+C3)) + C4 (V+C5)) / (exp(C6 (V+C3)) + C7)
type brRate [7]float64

func (c brRate) at(v float64) float64 {
	num := c[0]*math.Exp(c[1]*(v+c[2])) + c[3]*(v+c[4])
	den := math.Exp(c[5]*(v+c[2])) + c[6]
	return num / den
}

var (
	rateAlphaM  = brRate{0, 0, 47, -1, 47, -0.1, -1}
	rateBetaM   = brRate{40, -0.056, 72, 0, 0, 0, 0}
	rateAlphaH  = brRate{0.126, -0.25, 77, 0, 0, 0, 0}
	rateBetaH   = brRate{1.7, 0, 22.5, 0, 0, -0.082, 1}
	rateAlphaJ  = brRate{0.055, -0.25, 78, 0, 0, -0.2, 1}
	rateBetaJ   = brRate{0.3, 0, 32, 0, 0, -0.1, 1}
	rateAlphaD  = brRate{0.095, -0.01, -5, 0, 0, -0.072, 1}
	rateBetaD   = brRate{0.07, -0.017, 44, 0, 0, 0.05, 1}
	rateAlphaF  = brRate{0.012, -0.008, 28, 0, 0, 0.15, 1}
	rateBetaF   = brRate{0.0065, -0.02, 30, 0, 0, -0.2, 1}
	rateAlphaX1 = brRate{0.0005, 0.083, 50, 0, 0, 0.057, 1}
	rateBetaX1  = brRate{0.0013, -0.06, 20, 0, 0, -0.04, 1}
)

// alphaM has a removable singularity at V = -47 mV where it tends to 10.
func alphaM(v float64) float64 {
	if math.Abs(v+47) < singular {
		return 10
	}
	return rateAlphaM.at(v)
}

// ik1Shape is the time-independent potassium current per unit conductance.
// The second term tends to 5 at V = -23 mV.
func ik1Shape(v float64) float64 {
	a := 4 * (math.Exp(0.04*(v+85)) - 1) / (math.Exp(0.08*(v+53)) + math.Exp(0.04*(v+53)))
	x := v + 23
	if math.Abs(x) < singular {
		return a + 5
	}
	return a + 0.2*x/(1-math.Exp(-0.04*x))
}

// ix1Shape is the time-dependent outward current per unit of activation and
// conductance.
func ix1Shape(v float64) float64 {
	return (math.Exp(0.04*(v+77)) - 1) / math.Exp(0.04*(v+35))
}

// heaviside is 1 for x >= 0.
func heaviside(x float64) float64 {
	if x >= 0 {
		return 1
	}
	return 0
}

// sigmoid is (1 + tanh(k x)) / 2.
func sigmoid(k, x float64) float64 {
	return 0.5 * (1 + math.Tanh(k*x))
}
