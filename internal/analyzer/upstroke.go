package analyzer

import (
	"fmt"
	"math"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Upstroke records the maximum rate of rise of a variable per beat, a proxy
// for sodium channel availability.
type Upstroke struct {
	Var string

	vi    int
	prevV float64
	prevT float64
	max   map[int]float64
	when  map[int]float64
}

func NewUpstroke(variable string) *Upstroke {
	return &Upstroke{Var: variable}
}

func (u *Upstroke) Name() string { return "upstroke" }

func (u *Upstroke) Reset(initial sim.Frame) error {
	idx, err := initial.Layout().Lookup(u.Var)
	if err != nil {
		return fmt.Errorf("upstroke: %w", err)
	}
	u.vi = idx[0]
	u.prevV = initial.At(u.vi)
	u.prevT = 0
	u.max = make(map[int]float64)
	u.when = make(map[int]float64)
	return nil
}

func (u *Upstroke) Aggregate(in sim.Step, f sim.Frame) error {
	v, t := f.At(u.vi), in.End()
	if in.Beat >= 0 && t > u.prevT {
		rate := (v - u.prevV) / (t - u.prevT)
		if cur, ok := u.max[in.Beat]; !ok || rate > cur {
			u.max[in.Beat] = rate
			u.when[in.Beat] = t
		}
	}
	u.prevV, u.prevT = v, t
	return nil
}

// Max returns the largest rate of rise in beat i and when it occurred.
func (u *Upstroke) Max(i int) (rate, at float64, ok bool) {
	rate, ok = u.max[i]
	return rate, u.when[i], ok
}

func (u *Upstroke) Report() map[string]float64 {
	out := map[string]float64{"max": math.NaN()}
	for beat, rate := range u.max {
		out[fmt.Sprintf("beat_%d", beat)] = rate
		if m := out["max"]; math.IsNaN(m) || rate > m {
			out["max"] = rate
		}
	}
	return out
}
