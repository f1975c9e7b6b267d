package analyzer

import (
	"fmt"
	"math"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Beat is the action potential measured for one stimulus beat. Times are in
// ms from the start of the run. Unmeasured fields are NaN.
type Beat struct {
	Index          int
	Onset          float64
	Activation     float64
	Repolarization float64
	Peak           float64
	Rest           float64
}

// APD returns Repolarization - Activation.
func (b Beat) APD() float64 { return b.Repolarization - b.Activation }

func newBeat(index int, onset, rest float64) Beat {
	nan := math.NaN()
	return Beat{Index: index, Onset: onset, Activation: nan, Repolarization: nan, Peak: nan, Rest: rest}
}

// APD measures action potential duration per beat from threshold crossings
// of one variable, interpolating linearly between samples.
//
// Activation is the upward crossing of Threshold. With Repolarization zero,
// the action potential ends at the downward crossing of Threshold. With
// Repolarization r in (0, 1) it ends when the variable falls to
// peak - r*(peak - rest), rest being its lowest value between beat onset and
// activation; 0.9 gives APD90.
//
// A beat whose onset falls inside the previous action potential is not
// activated until that action potential has repolarized, and the earlier
// beat keeps being measured past the new onset.
type APD struct {
	name           string
	Var            string
	Threshold      float64
	Repolarization float64

	vi    int
	beat  int
	prevV float64
	prevT float64
	beats []Beat

	// Indices into beats of the beat waiting for activation and of the
	// action potential in progress, -1 when there is none.
	armed   int
	excited int
}

func NewAPD(variable string, threshold float64) *APD {
	return &APD{name: "apd", Var: variable, Threshold: threshold}
}

// NewAPDPercent measures APD at fractional repolarization r.
func NewAPDPercent(variable string, threshold, r float64) *APD {
	return &APD{name: "apd", Var: variable, Threshold: threshold, Repolarization: r}
}

func (a *APD) Name() string { return a.name }

func (a *APD) Reset(initial sim.Frame) error {
	if a.Repolarization < 0 || a.Repolarization >= 1 {
		return fmt.Errorf("apd: repolarization fraction %g outside [0, 1)", a.Repolarization)
	}
	idx, err := initial.Layout().Lookup(a.Var)
	if err != nil {
		return fmt.Errorf("apd: %w", err)
	}
	a.vi = idx[0]
	a.beat = -1
	a.armed, a.excited = -1, -1
	a.prevV = initial.At(a.vi)
	a.prevT = 0
	a.beats = a.beats[:0]
	return nil
}

func (a *APD) Aggregate(in sim.Step, f sim.Frame) error {
	v, t := f.At(a.vi), in.End()
	defer func() { a.prevV, a.prevT = v, t }()

	if in.Beat != a.beat {
		a.beat = in.Beat
		if a.beat >= 0 {
			rest := a.prevV
			if a.prevT != in.Time {
				rest = v
			}
			a.beats = append(a.beats, newBeat(a.beat, in.Time, rest))
			a.armed = len(a.beats) - 1
		}
	}

	if a.excited >= 0 {
		b := &a.beats[a.excited]
		if v > b.Peak {
			b.Peak = v
		}
		level := a.level(b)
		if a.prevV > level && v <= level {
			b.Repolarization = a.cross(level, v, t)
			a.excited = -1
		}
		return nil
	}

	if a.armed >= 0 {
		b := &a.beats[a.armed]
		if a.prevV < a.Threshold && v >= a.Threshold {
			b.Activation = a.cross(a.Threshold, v, t)
			b.Peak = v
			a.excited, a.armed = a.armed, -1
		} else if v < b.Rest {
			b.Rest = v
		}
	}
	return nil
}

func (a *APD) level(b *Beat) float64 {
	if a.Repolarization == 0 {
		return a.Threshold
	}
	return b.Peak - a.Repolarization*(b.Peak-b.Rest)
}

// cross interpolates the time between the previous sample and (v, t) at
// which the variable passed level.
func (a *APD) cross(level, v, t float64) float64 {
	if v == a.prevV {
		return t
	}
	return a.prevT + (level-a.prevV)/(v-a.prevV)*(t-a.prevT)
}

// Beats returns every beat observed, including incomplete ones.
func (a *APD) Beats() []Beat {
	out := make([]Beat, len(a.beats))
	copy(out, a.beats)
	return out
}

// Beat returns the measurement for beat index i.
func (a *APD) Beat(i int) (Beat, bool) {
	for _, b := range a.beats {
		if b.Index == i {
			return b, true
		}
	}
	return Beat{}, false
}

// Report gives the APD of each beat as beat_<i> and the most recent
// complete one as last.
func (a *APD) Report() map[string]float64 {
	out := map[string]float64{"last": math.NaN()}
	for _, b := range a.beats {
		apd := b.APD()
		out[fmt.Sprintf("beat_%d", b.Index)] = apd
		if !math.IsNaN(apd) {
			out["last"] = apd
		}
	}
	return out
}
