package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/cardiosim/internal/stimulus"
)

// Model is a cell model: a layout, default parameters, a derived-constants
// computation and a factory for its per-run Derivative. A Model holds no
// run state and may serve concurrent runs.
type Model interface {
	Name() string
	Layout() *Layout
	Defaults() Params
	Constants(p Params) (*Constants, error)
	Bind(l *Layout, k *Constants) (Derivative, error)
}

// PacingKeyer is implemented by models whose pacing parameters are not
// named by DefaultPacingKeys.
type PacingKeyer interface {
	PacingKeys() PacingKeys
}

// IterationRule computes the number of steps in a run from the pacing
// protocol. Different model families size their runs differently.
type IterationRule interface {
	Iterations(p stimulus.Pacing) int
	Validate() error
	String() string
}

// Overshoot runs for (s1Start + ns1*s1 + s2) * Factor.
type Overshoot struct {
	Factor float64
}

// DefaultOvershoot is the 10% safety margin most models use.
var DefaultOvershoot = Overshoot{Factor: 1.1}

func (o Overshoot) Iterations(p stimulus.Pacing) int {
	return floorSteps((p.S1Start+float64(p.NS1)*p.S1+p.S2)*o.Factor, p.Timestep)
}

func (o Overshoot) Validate() error {
	if !(o.Factor > 0) || math.IsInf(o.Factor, 0) {
		return invalid("iterations.factor", fmt.Sprintf("overshoot factor must be positive, got %g", o.Factor))
	}
	return nil
}

func (o Overshoot) String() string { return fmt.Sprintf("overshoot(%g)", o.Factor) }

// Exact runs for s1Start + ns1*s1 + 2*s2.
type Exact struct{}

func (Exact) Iterations(p stimulus.Pacing) int {
	return floorSteps(p.S1Start+float64(p.NS1)*p.S1+2*p.S2, p.Timestep)
}

func (Exact) Validate() error { return nil }

func (Exact) String() string { return "exact" }

// floorSteps is floor(t/dt), tolerant of quotients like 13999.999999999998
// that are an exact step count up to rounding.
func floorSteps(t, dt float64) int {
	return int(math.Floor(t/dt + 1e-9))
}
