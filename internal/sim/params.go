package sim

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/cardiosim/internal/stimulus"
)

// Params are the inputs of one run: initial values, model constants and
// pacing. They are read-only for the duration of a run.
type Params map[string]float64

// Clone returns an independent copy.
func (p Params) Clone() Params {
	c := make(Params, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Merge returns a copy of p with every entry of over applied on top.
func (p Params) Merge(over Params) Params {
	c := p.Clone()
	for k, v := range over {
		c[k] = v
	}
	return c
}

// Names returns the parameter names, sorted.
func (p Params) Names() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Require fails on the first absent name.
func (p Params) Require(names ...string) error {
	for _, n := range names {
		if _, ok := p[n]; !ok {
			return missing(n)
		}
	}
	return nil
}

// PacingKeys maps each pacing role to the parameter name that carries it.
// Model families name these differently; the roles are fixed.
type PacingKeys struct {
	S1          string
	NS1         string
	S1Start     string
	S2          string
	Duration    string
	Magnitude   string
	S2Magnitude string // optional
	Timestep    string
}

// DefaultPacingKeys are the names used by every bundled model.
var DefaultPacingKeys = PacingKeys{
	S1:          stimulus.KeyS1,
	NS1:         stimulus.KeyNS1,
	S1Start:     stimulus.KeyS1Start,
	S2:          stimulus.KeyS2,
	Duration:    stimulus.KeyDuration,
	Magnitude:   stimulus.KeyMagnitude,
	S2Magnitude: stimulus.KeyS2Magnitude,
	Timestep:    stimulus.KeyTimestep,
}

// Pacing extracts and validates the pacing protocol.
func (p Params) Pacing(keys PacingKeys) (stimulus.Pacing, error) {
	get := func(name string) (float64, error) {
		v, ok := p[name]
		if !ok {
			return 0, missing(name)
		}
		return v, nil
	}

	var (
		out stimulus.Pacing
		err error
		ns1 float64
	)
	if out.Timestep, err = get(keys.Timestep); err != nil {
		return out, err
	}
	if out.S1, err = get(keys.S1); err != nil {
		return out, err
	}
	if ns1, err = get(keys.NS1); err != nil {
		return out, err
	}
	if ns1 != math.Trunc(ns1) || math.IsInf(ns1, 0) {
		return out, invalid(keys.NS1, fmt.Sprintf("beat count must be an integer, got %g", ns1))
	}
	out.NS1 = int(ns1)
	if out.S1Start, err = get(keys.S1Start); err != nil {
		return out, err
	}
	if out.S2, err = get(keys.S2); err != nil {
		return out, err
	}
	if out.Duration, err = get(keys.Duration); err != nil {
		return out, err
	}
	if out.Magnitude, err = get(keys.Magnitude); err != nil {
		return out, err
	}
	if keys.S2Magnitude != "" {
		out.S2Magnitude, out.HasS2Magnitude = p[keys.S2Magnitude]
	}

	if err := out.Validate(); err != nil {
		return out, pacingError(err, keys)
	}
	return out, nil
}

// pacingError rewrites a stimulus validation failure in terms of the
// parameter names the caller supplied.
func pacingError(err error, keys PacingKeys) error {
	pe, ok := err.(*stimulus.PacingError)
	if !ok {
		return err
	}

	name := map[string]string{
		stimulus.KeyS1:          keys.S1,
		stimulus.KeyNS1:         keys.NS1,
		stimulus.KeyS1Start:     keys.S1Start,
		stimulus.KeyS2:          keys.S2,
		stimulus.KeyDuration:    keys.Duration,
		stimulus.KeyMagnitude:   keys.Magnitude,
		stimulus.KeyS2Magnitude: keys.S2Magnitude,
		stimulus.KeyTimestep:    keys.Timestep,
	}[pe.Param]

	sentinel := ErrInvalidParameter
	if pe.Err == stimulus.ErrEmptySchedule {
		sentinel = ErrEmptySchedule
	}
	return &ConfigError{Param: name, Reason: pe.Reason, Err: sentinel}
}
