package sim

import (
	"fmt"
	"math"
	"sort"
)

// CapacitanceKey is the derived constant Advance divides the total
// transmembrane current by.
const CapacitanceKey = "Cm"

// Constants are computed once per run from Params and never change during
// the run. Constants that depend on the timestep are fixed for the run too.
type Constants struct {
	vals map[string]float64
}

// Lookup returns the constant called name.
func (k *Constants) Lookup(name string) (float64, bool) {
	v, ok := k.vals[name]
	return v, ok
}

// Value returns the constant called name, or NaN when absent.
func (k *Constants) Value(name string) float64 {
	v, ok := k.vals[name]
	if !ok {
		return math.NaN()
	}
	return v
}

// Capacitance returns the membrane capacitance.
func (k *Constants) Capacitance() float64 { return k.vals[CapacitanceKey] }

// Names returns the constant names, sorted.
func (k *Constants) Names() []string {
	out := make([]string, 0, len(k.vals))
	for n := range k.vals {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Map returns a copy of the constants.
func (k *Constants) Map() map[string]float64 {
	out := make(map[string]float64, len(k.vals))
	for n, v := range k.vals {
		out[n] = v
	}
	return out
}

// ConstantsBuilder accumulates derived constants for a model. The first
// failure is kept and reported by Build; later calls still return values
// so model code can be written straight through without error checks.
type ConstantsBuilder struct {
	p    Params
	vals map[string]float64
	err  error
}

// NewConstants starts a builder reading from p. It never reads State.
func NewConstants(p Params) *ConstantsBuilder {
	return &ConstantsBuilder{p: p, vals: make(map[string]float64)}
}

func (b *ConstantsBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Param returns a required parameter. A missing one yields NaN and records
// an error.
func (b *ConstantsBuilder) Param(name string) float64 {
	v, ok := b.p[name]
	if !ok {
		b.fail(missing(name))
		return math.NaN()
	}
	return v
}

// Positive is Param for parameters that must be strictly positive, such as
// concentrations that end up in a denominator or a logarithm.
func (b *ConstantsBuilder) Positive(name string) float64 {
	v := b.Param(name)
	if _, ok := b.p[name]; ok && !(v > 0) {
		b.fail(invalid(name, fmt.Sprintf("must be positive, got %g", v)))
	}
	return v
}

// Set records a derived constant. A non-finite value records an error.
func (b *ConstantsBuilder) Set(name string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		b.fail(&ConfigError{Param: name, Reason: fmt.Sprintf("evaluated to %g", v), Err: ErrNonFinite})
	}
	b.vals[name] = v
	return v
}

// Copy records each named parameter unchanged as a constant.
func (b *ConstantsBuilder) Copy(names ...string) {
	for _, n := range names {
		b.Set(n, b.Param(n))
	}
}

// Err returns the first recorded failure.
func (b *ConstantsBuilder) Err() error { return b.err }

// Build returns the constants, or the first failure. A positive capacitance
// under CapacitanceKey is required.
func (b *ConstantsBuilder) Build() (*Constants, error) {
	if b.err != nil {
		return nil, b.err
	}
	cm, ok := b.vals[CapacitanceKey]
	if !ok {
		return nil, missing(CapacitanceKey)
	}
	if !(cm > 0) {
		return nil, invalid(CapacitanceKey, fmt.Sprintf("must be positive, got %g", cm))
	}

	k := &Constants{vals: make(map[string]float64, len(b.vals))}
	for n, v := range b.vals {
		k.vals[n] = v
	}
	return k, nil
}
