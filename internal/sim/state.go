package sim

import (
	"fmt"
	"math"
	"sort"
)

// Class partitions state variables by how they evolve.
type Class uint8

const (
	// Voltage variables persist across steps: membrane potential, gates,
	// channel occupancies and concentrations. Seeded from Params.
	Voltage Class = iota
	// Current variables are recomputed every step for observation only.
	// They start at zero.
	Current
	// Auxiliary variables carry model-private values between calls.
	// Seeded from Params.
	Auxiliary
)

func (c Class) String() string {
	switch c {
	case Voltage:
		return "voltage"
	case Current:
		return "current"
	case Auxiliary:
		return "auxiliary"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Names of the current-class variables Advance fills in when a layout
// declares them.
const (
	IstimVar = "Istim"
	IionVar  = "Iion"
)

// Var declares one state variable.
type Var struct {
	Name  string
	Class Class
}

// Layout is the fixed set of variables of a model. It never grows during a
// run.
type Layout struct {
	vars  []Var
	index map[string]int

	istim, iion int
}

// NewLayout builds a layout, rejecting empty and duplicate names.
func NewLayout(vars ...Var) (*Layout, error) {
	l := &Layout{
		vars:  make([]Var, len(vars)),
		index: make(map[string]int, len(vars)),
		istim: -1,
		iion:  -1,
	}
	copy(l.vars, vars)

	for i, v := range vars {
		if v.Name == "" {
			return nil, fmt.Errorf("sim: layout variable %d has no name", i)
		}
		if _, dup := l.index[v.Name]; dup {
			return nil, fmt.Errorf("sim: duplicate layout variable %q", v.Name)
		}
		l.index[v.Name] = i
	}
	if i, ok := l.index[IstimVar]; ok {
		l.istim = i
	}
	if i, ok := l.index[IionVar]; ok {
		l.iion = i
	}
	return l, nil
}

// MustLayout is NewLayout for package-level model layouts.
func MustLayout(vars ...Var) *Layout {
	l, err := NewLayout(vars...)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the number of variables.
func (l *Layout) Len() int { return len(l.vars) }

// Vars returns a copy of the declared variables in layout order.
func (l *Layout) Vars() []Var {
	out := make([]Var, len(l.vars))
	copy(out, l.vars)
	return out
}

// Var returns the variable at index i.
func (l *Layout) Var(i int) Var { return l.vars[i] }

// Index returns the position of name.
func (l *Layout) Index(name string) (int, bool) {
	i, ok := l.index[name]
	return i, ok
}

// Lookup resolves several names at once, failing on the first unknown one.
func (l *Layout) Lookup(names ...string) ([]int, error) {
	out := make([]int, len(names))
	for i, n := range names {
		idx, ok := l.index[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, n)
		}
		out[i] = idx
	}
	return out, nil
}

// Names returns the variable names in layout order.
func (l *Layout) Names() []string {
	out := make([]string, len(l.vars))
	for i, v := range l.vars {
		out[i] = v.Name
	}
	return out
}

// State holds the instantaneous values of one cell.
type State struct {
	layout *Layout
	vals   []float64
}

// NewState returns a zeroed state for l.
func NewState(l *Layout) *State {
	return &State{layout: l, vals: make([]float64, l.Len())}
}

// SeedState creates the initial state of a run. Voltage and auxiliary
// variables are taken from p and must all be present; current variables
// start at zero.
func SeedState(l *Layout, p Params) (*State, error) {
	st := NewState(l)
	for i, v := range l.vars {
		if v.Class == Current {
			continue
		}
		val, ok := p[v.Name]
		if !ok {
			return nil, &ConfigError{Param: v.Name, Reason: "no initial value", Err: ErrMissingParameter}
		}
		st.vals[i] = val
	}
	return st, nil
}

// Layout returns the state's layout.
func (s *State) Layout() *Layout { return s.layout }

// Len returns the number of variables.
func (s *State) Len() int { return len(s.vals) }

// At returns the value at index i.
func (s *State) At(i int) float64 { return s.vals[i] }

// SetAt stores v at index i.
func (s *State) SetAt(i int, v float64) { s.vals[i] = v }

// Get returns the value of name.
func (s *State) Get(name string) (float64, bool) {
	i, ok := s.layout.index[name]
	if !ok {
		return 0, false
	}
	return s.vals[i], true
}

// Value returns the value of name, or NaN when the layout lacks it.
func (s *State) Value(name string) float64 {
	v, ok := s.Get(name)
	if !ok {
		return math.NaN()
	}
	return v
}

// Set stores v under an existing name.
func (s *State) Set(name string, v float64) error {
	i, ok := s.layout.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	s.vals[i] = v
	return nil
}

// Clone returns an independent copy sharing the layout.
func (s *State) Clone() *State {
	c := &State{layout: s.layout, vals: make([]float64, len(s.vals))}
	copy(c.vals, s.vals)
	return c
}

// Values returns a copy of the raw values in layout order.
func (s *State) Values() []float64 {
	out := make([]float64, len(s.vals))
	copy(out, s.vals)
	return out
}

// Map returns the state as name -> value.
func (s *State) Map() map[string]float64 {
	m := make(map[string]float64, len(s.vals))
	for i, v := range s.layout.vars {
		m[v.Name] = s.vals[i]
	}
	return m
}

// Equal reports whether both states share a layout and hold bit-identical
// values.
func (s *State) Equal(o *State) bool {
	if s.layout != o.layout || len(s.vals) != len(o.vals) {
		return false
	}
	for i := range s.vals {
		if math.Float64bits(s.vals[i]) != math.Float64bits(o.vals[i]) {
			return false
		}
	}
	return true
}

// IsValid reports whether every value is finite.
func (s *State) IsValid() bool {
	for _, v := range s.vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Invalid returns the sorted names of non-finite variables.
func (s *State) Invalid() []string {
	var out []string
	for i, v := range s.vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out = append(out, s.layout.vars[i].Name)
		}
	}
	sort.Strings(out)
	return out
}

// Frame is a read-only view of the state handed to analyzers. Every
// analyzer at a lifecycle point sees the same frame.
type Frame struct {
	st *State
}

// NewFrame wraps st.
func NewFrame(st *State) Frame { return Frame{st: st} }

// Layout returns the layout of the underlying state.
func (f Frame) Layout() *Layout { return f.st.layout }

// At returns the value at index i.
func (f Frame) At(i int) float64 { return f.st.vals[i] }

// Get returns the value of name.
func (f Frame) Get(name string) (float64, bool) { return f.st.Get(name) }

// Value returns the value of name, or NaN when absent.
func (f Frame) Value(name string) float64 { return f.st.Value(name) }

// Clone copies the underlying state.
func (f Frame) Clone() *State { return f.st.Clone() }
