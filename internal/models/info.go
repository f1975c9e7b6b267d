package models

import "github.com/san-kum/cardiosim/internal/sim"

// Info describes a model for listings and for analyzers that need to know
// which variable is the membrane potential.
type Info struct {
	Name        string
	Description string
	// Voltage names the membrane potential variable.
	Voltage string
	// Threshold is the level used for upstroke and repolarization
	// crossings when an APD analyzer is not given one.
	Threshold float64
	// Rule sizes runs of this model.
	Rule sim.IterationRule
}

// Describer is implemented by every bundled model.
type Describer interface {
	Info() Info
}
