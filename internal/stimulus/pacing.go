package stimulus

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidPacing indicates a pacing value outside its valid range.
	ErrInvalidPacing = errors.New("stimulus: invalid pacing parameter")

	// ErrEmptySchedule indicates a protocol that would never stimulate.
	ErrEmptySchedule = errors.New("stimulus: empty stimulus schedule")
)

// Parameter names reported by PacingError. They match the default
// parameter keys used by the simulation driver.
const (
	KeyS1          = "s1"
	KeyNS1         = "ns1"
	KeyS1Start     = "s1Start"
	KeyS2          = "s2"
	KeyDuration    = "stimdur"
	KeyMagnitude   = "stimmag"
	KeyS2Magnitude = "s2mag"
	KeyTimestep    = "timestep"
)

// PacingError names the pacing parameter that failed validation.
type PacingError struct {
	Param  string
	Reason string
	Err    error
}

func (e *PacingError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Param, e.Reason)
}

func (e *PacingError) Unwrap() error { return e.Err }

// Pacing is the S1–S2 protocol configuration. All times are in the model's
// time unit (ms for every bundled model).
type Pacing struct {
	S1        float64 // S1 basic cycle length
	NS1       int     // number of S1 beats
	S1Start   float64 // time of the first S1 onset
	S2        float64 // coupling interval from the last S1 onset to S2
	Duration  float64 // stimulus pulse width
	Magnitude float64 // stimulus current for S1 beats

	// S2Magnitude is the stimulus current for the S2 beat when
	// HasS2Magnitude is set. Otherwise the S2 beat uses Magnitude.
	S2Magnitude    float64
	HasS2Magnitude bool

	Timestep float64
}

// Validate reports the first parameter that makes the protocol unusable.
func (p Pacing) Validate() error {
	switch {
	case !(p.Timestep > 0) || math.IsInf(p.Timestep, 0):
		return invalid(KeyTimestep, fmt.Sprintf("must be positive and finite, got %g", p.Timestep))
	case !(p.S1 > 0) || math.IsInf(p.S1, 0):
		return invalid(KeyS1, fmt.Sprintf("must be positive and finite, got %g", p.S1))
	case p.NS1 < 1:
		return &PacingError{Param: KeyNS1, Reason: fmt.Sprintf("need at least one S1 beat, got %d", p.NS1), Err: ErrEmptySchedule}
	case !(p.S1Start >= 0) || math.IsInf(p.S1Start, 0):
		return invalid(KeyS1Start, fmt.Sprintf("must be non-negative and finite, got %g", p.S1Start))
	case !(p.S2 > 0) || math.IsInf(p.S2, 0):
		return invalid(KeyS2, fmt.Sprintf("S2 must follow the last S1 onset, got coupling interval %g", p.S2))
	case !(p.Duration > 0) || math.IsInf(p.Duration, 0):
		return &PacingError{Param: KeyDuration, Reason: fmt.Sprintf("must be positive, got %g", p.Duration), Err: ErrEmptySchedule}
	case p.Steps(p.Duration) < 1:
		return &PacingError{Param: KeyDuration, Reason: fmt.Sprintf("%g is shorter than half a timestep", p.Duration), Err: ErrEmptySchedule}
	case math.IsNaN(p.Magnitude) || math.IsInf(p.Magnitude, 0):
		return invalid(KeyMagnitude, "must be finite")
	case math.IsNaN(p.S2Magnitude) || math.IsInf(p.S2Magnitude, 0):
		return invalid(KeyS2Magnitude, "must be finite")
	}
	return nil
}

func invalid(param, reason string) error {
	return &PacingError{Param: param, Reason: reason, Err: ErrInvalidPacing}
}

// Steps converts a physical time span to a step count.
func (p Pacing) Steps(t float64) int {
	return RoundHalfAway(t / p.Timestep)
}

// S2Current returns the stimulus current delivered by the S2 beat.
func (p Pacing) S2Current() float64 {
	if p.HasS2Magnitude {
		return p.S2Magnitude
	}
	return p.Magnitude
}

// S2Onset returns the time of the S2 onset.
func (p Pacing) S2Onset() float64 {
	return p.S1Start + p.S1*float64(p.NS1-1) + p.S2
}

// RoundHalfAway rounds x to the nearest integer, with halves rounded away
// from zero (2.5 -> 3, -2.5 -> -3).
func RoundHalfAway(x float64) int {
	return int(math.Round(x))
}
