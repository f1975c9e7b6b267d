package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation setup.
var (
	// ErrMissingParameter indicates a parameter the run needs was not supplied.
	ErrMissingParameter = errors.New("sim: missing parameter")

	// ErrInvalidParameter indicates a parameter value outside its valid range.
	ErrInvalidParameter = errors.New("sim: invalid parameter")

	// ErrNonFinite indicates a derived constant evaluated to NaN or Inf.
	ErrNonFinite = errors.New("sim: non-finite derived constant")

	// ErrEmptySchedule indicates a pacing protocol with nothing to deliver.
	ErrEmptySchedule = errors.New("sim: empty stimulus schedule")

	// ErrUnknownVariable indicates a lookup of a name absent from the layout.
	ErrUnknownVariable = errors.New("sim: unknown state variable")

	// ErrAnalyzer indicates an analyzer hook failed and the run was aborted.
	ErrAnalyzer = errors.New("sim: analyzer failed")
)

// ConfigError reports which parameter stopped a run from starting.
type ConfigError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %q", e.Err, e.Param)
	}
	return fmt.Sprintf("%s: %q: %s", e.Err, e.Param, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func missing(param string) error {
	return &ConfigError{Param: param, Err: ErrMissingParameter}
}

func invalid(param, reason string) error {
	return &ConfigError{Param: param, Reason: reason, Err: ErrInvalidParameter}
}

// AnalyzerError wraps a failure returned by an analyzer hook.
type AnalyzerError struct {
	Analyzer string
	Hook     string
	Step     int
	Err      error
}

func (e *AnalyzerError) Error() string {
	if e.Step >= 0 {
		return fmt.Sprintf("%s: %s.%s at step %d: %v", ErrAnalyzer, e.Analyzer, e.Hook, e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %s.%s: %v", ErrAnalyzer, e.Analyzer, e.Hook, e.Err)
}

func (e *AnalyzerError) Unwrap() []error { return []error{ErrAnalyzer, e.Err} }
