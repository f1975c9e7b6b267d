// Package sim provides the simulation engine shared by every cell model.
//
// The package defines the run-wide types and the step loop:
//
//   - [State]: named scalar variables of one simulated cell, laid out by a [Layout]
//   - [Params]: run inputs (initial values, constants, pacing)
//   - [Constants]: derived constants computed once per run by a [Model]
//   - [Derivative]: the per-step model payload driven by [Advance]
//   - [Analyzer]: observers with Reset/PreAggregate/Aggregate/PostAggregate hooks
//   - [Simulator]: orchestrates one run; [Ensemble] runs many in parallel
//
// # Example
//
//	s := sim.New(models.NewBeelerReuter())
//	trace := analyzer.NewTrace(10, "V")
//	s.AddAnalyzer(trace)
//	res, err := s.Run(ctx, params)
//
// # Membrane convention
//
// [Advance] updates the voltage variable as
//
//	V' = V - dt * (Iion + Istim) / Cm
//
// so depolarising stimuli carry a negative magnitude.
//
// # Thread Safety
//
// A Simulator and its analyzers serve one run at a time. Independent runs
// share nothing; use [Ensemble] with a per-run setup function to run them
// concurrently.
package sim
