// Package analyzer provides the stock sim.Analyzer implementations: voltage
// traces, action potential durations, S1-S2 restitution, extrema, state
// snapshots and upstroke velocity.
//
// Analyzers keep all cross-step history themselves and must not be shared
// between concurrent runs. Each one clears its accumulators in Reset, so a
// single instance can be reused for consecutive runs.
package analyzer
