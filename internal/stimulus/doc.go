// Package stimulus implements the S1–S2 pacing protocol.
//
// A [Pacing] describes a train of NS1 regularly spaced S1 beats followed by a
// single premature S2 beat. [NewSchedule] converts it once per run into onset
// step indices, after which [Schedule.At] is a pure lookup:
//
//	sched, err := stimulus.NewSchedule(stimulus.Pacing{
//	    S1: 300, NS1: 2, S2: 400,
//	    Duration: 1, Magnitude: -50, Timestep: 0.1,
//	})
//	istim := sched.At(step)
//
// Durations and onsets are converted from physical time to steps with
// round-half-away-from-zero semantics ([RoundHalfAway]).
package stimulus
