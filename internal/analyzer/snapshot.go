package analyzer

import (
	"sort"

	"github.com/san-kum/cardiosim/internal/sim"
)

// Snapshot clones the full state at requested times and at the end of the
// run. A requested time is captured by the first step ending at or after
// it.
type Snapshot struct {
	at []float64

	next   int
	taken  []*sim.State
	takenT []float64
	final  *sim.State
}

func NewSnapshot(times ...float64) *Snapshot {
	at := append([]float64(nil), times...)
	sort.Float64s(at)
	return &Snapshot{at: at}
}

func (s *Snapshot) Name() string { return "snapshot" }

func (s *Snapshot) Reset(sim.Frame) error {
	s.next = 0
	s.taken = s.taken[:0]
	s.takenT = s.takenT[:0]
	s.final = nil
	return nil
}

func (s *Snapshot) Aggregate(in sim.Step, f sim.Frame) error {
	t := in.End()
	for s.next < len(s.at) && t >= s.at[s.next]-in.Dt*1e-6 {
		s.taken = append(s.taken, f.Clone())
		s.takenT = append(s.takenT, t)
		s.next++
	}
	return nil
}

func (s *Snapshot) PostAggregate(final sim.Frame) error {
	s.final = final.Clone()
	return nil
}

// Taken returns the captured states and the time each one was taken.
func (s *Snapshot) Taken() ([]*sim.State, []float64) { return s.taken, s.takenT }

// Final returns the state at the end of the run.
func (s *Snapshot) Final() *sim.State { return s.final }

func (s *Snapshot) Report() map[string]float64 {
	return map[string]float64{"taken": float64(len(s.taken))}
}
