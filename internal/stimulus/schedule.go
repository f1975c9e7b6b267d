package stimulus

// Pulse is one scheduled stimulus window of Steps steps starting at Onset.
type Pulse struct {
	Onset     int
	Steps     int
	Magnitude float64
}

// Active reports whether step falls inside [Onset, Onset+Steps).
func (p Pulse) Active(step int) bool {
	return step >= p.Onset && step < p.Onset+p.Steps
}

// Schedule is the read-only list of stimulus onsets for one run.
type Schedule struct {
	pacing Pacing

	// S1 holds the onset step of every S1 beat, in order.
	S1 []int
	// S2 is the onset step of the premature beat.
	S2 int
	// DurationSteps is the pulse width in steps.
	DurationSteps int

	pulses []Pulse
}

// NewSchedule validates p and computes the onset steps for every beat.
func NewSchedule(p Pacing) (*Schedule, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s := &Schedule{
		pacing:        p,
		S1:            make([]int, p.NS1),
		DurationSteps: p.Steps(p.Duration),
		pulses:        make([]Pulse, 0, p.NS1+1),
	}
	for i := 0; i < p.NS1; i++ {
		s.S1[i] = p.Steps(p.S1Start + float64(i)*p.S1)
		s.pulses = append(s.pulses, Pulse{Onset: s.S1[i], Steps: s.DurationSteps, Magnitude: p.Magnitude})
	}

	s.S2 = p.Steps(p.S2Onset())
	s.pulses = append(s.pulses, Pulse{Onset: s.S2, Steps: s.DurationSteps, Magnitude: p.S2Current()})

	return s, nil
}

// Pacing returns the configuration the schedule was built from.
func (s *Schedule) Pacing() Pacing { return s.pacing }

// Timestep returns the step size the onsets were computed with.
func (s *Schedule) Timestep() float64 { return s.pacing.Timestep }

// Pulses returns the scheduled pulses in evaluation order: every S1 beat
// followed by the S2 beat.
func (s *Schedule) Pulses() []Pulse {
	out := make([]Pulse, len(s.pulses))
	copy(out, s.pulses)
	return out
}

// Onsets returns the onset step of every beat, S2 last.
func (s *Schedule) Onsets() []int {
	out := make([]int, 0, len(s.S1)+1)
	out = append(out, s.S1...)
	return append(out, s.S2)
}

// Beats returns the total number of scheduled beats.
func (s *Schedule) Beats() int { return len(s.pulses) }

// BeatOnset returns the onset step of beat i, counting S1 beats from zero
// and the S2 beat last.
func (s *Schedule) BeatOnset(i int) int { return s.pulses[i].Onset }

// BeatAt returns the most recent beat whose onset is at or before step, or
// -1 before the first onset.
func (s *Schedule) BeatAt(step int) int {
	beat := -1
	for i, p := range s.pulses {
		if p.Onset <= step {
			beat = i
		}
	}
	return beat
}

// At returns the stimulus current at step. When the windows of two pulses
// overlap the later pulse wins.
func (s *Schedule) At(step int) float64 {
	cur := 0.0
	for _, p := range s.pulses {
		if p.Active(step) {
			cur = p.Magnitude
		}
	}
	return cur
}

// StimulusAt returns magnitude when step lies in [onset, onset+durationSteps)
// for any of the given onsets, and zero otherwise.
func StimulusAt(step int, onsets []int, magnitude float64, durationSteps int) float64 {
	cur := 0.0
	for _, onset := range onsets {
		if step >= onset && step < onset+durationSteps {
			cur = magnitude
		}
	}
	return cur
}
