package stimulus

import (
	"errors"
	"testing"
)

func examplePacing() Pacing {
	return Pacing{
		S1:        300,
		NS1:       2,
		S1Start:   0,
		S2:        400,
		Duration:  1,
		Magnitude: -50,
		Timestep:  0.1,
	}
}

func TestNewSchedule_Onsets(t *testing.T) {
	s, err := NewSchedule(examplePacing())
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}

	if len(s.S1) != 2 || s.S1[0] != 0 || s.S1[1] != 3000 {
		t.Errorf("S1 onsets = %v, want [0 3000]", s.S1)
	}
	if s.S2 != 7000 {
		t.Errorf("S2 onset = %d, want 7000", s.S2)
	}
	if s.DurationSteps != 10 {
		t.Errorf("duration steps = %d, want 10", s.DurationSteps)
	}
	if s.Beats() != 3 {
		t.Errorf("beats = %d, want 3", s.Beats())
	}
}

func TestSchedule_At(t *testing.T) {
	s, err := NewSchedule(examplePacing())
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}

	active := map[int]bool{}
	for _, onset := range []int{0, 3000, 7000} {
		for i := onset; i < onset+10; i++ {
			active[i] = true
		}
	}

	for step := 0; step < 8000; step++ {
		got := s.At(step)
		want := 0.0
		if active[step] {
			want = -50
		}
		if got != want {
			t.Fatalf("At(%d) = %v, want %v", step, got, want)
		}
	}
}

func TestSchedule_Boundaries(t *testing.T) {
	s, err := NewSchedule(examplePacing())
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}

	for _, onset := range s.Onsets() {
		if onset > 0 {
			if got := s.At(onset - 1); got != 0 {
				t.Errorf("At(onset-1=%d) = %v, want 0", onset-1, got)
			}
		}
		if got := s.At(onset); got == 0 {
			t.Errorf("At(onset=%d) = 0, want stimulus", onset)
		}
		if got := s.At(onset + s.DurationSteps - 1); got == 0 {
			t.Errorf("At(last active=%d) = 0, want stimulus", onset+s.DurationSteps-1)
		}
		if got := s.At(onset + s.DurationSteps); got != 0 {
			t.Errorf("At(onset+duration=%d) = %v, want 0", onset+s.DurationSteps, got)
		}
	}
}

func TestSchedule_OverlapLaterWins(t *testing.T) {
	p := Pacing{
		S1:             10,
		NS1:            1,
		S2:             1,
		Duration:       5,
		Magnitude:      -20,
		S2Magnitude:    -80,
		HasS2Magnitude: true,
		Timestep:       1,
	}
	s, err := NewSchedule(p)
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}

	if got := s.At(0); got != -20 {
		t.Errorf("At(0) = %v, want S1 magnitude", got)
	}
	for step := 1; step < 6; step++ {
		if got := s.At(step); got != -80 {
			t.Errorf("At(%d) = %v, want S2 magnitude in the overlap", step, got)
		}
	}
}

func TestSchedule_S2Magnitude(t *testing.T) {
	base := Pacing{S1: 10, NS1: 2, S2: 10, Duration: 1, Magnitude: -20, Timestep: 1}

	tests := []struct {
		name string
		mag  float64
		has  bool
		want float64
	}{
		{"unset uses S1 magnitude", 0, false, -20},
		{"explicit zero skips S2", 0, true, 0},
		{"explicit value", -60, true, -60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			p.S2Magnitude, p.HasS2Magnitude = tt.mag, tt.has
			s, err := NewSchedule(p)
			if err != nil {
				t.Fatalf("NewSchedule failed: %v", err)
			}
			if got := s.At(s.S2); got != tt.want {
				t.Errorf("At(S2) = %v, want %v", got, tt.want)
			}
			if got := s.At(s.S1[0]); got != -20 {
				t.Errorf("At(S1) = %v, want -20", got)
			}
		})
	}
}

func TestSchedule_BeatAt(t *testing.T) {
	s, err := NewSchedule(Pacing{S1: 300, NS1: 2, S1Start: 10, S2: 400, Duration: 1, Magnitude: -20, Timestep: 1})
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}

	tests := []struct {
		step, want int
	}{
		{0, -1},
		{9, -1},
		{10, 0},
		{309, 0},
		{310, 1},
		{709, 1},
		{710, 2},
		{5000, 2},
	}
	for _, tt := range tests {
		if got := s.BeatAt(tt.step); got != tt.want {
			t.Errorf("BeatAt(%d) = %d, want %d", tt.step, got, tt.want)
		}
	}
}

func TestStimulusAt(t *testing.T) {
	onsets := []int{0, 3000, 7000}
	tests := []struct {
		step int
		want float64
	}{
		{0, 2},
		{9, 2},
		{10, 0},
		{2999, 0},
		{3000, 2},
		{3009, 2},
		{3010, 0},
		{6999, 0},
		{7005, 2},
		{7010, 0},
	}

	for _, tt := range tests {
		if got := StimulusAt(tt.step, onsets, 2, 10); got != tt.want {
			t.Errorf("StimulusAt(%d) = %v, want %v", tt.step, got, tt.want)
		}
	}
}

func TestRoundHalfAway(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-2.5, -3},
		{2.4999, 2},
		{2999.9999999999995, 3000},
	}

	for _, tt := range tests {
		if got := RoundHalfAway(tt.in); got != tt.want {
			t.Errorf("RoundHalfAway(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestDurationRoundsHalfAway(t *testing.T) {
	p := examplePacing()
	p.Timestep = 0.5
	p.Duration = 1.25

	s, err := NewSchedule(p)
	if err != nil {
		t.Fatalf("NewSchedule failed: %v", err)
	}
	if s.DurationSteps != 3 {
		t.Errorf("duration steps = %d, want 3 (2.5 rounded away from zero)", s.DurationSteps)
	}
}

func TestNewSchedule_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Pacing)
		param  string
		target error
	}{
		{"zero timestep", func(p *Pacing) { p.Timestep = 0 }, KeyTimestep, ErrInvalidPacing},
		{"negative timestep", func(p *Pacing) { p.Timestep = -0.1 }, KeyTimestep, ErrInvalidPacing},
		{"zero s1", func(p *Pacing) { p.S1 = 0 }, KeyS1, ErrInvalidPacing},
		{"no beats", func(p *Pacing) { p.NS1 = 0 }, KeyNS1, ErrEmptySchedule},
		{"negative start", func(p *Pacing) { p.S1Start = -1 }, KeyS1Start, ErrInvalidPacing},
		{"inverted s2", func(p *Pacing) { p.S2 = -10 }, KeyS2, ErrInvalidPacing},
		{"zero duration", func(p *Pacing) { p.Duration = 0 }, KeyDuration, ErrEmptySchedule},
		{"sub-step duration", func(p *Pacing) { p.Duration = 0.04 }, KeyDuration, ErrEmptySchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := examplePacing()
			tt.mutate(&p)

			_, err := NewSchedule(p)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("error %v does not wrap %v", err, tt.target)
			}
			var pe *PacingError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v is not a PacingError", err)
			}
			if pe.Param != tt.param {
				t.Errorf("param = %q, want %q", pe.Param, tt.param)
			}
		})
	}
}
