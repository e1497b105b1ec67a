package pacing

import "fmt"

// Phase names the role of a trial in a run.
type Phase string

const (
	PhaseWarmup  Phase = "warmup"
	PhaseMeasure Phase = "measure"
)

// Slot is one scheduled trial.
type Slot struct {
	Phase Phase
	// Index is 1-based within the phase.
	Index int
	// Total is the number of trials in the phase.
	Total int
}

// Label renders the slot for progress output, e.g. "Run [3/5]".
func (s Slot) Label() string {
	if s.Phase == PhaseWarmup {
		return fmt.Sprintf("Warmup [%d/%d]", s.Index, s.Total)
	}
	return fmt.Sprintf("Run [%d/%d]", s.Index, s.Total)
}

// Measured reports whether samples from this slot are kept.
func (s Slot) Measured() bool {
	return s.Phase == PhaseMeasure
}

// Schedule is the ordered list of trials for a run: all warmup trials
// first, then the measured ones.
type Schedule struct {
	warmup int
	trials int
}

// NewSchedule creates a schedule. Negative counts are treated as zero.
func NewSchedule(warmup, trials int) *Schedule {
	if warmup < 0 {
		warmup = 0
	}
	if trials < 0 {
		trials = 0
	}
	return &Schedule{warmup: warmup, trials: trials}
}

// Len returns the total number of slots.
func (s *Schedule) Len() int {
	return s.warmup + s.trials
}

// Slot returns the i-th slot (0-based). ok is false past the end.
func (s *Schedule) Slot(i int) (slot Slot, ok bool) {
	switch {
	case i < 0 || i >= s.Len():
		return Slot{}, false
	case i < s.warmup:
		return Slot{Phase: PhaseWarmup, Index: i + 1, Total: s.warmup}, true
	default:
		return Slot{Phase: PhaseMeasure, Index: i - s.warmup + 1, Total: s.trials}, true
	}
}

// Slots returns every slot in order.
func (s *Schedule) Slots() []Slot {
	slots := make([]Slot, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		slot, _ := s.Slot(i)
		slots = append(slots, slot)
	}
	return slots
}
