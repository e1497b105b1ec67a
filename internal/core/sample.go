// Package core defines the fundamental types shared by the quicperf components.
package core

import "sync"

// Kind identifies which recognizer produced a sample.
type Kind string

const (
	// KindTransferDuration is the client-reported transfer time in milliseconds.
	KindTransferDuration Kind = "transfer_duration"
	// KindDeliveryRate is the client-reported delivery rate.
	KindDeliveryRate Kind = "delivery_rate"
	// KindStartupExitBandwidth is the bandwidth the server recorded when a
	// connection left slow start.
	KindStartupExitBandwidth Kind = "startup_exit_bandwidth"
)

// Kinds lists every sample kind in report order.
var Kinds = []Kind{KindTransferDuration, KindDeliveryRate, KindStartupExitBandwidth}

// Unit returns the display unit for values of this kind.
func (k Kind) Unit() string {
	switch k {
	case KindTransferDuration:
		return "ms"
	case KindDeliveryRate, KindStartupExitBandwidth:
		return "B/s"
	default:
		return ""
	}
}

// Sample is a single numeric observation.
type Sample struct {
	Kind  Kind
	Value float64
	Trial int // 1-based trial index; 0 for server-side samples
}

// SampleSet is an ordered collection of samples of one kind.
// Add may be called until Freeze; afterwards the set is read-only.
type SampleSet struct {
	kind    Kind
	samples []Sample
	frozen  bool
	mu      sync.Mutex
}

// NewSampleSet creates an empty set for kind.
func NewSampleSet(kind Kind) *SampleSet {
	return &SampleSet{kind: kind, samples: make([]Sample, 0)}
}

// Kind returns the kind of samples held by the set.
func (s *SampleSet) Kind() Kind {
	return s.kind
}

// Add appends samples of the set's kind. Samples of other kinds are ignored.
// Returns the number of samples appended.
func (s *SampleSet) Add(samples ...Sample) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return 0
	}
	n := 0
	for _, sample := range samples {
		if sample.Kind != s.kind {
			continue
		}
		s.samples = append(s.samples, sample)
		n++
	}
	return n
}

// Len returns the number of samples in the set.
func (s *SampleSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.samples)
}

// Freeze stops further appends and returns a copy of the samples.
func (s *SampleSet) Freeze() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
	result := make([]Sample, len(s.samples))
	copy(result, s.samples)
	return result
}
