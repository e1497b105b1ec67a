// Package report assembles run results and persists them.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quicperf/internal/core"
	"quicperf/internal/stats"
)

// TrialRecord is the outcome of one measured trial. Every trial index of a
// run has exactly one record, successful or not.
type TrialRecord struct {
	Index    int           `json:"index"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exitCode"`
	Samples  int           `json:"samples"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether the trial produced an error.
func (t TrialRecord) Failed() bool {
	return t.Err != nil || t.Error != ""
}

// KindReport holds everything computed for one sample kind.
type KindReport struct {
	Kind    core.Kind             `json:"kind"`
	Unit    string                `json:"unit"`
	Samples []core.Sample         `json:"-"`
	Stats   *stats.AggregateStats `json:"stats,omitempty"`
	CDF     stats.Curve           `json:"cdf,omitempty"`
	Err     error                 `json:"-"`
	Error   string                `json:"error,omitempty"`

	SamplesPath string `json:"samplesPath,omitempty"`
	StatsPath   string `json:"statsPath,omitempty"`
	PlotPath    string `json:"plotPath,omitempty"`
}

// NewKindReport aggregates samples of one kind. An empty set yields a report
// whose Err is stats.ErrEmptyDataset; other kinds are not affected.
func NewKindReport(kind core.Kind, samples []core.Sample) *KindReport {
	kr := &KindReport{Kind: kind, Unit: kind.Unit(), Samples: samples}

	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = s.Value
	}

	agg, err := stats.Aggregate(values)
	if err != nil {
		kr.setErr(err)
		return kr
	}
	curve, err := stats.CDF(values)
	if err != nil {
		kr.setErr(err)
		return kr
	}
	kr.Stats = &agg
	kr.CDF = curve
	return kr
}

func (k *KindReport) setErr(err error) {
	k.Err = err
	k.Error = err.Error()
}

// Empty reports whether the kind had no samples to aggregate.
func (k *KindReport) Empty() bool {
	return errors.Is(k.Err, stats.ErrEmptyDataset)
}

// RunReport is the complete result of one run.
type RunReport struct {
	Plan       core.RunPlan      `json:"plan"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Trials     []TrialRecord     `json:"trials"`
	Failures   int               `json:"failures"`
	Kinds      []*KindReport     `json:"kinds"`
	Dir        string            `json:"dir,omitempty"`
	ServerLog  []string          `json:"-"`
	ServerExit string            `json:"serverExit,omitempty"`
	Thresholds *ThresholdResults `json:"thresholds,omitempty"`
}

// Kind returns the report for kind, or nil.
func (r *RunReport) Kind(kind core.Kind) *KindReport {
	for _, k := range r.Kinds {
		if k.Kind == kind {
			return k
		}
	}
	return nil
}

// FailureRate returns the percentage of measured trials that failed.
func (r *RunReport) FailureRate() float64 {
	if len(r.Trials) == 0 {
		return 0
	}
	return float64(r.Failures) / float64(len(r.Trials)) * 100
}

// Sink persists a finished run.
type Sink interface {
	Write(ctx context.Context, r *RunReport) error
}

// WriteError reports a failed write of a report artifact.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
