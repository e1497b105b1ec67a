package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"quicperf/internal/core"
)

// Thresholds defines pass/fail criteria for a run.
type Thresholds struct {
	TransferDuration     *StatThresholds `yaml:"transfer_duration" json:"transfer_duration,omitempty"`
	DeliveryRate         *StatThresholds `yaml:"delivery_rate" json:"delivery_rate,omitempty"`
	StartupExitBandwidth *StatThresholds `yaml:"startup_exit_bandwidth" json:"startup_exit_bandwidth,omitempty"`
	TrialFailures        string          `yaml:"trial_failures" json:"trial_failures,omitempty"`
}

// StatThresholds bounds the statistics of one kind. Zero fields are unchecked.
// Median, Mean, P90 and P99 are upper bounds; MinMedian is a lower bound.
type StatThresholds struct {
	Median    float64 `yaml:"median" json:"median,omitempty"`
	Mean      float64 `yaml:"mean" json:"mean,omitempty"`
	P90       float64 `yaml:"p90" json:"p90,omitempty"`
	P99       float64 `yaml:"p99" json:"p99,omitempty"`
	MinMedian float64 `yaml:"min_median" json:"min_median,omitempty"`
}

// ThresholdResult represents the outcome of a single threshold check.
type ThresholdResult struct {
	Name      string `json:"name"`
	Passed    bool   `json:"passed"`
	Threshold string `json:"threshold"`
	Actual    string `json:"actual"`
}

// ThresholdResults contains all threshold check results.
type ThresholdResults struct {
	Passed  bool              `json:"passed"`
	Results []ThresholdResult `json:"results"`
}

// Validate reports malformed thresholds before a run starts.
func (t *Thresholds) Validate() error {
	if t == nil || t.TrialFailures == "" {
		return nil
	}
	if _, err := parsePercentage(t.TrialFailures); err != nil {
		return fmt.Errorf("thresholds.trial_failures: %w", err)
	}
	return nil
}

// Check evaluates all thresholds against a finished run.
func (t *Thresholds) Check(r *RunReport) *ThresholdResults {
	if t == nil {
		return &ThresholdResults{Passed: true, Results: nil}
	}

	results := &ThresholdResults{
		Passed:  true,
		Results: make([]ThresholdResult, 0),
	}

	kinds := []struct {
		kind core.Kind
		th   *StatThresholds
	}{
		{core.KindTransferDuration, t.TransferDuration},
		{core.KindDeliveryRate, t.DeliveryRate},
		{core.KindStartupExitBandwidth, t.StartupExitBandwidth},
	}
	for _, k := range kinds {
		if k.th != nil {
			results.checkKind(k.kind, k.th, r.Kind(k.kind))
		}
	}

	if t.TrialFailures != "" {
		results.checkFailureRate(t.TrialFailures, r)
	}

	return results
}

func (r *ThresholdResults) add(result ThresholdResult) {
	if !result.Passed {
		r.Passed = false
	}
	r.Results = append(r.Results, result)
}

func (r *ThresholdResults) checkKind(kind core.Kind, th *StatThresholds, kr *KindReport) {
	var mean float64
	if kr != nil && kr.Stats != nil && kr.Stats.Mean != nil {
		mean = *kr.Stats.Mean
	}

	checks := []struct {
		name   string
		limit  float64
		actual func() float64
		lower  bool
	}{
		{"median", th.Median, func() float64 { return kr.Stats.Median }, false},
		{"mean", th.Mean, func() float64 { return mean }, false},
		{"p90", th.P90, func() float64 { return kr.Stats.P90 }, false},
		{"p99", th.P99, func() float64 { return kr.Stats.P99 }, false},
		{"median", th.MinMedian, func() float64 { return kr.Stats.Median }, true},
	}

	for _, check := range checks {
		if check.limit == 0 {
			continue
		}
		name := fmt.Sprintf("%s.%s", kind, check.name)
		op := "<"
		if check.lower {
			op = ">"
		}
		threshold := fmt.Sprintf("%s %s", op, formatValue(check.limit))

		if kr == nil || kr.Stats == nil {
			r.add(ThresholdResult{Name: name, Passed: false, Threshold: threshold, Actual: "no samples"})
			continue
		}

		actual := check.actual()
		passed := actual < check.limit
		if check.lower {
			passed = actual > check.limit
		}
		r.add(ThresholdResult{
			Name:      name,
			Passed:    passed,
			Threshold: threshold,
			Actual:    formatValue(actual),
		})
	}
}

func (r *ThresholdResults) checkFailureRate(limit string, run *RunReport) {
	thresholdRate, err := parsePercentage(limit)
	if err != nil {
		return
	}

	actualRate := run.FailureRate()
	// A zero limit means no failures are tolerated.
	passed := actualRate < thresholdRate || (thresholdRate == 0 && actualRate == 0)

	r.add(ThresholdResult{
		Name:      "trial_failures.rate",
		Passed:    passed,
		Threshold: "< " + strings.TrimSpace(limit),
		Actual:    fmt.Sprintf("%.2f%%", actualRate),
	})
}

func parsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	if v < 0 || v > 100 || math.IsNaN(v) {
		return 0, fmt.Errorf("percentage out of range: %s", s)
	}
	return v, nil
}

// Violations returns only the failed threshold results.
func (r *ThresholdResults) Violations() []ThresholdResult {
	violations := make([]ThresholdResult, 0)
	for _, result := range r.Results {
		if !result.Passed {
			violations = append(violations, result)
		}
	}
	return violations
}
