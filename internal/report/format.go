package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"quicperf/internal/pacing"
	"quicperf/internal/stats"
)

// FormatText writes a human-readable summary of r. When colored is false
// the output is plain regardless of the terminal.
func FormatText(w io.Writer, r *RunReport, colored bool) {
	title := color.New(color.Bold)
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	dim := color.New(color.Faint)
	if !colored {
		for _, c := range []*color.Color{title, pass, fail, dim} {
			c.DisableColor()
		}
	}

	p := r.Plan
	fmt.Fprintln(w, "")
	title.Fprintln(w, "quicperf - Run Results")
	fmt.Fprintln(w, "======================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Run ID:     %s\n", p.ID)
	fmt.Fprintf(w, "Network:    %s (delay %dms, loss %d%%, rate %dMbit)\n",
		p.Network.Name, p.Network.DelayMS, p.Network.LossPct, p.Network.RateMbit)
	fmt.Fprintf(w, "Payload:    %s\n", humanize.Bytes(p.PayloadBytes))
	fmt.Fprintf(w, "CC:         %s\n", p.Endpoint.CCAlgorithm)
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Duration:   %v\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	trials := fmt.Sprintf("%d", len(r.Trials))
	if r.Failures > 0 {
		fmt.Fprintf(w, "Trials:     %s (%s)\n", trials, fail.Sprintf("%d failed", r.Failures))
	} else {
		fmt.Fprintf(w, "Trials:     %s\n", trials)
	}

	for _, kr := range r.Kinds {
		fmt.Fprintln(w, "")
		title.Fprintf(w, "%s (%s):\n", kr.Kind, kr.Unit)
		if kr.Stats == nil {
			dim.Fprintf(w, "  no statistics: %s\n", kr.Error)
			continue
		}
		s := kr.Stats
		mean := math.NaN()
		if s.Mean != nil {
			mean = *s.Mean
		}
		fmt.Fprintf(w, "  Count:   %d\n", s.Count)
		fmt.Fprintf(w, "  Median:  %s\n", formatValue(s.Median))
		fmt.Fprintf(w, "  Mean:    %s\n", formatValue(mean))
		fmt.Fprintf(w, "  Trimean: %s\n", formatValue(s.Trimean))
		for i, v := range s.Percentiles() {
			q := stats.Quantiles[i]
			if q == 50 {
				continue
			}
			fmt.Fprintf(w, "  %-8s %s\n", fmt.Sprintf("P%g:", q), formatValue(v))
		}
	}

	if r.Failures > 0 {
		fmt.Fprintln(w, "")
		title.Fprintln(w, "Failed trials:")
		for _, t := range r.Trials {
			if !t.Failed() {
				continue
			}
			label := pacing.Slot{Phase: pacing.PhaseMeasure, Index: t.Index, Total: len(r.Trials)}.Label()
			fail.Fprintf(w, "  %s: %s\n", label, t.Error)
		}
	}

	if r.Thresholds != nil && len(r.Thresholds.Results) > 0 {
		fmt.Fprintln(w, "")
		title.Fprintln(w, "Thresholds:")
		for _, result := range r.Thresholds.Results {
			if result.Passed {
				pass.Fprintf(w, "  ✓ %s %s (actual: %s)\n", result.Name, result.Threshold, result.Actual)
			} else {
				fail.Fprintf(w, "  ✗ %s %s (actual: %s)\n", result.Name, result.Threshold, result.Actual)
			}
		}
	}

	if r.Dir != "" {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Artifacts:  %s\n", r.Dir)
	}
}

// FormatJSON writes r as indented JSON.
func FormatJSON(w io.Writer, r *RunReport) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(r) // stdout errors are unrecoverable
}

// FormatValue renders a statistic the way the text summaries do.
func FormatValue(v float64) string {
	return formatValue(v)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	if v == math.Trunc(v) {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 2)
}
