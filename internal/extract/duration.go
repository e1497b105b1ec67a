package extract

import (
	"math"
	"regexp"
	"strconv"

	"quicperf/internal/core"
)

// transferDurationPattern matches e.g. "received in 18.767083ms" or
// "received in 1.335630013s".
var transferDurationPattern = regexp.MustCompile(`received in ([+-]?(?:[0-9]*\.)?[0-9]+)(ms|s)`)

// TransferDuration extracts the response transfer time in whole milliseconds.
type TransferDuration struct{}

func (TransferDuration) Kind() core.Kind { return core.KindTransferDuration }

// Extract uses the first match only; retried connections may leave earlier
// partial lines but the first well-formed one is authoritative.
func (TransferDuration) Extract(text string) ([]core.Sample, error) {
	m := transferDurationPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, &ExtractionError{Kind: core.KindTransferDuration, Pattern: transferDurationPattern.String()}
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value < 0 {
		return nil, &ExtractionError{
			Kind:    core.KindTransferDuration,
			Pattern: transferDurationPattern.String(),
			Detail:  "invalid duration " + strconv.Quote(m[0]),
		}
	}

	return []core.Sample{{Kind: core.KindTransferDuration, Value: toMillis(value, m[2])}}, nil
}

func toMillis(value float64, unit string) float64 {
	if unit == "s" {
		value *= 1000
	}
	// The epsilon keeps values like 0.29s from flooring to 289.
	return math.Floor(value + 1e-9)
}
