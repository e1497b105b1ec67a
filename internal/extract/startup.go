package extract

import (
	"regexp"
	"strconv"

	"quicperf/internal/core"
)

// startupExitPattern matches the bandwidth field of a StartupExit record,
// e.g. "startup_exit=Some(StartupExit { cwnd: 28079, bandwidth: Some(12345), ... })".
// "bandwidth: None" does not match.
var startupExitPattern = regexp.MustCompile(`bandwidth: Some\(([0-9]+)\)`)

// StartupExit extracts the bandwidth recorded when a connection exited slow
// start. Every line is scanned since the event recurs once per connection.
type StartupExit struct{}

func (StartupExit) Kind() core.Kind { return core.KindStartupExitBandwidth }

// Extract never fails; no matching line yields an empty result.
func (s StartupExit) Extract(text string) ([]core.Sample, error) {
	return s.ExtractLines(splitLines(text)), nil
}

// ExtractLines returns one sample per matching line, in line order.
func (StartupExit) ExtractLines(lines []string) []core.Sample {
	samples := make([]core.Sample, 0)
	for _, line := range lines {
		m := startupExitPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		bandwidth, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			continue
		}
		samples = append(samples, core.Sample{Kind: core.KindStartupExitBandwidth, Value: float64(bandwidth)})
	}
	return samples
}
