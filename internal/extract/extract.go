// Package extract turns free-text process logs into typed samples.
//
// The set of recognizers is closed: one per core.Kind. Client recognizers
// read a single trial's stderr and expect exactly one authoritative match;
// the server recognizer scans the server's whole lifetime log.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"quicperf/internal/core"
)

// ErrNoMatch is wrapped by every ExtractionError.
var ErrNoMatch = errors.New("expected pattern not found")

// ExtractionError reports that a required pattern was absent or malformed.
type ExtractionError struct {
	Kind    core.Kind
	Pattern string
	Detail  string
}

func (e *ExtractionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extract %s: %s (pattern %q)", e.Kind, e.Detail, e.Pattern)
	}
	return fmt.Sprintf("extract %s: pattern %q not found", e.Kind, e.Pattern)
}

func (e *ExtractionError) Unwrap() error { return ErrNoMatch }

// Recognizer produces samples of a single kind from a block of text.
type Recognizer interface {
	Kind() core.Kind
	Extract(text string) ([]core.Sample, error)
}

// ClientRecognizers are applied to every trial's client output.
var ClientRecognizers = []Recognizer{TransferDuration{}, DeliveryRate{}}

// Trial runs the client recognizers over one trial's output and stamps the
// samples with the trial index. Samples from recognizers that succeeded are
// returned even when another recognizer failed; the error joins every
// recognizer failure.
func Trial(text string, trial int) ([]core.Sample, error) {
	samples := make([]core.Sample, 0, len(ClientRecognizers))
	var errs []error

	for _, r := range ClientRecognizers {
		got, err := r.Extract(text)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, s := range got {
			s.Trial = trial
			samples = append(samples, s)
		}
	}

	return samples, errors.Join(errs...)
}

// Server runs the server recognizer over the server's captured lines.
func Server(lines []string) []core.Sample {
	return StartupExit{}.ExtractLines(lines)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}
