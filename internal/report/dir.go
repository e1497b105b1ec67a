package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"quicperf/internal/core"
)

const (
	reportFile    = "report.json"
	summaryFile   = "summary.txt"
	serverLogFile = "server.log"
)

// DirSink writes each run into <Root>/<run-id>/.
type DirSink struct {
	Root    string
	Plotter Plotter
	Logger  *slog.Logger
}

// NewDirSink creates a sink rooted at root that plots with gonum.
func NewDirSink(root string, logger *slog.Logger) *DirSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirSink{Root: root, Plotter: NewGonumPlotter(), Logger: logger}
}

// Write persists every artifact of r and records the paths in r.
// A failing kind is marked with its *WriteError and the remaining kinds and
// run-level files are still written; all failures are returned joined.
func (s *DirSink) Write(ctx context.Context, r *RunReport) error {
	if r.Plan.ID == "" {
		return &WriteError{Path: s.Root, Err: fmt.Errorf("run report has no id")}
	}
	dir := filepath.Join(s.Root, r.Plan.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}
	r.Dir = dir

	var errs []error
	for _, kr := range r.Kinds {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := s.writeKind(dir, r, kr); err != nil {
			s.logger().Error("writing kind artifacts", "kind", kr.Kind, "error", err)
			kr.setErr(errors.Join(kr.Err, err))
			errs = append(errs, err)
		}
	}

	if err := writeFile(filepath.Join(dir, serverLogFile), []byte(joinLines(r.ServerLog))); err != nil {
		errs = append(errs, err)
	}

	var summary bytes.Buffer
	FormatText(&summary, r, false)
	if err := writeFile(filepath.Join(dir, summaryFile), summary.Bytes()); err != nil {
		errs = append(errs, err)
	}

	if err := writeJSON(filepath.Join(dir, reportFile), r); err != nil {
		errs = append(errs, err)
	}

	s.logger().Info("report written", "dir", dir, "kinds", len(r.Kinds), "errors", len(errs))
	return errors.Join(errs...)
}

func (s *DirSink) writeKind(dir string, r *RunReport, kr *KindReport) error {
	samplesPath := filepath.Join(dir, string(kr.Kind)+".samples.csv")
	if err := writeSamplesCSV(samplesPath, kr.Samples); err != nil {
		return err
	}
	kr.SamplesPath = samplesPath

	if kr.Stats == nil {
		s.logger().Warn("no statistics for kind", "kind", kr.Kind, "error", kr.Error)
		return nil
	}

	statsPath := filepath.Join(dir, string(kr.Kind)+".stats.json")
	if err := writeJSON(statsPath, kr.Stats); err != nil {
		return err
	}
	kr.StatsPath = statsPath

	if s.Plotter == nil {
		return nil
	}
	plotPath := filepath.Join(dir, string(kr.Kind)+".cdf.png")
	title := fmt.Sprintf("%s CDF (%s, %d samples)", kr.Kind, r.Plan.Network.Name, len(kr.Samples))
	if err := s.Plotter.PlotCDF(plotPath, kr.Kind, title, kr.CDF); err != nil {
		return &WriteError{Path: plotPath, Err: err}
	}
	kr.PlotPath = plotPath
	return nil
}

func (s *DirSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func writeSamplesCSV(path string, samples []core.Sample) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"trial", "value"})
	for _, s := range samples {
		_ = w.Write([]string{
			strconv.Itoa(s.Trial),
			strconv.FormatFloat(s.Value, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return writeFile(path, buf.Bytes())
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
