package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// Summary is the headline view of a persisted run, read back from report.json.
type Summary struct {
	RunID    string
	Network  string
	Trials   int
	Failures int
	Kinds    []KindSummary
	raw      []byte
}

// KindSummary holds the headline statistics of one kind.
type KindSummary struct {
	Kind   string
	Unit   string
	Count  int
	Median float64
	Mean   float64
	P90    float64
	P99    float64
	Error  string
}

// LoadSummary reads <dir>/report.json. dir may also name the file itself.
func LoadSummary(dir string) (*Summary, error) {
	path := dir
	if filepath.Base(dir) != reportFile {
		path = filepath.Join(dir, reportFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	return ParseSummary(data)
}

// ParseSummary extracts the headline statistics from a report.json document.
func ParseSummary(data []byte) (*Summary, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON in report")
	}

	doc := gjson.ParseBytes(data)
	id := doc.Get("plan.id")
	if !id.Exists() {
		return nil, fmt.Errorf("report has no plan.id")
	}

	s := &Summary{
		RunID:    id.String(),
		Network:  doc.Get("plan.network.name").String(),
		Trials:   int(doc.Get("trials.#").Int()),
		Failures: int(doc.Get("failures").Int()),
		raw:      data,
	}

	doc.Get("kinds").ForEach(func(_, k gjson.Result) bool {
		s.Kinds = append(s.Kinds, KindSummary{
			Kind:   k.Get("kind").String(),
			Unit:   k.Get("unit").String(),
			Count:  int(k.Get("stats.count").Int()),
			Median: k.Get("stats.median").Float(),
			Mean:   k.Get("stats.mean").Float(),
			P90:    k.Get("stats.p90").Float(),
			P99:    k.Get("stats.p99").Float(),
			Error:  k.Get("error").String(),
		})
		return true
	})

	return s, nil
}

// Query extracts values from the report using JSONPath expressions
// ($.foo.bar, $.items[0].id, $.items[*].name).
// Returns all errors joined if multiple paths are missing.
func (s *Summary) Query(paths ...string) (map[string]any, error) {
	result := make(map[string]any, len(paths))
	var errs []error

	for _, p := range paths {
		value := gjson.GetBytes(s.raw, convertJSONPath(p))
		if !value.Exists() {
			errs = append(errs, fmt.Errorf("path %q not found", p))
			continue
		}
		result[p] = value.Value()
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// FormatSummary writes the headline statistics of s.
func FormatSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Run %s (%s): %d trials, %d failed\n", s.RunID, s.Network, s.Trials, s.Failures)
	for _, k := range s.Kinds {
		if k.Count == 0 {
			fmt.Fprintf(w, "  %-24s %s\n", k.Kind, k.Error)
			continue
		}
		fmt.Fprintf(w, "  %-24s n=%d median=%s mean=%s p90=%s p99=%s %s\n",
			k.Kind, k.Count, formatValue(k.Median), formatValue(k.Mean),
			formatValue(k.P90), formatValue(k.P99), k.Unit)
		if k.Error != "" {
			fmt.Fprintf(w, "  %-24s artifacts incomplete: %s\n", "", k.Error)
		}
	}
}

// convertJSONPath converts JSONPath syntax to gjson path format.
// $.foo.bar -> foo.bar
// $.items[0].id -> items.0.id
// $.data[*].name -> data.#.name
func convertJSONPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")

	var result strings.Builder
	i := 0
	for i < len(path) {
		if path[i] == '[' {
			j := strings.IndexByte(path[i:], ']')
			if j > 0 {
				content := path[i+1 : i+j]
				if content == "*" {
					result.WriteString(".#")
				} else {
					result.WriteByte('.')
					result.WriteString(content)
				}
				i += j + 1
				continue
			}
		}
		result.WriteByte(path[i])
		i++
	}

	return result.String()
}
