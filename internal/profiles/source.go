// Package profiles loads network profile matrices for sweeps.
package profiles

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Profile is one row of a profile matrix. Empty Apply and Clear fall back to
// the commands from the run configuration.
type Profile struct {
	Name     string
	DelayMS  uint64
	LossPct  uint64
	RateMbit uint64
	Apply    string
	Clear    string
}

var columns = map[string]bool{
	"name":      true,
	"delay_ms":  true,
	"loss_pct":  true,
	"rate_mbit": true,
	"apply":     true,
	"clear":     true,
}

// LoadFile loads a profile matrix from a CSV or JSON file. Relative paths are
// resolved against baseDir.
func LoadFile(path, baseDir string) ([]Profile, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	var rows []map[string]any
	var err error

	switch ext {
	case ".csv":
		rows, err = loadCSV(path)
	case ".json":
		rows, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported profile file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile file %s is empty", path)
	}

	return decodeRows(rows)
}

func decodeRows(rows []map[string]any) ([]Profile, error) {
	result := make([]Profile, 0, len(rows))
	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		p, err := decodeRow(i+1, row)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[p.Name]; ok {
			return nil, fmt.Errorf("row %d: duplicate profile name %q (first used in row %d)", i+1, p.Name, prev)
		}
		seen[p.Name] = i + 1
		result = append(result, p)
	}
	return result, nil
}

func decodeRow(n int, row map[string]any) (Profile, error) {
	var p Profile
	for key := range row {
		if !columns[key] {
			return p, fmt.Errorf("row %d: unknown column %q", n, key)
		}
	}

	var err error
	if p.DelayMS, err = uintField(row, "delay_ms"); err != nil {
		return p, fmt.Errorf("row %d: %w", n, err)
	}
	if p.LossPct, err = uintField(row, "loss_pct"); err != nil {
		return p, fmt.Errorf("row %d: %w", n, err)
	}
	if p.LossPct > 100 {
		return p, fmt.Errorf("row %d: loss_pct must be <= 100, got %d", n, p.LossPct)
	}
	if p.RateMbit, err = uintField(row, "rate_mbit"); err != nil {
		return p, fmt.Errorf("row %d: %w", n, err)
	}
	p.Apply = stringField(row, "apply")
	p.Clear = stringField(row, "clear")

	p.Name = stringField(row, "name")
	if p.Name == "" {
		p.Name = fmt.Sprintf("d%dms-l%dpct-r%dmbit", p.DelayMS, p.LossPct, p.RateMbit)
	}
	return p, nil
}

func stringField(row map[string]any, key string) string {
	v, ok := row[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return fmt.Sprint(v)
}

// uintField accepts CSV strings and JSON numbers. Missing or empty is zero.
func uintField(row map[string]any, key string) (uint64, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		if x == "" {
			return 0, nil
		}
		n, err := strconv.ParseUint(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid value %q", key, x)
		}
		return n, nil
	case float64:
		if x < 0 || x != math.Trunc(x) {
			return 0, fmt.Errorf("%s: must be a non-negative integer, got %v", key, x)
		}
		return uint64(x), nil
	default:
		return 0, fmt.Errorf("%s: unsupported value %v", key, v)
	}
}

// loadCSV loads a CSV file. First row is headers, subsequent rows are data.
func loadCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header row and at least one data row")
	}

	headers := records[0]
	for i, header := range headers {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}
	rows := make([]map[string]any, 0, len(records)-1)

	for _, record := range records[1:] {
		row := make(map[string]any, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// loadJSON loads a JSON file. Must be an array of objects.
func loadJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}

	return rows, nil
}
