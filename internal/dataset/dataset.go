// Package dataset reads and writes the CSV artifacts that connect pipeline
// stages. Every reader resolves columns by header name and fails fast when a
// required column is absent, so column-order changes upstream never silently
// corrupt a downstream stage.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/garimpo-ds/garimpo/internal/common"
)

// writeTable writes a header and rows to path, creating parent directories
// as needed.
func writeTable(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	return f.Close()
}

// readTable loads an artifact and returns its header plus data rows.
// producedBy names the command that creates the artifact so the error for a
// missing file tells the user what to run.
func readTable(path, producedBy string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, common.MissingArtifactError(path, producedBy)
		}
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no header", common.ErrEmptyDataset, path)
	}
	if len(records) == 1 {
		return records[0], nil, fmt.Errorf("%w: %s has no data rows", common.ErrEmptyDataset, path)
	}
	return records[0], records[1:], nil
}

// columns maps required column names to their positions in the header,
// failing on the first missing one.
func columns(header []string, path string, required ...string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, common.MissingColumnError(name, path)
		}
	}
	return index, nil
}

// record is one data row with named-column access. Line numbers are
// 1-based file positions (the header is line 1) so errors match what the
// user sees in an editor.
type record struct {
	path   string
	line   int
	fields []string
	index  map[string]int
}

func (r record) get(col string) (string, error) {
	i, ok := r.index[col]
	if !ok {
		return "", common.MissingColumnError(col, r.path)
	}
	if i >= len(r.fields) {
		return "", fmt.Errorf("%w: %s line %d has %d fields, column %q is at %d",
			common.ErrMalformedRow, r.path, r.line, len(r.fields), col, i+1)
	}
	return r.fields[i], nil
}

// Int parses the named column as an integer.
func (r record) Int(col string) (int, error) {
	s, err := r.get(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d column %q: %q is not an integer",
			common.ErrMalformedRow, r.path, r.line, col, s)
	}
	return v, nil
}

// Float parses the named column as a float.
func (r record) Float(col string) (float64, error) {
	s, err := r.get(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s line %d column %q: %q is not a number",
			common.ErrMalformedRow, r.path, r.line, col, s)
	}
	return v, nil
}

// String returns the named column as-is.
func (r record) String(col string) (string, error) {
	return r.get(col)
}

// forEachRecord iterates the data rows of an artifact with named-column
// access, verifying the required columns up front.
func forEachRecord(path, producedBy string, required []string, fn func(record) error) error {
	header, rows, err := readTable(path, producedBy)
	if err != nil {
		return err
	}
	index, err := columns(header, path, required...)
	if err != nil {
		return err
	}
	for i, fields := range rows {
		rec := record{path: path, line: i + 2, fields: fields, index: index}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloat2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatFloat4(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatFloat6(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
