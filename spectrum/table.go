package spectrum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrTooFewColumns = errors.New("spectrum: input table needs a wavenumber column and at least one intensity column")
	ErrEmptyTable    = errors.New("spectrum: input table has no data rows")
)

// Column is one intensity series of an input table together with the
// identifiers encoded in its header name (grain_location).
type Column struct {
	Name     string
	Grain    string
	Location string
	Spectrum Spectrum
}

// Table is one input file: a shared wavenumber axis and one column per
// measured spectrum. The sample identifier comes from the file name.
type Table struct {
	Sample  string
	Columns []Column
}

type readConfig struct {
	delimiter rune
}

// ReadOption configures table reading.
type ReadOption func(*readConfig)

// WithDelimiter sets the field delimiter (default comma).
func WithDelimiter(d rune) ReadOption {
	return func(c *readConfig) {
		c.delimiter = d
	}
}

// ReadTable parses a delimited table whose first column is the wavenumber
// axis and whose remaining columns are intensity series. A non-numeric
// first row is treated as a header carrying grain_location column names;
// otherwise names col1, col2, ... are synthesized. Cells that do not parse
// as numbers become NaN. A strictly decreasing wavenumber axis is reversed;
// a non-monotonic one is an error.
func ReadTable(r io.Reader, sample string, opts ...ReadOption) (Table, error) {
	cfg := readConfig{delimiter: ','}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	cr := csv.NewReader(r)
	cr.Comma = cfg.delimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("spectrum: reading table %q: %w", sample, err)
	}

	if len(records) == 0 {
		return Table{}, ErrEmptyTable
	}

	if len(records[0]) < 2 {
		return Table{}, ErrTooFewColumns
	}

	names, rows := splitHeader(records)
	if len(rows) == 0 {
		return Table{}, ErrEmptyTable
	}

	cols := len(rows[0])
	if cols < 2 {
		return Table{}, ErrTooFewColumns
	}

	wavenumbers := make([]float64, len(rows))
	series := make([][]float64, cols-1)

	for j := range series {
		series[j] = make([]float64, len(rows))
	}

	for i, row := range rows {
		wavenumbers[i] = parseCell(cellAt(row, 0))
		for j := 0; j < cols-1; j++ {
			series[j][i] = parseCell(cellAt(row, j+1))
		}
	}

	if isDecreasing(wavenumbers) {
		reverse(wavenumbers)
		for j := range series {
			reverse(series[j])
		}
	}

	table := Table{Sample: sample, Columns: make([]Column, 0, cols-1)}

	for j := range series {
		name := fmt.Sprintf("col%d", j+1)
		if j < len(names) && names[j] != "" {
			name = names[j]
		}

		spec, err := New(wavenumbers, series[j])
		if err != nil {
			return Table{}, fmt.Errorf("spectrum: column %q of %q: %w", name, sample, err)
		}

		grain, location := splitColumnName(name)
		table.Columns = append(table.Columns, Column{
			Name:     name,
			Grain:    grain,
			Location: location,
			Spectrum: spec,
		})
	}

	return table, nil
}

// ReadTableFile reads a table from disk; the sample identifier is the file
// name without its extension.
func ReadTableFile(path string, opts ...ReadOption) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("spectrum: opening %q: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	sample := strings.TrimSuffix(base, filepath.Ext(base))

	return ReadTable(f, sample, opts...)
}

// splitHeader returns intensity column names (empty when the first row is
// numeric) and the data rows.
func splitHeader(records [][]string) (names []string, rows [][]string) {
	first := records[0]
	if _, err := strconv.ParseFloat(strings.TrimSpace(first[0]), 64); err == nil {
		return nil, records
	}

	names = make([]string, 0, len(first)-1)
	for _, cell := range first[1:] {
		names = append(names, strings.TrimSpace(cell))
	}

	return names, records[1:]
}

func splitColumnName(name string) (grain, location string) {
	if g, l, ok := strings.Cut(name, "_"); ok {
		return g, l
	}

	return name, ""
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}

	return row[idx]
}

func parseCell(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}

	return v
}

func isDecreasing(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] < xs[i-1]) {
			return false
		}
	}

	return len(xs) > 1
}

func reverse(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
