package datasets

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// This file provides the tabular loader for the balance-of-payments analysis.
//
// A Table is an immutable, fully in-memory view of one CSV file: a header row
// naming each series and one data row per time period. All cells must parse as
// float64. Unlike the lazy kaggle loaders this data is tiny (a few hundred
// quarters at most), so everything is read up front and shared read-only by
// the downstream fitting and plotting steps.

// ErrDataLoad is wrapped by every loader failure: missing file, empty file,
// ragged rows, or a cell that does not parse as a number.
var ErrDataLoad = errors.New("data load failed")

// Table holds one column of float64 values per named series, all of equal
// length. Column order follows the CSV header.
type Table struct {
	names []string
	cols  map[string][]float64
	rows  int
}

// Load reads a CSV file with a header row into a Table.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrDataLoad, path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header of %s: %v", ErrDataLoad, path, err)
	}

	names := make([]string, len(header))
	cols := make(map[string][]float64, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, fmt.Errorf("%w: %s: empty column name at position %d", ErrDataLoad, path, i+1)
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate column %q", ErrDataLoad, path, name)
		}
		names[i] = name
		cols[name] = nil
	}

	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrDataLoad, path, rows+2, err)
		}
		// skip blank lines
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(names) {
			return nil, fmt.Errorf("%w: %s row %d: expected %d columns, got %d",
				ErrDataLoad, path, rows+2, len(names), len(record))
		}
		for j, cell := range record {
			v, err := parseFloat64(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d column %q (%q): %v",
					ErrDataLoad, path, rows+2, names[j], cell, err)
			}
			cols[names[j]] = append(cols[names[j]], v)
		}
		rows++
	}

	if rows == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrDataLoad, path)
	}

	return &Table{names: names, cols: cols, rows: rows}, nil
}

// NumRows returns the number of observations (time periods).
func (t *Table) NumRows() int { return t.rows }

// Columns returns the column names in header order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// HasColumn reports whether the table contains the named series.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the full value slice for a named series.
func (t *Table) Column(name string) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found", ErrDataLoad, name)
	}
	return col, nil
}

// Subset returns the values of a named series at the given row indices.
func (t *Table) Subset(name string, rows []int) ([]float64, error) {
	col, ok := t.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q not found", ErrDataLoad, name)
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		if r < 0 || r >= t.rows {
			return nil, fmt.Errorf("%w: row index %d out of range [0,%d)", ErrDataLoad, r, t.rows)
		}
		out[i] = col[r]
	}
	return out, nil
}

// Describe returns a per-column summary (n, mean, std, min, max), one line per
// series, for the exploratory printout at the start of a run.
func (t *Table) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-32s %6s %14s %14s %14s %14s\n", "column", "n", "mean", "std", "min", "max")
	for _, name := range t.names {
		col := t.cols[name]
		mean, std := meanStd(col)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range col {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		fmt.Fprintf(&b, "%-32s %6d %14.4f %14.4f %14.4f %14.4f\n", name, len(col), mean, std, lo, hi)
	}
	return b.String()
}

func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, v := range xs {
		mean += v
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / (n - 1))
}
