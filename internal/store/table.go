// Package store reads and writes the pipeline's on-disk artifacts: device
// exports, calibration-adjacent tables and the cleaned per-participant
// CSVs, all under the data/<participant>/<device>/ layout.
package store

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"golang.org/x/text/encoding/unicode"
)

// Table is a parsed tabular file with column access by name. Missing
// values (empty cells and the EyeLink "." token) read as NaN.
type Table struct {
	Columns []string
	Rows    [][]string
	index   map[string]int
}

func newTable(records [][]string) *Table {
	t := &Table{
		Columns: records[0],
		Rows:    records[1:],
		index:   make(map[string]int, len(records[0])),
	}
	for i, col := range t.Columns {
		t.index[col] = i
	}
	return t
}

// ReadTable parses a delimited file with a header row.
func ReadTable(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: no header row", path)
	}
	return newTable(records), nil
}

// ReadTableUTF16 parses a UTF-16 encoded delimited file, the format the
// EyeLink export tool produces. A BOM selects the byte order; without one,
// little-endian is assumed.
func ReadTableUTF16(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	r := csv.NewReader(decoder.Reader(f))
	r.Comma = comma
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parse %s: no header row", path)
	}
	return newTable(records), nil
}

// Has reports whether the table carries the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require fails with a directory-scoped error if any expected column is
// absent.
func (t *Table) Require(cols ...string) error {
	for _, col := range cols {
		if !t.Has(col) {
			return fmt.Errorf("missing expected column %q", col)
		}
	}
	return nil
}

// String returns the raw cell value, or "" when the column is absent.
func (t *Table) String(row int, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][i]
}

// Float parses a cell as float64. Absent columns, empty cells, the "."
// missing-value token and unparseable values all read as NaN.
func (t *Table) Float(row int, col string) float64 {
	s := t.String(row, col)
	if s == "" || s == "." {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Int parses a cell as an integer, tolerating float-formatted values.
// Missing cells read as 0.
func (t *Table) Int(row int, col string) int {
	v := t.Float(row, col)
	if math.IsNaN(v) {
		return 0
	}
	return int(v)
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }
