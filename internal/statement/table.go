// Package statement holds the schema classification, validation and
// aggregation core: given a CSV produced by the extraction stage, it decides
// what kind of financial document it is, which columns hold money, and how
// credits and debits add up. Everything in this package is pure and
// in-memory; network and file plumbing live in internal/pipeline.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is the parsed tabular data extracted from one statement. Columns are
// order-significant; every row carries exactly the header's column set, with
// missing cells stored as empty strings. A Table is immutable once built.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row maps a column name to its raw text value.
type Row map[string]string

// RowCount returns the number of data rows.
func (t *Table) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Column returns the raw values of the named column in row order.
func (t *Table) Column(name string) []string {
	vals := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		vals = append(vals, row[name])
	}
	return vals
}

// HasColumn reports whether the table header contains the given column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ReadTable parses a CSV document into a Table. Rows shorter than the header
// are padded with empty cells and longer rows are truncated, so the Table
// invariant (every row has the header's column set) always holds; the strict
// structural checks live in Validate, not here.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("ReadTable: parsing CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ReadTable: document is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: header, Rows: rows}, nil
}

// LoadTable reads a CSV file from disk into a Table.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadTable: opening %q: %w", path, err)
	}
	defer f.Close()

	t, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("LoadTable: %q: %w", path, err)
	}
	return t, nil
}
