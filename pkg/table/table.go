// Package table provides the in-memory relational model shared by every
// pipeline stage: named tables of flat rows decoded from JSON documents.
// Tables are built once by the loader and treated as read-only afterwards.
package table

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Row is a single flat record. Values hold what encoding/json produces for
// scalars: string, float64, bool or nil.
type Row map[string]any

// Table is a named relation with a deterministic column order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// New builds a table from decoded rows. The column list is the sorted union
// of keys across all rows so that identical inputs always yield identical
// column order.
func New(name string, rows []Row) *Table {
	seen := make(map[string]struct{})
	for _, row := range rows {
		for key := range row {
			seen[key] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for key := range seen {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	return &Table{Name: name, Columns: columns, Rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the column exists in the table.
func (t *Table) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// Values returns the column's cell for every row, in row order. Rows missing
// the key contribute nil.
func (t *Table) Values(column string) []any {
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[column]
	}
	return out
}

// Strings returns the column rendered as strings, skipping null cells.
func (t *Table) Strings(column string) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		value := row[column]
		if IsNull(value) {
			continue
		}
		out = append(out, Format(value))
	}
	return out
}

// MarshalJSON encodes the table as the same array-of-objects shape the
// loader consumes, so synthetic tables round-trip through the input format.
func (t *Table) MarshalJSON() ([]byte, error) {
	if t.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.Rows)
}

// IsNull reports whether a cell holds no usable value. Empty strings count
// as null to match the source documents, which leave optional fields blank.
func IsNull(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// Format renders a cell for use in XML attributes and element text. Floats
// that carry integral values print without an exponent or trailing zeros,
// matching the identifiers and sizes found in the source documents.
func Format(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Set groups the three pipeline tables. The field order is the canonical
// parent-first traversal order used by fitting, sampling and reassembly.
type Set struct {
	DmdSec    *Table
	File      *Table
	StructMap *Table
}

// Canonical table names as they appear in the source documents.
const (
	NameDmdSec    = "dmdSec"
	NameFile      = "file"
	NameStructMap = "structMap"
)

// All returns the tables in canonical parent-first order.
func (s *Set) All() []*Table {
	return []*Table{s.DmdSec, s.File, s.StructMap}
}

// ByName resolves one of the three canonical tables.
func (s *Set) ByName(name string) (*Table, bool) {
	switch name {
	case NameDmdSec:
		return s.DmdSec, s.DmdSec != nil
	case NameFile:
		return s.File, s.File != nil
	case NameStructMap:
		return s.StructMap, s.StructMap != nil
	default:
		return nil, false
	}
}

// Counts reports rows per table keyed by canonical name.
func (s *Set) Counts() map[string]int {
	return map[string]int{
		NameDmdSec:    s.DmdSec.Len(),
		NameFile:      s.File.Len(),
		NameStructMap: s.StructMap.Len(),
	}
}
