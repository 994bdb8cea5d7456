// Package schema derives the relational descriptor consumed by the
// synthesis stage: per-column semantic types, primary keys and the foreign
// key relationships linking the file and structMap tables to dmdSec.
package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ColumnType is the semantic type assigned to a column.
type ColumnType string

const (
	// TypeID marks identifier columns (primary keys, foreign keys and
	// other reference columns such as structMap.parent_id).
	TypeID ColumnType = "id"
	// TypeDatetime marks date or timestamp columns.
	TypeDatetime ColumnType = "datetime"
	// TypeNumeric marks columns whose non-null values are all numbers.
	TypeNumeric ColumnType = "numerical"
	// TypeCategorical is the fallback for free-text and enumerated columns.
	TypeCategorical ColumnType = "categorical"
)

// Column pairs a column name with its semantic type.
type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
}

// TableSchema declares one table's columns and primary key.
type TableSchema struct {
	Name       string   `yaml:"name"`
	PrimaryKey string   `yaml:"primary_key"`
	Columns    []Column `yaml:"columns"`
}

// Column looks up a column declaration by name.
func (t TableSchema) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// Relationship declares a foreign key from a child table column to a parent
// table's primary key.
type Relationship struct {
	ParentTable string `yaml:"parent_table"`
	ParentKey   string `yaml:"parent_key"`
	ChildTable  string `yaml:"child_table"`
	ChildKey    string `yaml:"child_key"`
}

// Descriptor is the immutable schema handed to the synthesis stage. Build
// validates it before returning, so holders can rely on every relationship
// referencing a declared table and key.
type Descriptor struct {
	Tables        []TableSchema  `yaml:"tables"`
	Relationships []Relationship `yaml:"relationships"`
}

// Table looks up a table declaration by name.
func (d *Descriptor) Table(name string) (TableSchema, bool) {
	for _, t := range d.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableSchema{}, false
}

// RelationshipsFor returns the foreign keys declared on a child table, in
// declaration order.
func (d *Descriptor) RelationshipsFor(childTable string) []Relationship {
	var out []Relationship
	for _, rel := range d.Relationships {
		if rel.ChildTable == childTable {
			out = append(out, rel)
		}
	}
	return out
}

// ForeignKey reports whether the column is the child side of a declared
// relationship.
func (d *Descriptor) ForeignKey(tableName, column string) (Relationship, bool) {
	for _, rel := range d.Relationships {
		if rel.ChildTable == tableName && rel.ChildKey == column {
			return rel, true
		}
	}
	return Relationship{}, false
}

// WriteFile persists the descriptor as a YAML inspection artifact.
func (d *Descriptor) WriteFile(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("schema: marshal descriptor: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("schema: create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("schema: write descriptor: %w", err)
	}
	return nil
}

// ReadFile loads a descriptor artifact back from YAML.
func ReadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("schema: unmarshal descriptor: %w", err)
	}
	return &d, nil
}
