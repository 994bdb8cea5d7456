package schema

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/table"
)

// SchemaError reports an invalid key relationship: a declared foreign key
// whose value domain is not contained in the referenced primary key domain.
type SchemaError struct {
	ChildTable  string
	ChildKey    string
	ParentTable string
	Value       string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s.%s value %q has no matching %s primary key",
		e.ChildTable, e.ChildKey, e.Value, e.ParentTable)
}

// Option customises the builder.
type Option func(*Builder)

// WithLogger injects the logger used for progress reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Builder) {
		b.log = log
	}
}

// Builder infers column types and declares the key relationships between
// the three tables.
type Builder struct {
	log zerolog.Logger
}

// NewBuilder constructs a Builder applying any provided options.
func NewBuilder(options ...Option) *Builder {
	b := &Builder{log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

var primaryKeys = map[string]string{
	table.NameDmdSec:    "dmd_id",
	table.NameFile:      "file_id",
	table.NameStructMap: "struct_id",
}

// Build derives the schema descriptor for the table set and verifies every
// declared foreign key against the referenced primary key domain. The
// structMap parent_id column stays undeclared: it references struct_id
// within the same table, and the synthesis stage cannot model a circular
// dependency, so the hierarchy is rebuilt from the raw column at reassembly.
func (b *Builder) Build(set *table.Set) (*Descriptor, error) {
	b.log.Info().Msg("building schema descriptor")

	desc := &Descriptor{}
	for _, t := range set.All() {
		ts := TableSchema{
			Name:       t.Name,
			PrimaryKey: primaryKeys[t.Name],
		}
		for _, col := range t.Columns {
			ts.Columns = append(ts.Columns, Column{Name: col, Type: inferType(t, col)})
		}
		desc.Tables = append(desc.Tables, ts)

		b.log.Debug().
			Str("table", t.Name).
			Str("primary_key", ts.PrimaryKey).
			Int("columns", len(ts.Columns)).
			Msg("declared table")
	}

	desc.Relationships = []Relationship{
		{ParentTable: table.NameDmdSec, ParentKey: "dmd_id", ChildTable: table.NameFile, ChildKey: "dmd_id"},
		{ParentTable: table.NameDmdSec, ParentKey: "dmd_id", ChildTable: table.NameStructMap, ChildKey: "dmd_id"},
	}
	// Divisions may point at files; declare the link only when the source
	// documents carry the column.
	if set.StructMap.HasColumn("file_id") {
		desc.Relationships = append(desc.Relationships, Relationship{
			ParentTable: table.NameFile, ParentKey: "file_id",
			ChildTable: table.NameStructMap, ChildKey: "file_id",
		})
	}

	if err := b.checkDomains(set, desc); err != nil {
		return nil, err
	}

	b.log.Info().
		Int("tables", len(desc.Tables)).
		Int("relationships", len(desc.Relationships)).
		Msg("schema descriptor built")

	return desc, nil
}

// checkDomains verifies that every non-null foreign key value appears among
// the referenced table's primary keys. This must hold before fitting.
func (b *Builder) checkDomains(set *table.Set, desc *Descriptor) error {
	for _, rel := range desc.Relationships {
		parent, ok := set.ByName(rel.ParentTable)
		if !ok {
			return &SchemaError{ChildTable: rel.ChildTable, ChildKey: rel.ChildKey, ParentTable: rel.ParentTable}
		}
		domain := make(map[string]struct{}, parent.Len())
		for _, key := range parent.Strings(rel.ParentKey) {
			domain[key] = struct{}{}
		}

		child, ok := set.ByName(rel.ChildTable)
		if !ok {
			return &SchemaError{ChildTable: rel.ChildTable, ChildKey: rel.ChildKey, ParentTable: rel.ParentTable}
		}
		for _, row := range child.Rows {
			value := row[rel.ChildKey]
			if table.IsNull(value) {
				continue
			}
			key := table.Format(value)
			if _, ok := domain[key]; !ok {
				return &SchemaError{
					ChildTable:  rel.ChildTable,
					ChildKey:    rel.ChildKey,
					ParentTable: rel.ParentTable,
					Value:       key,
				}
			}
		}
	}
	return nil
}

// inferType applies the column naming and content rules used by the source
// documents: *_id columns are identifiers, date-bearing names are
// datetimes, all-numeric columns are numerical, everything else is
// categorical.
func inferType(t *table.Table, column string) ColumnType {
	if strings.HasSuffix(column, "_id") {
		return TypeID
	}
	if strings.Contains(strings.ToLower(column), "date") {
		return TypeDatetime
	}
	if isNumericColumn(t, column) {
		return TypeNumeric
	}
	return TypeCategorical
}

func isNumericColumn(t *table.Table, column string) bool {
	sawNumber := false
	for _, value := range t.Values(column) {
		if table.IsNull(value) {
			continue
		}
		if _, ok := value.(float64); !ok {
			return false
		}
		sawNumber = true
	}
	return sawNumber
}
