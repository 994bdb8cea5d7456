package synth

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/table"
)

// Synthesizer is the narrow fit/sample contract every strategy implements.
type Synthesizer interface {
	// Kind identifies the strategy.
	Kind() Kind
	// Fit trains the model on the tables under the given descriptor.
	Fit(set *table.Set, desc *schema.Descriptor) error
	// Sample draws the requested number of rows per table. Missing
	// entries default to DefaultRows. The returned set satisfies
	// referential integrity for every declared relationship.
	Sample(counts map[string]int) (*table.Set, error)
	// SaveFile persists the fitted state as a JSON artifact.
	SaveFile(path string) error
}

// Column roles within the fitted model.
const (
	rolePrimaryKey = "primary_key"
	roleForeignKey = "foreign_key"
	rolePlain      = "plain"
)

// ColumnModel is the empirical state fitted for a single column.
type ColumnModel struct {
	Name        string            `json:"name"`
	Type        schema.ColumnType `json:"type"`
	Role        string            `json:"role"`
	ParentTable string            `json:"parent_table,omitempty"`
	Pool        []any             `json:"pool,omitempty"`
	NullRate    float64           `json:"null_rate"`
}

// TableModel is the fitted state for one table.
type TableModel struct {
	Name       string        `json:"name"`
	PrimaryKey string        `json:"primary_key"`
	Rows       int           `json:"rows"`
	Columns    []ColumnModel `json:"columns"`
}

type model struct {
	seed   int64
	log    zerolog.Logger
	desc   *schema.Descriptor
	tables map[string]*TableModel
}

func newModel(seed int64, options ...Option) *model {
	m := &model{seed: seed, log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

func (m *model) fitted() bool { return m.tables != nil }

// fit builds the empirical column models. Tables are traversed in the
// canonical set order and columns in table order, so the fitted state is
// identical across runs for identical inputs.
func (m *model) fit(set *table.Set, desc *schema.Descriptor) error {
	for _, t := range set.All() {
		if t.Len() < minRowsPerTable {
			return &TrainingError{Table: t.Name, Rows: t.Len()}
		}
	}

	tables := make(map[string]*TableModel, 3)
	for _, t := range set.All() {
		ts, ok := desc.Table(t.Name)
		if !ok {
			return fmt.Errorf("synth: table %s missing from schema descriptor", t.Name)
		}

		tm := &TableModel{Name: t.Name, PrimaryKey: ts.PrimaryKey, Rows: t.Len()}
		for _, colName := range t.Columns {
			col, _ := ts.Column(colName)
			cm := ColumnModel{Name: colName, Type: col.Type, Role: rolePlain}

			if colName == ts.PrimaryKey {
				cm.Role = rolePrimaryKey
			} else if rel, ok := desc.ForeignKey(t.Name, colName); ok {
				cm.Role = roleForeignKey
				cm.ParentTable = rel.ParentTable
			}

			nulls := 0
			for _, value := range t.Values(colName) {
				if table.IsNull(value) {
					nulls++
					continue
				}
				if cm.Role != rolePrimaryKey {
					cm.Pool = append(cm.Pool, value)
				}
			}
			cm.NullRate = float64(nulls) / float64(t.Len())
			tm.Columns = append(tm.Columns, cm)
		}
		tables[t.Name] = tm

		m.log.Debug().
			Str("table", t.Name).
			Int("rows", tm.Rows).
			Int("columns", len(tm.Columns)).
			Msg("fitted table model")
	}

	m.desc = desc
	m.tables = tables
	return nil
}

// rngFor derives a fresh deterministic stream for one table. Each Sample
// call rebuilds the streams from the fit seed, so repeated sampling from
// the same model yields identical rows.
func (m *model) rngFor(tableName string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(tableName))
	return rand.New(rand.NewSource(m.seed ^ int64(h.Sum64())))
}

// newID generates a synthetic identifier for the column, e.g.
// "dmd-6ba7b810-…". The UUID bytes come from the seeded stream, keeping
// identifier generation deterministic per seed.
func newID(rng *rand.Rand, column string) (string, error) {
	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		return "", fmt.Errorf("synth: generate identifier for %s: %w", column, err)
	}
	prefix := strings.TrimSuffix(column, "_id")
	if prefix == "" {
		prefix = "id"
	}
	return prefix + "-" + id.String(), nil
}

// drawPlain resamples a plain column: null with the observed null rate,
// otherwise a uniform draw from the observed value pool.
func drawPlain(rng *rand.Rand, cm ColumnModel) any {
	if cm.NullRate > 0 && rng.Float64() < cm.NullRate {
		return nil
	}
	if len(cm.Pool) == 0 {
		return nil
	}
	return cm.Pool[rng.Intn(len(cm.Pool))]
}

func rowsFor(counts map[string]int, tableName string) int {
	if counts == nil {
		return DefaultRows
	}
	n, ok := counts[tableName]
	if !ok {
		return DefaultRows
	}
	return n
}

// SaveFile persists the fitted state for inspection and reuse.
func (m *model) SaveFile(path string) error {
	if !m.fitted() {
		return ErrNotFitted
	}
	artifact := struct {
		Seed   int64         `json:"seed"`
		Tables []*TableModel `json:"tables"`
	}{Seed: m.seed}
	for _, name := range []string{table.NameDmdSec, table.NameFile, table.NameStructMap} {
		artifact.Tables = append(artifact.Tables, m.tables[name])
	}

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		return fmt.Errorf("synth: marshal model artifact: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("synth: create artifact dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("synth: write model artifact: %w", err)
	}
	return nil
}
