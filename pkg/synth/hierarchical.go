package synth

import (
	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/table"
)

// hierarchical samples the tables parent-first and draws every child
// foreign key from the synthetic parent keys generated moments earlier, so
// referential integrity holds by construction.
type hierarchical struct {
	*model
}

func (h *hierarchical) Kind() Kind { return KindHierarchical }

func (h *hierarchical) Fit(set *table.Set, desc *schema.Descriptor) error {
	h.log.Info().Str("kind", string(KindHierarchical)).Msg("fitting synthesizer")
	return h.fit(set, desc)
}

func (h *hierarchical) Sample(counts map[string]int) (*table.Set, error) {
	if !h.fitted() {
		return nil, ErrNotFitted
	}

	generated := make(map[string][]string, 3)
	out := &table.Set{}
	for _, name := range []string{table.NameDmdSec, table.NameFile, table.NameStructMap} {
		t, err := h.sampleTable(name, rowsFor(counts, name), generated)
		if err != nil {
			return nil, err
		}
		switch name {
		case table.NameDmdSec:
			out.DmdSec = t
		case table.NameFile:
			out.File = t
		case table.NameStructMap:
			out.StructMap = t
		}
	}

	if err := verifyIntegrity(out, h.desc); err != nil {
		return nil, err
	}

	h.log.Info().
		Int(table.NameDmdSec, out.DmdSec.Len()).
		Int(table.NameFile, out.File.Len()).
		Int(table.NameStructMap, out.StructMap.Len()).
		Msg("sampled synthetic tables")

	return out, nil
}

func (h *hierarchical) sampleTable(name string, count int, generated map[string][]string) (*table.Table, error) {
	tm := h.tables[name]
	rng := h.rngFor(name)

	rows := make([]table.Row, 0, count)
	keys := make([]string, 0, count)
	for i := 0; i < count; i++ {
		row := make(table.Row, len(tm.Columns))
		for _, cm := range tm.Columns {
			switch cm.Role {
			case rolePrimaryKey:
				id, err := newID(rng, cm.Name)
				if err != nil {
					return nil, err
				}
				row[cm.Name] = id
				keys = append(keys, id)
			case roleForeignKey:
				parents := generated[cm.ParentTable]
				if cm.NullRate > 0 && rng.Float64() < cm.NullRate {
					row[cm.Name] = nil
					continue
				}
				if len(parents) == 0 {
					return nil, &SamplingError{
						Table:  name,
						Reason: "no synthetic rows in parent table " + cm.ParentTable,
					}
				}
				row[cm.Name] = parents[rng.Intn(len(parents))]
			default:
				row[cm.Name] = drawPlain(rng, cm)
			}
		}
		rows = append(rows, row)
	}

	generated[name] = keys
	return table.New(name, rows), nil
}
