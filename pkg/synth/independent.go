package synth

import (
	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/table"
)

// independent samples every table on its own, resampling foreign key
// columns from their observed pools. The resulting keys point at original
// parents, not synthetic ones, so a repair pass clamps them into the
// synthetic parent domain before the set is returned.
type independent struct {
	*model
}

func (ind *independent) Kind() Kind { return KindIndependent }

func (ind *independent) Fit(set *table.Set, desc *schema.Descriptor) error {
	ind.log.Info().Str("kind", string(KindIndependent)).Msg("fitting synthesizer")
	return ind.fit(set, desc)
}

func (ind *independent) Sample(counts map[string]int) (*table.Set, error) {
	if !ind.fitted() {
		return nil, ErrNotFitted
	}

	out := &table.Set{}
	for _, name := range []string{table.NameDmdSec, table.NameFile, table.NameStructMap} {
		t, err := ind.sampleTable(name, rowsFor(counts, name))
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

	if err := repairForeignKeys(out, ind.desc); err != nil {
		return nil, err
	}
	if err := verifyIntegrity(out, ind.desc); err != nil {
		return nil, err
	}

	ind.log.Info().
		Int(table.NameDmdSec, out.DmdSec.Len()).
		Int(table.NameFile, out.File.Len()).
		Int(table.NameStructMap, out.StructMap.Len()).
		Msg("sampled synthetic tables")

	return out, nil
}

func (ind *independent) sampleTable(name string, count int) (*table.Table, error) {
	tm := ind.tables[name]
	rng := ind.rngFor(name)

	// Foreign keys resample the observed column values here; the repair
	// pass maps them into the synthetic parent domain afterwards.
	foreignPools := make(map[string][]string)
	for _, cm := range tm.Columns {
		if cm.Role != roleForeignKey {
			continue
		}
		pool := make([]string, 0)
		for _, value := range cm.Pool {
			pool = append(pool, table.Format(value))
		}
		foreignPools[cm.Name] = pool
	}

	rows := make([]table.Row, 0, count)
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
			case roleForeignKey:
				if cm.NullRate > 0 && rng.Float64() < cm.NullRate {
					row[cm.Name] = nil
					continue
				}
				pool := foreignPools[cm.Name]
				if len(pool) == 0 {
					row[cm.Name] = nil
					continue
				}
				row[cm.Name] = pool[rng.Intn(len(pool))]
			default:
				row[cm.Name] = drawPlain(rng, cm)
			}
		}
		rows = append(rows, row)
	}

	return table.New(name, rows), nil
}
