package synth

import (
	"fmt"
	"sort"

	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/table"
)

// repairForeignKeys rewrites out-of-domain foreign key values so every
// non-null child key references a synthetic parent primary key.
//
// Policy: an orphaned key is clamped to a valid parent key chosen as
// sorted-parent-keys[row index mod parent count]. Rows are never dropped,
// so requested counts are honoured, and nothing is re-sampled, so repair
// stays deterministic. A child holding non-null keys while its parent has
// zero synthetic rows is unrepairable and fails.
func repairForeignKeys(set *table.Set, desc *schema.Descriptor) error {
	for _, rel := range desc.Relationships {
		parent, ok := set.ByName(rel.ParentTable)
		if !ok {
			return &SamplingError{Table: rel.ChildTable, Reason: "parent table " + rel.ParentTable + " was not sampled"}
		}
		child, ok := set.ByName(rel.ChildTable)
		if !ok {
			continue
		}

		parentKeys := parent.Strings(rel.ParentKey)
		sort.Strings(parentKeys)
		domain := make(map[string]struct{}, len(parentKeys))
		for _, key := range parentKeys {
			domain[key] = struct{}{}
		}

		for i, row := range child.Rows {
			value := row[rel.ChildKey]
			if table.IsNull(value) {
				continue
			}
			if _, ok := domain[table.Format(value)]; ok {
				continue
			}
			if len(parentKeys) == 0 {
				return &SamplingError{
					Table:  rel.ChildTable,
					Reason: "no synthetic rows in parent table " + rel.ParentTable,
				}
			}
			row[rel.ChildKey] = parentKeys[i%len(parentKeys)]
		}
	}
	return nil
}

// verifyIntegrity asserts the hard sampling postcondition: every non-null
// foreign key in the set references an existing synthetic parent key.
func verifyIntegrity(set *table.Set, desc *schema.Descriptor) error {
	for _, rel := range desc.Relationships {
		parent, ok := set.ByName(rel.ParentTable)
		if !ok {
			return &SamplingError{Table: rel.ChildTable, Reason: "parent table " + rel.ParentTable + " was not sampled"}
		}
		domain := make(map[string]struct{}, parent.Len())
		for _, key := range parent.Strings(rel.ParentKey) {
			domain[key] = struct{}{}
		}

		child, ok := set.ByName(rel.ChildTable)
		if !ok {
			continue
		}
		for _, row := range child.Rows {
			value := row[rel.ChildKey]
			if table.IsNull(value) {
				continue
			}
			if _, ok := domain[table.Format(value)]; !ok {
				return &SamplingError{
					Table: rel.ChildTable,
					Reason: fmt.Sprintf("%s value %q has no matching %s key",
						rel.ChildKey, table.Format(value), rel.ParentTable),
				}
			}
		}
	}
	return nil
}
