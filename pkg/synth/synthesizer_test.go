package synth_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/synth"
	"github.com/archivetools/go-metsynth/pkg/table"
)

func fixtureSet() *table.Set {
	return &table.Set{
		DmdSec: table.New(table.NameDmdSec, []table.Row{
			{"dmd_id": "DMD1", "dc_title": "Annual Report", "dc_date": "2021-06-01"},
			{"dmd_id": "DMD2", "dc_title": "Board Minutes", "dc_date": "2021-07-01"},
		}),
		File: table.New(table.NameFile, []table.Row{
			{"file_id": "FILE1", "dmd_id": "DMD1", "mimetype": "application/pdf", "size": float64(2048)},
			{"file_id": "FILE2", "dmd_id": "DMD2", "mimetype": "image/tiff", "size": float64(4096)},
		}),
		StructMap: table.New(table.NameStructMap, []table.Row{
			{"struct_id": "STRUCT1", "dmd_id": "DMD1", "parent_id": "", "file_id": "FILE1"},
			{"struct_id": "STRUCT2", "dmd_id": "DMD2", "parent_id": "STRUCT1", "file_id": "FILE2"},
		}),
	}
}

func fittedModel(t *testing.T, kind synth.Kind, seed int64) synth.Synthesizer {
	t.Helper()
	set := fixtureSet()
	desc, err := schema.NewBuilder().Build(set)
	if err != nil {
		t.Fatalf("build descriptor: %v", err)
	}
	model, err := synth.New(kind, seed)
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}
	if err := model.Fit(set, desc); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return model
}

func assertIntegrity(t *testing.T, set *table.Set) {
	t.Helper()
	dmdKeys := make(map[string]struct{})
	for _, key := range set.DmdSec.Strings("dmd_id") {
		dmdKeys[key] = struct{}{}
	}
	fileKeys := make(map[string]struct{})
	for _, key := range set.File.Strings("file_id") {
		fileKeys[key] = struct{}{}
	}

	for _, key := range set.File.Strings("dmd_id") {
		if _, ok := dmdKeys[key]; !ok {
			t.Fatalf("file.dmd_id %q has no synthetic dmdSec parent", key)
		}
	}
	for _, key := range set.StructMap.Strings("dmd_id") {
		if _, ok := dmdKeys[key]; !ok {
			t.Fatalf("structMap.dmd_id %q has no synthetic dmdSec parent", key)
		}
	}
	for _, key := range set.StructMap.Strings("file_id") {
		if _, ok := fileKeys[key]; !ok {
			t.Fatalf("structMap.file_id %q has no synthetic file parent", key)
		}
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := synth.New("copula", 1); err == nil {
		t.Fatal("expected an error for an unknown kind")
	}
}

func TestHierarchical_SampleSatisfiesIntegrity(t *testing.T) {
	model := fittedModel(t, synth.KindHierarchical, 42)

	counts := map[string]int{
		table.NameDmdSec:    3,
		table.NameFile:      7,
		table.NameStructMap: 5,
	}
	set, err := model.Sample(counts)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	if got := set.Counts(); got[table.NameDmdSec] != 3 || got[table.NameFile] != 7 || got[table.NameStructMap] != 5 {
		t.Fatalf("unexpected row counts: %v", got)
	}
	assertIntegrity(t, set)

	for _, id := range set.DmdSec.Strings("dmd_id") {
		if !strings.HasPrefix(id, "dmd-") {
			t.Fatalf("synthetic dmd_id %q lacks the dmd- prefix", id)
		}
	}
}

func TestIndependent_RepairClampsOrphans(t *testing.T) {
	model := fittedModel(t, synth.KindIndependent, 42)

	set, err := model.Sample(map[string]int{
		table.NameDmdSec:    2,
		table.NameFile:      4,
		table.NameStructMap: 4,
	})
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	// Independent sampling draws original foreign keys (FILE1, DMD1, ...)
	// which cannot match the regenerated parent identifiers; the repair
	// pass must have clamped every one of them.
	assertIntegrity(t, set)
}

func TestSample_Deterministic(t *testing.T) {
	for _, kind := range synth.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			counts := map[string]int{
				table.NameDmdSec:    2,
				table.NameFile:      3,
				table.NameStructMap: 3,
			}

			first, err := fittedModel(t, kind, 7).Sample(counts)
			if err != nil {
				t.Fatalf("first sample: %v", err)
			}
			second, err := fittedModel(t, kind, 7).Sample(counts)
			if err != nil {
				t.Fatalf("second sample: %v", err)
			}
			if diff := cmp.Diff(first, second); diff != "" {
				t.Fatalf("fresh fit+sample not deterministic (-first +second):\n%s", diff)
			}

			model := fittedModel(t, kind, 7)
			once, err := model.Sample(counts)
			if err != nil {
				t.Fatalf("sample: %v", err)
			}
			again, err := model.Sample(counts)
			if err != nil {
				t.Fatalf("resample: %v", err)
			}
			if diff := cmp.Diff(once, again); diff != "" {
				t.Fatalf("repeated sampling not deterministic (-once +again):\n%s", diff)
			}
		})
	}
}

func TestSample_DifferentSeedsDiffer(t *testing.T) {
	counts := map[string]int{table.NameDmdSec: 2, table.NameFile: 2, table.NameStructMap: 2}

	a, err := fittedModel(t, synth.KindHierarchical, 1).Sample(counts)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	b, err := fittedModel(t, synth.KindHierarchical, 2).Sample(counts)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}

	if cmp.Diff(a.DmdSec.Strings("dmd_id"), b.DmdSec.Strings("dmd_id")) == "" {
		t.Fatal("different seeds produced identical identifiers")
	}
}

func TestFit_TrainingErrorOnEmptyTable(t *testing.T) {
	set := fixtureSet()
	set.StructMap = table.New(table.NameStructMap, nil)
	desc := &schema.Descriptor{}

	model, err := synth.New(synth.KindHierarchical, 1)
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}
	err = model.Fit(set, desc)

	var trainErr *synth.TrainingError
	if !errors.As(err, &trainErr) {
		t.Fatalf("err = %v, want TrainingError", err)
	}
	if trainErr.Table != table.NameStructMap || trainErr.Rows != 0 {
		t.Fatalf("unexpected TrainingError: %+v", trainErr)
	}
}

func TestSample_BeforeFit(t *testing.T) {
	model, err := synth.New(synth.KindHierarchical, 1)
	if err != nil {
		t.Fatalf("new synthesizer: %v", err)
	}
	if _, err := model.Sample(nil); !errors.Is(err, synth.ErrNotFitted) {
		t.Fatalf("err = %v, want ErrNotFitted", err)
	}
}

func TestSample_EmptyParentFails(t *testing.T) {
	model := fittedModel(t, synth.KindHierarchical, 3)

	_, err := model.Sample(map[string]int{
		table.NameDmdSec:    0,
		table.NameFile:      2,
		table.NameStructMap: 0,
	})

	var sampleErr *synth.SamplingError
	if !errors.As(err, &sampleErr) {
		t.Fatalf("err = %v, want SamplingError", err)
	}
	if sampleErr.Table != table.NameFile {
		t.Fatalf("SamplingError.Table = %q, want %q", sampleErr.Table, table.NameFile)
	}
}

func TestSaveFile_WritesModelArtifact(t *testing.T) {
	model := fittedModel(t, synth.KindHierarchical, 42)

	path := filepath.Join(t.TempDir(), "model.json")
	if err := model.SaveFile(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var artifact struct {
		Seed   int64              `json:"seed"`
		Tables []*synth.TableModel `json:"tables"`
	}
	if err := json.Unmarshal(data, &artifact); err != nil {
		t.Fatalf("unmarshal artifact: %v", err)
	}
	if artifact.Seed != 42 || len(artifact.Tables) != 3 {
		t.Fatalf("unexpected artifact: seed=%d tables=%d", artifact.Seed, len(artifact.Tables))
	}
}
