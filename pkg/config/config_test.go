package config_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/archivetools/go-metsynth/pkg/config"
	"github.com/archivetools/go-metsynth/pkg/synth"
	"github.com/archivetools/go-metsynth/pkg/testsupport"
)

const fullConfig = `
input:
  dmdsec_path: data/dmdsec.json
  file_path: data/file.json
  structmap_path: data/structmap.json
output:
  xml_path: out/synthetic-mets.xml
  metadata_path: out/metadata.yaml
model:
  kind: independent
  seed: 7
sampling:
  num_rows:
    dmdSec: 10
    file: 25
    structMap: 25
validation:
  enabled: true
  schema_paths:
    - schemas/mets.xsd
logging:
  level: debug
  format: json
`

func TestLoad_FullConfig(t *testing.T) {
	path := testsupport.WriteFile(t, t.TempDir(), "config.yaml", fullConfig)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Model.Kind != synth.KindIndependent || cfg.Model.Seed != 7 {
		t.Fatalf("model config = %+v", cfg.Model)
	}
	if cfg.Sampling.NumRows["file"] != 25 {
		t.Fatalf("num_rows = %v", cfg.Sampling.NumRows)
	}
	if !cfg.Validation.Enabled || len(cfg.Validation.SchemaPaths) != 1 {
		t.Fatalf("validation config = %+v", cfg.Validation)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := testsupport.WriteFile(t, t.TempDir(), "config.yaml", `
input:
  dmdsec_path: data/dmdsec.json
  file_path: data/file.json
  structmap_path: data/structmap.json
output:
  xml_path: out/synthetic-mets.xml
validation:
  enabled: false
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Model.Kind != synth.KindHierarchical {
		t.Fatalf("default kind = %q", cfg.Model.Kind)
	}
	if cfg.Model.Seed != 42 {
		t.Fatalf("default seed = %d", cfg.Model.Seed)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Fatalf("default logging = %+v", cfg.Logging)
	}
}

func TestValidate_Failures(t *testing.T) {
	base := func() config.Config {
		cfg := config.Default()
		cfg.Input = config.Input{
			DmdSecPath:    "a.json",
			FilePath:      "b.json",
			StructMapPath: "c.json",
		}
		cfg.Output.XMLPath = "out.xml"
		cfg.Validation.Enabled = false
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantMsg string
	}{
		{
			name:    "missing input path",
			mutate:  func(c *config.Config) { c.Input.FilePath = "" },
			wantMsg: "input requires",
		},
		{
			name:    "missing xml output",
			mutate:  func(c *config.Config) { c.Output.XMLPath = "" },
			wantMsg: "xml_path",
		},
		{
			name:    "unknown model kind",
			mutate:  func(c *config.Config) { c.Model.Kind = "copula" },
			wantMsg: "synthesizer kind",
		},
		{
			name:    "unknown sampling table",
			mutate:  func(c *config.Config) { c.Sampling.NumRows = map[string]int{"amdSec": 5} },
			wantMsg: "unknown table",
		},
		{
			name:    "negative row count",
			mutate:  func(c *config.Config) { c.Sampling.NumRows = map[string]int{"file": -1} },
			wantMsg: "negative",
		},
		{
			name:    "validation without schemas",
			mutate:  func(c *config.Config) { c.Validation.Enabled = true },
			wantMsg: "schema_paths",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantMsg: "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestConfig_MarshalLoadRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Input = config.Input{
		DmdSecPath:    "data/dmdsec.json",
		FilePath:      "data/file.json",
		StructMapPath: "data/structmap.json",
	}
	cfg.Output.XMLPath = "out/synthetic-mets.xml"
	cfg.Validation.Enabled = false

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Unset collections must not be written out as empty stanzas, which
	// would come back as empty non-nil maps and break the round trip.
	for _, stanza := range []string{"synthetic_data_paths", "num_rows", "schema_paths"} {
		if strings.Contains(string(data), stanza) {
			t.Fatalf("marshalled config carries an empty %s stanza:\n%s", stanza, data)
		}
	}

	path := testsupport.WriteFile(t, t.TempDir(), "config.yaml", string(data))

	back, err := config.Load(path)
	if err != nil {
		t.Fatalf("load scaffolded config: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLogger_LevelAndFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "warn"

	log, closer, err := cfg.Logger()
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if closer != nil {
		t.Fatal("closer should be nil without a log file")
	}
	if log.GetLevel().String() != "warn" {
		t.Fatalf("level = %s, want warn", log.GetLevel())
	}
}
