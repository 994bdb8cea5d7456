// Package config loads and validates the pipeline's YAML configuration.
// The loaded Config is an immutable value threaded explicitly through every
// stage; nothing reads configuration from ambient state.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/archivetools/go-metsynth/pkg/synth"
	"github.com/archivetools/go-metsynth/pkg/table"
)

// Input names the three source documents.
type Input struct {
	DmdSecPath    string `yaml:"dmdsec_path"`
	FilePath      string `yaml:"file_path"`
	StructMapPath string `yaml:"structmap_path"`
}

// Output names the artifacts the pipeline writes. Only XMLPath is
// required; the rest are optional inspection artifacts.
type Output struct {
	XMLPath            string            `yaml:"xml_path"`
	MetadataPath       string            `yaml:"metadata_path,omitempty"`
	ModelPath          string            `yaml:"model_path,omitempty"`
	SyntheticDataPaths map[string]string `yaml:"synthetic_data_paths,omitempty"`
}

// Model selects the synthesizer kind and fixes the random seed.
type Model struct {
	Kind synth.Kind `yaml:"kind"`
	Seed int64      `yaml:"seed"`
}

// Sampling sets the requested synthetic row count per table.
type Sampling struct {
	NumRows map[string]int `yaml:"num_rows,omitempty"`
}

// Validation configures the XSD check.
type Validation struct {
	Enabled     bool     `yaml:"enabled"`
	FailOnError bool     `yaml:"fail_on_error"`
	SchemaPaths []string `yaml:"schema_paths,omitempty"`
}

// Logging configures level, format and destination.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the full pipeline configuration.
type Config struct {
	Input      Input      `yaml:"input"`
	Output     Output     `yaml:"output"`
	Model      Model      `yaml:"model"`
	Sampling   Sampling   `yaml:"sampling"`
	Validation Validation `yaml:"validation"`
	Logging    Logging    `yaml:"logging"`
}

// Default returns a configuration with the documented defaults applied.
func Default() Config {
	return Config{
		Model: Model{Kind: synth.KindHierarchical, Seed: 42},
		Validation: Validation{
			Enabled: true,
		},
		Logging: Logging{Level: "info", Format: "console"},
	}
}

// Load reads a YAML configuration file, applying defaults for omitted
// sections.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Input.DmdSecPath == "" || c.Input.FilePath == "" || c.Input.StructMapPath == "" {
		return fmt.Errorf("config: input requires dmdsec_path, file_path and structmap_path")
	}
	if c.Output.XMLPath == "" {
		return fmt.Errorf("config: output.xml_path is required")
	}

	validKind := false
	for _, kind := range synth.Kinds() {
		if c.Model.Kind == kind {
			validKind = true
			break
		}
	}
	if !validKind {
		return fmt.Errorf("config: model.kind %q is not a known synthesizer kind", c.Model.Kind)
	}

	for name, count := range c.Sampling.NumRows {
		if _, ok := canonicalTables[name]; !ok {
			return fmt.Errorf("config: sampling.num_rows names unknown table %q", name)
		}
		if count < 0 {
			return fmt.Errorf("config: sampling.num_rows for %s is negative", name)
		}
	}
	for name := range c.Output.SyntheticDataPaths {
		if _, ok := canonicalTables[name]; !ok {
			return fmt.Errorf("config: output.synthetic_data_paths names unknown table %q", name)
		}
	}

	if c.Validation.Enabled && len(c.Validation.SchemaPaths) == 0 {
		return fmt.Errorf("config: validation is enabled but no schema_paths are configured")
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not console or json", c.Logging.Format)
	}
	if _, err := zerolog.ParseLevel(levelOrDefault(c.Logging.Level)); err != nil {
		return fmt.Errorf("config: logging.level %q: %w", c.Logging.Level, err)
	}
	return nil
}

var canonicalTables = map[string]struct{}{
	table.NameDmdSec:    {},
	table.NameFile:      {},
	table.NameStructMap: {},
}

func levelOrDefault(level string) string {
	if level == "" {
		return "info"
	}
	return strings.ToLower(level)
}

// Logger builds the pipeline logger from the logging section. The returned
// closer is non-nil when logging to a file.
func (c Config) Logger() (zerolog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer

	if c.Logging.File != "" {
		f, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("config: open log file: %w", err)
		}
		out = f
		closer = f
	}

	if strings.ToLower(c.Logging.Format) != "json" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	level, err := zerolog.ParseLevel(levelOrDefault(c.Logging.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("config: parse log level: %w", err)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer, nil
}
