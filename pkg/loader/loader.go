// Package loader reads the three flattened JSON documents (dmdSec, file,
// structMap) into tables and checks that each carries the minimal column
// set its role requires.
package loader

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/table"
)

// LoadError reports a missing, malformed or structurally incomplete input
// document.
type LoadError struct {
	Table string
	Path  string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("loader: table %s (%s): %v", e.Table, e.Path, e.Err)
	}
	return fmt.Sprintf("loader: table %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Paths names the three input documents.
type Paths struct {
	DmdSec    string
	File      string
	StructMap string
}

// Minimal column sets per table role. A document missing any of these
// cannot anchor the key relationships declared later.
var requiredColumns = map[string][]string{
	table.NameDmdSec:    {"dmd_id"},
	table.NameFile:      {"file_id", "dmd_id"},
	table.NameStructMap: {"struct_id", "dmd_id", "parent_id"},
}

// Option customises the loader.
type Option func(*Loader)

// WithLogger injects the logger used for progress reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Loader) {
		l.log = log
	}
}

// Loader parses input documents into tables. It has no side effects beyond
// reading from disk.
type Loader struct {
	log zerolog.Logger
}

// New constructs a Loader applying any provided options.
func New(options ...Option) *Loader {
	l := &Loader{log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// Load reads all three documents and returns them as a table set.
func (l *Loader) Load(paths Paths) (*table.Set, error) {
	l.log.Info().Msg("loading input JSON documents")

	dmdSec, err := l.loadTable(table.NameDmdSec, paths.DmdSec)
	if err != nil {
		return nil, err
	}
	file, err := l.loadTable(table.NameFile, paths.File)
	if err != nil {
		return nil, err
	}
	structMap, err := l.loadTable(table.NameStructMap, paths.StructMap)
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Int(table.NameDmdSec, dmdSec.Len()).
		Int(table.NameFile, file.Len()).
		Int(table.NameStructMap, structMap.Len()).
		Msg("loaded all input documents")

	return &table.Set{DmdSec: dmdSec, File: file, StructMap: structMap}, nil
}

func (l *Loader) loadTable(name, path string) (*table.Table, error) {
	if path == "" {
		return nil, &LoadError{Table: name, Err: errors.New("input path is empty")}
	}

	l.log.Debug().Str("table", name).Str("path", path).Msg("reading document")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Table: name, Path: path, Err: err}
	}

	var rows []table.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, &LoadError{Table: name, Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	t := table.New(name, rows)
	if err := validate(t); err != nil {
		return nil, &LoadError{Table: name, Path: path, Err: err}
	}

	l.log.Debug().
		Str("table", name).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("validated document structure")

	return t, nil
}

func validate(t *table.Table) error {
	if t.Len() == 0 {
		return errors.New("document holds no rows")
	}

	var missing []string
	for _, col := range requiredColumns[t.Name] {
		if !t.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}
