// Package validate checks the produced METS document against one or more
// XSD schemas. Schemas are compiled once at construction; validation is a
// pure check that never mutates the document, and every violation is
// reported rather than just the first.
package validate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jacoelho/xsd"
	xsderrors "github.com/jacoelho/xsd/errors"
	"github.com/rs/zerolog"
)

// Violation is one schema violation with its document context.
type Violation struct {
	Schema  string `json:"schema"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
}

func (v Violation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", v.Code, v.Message)
	if v.Path != "" {
		fmt.Fprintf(&b, " at %s", v.Path)
	}
	if v.Line > 0 {
		fmt.Fprintf(&b, " (line %d, column %d)", v.Line, v.Column)
	}
	return b.String()
}

// Report is the outcome of validating one document against every schema.
type Report struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
}

// ValidationError carries a failed report when validation failures are
// configured to be fatal.
type ValidationError struct {
	Report Report
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: document violates schema in %d places", len(e.Report.Violations))
}

// Option customises the validator.
type Option func(*Validator)

// WithLogger injects the logger used for progress reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(v *Validator) {
		v.log = log
	}
}

type compiledSchema struct {
	path   string
	schema *xsd.Schema
}

// Validator validates documents against a fixed set of compiled schemas.
type Validator struct {
	log     zerolog.Logger
	schemas []compiledSchema
}

// New compiles every schema path. A schema that fails to compile is a
// construction error, not a validation result.
func New(schemaPaths []string, options ...Option) (*Validator, error) {
	if len(schemaPaths) == 0 {
		return nil, errors.New("validate: no schema paths configured")
	}

	v := &Validator{log: zerolog.Nop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}

	for _, path := range schemaPaths {
		schema, err := xsd.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("validate: compile schema %s: %w", path, err)
		}
		v.schemas = append(v.schemas, compiledSchema{path: path, schema: schema})
		v.log.Debug().Str("schema", path).Msg("compiled XSD schema")
	}
	return v, nil
}

// ValidateFile validates the document at path against every schema and
// returns the full violation list. The error return is reserved for I/O
// problems; schema non-conformance lands in the report.
func (v *Validator) ValidateFile(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("validate: read document %s: %w", path, err)
	}
	return v.Validate(data), nil
}

// Validate checks the document bytes against every schema. Validating the
// same bytes twice yields the same report.
func (v *Validator) Validate(document []byte) Report {
	report := Report{Valid: true}
	for _, cs := range v.schemas {
		err := cs.schema.Validate(bytes.NewReader(document))
		if err == nil {
			v.log.Debug().Str("schema", cs.path).Msg("document valid against schema")
			continue
		}

		report.Valid = false
		var list xsderrors.ValidationList
		if errors.As(err, &list) {
			for _, violation := range list {
				report.Violations = append(report.Violations, Violation{
					Schema:  cs.path,
					Code:    violation.Code,
					Message: violation.Message,
					Path:    violation.Path,
					Line:    violation.Line,
					Column:  violation.Column,
				})
			}
		} else {
			report.Violations = append(report.Violations, Violation{
				Schema:  cs.path,
				Code:    "validation-error",
				Message: err.Error(),
			})
		}
		v.log.Debug().Str("schema", cs.path).Int("violations", len(report.Violations)).
			Msg("document invalid against schema")
	}
	return report
}
