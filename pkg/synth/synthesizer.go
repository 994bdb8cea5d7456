// Package synth fits generative models over the three tables and samples
// synthetic row sets from them. Two synthesizer kinds exist behind one
// interface: a hierarchical multi-table model that draws child foreign keys
// from the synthetic parent keys it just generated, and an independent
// per-table model whose output is repaired afterwards. Both guarantee the
// same postconditions: referential integrity across the sampled tables and
// byte-identical output for identical inputs and seed.
//
// The column models are empirical: each plain column resamples its observed
// value pool (and its observed null rate), while identifier columns are
// regenerated as fresh UUIDs drawn from the seeded stream.
package synth

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Kind selects a synthesizer strategy.
type Kind string

const (
	// KindHierarchical jointly models the tables parent-first so foreign
	// keys are valid by construction.
	KindHierarchical Kind = "hierarchical"
	// KindIndependent models each table on its own; foreign keys are
	// clamped into the synthetic parent domain after sampling.
	KindIndependent Kind = "independent"
)

// Kinds lists the supported synthesizer kinds.
func Kinds() []Kind {
	return []Kind{KindHierarchical, KindIndependent}
}

// DefaultRows is sampled for a table when the caller requests no explicit
// count.
const DefaultRows = 100

// Minimum observed rows per table for a stable empirical fit.
const minRowsPerTable = 1

// ErrNotFitted is returned when Sample is called before Fit.
var ErrNotFitted = errors.New("synth: model has not been fitted")

// TrainingError reports a table unfit for modelling, carrying the table
// name and row count so the failure is actionable for the operator.
type TrainingError struct {
	Table string
	Rows  int
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("synth: table %s has %d rows, need at least %d for fitting",
		e.Table, e.Rows, minRowsPerTable)
}

// SamplingError reports a sampled row set whose referential integrity could
// not be established or repaired.
type SamplingError struct {
	Table  string
	Reason string
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("synth: sampling table %s: %s", e.Table, e.Reason)
}

// Option customises a synthesizer.
type Option func(*model)

// WithLogger injects the logger used for progress reporting.
func WithLogger(log zerolog.Logger) Option {
	return func(m *model) {
		m.log = log
	}
}

// New is the factory over synthesizer kinds. The seed fixes every random
// draw made during sampling; fitting itself is deterministic.
func New(kind Kind, seed int64, options ...Option) (Synthesizer, error) {
	m := newModel(seed, options...)
	switch kind {
	case KindHierarchical:
		return &hierarchical{model: m}, nil
	case KindIndependent:
		return &independent{model: m}, nil
	default:
		return nil, fmt.Errorf("synth: unknown synthesizer kind %q", kind)
	}
}
