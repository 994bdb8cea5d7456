// Package pipeline sequences the synthesis stages end to end: load,
// build metadata, train, sample, reassemble, validate. It is a single-shot
// batch run; the first failing stage aborts the run and its error is
// propagated with the stage name attached. There are no retries.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/config"
	"github.com/archivetools/go-metsynth/pkg/loader"
	"github.com/archivetools/go-metsynth/pkg/mets"
	"github.com/archivetools/go-metsynth/pkg/schema"
	"github.com/archivetools/go-metsynth/pkg/synth"
	"github.com/archivetools/go-metsynth/pkg/table"
	"github.com/archivetools/go-metsynth/pkg/validate"
)

// Result reports a completed run.
type Result struct {
	// RowCounts is the number of synthetic rows generated per table.
	RowCounts map[string]int
	// XMLPath is where the final document was written.
	XMLPath string
	// Validation holds the full validation report when validation ran.
	Validation *validate.Report
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Option customises the pipeline.
type Option func(*Pipeline)

// WithLogger injects the logger shared by every stage.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = log
	}
}

// WithSynthesizer overrides the synthesizer built from configuration.
func WithSynthesizer(s synth.Synthesizer) Option {
	return func(p *Pipeline) {
		p.synthesizer = s
	}
}

// Pipeline orchestrates one run of the synthesis batch job.
type Pipeline struct {
	cfg         config.Config
	log         zerolog.Logger
	synthesizer synth.Synthesizer
	state       State
}

// New constructs a Pipeline for the given configuration.
func New(cfg config.Config, options ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, log: zerolog.Nop(), state: StateIdle}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(p)
	}
	return p
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State { return p.state }

// Run executes the full pipeline. It can only run once; the state machine
// never re-enters an earlier state.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("pipeline: context is required")
	}
	if p.state != StateIdle {
		return nil, fmt.Errorf("pipeline: already ran (state %s)", p.state)
	}

	start := time.Now()
	p.log.Info().Msg("starting METS synthesis pipeline")

	set, err := p.load(ctx)
	if err != nil {
		return nil, err
	}

	desc, err := p.buildMetadata(ctx, set)
	if err != nil {
		return nil, err
	}

	model, err := p.train(ctx, set, desc)
	if err != nil {
		return nil, err
	}

	synthetic, err := p.sample(ctx, model)
	if err != nil {
		return nil, err
	}

	if err := p.reassemble(ctx, synthetic); err != nil {
		return nil, err
	}

	report, err := p.validateDocument(ctx)
	if err != nil {
		return nil, err
	}

	p.state = StateDone
	result := &Result{
		RowCounts:  synthetic.Counts(),
		XMLPath:    p.cfg.Output.XMLPath,
		Validation: report,
		Elapsed:    time.Since(start),
	}

	p.log.Info().
		Dur("elapsed", result.Elapsed).
		Int(table.NameDmdSec, result.RowCounts[table.NameDmdSec]).
		Int(table.NameFile, result.RowCounts[table.NameFile]).
		Int(table.NameStructMap, result.RowCounts[table.NameStructMap]).
		Msg("pipeline completed")

	return result, nil
}

func (p *Pipeline) enter(ctx context.Context, state State) error {
	if err := ctx.Err(); err != nil {
		return p.fail(state, err)
	}
	p.state = state
	p.log.Debug().Str("stage", string(state)).Msg("entering stage")
	return nil
}

func (p *Pipeline) fail(stage State, err error) error {
	p.state = StateFailed
	p.log.Error().Err(err).Str("stage", string(stage)).Msg("pipeline stage failed")
	return &StageError{Stage: stage, Err: err}
}

func (p *Pipeline) load(ctx context.Context) (*table.Set, error) {
	if err := p.enter(ctx, StateLoading); err != nil {
		return nil, err
	}
	set, err := loader.New(loader.WithLogger(p.log)).Load(loader.Paths{
		DmdSec:    p.cfg.Input.DmdSecPath,
		File:      p.cfg.Input.FilePath,
		StructMap: p.cfg.Input.StructMapPath,
	})
	if err != nil {
		return nil, p.fail(StateLoading, err)
	}
	return set, nil
}

func (p *Pipeline) buildMetadata(ctx context.Context, set *table.Set) (*schema.Descriptor, error) {
	if err := p.enter(ctx, StateBuildingMetadata); err != nil {
		return nil, err
	}
	desc, err := schema.NewBuilder(schema.WithLogger(p.log)).Build(set)
	if err != nil {
		return nil, p.fail(StateBuildingMetadata, err)
	}
	if path := p.cfg.Output.MetadataPath; path != "" {
		if err := desc.WriteFile(path); err != nil {
			return nil, p.fail(StateBuildingMetadata, err)
		}
		p.log.Info().Str("path", path).Msg("wrote schema descriptor artifact")
	}
	return desc, nil
}

func (p *Pipeline) train(ctx context.Context, set *table.Set, desc *schema.Descriptor) (synth.Synthesizer, error) {
	if err := p.enter(ctx, StateTraining); err != nil {
		return nil, err
	}

	model := p.synthesizer
	if model == nil {
		var err error
		model, err = synth.New(p.cfg.Model.Kind, p.cfg.Model.Seed, synth.WithLogger(p.log))
		if err != nil {
			return nil, p.fail(StateTraining, err)
		}
	}

	if err := model.Fit(set, desc); err != nil {
		return nil, p.fail(StateTraining, err)
	}
	if path := p.cfg.Output.ModelPath; path != "" {
		if err := model.SaveFile(path); err != nil {
			return nil, p.fail(StateTraining, err)
		}
		p.log.Info().Str("path", path).Msg("wrote model artifact")
	}
	return model, nil
}

func (p *Pipeline) sample(ctx context.Context, model synth.Synthesizer) (*table.Set, error) {
	if err := p.enter(ctx, StateSampling); err != nil {
		return nil, err
	}
	synthetic, err := model.Sample(p.cfg.Sampling.NumRows)
	if err != nil {
		return nil, p.fail(StateSampling, err)
	}
	if err := p.writeSyntheticTables(synthetic); err != nil {
		return nil, p.fail(StateSampling, err)
	}
	return synthetic, nil
}

func (p *Pipeline) writeSyntheticTables(synthetic *table.Set) error {
	for _, t := range synthetic.All() {
		path, ok := p.cfg.Output.SyntheticDataPaths[t.Name]
		if !ok || path == "" {
			continue
		}
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal synthetic table %s: %w", t.Name, err)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create artifact dir for %s: %w", t.Name, err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write synthetic table %s: %w", t.Name, err)
		}
		p.log.Info().Str("table", t.Name).Str("path", path).Msg("wrote synthetic table artifact")
	}
	return nil
}

func (p *Pipeline) reassemble(ctx context.Context, synthetic *table.Set) error {
	if err := p.enter(ctx, StateReassembling); err != nil {
		return err
	}
	reassembler := mets.NewReassembler(mets.WithLogger(p.log))
	doc, err := reassembler.Reassemble(synthetic)
	if err != nil {
		return p.fail(StateReassembling, err)
	}
	if err := reassembler.WriteFile(doc, p.cfg.Output.XMLPath); err != nil {
		return p.fail(StateReassembling, err)
	}
	return nil
}

func (p *Pipeline) validateDocument(ctx context.Context) (*validate.Report, error) {
	if !p.cfg.Validation.Enabled {
		p.log.Debug().Str("stage", string(StateValidating)).Msg("validation disabled, skipping stage")
		return nil, nil
	}
	if err := p.enter(ctx, StateValidating); err != nil {
		return nil, err
	}

	validator, err := validate.New(p.cfg.Validation.SchemaPaths, validate.WithLogger(p.log))
	if err != nil {
		return nil, p.fail(StateValidating, err)
	}
	report, err := validator.ValidateFile(p.cfg.Output.XMLPath)
	if err != nil {
		return nil, p.fail(StateValidating, err)
	}

	if report.Valid {
		p.log.Info().Msg("document is valid against all schemas")
		return &report, nil
	}

	// Report every violation, never just the first.
	for _, violation := range report.Violations {
		p.log.Warn().Str("schema", violation.Schema).Msg(violation.String())
	}
	if p.cfg.Validation.FailOnError {
		return nil, p.fail(StateValidating, &validate.ValidationError{Report: report})
	}
	p.log.Warn().Int("violations", len(report.Violations)).Msg("document failed schema validation")
	return &report, nil
}
