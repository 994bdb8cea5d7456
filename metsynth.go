// Package metsynth generates schema-valid synthetic METS XML documents
// from flattened JSON tables describing archival digital objects. It is a
// thin facade over the pkg packages: configuration loading, pipeline
// construction and a single Run entry point.
package metsynth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/archivetools/go-metsynth/pkg/config"
	"github.com/archivetools/go-metsynth/pkg/pipeline"
)

// Config aliases the pipeline configuration for convenience.
type Config = config.Config

// Result aliases the pipeline run result.
type Result = pipeline.Result

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	return config.Load(path)
}

// Run executes the full synthesis pipeline for the given configuration.
func Run(ctx context.Context, cfg Config, log zerolog.Logger) (*Result, error) {
	return pipeline.New(cfg, pipeline.WithLogger(log)).Run(ctx)
}
