// Command metsynth runs the METS XML synthesis pipeline.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	metsynth "github.com/archivetools/go-metsynth"
	"github.com/archivetools/go-metsynth/pkg/config"
	"github.com/archivetools/go-metsynth/pkg/synth"
	"github.com/archivetools/go-metsynth/pkg/table"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "metsynth",
		Short:         "Generate synthetic METS XML documents from flattened JSON tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(runCmd())
	cmd.AddCommand(initCmd())
	return cmd
}

func runCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full synthesis pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := metsynth.LoadConfig(configPath)
			if err != nil {
				return err
			}

			log, closer, err := cfg.Logger()
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}

			result, err := metsynth.Run(context.Background(), cfg, log)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%s: %d rows, %s: %d rows, %s: %d rows)\n",
				result.XMLPath,
				table.NameDmdSec, result.RowCounts[table.NameDmdSec],
				table.NameFile, result.RowCounts[table.NameFile],
				table.NameStructMap, result.RowCounts[table.NameStructMap])
			if result.Validation != nil && !result.Validation.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "document failed schema validation with %d violations\n",
					len(result.Validation.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	return cmd
}

func initCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively scaffold a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := struct {
				DmdSecPath    string
				FilePath      string
				StructMapPath string
				XMLPath       string
				Kind          string
				Seed          int64
			}{}

			questions := []*survey.Question{
				{
					Name:     "DmdSecPath",
					Prompt:   &survey.Input{Message: "Path to the dmdSec JSON document:", Default: "data/dmdsec.json"},
					Validate: survey.Required,
				},
				{
					Name:     "FilePath",
					Prompt:   &survey.Input{Message: "Path to the file JSON document:", Default: "data/file.json"},
					Validate: survey.Required,
				},
				{
					Name:     "StructMapPath",
					Prompt:   &survey.Input{Message: "Path to the structMap JSON document:", Default: "data/structmap.json"},
					Validate: survey.Required,
				},
				{
					Name:     "XMLPath",
					Prompt:   &survey.Input{Message: "Output path for the synthetic METS XML:", Default: "out/synthetic-mets.xml"},
					Validate: survey.Required,
				},
				{
					Name: "Kind",
					Prompt: &survey.Select{
						Message: "Synthesizer kind:",
						Options: []string{string(synth.KindHierarchical), string(synth.KindIndependent)},
						Default: string(synth.KindHierarchical),
					},
				},
				{
					Name:   "Seed",
					Prompt: &survey.Input{Message: "Random seed:", Default: "42"},
				},
			}
			if err := survey.Ask(questions, &answers); err != nil {
				return err
			}

			cfg := config.Default()
			cfg.Input = config.Input{
				DmdSecPath:    answers.DmdSecPath,
				FilePath:      answers.FilePath,
				StructMapPath: answers.StructMapPath,
			}
			cfg.Output.XMLPath = answers.XMLPath
			cfg.Model.Kind = synth.Kind(answers.Kind)
			cfg.Model.Seed = answers.Seed
			// Validation needs schema paths the operator has to fill in.
			cfg.Validation.Enabled = false

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal configuration: %w", err)
			}
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				return fmt.Errorf("write configuration: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "config.yaml", "where to write the configuration file")
	return cmd
}
