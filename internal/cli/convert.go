package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slicertools/profshift/pkg/pipeline"
)

const convertExamples = `  # Convert a vendor profile tree into user presets:
  profshift convert --source ~/.config/AnycubicSlicerNext/system/Anycubic/ \
    --output ~/.config/OrcaSlicer/user/default/ --prefix "Original "

  # Convert with overwrite rules from a config file:
  profshift convert --config rules.yaml --source ./system/ --output ./user/`

func NewConvertCmd(rootArgs *RootArgs) *cobra.Command {
	ca := newRunArgs(rootArgs)

	cmd := &cobra.Command{
		Use:     "convert",
		Short:   "Flatten vendor profiles into standalone user presets",
		Example: convertExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConvert(cmd, ca)
		},
	}

	ca.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runConvert(cmd *cobra.Command, ca *runArgs) error {
	// Conversion works without rules, the config only adds overwrites.
	cfg, err := ca.loadConfig(false)
	if err != nil {
		return err
	}

	ca.mergeDefaults(cmd, cfg.Defaults)

	replacements, err := ca.replacements(cfg.Defaults)
	if err != nil {
		return err
	}

	mapper, err := ca.mapper(replacements)
	if err != nil {
		return err
	}

	converter := pipeline.NewConverter(cfg.Ruleset(), mapper,
		pipeline.WithFilter(ca.Filter),
		pipeline.WithOverwrite(ca.Overwrite),
		pipeline.WithSortKeys(ca.SortKeys),
		pipeline.WithWorkers(ca.Workers),
	)

	summary, err := converter.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("convert: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("conversion finished with %d of %d files failed", summary.Errors, summary.Total)
	}

	return nil
}
