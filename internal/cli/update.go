package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slicertools/profshift/pkg/pipeline"
)

const updateExamples = `  # Update profiles in place:
  profshift update --config rules.yaml --source ./profiles/

  # Write updated copies into a new tree:
  profshift update --config rules.yaml --source ./profiles/ --output ./updated/

  # Update a single file, renamed next to the original:
  profshift update --config rules.yaml --source ./profile.json --postfix " v2"

  # Copy everything the rules matched, changed or not:
  profshift update --config rules.yaml --source ./profiles/ --output ./out/ --force-copy`

type UpdateArgs struct {
	*runArgs

	ForceCopy bool
}

func NewUpdateArgs(rootArgs *RootArgs) *UpdateArgs {
	return &UpdateArgs{
		runArgs: newRunArgs(rootArgs),
	}
}

func (ua *UpdateArgs) AddFlags(cmd *cobra.Command) {
	ua.runArgs.AddFlags(cmd)

	cmd.Flags().BoolVarP(&ua.ForceCopy, "force-copy", "F", false,
		"Copy files to the output even when rules changed nothing")
}

func NewUpdateCmd(rootArgs *RootArgs) *cobra.Command {
	ua := NewUpdateArgs(rootArgs)

	cmd := &cobra.Command{
		Use:     "update",
		Short:   "Apply overwrite rules to profile JSON files",
		Example: updateExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, ua)
		},
	}

	ua.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, ua *UpdateArgs) error {
	cfg, err := ua.loadConfig(true)
	if err != nil {
		return err
	}

	ua.mergeDefaults(cmd, cfg.Defaults)

	replacements, err := ua.replacements(cfg.Defaults)
	if err != nil {
		return err
	}

	mapper, err := ua.mapper(replacements)
	if err != nil {
		return err
	}

	updater := pipeline.NewUpdater(cfg.Ruleset(), mapper,
		pipeline.WithFilter(ua.Filter),
		pipeline.WithOverwrite(ua.Overwrite),
		pipeline.WithSortKeys(ua.SortKeys),
		pipeline.WithForceCopy(ua.ForceCopy),
		pipeline.WithWorkers(ua.Workers),
	)

	summary, err := updater.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("update finished with %d of %d files failed", summary.Errors, summary.Total)
	}

	return nil
}
