package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slicertools/profshift/pkg/config"
	"github.com/slicertools/profshift/pkg/pipeline"
)

// defaultConfigFile is tried when --config is not given.
const defaultConfigFile = "./profshift.yaml"

var (
	// ErrMissingSource is returned when neither flags nor config name a
	// source path.
	ErrMissingSource = errors.New("source path is required")

	// ErrInvalidReplacement is returned for --replace values without a
	// FIND=WITH separator.
	ErrInvalidReplacement = errors.New("replacement must be in FIND=WITH form")
)

// runArgs are the flags shared by the update and convert commands.
type runArgs struct {
	*RootArgs

	ConfigPath string
	Source     string
	Output     string
	Prefix     string
	Postfix    string
	Filter     string
	Replace    []string
	Workers    int
	Overwrite  bool
	SortKeys   bool
}

func newRunArgs(rootArgs *RootArgs) *runArgs {
	return &runArgs{
		RootArgs: rootArgs,
	}
}

func (ra *runArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ra.ConfigPath, "config", "c", "",
		fmt.Sprintf("Path to the rule configuration file (default %q)", defaultConfigFile))
	cmd.Flags().StringVarP(&ra.Source, "source", "s", "", "Source profile file or directory")
	cmd.Flags().StringVarP(&ra.Output, "output", "o", "", "Output file or directory (default: in place)")
	cmd.Flags().StringVarP(&ra.Prefix, "prefix", "p", "", "Prefix for output filenames")
	cmd.Flags().StringVarP(&ra.Postfix, "postfix", "P", "", "Postfix for output filenames, before the extension")
	cmd.Flags().StringArrayVarP(&ra.Replace, "replace", "r", nil,
		"Replace FIND with WITH in output filenames (FIND=WITH, repeatable)")
	cmd.Flags().StringVarP(&ra.Filter, "filter", "f", "", "Glob selecting files under a directory source")
	cmd.Flags().BoolVarP(&ra.Overwrite, "overwrite", "w", false, "Overwrite existing files at output paths")
	cmd.Flags().BoolVarP(&ra.SortKeys, "sort", "S", false, "Sort JSON keys alphabetically in output")
	cmd.Flags().IntVar(&ra.Workers, "workers", 0, "Number of files processed concurrently (default: CPU count)")

	err := cmd.MarkFlagFilename("config", "yaml", "yml", "json")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}
}

// loadConfig reads the rule configuration. A missing default config file is
// fatal only when required; an explicitly given path always is.
func (ra *runArgs) loadConfig(required bool) (*config.Config, error) {
	path := ra.ConfigPath
	explicit := path != ""

	if !explicit {
		path = defaultConfigFile
	}

	_, err := os.Stat(path)
	if err != nil {
		if explicit || required {
			return nil, fmt.Errorf("config file %q: %w", path, err)
		}

		slog.Warn("no config file found, running without overwrite rules",
			slog.String("path", path),
		)

		return config.New(), nil
	}

	loader, err := config.NewLoaderFromFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Error already names the file.
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	slog.Info("loaded configuration", slog.String("path", path))

	return cfg, nil
}

// mergeDefaults fills flags the user left unset from the config defaults
// section. Flags always win over config values.
func (ra *runArgs) mergeDefaults(cmd *cobra.Command, d *config.Defaults) {
	if d == nil {
		return
	}

	flags := cmd.Flags()

	if !flags.Changed("source") && d.Source != "" {
		ra.Source = d.Source
	}
	if !flags.Changed("output") && d.Output != "" {
		ra.Output = d.Output
	}
	if !flags.Changed("prefix") && d.Prefix != "" {
		ra.Prefix = d.Prefix
	}
	if !flags.Changed("postfix") && d.Postfix != "" {
		ra.Postfix = d.Postfix
	}
	if !flags.Changed("filter") && d.Filter != "" {
		ra.Filter = d.Filter
	}
	if !flags.Changed("overwrite") {
		ra.Overwrite = d.Overwrite
	}
	if !flags.Changed("sort") {
		ra.SortKeys = d.SortKeys
	}
}

// replacements parses the --replace flags, falling back to the config
// defaults when none were given.
func (ra *runArgs) replacements(d *config.Defaults) ([]config.Replacement, error) {
	if len(ra.Replace) == 0 {
		if d != nil {
			return d.Replace, nil
		}

		return nil, nil
	}

	pairs := make([]config.Replacement, 0, len(ra.Replace))
	for _, raw := range ra.Replace {
		find, with, ok := strings.Cut(raw, "=")
		if !ok || find == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidReplacement, raw)
		}

		pairs = append(pairs, config.Replacement{Find: find, With: with})
	}

	return pairs, nil
}

// mapper builds the output path mapper from the merged arguments.
func (ra *runArgs) mapper(replacements []config.Replacement) (*pipeline.Mapper, error) {
	if ra.Source == "" {
		return nil, ErrMissingSource
	}

	return pipeline.NewMapper(ra.Source, ra.Output, //nolint:wrapcheck // Mapper errors name the paths.
		pipeline.WithPrefix(ra.Prefix),
		pipeline.WithPostfix(ra.Postfix),
		pipeline.WithReplacements(replacements),
	)
}
