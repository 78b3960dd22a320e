package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slicertools/profshift/pkg/inherit"
	"github.com/slicertools/profshift/pkg/profile"
	"github.com/slicertools/profshift/pkg/rule"
)

// ConvertFilter selects every file, so non-JSON assets are carried over.
const ConvertFilter = "**/*"

// ConvertSummary counts per-file outcomes of a conversion run.
type ConvertSummary struct {
	// Processed files were converted or copied.
	Processed int

	// Skipped counts machine model descriptors, which have no user-preset
	// equivalent.
	Skipped int

	// Errors counts files that could not be read, parsed, or written.
	Errors int

	// Total is the number of files the filter selected.
	Total int
}

// Converter turns vendor profile trees into user presets: it flattens
// inheritance, applies the vendor transforms, runs the overwrite rules,
// and writes the results into the output tree. Non-JSON files are copied
// verbatim.
type Converter struct {
	engine   *rule.Engine
	resolver *inherit.Resolver
	mapper   *Mapper
	settings settings
}

// NewConverter creates a [Converter] over ruleset and mapper.
func NewConverter(ruleset *rule.Ruleset, mapper *Mapper, opts ...Option) *Converter {
	s := newSettings(ConvertFilter)
	for _, opt := range opts {
		opt(&s)
	}

	return &Converter{
		engine:   rule.NewEngine(ruleset),
		resolver: inherit.NewResolver(),
		mapper:   mapper,
		settings: s,
	}
}

// Run converts every file the filter selects, bounded by the worker limit.
// Per-file failures are counted, not fatal.
func (c *Converter) Run(ctx context.Context) (ConvertSummary, error) {
	files, err := Discover(c.mapper.Source(), c.settings.filter)
	if err != nil {
		return ConvertSummary{}, err
	}

	slog.Info("starting conversion",
		slog.String("source", c.mapper.Source()),
		slog.Int("files", len(files)),
	)

	var (
		mu      sync.Mutex
		summary ConvertSummary
	)

	summary.Total = len(files)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.settings.workers)

	for _, path := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err() //nolint:wrapcheck // Pass through cancellation.
			}

			processed, skipped := c.processFile(path)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case skipped:
				summary.Skipped++
			case processed:
				summary.Processed++
			default:
				summary.Errors++
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return summary, fmt.Errorf("conversion run: %w", err)
	}

	slog.Info("conversion complete",
		slog.Int("processed", summary.Processed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("errors", summary.Errors),
		slog.Int("total", summary.Total),
	)

	return summary, nil
}

// processFile reports (processed, skipped); (false, false) means error.
func (c *Converter) processFile(path string) (bool, bool) {
	name := filepath.Base(path)
	writer := NewWriter(c.mapper, c.settings.overwrite, c.settings.sortKeys)

	if !strings.EqualFold(filepath.Ext(path), ".json") {
		outPath, written, err := writer.CopyFile(path)
		if err != nil {
			slog.Error("failed to copy file",
				slog.String("path", path),
				slog.Any("error", err),
			)

			return false, false
		}

		if written {
			slog.Info("copied file",
				slog.String("file", name),
				slog.String("path", outPath),
			)
		}

		return true, false
	}

	doc, err := profile.Load(path)
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return false, false
	}

	if doc.Kind() == profile.KindMachineModel {
		slog.Debug("skipping machine model", slog.String("file", name))

		return false, true
	}

	resolved, warnings := c.resolver.Resolve(doc, path)
	for _, warning := range warnings {
		slog.Warn("inheritance resolution",
			slog.String("file", name),
			slog.Any("warning", warning),
		)
	}

	ApplyVendorTransforms(resolved, name)

	c.engine.Apply(rule.Context{
		Doc:  resolved,
		Name: name,
		Path: path,
	})

	// Flattened profiles never inherit, whatever resolution ran into.
	if resolved.Has(profile.InheritsKey) {
		resolved.Set(profile.InheritsKey, "")
	}

	outPath, written, err := writer.WriteDocument(resolved, path)
	if err != nil {
		slog.Error("failed to write profile",
			slog.String("path", outPath),
			slog.Any("error", err),
		)

		return false, false
	}

	if written {
		slog.Info("converted profile",
			slog.String("file", name),
			slog.String("path", outPath),
		)
	}

	return true, false
}
