package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/slicertools/profshift/pkg/profile"
	"github.com/slicertools/profshift/pkg/rule"
)

// UpdateSummary counts per-file outcomes of an update run.
type UpdateSummary struct {
	// Processed files were written (or would have been, had the output not
	// already existed).
	Processed int

	// SkippedNoRules files matched no enabled rule at all.
	SkippedNoRules int

	// SkippedNoChanges files matched rules that changed nothing.
	SkippedNoChanges int

	// Errors counts files that could not be read, parsed, or written.
	Errors int

	// Total is the number of files the filter selected.
	Total int
}

// Updater applies an overwrite ruleset to JSON files, in place or into a
// mapped output tree.
type Updater struct {
	engine   *rule.Engine
	mapper   *Mapper
	settings settings
}

// NewUpdater creates an [Updater] over ruleset and mapper.
func NewUpdater(ruleset *rule.Ruleset, mapper *Mapper, opts ...Option) *Updater {
	s := newSettings(DefaultFilter)
	for _, opt := range opts {
		opt(&s)
	}

	return &Updater{
		engine:   rule.NewEngine(ruleset),
		mapper:   mapper,
		settings: s,
	}
}

type updateResult int

const (
	updateProcessed updateResult = iota
	updateSkippedNoRules
	updateSkippedNoChanges
	updateError
)

// Run processes every file the filter selects, bounded by the worker
// limit. Per-file failures are counted, not fatal; Run itself only fails
// on discovery errors or context cancellation.
func (u *Updater) Run(ctx context.Context) (UpdateSummary, error) {
	files, err := Discover(u.mapper.Source(), u.settings.filter)
	if err != nil {
		return UpdateSummary{}, err
	}

	slog.Info("starting update",
		slog.String("source", u.mapper.Source()),
		slog.Int("files", len(files)),
	)

	var (
		mu      sync.Mutex
		summary UpdateSummary
	)

	summary.Total = len(files)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(u.settings.workers)

	for _, path := range files {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err() //nolint:wrapcheck // Pass through cancellation.
			}

			result := u.processFile(path)

			mu.Lock()
			defer mu.Unlock()

			switch result {
			case updateProcessed:
				summary.Processed++
			case updateSkippedNoRules:
				summary.SkippedNoRules++
			case updateSkippedNoChanges:
				summary.SkippedNoChanges++
			case updateError:
				summary.Errors++
			}

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return summary, fmt.Errorf("update run: %w", err)
	}

	logSummary(summary)

	return summary, nil
}

func (u *Updater) processFile(path string) updateResult {
	name := filepath.Base(path)

	doc, err := profile.Load(path)
	if err != nil {
		slog.Error("failed to load profile",
			slog.String("path", path),
			slog.Any("error", err),
		)

		return updateError
	}

	outcome := u.engine.Apply(rule.Context{
		Doc:  doc,
		Name: name,
		Path: path,
	})

	if !outcome.Matched {
		slog.Info("skipped, no rules matched", slog.String("file", name))

		return updateSkippedNoRules
	}

	if !outcome.Changed && !u.settings.forceCopy {
		slog.Info("skipped, no content changes", slog.String("file", name))

		return updateSkippedNoChanges
	}

	inPlace := u.mapper.InPlace(path)

	// An unchanged in-place file never needs a rewrite, even when forced.
	if !outcome.Changed && inPlace {
		return updateSkippedNoChanges
	}

	writer := NewWriter(u.mapper, u.settings.overwrite, u.settings.sortKeys)

	outPath, written, err := writer.WriteDocument(doc, path)
	if err != nil {
		slog.Error("failed to write profile",
			slog.String("path", outPath),
			slog.Any("error", err),
		)

		return updateError
	}

	if written {
		if inPlace {
			slog.Info("updated in place", slog.String("file", name))
		} else {
			slog.Info("wrote profile",
				slog.String("file", name),
				slog.String("path", outPath),
			)
		}
	}

	return updateProcessed
}

func logSummary(s UpdateSummary) {
	slog.Info("update complete",
		slog.Int("processed", s.Processed),
		slog.Int("skipped_no_rules", s.SkippedNoRules),
		slog.Int("skipped_no_changes", s.SkippedNoChanges),
		slog.Int("errors", s.Errors),
		slog.Int("total", s.Total),
	)
}
