package pipeline

import "runtime"

type settings struct {
	filter    string
	overwrite bool
	sortKeys  bool
	forceCopy bool
	workers   int
}

func newSettings(filter string) settings {
	return settings{
		filter:  filter,
		workers: runtime.NumCPU(),
	}
}

// Option configures an [Updater] or [Converter].
type Option func(*settings)

// WithFilter sets the glob that selects files under a directory source.
func WithFilter(filter string) Option {
	return func(s *settings) {
		if filter != "" {
			s.filter = filter
		}
	}
}

// WithOverwrite permits clobbering existing files at mapped output paths.
func WithOverwrite(overwrite bool) Option {
	return func(s *settings) {
		s.overwrite = overwrite
	}
}

// WithSortKeys emits output fields in lexicographic instead of source
// order.
func WithSortKeys(sortKeys bool) Option {
	return func(s *settings) {
		s.sortKeys = sortKeys
	}
}

// WithForceCopy writes files to new locations even when rules changed
// nothing. Only meaningful for updates.
func WithForceCopy(forceCopy bool) Option {
	return func(s *settings) {
		s.forceCopy = forceCopy
	}
}

// WithWorkers bounds per-file concurrency. Values below one are ignored.
func WithWorkers(workers int) Option {
	return func(s *settings) {
		if workers > 0 {
			s.workers = workers
		}
	}
}
