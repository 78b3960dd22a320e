package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultFilter selects all JSON files, recursively.
const DefaultFilter = "**/*.json"

// Discover lists the files a run will process. A file source yields itself
// regardless of the filter; a directory source is matched against the glob,
// which supports `**` across separators. Results are absolute and sorted.
func Discover(source, filter string) ([]string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	if !info.IsDir() {
		return []string{absSource}, nil
	}

	if filter == "" {
		filter = DefaultFilter
	}

	matches, err := doublestar.Glob(os.DirFS(absSource), filter, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", filter, err)
	}

	paths := make([]string, len(matches))
	for i, match := range matches {
		paths[i] = filepath.Join(absSource, filepath.FromSlash(match))
	}

	slices.Sort(paths)

	return paths, nil
}
