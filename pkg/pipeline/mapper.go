package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/slicertools/profshift/pkg/config"
)

var (
	// ErrSourceNotFound is returned when the source path does not exist.
	ErrSourceNotFound = errors.New("source path does not exist")

	// ErrInvalidOutput is returned for source/output combinations that
	// cannot be mapped, like a directory source with a file output.
	ErrInvalidOutput = errors.New("invalid output path")
)

// Mapper computes output paths for processed files. It applies the filename
// transformations (prefix, find/replace pairs, postfix) and mirrors the
// source directory tree under the output directory.
type Mapper struct {
	source       string
	output       string
	prefix       string
	postfix      string
	replacements []config.Replacement
	sourceIsFile bool
}

// MapperOpt configures a [Mapper].
type MapperOpt func(*Mapper)

// WithPrefix prepends prefix to output filenames.
func WithPrefix(prefix string) MapperOpt {
	return func(m *Mapper) {
		m.prefix = prefix
	}
}

// WithPostfix inserts postfix before the output filename extension.
func WithPostfix(postfix string) MapperOpt {
	return func(m *Mapper) {
		m.postfix = postfix
	}
}

// WithReplacements applies find/replace pairs to output filenames, in
// order.
func WithReplacements(replacements []config.Replacement) MapperOpt {
	return func(m *Mapper) {
		m.replacements = replacements
	}
}

// NewMapper creates a [Mapper] from source to output. Empty output means
// in place. The source must exist, and the combination of source, output,
// and filename transformations must be resolvable:
//
//   - file to file does not allow filename transformations, the output
//     name is taken literally
//   - directory source requires a directory (or absent) output
func NewMapper(source, output string, opts ...MapperOpt) (*Mapper, error) {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, source)
	}

	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	m := &Mapper{
		source:       absSource,
		sourceIsFile: !srcInfo.IsDir(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if output != "" {
		m.output, err = filepath.Abs(output)
		if err != nil {
			return nil, fmt.Errorf("resolve output path: %w", err)
		}
	}

	err = m.validate()
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Mapper) validate() error {
	outInfo, err := os.Stat(m.output)
	outputIsDir := err == nil && outInfo.IsDir()

	if m.sourceIsFile {
		if m.output != "" && !outputIsDir && m.transforms() {
			return fmt.Errorf(
				"%w: filename prefix, postfix, or replacements require a directory output when the source is a file",
				ErrInvalidOutput)
		}

		return nil
	}

	if m.output != "" && err == nil && !outputIsDir {
		return fmt.Errorf("%w: output must be a directory when the source is a directory", ErrInvalidOutput)
	}

	return nil
}

// Source returns the absolute source path.
func (m *Mapper) Source() string {
	return m.source
}

// SourceIsFile reports whether the source is a single file.
func (m *Mapper) SourceIsFile() bool {
	return m.sourceIsFile
}

// OutputPath maps an input file to its output location.
func (m *Mapper) OutputPath(path string) string {
	name := filepath.Base(path)

	if m.output == "" {
		if m.transforms() {
			return filepath.Join(filepath.Dir(path), m.transformName(name))
		}

		return path
	}

	if m.sourceIsFile {
		outInfo, err := os.Stat(m.output)
		if err == nil && outInfo.IsDir() {
			return filepath.Join(m.output, m.transformName(name))
		}

		// File to file is a direct mapping, the output name wins.
		return m.output
	}

	rel, err := filepath.Rel(m.source, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = name
	}

	return filepath.Join(m.output, filepath.Dir(rel), m.transformName(name))
}

// InPlace reports whether path maps onto itself.
func (m *Mapper) InPlace(path string) bool {
	return m.OutputPath(path) == path
}

func (m *Mapper) transforms() bool {
	return m.prefix != "" || m.postfix != "" || len(m.replacements) > 0
}

// transformName applies the prefix, then the find/replace pairs, then the
// postfix, keeping the extension intact.
func (m *Mapper) transformName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	result := m.prefix + stem
	for _, r := range m.replacements {
		result = strings.ReplaceAll(result, r.Find, r.With)
	}

	return result + m.postfix + ext
}
