package pipeline

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/slicertools/profshift/pkg/profile"
)

// Writer persists processed files at their mapped output paths. It refuses
// to clobber existing files at new locations unless overwrite is set;
// in-place updates are always allowed.
type Writer struct {
	mapper    *Mapper
	overwrite bool
	sortKeys  bool
}

// NewWriter creates a [Writer] over mapper.
func NewWriter(mapper *Mapper, overwrite, sortKeys bool) *Writer {
	return &Writer{
		mapper:    mapper,
		overwrite: overwrite,
		sortKeys:  sortKeys,
	}
}

// WriteDocument serializes doc to the output path mapped from srcPath.
// It returns the output path and whether the file was written.
func (w *Writer) WriteDocument(doc *profile.Document, srcPath string) (string, bool, error) {
	outPath := w.mapper.OutputPath(srcPath)

	if w.skipExisting(outPath, srcPath) {
		return outPath, false, nil
	}

	err := os.MkdirAll(filepath.Dir(outPath), 0o755)
	if err != nil {
		return outPath, false, fmt.Errorf("create output directory: %w", err)
	}

	data, err := doc.MarshalIndent(w.sortKeys)
	if err != nil {
		return outPath, false, fmt.Errorf("serialize document: %w", err)
	}

	err = os.WriteFile(outPath, data, 0o644) //nolint:gosec // G306: Profile files are not sensitive.
	if err != nil {
		return outPath, false, fmt.Errorf("write output: %w", err)
	}

	return outPath, true, nil
}

// CopyFile copies srcPath verbatim to its mapped output path. Used for
// non-JSON assets living alongside profiles.
func (w *Writer) CopyFile(srcPath string) (string, bool, error) {
	outPath := w.mapper.OutputPath(srcPath)

	if outPath == srcPath {
		return outPath, false, nil
	}

	if w.skipExisting(outPath, srcPath) {
		return outPath, false, nil
	}

	err := os.MkdirAll(filepath.Dir(outPath), 0o755)
	if err != nil {
		return outPath, false, fmt.Errorf("create output directory: %w", err)
	}

	src, err := os.Open(srcPath) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return outPath, false, fmt.Errorf("open source: %w", err)
	}
	defer src.Close() //nolint:errcheck // Read-only file.

	dst, err := os.Create(outPath) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		return outPath, false, fmt.Errorf("create output: %w", err)
	}

	_, err = io.Copy(dst, src)
	if err != nil {
		_ = dst.Close()

		return outPath, false, fmt.Errorf("copy file: %w", err)
	}

	err = dst.Close()
	if err != nil {
		return outPath, false, fmt.Errorf("close output: %w", err)
	}

	return outPath, true, nil
}

func (w *Writer) skipExisting(outPath, srcPath string) bool {
	if outPath == srcPath || w.overwrite {
		return false
	}

	_, err := os.Stat(outPath)
	if err != nil {
		return false
	}

	slog.Warn("output file exists, skipping",
		slog.String("path", outPath),
	)

	return true
}
