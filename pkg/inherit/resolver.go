package inherit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/slicertools/profshift/pkg/profile"
)

// DefaultMaxDepth is the number of ancestor hops followed before resolution
// stops with a depth warning.
const DefaultMaxDepth = 5

// WarningCode identifies why resolution degraded.
type WarningCode string

const (
	// WarnMissingAncestor means the referenced parent file does not exist.
	WarnMissingAncestor WarningCode = "missing_ancestor"

	// WarnMalformedAncestor means the parent file exists but failed to parse.
	WarnMalformedAncestor WarningCode = "malformed_ancestor"

	// WarnCycle means a reference pointed back into the current chain.
	WarnCycle WarningCode = "cycle"

	// WarnDepthExceeded means the chain was cut off at the maximum depth.
	WarnDepthExceeded WarningCode = "depth_exceeded"
)

// Warning describes a recoverable degradation during resolution.
type Warning struct {
	// Code classifies the warning.
	Code WarningCode
	// Path is the file whose reference triggered the warning.
	Path string
	// Ref is the offending inheritance reference.
	Ref string
}

func (w Warning) String() string {
	switch w.Code {
	case WarnMissingAncestor:
		return fmt.Sprintf("ancestor %q of %s not found", w.Ref, w.Path)
	case WarnMalformedAncestor:
		return fmt.Sprintf("ancestor %q of %s is not valid JSON", w.Ref, w.Path)
	case WarnCycle:
		return fmt.Sprintf("inheritance cycle at %q referenced by %s", w.Ref, w.Path)
	case WarnDepthExceeded:
		return fmt.Sprintf("maximum inheritance depth reached at %s, reference %q not followed", w.Path, w.Ref)
	}

	return fmt.Sprintf("%s: %s (%s)", w.Code, w.Path, w.Ref)
}

// LogValue implements [slog.LogValuer] so warnings log as structured attrs.
func (w Warning) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("code", string(w.Code)),
		slog.String("path", w.Path),
		slog.String("ref", w.Ref),
	)
}

// Resolver flattens inheritance chains.
type Resolver struct {
	// MaxDepth bounds the number of ancestor hops. Zero means
	// [DefaultMaxDepth].
	MaxDepth int
}

// NewResolver creates a [Resolver] with the default depth bound.
func NewResolver() *Resolver {
	return &Resolver{MaxDepth: DefaultMaxDepth}
}

// chainEntry pairs a loaded document with the file it came from.
type chainEntry struct {
	doc  *profile.Document
	path string
}

// Resolve flattens doc, loaded from path, against its ancestors in the same
// directory. It returns the flattened document and any warnings gathered
// along the chain. The input document is never mutated.
//
// Non-inheritable documents (machine_model) and documents without an
// inheritance reference are returned as-is, making resolution idempotent:
// flattened output resolves to itself.
//
// When the leaf's own ancestor is missing or malformed, the document is
// returned unchanged with its reference intact; callers decide whether to
// clear it. In every merged result the reference is cleared to "".
func (r *Resolver) Resolve(doc *profile.Document, path string) (*profile.Document, []Warning) {
	if doc.Kind() == profile.KindMachineModel {
		return doc, nil
	}
	if doc.Inherits() == "" {
		return doc, nil
	}

	maxDepth := r.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	var warnings []Warning

	dir := filepath.Dir(path)
	ext := filepath.Ext(path)

	// Walk leaf to root with an explicit chain instead of recursion, so the
	// cycle and depth guards stay uniform.
	chain := []chainEntry{{doc: doc, path: path}}
	visited := map[string]bool{stem(path): true}

	for {
		cur := chain[len(chain)-1]

		ref := cur.doc.Inherits()
		if ref == "" {
			break
		}

		if len(chain) > maxDepth {
			warnings = append(warnings, Warning{Code: WarnDepthExceeded, Path: cur.path, Ref: ref})

			break
		}

		if visited[ref] {
			warnings = append(warnings, Warning{Code: WarnCycle, Path: cur.path, Ref: ref})

			break
		}
		visited[ref] = true

		ancestorPath := filepath.Join(dir, ref+ext)

		_, err := os.Stat(ancestorPath)
		if err != nil {
			warnings = append(warnings, Warning{Code: WarnMissingAncestor, Path: cur.path, Ref: ref})

			break
		}

		ancestor, err := profile.Load(ancestorPath)
		if err != nil {
			warnings = append(warnings, Warning{Code: WarnMalformedAncestor, Path: cur.path, Ref: ref})

			break
		}

		chain = append(chain, chainEntry{doc: ancestor, path: ancestorPath})
	}

	if len(chain) == 1 {
		// Nothing was merged; hand the leaf back untouched.
		return doc, warnings
	}

	// Merge root first, overlaying successively more specific documents.
	merged := chain[len(chain)-1].doc.Clone()
	for i := len(chain) - 2; i >= 0; i-- {
		merge(merged, chain[i].doc, chain[i].path)
	}

	merged.Set(profile.InheritsKey, "")

	return merged, warnings
}

// merge overlays every top-level key of overlay onto base. Nested objects
// are replaced wholesale, not deep-merged.
func merge(base, overlay *profile.Document, overlayPath string) {
	for _, key := range overlay.Keys() {
		value, _ := overlay.Get(key)

		if existing, ok := base.Get(key); ok {
			_, baseObj := existing.(*profile.Document)
			_, overObj := value.(*profile.Document)
			if baseObj && overObj {
				slog.Warn("nested object replaced by shallow merge",
					slog.String("key", key),
					slog.String("path", overlayPath),
				)
			}
		}

		base.Set(key, profileCloneValue(value))
	}
}

func profileCloneValue(v any) any {
	if doc, ok := v.(*profile.Document); ok {
		return doc.Clone()
	}
	if arr, ok := v.([]any); ok {
		out := make([]any, len(arr))
		for i, item := range arr {
			out[i] = profileCloneValue(item)
		}

		return out
	}

	return v
}

func stem(path string) string {
	base := filepath.Base(path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}
