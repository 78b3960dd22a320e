// Package inherit flattens slicer profile inheritance chains.
//
// A profile may name a parent profile in its "inherits" field. The parent is
// a sibling file in the same directory, found by exact stem match with the
// same extension. Resolution walks the chain leaf to root and merges it into
// a single self-contained document, guarding against missing ancestors,
// malformed ancestors, reference cycles, and unbounded depth. All of these
// degrade to a best-effort merge and surface as typed warnings rather than
// errors.
package inherit
