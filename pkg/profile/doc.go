// Package profile loads and serializes slicer profile documents.
//
// A profile document is a JSON object whose key order is significant:
// slicers write profiles in a stable order and diffs against upstream
// profiles should stay minimal. [Document] preserves insertion order on
// load, mutation, and serialization.
package profile
