// Package expr provides CEL (Common Expression Language) functionality for
// evaluating expressions against profile documents and file paths.
//
// It creates CEL environments with custom functions for file path
// operations (pathBase, pathDir, pathExt).
//
// CEL expressions have access to variables:
//   - `doc` (map<string, dyn>): The profile document content
//   - `name` (string): The bare filename being processed
//   - `path` (string): The absolute file path being processed
package expr
