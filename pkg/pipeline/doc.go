// Package pipeline runs rule updates and vendor conversions over profile
// trees: it discovers input files, maps them to output paths, and writes
// the processed documents.
package pipeline
