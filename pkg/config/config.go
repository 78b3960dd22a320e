package config

import (
	"github.com/slicertools/profshift/pkg/rule"
	"github.com/slicertools/profshift/pkg/schema"
)

// SchemaURL is the canonical identifier the configuration schema is
// compiled under.
const SchemaURL = "https://raw.githubusercontent.com/slicertools/profshift/refs/heads/main/config.schema.json"

// SchemaJSON is the configuration schema, reflected from [Config].
var SchemaJSON = schema.MustGenerate(&Config{})

// DefaultValidator validates configuration files against [SchemaJSON].
var DefaultValidator = schema.MustNewValidator(SchemaURL, SchemaJSON)

// Config is the root of a rule configuration file.
type Config struct {
	// Defaults hold run settings that flags may override.
	Defaults *Defaults `json:"defaults,omitempty" jsonschema:"title=Run Defaults"`

	// DefaultConditions apply to every rule in addition to its own.
	DefaultConditions []*rule.Condition `json:"default_conditions,omitempty" jsonschema:"title=Default Conditions"`

	// Rules are the ordered overwrite rules.
	Rules []*rule.Rule `json:"json_value_overwrite,omitempty" jsonschema:"title=Overwrite Rules"`
}

// Defaults are run settings carried in the configuration file so a ruleset
// can ship with the paths and flags it was written for.
type Defaults struct {
	// Source is the profile file or directory to process.
	Source string `json:"source,omitempty" jsonschema:"title=Source Path"`

	// Output is the destination file or directory. Empty means in place.
	Output string `json:"output,omitempty" jsonschema:"title=Output Path"`

	// Prefix is prepended to output filenames.
	Prefix string `json:"prefix,omitempty" jsonschema:"title=Filename Prefix"`

	// Postfix is inserted before the output filename extension.
	Postfix string `json:"postfix,omitempty" jsonschema:"title=Filename Postfix"`

	// Replace lists find/replace pairs applied to output filenames.
	Replace []Replacement `json:"replace,omitempty" jsonschema:"title=Filename Replacements"`

	// Filter is the glob that selects files under a source directory.
	// Empty means all JSON files, recursively.
	Filter string `json:"filter,omitempty" jsonschema:"title=Source Filter"`

	// Overwrite permits clobbering files that already exist at mapped
	// output paths.
	Overwrite bool `json:"overwrite,omitempty" jsonschema:"title=Overwrite Existing"`

	// SortKeys emits output fields in lexicographic instead of source
	// order.
	SortKeys bool `json:"sort_keys,omitempty" jsonschema:"title=Sort Keys"`
}

// Replacement is one find/replace pair for output filename mapping.
type Replacement struct {
	// Find is the literal substring to replace.
	Find string `json:"find" jsonschema:"title=Find"`

	// With is the replacement text.
	With string `json:"with" jsonschema:"title=Replace With"`
}

// New creates an empty [Config] with defaults applied.
func New() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills in any unset sections.
func (c *Config) EnsureDefaults() {
	if c.Defaults == nil {
		c.Defaults = &Defaults{}
	}
}

// Ruleset assembles the rule engine input from the configuration. Rules
// missing a name or value are dropped with a warning.
func (c *Config) Ruleset() *rule.Ruleset {
	rs := &rule.Ruleset{
		DefaultConditions: c.DefaultConditions,
		Rules:             c.Rules,
	}
	rs.Normalize()

	return rs
}
