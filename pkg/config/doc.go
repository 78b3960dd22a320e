// Package config loads and validates rule configuration files.
//
// Configuration is JSON or YAML with three sections: defaults for the
// run (paths, filters, output flags), default_conditions shared by every
// rule, and the json_value_overwrite rule list.
package config
