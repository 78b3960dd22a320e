// Package schema generates and enforces the JSON schema for rule
// configuration files.
package schema
