// Package rule applies conditional field overwrites to profile documents.
//
// A ruleset is an ordered list of rules, each naming a target key, a
// replacement value, and a list of conditions over the file's name, path,
// and JSON content. Conditions combine with AND semantics, and the
// ruleset's default conditions are prepended to every rule so global
// constraints cannot be bypassed by a rule-local condition list.
package rule
