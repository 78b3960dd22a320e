package rule

import (
	"fmt"
	"log/slog"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
)

// Value is a rule's replacement value. Decoding tracks presence, so a rule
// carrying an explicit null is applied while a rule with no value at all is
// dropped at load time.
type Value struct {
	data any
	set  bool
}

// NewValue wraps v as a present value.
func NewValue(v any) Value {
	return Value{data: v, set: true}
}

// IsSet reports whether a value was given, null included.
func (v Value) IsSet() bool {
	return v.set
}

// Any returns the wrapped value; nil for an explicit null.
func (v Value) Any() any {
	return v.data
}

// UnmarshalYAML implements [yaml.BytesUnmarshaler].
func (v *Value) UnmarshalYAML(data []byte) error {
	err := yaml.Unmarshal(data, &v.data)
	if err != nil {
		return fmt.Errorf("decode rule value: %w", err)
	}

	v.set = true

	return nil
}

// JSONSchema permits any JSON type for the value, null included.
func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Title: "Field Value"}
}

// Rule names a target field, the value to write, and the conditions under
// which it applies. Rules are evaluated in declaration order.
type Rule struct {
	// Name is the document field the rule writes. Rules without a name are
	// dropped at load time.
	Name string `json:"name,omitempty" jsonschema:"title=Field Name"`

	// Value replaces (or becomes) the field's value when the rule applies.
	Value Value `json:"value,omitempty"`

	// Enabled gates the rule. Unset means enabled.
	Enabled *bool `json:"enabled,omitempty" jsonschema:"title=Enabled,default=true"`

	// Add lets the rule create the field when it is absent. Without it the
	// rule only overwrites existing fields.
	Add bool `json:"add,omitempty" jsonschema:"title=Add If Missing"`

	// Conditions must all hold for the rule to apply, in addition to the
	// ruleset's default conditions.
	Conditions []*Condition `json:"conditions,omitempty" jsonschema:"title=Conditions"`
}

// IsEnabled reports whether the rule should be evaluated at all.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Ruleset is an ordered rule list plus default conditions shared by every
// rule.
type Ruleset struct {
	// DefaultConditions are prepended to each rule's own conditions.
	DefaultConditions []*Condition `json:"default_conditions,omitempty" jsonschema:"title=Default Conditions"`

	// Rules are applied in order. A later rule sees the document as mutated
	// by earlier rules.
	Rules []*Rule `json:"json_value_overwrite,omitempty" jsonschema:"title=Overwrite Rules"`
}

// EffectiveConditions returns the condition list actually evaluated for r:
// the ruleset defaults followed by the rule's own conditions. Neither input
// slice is modified.
func (rs *Ruleset) EffectiveConditions(r *Rule) []*Condition {
	if len(rs.DefaultConditions) == 0 {
		return r.Conditions
	}

	combined := make([]*Condition, 0, len(rs.DefaultConditions)+len(r.Conditions))
	combined = append(combined, rs.DefaultConditions...)
	combined = append(combined, r.Conditions...)

	return combined
}

// Normalize drops rules that cannot be applied because they are missing a
// field name or value, logging a warning for each. The remaining rules keep
// their relative order.
func (rs *Ruleset) Normalize() {
	kept := rs.Rules[:0]
	for _, r := range rs.Rules {
		if r.Name == "" || !r.Value.IsSet() {
			slog.Warn("dropping incomplete overwrite rule",
				slog.String("name", r.Name),
			)

			continue
		}

		kept = append(kept, r)
	}

	rs.Rules = kept
}
