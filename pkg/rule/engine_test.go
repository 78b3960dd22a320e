package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicertools/profshift/pkg/profile"
	"github.com/slicertools/profshift/pkg/rule"
)

func boolPtr(b bool) *bool { return &b }

func TestEngine_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		source      string
		ruleset     *rule.Ruleset
		wantMatched bool
		wantChanged bool
		wantDoc     map[string]any
	}{
		{
			name:   "overwrite existing field",
			source: `{"type": "filament", "speed": "100"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200")},
				},
			},
			wantMatched: true,
			wantChanged: true,
			wantDoc:     map[string]any{"type": "filament", "speed": "200"},
		},
		{
			name:   "matched without add leaves absent field alone",
			source: `{"type": "filament"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200")},
				},
			},
			wantMatched: true,
			wantChanged: false,
			wantDoc:     map[string]any{"type": "filament"},
		},
		{
			name:   "add creates absent field",
			source: `{"type": "filament"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200"), Add: true},
				},
			},
			wantMatched: true,
			wantChanged: true,
			wantDoc:     map[string]any{"type": "filament", "speed": "200"},
		},
		{
			name:   "equal value is not a change",
			source: `{"speed": "200"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200")},
				},
			},
			wantMatched: true,
			wantChanged: false,
			wantDoc:     map[string]any{"speed": "200"},
		},
		{
			name:   "numerically equal value is not a change",
			source: `{"nozzle": 0.4}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "nozzle", Value: rule.NewValue(0.4)},
				},
			},
			wantMatched: true,
			wantChanged: false,
			wantDoc:     map[string]any{"nozzle": 0.4},
		},
		{
			name:   "explicit null overwrites existing value",
			source: `{"compatible_printers_condition": "legacy"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "compatible_printers_condition", Value: rule.NewValue(nil)},
				},
			},
			wantMatched: true,
			wantChanged: true,
			wantDoc:     map[string]any{"compatible_printers_condition": nil},
		},
		{
			name:   "explicit null equal to existing null is not a change",
			source: `{"compatible_printers_condition": null}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "compatible_printers_condition", Value: rule.NewValue(nil)},
				},
			},
			wantMatched: true,
			wantChanged: false,
			wantDoc:     map[string]any{"compatible_printers_condition": nil},
		},
		{
			name:   "disabled rule is skipped",
			source: `{"speed": "100"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200"), Enabled: boolPtr(false)},
				},
			},
			wantMatched: false,
			wantChanged: false,
			wantDoc:     map[string]any{"speed": "100"},
		},
		{
			name:   "failed conditions skip the rule",
			source: `{"type": "filament", "speed": "100"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{
						Name:  "speed",
						Value: rule.NewValue("200"),
						Conditions: []*rule.Condition{
							{Type: rule.TypeJSONValue, Key: "type", Value: "machine"},
						},
					},
				},
			},
			wantMatched: false,
			wantChanged: false,
			wantDoc:     map[string]any{"type": "filament", "speed": "100"},
		},
		{
			name:   "default conditions gate every rule",
			source: `{"type": "machine", "speed": "100"}`,
			ruleset: &rule.Ruleset{
				DefaultConditions: []*rule.Condition{
					{Type: rule.TypeJSONValue, Key: "type", Value: "filament"},
				},
				Rules: []*rule.Rule{
					{Name: "speed", Value: rule.NewValue("200")},
				},
			},
			wantMatched: false,
			wantChanged: false,
			wantDoc:     map[string]any{"type": "machine", "speed": "100"},
		},
		{
			name:   "misconfigured rule skipped, later rules still run",
			source: `{"speed": "100", "flow": "1"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{
						Name:  "speed",
						Value: rule.NewValue("200"),
						Conditions: []*rule.Condition{
							{Type: "bogus"},
						},
					},
					{Name: "flow", Value: rule.NewValue("2")},
				},
			},
			wantMatched: true,
			wantChanged: true,
			wantDoc:     map[string]any{"speed": "100", "flow": "2"},
		},
		{
			name:   "later rule sees earlier mutation",
			source: `{"stage": "one"}`,
			ruleset: &rule.Ruleset{
				Rules: []*rule.Rule{
					{Name: "stage", Value: rule.NewValue("two")},
					{
						Name:  "done",
						Value: rule.NewValue("yes"),
						Add:   true,
						Conditions: []*rule.Condition{
							{Type: rule.TypeJSONValue, Key: "stage", Value: "two"},
						},
					},
				},
			},
			wantMatched: true,
			wantChanged: true,
			wantDoc:     map[string]any{"stage": "two", "done": "yes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc, err := profile.Parse([]byte(tt.source))
			require.NoError(t, err)

			out := rule.NewEngine(tt.ruleset).Apply(rule.Context{
				Doc:  doc,
				Name: "pla_basic.json",
				Path: "/profiles/pla_basic.json",
			})

			assert.Equal(t, tt.wantMatched, out.Matched, "matched")
			assert.Equal(t, tt.wantChanged, out.Changed, "changed")

			for key, want := range tt.wantDoc {
				got, ok := doc.Get(key)
				require.True(t, ok, "key %q", key)
				assert.True(t, profile.ValueEqual(got, want), "key %q: got %v want %v", key, got, want)
			}
			assert.Equal(t, len(tt.wantDoc), doc.Len())
		})
	}
}

func TestRuleset_EffectiveConditions(t *testing.T) {
	t.Parallel()

	defaultCond := &rule.Condition{Type: rule.TypeFilenameGlob, Pattern: "*.json"}
	ruleCond := &rule.Condition{Type: rule.TypeJSONValue, Key: "type", Value: "filament"}

	rs := &rule.Ruleset{
		DefaultConditions: []*rule.Condition{defaultCond},
	}
	r := &rule.Rule{Name: "speed", Value: rule.NewValue("200"), Conditions: []*rule.Condition{ruleCond}}

	combined := rs.EffectiveConditions(r)
	require.Len(t, combined, 2)
	assert.Same(t, defaultCond, combined[0])
	assert.Same(t, ruleCond, combined[1])

	// The rule's own slice must not grow.
	assert.Len(t, r.Conditions, 1)
	assert.Len(t, rs.DefaultConditions, 1)
}

func TestRuleset_Normalize(t *testing.T) {
	t.Parallel()

	rs := &rule.Ruleset{
		Rules: []*rule.Rule{
			{Name: "speed", Value: rule.NewValue("200")},
			{Name: "", Value: rule.NewValue("200")},
			{Name: "flow"},
			{Name: "condition", Value: rule.NewValue(nil)},
			{Name: "temp", Value: rule.NewValue("210"), Enabled: boolPtr(false)},
		},
	}

	rs.Normalize()

	require.Len(t, rs.Rules, 3)
	assert.Equal(t, "speed", rs.Rules[0].Name)
	// An explicit null is a value; only rules with no value are dropped.
	assert.Equal(t, "condition", rs.Rules[1].Name)
	// Disabled rules survive normalization; the engine skips them.
	assert.Equal(t, "temp", rs.Rules[2].Name)
}
