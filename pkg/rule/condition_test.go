package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicertools/profshift/pkg/profile"
	"github.com/slicertools/profshift/pkg/rule"
)

func testContext(t *testing.T, source string) rule.Context {
	t.Helper()

	doc, err := profile.Parse([]byte(source))
	require.NoError(t, err)

	return rule.Context{
		Doc:  doc,
		Name: "pla_basic.json",
		Path: "/profiles/filament/pla_basic.json",
	}
}

func TestCondition_Matches(t *testing.T) {
	t.Parallel()

	ctx := testContext(t, `{"type": "filament", "version": "1.9.0", "nozzle": 0.4}`)

	tests := []struct {
		name      string
		condition *rule.Condition
		want      bool
		wantErr   bool
	}{
		{
			name:      "filename glob match",
			condition: &rule.Condition{Type: rule.TypeFilenameGlob, Pattern: "*.json"},
			want:      true,
		},
		{
			name:      "filename glob mismatch",
			condition: &rule.Condition{Type: rule.TypeFilenameGlob, Pattern: "abs_*.json"},
			want:      false,
		},
		{
			name:      "filename glob does not see directories",
			condition: &rule.Condition{Type: rule.TypeFilenameGlob, Pattern: "filament/*.json"},
			want:      false,
		},
		{
			name:      "exclude filename glob inverts",
			condition: &rule.Condition{Type: rule.TypeExcludeFilenameGlob, Pattern: "pla_*.json"},
			want:      false,
		},
		{
			name:      "filepath glob with doublestar",
			condition: &rule.Condition{Type: rule.TypeFilepathGlob, Pattern: "**/filament/*.json"},
			want:      true,
		},
		{
			name:      "exclude filepath glob",
			condition: &rule.Condition{Type: rule.TypeExcludeFilepathGlob, Pattern: "**/machine/*.json"},
			want:      true,
		},
		{
			name:      "json value equal",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "type", Value: "filament"},
			want:      true,
		},
		{
			name:      "json value differs",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "type", Value: "machine"},
			want:      false,
		},
		{
			name:      "json value absent key",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "missing", Value: "x"},
			want:      false,
		},
		{
			name:      "json value numeric normalization",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "nozzle", Value: 0.4},
			want:      true,
		},
		{
			name:      "json value negate on absent key",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "missing", Value: "x", Negate: true},
			want:      true,
		},
		{
			name:      "json value negate on equal value",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "type", Value: "filament", Negate: true},
			want:      false,
		},
		{
			name:      "expression",
			condition: &rule.Condition{Type: rule.TypeExpression, Expression: `doc["type"] == "filament" && pathExt(name) == ".json"`},
			want:      true,
		},
		{
			name:      "expression false",
			condition: &rule.Condition{Type: rule.TypeExpression, Expression: `"missing" in doc`},
			want:      false,
		},
		{
			name:      "unknown type",
			condition: &rule.Condition{Type: "regex"},
			wantErr:   true,
		},
		{
			name:      "bad glob pattern",
			condition: &rule.Condition{Type: rule.TypeFilenameGlob, Pattern: "[invalid"},
			wantErr:   true,
		},
		{
			name:      "json value without key",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Value: "x"},
			wantErr:   true,
		},
		{
			name:      "json value without value",
			condition: &rule.Condition{Type: rule.TypeJSONValue, Key: "type"},
			wantErr:   true,
		},
		{
			name:      "expression without expression",
			condition: &rule.Condition{Type: rule.TypeExpression},
			wantErr:   true,
		},
		{
			name:      "expression compile failure",
			condition: &rule.Condition{Type: rule.TypeExpression, Expression: `not valid (`},
			wantErr:   true,
		},
		{
			name:      "expression returns non-boolean",
			condition: &rule.Condition{Type: rule.TypeExpression, Expression: `doc["type"]`},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.condition.Matches(ctx)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	ctx := testContext(t, `{"type": "filament"}`)

	t.Run("empty list is vacuously true", func(t *testing.T) {
		t.Parallel()

		ok, err := rule.Evaluate(nil, ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("all conditions must hold", func(t *testing.T) {
		t.Parallel()

		ok, err := rule.Evaluate([]*rule.Condition{
			{Type: rule.TypeFilenameGlob, Pattern: "*.json"},
			{Type: rule.TypeJSONValue, Key: "type", Value: "filament"},
		}, ctx)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = rule.Evaluate([]*rule.Condition{
			{Type: rule.TypeFilenameGlob, Pattern: "*.json"},
			{Type: rule.TypeJSONValue, Key: "type", Value: "machine"},
		}, ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("misconfigured condition aborts", func(t *testing.T) {
		t.Parallel()

		_, err := rule.Evaluate([]*rule.Condition{
			{Type: rule.TypeFilenameGlob, Pattern: "*.json"},
			{Type: "bogus"},
		}, ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, rule.ErrUnknownConditionType)
	})
}
