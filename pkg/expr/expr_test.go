package expr_test

import (
	"encoding/json"
	"testing"

	"github.com/google/cel-go/common/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicertools/profshift/pkg/expr"
)

func TestEnvironment_Compile(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment()
	require.NoError(t, err)

	tests := []struct {
		name       string
		expression string
		wantErr    bool
	}{
		{
			name:       "path functions",
			expression: `pathExt(name) == ".json" && pathBase(path) == name`,
		},
		{
			name:       "document access",
			expression: `"type" in doc && doc["type"] == "filament"`,
		},
		{
			name:       "invalid function",
			expression: `doc.invalidFunction()`,
			wantErr:    true,
		},
		{
			name:       "empty expression",
			expression: ``,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tt.expression)

			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.NotNil(t, program)
		})
	}
}

func TestEnvironment_Eval(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment()
	require.NoError(t, err)

	doc := map[string]any{
		"type":   "filament",
		"layers": json.Number("3"),
		"speed":  json.Number("1.5"),
	}

	tests := []struct {
		name       string
		expression string
		want       bool
	}{
		{
			name:       "string field",
			expression: `doc["type"] == "filament"`,
			want:       true,
		},
		{
			name:       "integral number compares as int",
			expression: `doc["layers"] == 3`,
			want:       true,
		},
		{
			name:       "fractional number compares as double",
			expression: `doc["speed"] > 1.0`,
			want:       true,
		},
		{
			name:       "missing field",
			expression: `"missing" in doc`,
			want:       false,
		},
		{
			name:       "path helpers",
			expression: `pathDir(path) == "/profiles" && pathExt(name) == ".json"`,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			program, err := env.Compile(tt.expression)
			require.NoError(t, err)

			result, _, err := program.Eval(map[string]any{
				"doc":  expr.ConvertToCELValue(doc),
				"name": "leaf.json",
				"path": "/profiles/leaf.json",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Value())
		})
	}
}

func TestLazyProgram(t *testing.T) {
	t.Parallel()

	env := expr.MustNewEnvironment()

	t.Run("compiles once", func(t *testing.T) {
		t.Parallel()

		lp := expr.NewLazyProgram(env, `name == "a.json"`)

		p1, err := lp.Get()
		require.NoError(t, err)

		p2, err := lp.Get()
		require.NoError(t, err)
		assert.Equal(t, p1, p2)
	})

	t.Run("caches compile error", func(t *testing.T) {
		t.Parallel()

		lp := expr.NewLazyProgram(env, `not valid cel (`)

		_, err := lp.Get()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not valid cel")
	})
}

func TestConvertToCELValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, types.NullValue, expr.ConvertToCELValue(nil))
	assert.Equal(t, types.Int(7), expr.ConvertToCELValue(json.Number("7")))
	assert.Equal(t, types.Double(2.5), expr.ConvertToCELValue(json.Number("2.5")))
	assert.Equal(t, types.Double(1000), expr.ConvertToCELValue(json.Number("1e3")))
	assert.Equal(t, types.String("x"), expr.ConvertToCELValue("x"))
	assert.Equal(t, types.Bool(true), expr.ConvertToCELValue(true))
	assert.Equal(t, types.NullValue, expr.ConvertToCELValue(struct{}{}))
}
