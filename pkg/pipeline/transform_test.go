package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slicertools/profshift/pkg/pipeline"
	"github.com/slicertools/profshift/pkg/profile"
)

func TestApplyVendorTransforms(t *testing.T) {
	t.Parallel()

	t.Run("full preset", func(t *testing.T) {
		t.Parallel()

		doc, err := profile.Parse([]byte(`{
			"type": "filament",
			"compatible_printers": ["Kobra 3"],
			"compatible_printers_condition": "",
			"support_multi_bed_types": "0"
		}`))
		require.NoError(t, err)

		pipeline.ApplyVendorTransforms(doc, "PETG @Kobra 3 0.4 nozzle.json")

		got, _ := doc.Get("is_custom_defined")
		assert.Equal(t, "0", got)

		got, _ = doc.Get("instantiation")
		assert.Equal(t, "true", got)

		assert.False(t, doc.Has("compatible_printers"))

		got, _ = doc.Get("compatible_printers_condition")
		assert.Equal(t, `printer_model==\"Kobra 3\" and nozzle_diameter[0]==0.4`, got)

		got, _ = doc.Get("support_multi_bed_types")
		assert.Equal(t, "1", got)
	})

	t.Run("condition field is never added", func(t *testing.T) {
		t.Parallel()

		doc, err := profile.Parse([]byte(`{"type": "filament"}`))
		require.NoError(t, err)

		pipeline.ApplyVendorTransforms(doc, "PETG @Kobra 3 0.4 nozzle.json")

		assert.False(t, doc.Has("compatible_printers_condition"))
		assert.False(t, doc.Has("support_multi_bed_types"))
	})

	t.Run("existing condition is kept", func(t *testing.T) {
		t.Parallel()

		doc, err := profile.Parse([]byte(`{"compatible_printers_condition": "custom"}`))
		require.NoError(t, err)

		pipeline.ApplyVendorTransforms(doc, "PETG @Kobra 3 0.4 nozzle.json")

		got, _ := doc.Get("compatible_printers_condition")
		assert.Equal(t, "custom", got)
	})

	t.Run("filename without nozzle leaves condition empty", func(t *testing.T) {
		t.Parallel()

		doc, err := profile.Parse([]byte(`{"compatible_printers_condition": ""}`))
		require.NoError(t, err)

		pipeline.ApplyVendorTransforms(doc, "Generic PETG.json")

		got, _ := doc.Get("compatible_printers_condition")
		assert.Equal(t, "", got)
	})

	t.Run("printer name without material prefix", func(t *testing.T) {
		t.Parallel()

		doc, err := profile.Parse([]byte(`{"compatible_printers_condition": ""}`))
		require.NoError(t, err)

		pipeline.ApplyVendorTransforms(doc, "Kobra 2 Pro 0.6 nozzle.json")

		got, _ := doc.Get("compatible_printers_condition")
		assert.Equal(t, `printer_model==\"Kobra 2 Pro\" and nozzle_diameter[0]==0.6`, got)
	})
}
