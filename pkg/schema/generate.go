package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Generate reflects obj into a JSON schema document, serialized with
// 4-space indentation to match profile output.
func Generate(obj any) ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	jss := r.Reflect(obj)

	data, err := json.MarshalIndent(jss, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(data, '\n'), nil
}

// MustGenerate is like [Generate] but panics on error.
func MustGenerate(obj any) []byte {
	data, err := Generate(obj)
	if err != nil {
		panic(err)
	}

	return data
}
