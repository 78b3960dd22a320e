package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const (
	// InheritsKey names the field holding the parent profile reference.
	InheritsKey = "inherits"

	// KindKey names the field holding the profile kind
	// (machine, filament, process, machine_model).
	KindKey = "type"

	// KindMachineModel marks descriptor files that never participate in
	// inheritance.
	KindMachineModel = "machine_model"
)

var (
	// ErrNotObject is returned when the top-level JSON value is not an object.
	ErrNotObject = errors.New("document is not a JSON object")

	// ErrTrailingData is returned when input continues past the closing brace.
	ErrTrailingData = errors.New("trailing data after document")
)

// Document is an ordered mapping from string keys to JSON values.
//
// Values are one of: nil, bool, string, [json.Number], []any, or *Document
// for nested objects. Values assigned via [Document.Set] may additionally be
// Go primitives and map[string]any (e.g. decoded from a YAML ruleset); these
// are serialized as their JSON equivalents, with plain maps emitted in
// lexicographic key order so output stays deterministic.
type Document struct {
	values map[string]any
	keys   []string
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{values: map[string]any{}}
}

// Parse decodes a JSON object into a [Document], preserving key order at
// every nesting level. Numbers are kept verbatim as [json.Number].
func Parse(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, ErrNotObject
	}

	doc, err := parseObject(dec)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	// Anything after the closing brace besides whitespace is an error.
	if dec.More() {
		return nil, ErrTrailingData
	}

	return doc, nil
}

// Load reads and parses the profile document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: Paths come from file discovery.
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return doc, nil
}

// parseObject consumes tokens after an opening '{' up to and including the
// matching '}'.
func parseObject(dec *json.Decoder) (*Document, error) {
	doc := NewDocument()

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err //nolint:wrapcheck // Callers add context.
		}

		if delim, ok := tok.(json.Delim); ok && delim == '}' {
			return doc, nil
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v for object key", tok)
		}

		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}

		// Duplicate keys keep their first position, last value wins.
		doc.Set(key, value)
	}
}

func parseArray(dec *json.Decoder) ([]any, error) {
	values := []any{}

	for dec.More() {
		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}

		values = append(values, value)
	}

	// Consume the closing bracket.
	_, err := dec.Token()
	if err != nil {
		return nil, err //nolint:wrapcheck // Callers add context.
	}

	return values, nil
}

func parseValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err //nolint:wrapcheck // Callers add context.
	}

	if delim, ok := tok.(json.Delim); ok {
		switch delim {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", delim)
		}
	}

	return tok, nil
}

// Get returns the value for key and whether it exists.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.values[key]

	return v, ok
}

// GetString returns the value for key as a string. Missing keys and
// non-string values return the empty string.
func (d *Document) GetString(key string) string {
	if s, ok := d.values[key].(string); ok {
		return s
	}

	return ""
}

// Has reports whether key exists in the document.
func (d *Document) Has(key string) bool {
	_, ok := d.values[key]

	return ok
}

// Set assigns value to key. Existing keys keep their position; new keys are
// appended.
func (d *Document) Set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}

	d.values[key] = value
}

// Delete removes key from the document, if present.
func (d *Document) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}

	delete(d.values, key)

	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)

			break
		}
	}
}

// Len returns the number of keys in the document.
func (d *Document) Len() int {
	return len(d.keys)
}

// Keys returns the document's keys in order. The slice is a copy.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)

	return keys
}

// Inherits returns the parent profile reference, or "" if the document is a
// root.
func (d *Document) Inherits() string {
	return d.GetString(InheritsKey)
}

// SetInherits overwrites the parent profile reference in place, without
// adding the field to documents that never had it.
func (d *Document) SetInherits(ref string) {
	if d.Has(InheritsKey) {
		d.Set(InheritsKey, ref)
	}
}

// Kind returns the document kind field, or "" when absent.
func (d *Document) Kind() string {
	return d.GetString(KindKey)
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{
		values: make(map[string]any, len(d.values)),
		keys:   make([]string, len(d.keys)),
	}
	copy(out.keys, d.keys)

	for k, v := range d.values {
		out.values[k] = cloneValue(v)
	}

	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case *Document:
		return val.Clone()

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}

		return out

	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}

		return out

	default:
		// Scalars are immutable.
		return v
	}
}

// Equal reports structural equality with other. Key order is significant,
// matching the byte-level change detection used by the writer.
func (d *Document) Equal(other *Document) bool {
	if other == nil || len(d.keys) != len(other.keys) {
		return false
	}

	for i, k := range d.keys {
		if other.keys[i] != k {
			return false
		}
		if !ValueEqual(d.values[k], other.values[k]) {
			return false
		}
	}

	return true
}

// ValueEqual reports structural equality between two JSON values. Numbers
// compare numerically regardless of representation, so 1, 1.0, and
// json.Number("1") are all equal. Plain maps compare order-insensitively
// since they carry no order; documents and arrays are order-sensitive.
func ValueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)

		return bok && af == bf
	}

	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv

	case string:
		bv, ok := b.(string)

		return ok && av == bv

	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for i := range av {
			if !ValueEqual(av[i], bv[i]) {
				return false
			}
		}

		return true

	case *Document:
		if bv, ok := b.(*Document); ok {
			return av.Equal(bv)
		}
		if bv, ok := b.(map[string]any); ok {
			return documentEqualsMap(av, bv)
		}

		return false

	case map[string]any:
		if bv, ok := b.(map[string]any); ok {
			if len(av) != len(bv) {
				return false
			}

			for k, v := range av {
				bval, ok := bv[k]
				if !ok || !ValueEqual(v, bval) {
					return false
				}
			}

			return true
		}
		if bv, ok := b.(*Document); ok {
			return documentEqualsMap(bv, av)
		}

		return false
	}

	return false
}

func documentEqualsMap(doc *Document, m map[string]any) bool {
	if doc.Len() != len(m) {
		return false
	}

	for k, v := range m {
		dv, ok := doc.Get(k)
		if !ok || !ValueEqual(dv, v) {
			return false
		}
	}

	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// MarshalIndent serializes the document as UTF-8 JSON with 4-space
// indentation and no HTML escaping. With sortKeys, object keys are emitted
// in lexicographic order instead of source order. Serialization is
// deterministic: the same document and mode always produce the same bytes.
func (d *Document) MarshalIndent(sortKeys bool) ([]byte, error) {
	var buf bytes.Buffer

	err := writeValue(&buf, d, 0, sortKeys)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

const indentUnit = "    "

func writeValue(w *bytes.Buffer, v any, depth int, sortKeys bool) error {
	switch val := v.(type) {
	case *Document:
		keys := val.Keys()
		if sortKeys {
			sort.Strings(keys)
		}

		return writeObject(w, keys, val.values, depth, sortKeys)

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		// Plain maps have no source order to preserve.
		sort.Strings(keys)

		return writeObject(w, keys, val, depth, sortKeys)

	case []any:
		return writeArray(w, val, depth, sortKeys)

	case json.Number:
		w.WriteString(val.String())

		return nil

	default:
		return writeScalar(w, val)
	}
}

func writeObject(w *bytes.Buffer, keys []string, values map[string]any, depth int, sortKeys bool) error {
	if len(keys) == 0 {
		w.WriteString("{}")

		return nil
	}

	w.WriteByte('{')

	inner := strings.Repeat(indentUnit, depth+1)
	for i, k := range keys {
		if i > 0 {
			w.WriteByte(',')
		}

		w.WriteByte('\n')
		w.WriteString(inner)

		err := writeScalar(w, k)
		if err != nil {
			return err
		}

		w.WriteString(": ")

		err = writeValue(w, values[k], depth+1, sortKeys)
		if err != nil {
			return err
		}
	}

	w.WriteByte('\n')
	w.WriteString(strings.Repeat(indentUnit, depth))
	w.WriteByte('}')

	return nil
}

func writeArray(w *bytes.Buffer, values []any, depth int, sortKeys bool) error {
	if len(values) == 0 {
		w.WriteString("[]")

		return nil
	}

	w.WriteByte('[')

	inner := strings.Repeat(indentUnit, depth+1)
	for i, v := range values {
		if i > 0 {
			w.WriteByte(',')
		}

		w.WriteByte('\n')
		w.WriteString(inner)

		err := writeValue(w, v, depth+1, sortKeys)
		if err != nil {
			return err
		}
	}

	w.WriteByte('\n')
	w.WriteString(strings.Repeat(indentUnit, depth))
	w.WriteByte(']')

	return nil
}

// writeScalar encodes strings, bools, nil, and Go numeric types via
// encoding/json with HTML escaping disabled.
func writeScalar(w *bytes.Buffer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}

	// Encode appends a newline; JSON layout is handled by the callers.
	b := w.Bytes()
	if len(b) > 0 && b[len(b)-1] == '\n' {
		w.Truncate(len(b) - 1)
	}

	return nil
}

// WriteTo serializes the document in source key order and writes it to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	data, err := d.MarshalIndent(false)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("write document: %w", err)
	}

	return int64(n), nil
}

// Map returns the document as a plain nested map for consumers that do not
// care about ordering, e.g. CEL evaluation.
func (d *Document) Map() map[string]any {
	out := make(map[string]any, len(d.keys))
	for k, v := range d.values {
		out[k] = mapValue(v)
	}

	return out
}

func mapValue(v any) any {
	switch val := v.(type) {
	case *Document:
		return val.Map()

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = mapValue(item)
		}

		return out

	default:
		return v
	}
}
