package cms

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/calvinalkan/cms/pkg/schema"
)

// Document is a validated document together with its CAS token.
type Document struct {
	// Name is the static entry name, or the document id within a collection.
	Name string

	// Path is relative to the content root.
	Path string

	// Checksum covers the exact bytes read. Pass it as
	// content.WriteOptions.ExpectedChecksum to update the document.
	Checksum string

	// Value is the validated value: map[string]any with string, []any and
	// nested map leaves. Undeclared keys are not present.
	Value any
}

// Decode converts a document's value into T.
func Decode[T any](doc Document) (T, error) {
	var out T

	data, err := json.Marshal(doc.Value)
	if err != nil {
		return out, fmt.Errorf("encoding %s: %w", doc.Path, err)
	}

	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decoding %s into %T: %w", doc.Path, out, err)
	}

	return out, nil
}

// parse decodes and validates data.
func parse(v *schema.Validator, data []byte) (any, error) {
	doc, err := schema.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	return v.Validate(doc)
}

// encode validates value and renders the stored form: indented JSON with a
// trailing newline. Structs are accepted and go through their JSON form.
func encode(v *schema.Validator, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	out, err := parse(v, data)
	if err != nil {
		return nil, err
	}

	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding value: %w", err)
	}

	return append(data, '\n'), nil
}
