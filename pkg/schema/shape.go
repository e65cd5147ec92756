// Package schema defines document shapes and compiles them into validators.
//
// A [Shape] is a tagged variant: a scalar leaf ([KindString], [KindText],
// [KindStringArray]) that may be optional, or an object mapping field names
// to nested shapes. Leaves are written as tags in configuration files:
//
//	string    text    string[]
//	string?   text?   string[]?
//
// [Compile] turns a shape into a [Validator] once; the validator is stateless
// and can be shared across goroutines.
package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Kind identifies the variant of a [Shape].
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindText
	KindStringArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindStringArray:
		return "string[]"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Shape describes the structure of a document or of one of its fields.
//
// Fields is only meaningful for [KindObject]. Optional marks a field that may
// be absent or null.
type Shape struct {
	Kind     Kind
	Optional bool
	Fields   map[string]*Shape
}

// String returns a required string leaf.
func String() *Shape { return &Shape{Kind: KindString} }

// Text returns a required text leaf. Text validates like string; the kind
// only tells editors to offer a multi-line input.
func Text() *Shape { return &Shape{Kind: KindText} }

// StringArray returns a required string[] leaf.
func StringArray() *Shape { return &Shape{Kind: KindStringArray} }

// Object returns an object shape with the given fields.
func Object(fields map[string]*Shape) *Shape {
	if fields == nil {
		fields = map[string]*Shape{}
	}

	return &Shape{Kind: KindObject, Fields: fields}
}

// Opt returns a copy of s marked optional.
func (s *Shape) Opt() *Shape {
	c := *s
	c.Optional = true

	return &c
}

// IsLeaf reports whether s is a scalar leaf.
func (s *Shape) IsLeaf() bool {
	return s.Kind == KindString || s.Kind == KindText || s.Kind == KindStringArray
}

// FieldNames returns the object's field names in sorted order.
func (s *Shape) FieldNames() []string {
	return slices.Sorted(maps.Keys(s.Fields))
}

// Tag returns the configuration tag of a leaf, e.g. "string[]?".
// Objects return "object".
func (s *Shape) Tag() string {
	t := s.Kind.String()
	if s.Optional && s.IsLeaf() {
		t += "?"
	}

	return t
}

// ParseTag parses a leaf tag such as "string" or "text?".
// Any other token fails with [ErrInvalidTag].
func ParseTag(tag string) (*Shape, error) {
	base, optional := strings.CutSuffix(tag, "?")

	var s *Shape

	switch base {
	case "string":
		s = String()
	case "text":
		s = Text()
	case "string[]":
		s = StringArray()
	default:
		return nil, fmt.Errorf("%w: %q (want string, text or string[], optionally suffixed with ?)", ErrInvalidTag, tag)
	}

	s.Optional = optional

	return s, nil
}

// Equal reports whether a and b describe the same structure.
func Equal(a, b *Shape) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.Kind != b.Kind || a.Optional != b.Optional {
		return false
	}

	if a.Kind != KindObject {
		return true
	}

	if len(a.Fields) != len(b.Fields) {
		return false
	}

	for name, fa := range a.Fields {
		fb, ok := b.Fields[name]
		if !ok || !Equal(fa, fb) {
			return false
		}
	}

	return true
}

// Raw converts s back to configuration form: leaves become tags, objects
// become maps of field name to raw shape.
func (s *Shape) Raw() any {
	if s.Kind != KindObject {
		return s.Tag()
	}

	m := make(map[string]any, len(s.Fields))
	for name, f := range s.Fields {
		m[name] = f.Raw()
	}

	return m
}

// MarshalJSON encodes the configuration form returned by [Shape.Raw].
func (s *Shape) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw())
}
