package schema

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

var (
	errUnexpectedData = errors.New("unexpected data after top-level value")
	errInvalidUTF8    = errors.New("document is not valid UTF-8")
)

// MaxDepth bounds object nesting accepted by [Compile].
const MaxDepth = 32

// checkFunc validates v found at path. It appends issues and returns the
// output value. present is false when the field is absent from its parent.
type checkFunc func(v any, present bool, path string, issues *[]Issue) (out any, keep bool)

// Validator checks documents against a compiled [Shape].
//
// A Validator has no mutable state and is safe for concurrent use.
type Validator struct {
	shape *Shape
	check checkFunc
}

// Compile builds a validator for s.
//
// Object fields are validated in sorted key order so issue order is stable.
// Keys present in a document but not declared by the shape are dropped from
// the output. Compile fails with [ErrInvalidShape], [ErrCyclicShape] or
// [ErrShapeTooDeep]; a sub-shape shared by several fields is fine.
func Compile(s *Shape) (*Validator, error) {
	check, _, err := newCompiler().compile(s, "", 0)
	if err != nil {
		return nil, err
	}

	return &Validator{shape: s, check: check}, nil
}

// Shape returns the shape the validator was compiled from.
func (v *Validator) Shape() *Shape { return v.shape }

// Validate checks doc, a value decoded from JSON, and returns the validated
// copy. On failure it returns a [*ValidationError] carrying every issue.
func (v *Validator) Validate(doc any) (any, error) {
	var issues []Issue

	out, _ := v.check(doc, true, "", &issues)
	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return out, nil
}

// ValidateJSON decodes data and validates it. Numbers decode as json.Number
// so they round-trip unchanged. Decode failures are returned as-is, not as
// a [*ValidationError].
func (v *Validator) ValidateJSON(data []byte) (any, error) {
	doc, err := DecodeJSON(data)
	if err != nil {
		return nil, err
	}

	return v.Validate(doc)
}

// DecodeJSON decodes a single JSON value, keeping numbers as json.Number.
// data must be valid UTF-8 and hold exactly one value.
func DecodeJSON(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, errInvalidUTF8
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	// More reports false before a stray ']' or '}', so decode once more and
	// require a clean end of input.
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errUnexpectedData
	}

	return doc, nil
}

type compiler struct {
	onStack map[*Shape]bool

	// done caches finished object shapes so a sub-shape shared by many
	// fields compiles once. Paths are supplied at validation time.
	done map[*Shape]compiled
}

type compiled struct {
	check  checkFunc
	height int // nesting levels below the shape
}

func newCompiler() *compiler {
	return &compiler{onStack: map[*Shape]bool{}, done: map[*Shape]compiled{}}
}

func (c *compiler) compile(s *Shape, path string, depth int) (checkFunc, int, error) {
	if s == nil {
		return nil, 0, fmt.Errorf("%w: nil shape at %s", ErrInvalidShape, rootIfEmpty(path))
	}

	if depth > MaxDepth {
		return nil, 0, fmt.Errorf("%w: deeper than %d at %s", ErrShapeTooDeep, MaxDepth, rootIfEmpty(path))
	}

	switch s.Kind {
	case KindString, KindText:
		return withPresence(checkString, expectedOf(s), s.Optional), 0, nil
	case KindStringArray:
		return withPresence(checkStringArray, expectedOf(s), s.Optional), 0, nil
	case KindObject:
	default:
		return nil, 0, fmt.Errorf("%w: kind %d at %s", ErrInvalidShape, s.Kind, rootIfEmpty(path))
	}

	if c.onStack[s] {
		return nil, 0, fmt.Errorf("%w: shape at %s contains itself", ErrCyclicShape, rootIfEmpty(path))
	}

	if d, ok := c.done[s]; ok {
		if depth+d.height > MaxDepth {
			return nil, 0, fmt.Errorf("%w: deeper than %d below %s", ErrShapeTooDeep, MaxDepth, rootIfEmpty(path))
		}

		return d.check, d.height, nil
	}

	c.onStack[s] = true
	defer delete(c.onStack, s)

	obj, height, err := c.compileObject(s, path, depth)
	if err != nil {
		return nil, 0, err
	}

	check := withPresence(obj, expectedOf(s), s.Optional)
	c.done[s] = compiled{check: check, height: height}

	return check, height, nil
}

func (c *compiler) compileObject(s *Shape, path string, depth int) (checkFunc, int, error) {
	type field struct {
		name  string
		check checkFunc
	}

	names := s.FieldNames()
	fields := make([]field, 0, len(names))
	height := 0

	for _, name := range names {
		check, h, err := c.compile(s.Fields[name], path+"/"+escapePointer(name), depth+1)
		if err != nil {
			return nil, 0, err
		}

		height = max(height, h+1)
		fields = append(fields, field{name: name, check: check})
	}

	return func(v any, _ bool, path string, issues *[]Issue) (any, bool) {
		m, ok := v.(map[string]any)
		if !ok {
			*issues = append(*issues, Issue{Path: path, Expected: "object", Actual: kindOf(v)})

			return nil, false
		}

		out := make(map[string]any, len(fields))

		for _, f := range fields {
			fv, present := m[f.name]

			got, keep := f.check(fv, present, path+"/"+escapePointer(f.name), issues)
			if keep {
				out[f.name] = got
			}
		}

		return out, true
	}, height, nil
}

// withPresence handles absent and null values before delegating to check.
// Optional fields that are absent or null are accepted and left out.
func withPresence(check checkFunc, expected string, optional bool) checkFunc {
	return func(v any, present bool, path string, issues *[]Issue) (any, bool) {
		if !present || v == nil {
			if optional {
				return nil, false
			}

			actual := "missing"
			if present {
				actual = "null"
			}

			*issues = append(*issues, Issue{Path: path, Expected: expected, Actual: actual})

			return nil, false
		}

		return check(v, present, path, issues)
	}
}

func checkString(v any, _ bool, path string, issues *[]Issue) (any, bool) {
	s, ok := v.(string)
	if !ok {
		*issues = append(*issues, Issue{Path: path, Expected: "string", Actual: kindOf(v)})

		return nil, false
	}

	return s, true
}

func checkStringArray(v any, _ bool, path string, issues *[]Issue) (any, bool) {
	arr, ok := v.([]any)
	if !ok {
		*issues = append(*issues, Issue{Path: path, Expected: "array", Actual: kindOf(v)})

		return nil, false
	}

	out := make([]any, 0, len(arr))
	failed := false

	for i, el := range arr {
		s, ok := el.(string)
		if !ok {
			*issues = append(*issues, Issue{Path: path + "/" + strconv.Itoa(i), Expected: "string", Actual: kindOf(el)})
			failed = true

			continue
		}

		out = append(out, s)
	}

	if failed {
		return nil, false
	}

	return out, true
}

func expectedOf(s *Shape) string {
	switch s.Kind {
	case KindStringArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "string"
	}
}

// kindOf names the JSON kind of a decoded value.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case stdjson.Number, float64, float32, int, int64, int32, uint, uint64, uint32:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Bool:
		return "boolean"
	default:
		// Named string types are number wrappers from other decoders.
		return "number"
	}
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

func escapePointer(token string) string {
	return pointerEscaper.Replace(token)
}

func rootIfEmpty(path string) string {
	if path == "" {
		return "/"
	}

	return path
}
