package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every [*ValidationError].
	ErrValidation = errors.New("schema validation failed")

	// ErrInvalidTag is returned by [ParseTag] for unknown field tags.
	ErrInvalidTag = errors.New("invalid field type")

	// ErrInvalidShape is returned by [Compile] for nil shapes or unknown kinds.
	ErrInvalidShape = errors.New("invalid shape")

	// ErrCyclicShape is returned by [Compile] when a shape contains itself.
	ErrCyclicShape = errors.New("cyclic shape")

	// ErrShapeTooDeep is returned by [Compile] when nesting exceeds [MaxDepth].
	ErrShapeTooDeep = errors.New("shape nested too deeply")
)

// Issue is a single mismatch between a document and its shape.
type Issue struct {
	// Path is an RFC 6901 JSON Pointer to the offending value ("" is the root).
	Path string

	// Expected is the kind the shape asks for ("string", "array", "object").
	Expected string

	// Actual is the JSON kind found, or "missing".
	Actual string
}

func (i Issue) String() string {
	p := i.Path
	if p == "" {
		p = "/"
	}

	return fmt.Sprintf("%s: expected %s, got %s", p, i.Expected, i.Actual)
}

// ValidationError lists every issue found in a document.
type ValidationError struct {
	Issues []Issue
}

// Error summarizes the first few issues.
func (e *ValidationError) Error() string {
	const maxShown = 3

	b := &strings.Builder{}
	b.WriteString(ErrValidation.Error())

	for i, it := range e.Issues {
		if i == maxShown {
			fmt.Fprintf(b, "; ... (total %d)", len(e.Issues))

			break
		}

		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}

		b.WriteString(it.String())
	}

	return b.String()
}

// Is makes errors.Is(err, [ErrValidation]) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// HasPath reports whether any issue points at path.
func (e *ValidationError) HasPath(path string) bool {
	for _, it := range e.Issues {
		if it.Path == path {
			return true
		}
	}

	return false
}
