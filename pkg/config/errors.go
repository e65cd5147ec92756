package config

import (
	"errors"
	"strings"

	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

var (
	// ErrInvalidConfig is matched by every [*ValidationError].
	ErrInvalidConfig = errors.New("invalid config")

	ErrMissingField  = errors.New("missing required field")
	ErrInvalidRepoID = errors.New("invalid repo id")
	ErrNoCollections = errors.New("at least one collection is required")
	ErrDuplicatePath = errors.New("path used by more than one entry")

	// Shared with the packages that enforce the same rules at runtime.
	ErrInvalidFieldType = schema.ErrInvalidTag
	ErrShapeTooDeep     = schema.ErrShapeTooDeep
	ErrInvalidPath      = content.ErrInvalidPath
)

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigFileInvalid  = errors.New("invalid config file")
)

// Problem is one structural issue found by [Normalize].
type Problem struct {
	// Path is the dotted location, e.g. "collections.posts.schema.tags".
	Path string
	Err  error
}

func (p Problem) String() string {
	if p.Path == "" {
		return p.Err.Error()
	}

	return p.Path + ": " + p.Err.Error()
}

// ValidationError lists every problem found in a raw configuration.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}

	return ErrInvalidConfig.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, [ErrInvalidConfig]) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Unwrap exposes each problem's cause, so errors.Is(err, ErrMissingField)
// reports whether any problem is a missing field.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Problems))
	for _, p := range e.Problems {
		errs = append(errs, p.Err)
	}

	return errs
}

// Paths returns the path of every problem, in report order.
func (e *ValidationError) Paths() []string {
	paths := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		paths = append(paths, p.Path)
	}

	return paths
}
