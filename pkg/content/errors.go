package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates the document or collection directory does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a guarded write or delete found a different
	// checksum on disk. The concrete error is a [*ConflictError].
	ErrConflict = errors.New("checksum conflict")

	// ErrIO wraps every other filesystem failure.
	ErrIO = errors.New("io failure")

	// ErrInvalidPath indicates a path failed validation before any I/O.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidLayout is returned by [New] for unusable layouts.
	ErrInvalidLayout = errors.New("invalid layout")
)

// Error is the error type returned by every [Adapter] operation.
//
// The cause comes first, followed by the operation and the path relative to
// the content root:
//
//	not found: open /site/content/static/home.json: no such file or directory (op=read_static path=static/home.json)
//
// Use [errors.Is] with the package sentinels and [errors.As] to extract a
// [*ConflictError].
type Error struct {
	// Op is the adapter operation, e.g. "write_file".
	Op string

	// Path is relative to the content root.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error formats as "<cause> (op=X path=Y)".
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var parts []string

	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}

	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if len(parts) == 0 {
		return cause
	}

	suffix := "(" + strings.Join(parts, " ") + ")"
	if cause == "" {
		return suffix
	}

	return cause + " " + suffix
}

// Unwrap returns the underlying error for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// ConflictError reports a checksum mismatch on a guarded write or delete.
// Nothing was written or removed.
type ConflictError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", ErrConflict, short(e.Expected), short(e.Actual))
}

// Is makes errors.Is(err, [ErrConflict]) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// short trims a hex digest for messages.
func short(sum string) string {
	const n = 12
	if len(sum) <= n {
		return sum
	}

	return sum[:n]
}

func wrapErr(op, path string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Op: op, Path: path, Err: err}
}
