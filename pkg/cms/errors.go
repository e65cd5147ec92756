package cms

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownEntry is returned for static or collection names that the
	// config does not define.
	ErrUnknownEntry = errors.New("unknown entry")

	// ErrMalformedJSON indicates a document is not valid JSON.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrInvalidID indicates a collection document id is unusable as a
	// file name.
	ErrInvalidID = errors.New("invalid document id")
)

// DocumentError reports a document that could not be parsed or does not
// match its shape. Err wraps [ErrMalformedJSON] or a [*schema.ValidationError].
type DocumentError struct {
	// Entry is the static or collection name.
	Entry string

	// Path is relative to the content root.
	Path string

	Err error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Entry, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}
