package cms

import (
	"context"

	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

// StaticAccessor reads and writes one static entry.
type StaticAccessor struct {
	api       *API
	name      string
	entry     config.StaticEntry
	validator *schema.Validator
}

// Name returns the entry name.
func (s *StaticAccessor) Name() string { return s.name }

// Path returns the document path relative to the content root.
func (s *StaticAccessor) Path() string {
	if s.api.resolution == ResolveContentRoot {
		return s.entry.Filename
	}

	return s.api.layout.StaticPath(s.entry.Filename)
}

// Get reads, parses and validates the document.
func (s *StaticAccessor) Get(ctx context.Context) (Document, error) {
	var (
		data []byte
		err  error
	)

	if s.api.resolution == ResolveContentRoot {
		data, err = s.api.store.ReadFile(ctx, s.entry.Filename)
	} else {
		data, err = s.api.store.ReadStatic(ctx, s.entry.Filename)
	}

	if err != nil {
		return Document{}, err
	}

	value, err := parse(s.validator, data)
	if err != nil {
		return Document{}, &DocumentError{Entry: s.name, Path: s.Path(), Err: err}
	}

	return Document{Name: s.name, Path: s.Path(), Checksum: content.Checksum(data), Value: value}, nil
}

// Put validates value, writes it as indented JSON and returns the new
// checksum. Undeclared keys are dropped before writing.
func (s *StaticAccessor) Put(ctx context.Context, value any, opts content.WriteOptions) (string, error) {
	data, err := encode(s.validator, value)
	if err != nil {
		return "", &DocumentError{Entry: s.name, Path: s.Path(), Err: err}
	}

	return s.write(ctx, data, opts)
}

// PutRaw validates data and writes it unchanged, so the returned checksum
// is the checksum of data.
func (s *StaticAccessor) PutRaw(ctx context.Context, data []byte, opts content.WriteOptions) (string, error) {
	if _, err := parse(s.validator, data); err != nil {
		return "", &DocumentError{Entry: s.name, Path: s.Path(), Err: err}
	}

	return s.write(ctx, data, opts)
}

func (s *StaticAccessor) write(ctx context.Context, data []byte, opts content.WriteOptions) (string, error) {
	if s.api.resolution == ResolveContentRoot {
		return s.api.store.WriteFile(ctx, s.entry.Filename, data, opts)
	}

	return s.api.store.WriteStatic(ctx, s.entry.Filename, data, opts)
}
