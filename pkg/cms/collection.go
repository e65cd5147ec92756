package cms

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

// CollectionAccessor reads and writes the documents of one collection.
//
// A document id is its file name without the .json extension.
type CollectionAccessor struct {
	api       *API
	name      string
	entry     config.Collection
	validator *schema.Validator
}

// Name returns the collection name.
func (c *CollectionAccessor) Name() string { return c.name }

// Dir returns the collection directory relative to the content root.
func (c *CollectionAccessor) Dir() string {
	return c.api.layout.CollectionPath(c.entry.Dir)
}

// IDs lists the document ids in filesystem order.
func (c *CollectionAccessor) IDs(ctx context.Context) ([]string, error) {
	names, err := c.api.store.ListCollection(ctx, c.entry.Dir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = strings.TrimSuffix(n, content.DocumentExt)
	}

	return ids, nil
}

// GetAll reads every document concurrently and validates each one.
//
// The result follows the listing order. The first failure cancels the
// remaining reads and is returned; no partial result is returned.
func (c *CollectionAccessor) GetAll(ctx context.Context) ([]Document, error) {
	names, err := c.api.store.ListCollection(ctx, c.entry.Dir)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.api.readConcurrency)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			doc, err := c.load(gctx, name)
			if err != nil {
				return err
			}

			docs[i] = doc

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// The loop may stop early only when the parent context is done.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.api.log.Debug().Str("collection", c.name).Int("documents", len(docs)).Msg("collection read")

	return docs, nil
}

// Get reads a single document by id.
func (c *CollectionAccessor) Get(ctx context.Context, id string) (Document, error) {
	if err := checkID(id); err != nil {
		return Document{}, err
	}

	return c.load(ctx, id+content.DocumentExt)
}

// Put validates value and writes it to the document id, creating it if
// needed. It returns the new checksum.
func (c *CollectionAccessor) Put(ctx context.Context, id string, value any, opts content.WriteOptions) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}

	rel := c.path(id + content.DocumentExt)

	data, err := encode(c.validator, value)
	if err != nil {
		return "", &DocumentError{Entry: c.name, Path: rel, Err: err}
	}

	return c.api.store.WriteFile(ctx, rel, data, opts)
}

// PutRaw validates data and writes it unchanged to the document id.
func (c *CollectionAccessor) PutRaw(ctx context.Context, id string, data []byte, opts content.WriteOptions) (string, error) {
	if err := checkID(id); err != nil {
		return "", err
	}

	rel := c.path(id + content.DocumentExt)

	if _, err := parse(c.validator, data); err != nil {
		return "", &DocumentError{Entry: c.name, Path: rel, Err: err}
	}

	return c.api.store.WriteFile(ctx, rel, data, opts)
}

// Create stores value under a new time-ordered id (UUIDv7) and returns the
// id and checksum.
func (c *CollectionAccessor) Create(ctx context.Context, value any) (string, string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", "", fmt.Errorf("generating id: %w", err)
	}

	sum, err := c.Put(ctx, id.String(), value, content.WriteOptions{})
	if err != nil {
		return "", "", err
	}

	return id.String(), sum, nil
}

// Delete removes the document id.
func (c *CollectionAccessor) Delete(ctx context.Context, id string, opts content.WriteOptions) error {
	if err := checkID(id); err != nil {
		return err
	}

	return c.api.store.DeleteFile(ctx, c.path(id+content.DocumentExt), opts)
}

func (c *CollectionAccessor) load(ctx context.Context, name string) (Document, error) {
	rel := c.path(name)

	data, err := c.api.store.ReadFile(ctx, rel)
	if err != nil {
		return Document{}, err
	}

	value, err := parse(c.validator, data)
	if err != nil {
		return Document{}, &DocumentError{Entry: c.name, Path: rel, Err: err}
	}

	return Document{
		Name:     strings.TrimSuffix(name, content.DocumentExt),
		Path:     rel,
		Checksum: content.Checksum(data),
		Value:    value,
	}, nil
}

func (c *CollectionAccessor) path(name string) string {
	return c.api.layout.DocumentPath(c.entry.Dir, name)
}

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}

	return nil
}
