// Package cms is the typed read/write surface over a content store.
//
// [New] compiles one validator per static entry and collection, then hands
// out accessors by name:
//
//	api, err := cms.New(cfg, adapter)
//	posts, err := api.Collection("posts")
//	docs, err := posts.GetAll(ctx)
//
// Every document returned has been parsed and validated against its shape.
// Collection reads are all or nothing: one bad document fails the call.
package cms

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/cms/pkg/config"
	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

// Store is the document I/O the facade needs. [*content.Adapter]
// implements it.
type Store interface {
	ReadStatic(ctx context.Context, filename string) ([]byte, error)
	ListCollection(ctx context.Context, dir string) ([]string, error)
	ReadFile(ctx context.Context, relPath string) ([]byte, error)
	WriteStatic(ctx context.Context, filename string, data []byte, opts content.WriteOptions) (string, error)
	WriteFile(ctx context.Context, relPath string, data []byte, opts content.WriteOptions) (string, error)
	DeleteFile(ctx context.Context, relPath string, opts content.WriteOptions) error
}

var _ Store = (*content.Adapter)(nil)

// StaticResolution selects how static filenames are resolved.
type StaticResolution uint8

const (
	// ResolveStaticDir reads ContentRoot/StaticDir/<filename>.
	ResolveStaticDir StaticResolution = iota

	// ResolveContentRoot reads ContentRoot/<filename>, treating the filename
	// as a path relative to the content root.
	ResolveContentRoot
)

// DefaultReadConcurrency bounds parallel file reads in GetAll.
const DefaultReadConcurrency = 8

// Option configures an [API].
type Option func(*API)

// WithStaticResolution sets the static path convention.
func WithStaticResolution(r StaticResolution) Option {
	return func(a *API) { a.resolution = r }
}

// WithReadConcurrency bounds parallel reads in GetAll. n < 1 keeps the
// default.
func WithReadConcurrency(n int) Option {
	return func(a *API) {
		if n >= 1 {
			a.readConcurrency = n
		}
	}
}

// WithLogger sets the logger. Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *API) { a.log = log }
}

// Validators holds one compiled validator per entry.
type Validators struct {
	Static      map[string]*schema.Validator
	Collections map[string]*schema.Validator
}

// CompileAll compiles the shape of every static entry and collection.
func CompileAll(cfg *config.Config) (Validators, error) {
	v := Validators{
		Static:      map[string]*schema.Validator{},
		Collections: map[string]*schema.Validator{},
	}

	for _, name := range cfg.StaticNames() {
		e, _ := cfg.Static(name)

		compiled, err := schema.Compile(e.Shape)
		if err != nil {
			return Validators{}, fmt.Errorf("static %q: %w", name, err)
		}

		v.Static[name] = compiled
	}

	for _, name := range cfg.CollectionNames() {
		e, _ := cfg.Collection(name)

		compiled, err := schema.Compile(e.Shape)
		if err != nil {
			return Validators{}, fmt.Errorf("collection %q: %w", name, err)
		}

		v.Collections[name] = compiled
	}

	return v, nil
}

// API gives access to the documents described by one config.
// It is safe for concurrent use and holds no document state.
type API struct {
	cfg        *config.Config
	store      Store
	validators Validators
	layout     content.Layout

	resolution      StaticResolution
	readConcurrency int
	log             zerolog.Logger
}

// New compiles every validator in cfg and returns the facade.
func New(cfg *config.Config, store Store, opts ...Option) (*API, error) {
	validators, err := CompileAll(cfg)
	if err != nil {
		return nil, err
	}

	a := &API{
		cfg:             cfg,
		store:           store,
		validators:      validators,
		layout:          cfg.Layout(),
		readConcurrency: DefaultReadConcurrency,
		log:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

// Config returns the config the API was built from.
func (a *API) Config() *config.Config { return a.cfg }

// StaticNames returns the static entry names in sorted order.
func (a *API) StaticNames() []string { return a.cfg.StaticNames() }

// CollectionNames returns the collection names in sorted order.
func (a *API) CollectionNames() []string { return a.cfg.CollectionNames() }

// Static returns the accessor for a static entry.
func (a *API) Static(name string) (*StaticAccessor, error) {
	entry, ok := a.cfg.Static(name)
	if !ok {
		return nil, fmt.Errorf("%w: static %q (have %v)", ErrUnknownEntry, name, a.cfg.StaticNames())
	}

	return &StaticAccessor{api: a, name: name, entry: entry, validator: a.validators.Static[name]}, nil
}

// Collection returns the accessor for a collection.
func (a *API) Collection(name string) (*CollectionAccessor, error) {
	entry, ok := a.cfg.Collection(name)
	if !ok {
		return nil, fmt.Errorf("%w: collection %q (have %v)", ErrUnknownEntry, name, a.cfg.CollectionNames())
	}

	return &CollectionAccessor{api: a, name: name, entry: entry, validator: a.validators.Collections[name]}, nil
}
