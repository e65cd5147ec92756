// Package config turns a loosely typed site configuration into a canonical,
// validated [Config].
//
// [Normalize] is the pure entry point: it checks a [Raw] value, fills in
// defaults and parses every field tag into a [schema.Shape]. [Load] reads a
// cms.json, cms.jsonc or cms.yaml file and applies environment overrides
// before normalizing. [Holder] keeps the current config and reloads it when
// the file changes.
package config

import (
	"maps"
	"slices"

	"github.com/goccy/go-json"

	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

// Defaults applied by [Normalize] when the raw value leaves a field empty.
const (
	DefaultContentPath    = "content"
	DefaultStaticDir      = "static"
	DefaultCollectionsDir = "collections"
)

// Raw is the configuration as written by the site owner.
//
// Schema maps hold plain decoded data: a field tag string such as "string?"
// or a nested map for object fields.
type Raw struct {
	Repo           string              `json:"repo"                     yaml:"repo"`
	ContentPath    string              `json:"contentPath,omitempty"    yaml:"contentPath,omitempty"`
	StaticDir      string              `json:"staticDir,omitempty"      yaml:"staticDir,omitempty"`
	CollectionsDir string              `json:"collectionsDir,omitempty" yaml:"collectionsDir,omitempty"`
	Static         map[string]RawEntry `json:"static"                   yaml:"static"`
	Collections    map[string]RawEntry `json:"collections"              yaml:"collections"`
}

// RawEntry is a static entry or a collection. Filename only applies to
// static entries, Dir only to collections.
type RawEntry struct {
	Filename *string        `json:"filename,omitempty" yaml:"filename,omitempty"`
	Dir      *string        `json:"dir,omitempty"      yaml:"dir,omitempty"`
	Schema   map[string]any `json:"schema"             yaml:"schema"`
}

// StaticEntry is a single named document.
type StaticEntry struct {
	// Filename is relative to the static dir, never empty.
	Filename string
	Shape    *schema.Shape
}

// Collection is a named set of documents stored in one directory.
type Collection struct {
	// Dir is relative to the collections dir, never empty.
	Dir   string
	Shape *schema.Shape
}

// Config is the canonical configuration. Only [Normalize] produces one and
// it is not modified afterwards.
type Config struct {
	RepoID         string
	ContentRoot    string
	StaticDir      string
	CollectionsDir string

	// Source is the file the config was loaded from, if any.
	Source string

	static      map[string]StaticEntry
	collections map[string]Collection
}

// Static returns the static entry called name.
func (c *Config) Static(name string) (StaticEntry, bool) {
	e, ok := c.static[name]

	return e, ok
}

// Collection returns the collection called name.
func (c *Config) Collection(name string) (Collection, bool) {
	e, ok := c.collections[name]

	return e, ok
}

// StaticNames returns the static entry names in sorted order.
func (c *Config) StaticNames() []string {
	return slices.Sorted(maps.Keys(c.static))
}

// CollectionNames returns the collection names in sorted order.
func (c *Config) CollectionNames() []string {
	return slices.Sorted(maps.Keys(c.collections))
}

// Layout returns the paths the content adapter needs.
func (c *Config) Layout() content.Layout {
	return content.Layout{
		ContentRoot:    c.ContentRoot,
		StaticDir:      c.StaticDir,
		CollectionsDir: c.CollectionsDir,
	}
}

// Raw converts c back to its raw form with every default spelled out.
// ContentPath carries the already resolved content root, so normalizing the
// result without [WithBaseDir] yields an equal config.
func (c *Config) Raw() Raw {
	r := Raw{
		Repo:           c.RepoID,
		ContentPath:    c.ContentRoot,
		StaticDir:      c.StaticDir,
		CollectionsDir: c.CollectionsDir,
		Static:         make(map[string]RawEntry, len(c.static)),
		Collections:    make(map[string]RawEntry, len(c.collections)),
	}

	for name, e := range c.static {
		filename := e.Filename
		r.Static[name] = RawEntry{Filename: &filename, Schema: rawFields(e.Shape)}
	}

	for name, e := range c.collections {
		dir := e.Dir
		r.Collections[name] = RawEntry{Dir: &dir, Schema: rawFields(e.Shape)}
	}

	return r
}

// MarshalJSON encodes [Config.Raw]. Map keys are sorted, so equal configs
// encode to identical bytes.
func (c *Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Raw())
}

func rawFields(s *schema.Shape) map[string]any {
	m, _ := s.Raw().(map[string]any)

	return m
}
