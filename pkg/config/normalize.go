package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/calvinalkan/cms/pkg/content"
	"github.com/calvinalkan/cms/pkg/schema"
)

var repoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// NormalizeOption configures [Normalize].
type NormalizeOption func(*normalizeOptions)

type normalizeOptions struct {
	lenientRepo bool
	baseDir     string
}

// WithLenientRepoID accepts any non-empty repo id instead of <owner>/<name>.
func WithLenientRepoID() NormalizeOption {
	return func(o *normalizeOptions) { o.lenientRepo = true }
}

// WithBaseDir resolves a relative content path against dir.
func WithBaseDir(dir string) NormalizeOption {
	return func(o *normalizeOptions) { o.baseDir = dir }
}

// Normalize validates raw and returns the canonical config.
//
// Every problem is collected; on failure the error is a [*ValidationError]
// with problems in a stable order. Defaults are a pure function of the entry
// key: a static entry without filename gets "<key>.json", a collection
// without dir gets "<key>". Normalize does not touch the filesystem.
func Normalize(raw Raw, opts ...NormalizeOption) (*Config, error) {
	var o normalizeOptions
	for _, opt := range opts {
		opt(&o)
	}

	n := normalizer{}

	cfg := &Config{
		RepoID:         raw.Repo,
		ContentRoot:    orDefault(raw.ContentPath, DefaultContentPath),
		StaticDir:      orDefault(raw.StaticDir, DefaultStaticDir),
		CollectionsDir: orDefault(raw.CollectionsDir, DefaultCollectionsDir),
		static:         make(map[string]StaticEntry, len(raw.Static)),
		collections:    make(map[string]Collection, len(raw.Collections)),
	}

	n.checkRepo(raw.Repo, o.lenientRepo)

	cfg.ContentRoot = filepath.Clean(cfg.ContentRoot)
	if o.baseDir != "" && !filepath.IsAbs(cfg.ContentRoot) {
		cfg.ContentRoot = filepath.Join(o.baseDir, cfg.ContentRoot)
	}

	n.checkDir("staticDir", cfg.StaticDir)
	n.checkDir("collectionsDir", cfg.CollectionsDir)

	if raw.Static == nil {
		n.add("static", ErrMissingField)
	}

	filenames := map[string]string{}

	for _, name := range slices.Sorted(maps.Keys(raw.Static)) {
		entry := raw.Static[name]
		base := "static." + name

		filename := name + content.DocumentExt
		if entry.Filename != nil {
			filename = *entry.Filename
		}

		if n.checkFilename(base+".filename", filename) {
			if other, dup := filenames[filename]; dup {
				n.add(base+".filename", fmt.Errorf("%w: %q also used by static.%s", ErrDuplicatePath, filename, other))
			}

			filenames[filename] = name
		}

		shape := n.entrySchema(base+".schema", entry.Schema)
		cfg.static[name] = StaticEntry{Filename: filename, Shape: shape}
	}

	switch {
	case raw.Collections == nil:
		n.add("collections", ErrMissingField)
	case len(raw.Collections) == 0:
		n.add("collections", ErrNoCollections)
	}

	dirs := map[string]string{}

	for _, name := range slices.Sorted(maps.Keys(raw.Collections)) {
		entry := raw.Collections[name]
		base := "collections." + name

		dir := name
		if entry.Dir != nil {
			dir = *entry.Dir
		}

		if err := content.CheckRelPath(dir); err != nil {
			n.add(base+".dir", err)
		} else {
			if other, dup := dirs[dir]; dup {
				n.add(base+".dir", fmt.Errorf("%w: %q also used by collections.%s", ErrDuplicatePath, dir, other))
			}

			dirs[dir] = name
		}

		shape := n.entrySchema(base+".schema", entry.Schema)
		cfg.collections[name] = Collection{Dir: dir, Shape: shape}
	}

	if len(n.problems) > 0 {
		return nil, &ValidationError{Problems: n.problems}
	}

	return cfg, nil
}

type normalizer struct {
	problems []Problem
}

func (n *normalizer) add(path string, err error) {
	n.problems = append(n.problems, Problem{Path: path, Err: err})
}

func (n *normalizer) checkRepo(repo string, lenient bool) {
	switch {
	case strings.TrimSpace(repo) == "":
		n.add("repo", ErrMissingField)
	case !lenient && !repoIDPattern.MatchString(repo):
		n.add("repo", fmt.Errorf("%w: %q (want <owner>/<name>)", ErrInvalidRepoID, repo))
	}
}

func (n *normalizer) checkDir(path, dir string) {
	if err := content.CheckDir(dir); err != nil {
		n.add(path, err)
	}
}

func (n *normalizer) checkFilename(path, filename string) bool {
	if err := content.CheckRelPath(filename); err != nil {
		n.add(path, err)

		return false
	}

	if !strings.HasSuffix(filename, content.DocumentExt) || filename == content.DocumentExt {
		n.add(path, fmt.Errorf("%w: %q must end with %s", ErrInvalidPath, filename, content.DocumentExt))

		return false
	}

	return true
}

func (n *normalizer) entrySchema(path string, raw map[string]any) *schema.Shape {
	if raw == nil {
		n.add(path, ErrMissingField)

		return nil
	}

	return schema.Object(n.fields(path, raw, 1))
}

// fields parses a raw schema object. depth counts object levels, the entry
// schema being 1.
func (n *normalizer) fields(path string, raw map[string]any, depth int) map[string]*schema.Shape {
	out := make(map[string]*schema.Shape, len(raw))

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		fieldPath := path + "." + key

		switch v := raw[key].(type) {
		case string:
			s, err := schema.ParseTag(v)
			if err != nil {
				n.add(fieldPath, fmt.Errorf("key %q: %w", key, err))

				continue
			}

			out[key] = s
		case map[string]any:
			if depth >= schema.MaxDepth {
				n.add(fieldPath, fmt.Errorf("%w: more than %d levels", ErrShapeTooDeep, schema.MaxDepth))

				continue
			}

			out[key] = schema.Object(n.fields(fieldPath, v, depth+1))
		default:
			n.add(fieldPath, fmt.Errorf("%w: key %q has value %v (%T)", ErrInvalidFieldType, key, v, v))
		}
	}

	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
