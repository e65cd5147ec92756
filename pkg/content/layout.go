package content

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layout is the path-only view of a configuration the adapter needs.
//
// Static documents live in ContentRoot/StaticDir, collection members in
// ContentRoot/CollectionsDir/<dir>. StaticDir and CollectionsDir are relative
// to ContentRoot.
type Layout struct {
	ContentRoot    string
	StaticDir      string
	CollectionsDir string
}

// DocumentExt is the file extension that marks collection members.
const DocumentExt = ".json"

// LockFileName is the lock file created under the content root.
const LockFileName = ".cms.lock"

func (l Layout) validate() error {
	if l.ContentRoot == "" {
		return fmt.Errorf("%w: empty content root", ErrInvalidLayout)
	}

	if err := CheckDir(l.StaticDir); err != nil {
		return fmt.Errorf("%w: static dir: %w", ErrInvalidLayout, err)
	}

	if err := CheckDir(l.CollectionsDir); err != nil {
		return fmt.Errorf("%w: collections dir: %w", ErrInvalidLayout, err)
	}

	return nil
}

// StaticPath returns the static document path relative to the content root.
func (l Layout) StaticPath(filename string) string {
	return filepath.Join(l.StaticDir, filename)
}

// CollectionPath returns the collection directory relative to the content root.
func (l Layout) CollectionPath(dir string) string {
	return filepath.Join(l.CollectionsDir, dir)
}

// DocumentPath returns the path of a collection member relative to the
// content root.
func (l Layout) DocumentPath(dir, name string) string {
	return filepath.Join(l.CollectionsDir, dir, name)
}

// CheckRelPath validates a path that must name a file below a root.
// The path must be non-empty, relative, clean, and must not escape the root.
func CheckRelPath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}

	if filepath.IsAbs(path) {
		return fmt.Errorf("%w: absolute path %q", ErrInvalidPath, path)
	}

	if filepath.Clean(path) != path {
		return fmt.Errorf("%w: path %q must be clean", ErrInvalidPath, path)
	}

	if path == "." || path == ".." {
		return fmt.Errorf("%w: path %q must be a file", ErrInvalidPath, path)
	}

	if strings.HasPrefix(path, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: path %q escapes its root", ErrInvalidPath, path)
	}

	return nil
}

// CheckDir is like [CheckRelPath] but also accepts "." for the root itself.
func CheckDir(dir string) error {
	if dir == "." {
		return nil
	}

	return CheckRelPath(dir)
}
