// Package content reads and writes JSON documents below a content root.
//
// An [Adapter] exposes six operations: reading a static document, listing a
// collection directory, reading any document by path, writing a static
// document, writing any document by path, and deleting a document. Writes and
// deletes can carry an expected checksum; a mismatch fails with a
// [*ConflictError] and leaves the file untouched.
//
// Guarded writes run under an in-process mutex and an flock(2) on
// <contentRoot>/.cms.lock, and commit via temp file + rename. Writers that ignore
// the lock file still overwrite each other.
package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/cms/pkg/fs"
)

// Operation names used in errors, logs and observer callbacks.
const (
	OpReadStatic     = "read_static"
	OpListCollection = "list_collection"
	OpReadFile       = "read_file"
	OpWriteStatic    = "write_static"
	OpWriteFile      = "write_file"
	OpDeleteFile     = "delete_file"
)

const dirPerm = 0o755

// WriteOptions controls guarded writes and deletes.
type WriteOptions struct {
	// ExpectedChecksum, when set, must match the checksum of the current
	// file. A missing file counts as a match for writes but not for deletes.
	ExpectedChecksum string
}

// Adapter performs document I/O for one [Layout].
//
// Adapter is safe for concurrent use. It never caches document content.
type Adapter struct {
	layout      Layout
	fs          fs.FS
	locker      *fs.Locker
	log         zerolog.Logger
	obs         Observer
	lockTimeout time.Duration
	locking     bool

	mu sync.Mutex
}

// New returns an adapter rooted at layout.ContentRoot.
func New(layout Layout, opts ...Option) (*Adapter, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		layout:      layout,
		fs:          fs.NewReal(),
		log:         zerolog.Nop(),
		obs:         nopObserver{},
		lockTimeout: DefaultLockTimeout,
		locking:     true,
	}

	for _, opt := range opts {
		opt(a)
	}

	a.locker = fs.NewLocker(a.fs)

	return a, nil
}

// Layout returns the adapter's layout.
func (a *Adapter) Layout() Layout { return a.layout }

// ReadStatic reads ContentRoot/StaticDir/filename.
func (a *Adapter) ReadStatic(ctx context.Context, filename string) ([]byte, error) {
	done := a.track(OpReadStatic)
	rel := a.layout.StaticPath(filename)

	if err := CheckRelPath(filename); err != nil {
		return nil, done(filename, err)
	}

	data, err := a.read(ctx, rel)

	return data, done(rel, err)
}

// ListCollection returns the names of the .json files in
// ContentRoot/CollectionsDir/dir, in the order the filesystem reports them.
// Subdirectories and other files are skipped.
func (a *Adapter) ListCollection(ctx context.Context, dir string) ([]string, error) {
	done := a.track(OpListCollection)
	rel := a.layout.CollectionPath(dir)

	if err := CheckRelPath(dir); err != nil {
		return nil, done(dir, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, done(rel, err)
	}

	entries, err := a.fs.ReadDir(a.abs(rel))
	if err != nil {
		return nil, done(rel, classify(err))
	}

	names := make([]string, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), DocumentExt) {
			continue
		}

		names = append(names, e.Name())
	}

	return names, done(rel, nil)
}

// ReadFile reads a document by path relative to the content root.
func (a *Adapter) ReadFile(ctx context.Context, relPath string) ([]byte, error) {
	done := a.track(OpReadFile)

	if err := a.checkDocPath(relPath); err != nil {
		return nil, done(relPath, err)
	}

	data, err := a.read(ctx, relPath)

	return data, done(relPath, err)
}

// WriteStatic replaces ContentRoot/StaticDir/filename with data and returns
// the checksum of data.
func (a *Adapter) WriteStatic(ctx context.Context, filename string, data []byte, opts WriteOptions) (string, error) {
	done := a.track(OpWriteStatic)
	rel := a.layout.StaticPath(filename)

	if err := CheckRelPath(filename); err != nil {
		return "", done(filename, err)
	}

	sum, err := a.write(ctx, OpWriteStatic, rel, data, opts)

	return sum, done(rel, err)
}

// WriteFile replaces the document at relPath (relative to the content root)
// with data and returns the checksum of data. Missing parent directories are
// created.
func (a *Adapter) WriteFile(ctx context.Context, relPath string, data []byte, opts WriteOptions) (string, error) {
	done := a.track(OpWriteFile)

	if err := a.checkDocPath(relPath); err != nil {
		return "", done(relPath, err)
	}

	sum, err := a.write(ctx, OpWriteFile, relPath, data, opts)

	return sum, done(relPath, err)
}

// DeleteFile removes the document at relPath. A missing file is always
// [ErrNotFound], guarded or not.
func (a *Adapter) DeleteFile(ctx context.Context, relPath string, opts WriteOptions) error {
	done := a.track(OpDeleteFile)

	if err := a.checkDocPath(relPath); err != nil {
		return done(relPath, err)
	}

	return done(relPath, a.remove(ctx, relPath, opts))
}

func (a *Adapter) read(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := a.fs.ReadFile(a.abs(rel))
	if err != nil {
		return nil, classify(err)
	}

	return data, nil
}

func (a *Adapter) write(ctx context.Context, op, rel string, data []byte, opts WriteOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	unlock, err := a.lock(ctx)
	if err != nil {
		return "", err
	}
	defer unlock()

	abs := a.abs(rel)

	if opts.ExpectedChecksum != "" {
		current, err := a.fs.ReadFile(abs)

		switch {
		case err == nil:
			if actual := Checksum(current); actual != opts.ExpectedChecksum {
				return "", a.conflict(op, rel, opts.ExpectedChecksum, actual)
			}
		case errors.Is(err, os.ErrNotExist):
			// Guard against a file that does not exist yet: create it.
		default:
			return "", fmt.Errorf("%w: reading current content: %w", ErrIO, err)
		}
	}

	if err := a.fs.MkdirAll(filepath.Dir(abs), dirPerm); err != nil {
		return "", fmt.Errorf("%w: creating parent directories: %w", ErrIO, err)
	}

	if err := a.fs.WriteFileAtomic(abs, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}

	sum := Checksum(data)

	a.log.Debug().
		Str("op", op).
		Str("path", rel).
		Int("bytes", len(data)).
		Str("checksum", sum).
		Bool("guarded", opts.ExpectedChecksum != "").
		Msg("document written")

	return sum, nil
}

func (a *Adapter) remove(ctx context.Context, rel string, opts WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := a.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	abs := a.abs(rel)

	if opts.ExpectedChecksum != "" {
		current, err := a.fs.ReadFile(abs)
		if err != nil {
			return classify(err)
		}

		if actual := Checksum(current); actual != opts.ExpectedChecksum {
			return a.conflict(OpDeleteFile, rel, opts.ExpectedChecksum, actual)
		}
	}

	if err := a.fs.Remove(abs); err != nil {
		return classify(err)
	}

	a.log.Debug().
		Str("op", OpDeleteFile).
		Str("path", rel).
		Bool("guarded", opts.ExpectedChecksum != "").
		Msg("document deleted")

	return nil
}

func (a *Adapter) conflict(op, rel, expected, actual string) error {
	a.log.Warn().
		Str("op", op).
		Str("path", rel).
		Str("expected", expected).
		Str("actual", actual).
		Msg("checksum conflict")

	return &ConflictError{Path: rel, Expected: expected, Actual: actual}
}

// lock serializes mutations within the process and, through the lock file,
// with other cooperating processes. The returned func releases both.
func (a *Adapter) lock(ctx context.Context) (func(), error) {
	if !a.locking {
		return func() {}, nil
	}

	a.mu.Lock()

	path := filepath.Join(a.layout.ContentRoot, LockFileName)

	lk, err := a.locker.TryLock(path)
	if errors.Is(err, fs.ErrWouldBlock) {
		a.log.Debug().Dur("timeout", a.lockTimeout).Msg("content lock held by another process, waiting")

		lk, err = a.locker.LockWithTimeout(path, a.lockTimeout)
	}

	if err != nil {
		a.mu.Unlock()

		return nil, fmt.Errorf("%w: acquiring content lock: %w", ErrIO, err)
	}

	release := func() {
		if err := lk.Close(); err != nil {
			a.log.Warn().Err(err).Msg("releasing content lock")
		}

		a.mu.Unlock()
	}

	if err := ctx.Err(); err != nil {
		release()

		return nil, err
	}

	return release, nil
}

func (a *Adapter) checkDocPath(rel string) error {
	if err := CheckRelPath(rel); err != nil {
		return err
	}

	if rel == LockFileName {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidPath, rel)
	}

	return nil
}

func (a *Adapter) abs(rel string) string {
	return filepath.Join(a.layout.ContentRoot, rel)
}

// track starts timing op. The returned func wraps err with op and path,
// reports the outcome and returns the wrapped error.
func (a *Adapter) track(op string) func(path string, err error) error {
	start := time.Now()

	return func(path string, err error) error {
		a.obs.ObserveOp(op, outcomeOf(err), time.Since(start))

		return wrapErr(op, path, err)
	}
}

// classify maps a filesystem error onto the package sentinels.
func classify(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return fmt.Errorf("%w: %w", ErrIO, err)
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	case errors.Is(err, ErrInvalidPath):
		return OutcomeInvalid
	default:
		return OutcomeIOError
	}
}
