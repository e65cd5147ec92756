// Package fs provides the filesystem seam used by the content store.
//
// The main types are:
//   - [FS]: interface for the filesystem operations the store performs
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using [os] and atomic renames
//   - [Locker]: advisory flock(2) locks on lock files
//   - [Chaos]: testing implementation that injects failures on chosen paths
//
// Example usage:
//
//	fsys := fs.NewReal()
//	data, err := fsys.ReadFile("content/static/home.json")
//	if errors.Is(err, os.ErrNotExist) {
//	    // not found
//	}
package fs

import (
	"io"
	"os"
)

// File represents an OS-backed open file descriptor.
//
// This interface is satisfied by [os.File]. Implementations must behave like
// [os.File], including that [File.Fd] returns a valid OS file descriptor
// usable with flock until the file is closed.
type File interface {
	io.ReadWriteCloser

	// Fd returns the file descriptor. See [os.File.Fd].
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error
}

// FS defines the filesystem operations used for reading, writing and
// deleting documents.
//
// All methods mirror their [os] package equivalents (same error semantics,
// so [os.ErrNotExist] checks keep working) and can be intercepted for
// testing with fault injection.
//
// Paths use OS semantics, not the slash-separated paths of io/fs.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces the file at path with data.
	// Writes a temp file in the same directory, syncs it and renames it over
	// path, so readers observe either the old or the new content, never a
	// partial write.
	WriteFileAtomic(path string, data []byte) error

	// ReadDir reads a directory and returns its entries. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	// No error if the directory already exists.
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
