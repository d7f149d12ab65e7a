// Package fs provides the filesystem abstraction used by mmt.
//
// The main types are:
//   - [FS]: interface for the filesystem operations mmt needs
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using [os] and flock(2)
//   - [Mem]: in-memory implementation for tests, backed by afero
//
// Example usage:
//
//	fsys := fs.NewReal()
//	data, err := fsys.ReadFile("Mods/MyMod/meta.lsx")
//	if err != nil {
//	    return err
//	}
package fs

import (
	"io"
	"os"
)

// File represents an open file for reading.
//
// This interface is satisfied by [os.File] and by afero files.
type File interface {
	io.ReadCloser

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)
}

// Locker represents a held file lock.
// Call [Locker.Close] to release the lock.
//
// Example:
//
//	lock, err := fsys.Lock("meta.lsx")
//	if err != nil {
//	    return err // lock contention or timeout
//	}
//	defer lock.Close()
type Locker interface {
	io.Closer
}

// FS defines the filesystem operations for reading, writing and locking files.
//
// All methods mirror their [os] package equivalents, so errors can be
// inspected with [errors.Is] against [os.ErrNotExist] and friends.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes the contents of r to path atomically.
	// Readers see either the old file or the new one, never a partial write.
	WriteFileAtomic(path string, r io.Reader) error

	// ReadDir reads a directory and returns its entries sorted by name.
	// See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Lock acquires an exclusive lock guarding path.
	// Blocks until the lock is acquired or returns an error on timeout.
	Lock(path string) (Locker, error)
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
