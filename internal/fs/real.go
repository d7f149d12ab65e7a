package fs

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

// Real implements [FS] using the real filesystem.
//
// Most methods are passthroughs to the [os] package. The exceptions are
// [Real.Exists] which wraps [os.Stat], [Real.WriteFileAtomic] which writes
// through a temp file and rename, and [Real.Lock] which uses flock(2).
type Real struct {
	// LockTimeout bounds how long [Real.Lock] waits. Zero means the default.
	LockTimeout time.Duration
}

// NewReal returns a new [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

// A passthrough wrapper for [os.Open].
func (r *Real) Open(path string) (File, error) {
	return os.Open(path)
}

// A passthrough wrapper for [os.ReadFile].
func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *Real) WriteFileAtomic(path string, reader io.Reader) error {
	return atomic.WriteFile(path, reader)
}

// A passthrough wrapper for [os.ReadDir].
func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

// A passthrough wrapper for [os.MkdirAll].
func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// A passthrough wrapper for [os.Stat].
func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

// Exists checks if a file exists using [os.Stat].
func (r *Real) Exists(path string) (bool, error) {
	return exists(r.Stat(path))
}

func exists(_ os.FileInfo, err error) (bool, error) {
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// --- Locking ---

const (
	defaultLockTimeout = 2 * time.Second
	lockPerms          = 0o644
)

// ErrLockTimeout is returned when a lock cannot be acquired in time.
var ErrLockTimeout = errors.New("lock timeout")

// realLock holds an exclusive file lock.
type realLock struct {
	path string
	file *os.File
}

// Close releases the lock and removes the lock file.
// Order matters: remove while holding lock, then unlock, then close.
func (l *realLock) Close() error {
	if l.file == nil {
		return nil
	}

	_ = os.Remove(l.path)
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	err := l.file.Close()
	l.file = nil

	return err
}

// LockPath returns the lock file used to guard path, a hidden sibling of it.
func LockPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".lock")
}

// Lock acquires an exclusive flock on the lock file for path.
// Handles the race between flock acquisition and lock file deletion by
// verifying the inode after acquiring the lock.
func (r *Real) Lock(path string) (Locker, error) {
	lockPath := LockPath(path)

	timeout := r.LockTimeout
	if timeout <= 0 {
		timeout = defaultLockTimeout
	}

	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrLockTimeout
		}

		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, lockPerms)
		if err != nil {
			return nil, err
		}

		// Get inode of the file we opened.
		var openStat unix.Stat_t
		if err := unix.Fstat(int(file.Fd()), &openStat); err != nil {
			_ = file.Close()

			return nil, err
		}

		fd := int(file.Fd())
		done := make(chan error, 1)

		go func() {
			done <- unix.Flock(fd, unix.LOCK_EX)
		}()

		select {
		case err := <-done:
			if err != nil {
				_ = file.Close()

				return nil, err
			}

			// Verify the file at the path still has the same inode.
			// If not, someone deleted and recreated it while we were waiting.
			var pathStat unix.Stat_t
			if err := unix.Stat(lockPath, &pathStat); err != nil || pathStat.Ino != openStat.Ino {
				_ = unix.Flock(fd, unix.LOCK_UN)
				_ = file.Close()

				continue
			}

			return &realLock{path: lockPath, file: file}, nil

		case <-time.After(remaining):
			_ = file.Close()

			return nil, ErrLockTimeout
		}
	}
}

// Compile-time interface check.
var _ FS = (*Real)(nil)
