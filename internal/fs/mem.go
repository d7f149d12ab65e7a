package fs

import (
	"io"
	iofs "io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"
)

const memFilePerms = 0o644

// Mem implements [FS] on an in-memory afero filesystem.
//
// Locks are in-process only: each path maps to its own mutex.
type Mem struct {
	fs afero.Fs

	guard sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMem returns an empty in-memory filesystem.
func NewMem() *Mem {
	return NewMemOn(afero.NewMemMapFs())
}

// NewMemOn wraps an existing afero filesystem.
func NewMemOn(base afero.Fs) *Mem {
	return &Mem{
		fs:    base,
		locks: map[string]*sync.Mutex{},
	}
}

// Afero exposes the underlying filesystem for test setup.
func (m *Mem) Afero() afero.Fs {
	return m.fs
}

func (m *Mem) Open(path string) (File, error) {
	return m.fs.Open(path)
}

func (m *Mem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(m.fs, path)
}

// WriteFileAtomic buffers the whole input before touching path, so a failing
// reader leaves the old content in place.
func (m *Mem) WriteFileAtomic(path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	return afero.WriteFile(m.fs, path, data, memFilePerms)
}

func (m *Mem) ReadDir(path string) ([]os.DirEntry, error) {
	infos, err := afero.ReadDir(m.fs, path)
	if err != nil {
		return nil, err
	}

	entries := make([]os.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, iofs.FileInfoToDirEntry(info))
	}

	return entries, nil
}

func (m *Mem) MkdirAll(path string, perm os.FileMode) error {
	return m.fs.MkdirAll(path, perm)
}

func (m *Mem) Stat(path string) (os.FileInfo, error) {
	return m.fs.Stat(path)
}

func (m *Mem) Exists(path string) (bool, error) {
	return exists(m.Stat(path))
}

type memLock struct {
	once sync.Once
	mu   *sync.Mutex
}

func (l *memLock) Close() error {
	l.once.Do(l.mu.Unlock)

	return nil
}

func (m *Mem) Lock(path string) (Locker, error) {
	m.guard.Lock()

	mu, ok := m.locks[path]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[path] = mu
	}

	m.guard.Unlock()

	mu.Lock()

	return &memLock{mu: mu}, nil
}

// Compile-time interface check.
var _ FS = (*Mem)(nil)
