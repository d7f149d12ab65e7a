// Package settings persists the user settings that outlive a single run,
// currently only the last selected rebuild workspace.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tailscale/hujson"

	"mmt/internal/fs"
)

const dirPerms = 0o755

// Store holds settings between process start and stop.
// Load is called once at start; Save after every change that must persist.
type Store interface {
	Load() error
	Save() error
	RebuildLocation() string
	SetRebuildLocation(dir string)
}

// Errors returned by [FileStore].
var (
	ErrSettingsInvalid = errors.New("invalid settings file")
)

type values struct {
	RebuildLocation string `json:"rebuild_location,omitempty"`
}

// FileStore keeps settings in a JSON file. Comments and trailing commas are
// accepted on read.
type FileStore struct {
	fs   fs.FS
	path string

	mu     sync.Mutex
	values values
}

// NewFileStore returns a store backed by the file at path.
// Nothing is read until [FileStore.Load].
func NewFileStore(fsys fs.FS, path string) *FileStore {
	return &FileStore{fs: fsys, path: path}
}

// Path returns the settings file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the settings file. A missing file loads as empty settings.
func (s *FileStore) Load() error {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.values = values{}
			s.mu.Unlock()

			return nil
		}

		return fmt.Errorf("reading settings: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrSettingsInvalid, s.path, err)
	}

	var loaded values
	if err := json.Unmarshal(standardized, &loaded); err != nil {
		return fmt.Errorf("%w %s: %w", ErrSettingsInvalid, s.path, err)
	}

	s.mu.Lock()
	s.values = loaded
	s.mu.Unlock()

	return nil
}

// Save writes the settings atomically while holding the file's lock.
func (s *FileStore) Save() error {
	s.mu.Lock()
	data, err := json.MarshalIndent(s.values, "", "  ")
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	data = append(data, '\n')

	if err := s.fs.MkdirAll(filepath.Dir(s.path), dirPerms); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}

	lock, err := s.fs.Lock(s.path)
	if err != nil {
		return fmt.Errorf("locking settings: %w", err)
	}

	defer func() { _ = lock.Close() }()

	if err := s.fs.WriteFileAtomic(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}

	return nil
}

func (s *FileStore) RebuildLocation() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.values.RebuildLocation
}

func (s *FileStore) SetRebuildLocation(dir string) {
	s.mu.Lock()
	s.values.RebuildLocation = dir
	s.mu.Unlock()
}

// MemStore is a [Store] that never touches disk.
type MemStore struct {
	mu       sync.Mutex
	location string
	saves    int
}

// NewMemStore returns a store preloaded with a rebuild location.
func NewMemStore(location string) *MemStore {
	return &MemStore{location: location}
}

func (m *MemStore) Load() error { return nil }

func (m *MemStore) Save() error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()

	return nil
}

func (m *MemStore) RebuildLocation() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.location
}

func (m *MemStore) SetRebuildLocation(dir string) {
	m.mu.Lock()
	m.location = dir
	m.mu.Unlock()
}

// Saves reports how many times Save was called.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}

// Compile-time interface checks.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*MemStore)(nil)
)
