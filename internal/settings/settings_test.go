package settings_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mmt/internal/fs"
	"mmt/internal/settings"
)

func TestFileStore_Load_MissingFile_IsEmpty(t *testing.T) {
	t.Parallel()

	store := settings.NewFileStore(fs.NewReal(), filepath.Join(t.TempDir(), "settings.json"))

	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := store.RebuildLocation(); got != "" {
		t.Fatalf("RebuildLocation=%q, want empty", got)
	}
}

func TestFileStore_Save_Then_Load_RoundTrips(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	store := settings.NewFileStore(fs.NewReal(), path)
	store.SetRebuildLocation("/games/mods/workspace")

	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := settings.NewFileStore(fs.NewReal(), path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := reloaded.RebuildLocation(), "/games/mods/workspace"; got != want {
		t.Fatalf("RebuildLocation=%q, want %q", got, want)
	}

	if _, err := os.Stat(fs.LockPath(path)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestFileStore_Load_AcceptsComments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.json")
	content := `{
  // picked last week
  "rebuild_location": "/w",
}`

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store := settings.NewFileStore(fs.NewReal(), path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := store.RebuildLocation(); got != "/w" {
		t.Fatalf("RebuildLocation=%q, want /w", got)
	}
}

func TestFileStore_Load_RejectsGarbage(t *testing.T) {
	t.Parallel()

	fsys := fs.NewMem()
	path := "/cfg/settings.json"

	if err := fsys.MkdirAll("/cfg", 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := fsys.WriteFileAtomic(path, strings.NewReader("{not json")); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := settings.NewFileStore(fsys, path).Load()
	if !errors.Is(err, settings.ErrSettingsInvalid) {
		t.Fatalf("err=%v, want %v", err, settings.ErrSettingsInvalid)
	}
}

func TestMemStore_CountsSaves(t *testing.T) {
	t.Parallel()

	store := settings.NewMemStore("/w")
	store.SetRebuildLocation("")

	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if store.RebuildLocation() != "" || store.Saves() != 1 {
		t.Fatalf("location=%q saves=%d", store.RebuildLocation(), store.Saves())
	}
}
