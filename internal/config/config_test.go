package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mmt/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	home := t.TempDir()

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: workDir,
		Env:             map[string]string{"HOME": home},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := config.Default()
	want.EffectiveCwd = workDir
	want.PackDirAbs = workDir
	want.SettingsFileAbs = filepath.Join(home, ".config", "mmt", "settings.json")

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Precedence(t *testing.T) {
	t.Parallel()

	workDir := t.TempDir()
	xdg := t.TempDir()

	writeFile(t, filepath.Join(xdg, "mmt", "config.json"), `{
		// global
		"mods_dir": "GlobalMods",
		"pack_workers": 4,
		"log_level": "info",
	}`)
	writeFile(t, filepath.Join(workDir, config.FileName), `{"mods_dir": "ProjectMods", "pack_dir": "out"}`)

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: workDir,
		Overrides:       config.Config{LogLevel: "debug"},
		Env:             map[string]string{"XDG_CONFIG_HOME": xdg},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := config.Config{
		ModsDir:     "ProjectMods",
		MetaFile:    config.DefaultMetaFile,
		PackDir:     "out",
		PackWorkers: 4,
		LogLevel:    "debug",
		LogFormat:   config.DefaultLogFormat,
		PackDirAbs:  filepath.Join(workDir, "out"),
		Sources: config.Sources{
			Global:  filepath.Join(xdg, "mmt", "config.json"),
			Project: filepath.Join(workDir, config.FileName),
		},
	}

	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(config.Config{}, "EffectiveCwd", "SettingsFileAbs")); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExplicitConfigMustExist(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.LoadInput{
		WorkDirOverride: t.TempDir(),
		ConfigPath:      "missing.json",
		Env:             map[string]string{"HOME": t.TempDir()},
	})
	if !errors.Is(err, config.ErrFileNotFound) {
		t.Fatalf("err=%v, want %v", err, config.ErrFileNotFound)
	}
}

func TestLoad_Rejects(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		want    error
	}{
		{name: "EmptyModsDir", content: `{"mods_dir": ""}`, want: config.ErrInvalid},
		{name: "PathInMetaFile", content: `{"meta_file": "a/meta.lsx"}`, want: config.ErrNotPlainName},
		{name: "NegativeWorkers", content: `{"pack_workers": -1}`, want: config.ErrWorkersInvalid},
		{name: "Garbage", content: `{`, want: config.ErrInvalid},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			workDir := t.TempDir()
			writeFile(t, filepath.Join(workDir, config.FileName), testCase.content)

			_, err := config.Load(config.LoadInput{
				WorkDirOverride: workDir,
				Env:             map[string]string{"HOME": t.TempDir()},
			})
			if !errors.Is(err, testCase.want) {
				t.Fatalf("err=%v, want %v", err, testCase.want)
			}
		})
	}
}

func TestLoad_NoSettingsLocation(t *testing.T) {
	t.Parallel()

	_, err := config.Load(config.LoadInput{WorkDirOverride: t.TempDir(), Env: map[string]string{}})
	if !errors.Is(err, config.ErrNoSettingsPath) {
		t.Fatalf("err=%v, want %v", err, config.ErrNoSettingsPath)
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: t.TempDir(),
		Overrides:       config.Config{SettingsFile: "state.json"},
		Env:             map[string]string{},
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got, want := cfg.SettingsFileAbs, filepath.Join(cfg.EffectiveCwd, "state.json"); got != want {
		t.Fatalf("SettingsFileAbs=%q, want %q", got, want)
	}
}
