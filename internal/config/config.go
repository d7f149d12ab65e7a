// Package config loads mmt's layered JSONC configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailscale/hujson"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	ModsDir      string `json:"mods_dir"`
	MetaFile     string `json:"meta_file"`
	PackDir      string `json:"pack_dir,omitempty"`
	PackWorkers  int    `json:"pack_workers,omitempty"`
	SettingsFile string `json:"settings_file,omitempty"`
	LogLevel     string `json:"log_level,omitempty"`
	LogFormat    string `json:"log_format,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd    string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	PackDirAbs      string `json:"-"` // Absolute pack output directory
	SettingsFileAbs string `json:"-"` // Absolute settings file path

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default values.
const (
	DefaultModsDir     = "Mods"
	DefaultMetaFile    = "meta.lsx"
	DefaultPackDir     = "."
	DefaultPackWorkers = 2
	DefaultLogLevel    = "warn"
	DefaultLogFormat   = "text"
)

// FileName is the project config file name.
const FileName = ".mmt.json"

// Errors returned while loading configuration.
var (
	ErrFileNotFound   = errors.New("config file not found")
	ErrFileRead       = errors.New("cannot read config file")
	ErrInvalid        = errors.New("invalid config file")
	ErrModsDirEmpty   = errors.New("mods_dir cannot be empty")
	ErrMetaFileEmpty  = errors.New("meta_file cannot be empty")
	ErrNotPlainName   = errors.New("must be a plain name without path separators")
	ErrWorkersInvalid = errors.New("pack_workers must be positive")
	ErrNoSettingsPath = errors.New("cannot determine settings file location (set settings_file, $XDG_CONFIG_HOME or $HOME)")
)

// Default returns the default configuration.
func Default() Config {
	return Config{
		ModsDir:     DefaultModsDir,
		MetaFile:    DefaultMetaFile,
		PackDir:     DefaultPackDir,
		PackWorkers: DefaultPackWorkers,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
	}
}

// appConfigDir returns $XDG_CONFIG_HOME/mmt or ~/.config/mmt.
// Returns empty string if neither variable is set.
func appConfigDir(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "mmt")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "mmt")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Config            // non-zero fields from CLI flags win
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/mmt/config.json or ~/.config/mmt/config.json)
// 3. Project config file .mmt.json in the working directory, if it exists
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()
	appDir := appConfigDir(input.Env)

	if appDir != "" {
		globalPath := filepath.Join(appDir, "config.json")

		globalCfg, loaded, err := loadFile(globalPath, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = globalPath
			cfg = merge(cfg, globalCfg)
		}
	}

	projectPath, mustExist := filepath.Join(workDir, FileName), false
	if input.ConfigPath != "" {
		projectPath, mustExist = resolve(workDir, input.ConfigPath), true
	}

	projectCfg, loaded, err := loadFile(projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, projectCfg)
	}

	cfg = merge(cfg, input.Overrides)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.PackDirAbs = resolve(workDir, cfg.PackDir)

	switch {
	case cfg.SettingsFile != "":
		cfg.SettingsFileAbs = resolve(workDir, cfg.SettingsFile)
	case appDir != "":
		cfg.SettingsFileAbs = filepath.Join(appDir, "settings.json")
	default:
		return Config{}, ErrNoSettingsPath
	}

	return cfg, nil
}

func resolve(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// loadFile loads a config file. If mustExist is false, a missing file
// returns (zero, false, nil).
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return Config{}, false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}

			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrFileRead, path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return cfg, true, nil
}

// Parse decodes a JSONC config document. Unset fields stay zero.
func Parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(standardized, &raw); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicit "" would be indistinguishable from unset after decoding.
	for _, key := range []string{"mods_dir", "meta_file"} {
		if val, ok := raw[key].(string); ok && val == "" {
			return Config{}, fmt.Errorf("%s cannot be empty", key)
		}
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.ModsDir != "" {
		base.ModsDir = overlay.ModsDir
	}

	if overlay.MetaFile != "" {
		base.MetaFile = overlay.MetaFile
	}

	if overlay.PackDir != "" {
		base.PackDir = overlay.PackDir
	}

	if overlay.PackWorkers != 0 {
		base.PackWorkers = overlay.PackWorkers
	}

	if overlay.SettingsFile != "" {
		base.SettingsFile = overlay.SettingsFile
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.LogFormat != "" {
		base.LogFormat = overlay.LogFormat
	}

	return base
}

func validate(cfg Config) error {
	if cfg.ModsDir == "" {
		return ErrModsDirEmpty
	}

	if cfg.MetaFile == "" {
		return ErrMetaFileEmpty
	}

	for key, val := range map[string]string{"mods_dir": cfg.ModsDir, "meta_file": cfg.MetaFile} {
		if strings.ContainsAny(val, `/\`) || val == "." || val == ".." {
			return fmt.Errorf("%w: %s %w", ErrInvalid, key, ErrNotPlainName)
		}
	}

	if cfg.PackWorkers <= 0 {
		return ErrWorkersInvalid
	}

	return nil
}

// Format renders the serialized part of cfg as indented JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("formatting config: %w", err)
	}

	return string(data), nil
}
