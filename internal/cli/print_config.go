package cli

import (
	"context"
	"encoding/json"

	"mmt/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Usage: "print-config [--json]",
		Short: "Show resolved configuration",
		Long: `Display the effective configuration and which files it was loaded from.
With --json, print the merged settings in config file form.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			execPrintConfig(o, &a.cfg)

			return nil
		},
		JSON: func(context.Context, *IO, []string) (any, error) {
			formatted, err := config.Format(a.cfg)
			if err != nil {
				return nil, err
			}

			return json.RawMessage(formatted), nil
		},
	}
}

func execPrintConfig(o *IO, cfg *config.Config) {
	o.KV("effective_cwd", cfg.EffectiveCwd)
	o.KV("mods_dir", cfg.ModsDir)
	o.KV("meta_file", cfg.MetaFile)
	o.KV("pack_dir", cfg.PackDirAbs)
	o.KV("pack_workers", cfg.PackWorkers)
	o.KV("settings_file", cfg.SettingsFileAbs)
	o.KV("log_level", cfg.LogLevel)
	o.KV("log_format", cfg.LogFormat)

	o.Println()
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")

		return
	}

	if cfg.Sources.Global != "" {
		o.KV("global_config", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.KV("project_config", cfg.Sources.Project)
	}
}
