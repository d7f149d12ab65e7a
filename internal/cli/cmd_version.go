package cli

import (
	"context"
	"fmt"
	"path/filepath"

	flag "github.com/spf13/pflag"
)

// VersionCmd returns the version command.
func VersionCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("version", flag.ContinueOnError),
		Usage: "version [dir]",
		Short: "Upgrade and print a workspace's mod version",
		Long: `Upgrade the meta file of a workspace and print its mod version.

Without a directory the selected workspace is used. The selection is not
changed.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			switch len(args) {
			case 0:
				return execVersion(o, a, "")
			case 1:
				return execVersion(o, a, a.abs(args[0]))
			default:
				return fmt.Errorf("%w: version takes at most one directory", ErrArgCount)
			}
		},
	}
}

func execVersion(o *IO, a *app, dir string) error {
	if dir == "" {
		store, err := a.settings()
		if err != nil {
			return err
		}

		dir = store.RebuildLocation()
		if dir == "" {
			return ErrNoWorkspace
		}
	}

	res, err := a.updater().Lookup(dir)
	if err != nil {
		return err
	}

	o.KV("workspace", dir)

	if res.Path == "" {
		o.Warn("no meta file in "+dir,
			"expected "+filepath.Join(dir, a.cfg.ModsDir, "<mod>", a.cfg.MetaFile))
		printVersion(o, 0, false)

		return nil
	}

	o.KV("meta", res.Path)
	o.KV("rewritten", res.Rewritten)

	if !res.Found {
		o.Warn("no unique ModuleInfo Version64 in "+res.Path, "check the ModuleInfo node of the meta file")
	}

	printVersion(o, res.Version, res.Found)

	return nil
}
