package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"mmt/internal/version"
)

// SelectCmd returns the select command.
func SelectCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("select", flag.ContinueOnError),
		Usage: "select <dir>",
		Short: "Select the rebuild workspace",
		Long: `Select the rebuild workspace and remember it for later runs.

The workspace's meta file (<dir>/Mods/<mod>/meta.lsx) is upgraded to the
64-bit Version64 field and the mod version is printed.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: select takes one directory", ErrArgCount)
			}

			return execSelect(o, a, a.abs(args[0]))
		},
	}
}

func execSelect(o *IO, a *app, dir string) error {
	if info, err := a.fs.Stat(dir); err != nil || !info.IsDir() {
		o.Warn("not a directory: "+dir, "select an existing workspace folder")
	}

	p, err := a.panel(o, nil)
	if err != nil {
		return err
	}

	if err := p.SelectDirectory(dir); err != nil {
		return err
	}

	state := p.State()

	o.KV("workspace", state.LastDirectory)
	printVersion(o, state.Version, state.HasVersion)

	return nil
}

func printVersion(o *IO, packed uint64, ok bool) {
	if !ok {
		o.KV("version", "(none)")

		return
	}

	o.KV("version", version.Unpack(packed).String())
	o.KV("version64", packed)
}
