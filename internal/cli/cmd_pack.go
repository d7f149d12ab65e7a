package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"mmt/internal/pack"
)

// PackCmd returns the pack command.
func PackCmd(a *app) *Command {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	fs.StringP("output", "o", "", "Write archives to `dir` (default: pack_dir)")

	return &Command{
		Flags: fs,
		Usage: "pack [-o dir] <source>...",
		Short: "Pack mod folders into archives",
		Long: `Pack each source folder into <dir>/<name>.zip, as if dropped on the drop box.

Hidden files and folders are left out. Every source is attempted; all
failures are reported together. The paths of written archives are printed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			output, _ := fs.GetString("output")

			return execPack(ctx, o, a, output, args)
		},
	}
}

func execPack(ctx context.Context, o *IO, a *app, output string, args []string) error {
	if len(args) == 0 {
		return pack.ErrNoSources
	}

	outputDir := a.cfg.PackDirAbs
	if output != "" {
		outputDir = a.abs(output)
	}

	sources := make([]string, len(args))
	for i, arg := range args {
		sources[i] = a.abs(arg)
	}

	p, err := a.panel(o, a.packer(outputDir))
	if err != nil {
		return err
	}

	task, err := p.Drop(ctx, sources)
	if err != nil {
		return err
	}

	outputs, err := task.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		// Interrupted: the packer stops at its next check and removes its
		// temporary files before the task completes.
		outputs, err = task.Wait(context.Background())
	}

	for _, out := range outputs {
		o.Println(out)
	}

	return err
}
