package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"mmt/internal/config"
	"mmt/internal/fs"
	"mmt/internal/log"
	"mmt/internal/lsx"
	"mmt/internal/pack"
	"mmt/internal/panel"
	"mmt/internal/settings"
)

// Errors returned by commands.
var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrArgCount       = errors.New("wrong number of arguments")
	ErrNoWorkspace    = errors.New("no workspace selected (run: mmt select <dir>)")
)

// Run is the main entry point. Returns exit code.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("mmt", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use the specified config `file`")
	logLevel := globals.String("log-level", "", "Log `level`: debug, info, warn, error")
	logFormat := globals.String("log-format", "", "Log `format`: text, logfmt, json")
	help := globals.BoolP("help", "h", false, "Show help")

	a := &app{}
	commands := newCommands(a)

	if len(args) > 0 {
		args = args[1:]
	}

	if err := globals.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globals, commands)

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals, commands)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		Overrides:       config.Config{LogLevel: *logLevel, LogFormat: *logFormat},
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	handler, err := log.CreateHandler(errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a.cfg = cfg
	a.fs = fs.NewReal()
	a.log = slog.New(handler)

	var cmd *Command

	for _, c := range commands {
		if c.Name() == rest[0] {
			cmd = c

			break
		}
	}

	if cmd == nil {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", ErrUnknownCommand, rest[0]))
		printUsage(errOut, globals, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				a.log.Debug("interrupted")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(out, errOut), rest[1:])
}

func newCommands(a *app) []*Command {
	return []*Command{
		SelectCmd(a),
		VersionCmd(a),
		StatusCmd(a),
		PackCmd(a),
		EncodeCmd(),
		DecodeCmd(),
		PrintConfigCmd(a),
	}
}

// app holds what commands share once configuration is loaded.
type app struct {
	cfg config.Config
	fs  fs.FS
	log *slog.Logger
}

func (a *app) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	return filepath.Join(a.cfg.EffectiveCwd, path)
}

func (a *app) settings() (*settings.FileStore, error) {
	store := settings.NewFileStore(a.fs, a.cfg.SettingsFileAbs)
	if err := store.Load(); err != nil {
		return nil, err
	}

	return store, nil
}

func (a *app) updater() *lsx.Updater {
	return lsx.New(a.fs, lsx.Options{
		ModsDir:  a.cfg.ModsDir,
		MetaFile: a.cfg.MetaFile,
		Logger:   a.log,
	})
}

func (a *app) packer(outputDir string) *pack.ZipPacker {
	return &pack.ZipPacker{
		FS:        a.fs,
		OutputDir: outputDir,
		Workers:   a.cfg.PackWorkers,
		Logger:    a.log,
	}
}

// panel restores the stored workspace into a new panel. A workspace that
// fails to restore is reported as a warning.
func (a *app) panel(o *IO, packer pack.Packer) (*panel.Panel, error) {
	store, err := a.settings()
	if err != nil {
		return nil, err
	}

	p, err := panel.New(panel.Options{
		FS:       a.fs,
		Settings: store,
		Lookup:   a.updater(),
		Packer:   packer,
		Logger:   a.log,
	})
	if err != nil {
		o.Warn(fmt.Sprintf("restoring workspace %s: %v", store.RebuildLocation(), err), "fix it or select another workspace")
	}

	return p, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet, commands []*Command) {
	fprintln(w, `mmt - mod multitool: meta.lsx version upgrades and mod packing

Usage: mmt [flags] <command> [args]

Commands:`)

	for _, c := range commands {
		fprintln(w, c.HelpLine())
	}

	fprintln(w)
	fprintln(w, "Global flags:")

	var buf strings.Builder
	globals.SetOutput(&buf)
	globals.PrintDefaults()
	globals.SetOutput(&strings.Builder{})

	_, _ = io.WriteString(w, buf.String())
	fprintln(w)
	fprintln(w, `Run "mmt <command> --help" for command details.`)
}
