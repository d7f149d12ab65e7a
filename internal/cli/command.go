package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one mmt subcommand.
//
// Text output is key=value lines written by Exec. Commands that set JSON
// also accept --json, which replaces the text output with the value JSON
// returns, indented. Warnings go to stderr either way.
type Command struct {
	// Flags holds the command's own flags. Its name is unused.
	Flags *flag.FlagSet

	// Usage follows "mmt " in help, e.g. "pack [-o dir] <source>...".
	// Its first word is the command name.
	Usage string
	Short string
	// Long is shown by --help. Short is used when it is empty.
	Long string

	Exec func(ctx context.Context, o *IO, args []string) error
	JSON func(ctx context.Context, o *IO, args []string) (any, error)
}

// Name returns the first word of Usage.
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")

	return name
}

// HelpLine is the command's row in the global usage listing.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-28s %s", c.Usage, c.Short)
}

func (c *Command) flags() *flag.FlagSet {
	if c.Flags == nil {
		c.Flags = flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	}

	if c.JSON != nil && c.Flags.Lookup("json") == nil {
		c.Flags.Bool("json", false, "Print the result as JSON")
	}

	return c.Flags
}

// PrintHelp writes "mmt <cmd> --help" output.
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: mmt", c.Usage)
	o.Println()

	if c.Long != "" {
		o.Println(c.Long)
	} else {
		o.Println(c.Short)
	}

	flags := c.flags()
	if !flags.HasFlags() {
		return
	}

	var buf strings.Builder

	flags.SetOutput(&buf)
	flags.PrintDefaults()
	flags.SetOutput(&strings.Builder{})

	o.Println()
	o.Println("Flags:")
	o.Printf("%s", buf.String())
}

// Run parses args, runs the command and returns the exit code. Errors and
// warnings go to stderr.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	flags := c.flags()
	flags.SetOutput(&strings.Builder{})

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)

			return 0
		}

		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	if err := c.exec(ctx, o, flags); err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}

func (c *Command) exec(ctx context.Context, o *IO, flags *flag.FlagSet) error {
	if asJSON, _ := flags.GetBool("json"); asJSON && c.JSON != nil {
		v, err := c.JSON(ctx, o, flags.Args())
		if err != nil {
			return err
		}

		return o.JSON(v)
	}

	return c.Exec(ctx, o, flags.Args())
}
