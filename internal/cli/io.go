package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// IO is a command's view of stdout and stderr.
//
// Warnings are queued with [IO.Warn] and printed to stderr twice: before the
// first stdout line and again by [IO.Finish]. A command that warned exits 1
// even though its output was printed.
type IO struct {
	out      io.Writer
	errOut   io.Writer
	warnings []string
	flushed  bool
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn queues a warning made of what went wrong and what to do about it.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, issue+": "+action)
}

func (o *IO) Println(a ...any) {
	o.flushWarnings()
	_, _ = fmt.Fprintln(o.out, a...)
}

func (o *IO) Printf(format string, a ...any) {
	o.flushWarnings()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// KV prints one key=value line.
func (o *IO) KV(key string, value any) {
	o.Printf("%s=%v\n", key, value)
}

// JSON prints v as indented JSON.
func (o *IO) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}

	o.Println(string(data))

	return nil
}

func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish repeats the warnings and returns the exit code: 1 if anything
// warned, else 0.
func (o *IO) Finish() int {
	o.flushWarnings()

	if len(o.warnings) == 0 {
		return 0
	}

	o.printWarnings()

	return 1
}

func (o *IO) flushWarnings() {
	if o.flushed || len(o.warnings) == 0 {
		return
	}

	o.flushed = true
	o.printWarnings()
}

func (o *IO) printWarnings() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
