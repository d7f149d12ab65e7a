package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"mmt/internal/version"
)

// ErrInvalidLegacy is returned by encode for input that is not a 32-bit integer.
var ErrInvalidLegacy = errors.New("legacy version must be a 32-bit integer")

// EncodeCmd returns the encode command.
func EncodeCmd() *Command {
	return &Command{
		Flags: flag.NewFlagSet("encode", flag.ContinueOnError),
		Usage: "encode <legacy>",
		Short: "Convert a legacy 32-bit version to Version64",
		Long: `Convert a legacy 32-bit version, as stored in a meta file's Version
attribute, to its 64-bit Version64 form. Negative values are read as their
32-bit pattern.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: encode takes one value", ErrArgCount)
			}

			legacy, err := parseLegacy(args[0])
			if err != nil {
				return err
			}

			o.KV("version", version.UnpackLegacy(legacy))
			o.KV("version64", version.FromLegacy(legacy))

			return nil
		},
	}
}

func parseLegacy(s string) (uint32, error) {
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return uint32(int32(n)), nil
	}

	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLegacy, s)
	}

	return uint32(n), nil
}

// DecodeCmd returns the decode command.
func DecodeCmd() *Command {
	return &Command{
		Usage: "decode [--json] <version64|a.b.c.d>",
		Short: "Show all forms of a version",
		Long: `Show the dotted, Version64 and legacy forms of a version given either as
a Version64 number or as major.minor.revision.build.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			v, err := decodeArg(args)
			if err != nil {
				return err
			}

			o.KV("version", v)
			o.KV("version64", v.Packed())

			if v.FitsLegacy() {
				o.KV("legacy", v.Legacy())
			} else {
				o.KV("legacy", "(out of range)")
			}

			return nil
		},
		JSON: func(_ context.Context, _ *IO, args []string) (any, error) {
			v, err := decodeArg(args)
			if err != nil {
				return nil, err
			}

			view := decodeView{Version: v.String(), Version64: v.Packed()}

			if v.FitsLegacy() {
				legacy := v.Legacy()
				view.Legacy = &legacy
			}

			return view, nil
		},
	}
}

type decodeView struct {
	Version   string  `json:"version"`
	Version64 uint64  `json:"version64"`
	Legacy    *uint32 `json:"legacy"`
}

func decodeArg(args []string) (version.Version, error) {
	if len(args) != 1 {
		return version.Version{}, fmt.Errorf("%w: decode takes one value", ErrArgCount)
	}

	return parseAnyVersion(args[0])
}

func parseAnyVersion(s string) (version.Version, error) {
	s = strings.TrimSpace(s)

	if strings.Contains(s, ".") {
		return version.Parse(s)
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return version.Version{}, fmt.Errorf("%w: %q", version.ErrInvalidFormat, s)
	}

	if n > version.MaxPacked {
		return version.Version{}, fmt.Errorf("%w: %d exceeds %d", version.ErrFieldRange, n, version.MaxPacked)
	}

	return version.Unpack(n), nil
}
