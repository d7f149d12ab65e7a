// Package log builds the [slog.Handler] used by mmt.
package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Supported formats.
const (
	TextFormat   = "text"
	LogfmtFormat = "logfmt"
	JSONFormat   = "json"
)

var (
	ErrInvalidLevel  = errors.New("invalid log level")
	ErrInvalidFormat = errors.New("invalid log format")
)

// CreateHandler creates a [slog.Handler] writing to w.
func CreateHandler(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	level, err := GetLevel(logLevel)
	if err != nil {
		return nil, err
	}

	formatter, err := getFormatter(logFormat)
	if err != nil {
		return nil, err
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:     level,
		Formatter: formatter,
		Prefix:    "mmt",
	}), nil
}

// GetLevel parses a level name. "trace" maps to debug and "fatal"/"panic"
// map to error, so flags shared with other tools keep working.
func GetLevel(level string) (charmlog.Level, error) {
	switch strings.ToLower(level) {
	case "trace", "debug":
		return charmlog.DebugLevel, nil
	case "", "info":
		return charmlog.InfoLevel, nil
	case "warn", "warning":
		return charmlog.WarnLevel, nil
	case "error", "fatal", "panic":
		return charmlog.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
}

func getFormatter(format string) (charmlog.Formatter, error) {
	switch strings.ToLower(format) {
	case "", TextFormat:
		return charmlog.TextFormatter, nil
	case LogfmtFormat:
		return charmlog.LogfmtFormatter, nil
	case JSONFormat:
		return charmlog.JSONFormatter, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}
