package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// newLogger creates a logger that writes to w in the console or json format.
func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "console":
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.TimeOnly,
		}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf(
			"invalid log format %q: must be console or json", format)
	}

	return zerolog.New(w).With().Timestamp().Logger().Level(lvl), nil
}
