// Package logging builds the zerolog logger shared by the server components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// New creates a logger writing to out in the given format. Unknown levels fall
// back to info; a nil out means stdout.
func New(level, format string, out io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if out == nil {
		out = os.Stdout
	}

	writer := out
	if format == FormatPretty {
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(writer).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
