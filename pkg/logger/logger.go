// Package logger builds the service's structured zerolog logger. The process
// builds one at startup and passes it down by value.
//
//	TRACE (-1) → DEBUG (0) → INFO (1) → WARN (2) → ERROR (3)
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// Pretty enables human-friendly console output.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service, when set, is attached to every entry as "service".
	Service string
}

// New builds a logger from opts.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	ctx := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
