package app

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/richview/internal/config"
)

// NewLogger builds the application logger. Format "console" writes
// human-readable lines, anything else writes JSON. A nil out means stderr.
func NewLogger(cfg config.Logging, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	var log zerolog.Logger
	if cfg.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(out)
	}

	return log.Level(ParseLogLevel(cfg.Level)).With().Timestamp().Logger()
}

// ParseLogLevel converts a configured level name to a zerolog level.
// Unknown names mean info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
