package utils

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. format is "console" or
// "json"; level is any zerolog level name.
func InitLogger(w io.Writer, level, format string) error {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	switch format {
	case "", "console":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger().Level(lvl)
	case "json":
		log.Logger = zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	default:
		return fmt.Errorf("invalid log format %q (want console or json)", format)
	}
	return nil
}
