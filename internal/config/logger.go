package config

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger described by the logging section.
func (c LoggingConfig) NewLogger() zerolog.Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(c.Output, "stderr") {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = c.TimeFormat
	if strings.EqualFold(c.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: c.TimeFormat}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
