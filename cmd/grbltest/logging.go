package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "GRBLTEST_LOG_LEVEL"

func newLogger(w io.Writer, level string) zerolog.Logger {
	if env := strings.TrimSpace(os.Getenv(EnvLogLevel)); env != "" {
		level = env
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
