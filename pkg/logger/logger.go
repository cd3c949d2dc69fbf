// Package logger wraps zerolog with the console/level conventions used
// across Aegis's background workers and HTTP façade.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how the process-wide logger is constructed.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool   // human-readable console output instead of JSON
}

// New creates a structured logger configured from cfg.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
