package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger creates a new zerolog logger with console output
func NewLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return log.Output(output).With().Timestamp().Logger()
}

// NewLoggerWithLevel creates a new logger with a specific log level
func NewLoggerWithLevel(level zerolog.Level) zerolog.Logger {
	logger := NewLogger()
	return logger.Level(level)
}

// NewLoggerFromString parses level names like "debug" or "warn".
// Unknown names fall back to info.
func NewLoggerFromString(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return NewLoggerWithLevel(lvl)
}
