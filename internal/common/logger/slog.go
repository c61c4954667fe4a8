package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// SetupLogger configures a structured logger based on the provided configuration.
// Valid levels are: DEBUG, INFO, WARN, ERROR.
// If verboseMode is true, it overrides logLevel to DEBUG.
//
// When stderr is a terminal the tint handler is used for readable colored
// output; otherwise a plain text handler is used so redirected logs stay
// machine-parseable.
func SetupLogger(verboseMode bool, logLevel string) *slog.Logger {
	level := ParseLogLevel(logLevel)

	// Verbose mode overrides log level to DEBUG
	if verboseMode {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// ParseLogLevel converts a string log level to slog.Level.
// Defaults to INFO if an invalid level is provided.
func ParseLogLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
