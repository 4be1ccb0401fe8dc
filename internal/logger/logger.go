// Package logger provides process-wide structured logging for docintel.
// Warnings and errors are always written; debug and info messages are
// written only in verbose mode (the --verbose flag). Output goes to stderr
// as human-readable console lines on a terminal and as JSON otherwise.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	log               = build(os.Stderr, false)
)

// build creates the zerolog logger for the current output and verbosity.
func build(w io.Writer, v bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if v {
		level = zerolog.DebugLevel
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	log = build(output, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = build(output, verbose)
}

// Logger returns a child logger tagged with a component name, for
// adapters that want structured fields.
func Logger(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log.With().Str("component", component).Logger()
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msg(fmt.Sprintf(format, args...))
}

// Section logs a pipeline stage marker if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Str("section", name).Msg("=== " + name + " ===")
}

// Info logs an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error with its cause.
func Error(err error, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Err(err).Msg(fmt.Sprintf(format, args...))
}
