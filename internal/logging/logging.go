package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls Setup.
type Options struct {
	// Debug lowers the level to debug; otherwise info.
	Debug bool
	// Console mirrors log lines to stderr in human-readable form.
	Console bool
	// File overrides the log file path. Empty uses DefaultLogFile.
	File string
	// NoFile disables the log file entirely.
	NoFile bool
}

// Setup configures the global logger. Every run appends JSON lines to the log
// file; -v adds a console writer on stderr.
func Setup(opts Options) (closer func() error) {
	level := zerolog.InfoLevel
	if opts.Debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	closer = func() error { return nil }
	var fileErr error
	logFile := opts.File
	if !opts.NoFile {
		if logFile == "" {
			logFile = DefaultLogFile()
		}
		f, err := openLogFile(logFile)
		if err == nil {
			writers = append(writers, f)
			closer = f.Close
		}
		fileErr = err
	}

	var out io.Writer = io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	if opts.Debug {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", logFile).Msg("Failed to open log file, logging to console only")
	}
	log.Debug().Bool("debug", opts.Debug).Str("logFile", logFile).Msg("Logger initialized")
	return closer
}

// GetLogger returns a logger tagged with a component name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// DefaultLogFile is $XDG_STATE_HOME/qsync/qsync.log.
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, "qsync", "qsync.log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// LogOperationStart logs the start of an operation and returns a function
// that logs its completion with the elapsed time.
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("Operation started")
	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
