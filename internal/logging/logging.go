// ABOUTME: Structured logger construction
// ABOUTME: Console and file writers, level parsing and per-run identifiers
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options selects where logs go
type Options struct {
	Level string
	// File is appended to when set
	File string
	// Console writes human-readable output to Stderr; disabled while the TUI owns the terminal
	Console bool
}

// Logger is a zerolog logger plus the file it may hold open
type Logger struct {
	zerolog.Logger
	RunID string
	file  *os.File
}

// New builds a logger tagged with a fresh run id
func New(opts Options) (*Logger, error) {
	return newWithWriter(opts, os.Stderr)
}

func newWithWriter(opts Options, console io.Writer) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var writers []io.Writer
	var file *os.File

	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	runID := uuid.New().String()
	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("run_id", runID).
		Logger()

	return &Logger{Logger: logger, RunID: runID, file: file}, nil
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
