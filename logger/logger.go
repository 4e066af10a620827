// Package logger provides the structured logging interface used across rftool,
// backed by zerolog, with optional daily-rotated log files for bench systems
// that keep a history of sessions.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Field represents a key-value pair for structured log output.
type Field struct {
	Key   string
	Value any
}

// Logger is an interface for structured logging. Components receive a Logger
// and derive a scoped one with With (component name, session id, peer address).
type Logger interface {
	// Debug logs a message at debug level with optional structured fields.
	Debug(msg string, fields ...Field)

	// Info logs a message at info level with optional structured fields.
	Info(msg string, fields ...Field)

	// Warn logs a message at warn level with optional structured fields.
	Warn(msg string, fields ...Field)

	// Error logs a message at error level with optional structured fields.
	Error(msg string, fields ...Field)

	// With returns a new Logger that includes the given fields in all
	// subsequent log entries. The original Logger is unchanged.
	//
	// Parameters:
	//   - fields: Key-value pairs to attach to the derived logger
	//
	// Returns:
	//   - A new Logger with the specified fields
	With(fields ...Field) Logger

	// Close releases resources held by the logger (e.g. file handles).
	// It is safe to call multiple times.
	Close() error
}

// Options selects where and how log entries are written.
type Options struct {
	// Service is added as the "service" field of every entry and names log files.
	Service string
	// Level is the minimum level written (debug, info, warn, error).
	Level string
	// Format is "json" (default) or "console".
	Format string
	// Dir, when set, additionally writes entries to daily-rotated files in Dir.
	Dir string
	// Out overrides stdout as the primary destination.
	Out io.Writer
}

// zerologLogger is the zerolog-based implementation of Logger.
type zerologLogger struct {
	logger         zerolog.Logger
	fileWriter     *DailyFileWriter
	ownsFileWriter bool
}

// New builds a Logger from opts.
//
// Parameters:
//   - opts: Output, level and format selection
//
// Returns:
//   - The Logger, or an error if the level is invalid or the log directory
//     cannot be prepared
func New(opts Options) (Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var out io.Writer = os.Stdout
	if opts.Out != nil {
		out = opts.Out
	}

	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	var fileWriter *DailyFileWriter
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileWriter, err = NewDailyFileWriter(opts.Service, opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to create file writer: %w", err)
		}

		out = io.MultiWriter(out, fileWriter)
	}

	return &zerologLogger{
		logger:         zerolog.New(out).With().Str("service", opts.Service).Timestamp().Logger().Level(level),
		fileWriter:     fileWriter,
		ownsFileWriter: fileWriter != nil,
	}, nil
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zerologLogger{logger: zerolog.Nop()}
}

// ParseLevel converts a level name to a zerolog level. An empty name means info.
//
// Parameters:
//   - name: One of debug, info, warn, error (case-insensitive)
//
// Returns:
//   - The zerolog level, or an error for unknown names
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
}

// Debug implements Logger.
func (z *zerologLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug().Fields(toMap(fields)).Msg(msg)
}

// Info implements Logger.
func (z *zerologLogger) Info(msg string, fields ...Field) {
	z.logger.Info().Fields(toMap(fields)).Msg(msg)
}

// Warn implements Logger.
func (z *zerologLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn().Fields(toMap(fields)).Msg(msg)
}

// Error implements Logger.
func (z *zerologLogger) Error(msg string, fields ...Field) {
	z.logger.Error().Fields(toMap(fields)).Msg(msg)
}

// With implements Logger.
func (z *zerologLogger) With(fields ...Field) Logger {
	return &zerologLogger{
		logger:         z.logger.With().Fields(toMap(fields)).Logger(),
		fileWriter:     z.fileWriter,
		ownsFileWriter: false,
	}
}

// Close implements Logger.
func (z *zerologLogger) Close() error {
	if z.fileWriter != nil && z.ownsFileWriter {
		return z.fileWriter.Close()
	}

	return nil
}

// toMap converts a slice of Field into a map for zerolog.
func toMap(fields []Field) map[string]any {
	if len(fields) == 0 {
		return nil
	}

	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	return m
}
