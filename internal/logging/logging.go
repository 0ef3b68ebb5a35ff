// Package logging is the single entry point the rest of this bridge logs
// through; no other package imports charmbracelet/log directly, mirroring
// the teacher tool's convention of one log.go that every other module
// calls into rather than each rolling its own console/file handling.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Level is one of the four verbosity buckets this logger distinguishes;
// lower values are more verbose. The config's 0-5 log_level (0 = debug
// ... 5 = errors only, default 5) is mapped onto these buckets by the
// caller.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func toCharm(l Level) log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

// Logger is the process-wide structured logger.
type Logger struct {
	inner *log.Logger
	file  *os.File
}

// Options configures New.
type Options struct {
	Level        Level
	Logfile      string
	LogToConsole bool
}

// New builds a Logger writing to a file, the console, both, or (if
// neither is configured) discarding everything.
func New(opts Options) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if opts.Logfile != "" {
		f, err := os.OpenFile(opts.Logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		file = f
		writers = append(writers, f)
	}
	if opts.LogToConsole {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer
	if len(writers) == 1 {
		out = writers[0]
	} else {
		out = io.MultiWriter(writers...)
	}

	l := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
	})
	l.SetLevel(toCharm(opts.Level))

	return &Logger{inner: l, file: file}, nil
}

// Close releases the underlying log file, if one was opened.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.inner.Error(msg, kv...) }

// With returns a Logger with the given key/value pairs attached to every
// subsequent entry, the way a per-Bridge logger is derived from the
// process logger.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{inner: l.inner.With(kv...), file: l.file}
}
