// Package log is the diagnostic sink for pwait. All narration goes to
// the error stream, one line per event, so operators can follow the
// negotiate/attach/wait/extract sequence without it polluting the
// single-line report on stdout.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// maxMessageLen bounds a single diagnostic line. Longer messages are
// truncated, never an error.
const maxMessageLen = 1024

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelDebug,
}))

// Options configures the sink.
type Options struct {
	// Stderr is the writer for diagnostic output (defaults to os.Stderr)
	Stderr io.Writer
	// Level is the minimum level emitted
	Level slog.Level
}

// Init replaces the package logger with one built from opts.
func Init(opts Options) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level: opts.Level,
	}))
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) {
	logger.Debug(truncate(fmt.Sprintf(format, args...)))
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) {
	logger.Info(truncate(fmt.Sprintf(format, args...)))
}

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) {
	logger.Warn(truncate(fmt.Sprintf(format, args...)))
}

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) {
	logger.Error(truncate(fmt.Sprintf(format, args...)))
}

func truncate(msg string) string {
	if len(msg) <= maxMessageLen {
		return msg
	}
	return msg[:maxMessageLen]
}
