// package shared defines shared helpers
package shared

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that appends to the file at path, creating parent directories as needed.
//
// Used by the terminal UI so log lines do not interleave with rendering.
func NewFileLogger(path string) (*log.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(f), nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel maps a configured level name to a [log.Level], defaulting to info.
func ParseLogLevel(s string) log.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// LogWriter is an [io.Writer] that emits each complete line as a log entry at a fixed level.
//
// Used to stream child process output into the application log.
type LogWriter struct {
	logger *log.Logger
	level  log.Level
	kv     []any
	buf    []byte
}

// NewLogWriter creates a writer logging lines to l at level with kv attached.
func NewLogWriter(l *log.Logger, level log.Level, kv ...any) *LogWriter {
	return &LogWriter{logger: l, level: level, kv: kv}
}

func (w *LogWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush emits any trailing partial line.
func (w *LogWriter) Flush() {
	if len(w.buf) > 0 {
		w.emit(w.buf)
		w.buf = nil
	}
}

func (w *LogWriter) emit(line []byte) {
	text := strings.TrimRight(string(line), "\r")
	if text == "" {
		return
	}
	w.logger.Log(w.level, text, w.kv...)
}
