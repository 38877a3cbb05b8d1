// Package telemetry provides structured logging and search metrics,
// reconstructed in the idiom implied by the teacher's
// `logger.With(LogParams{...}).Debug(...)` call sites on top of the
// teacher's direct logrus dependency.
package telemetry

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is the structured-logging payload, renamed from the teacher's
// LogParams.
type Fields map[string]any

// Logger wraps a *logrus.Logger with the teacher's With(Fields) call
// shape.
type Logger struct {
	base *logrus.Logger
}

// New returns a Logger writing JSON lines to w at level.
func New(w io.Writer, level logrus.Level) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	return &Logger{base: l}
}

// NewDefault returns a Logger writing to stderr at Info level, the logger
// cmd/premosa uses (it has no logging flags).
func NewDefault() *Logger {
	return New(os.Stderr, logrus.InfoLevel)
}

// Entry is a logger bound to a fixed set of fields.
type Entry struct {
	entry *logrus.Entry
}

// With returns an Entry carrying fields, mirroring the teacher's
// `logger.With(LogParams{...})` call shape exactly.
func (l *Logger) With(fields Fields) *Entry {
	return &Entry{entry: l.base.WithFields(logrus.Fields(fields))}
}

func (e *Entry) Debug(msg string) { e.entry.Debug(msg) }
func (e *Entry) Info(msg string)  { e.entry.Info(msg) }
func (e *Entry) Warn(msg string)  { e.entry.Warn(msg) }
func (e *Entry) Error(msg string) { e.entry.Error(msg) }

// Logger also exposes the bare, no-fields log calls directly, for call
// sites with nothing structured to attach.
func (l *Logger) Debug(msg string) { l.base.Debug(msg) }
func (l *Logger) Info(msg string)  { l.base.Info(msg) }
func (l *Logger) Warn(msg string)  { l.base.Warn(msg) }
func (l *Logger) Error(msg string) { l.base.Error(msg) }
