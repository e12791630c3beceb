// Package logging provides the structured Logger used across the segment
// orchestrator, ASR worker, and wire server.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the narrow logging surface every component depends on, matching
// the shape every provider package already expects.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoOpLogger discards everything. Used as the zero-value default in tests.
type NoOpLogger struct{}

func (NoOpLogger) Debug(msg string, args ...interface{}) {}
func (NoOpLogger) Info(msg string, args ...interface{})  {}
func (NoOpLogger) Warn(msg string, args ...interface{})  {}
func (NoOpLogger) Error(msg string, args ...interface{}) {}

// logrusLogger adapts a *logrus.Logger to the Logger interface, pairing the
// variadic key/value args up into logrus fields.
type logrusLogger struct {
	entry *logrus.Entry
}

// New builds a Logger backed by logrus, writing JSON lines to stderr at the
// given level ("debug", "info", "warn", "error"). An unrecognized level
// falls back to "info".
func New(level string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.JSONFormatter{})
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debug(msg string, args ...interface{}) { l.entry.WithFields(fields(args)).Debug(msg) }
func (l *logrusLogger) Info(msg string, args ...interface{})  { l.entry.WithFields(fields(args)).Info(msg) }
func (l *logrusLogger) Warn(msg string, args ...interface{})  { l.entry.WithFields(fields(args)).Warn(msg) }
func (l *logrusLogger) Error(msg string, args ...interface{}) { l.entry.WithFields(fields(args)).Error(msg) }

// fields pairs up "key", value, "key", value, ... into a logrus.Fields map.
// A trailing unpaired argument is logged under "extra".
func fields(args []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2+1)
	i := 0
	for ; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = "arg"
		}
		f[key] = args[i+1]
	}
	if i < len(args) {
		f["extra"] = args[i]
	}
	return f
}
