package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// JSONLogger writes one JSON object per record, newline-delimited.
// With returns children sharing the writer; bound fields are copied so
// a child never aliases its parent's slice. A single mutex serializes
// writes, which is enough for the session sizes this server handles.
type JSONLogger struct {
	writer io.Writer
	level  Level
	bound  []Field
	mu     sync.Mutex
}

func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	return &JSONLogger{writer: w, level: level}
}

// NewDefaultLogger returns an info-level logger on stdout
func NewDefaultLogger() *JSONLogger {
	return NewJSONLogger(os.Stdout, InfoLevel)
}

func (l *JSONLogger) emit(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339Nano),
		Level:   level.String(),
		Message: msg,
	}
	// Call-site fields win over bound fields on key collision
	if n := len(l.bound) + len(fields); n > 0 {
		merged := make(map[string]any, n)
		for _, f := range l.bound {
			merged[f.Key] = f.Value
		}
		for _, f := range fields {
			merged[f.Key] = f.Value
		}
		entry.Fields = merged
	}

	data, err := json.Marshal(entry)
	if err != nil {
		// A record that cannot marshal still leaves a trace
		fmt.Fprintf(l.writer, "{\"level\":\"ERROR\",\"msg\":\"unloggable record: %v\"}\n", err)
		return
	}
	l.writer.Write(append(data, '\n'))
}

func (l *JSONLogger) Debug(msg string, fields ...Field) { l.emit(DebugLevel, msg, fields) }
func (l *JSONLogger) Info(msg string, fields ...Field)  { l.emit(InfoLevel, msg, fields) }
func (l *JSONLogger) Warn(msg string, fields ...Field)  { l.emit(WarnLevel, msg, fields) }
func (l *JSONLogger) Error(msg string, fields ...Field) { l.emit(ErrorLevel, msg, fields) }

// With binds fields to a child logger. The hub uses this to stamp every
// record of a session with the participant id once at connect time.
func (l *JSONLogger) With(fields ...Field) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	bound := make([]Field, 0, len(l.bound)+len(fields))
	bound = append(bound, l.bound...)
	bound = append(bound, fields...)

	return &JSONLogger{
		writer: l.writer,
		level:  l.level,
		bound:  bound,
	}
}

// SetLevel changes the minimum level at runtime. The server rewires
// this to SIGHUP so verbosity can be raised on a live process.
func (l *JSONLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *JSONLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

var (
	defaultLogger Logger
	defaultOnce   sync.Once
)

// DefaultLogger returns the process-wide logger, created lazily on
// first use with LOG_LEVEL from the environment. The binaries normally
// install a configured logger via SetDefaultLogger before anything
// logs through the package-level helpers.
func DefaultLogger() Logger {
	defaultOnce.Do(func() {
		level := InfoLevel
		if s := os.Getenv("LOG_LEVEL"); s != "" {
			level = ParseLevel(s)
		}
		defaultLogger = NewJSONLogger(os.Stdout, level)
	})
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// Package-level helpers for code without an injected logger.

func Debug(msg string, fields ...Field) { DefaultLogger().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { DefaultLogger().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { DefaultLogger().Warn(msg, fields...) }

// ErrorLog logs at error level through the default logger. The name
// leaves Error free for the field constructor.
func ErrorLog(msg string, fields ...Field) { DefaultLogger().Error(msg, fields...) }

func With(fields ...Field) Logger { return DefaultLogger().With(fields...) }

// TimedOperation measures one span, start to finish. Obtain one with
// StartTimer and call exactly one of End, EndWithLevel, or EndError
// when the work completes; each emits a single record carrying the
// elapsed time as a latency field.
type TimedOperation struct {
	logger Logger
	msg    string
	fields []Field
	start  time.Time
}

// StartTimer opens a span. The hub wraps resync assembly in one so
// slow full-state sends show up in the logs with their duration.
func StartTimer(logger Logger, msg string, fields ...Field) *TimedOperation {
	return &TimedOperation{
		logger: logger,
		msg:    msg,
		fields: fields,
		start:  time.Now(),
	}
}

// End finishes the span at info level with the message it was opened with
func (t *TimedOperation) End() {
	t.logger.Info(t.msg, append(t.fields, Latency(time.Since(t.start)))...)
}

// EndWithLevel finishes the span at a chosen level with a different
// message, for spans whose outcome decides their severity
func (t *TimedOperation) EndWithLevel(level Level, msg string) {
	fields := append(t.fields, Latency(time.Since(t.start)))
	switch level {
	case DebugLevel:
		t.logger.Debug(msg, fields...)
	case WarnLevel:
		t.logger.Warn(msg, fields...)
	case ErrorLevel:
		t.logger.Error(msg, fields...)
	default:
		t.logger.Info(msg, fields...)
	}
}

// EndError finishes the span at error level, attaching the failure
func (t *TimedOperation) EndError(err error) {
	t.logger.Error(t.msg, append(t.fields, Latency(time.Since(t.start)), Error(err))...)
}
