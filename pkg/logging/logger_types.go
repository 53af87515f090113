package logging

import "strings"

// Level orders record severities. Records below a logger's level are
// dropped before any field merging or serialization happens.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < DebugLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config or environment string to a Level. Unknown
// strings fall back to InfoLevel rather than failing, so a typo in a
// config file never silences the server.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Field is one structured key-value pair attached to a record.
// Constructors live in logger_fields.go; most call sites go through
// the domain helpers (ParticipantID, Seq, Pointer) rather than raw
// keys, which keeps field names consistent across packages.
type Field struct {
	Key   string
	Value any
}

// Logger is what the hub, server, mirror, and client log through.
// JSONLogger is the concrete implementation; tests and embedded
// consumers that want silence use NewNopLogger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// With returns a child logger with the given fields bound to every
	// subsequent record
	With(fields ...Field) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// LogEntry is the wire shape of one emitted record
type LogEntry struct {
	Time    string         `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"msg"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// NopLogger discards everything
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field) {}
func (NopLogger) Info(string, ...Field)  {}
func (NopLogger) Warn(string, ...Field)  {}
func (NopLogger) Error(string, ...Field) {}
func (n NopLogger) With(...Field) Logger { return n }
func (NopLogger) SetLevel(Level)         {}
func (NopLogger) GetLevel() Level        { return InfoLevel }

// NewNopLogger returns a logger that drops every record
func NewNopLogger() Logger {
	return NopLogger{}
}
