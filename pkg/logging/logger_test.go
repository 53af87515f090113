package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeEntry(t *testing.T, line []byte) LogEntry {
	t.Helper()
	var entry LogEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		t.Fatalf("Failed to unmarshal record %q: %v", line, err)
	}
	return entry
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		entries = append(entries, decodeEntry(t, []byte(line)))
	}
	return entries
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %v, want %v", tt.level, got, tt.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"Error", ErrorLevel},
		{"verbose", InfoLevel}, // unknown falls back
		{"", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestDomainFieldConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value any
	}{
		{"ParticipantID", ParticipantID("p-7"), "participant_id", "p-7"},
		{"OpID", OpID("op-12"), "op_id", "op-12"},
		{"ClientOpID", ClientOpID("c-3"), "client_op_id", "c-3"},
		{"Seq", Seq(41), "seq", uint64(41)},
		{"Pointer", Pointer(-1), "pointer", -1},
		{"Kind", Kind("erase"), "kind", "erase"},
		{"MessageType", MessageType("COMMIT_END"), "message_type", "COMMIT_END"},
		{"Component", Component("hub"), "component", "hub"},
		{"Count", Count(15), "count", 15},
		{"Latency", Latency(250 * time.Millisecond), "latency", "250ms"},
		{"Duration", Duration("timeout", 5 * time.Second), "timeout", "5s"},
		{"Error", Error(errors.New("send buffer full")), "error", "send buffer full"},
		{"Error_nil", Error(nil), "error", nil},
		{"Bool", Bool("diverged", true), "diverged", true},
		{"Float64", Float64("x", 12.5), "x", 12.5},
		{"Int64", Int64("bytes", 1 << 20), "bytes", int64(1 << 20)},
		{"Any", Any("stats", map[string]int{"participants": 3}), "stats", map[string]int{"participants": 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.field.Key, tt.key)
			}
			switch want := tt.value.(type) {
			case map[string]int:
				got, ok := tt.field.Value.(map[string]int)
				if !ok || got["participants"] != want["participants"] {
					t.Errorf("value = %v, want %v", tt.field.Value, want)
				}
			default:
				if tt.field.Value != tt.value {
					t.Errorf("value = %v, want %v", tt.field.Value, tt.value)
				}
			}
		})
	}
}

func TestJSONLogger_EmitsCommitRecord(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("Operation committed",
		OpID("op-9"),
		Seq(9),
		Kind("draw"),
		Pointer(8),
	)

	entry := decodeEntry(t, buf.Bytes())
	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "Operation committed" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
	if entry.Fields["op_id"] != "op-9" {
		t.Errorf("op_id = %v, want op-9", entry.Fields["op_id"])
	}
	// JSON numbers decode as float64
	if entry.Fields["seq"] != float64(9) {
		t.Errorf("seq = %v, want 9", entry.Fields["seq"])
	}
	if entry.Fields["pointer"] != float64(8) {
		t.Errorf("pointer = %v, want 8", entry.Fields["pointer"])
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("Staged pending operation", ClientOpID("c-1"))
	logger.Info("Participant connected", ParticipantID("p-1"))
	logger.Warn("Broadcast dropped", ParticipantID("p-2"))
	logger.Error("Mirror diverged", Pointer(4))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 records past the WARN threshold, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("Levels = %v, %v; want WARN, ERROR", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLogger_WithBindsSessionFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	// The hub stamps a session's logger once at connect time
	session := logger.With(Component("hub"), ParticipantID("p-3"))
	session.Info("Cursor moved", MessageType("CURSOR"))

	entry := decodeEntry(t, buf.Bytes())
	if entry.Fields["component"] != "hub" {
		t.Errorf("component = %v, want hub", entry.Fields["component"])
	}
	if entry.Fields["participant_id"] != "p-3" {
		t.Errorf("participant_id = %v, want p-3", entry.Fields["participant_id"])
	}
	if entry.Fields["message_type"] != "CURSOR" {
		t.Errorf("message_type = %v, want CURSOR", entry.Fields["message_type"])
	}
}

func TestJSONLogger_CallSiteFieldsWinOverBound(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel).With(Pointer(3))

	logger.Info("Pointer moved", Pointer(1))

	entry := decodeEntry(t, buf.Bytes())
	if entry.Fields["pointer"] != float64(1) {
		t.Errorf("pointer = %v, want the call-site value 1", entry.Fields["pointer"])
	}
}

func TestJSONLogger_ChildDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	parent.With(ParticipantID("p-1"))

	parent.Info("Session closed")

	entry := decodeEntry(t, buf.Bytes())
	if entry.Fields != nil {
		t.Errorf("Parent inherited the child's fields: %v", entry.Fields)
	}
}

func TestJSONLogger_SetLevelAtRuntime(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	if logger.GetLevel() != InfoLevel {
		t.Fatalf("Initial level = %v, want InfoLevel", logger.GetLevel())
	}

	// The SIGHUP path raises verbosity on a live process
	logger.SetLevel(DebugLevel)
	logger.Debug("Staged pending operation", ClientOpID("c-1"))
	if buf.Len() == 0 {
		t.Error("Debug record suppressed after SetLevel(DebugLevel)")
	}

	buf.Reset()
	logger.SetLevel(ErrorLevel)
	logger.Info("Participant connected")
	logger.Warn("Broadcast dropped")
	if buf.Len() != 0 {
		t.Error("Sub-error records emitted at ErrorLevel")
	}
}

func TestJSONLogger_FieldsOmittedWhenEmpty(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Info("Server listening")

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if _, exists := raw["fields"]; exists {
		t.Error("fields key present on a record with no fields")
	}
}

func TestTimedOperation_EndRecordsLatency(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	// The shape of the resync path: open the span with the session
	// fields, do the work, end it
	timer := StartTimer(logger, "Resync sent", ParticipantID("p-5"), Count(120))
	timer.End()

	entry := decodeEntry(t, buf.Bytes())
	if entry.Message != "Resync sent" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["participant_id"] != "p-5" {
		t.Errorf("participant_id = %v, want p-5", entry.Fields["participant_id"])
	}
	latency, ok := entry.Fields["latency"].(string)
	if !ok || latency == "" {
		t.Errorf("latency = %v, want a duration string", entry.Fields["latency"])
	}
	if _, err := time.ParseDuration(latency); err != nil {
		t.Errorf("latency %q does not parse as a duration: %v", latency, err)
	}
}

func TestTimedOperation_EndWithLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected string
	}{
		{"debug", DebugLevel, "DEBUG"},
		{"info", InfoLevel, "INFO"},
		{"warn", WarnLevel, "WARN"},
		{"error", ErrorLevel, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewJSONLogger(&buf, DebugLevel)

			timer := StartTimer(logger, "Checkpoint render", Pointer(19))
			timer.EndWithLevel(tt.level, "Checkpoint render finished")

			entry := decodeEntry(t, buf.Bytes())
			if entry.Level != tt.expected {
				t.Errorf("Level = %v, want %v", entry.Level, tt.expected)
			}
			if entry.Message != "Checkpoint render finished" {
				t.Errorf("Message = %v", entry.Message)
			}
			if entry.Fields["pointer"] != float64(19) {
				t.Errorf("pointer = %v, want 19", entry.Fields["pointer"])
			}
		})
	}
}

func TestTimedOperation_EndError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	timer := StartTimer(logger, "Resync sent", ParticipantID("p-5"))
	timer.EndError(errors.New("send buffer full"))

	entry := decodeEntry(t, buf.Bytes())
	if entry.Level != "ERROR" {
		t.Errorf("Level = %v, want ERROR", entry.Level)
	}
	if entry.Fields["error"] != "send buffer full" {
		t.Errorf("error = %v, want the failure text", entry.Fields["error"])
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Error("latency field missing from an errored span")
	}
}

func TestNopLogger_DiscardsEverything(t *testing.T) {
	logger := NewNopLogger()

	// No output to assert on; the point is that chaining never panics
	logger.With(Component("mirror")).Error("Mirror diverged", Pointer(3))
	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v, want the fixed InfoLevel", logger.GetLevel())
	}
}

func TestGlobalHelpers(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))

	Debug("Staged pending operation")
	Info("Participant connected")
	Warn("Broadcast dropped")
	ErrorLog("Mirror diverged")
	With(Component("client")).Info("Reconnected")

	entries := decodeLines(t, &buf)
	if len(entries) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(entries))
	}
	for i, want := range []string{"DEBUG", "INFO", "WARN", "ERROR", "INFO"} {
		if entries[i].Level != want {
			t.Errorf("Record %d level = %v, want %v", i, entries[i].Level, want)
		}
	}
	if entries[4].Fields["component"] != "client" {
		t.Errorf("component = %v, want client", entries[4].Fields["component"])
	}
}

func BenchmarkJSONLogger_CommitRecord(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("Operation committed", OpID("op-1"), Seq(1), Pointer(0))
	}
}

func BenchmarkJSONLogger_Filtered(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, ErrorLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("Staged pending operation", ClientOpID("c-1"))
	}
}
