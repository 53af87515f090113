package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component field helpers for common component names
func Component(name string) Field {
	return String("component", name)
}

func ParticipantID(id string) Field {
	return String("participant_id", id)
}

func OpID(id string) Field {
	return String("op_id", id)
}

func ClientOpID(id string) Field {
	return String("client_op_id", id)
}

func Seq(seq uint64) Field {
	return Uint64("seq", seq)
}

func Pointer(ptr int) Field {
	return Int("pointer", ptr)
}

func Kind(kind string) Field {
	return String("kind", kind)
}

func MessageType(t string) Field {
	return String("message_type", t)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
