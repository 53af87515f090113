// Package protocol defines the wire contracts between sketch clients and
// the server. Messages are {type, data} envelopes carried over a transport
// that guarantees ordered, whole-message delivery per sender; no global
// ordering across senders is assumed.
package protocol

import (
	"encoding/json"
	"fmt"
)

// MessageType identifies the kind of a wire message
type MessageType string

const (
	// Client → server
	TypeCommitStart  MessageType = "COMMIT_START"
	TypeCommitStream MessageType = "COMMIT_STREAM"
	TypeCommitEnd    MessageType = "COMMIT_END"
	TypeClear        MessageType = "CLEAR"
	TypeCursor       MessageType = "CURSOR"
	TypeUndo         MessageType = "UNDO"
	TypeRedo         MessageType = "REDO"
	TypeResync       MessageType = "RESYNC"
	TypeIdentify     MessageType = "IDENTIFY"

	// Server → client. COMMIT_START, COMMIT_STREAM, COMMIT_END, CLEAR,
	// CURSOR, UNDO and REDO are reused as relay types with server-side
	// payloads that carry the author.
	TypeResyncResponse    MessageType = "RESYNC_RESPONSE"
	TypeParticipantJoined MessageType = "PARTICIPANT_JOINED"
	TypeParticipantLeft   MessageType = "PARTICIPANT_LEFT"
	TypeRejected          MessageType = "REJECTED"
)

// Message is the wire envelope
type Message struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with the given type and payload
func NewMessage(msgType MessageType, data any) (*Message, error) {
	if data == nil {
		return &Message{Type: msgType}, nil
	}

	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", msgType, err)
	}

	return &Message{Type: msgType, Data: dataBytes}, nil
}

// MustMessage creates a message and panics on encoding failure. Only for
// payload types that are known to marshal.
func MustMessage(msgType MessageType, data any) *Message {
	msg, err := NewMessage(msgType, data)
	if err != nil {
		panic(err)
	}
	return msg
}

// Decode decodes the message payload into the provided value
func (m *Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Encode serializes the whole envelope for the transport
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeEnvelope parses a raw transport frame into a message envelope
func DecodeEnvelope(frame []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("malformed message envelope: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message envelope missing type")
	}
	return &msg, nil
}
