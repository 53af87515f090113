package protocol

import "github.com/dd0wney/cluso-sketch/pkg/board"

// CommitStart announces a new in-flight stroke and its style
type CommitStart struct {
	Point      board.Point `json:"point"`
	Color      string      `json:"color"`
	Width      float64     `json:"width"`
	Tool       string      `json:"tool"`
	ClientOpID string      `json:"clientOpId"`
}

// CommitStream carries a batch of points for an in-flight stroke.
// The style fields are optional: when present they let the server
// rehydrate an in-flight entry whose COMMIT_START it never saw.
type CommitStream struct {
	ClientOpID string        `json:"clientOpId"`
	Points     []board.Point `json:"points"`
	Color      string        `json:"color,omitempty"`
	Width      float64       `json:"width,omitempty"`
	Tool       string        `json:"tool,omitempty"`
}

// CommitEnd finalizes a stroke with its full simplified path
type CommitEnd struct {
	ClientOpID string        `json:"clientOpId"`
	Path       []board.Point `json:"path"`
	Color      string        `json:"color"`
	Width      float64       `json:"width"`
	Tool       string        `json:"tool"`
}

// Clear requests a board clear commit
type Clear struct{}

// Cursor reports the sender's cursor position
type Cursor struct {
	Point board.Point `json:"point"`
}

// Identify sets the sender's display name
type Identify struct {
	Name string `json:"name"`
}

// ResyncResponse carries the full authoritative visible state. Sent on
// connect and on explicit RESYNC request.
type ResyncResponse struct {
	LocalParticipant board.Participant   `json:"localParticipant"`
	Operations       []*board.Operation  `json:"operations"`
	Pointer          int                 `json:"pointer"`
	Participants     []board.Participant `json:"participants"`
}

// CommitStartBroadcast relays a stroke start to everyone but the originator
type CommitStartBroadcast struct {
	AuthorID   string      `json:"authorId"`
	Point      board.Point `json:"point"`
	Color      string      `json:"color"`
	Width      float64     `json:"width"`
	Tool       string      `json:"tool"`
	ClientOpID string      `json:"clientOpId"`
}

// CommitStreamBroadcast relays streamed points to everyone but the originator
type CommitStreamBroadcast struct {
	AuthorID   string        `json:"authorId"`
	ClientOpID string        `json:"clientOpId"`
	Points     []board.Point `json:"points"`
}

// CommitEndBroadcast announces a committed stroke to all participants,
// including the originator, carrying the authoritative operation and the
// post-commit pointer so mirrors can verify incremental application.
type CommitEndBroadcast struct {
	AuthorID  string           `json:"authorId"`
	Stroke    *board.Stroke    `json:"stroke"`
	Operation *board.Operation `json:"operation"`
	Pointer   int              `json:"pointer"`
}

// ClearBroadcast announces a committed clear to all participants
type ClearBroadcast struct {
	AuthorID  string           `json:"authorId"`
	Operation *board.Operation `json:"operation"`
	Pointer   int              `json:"pointer"`
}

// CursorBroadcast relays a cursor update to everyone but the originator
type CursorBroadcast struct {
	AuthorID string      `json:"authorId"`
	Point    board.Point `json:"point"`
}

// PointerUpdate announces the pointer after an undo or redo. The envelope
// type distinguishes the two.
type PointerUpdate struct {
	Pointer int `json:"pointer"`
}

// ParticipantJoined announces a new participant
type ParticipantJoined struct {
	Participant board.Participant `json:"participant"`
}

// ParticipantLeft announces a departed participant
type ParticipantLeft struct {
	Participant board.Participant `json:"participant"`
}

// Rejected reports a validation failure to the offending sender only
type Rejected struct {
	Reason string `json:"reason"`
}
