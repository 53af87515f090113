package board

import (
	"time"
)

// Kind identifies the type of a committed operation
type Kind string

const (
	// KindDraw is a stroke composited normally onto the surface
	KindDraw Kind = "draw"
	// KindErase is a stroke with destination-out compositing semantics
	KindErase Kind = "erase"
	// KindClear wipes the visible surface
	KindClear Kind = "clear"
)

// Valid reports whether k is a known operation kind
func (k Kind) Valid() bool {
	switch k {
	case KindDraw, KindErase, KindClear:
		return true
	}
	return false
}

// Point is a single coordinate on the board
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is the kind-specific payload of a draw or erase operation.
// The sequenced log treats it as opaque data; only the rendering
// surface interprets it.
type Stroke struct {
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Tool   string  `json:"tool"`
}

// Operation is one committed, immutable unit of board history.
// Seq is assigned exactly once by the sequenced log at append time and
// defines the total order over all committed operations. ClientOpID is
// a client-chosen correlation id used only to match an optimistic local
// entry to its confirmed counterpart, never for ordering.
type Operation struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	CreatedAt  time.Time `json:"createdAt"`
	Seq        uint64    `json:"seq"`
	Kind       Kind      `json:"kind"`
	Stroke     *Stroke   `json:"stroke,omitempty"`
	ClientOpID string    `json:"clientOpId,omitempty"`
}

// Participant is a connected board user
type Participant struct {
	ID          string    `json:"id"`
	Color       string    `json:"color"`
	Name        string    `json:"name"`
	ConnectedAt time.Time `json:"connectedAt"`
	Cursor      *Point    `json:"cursor,omitempty"`
}
