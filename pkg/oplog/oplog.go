// Package oplog implements the authoritative sequenced operation log for
// a sketch board: an append-only, truncatable ordered sequence of committed
// operations plus a movable pointer marking how much of the sequence is
// currently visible (not undone).
package oplog

import (
	"sync"

	"github.com/dd0wney/cluso-sketch/pkg/board"
)

// DefaultMaxOperations bounds the retained history when no cap is configured
const DefaultMaxOperations = 1000

// Log is the authoritative sequenced operation log. It is exclusively
// owned by the server process; clients hold read-only mirrors derived
// from snapshots and broadcasts.
//
// All mutations serialize through a single mutex so that the
// {operations, pointer} pair is always observed consistently.
type Log struct {
	ops     []*board.Operation
	pointer int
	nextSeq uint64
	maxOps  int
	mu      sync.Mutex
}

// NewLog creates an empty log retaining at most maxOps operations.
// A non-positive maxOps falls back to DefaultMaxOperations.
func NewLog(maxOps int) *Log {
	if maxOps <= 0 {
		maxOps = DefaultMaxOperations
	}
	return &Log{
		ops:     make([]*board.Operation, 0),
		pointer: -1,
		maxOps:  maxOps,
	}
}

// Append commits an operation: it assigns the next sequence number,
// discards any undone future branch beyond the pointer, inserts the
// operation at the end, makes it visible, and trims the oldest entries
// if the retained cap is exceeded.
//
// Drawing after undo is therefore a destructive branch discard, not a
// branch merge: the undone operations are permanently removed before the
// new one is inserted. This keeps the model a single linear timeline.
//
// The returned value is the committed operation (seq now assigned) and
// the resulting pointer.
func (l *Log) Append(op *board.Operation) (*board.Operation, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Sequence numbers are monotonic and never reused, even across
	// truncations. The counter is never rewound.
	l.nextSeq++
	op.Seq = l.nextSeq

	// Discard the future branch before inserting. No recovery.
	if l.pointer < len(l.ops)-1 {
		l.ops = l.ops[:l.pointer+1]
	}

	l.ops = append(l.ops, op)
	l.pointer = len(l.ops) - 1

	l.trimLocked()

	return op, l.pointer
}

// trimLocked enforces the retained cap by dropping the oldest overflow
// operations from the front and moving the pointer down by the same
// amount. Relative order is preserved; only front positions are removed.
func (l *Log) trimLocked() {
	overflow := len(l.ops) - l.maxOps
	if overflow <= 0 {
		return
	}

	l.ops = append(l.ops[:0:0], l.ops[overflow:]...)
	l.pointer -= overflow
	if l.pointer < -1 {
		l.pointer = -1
	}
}

// Undo moves the pointer one step back, clamped at -1 (nothing visible),
// and returns the new pointer.
func (l *Log) Undo() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pointer > -1 {
		l.pointer--
	}
	return l.pointer
}

// Redo moves the pointer one step forward, clamped at the log tail, and
// returns the new pointer.
func (l *Log) Redo() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pointer < len(l.ops)-1 {
		l.pointer++
	}
	return l.pointer
}

// Snapshot returns a consistent copy of the visible operations (up to
// and including the pointer) together with the pointer itself.
// Operations beyond the pointer are never exposed to snapshot consumers.
func (l *Log) Snapshot() ([]*board.Operation, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	visible := make([]*board.Operation, l.pointer+1)
	copy(visible, l.ops[:l.pointer+1])
	return visible, l.pointer
}

// Pointer returns the current pointer position
func (l *Log) Pointer() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pointer
}

// Len returns the number of operations currently held, including any
// undone future branch
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

// NextSeq returns the sequence number the next committed operation will
// receive
func (l *Log) NextSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq + 1
}
