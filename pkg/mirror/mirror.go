// Package mirror maintains the client-side replica of the server's
// sequenced log. Local strokes are staged optimistically as pending
// entries and replaced in place when the authoritative commit arrives;
// remote commits, pointer moves, and trims are applied exactly the way
// the server applies them, so a healthy mirror and the server always
// agree on {operations, pointer}. When the two disagree the mirror
// flags divergence and the client falls back to a full resync rebuild.
package mirror

import (
	"sync"

	"github.com/dd0wney/cluso-sketch/pkg/board"
	"github.com/dd0wney/cluso-sketch/pkg/logging"
)

// entry is one slot of the mirrored log. A pending entry is a local
// stroke awaiting server confirmation; a confirmed entry is the
// authoritative operation.
type entry struct {
	op      *board.Operation
	pending bool
}

// Mirror is the local replica of the sequenced log plus the pointer
type Mirror struct {
	entries  []entry
	pointer  int
	maxOps   int
	diverged bool
	cache    *CheckpointCache
	logger   logging.Logger
	mu       sync.Mutex
}

// New creates an empty mirror. cache may be nil; when set, the mirror
// invalidates it whenever history mutates underneath the cached
// positions (branch discard, front trim, resync rebuild).
func New(maxOps int, cache *CheckpointCache, logger logging.Logger) *Mirror {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Mirror{
		pointer: -1,
		maxOps:  maxOps,
		cache:   cache,
		logger:  logger.With(logging.Component("mirror")),
	}
}

// StagePending records a local, unconfirmed operation past the pointer,
// discarding any undone branch first. The pointer does not advance:
// pending entries never count as visible history, so a remote commit
// that wins the race truncates them away exactly the way the server's
// append would, and the mirrors converge without a resync. It returns
// the position the pending entry occupies.
func (m *Mirror) StagePending(op *board.Operation) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.truncateLocked()
	m.entries = append(m.entries, entry{op: op, pending: true})

	m.logger.Debug("Staged pending operation",
		logging.ClientOpID(op.ClientOpID),
		logging.Int("position", len(m.entries)-1))

	return len(m.entries) - 1
}

// Confirm applies an authoritative commit broadcast by replaying the
// server's own append: remove the matching pending entry if one exists,
// discard everything past the pointer, append the confirmed operation,
// and trim to the cap. In the common case the confirmed operation lands
// exactly where its pending entry sat. The resulting pointer is then
// checked against the server's post-commit pointer; a mismatch means a
// missed or reordered message and flags divergence.
func (m *Mirror) Confirm(op *board.Operation, serverPointer int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if op.ClientOpID != "" {
		for i, e := range m.entries {
			if e.pending && e.op.ClientOpID == op.ClientOpID {
				m.entries = append(m.entries[:i], m.entries[i+1:]...)
				break
			}
		}
	}

	m.truncateLocked()
	m.entries = append(m.entries, entry{op: op})
	m.pointer = len(m.entries) - 1
	m.trimLocked()

	if m.pointer != serverPointer {
		m.diverged = true
		m.logger.Warn("Mirror diverged from server on commit",
			logging.OpID(op.ID),
			logging.Pointer(m.pointer),
			logging.Int("serverPointer", serverPointer))
	}

	return !m.diverged
}

// ApplyPointer applies an authoritative undo/redo pointer move. A
// pointer outside the mirrored range, or one that lands on a pending
// entry, flags divergence. The server only ever points at committed
// operations, so a pending entry at that position means the mirror
// missed the commit that should be there; accepting it would leak the
// unconfirmed stroke into Snapshot as if it were visible history.
func (m *Mirror) ApplyPointer(serverPointer int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if serverPointer < -1 || serverPointer >= len(m.entries) {
		m.diverged = true
		m.logger.Warn("Mirror diverged from server on pointer move",
			logging.Int("serverPointer", serverPointer),
			logging.Count(len(m.entries)))
		return false
	}
	if serverPointer >= 0 && m.entries[serverPointer].pending {
		m.diverged = true
		m.logger.Warn("Server pointer landed on an unconfirmed entry",
			logging.Int("serverPointer", serverPointer),
			logging.ClientOpID(m.entries[serverPointer].op.ClientOpID))
		return false
	}

	m.pointer = serverPointer
	return true
}

// Rebuild replaces the mirror wholesale with the authoritative state
// from a resync. All pending entries are discarded and the divergence
// flag is cleared.
func (m *Mirror) Rebuild(ops []*board.Operation, pointer int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make([]entry, 0, len(ops))
	for _, op := range ops {
		m.entries = append(m.entries, entry{op: op})
	}
	m.pointer = pointer
	m.diverged = false

	if m.cache != nil {
		m.cache.Clear()
	}

	m.logger.Info("Mirror rebuilt from resync",
		logging.Count(len(ops)),
		logging.Pointer(pointer))
}

// Diverged reports whether the mirror has detected disagreement with
// the server and needs a resync
func (m *Mirror) Diverged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.diverged
}

// Snapshot returns a copy of the visible operations (everything at or
// before the pointer) and the pointer itself, taken together
func (m *Mirror) Snapshot() ([]*board.Operation, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ops := make([]*board.Operation, 0, m.pointer+1)
	for i := 0; i <= m.pointer; i++ {
		ops = append(ops, m.entries[i].op)
	}
	return ops, m.pointer
}

// Pointer returns the current pointer position
func (m *Mirror) Pointer() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pointer
}

// Len returns the number of mirrored entries, pending included
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// PendingCount returns the number of entries still awaiting confirmation
func (m *Mirror) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, e := range m.entries {
		if e.pending {
			n++
		}
	}
	return n
}

// truncateLocked discards every entry past the pointer, confirmed
// branch and raced pendings alike, keeping checkpoint positions
// consistent
func (m *Mirror) truncateLocked() {
	if m.pointer >= len(m.entries)-1 {
		return
	}
	m.entries = m.entries[:m.pointer+1]
	if m.cache != nil {
		m.cache.InvalidateAfter(m.pointer)
	}
}

// trimLocked enforces the retained cap the same way the server does.
// Checkpoints are cumulative over positions 0..p, so every snapshot
// taken before the trim still embeds the dropped operations; the cache
// is cleared and rebuilt from post-trim renders.
func (m *Mirror) trimLocked() {
	if m.maxOps <= 0 {
		return
	}
	overflow := len(m.entries) - m.maxOps
	if overflow <= 0 {
		return
	}

	m.entries = append(m.entries[:0:0], m.entries[overflow:]...)
	m.pointer -= overflow
	if m.pointer < -1 {
		m.pointer = -1
	}
	if m.cache != nil {
		m.cache.Clear()
	}
}
