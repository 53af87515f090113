package mirror

import (
	"sync"

	"github.com/golang/snappy"
)

// DefaultCheckpointInterval is the number of commits between surface
// checkpoints when no interval is configured
const DefaultCheckpointInterval = 20

// CheckpointCache holds sparse, compressed surface snapshots keyed by
// the log position they were taken at. A checkpoint at position p is the
// surface after applying operations 0..p; rendering for a target pointer
// restores the nearest checkpoint at or before it and replays only the
// remainder. Snapshots are snappy-compressed at rest.
type CheckpointCache struct {
	interval  int
	snapshots map[int][]byte
	mu        sync.Mutex
}

// NewCheckpointCache creates a cache that wants a checkpoint every
// interval commits
func NewCheckpointCache(interval int) *CheckpointCache {
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}
	return &CheckpointCache{
		interval:  interval,
		snapshots: make(map[int][]byte),
	}
}

// Due reports whether a checkpoint should be taken after rendering the
// operation at the given position
func (c *CheckpointCache) Due(position int) bool {
	return position >= 0 && (position+1)%c.interval == 0
}

// Save stores a snapshot for the given position, replacing any previous
// snapshot at that position
func (c *CheckpointCache) Save(position int, snapshot []byte) {
	if position < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[position] = snappy.Encode(nil, snapshot)
}

// Nearest returns the checkpoint with the greatest position at or below
// target, or ok=false when none exists and the caller must replay from
// scratch
func (c *CheckpointCache) Nearest(target int) (int, []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	best := -1
	for pos := range c.snapshots {
		if pos <= target && pos > best {
			best = pos
		}
	}
	if best < 0 {
		return 0, nil, false
	}

	snapshot, err := snappy.Decode(nil, c.snapshots[best])
	if err != nil {
		// A corrupt entry cannot serve any future lookup either
		delete(c.snapshots, best)
		return 0, nil, false
	}
	return best, snapshot, true
}

// InvalidateAfter drops every checkpoint past the given position. Called
// when the history branch after the pointer is discarded, making those
// snapshots describe operations that no longer exist.
func (c *CheckpointCache) InvalidateAfter(position int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for pos := range c.snapshots {
		if pos > position {
			delete(c.snapshots, pos)
		}
	}
}

// Clear drops every checkpoint. Called after a front trim or a resync
// rebuild: a checkpoint is cumulative over positions 0..p, so once the
// front of the log changes, every surviving snapshot still embeds
// operations that are no longer part of the visible history and cannot
// be rekeyed to the new positions.
func (c *CheckpointCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = make(map[int][]byte)
}

// Len returns the number of cached checkpoints
func (c *CheckpointCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snapshots)
}
