package mirror

import (
	"fmt"

	"github.com/dd0wney/cluso-sketch/pkg/board"
)

// Projector renders a mirror snapshot onto a surface. Instead of
// replaying the whole visible history on every pointer move, it restores
// the nearest cached checkpoint at or before the target pointer and
// replays only the operations past it, taking fresh checkpoints as it
// goes.
type Projector struct {
	surface board.Surface
	cache   *CheckpointCache
}

// NewProjector creates a projector drawing onto the given surface
func NewProjector(surface board.Surface, cache *CheckpointCache) *Projector {
	if cache == nil {
		cache = NewCheckpointCache(DefaultCheckpointInterval)
	}
	return &Projector{surface: surface, cache: cache}
}

// Cache returns the checkpoint cache the projector renders from
func (p *Projector) Cache() *CheckpointCache {
	return p.cache
}

// Render draws the visible prefix onto the surface. ops must be the
// operations at positions 0..pointer; a pointer of -1 renders a blank
// surface. It returns the number of operations replayed.
func (p *Projector) Render(ops []*board.Operation, pointer int) (int, error) {
	if pointer < -1 || pointer > len(ops)-1 {
		return 0, fmt.Errorf("pointer %d out of range for %d operations", pointer, len(ops))
	}

	start := 0
	if pos, snapshot, ok := p.cache.Nearest(pointer); ok {
		if err := p.surface.Restore(snapshot); err != nil {
			return 0, fmt.Errorf("restoring checkpoint at position %d: %w", pos, err)
		}
		start = pos + 1
	} else {
		p.surface.Reset()
	}

	replayed := 0
	for i := start; i <= pointer; i++ {
		if err := p.surface.Apply(ops[i]); err != nil {
			return replayed, fmt.Errorf("replaying operation at position %d: %w", i, err)
		}
		replayed++

		if p.cache.Due(i) {
			snapshot, err := p.surface.Snapshot()
			if err != nil {
				return replayed, fmt.Errorf("checkpointing at position %d: %w", i, err)
			}
			p.cache.Save(i, snapshot)
		}
	}

	return replayed, nil
}
