package board

import (
	"encoding/json"
	"fmt"
)

// MemorySurface is an in-memory Surface that models the visible board as
// the list of strokes applied since the last clear. It does no pixel
// work; it exists so the sync engine can be exercised and checkpointed
// without a real renderer.
type MemorySurface struct {
	state memorySurfaceState
}

type memorySurfaceState struct {
	Strokes []memoryStroke `json:"strokes"`
	Clears  int            `json:"clears"`
	Applied int            `json:"applied"`
}

type memoryStroke struct {
	Kind   Kind   `json:"kind"`
	Stroke Stroke `json:"stroke"`
}

// NewMemorySurface returns a blank surface
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// Apply renders one operation onto the surface
func (s *MemorySurface) Apply(op *Operation) error {
	switch op.Kind {
	case KindClear:
		s.state.Strokes = nil
		s.state.Clears++
	case KindDraw, KindErase:
		if op.Stroke == nil {
			return fmt.Errorf("operation %s has kind %s but no stroke", op.ID, op.Kind)
		}
		s.state.Strokes = append(s.state.Strokes, memoryStroke{Kind: op.Kind, Stroke: *op.Stroke})
	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
	s.state.Applied++
	return nil
}

// Reset returns the surface to its blank state
func (s *MemorySurface) Reset() {
	s.state = memorySurfaceState{}
}

// Snapshot serializes the current surface state
func (s *MemorySurface) Snapshot() ([]byte, error) {
	return json.Marshal(s.state)
}

// Restore replaces the surface state with a previous snapshot
func (s *MemorySurface) Restore(snapshot []byte) error {
	var state memorySurfaceState
	if err := json.Unmarshal(snapshot, &state); err != nil {
		return fmt.Errorf("restoring surface snapshot: %w", err)
	}
	s.state = state
	return nil
}

// StrokeCount returns the number of strokes visible since the last clear
func (s *MemorySurface) StrokeCount() int {
	return len(s.state.Strokes)
}

// AppliedCount returns the total number of operations applied since the
// last reset or restore baseline
func (s *MemorySurface) AppliedCount() int {
	return s.state.Applied
}
