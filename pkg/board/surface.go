package board

// Surface is the rendering collaborator the sync engine draws onto.
// Pixel-level rendering lives outside this module; the engine only needs
// to apply operations in order and snapshot/restore the result so that
// checkpoint-based rebuilds can skip replaying the full history.
type Surface interface {
	// Apply renders a single operation onto the surface
	Apply(op *Operation) error
	// Reset returns the surface to its blank state
	Reset()
	// Snapshot serializes the current surface state
	Snapshot() ([]byte, error)
	// Restore replaces the surface state with a previous snapshot
	Restore(snapshot []byte) error
}
