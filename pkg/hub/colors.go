package hub

// palette is the finite pool of participant colors
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#fabebe",
	"#008080", "#e6beff", "#9a6324", "#800000", "#aaffc3",
}

// overflowColor is assigned when every pool color is taken. It is not
// part of the pool, so the pool invariant (no pool color assigned twice
// concurrently) still holds.
const overflowColor = "#808080"

// colorPool hands out display colors from a finite palette and takes
// them back on disconnect. A color in use by an active participant is
// never concurrently assigned to another.
type colorPool struct {
	inUse map[string]bool
	next  int
}

func newColorPool() *colorPool {
	return &colorPool{inUse: make(map[string]bool)}
}

// acquire returns a free pool color, scanning round-robin from the last
// assignment. When the pool is exhausted it falls back to the overflow
// color.
func (cp *colorPool) acquire() string {
	for i := 0; i < len(palette); i++ {
		color := palette[(cp.next+i)%len(palette)]
		if !cp.inUse[color] {
			cp.inUse[color] = true
			cp.next = (cp.next + i + 1) % len(palette)
			return color
		}
	}
	return overflowColor
}

// release returns a color to the pool. Releasing the overflow color is a
// no-op.
func (cp *colorPool) release(color string) {
	delete(cp.inUse, color)
}
