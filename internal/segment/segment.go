// Package segment implements the segmented address space: fixed-size
// segments of element slots, grown on demand up to a configured
// ceiling, and the per-process allocator that hands out and recycles
// slots within them.
package segment

import (
	"sync"

	"github.com/sc-machine-go/scmem/element"
)

// Capacity is the fixed slot count per segment. Offset 0 is reserved
// for segment metadata, so a segment holds Capacity-1 usable elements.
// A power of two keeps sizeof(Slot)*Capacity a small multiple of a
// page.
const Capacity = 4096

// Segment is a fixed array of element slots. Slot 0 never holds a live
// element; it exists only so every live offset is >= 1.
type Segment struct {
	Num uint32

	mu sync.Mutex // guards the fields below and free-list writes to Slots

	slots              [Capacity]element.Slot
	lastEngagedOffset  uint32
	lastReleasedOffset uint32 // head of this segment's free list, 0 = empty

	// notEngagedNext and releasedNext chain this segment onto the
	// pool's two segment-level lists (processes that ended without
	// exhausting their segment, and segments with a non-empty free
	// list, respectively). Slot 0 stays reserved for them even though
	// they live out-of-band here rather than inside the slot bytes.
	notEngagedNext uint32
	releasedNext   uint32
}

func newSegment(num uint32) *Segment {
	return &Segment{Num: num}
}

// slot returns a pointer to the slot at off without locking; callers
// must hold the appropriate address monitor (for Elem field access) or
// the segment's own lock (for free-list bookkeeping).
func (s *Segment) slot(off uint32) *element.Slot {
	return &s.slots[off]
}

// hasCapacity reports whether the segment can still produce a slot
// without any lock; callers needing a consistent read take s.mu.
func (s *Segment) hasCapacity() bool {
	return s.lastEngagedOffset+1 < Capacity || s.lastReleasedOffset != 0
}
