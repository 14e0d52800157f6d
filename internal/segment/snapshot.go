package segment

import (
	"bytes"
	"encoding/gob"

	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/element"
)

// segmentSnapshot is the opaque per-segment payload handed to fsmem: the
// full slot array plus the two offsets needed to resume allocation.
// gob is a pragmatic choice here over a hand-rolled binary layout (as
// used for the much simpler link-content index in fsmem/fs/codec.go):
// Slot nests several fixed-size address.Addr structs and gob round-trips
// that shape for free, and snapshotting is not a hot path.
type segmentSnapshot struct {
	LastEngagedOffset  uint32
	LastReleasedOffset uint32
	Slots              [Capacity]element.Slot
}

// Snapshot encodes every segment's current contents for Store.Save,
// returning one opaque blob per segment in segment-number order.
func (p *Pool) Snapshot() ([][]byte, error) {
	p.mu.RLock()
	segs := make([]*Segment, len(p.segments))
	copy(segs, p.segments)
	p.mu.RUnlock()

	out := make([][]byte, 0, len(segs)-1)

	for i := 1; i < len(segs); i++ {
		seg := segs[i]

		seg.mu.Lock()
		snap := segmentSnapshot{
			LastEngagedOffset:  seg.lastEngagedOffset,
			LastReleasedOffset: seg.lastReleasedOffset,
			Slots:              seg.slots,
		}
		seg.mu.Unlock()

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
			return nil, errors.Wrapf(err, "encode segment %d", i)
		}

		out = append(out, buf.Bytes())
	}

	return out, nil
}

// Restore repopulates a freshly created, empty pool from blobs produced
// by Snapshot, rebuilding the not-engaged and released segment chains
// from each segment's recovered state. The LIFO ordering of those
// chains is not preserved across a save/load cycle — they are pure
// scheduling hints, not part of the store's observable state.
func (p *Pool) Restore(blobs [][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.segments) > 1 {
		return errors.New("cannot restore into a non-empty segment pool")
	}

	for i, blob := range blobs {
		var snap segmentSnapshot
		if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&snap); err != nil {
			return errors.Wrapf(err, "decode segment %d", i+1)
		}

		seg := newSegment(uint32(i + 1))
		seg.lastEngagedOffset = snap.LastEngagedOffset
		seg.lastReleasedOffset = snap.LastReleasedOffset
		seg.slots = snap.Slots
		p.segments = append(p.segments, seg)

		if seg.hasCapacity() {
			seg.notEngagedNext = p.lastNotEngagedSegment
			p.lastNotEngagedSegment = seg.Num
		}

		if seg.lastReleasedOffset != 0 {
			seg.releasedNext = p.lastReleasedSegment
			p.lastReleasedSegment = seg.Num
		}
	}

	return nil
}
