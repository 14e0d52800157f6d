package segment

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/internal/logging"
)

var log = logging.Module("scmem/segment")

// ErrFull is returned when the pool cannot grow (at max_segments) and
// no segment anywhere has a free slot to recycle.
var ErrFull = errors.New("segment pool exhausted")

// ErrAddrNotValid is returned when an address fails to resolve to a
// live element at the segment boundary.
var ErrAddrNotValid = errors.New("address is not valid")

// Pool owns the segments vector. Segments, once created, live for the
// pool's lifetime; only their slots are recycled.
type Pool struct {
	mu sync.RWMutex // guards the segments vector and both segment chains

	segments    []*Segment // segments[0] is unused; segments[n] has Num == n
	maxSegments int

	lastNotEngagedSegment uint32
	lastReleasedSegment   uint32
}

// NewPool creates an empty pool that will never grow past maxSegments
// segments. maxSegments <= 0 means unbounded.
func NewPool(maxSegments int) *Pool {
	return &Pool{
		segments:    make([]*Segment, 1), // reserve index 0
		maxSegments: maxSegments,
	}
}

// SegmentsCount returns the number of segments created so far.
func (p *Pool) SegmentsCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.segments) - 1
}

func (p *Pool) segmentAt(num uint32) (*Segment, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if num == 0 || int(num) >= len(p.segments) {
		return nil, false
	}

	return p.segments[num], true
}

// Resolve returns the element at addr iff addr names an existing
// segment, a non-reserved offset and a live slot.
func (p *Pool) Resolve(addr address.Addr) (*element.Element, error) {
	if addr.Seg == 0 || addr.Off == 0 || addr.Off >= Capacity {
		return nil, ErrAddrNotValid
	}

	seg, ok := p.segmentAt(addr.Seg)
	if !ok {
		return nil, ErrAddrNotValid
	}

	slot := seg.slot(addr.Off)
	if slot.Free || !slot.Elem.Flags.Live() {
		return nil, ErrAddrNotValid
	}

	return &slot.Elem, nil
}

// IsElement reports whether addr currently resolves to a live element,
// without surfacing an error for the common "no" case.
func (p *Pool) IsElement(addr address.Addr) bool {
	_, err := p.Resolve(addr)
	return err == nil
}

// createSegment appends a brand-new segment, failing if the pool is
// already at its ceiling.
func (p *Pool) createSegment() (*Segment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.maxSegments > 0 && len(p.segments)-1 >= p.maxSegments {
		return nil, ErrFull
	}

	num := uint32(len(p.segments))
	seg := newSegment(num)
	p.segments = append(p.segments, seg)

	log.Debugw("created segment", "num", num)

	return seg, nil
}

// popNotEngaged pops and returns the head of the not-engaged chain, or
// nil if empty.
func (p *Pool) popNotEngaged() *Segment {
	p.mu.Lock()
	defer p.mu.Unlock()

	num := p.lastNotEngagedSegment
	if num == 0 {
		return nil
	}

	seg := p.segments[num]
	p.lastNotEngagedSegment = seg.notEngagedNext
	seg.notEngagedNext = 0

	return seg
}

// pushNotEngaged returns seg to the not-engaged chain; called by
// EndProcess when seg still has capacity left.
func (p *Pool) pushNotEngaged(seg *Segment) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg.notEngagedNext = p.lastNotEngagedSegment
	p.lastNotEngagedSegment = seg.Num
}

// popReleased pops and returns the head of the released-segment chain
// (segments with a non-empty free list), or nil if empty.
func (p *Pool) popReleased() *Segment {
	p.mu.Lock()
	defer p.mu.Unlock()

	num := p.lastReleasedSegment
	if num == 0 {
		return nil
	}

	seg := p.segments[num]
	p.lastReleasedSegment = seg.releasedNext
	seg.releasedNext = 0

	return seg
}

// pushReleased pushes seg onto the released-segment chain; called by
// Free when a segment's free list transitions from empty to non-empty.
func (p *Pool) pushReleased(seg *Segment) {
	p.mu.Lock()
	defer p.mu.Unlock()

	seg.releasedNext = p.lastReleasedSegment
	p.lastReleasedSegment = seg.Num
}

// FreeSlotsTotal sums every segment's free-list length, for
// GetElementsStat / the metrics gauge. It copies the segments vector
// under the pool read lock, then walks each segment's free list under
// that segment's lock; callers on the hot path should not call this
// frequently.
func (p *Pool) FreeSlotsTotal() int {
	p.mu.RLock()
	segs := make([]*Segment, len(p.segments))
	copy(segs, p.segments)
	p.mu.RUnlock()

	total := 0

	for _, seg := range segs {
		if seg == nil {
			continue
		}

		seg.mu.Lock()
		off := seg.lastReleasedOffset
		for off != 0 {
			total++
			off = seg.slots[off].NextFree
		}
		seg.mu.Unlock()
	}

	return total
}
