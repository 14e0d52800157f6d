package segment

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
)

// ProcessID identifies a calling goroutine's per-process segment
// binding. Go has no stable goroutine identity, so callers obtain one
// explicitly from BeginProcess and must pass it to Allocate/EndProcess.
type ProcessID uint64

// Allocator hands out and recycles slots, biasing a process's
// allocations into the segment it is currently bound to.
type Allocator struct {
	pool *Pool

	mu             sync.Mutex // guards the process-to-segment binding table
	processSegment map[ProcessID]uint32
	nextProcessID  uint64

	growSF singleflight.Group
}

// NewAllocator creates an Allocator over pool.
func NewAllocator(pool *Pool) *Allocator {
	return &Allocator{
		pool:           pool,
		processSegment: make(map[ProcessID]uint32),
	}
}

// BeginProcess registers a new per-process binding and returns its
// handle. The returned ProcessID starts unbound to any segment.
func (a *Allocator) BeginProcess() ProcessID {
	id := ProcessID(atomic.AddUint64(&a.nextProcessID, 1))

	a.mu.Lock()
	a.processSegment[id] = 0
	a.mu.Unlock()

	return id
}

// EndProcess releases pid's segment binding, returning a non-exhausted
// segment to the pool's not-engaged chain so another process can reuse
// it.
func (a *Allocator) EndProcess(pid ProcessID) {
	a.mu.Lock()
	segNum := a.processSegment[pid]
	delete(a.processSegment, pid)
	a.mu.Unlock()

	if segNum == 0 {
		return
	}

	seg, ok := a.pool.segmentAt(segNum)
	if !ok {
		return
	}

	seg.mu.Lock()
	notExhausted := seg.hasCapacity()
	seg.mu.Unlock()

	if notExhausted {
		a.pool.pushNotEngaged(seg)
	}
}

// bindSegment records that pid is now filling seg.
func (a *Allocator) bindSegment(pid ProcessID, seg *Segment) {
	a.mu.Lock()
	a.processSegment[pid] = seg.Num
	a.mu.Unlock()
}

// chooseSegment pops a not-engaged segment, else creates one, else
// (pool at its ceiling) pops a released segment. Concurrent callers
// racing to grow the pool coalesce onto a single singleflight call so
// they don't all walk the chains redundantly under contention.
func (a *Allocator) chooseSegment() (*Segment, error) {
	if seg := a.pool.popNotEngaged(); seg != nil {
		return seg, nil
	}

	v, err, _ := a.growSF.Do("grow", func() (interface{}, error) {
		if seg, err := a.pool.createSegment(); err == nil {
			return seg, nil
		}

		if seg := a.pool.popReleased(); seg != nil {
			return seg, nil
		}

		return nil, ErrFull
	})
	if err != nil {
		return nil, err
	}

	return v.(*Segment), nil
}

// Allocate reserves a slot for pid, reusing pid's currently bound
// segment when it still has capacity, and returns the address and a
// pointer to its now-live Element for the caller to populate.
//
// The capacity check and the offset reservation happen under the same
// segment lock: two processes can end up bound to one segment (a
// released segment stays bound while also being poppable from the
// released chain), so a segment chosen as non-full may be exhausted by
// the time this process reserves from it. In that case it retries with
// a fresh segment.
func (a *Allocator) Allocate(pid ProcessID) (address.Addr, *element.Element, error) {
	a.mu.Lock()
	segNum := a.processSegment[pid]
	a.mu.Unlock()

	var seg *Segment

	if segNum != 0 {
		if s, ok := a.pool.segmentAt(segNum); ok {
			seg = s
		}
	}

	for {
		if seg == nil {
			var err error

			seg, err = a.chooseSegment()
			if err != nil {
				return address.Addr{}, nil, err
			}

			a.bindSegment(pid, seg)
		}

		seg.mu.Lock()

		var off uint32

		switch {
		case seg.lastReleasedOffset != 0:
			off = seg.lastReleasedOffset
			seg.lastReleasedOffset = seg.slots[off].NextFree
		case seg.lastEngagedOffset+1 < Capacity:
			seg.lastEngagedOffset++
			off = seg.lastEngagedOffset
		default:
			seg.mu.Unlock()
			seg = nil

			continue
		}

		slot := &seg.slots[off]
		*slot = element.Slot{}
		slot.Elem.Flags.AccessLevels = element.Exist

		seg.mu.Unlock()

		return address.Addr{Seg: seg.Num, Off: off}, &slot.Elem, nil
	}
}

// Free returns addr's slot to its segment's free list, clearing
// ELEMENT_EXIST. If the segment's free list was previously empty, the
// segment is pushed onto the pool's released chain.
func (a *Allocator) Free(addr address.Addr) error {
	seg, ok := a.pool.segmentAt(addr.Seg)
	if !ok || addr.Off == 0 || addr.Off >= Capacity {
		return ErrAddrNotValid
	}

	seg.mu.Lock()

	wasEmpty := seg.lastReleasedOffset == 0

	seg.slots[addr.Off] = element.Slot{
		Free:     true,
		NextFree: seg.lastReleasedOffset,
	}
	seg.lastReleasedOffset = addr.Off

	seg.mu.Unlock()

	if wasEmpty {
		a.pool.pushReleased(seg)
	}

	return nil
}
