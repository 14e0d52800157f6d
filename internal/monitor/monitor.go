// Package monitor implements the sharded read/write monitor bank that
// every address in the store hashes into, plus the ordered
// multi-monitor acquisition primitive that is the store's sole
// deadlock-avoidance discipline.
package monitor

import (
	"sort"
	"sync"

	"github.com/sc-machine-go/scmem/address"
)

// DefaultSize is the default monitor-table width. Larger tables reduce
// false sharing between unrelated addresses at the cost of memory.
const DefaultSize = 1024

// Monitor is a single read/write lock identified by its table index, so
// AcquireReadN/AcquireWriteN can establish a total order over a set of monitors by index
// rather than by pointer identity.
type Monitor struct {
	idx int
	mu  sync.RWMutex
}

// Table is the fixed-size bank of monitors; every address maps to
// exactly one via hashing the packed address.
type Table struct {
	monitors []*Monitor
}

// New builds a Table with size monitors; size <= 0 uses DefaultSize.
func New(size int) *Table {
	if size <= 0 {
		size = DefaultSize
	}

	t := &Table{monitors: make([]*Monitor, size)}
	for i := range t.monitors {
		t.monitors[i] = &Monitor{idx: i}
	}

	return t
}

// hash mixes the packed address down to a table index using a
// splitmix64-style finalizer so adjacent addresses (same segment,
// consecutive offsets) don't collide on adjacent monitors.
func hash(key uint64) uint64 {
	key ^= key >> 30
	key *= 0xbf58476d1ce4e5b9
	key ^= key >> 27
	key *= 0x94d049bb133111eb
	key ^= key >> 31

	return key
}

// MonitorFor returns the monitor addr hashes into.
func (t *Table) MonitorFor(addr address.Addr) *Monitor {
	idx := hash(addr.Pack()) % uint64(len(t.monitors))
	return t.monitors[idx]
}

// acquireOrdered de-duplicates and nil-filters ms and sorts it by
// monitor index, returning the order in which AcquireReadN/AcquireWriteN
// lock the monitors. Re-entrant acquisition
// of the same monitor (two input addresses that hash to the same
// monitor) is coalesced to a single lock/unlock pair.
func acquireOrdered(ms []*Monitor) []*Monitor {
	seen := make(map[int]struct{}, len(ms))
	ordered := make([]*Monitor, 0, len(ms))

	for _, m := range ms {
		if m == nil {
			continue
		}

		if _, ok := seen[m.idx]; ok {
			continue
		}

		seen[m.idx] = struct{}{}
		ordered = append(ordered, m)
	}

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].idx < ordered[j].idx })

	return ordered
}

// ReadTicket and WriteTicket represent a held set of monitors; Release
// unlocks them all in reverse acquisition order.
type ReadTicket struct{ held []*Monitor }

type WriteTicket struct{ held []*Monitor }

// AcquireReadN read-locks every distinct, non-nil monitor in ms in
// index order and returns a ticket that releases them all.
func (t *Table) AcquireReadN(ms ...*Monitor) *ReadTicket {
	ordered := acquireOrdered(ms)
	for _, m := range ordered {
		m.mu.RLock()
	}

	return &ReadTicket{held: ordered}
}

// Release unlocks every monitor held by the ticket, in reverse order.
func (t *ReadTicket) Release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].mu.RUnlock()
	}
}

// AcquireWriteN write-locks every distinct, non-nil monitor in ms in
// index order and returns a ticket that releases them all.
func (t *Table) AcquireWriteN(ms ...*Monitor) *WriteTicket {
	ordered := acquireOrdered(ms)
	for _, m := range ordered {
		m.mu.Lock()
	}

	return &WriteTicket{held: ordered}
}

// Release unlocks every monitor held by the ticket, in reverse order.
func (t *WriteTicket) Release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].mu.Unlock()
	}
}
