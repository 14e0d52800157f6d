// Package iterator implements the seven fixed-pattern triple walkers
// over (first, connector, third), each stepping the graph's intrusive
// incidence lists under the same per-address monitor table the mutator
// uses, never pinning elements beyond the duration of a single step.
package iterator

import (
	"context"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/internal/metrics"
	"github.com/sc-machine-go/scmem/internal/monitor"
)

// Backend is the subset of graph.Store an iterator needs: resolving an
// address under its monitor and acquiring that monitor directly. A
// *graph.Store satisfies this without either package importing the
// other's unexported state.
type Backend interface {
	Resolve(addr address.Addr) (*element.Element, error)
	MonitorFor(addr address.Addr) *monitor.Monitor
	AcquireReadN(ms ...*monitor.Monitor) *monitor.ReadTicket
}

// Iterator is the common cursor type returned by every New* constructor.
// Next advances to the next matching triple; Value reads one of its
// three slots; Close releases nothing by itself (steps self-release
// their monitors) but marks the iterator exhausted.
type Iterator struct {
	backend  Backend
	metrics  *metrics.Store
	advance  func() ([3]address.Addr, bool)
	finished bool
	cur      [3]address.Addr
}

// Next advances the iterator. It returns false once exhausted or if ctx
// is already done; subsequent calls keep returning false.
func (it *Iterator) Next(ctx context.Context) bool {
	if it.finished {
		return false
	}

	if ctx.Err() != nil {
		it.finished = true
		it.cur = [3]address.Addr{}

		return false
	}

	triple, ok := it.advance()

	if it.metrics != nil {
		it.metrics.IteratorSteps.Inc()
	}

	if !ok {
		it.finished = true
		it.cur = [3]address.Addr{}

		return false
	}

	it.cur = triple

	return true
}

// Value returns slot i (0=first, 1=connector, 2=third) of the current
// result triple.
func (it *Iterator) Value(i int) address.Addr {
	return it.cur[i]
}

// Close marks the iterator exhausted; safe to call multiple times.
func (it *Iterator) Close() {
	it.finished = true
	it.cur = [3]address.Addr{}
}

func newIterator(b Backend, m *metrics.Store, advance func() ([3]address.Addr, bool)) *Iterator {
	if m != nil {
		m.IteratorsOpened.Inc()
	}

	return &Iterator{backend: b, metrics: m, advance: advance}
}

// exhausted returns an already-finished iterator, for constructors
// whose fixed address fails to resolve to a live element.
func exhausted(b Backend, m *metrics.Store) *Iterator {
	it := newIterator(b, m, func() ([3]address.Addr, bool) { return [3]address.Addr{}, false })
	it.finished = true

	return it
}

// resolveLocked reads addr's element under a momentary read lock and
// returns a by-value copy, since holding a pointer into the segment
// slot past lock release is unsafe (another process may free or reuse
// it concurrently).
func resolveLocked(b Backend, addr address.Addr) (element.Element, bool) {
	if addr.IsEmpty() {
		return element.Element{}, false
	}

	ticket := b.AcquireReadN(b.MonitorFor(addr))
	defer ticket.Release()

	elem, err := b.Resolve(addr)
	if err != nil {
		return element.Element{}, false
	}

	return *elem, true
}

// otherEndpoint returns whichever of conn's two endpoints is not x
// (x itself on a self-loop). Expressed this way, the undirected-edge
// "other side" rule also covers plain directed arcs without a
// separate case.
func otherEndpoint(conn element.Element, x address.Addr) address.Addr {
	if conn.Begin == x {
		return conn.End
	}

	return conn.Begin
}
