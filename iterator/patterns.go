package iterator

import (
	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/internal/metrics"
)

type chainDir int

const (
	dirOut chainDir = iota
	dirIn
)

func chainHead(elem element.Element, dir chainDir) address.Addr {
	if dir == dirOut {
		return elem.FirstOutArc
	}

	return elem.FirstInArc
}

func chainNext(conn element.Element, owner address.Addr, dir chainDir) address.Addr {
	if dir == dirOut {
		return conn.OutNext(owner)
	}

	return conn.InNext(owner)
}

// walkChain builds the shared advance closure for the three chain-based
// patterns (F-A-A, A-A-F, F-A-F): start at pinned's list head, then
// follow each connector's own OutNext/InNext, calling accept at each
// connector encountered until it returns a result or the chain runs
// out. accept receives the connector's own address alongside its
// resolved element.
func walkChain(b Backend, pinned address.Addr, dir chainDir, accept func(connAddr address.Addr, conn element.Element) ([3]address.Addr, bool)) func() ([3]address.Addr, bool) {
	started := false
	cursor := address.Empty

	return func() ([3]address.Addr, bool) {
		var next address.Addr

		if !started {
			started = true

			pinnedElem, ok := resolveLocked(b, pinned)
			if !ok {
				return [3]address.Addr{}, false
			}

			next = chainHead(pinnedElem, dir)
		} else {
			connElem, ok := resolveLocked(b, cursor)
			if !ok {
				return [3]address.Addr{}, false
			}

			next = chainNext(connElem, pinned, dir)
		}

		for !next.IsEmpty() {
			connElem, ok := resolveLocked(b, next)
			if !ok {
				return [3]address.Addr{}, false
			}

			cursor = next

			if triple, ok := accept(cursor, connElem); ok {
				return triple, true
			}

			next = chainNext(connElem, pinned, dir)
		}

		return [3]address.Addr{}, false
	}
}

// NewFAA: fixed first, walk first.first_out_arc, filter connector and
// resolved third by type.
func NewFAA(b Backend, m *metrics.Store, first address.Addr, connFilter, thirdFilter element.Type) *Iterator {
	if _, ok := resolveLocked(b, first); !ok {
		return exhausted(b, m)
	}

	accept := func(connAddr address.Addr, conn element.Element) ([3]address.Addr, bool) {
		if !conn.Flags.Type.Matches(connFilter) {
			return [3]address.Addr{}, false
		}

		third := otherEndpoint(conn, first)

		thirdElem, ok := resolveLocked(b, third)
		if !ok || !thirdElem.Flags.Type.Matches(thirdFilter) {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{first, connAddr, third}, true
	}

	return newIterator(b, m, walkChain(b, first, dirOut, accept))
}

// NewAAF: fixed third, walk third.first_in_arc, filter connector and
// resolved first by type.
func NewAAF(b Backend, m *metrics.Store, third address.Addr, connFilter, firstFilter element.Type) *Iterator {
	if _, ok := resolveLocked(b, third); !ok {
		return exhausted(b, m)
	}

	accept := func(connAddr address.Addr, conn element.Element) ([3]address.Addr, bool) {
		if !conn.Flags.Type.Matches(connFilter) {
			return [3]address.Addr{}, false
		}

		first := otherEndpoint(conn, third)

		firstElem, ok := resolveLocked(b, first)
		if !ok || !firstElem.Flags.Type.Matches(firstFilter) {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{first, connAddr, third}, true
	}

	return newIterator(b, m, walkChain(b, third, dirIn, accept))
}

// NewFAF: both endpoints fixed, walk third.first_in_arc, accept
// connectors whose begin equals first.
func NewFAF(b Backend, m *metrics.Store, first, third address.Addr, connFilter element.Type) *Iterator {
	if _, ok := resolveLocked(b, first); !ok {
		return exhausted(b, m)
	}

	if _, ok := resolveLocked(b, third); !ok {
		return exhausted(b, m)
	}

	accept := func(connAddr address.Addr, conn element.Element) ([3]address.Addr, bool) {
		if !conn.Flags.Type.Matches(connFilter) {
			return [3]address.Addr{}, false
		}

		if conn.Begin != first {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{first, connAddr, third}, true
	}

	return newIterator(b, m, walkChain(b, third, dirIn, accept))
}

// NewAFA: fixed connector, resolve once and emit (conn.begin, conn,
// conn.end) if both endpoints satisfy their filters.
func NewAFA(b Backend, m *metrics.Store, connAddr address.Addr, firstFilter, thirdFilter element.Type) *Iterator {
	advance := func() ([3]address.Addr, bool) {
		conn, ok := resolveLocked(b, connAddr)
		if !ok || !conn.Flags.Type.IsConnector() {
			return [3]address.Addr{}, false
		}

		firstElem, ok := resolveLocked(b, conn.Begin)
		if !ok || !firstElem.Flags.Type.Matches(firstFilter) {
			return [3]address.Addr{}, false
		}

		thirdElem, ok := resolveLocked(b, conn.End)
		if !ok || !thirdElem.Flags.Type.Matches(thirdFilter) {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{conn.Begin, connAddr, conn.End}, true
	}

	return newIterator(b, m, onceFrom(advance))
}

// NewFFA: fixed first and connector, emit (first, conn, conn.end) if
// conn.begin == first and the end matches thirdFilter.
func NewFFA(b Backend, m *metrics.Store, first, connAddr address.Addr, thirdFilter element.Type) *Iterator {
	advance := func() ([3]address.Addr, bool) {
		conn, ok := resolveLocked(b, connAddr)
		if !ok || !conn.Flags.Type.IsConnector() || conn.Begin != first {
			return [3]address.Addr{}, false
		}

		thirdElem, ok := resolveLocked(b, conn.End)
		if !ok || !thirdElem.Flags.Type.Matches(thirdFilter) {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{first, connAddr, conn.End}, true
	}

	return newIterator(b, m, onceFrom(advance))
}

// NewAFF: fixed connector and third, emit (conn.begin, conn, third) if
// conn.end == third and the begin matches firstFilter.
func NewAFF(b Backend, m *metrics.Store, connAddr, third address.Addr, firstFilter element.Type) *Iterator {
	advance := func() ([3]address.Addr, bool) {
		conn, ok := resolveLocked(b, connAddr)
		if !ok || !conn.Flags.Type.IsConnector() || conn.End != third {
			return [3]address.Addr{}, false
		}

		firstElem, ok := resolveLocked(b, conn.Begin)
		if !ok || !firstElem.Flags.Type.Matches(firstFilter) {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{conn.Begin, connAddr, third}, true
	}

	return newIterator(b, m, onceFrom(advance))
}

// NewFFF: everything fixed, emit (first, conn, third) iff conn's
// endpoints match both.
func NewFFF(b Backend, m *metrics.Store, first, connAddr, third address.Addr) *Iterator {
	advance := func() ([3]address.Addr, bool) {
		conn, ok := resolveLocked(b, connAddr)
		if !ok || !conn.Flags.Type.IsConnector() {
			return [3]address.Addr{}, false
		}

		if conn.Begin != first || conn.End != third {
			return [3]address.Addr{}, false
		}

		return [3]address.Addr{first, connAddr, third}, true
	}

	return newIterator(b, m, onceFrom(advance))
}

// onceFrom wraps a single-shot advance function so the second and
// later Next() calls return false without re-resolving anything.
func onceFrom(advance func() ([3]address.Addr, bool)) func() ([3]address.Addr, bool) {
	done := false

	return func() ([3]address.Addr, bool) {
		if done {
			return [3]address.Addr{}, false
		}

		done = true

		return advance()
	}
}
