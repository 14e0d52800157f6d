package graph

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/event"
	"github.com/sc-machine-go/scmem/internal/monitor"
)

// CreateNode allocates a new node element with subtype bits ORed onto
// the node kind. subtype must not set any structural-kind bit.
func (s *Store) CreateNode(ctx context.Context, subtype element.Type) (address.Addr, error) {
	return s.createPlain(ctx, element.Node, subtype)
}

// CreateLink allocates a new content-bearing link element.
func (s *Store) CreateLink(ctx context.Context, subtype element.Type) (address.Addr, error) {
	return s.createPlain(ctx, element.Link, subtype)
}

func (s *Store) createPlain(ctx context.Context, kind, subtype element.Type) (address.Addr, error) {
	if subtype&element.Mask != 0 {
		return address.Empty, errors.Wrap(ErrInvalidType, "type_bits must not cross category")
	}

	pid := s.pidFrom(ctx)

	addr, elem, err := s.alloc.Allocate(pid)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AllocFullMemory.Inc()
		}

		return address.Empty, errors.Wrap(ErrFullMemory, err.Error())
	}

	elem.Flags.Type = kind | subtype

	if s.metrics != nil {
		s.metrics.ElementsCreated.Inc()

		if kind.IsNode() {
			s.metrics.IncLiveNodes()
		} else {
			s.metrics.IncLiveLinks()
		}
	}

	return addr, nil
}

// CreateConnector allocates a connector between begin and end and
// threads it into both endpoints' incidence lists. subtype must set
// Arc; setting EdgeCommon makes it an undirected edge, which (when
// begin != end) is additionally threaded into the symmetric lists at
// the opposite endpoint.
func (s *Store) CreateConnector(ctx context.Context, subtype element.Type, begin, end address.Addr) (address.Addr, error) {
	if begin.IsEmpty() || end.IsEmpty() {
		return address.Empty, errors.Wrap(ErrInvalidParams, "begin/end must not be empty")
	}

	if subtype&element.Arc == 0 {
		return address.Empty, errors.Wrap(ErrInvalidType, "connector type must set ARC")
	}

	pid := s.pidFrom(ctx)

	addr, elem, err := s.alloc.Allocate(pid)
	if err != nil {
		if s.metrics != nil {
			s.metrics.AllocFullMemory.Inc()
		}

		return address.Empty, errors.Wrap(ErrFullMemory, err.Error())
	}

	isEdge := subtype.IsEdge() && begin != end

	ticket, beginElem, endElem, err := s.acquireConnectorMonitors(begin, end, isEdge)
	if err != nil {
		_ = s.alloc.Free(addr)

		return address.Empty, errors.Wrap(ErrAddrNotValid, err.Error())
	}
	defer ticket.Release()

	elem.Flags.Type = subtype
	elem.Begin = begin
	elem.End = end

	s.linkOut(elem, addr, begin, beginElem)
	s.linkIn(elem, addr, end, endElem)

	if isEdge {
		s.linkOut(elem, addr, end, endElem)
		s.linkIn(elem, addr, begin, beginElem)
	}

	if s.metrics != nil {
		s.metrics.ElementsCreated.Inc()

		if subtype.IsEdge() {
			s.metrics.IncLiveEdges()
		} else {
			s.metrics.IncLiveArcs()
		}
	}

	s.events.EmitContext(ctx, begin, event.AddOutputArc, addr, end)
	s.events.EmitContext(ctx, end, event.AddInputArc, addr, begin)

	if isEdge {
		s.events.EmitContext(ctx, end, event.AddOutputArc, addr, begin)
		s.events.EmitContext(ctx, begin, event.AddInputArc, addr, end)
	}

	return addr, nil
}

// acquireConnectorMonitors locks begin, end and their current incidence
// list heads as a single ordered multi-acquire, retrying if a
// concurrent mutation changes a head between the peek and the lock.
// unlinkConnector uses the same peek-then-lock discipline for its
// neighbor set.
func (s *Store) acquireConnectorMonitors(begin, end address.Addr, isEdge bool) (*monitor.WriteTicket, *element.Element, *element.Element, error) {
	for {
		beginElem, err := s.pool.Resolve(begin)
		if err != nil {
			return nil, nil, nil, err
		}

		endElem, err := s.pool.Resolve(end)
		if err != nil {
			return nil, nil, nil, err
		}

		snapBeginOut, snapEndIn := beginElem.FirstOutArc, endElem.FirstInArc
		snapEndOut, snapBeginIn := endElem.FirstOutArc, beginElem.FirstInArc

		candidates := []*monitor.Monitor{s.monitors.MonitorFor(begin), s.monitors.MonitorFor(end)}

		addIf := func(a address.Addr) {
			if !a.IsEmpty() {
				candidates = append(candidates, s.monitors.MonitorFor(a))
			}
		}

		addIf(snapBeginOut)
		addIf(snapEndIn)

		if isEdge {
			addIf(snapEndOut)
			addIf(snapBeginIn)
		}

		ticket := s.monitors.AcquireWriteN(candidates...)

		beginElem2, err := s.pool.Resolve(begin)
		if err != nil {
			ticket.Release()

			return nil, nil, nil, err
		}

		endElem2, err := s.pool.Resolve(end)
		if err != nil {
			ticket.Release()

			return nil, nil, nil, err
		}

		stable := beginElem2.FirstOutArc == snapBeginOut && endElem2.FirstInArc == snapEndIn
		if isEdge {
			stable = stable && endElem2.FirstOutArc == snapEndOut && beginElem2.FirstInArc == snapBeginIn
		}

		if stable {
			return ticket, beginElem2, endElem2, nil
		}

		ticket.Release()
	}
}

// linkOut threads addr (whose Begin/End are already set on elem) at the
// head of owner's out-list.
func (s *Store) linkOut(elem *element.Element, addr, owner address.Addr, ownerElem *element.Element) {
	prevHead := ownerElem.FirstOutArc

	elem.SetOutNext(owner, prevHead)
	elem.SetOutPrev(owner, address.Empty)

	if !prevHead.IsEmpty() {
		if prevElem, err := s.pool.Resolve(prevHead); err == nil {
			prevElem.SetOutPrev(owner, addr)
		}
	}

	ownerElem.FirstOutArc = addr
	ownerElem.OutputArcsCount++
}

// linkIn threads addr at the head of owner's in-list.
func (s *Store) linkIn(elem *element.Element, addr, owner address.Addr, ownerElem *element.Element) {
	prevHead := ownerElem.FirstInArc

	elem.SetInNext(owner, prevHead)
	elem.SetInPrev(owner, address.Empty)

	if !prevHead.IsEmpty() {
		if prevElem, err := s.pool.Resolve(prevHead); err == nil {
			prevElem.SetInPrev(owner, addr)
		}
	}

	ownerElem.FirstInArc = addr
	ownerElem.InputArcsCount++
}

// EraseElement cascades: it collects addr plus every connector
// transitively incident to an already-collected element, then removes
// them in collection order.
func (s *Store) EraseElement(ctx context.Context, addr address.Addr) error {
	if addr.IsEmpty() {
		return errors.Wrap(ErrInvalidParams, "address is empty")
	}

	for _, a := range s.collectForErase(addr) {
		s.eraseOne(ctx, a)
	}

	return nil
}

func (s *Store) collectForErase(root address.Addr) []address.Addr {
	visited := map[address.Addr]bool{root: true}
	order := []address.Addr{root}
	queue := []address.Addr{root}

	for len(queue) > 0 {
		x := queue[0]
		queue = queue[1:]

		ticket := s.monitors.AcquireReadN(s.monitors.MonitorFor(x))
		xElem, err := s.pool.Resolve(x)

		var neighbors []address.Addr
		if err == nil {
			neighbors = s.chainConnectors(xElem, x)
		}

		ticket.Release()

		for _, c := range neighbors {
			if visited[c] {
				continue
			}

			visited[c] = true
			order = append(order, c)
			queue = append(queue, c)
		}
	}

	return order
}

// chainConnectors walks xElem's out- and in-lists (owner == x) and
// returns every connector address encountered. Only the owner's
// monitor is held during the walk; neighbor slots are read without
// their own monitors.
func (s *Store) chainConnectors(xElem *element.Element, owner address.Addr) []address.Addr {
	var out []address.Addr

	for a := xElem.FirstOutArc; !a.IsEmpty(); {
		out = append(out, a)

		elem, err := s.pool.Resolve(a)
		if err != nil {
			break
		}

		a = elem.OutNext(owner)
	}

	for a := xElem.FirstInArc; !a.IsEmpty(); {
		out = append(out, a)

		elem, err := s.pool.Resolve(a)
		if err != nil {
			break
		}

		a = elem.InNext(owner)
	}

	return out
}

// eraseOne performs the removal phase for a single collected address:
// mark REQUEST_DELETION, drop link content, unlink connector incidence,
// emit REMOVE_ELEMENT, free the slot, and retire subscriptions.
func (s *Store) eraseOne(ctx context.Context, addr address.Addr) {
	ticket := s.monitors.AcquireWriteN(s.monitors.MonitorFor(addr))

	elem, err := s.pool.Resolve(addr)
	if err != nil {
		ticket.Release()

		return
	}

	if elem.Flags.DeletionRequested() {
		ticket.Release()

		return
	}

	elem.Flags.AccessLevels |= element.RequestDeletion
	typ := elem.Flags.Type
	begin, end := elem.Begin, elem.End

	ticket.Release()

	if typ.IsLink() {
		if err := s.fsm.UnlinkString(addr.Pack()); err != nil {
			log.Warnw("drop link content failed", "addr", addr.String(), "error", err)
		}
	}

	if typ.IsConnector() {
		s.unlinkConnector(ctx, addr, begin, end, typ)
	}

	s.events.EmitContext(ctx, addr, event.RemoveElement, address.Empty, address.Empty)

	// Free overwrites the whole slot; hold the address write monitor so
	// a concurrent resolver never reads a slot mid-free. The monitor was
	// released above only so unlinkConnector could take its own set.
	freeTicket := s.monitors.AcquireWriteN(s.monitors.MonitorFor(addr))

	if err := s.alloc.Free(addr); err != nil {
		log.Warnw("free slot failed", "addr", addr.String(), "error", err)
	}

	freeTicket.Release()

	if s.metrics != nil {
		s.metrics.ElementsErased.Inc()

		switch {
		case typ.IsNode():
			s.metrics.DecLiveNodes()
		case typ.IsLink():
			s.metrics.DecLiveLinks()
		case typ.IsConnector() && typ.IsEdge():
			s.metrics.DecLiveEdges()
		case typ.IsConnector():
			s.metrics.DecLiveArcs()
		}
	}

	s.events.NotifyElementDeleted(addr)
}

// unlinkConnector rewires addr out of begin's/end's incidence lists
// (and, for an undirected edge, the symmetric pair at the opposite
// endpoint), retrying under the same optimistic-peek-then-lock
// discipline as acquireConnectorMonitors.
func (s *Store) unlinkConnector(ctx context.Context, addr, begin, end address.Addr, typ element.Type) {
	isEdge := typ.IsEdge() && begin != end

	for {
		elem, err := s.pool.Resolve(addr)
		if err != nil {
			return
		}

		nOut, pOut := elem.OutNext(begin), elem.OutPrev(begin)
		nIn, pIn := elem.InNext(end), elem.InPrev(end)

		var nOut2, pOut2, nIn2, pIn2 address.Addr
		if isEdge {
			nOut2, pOut2 = elem.OutNext(end), elem.OutPrev(end)
			nIn2, pIn2 = elem.InNext(begin), elem.InPrev(begin)
		}

		candidates := []*monitor.Monitor{s.monitors.MonitorFor(begin), s.monitors.MonitorFor(end)}

		addIf := func(a address.Addr) {
			if !a.IsEmpty() {
				candidates = append(candidates, s.monitors.MonitorFor(a))
			}
		}

		addIf(nOut)
		addIf(pOut)
		addIf(nIn)
		addIf(pIn)

		if isEdge {
			addIf(nOut2)
			addIf(pOut2)
			addIf(nIn2)
			addIf(pIn2)
		}

		ticket := s.monitors.AcquireWriteN(candidates...)

		elem2, err := s.pool.Resolve(addr)
		if err != nil {
			ticket.Release()

			return
		}

		stable := elem2.OutNext(begin) == nOut && elem2.OutPrev(begin) == pOut &&
			elem2.InNext(end) == nIn && elem2.InPrev(end) == pIn

		if isEdge {
			stable = stable && elem2.OutNext(end) == nOut2 && elem2.OutPrev(end) == pOut2 &&
				elem2.InNext(begin) == nIn2 && elem2.InPrev(begin) == pIn2
		}

		if !stable {
			ticket.Release()

			continue
		}

		beginElem, errBegin := s.pool.Resolve(begin)
		endElem, errEnd := s.pool.Resolve(end)

		if errBegin == nil {
			s.unlinkOut(begin, beginElem, nOut, pOut)
		}

		if errEnd == nil {
			s.unlinkIn(end, endElem, nIn, pIn)
		}

		if isEdge {
			if errEnd == nil {
				s.unlinkOut(end, endElem, nOut2, pOut2)
			}

			if errBegin == nil {
				s.unlinkIn(begin, beginElem, nIn2, pIn2)
			}
		}

		ticket.Release()

		if errBegin == nil {
			s.events.EmitContext(ctx, begin, event.RemoveOutputArc, addr, end)
		}

		if errEnd == nil {
			s.events.EmitContext(ctx, end, event.RemoveInputArc, addr, begin)
		}

		if isEdge {
			if errEnd == nil {
				s.events.EmitContext(ctx, end, event.RemoveOutputArc, addr, begin)
			}

			if errBegin == nil {
				s.events.EmitContext(ctx, begin, event.RemoveInputArc, addr, end)
			}
		}

		return
	}
}

func (s *Store) unlinkOut(owner address.Addr, ownerElem *element.Element, next, prev address.Addr) {
	if prev.IsEmpty() {
		ownerElem.FirstOutArc = next
	} else if prevElem, err := s.pool.Resolve(prev); err == nil {
		prevElem.SetOutNext(owner, next)
	}

	if !next.IsEmpty() {
		if nextElem, err := s.pool.Resolve(next); err == nil {
			nextElem.SetOutPrev(owner, prev)
		}
	}

	ownerElem.OutputArcsCount--
}

func (s *Store) unlinkIn(owner address.Addr, ownerElem *element.Element, next, prev address.Addr) {
	if prev.IsEmpty() {
		ownerElem.FirstInArc = next
	} else if prevElem, err := s.pool.Resolve(prev); err == nil {
		prevElem.SetInNext(owner, next)
	}

	if !next.IsEmpty() {
		if nextElem, err := s.pool.Resolve(next); err == nil {
			nextElem.SetInPrev(owner, prev)
		}
	}

	ownerElem.InputArcsCount--
}
