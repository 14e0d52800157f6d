// Package event implements the per-element subscriber registry and the
// synchronous-emit / asynchronous-dispatch contract: subscribe, emit,
// destroy, and the subscription state machine
// LIVE -> DESTROY_REQUESTED -> RECLAIMABLE -> GONE.
package event

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/internal/metrics"
)

// Kind is the closed set of event kinds a subscriber can register for.
type Kind int

const (
	AddOutputArc Kind = iota
	AddInputArc
	RemoveOutputArc
	RemoveInputArc
	RemoveElement
	ContentChanged
)

func (k Kind) String() string {
	switch k {
	case AddOutputArc:
		return "ADD_OUTPUT_ARC"
	case AddInputArc:
		return "ADD_INPUT_ARC"
	case RemoveOutputArc:
		return "REMOVE_OUTPUT_ARC"
	case RemoveInputArc:
		return "REMOVE_INPUT_ARC"
	case RemoveElement:
		return "REMOVE_ELEMENT"
	case ContentChanged:
		return "CONTENT_CHANGED"
	default:
		return "UNKNOWN"
	}
}

// CallbackFunc is invoked by the emission manager's worker pool for a
// matching event.
type CallbackFunc func(addr address.Addr, kind Kind, other1, other2 address.Addr, userData any)

// OnDeleteFunc is invoked synchronously by Destroy before the
// subscription is queued for reclamation.
type OnDeleteFunc func(userData any)

// Handle is the opaque value returned by Subscribe; its lifecycle is
// owned by the Registry and the Queue it dispatches through.
type Handle struct {
	id uuid.UUID
}

func newHandle() Handle { return Handle{id: uuid.New()} }

func (h Handle) String() string { return h.id.String() }

type state int32

const (
	stateLive state = iota
	stateDestroyRequested
	stateReclaimable
	stateGone
)

// Subscription is one (addr, kind) registration. Dispatch records carry
// a pointer to the Subscription rather than re-resolving it from the
// registry; the inflight counter pins it until every carried reference
// has been invoked.
type Subscription struct {
	Handle   Handle
	Addr     address.Addr
	Kind     Kind
	callback CallbackFunc
	onDelete OnDeleteFunc
	userData any

	state    atomic.Int32
	inflight atomic.Int32
}

// State reports the subscription's current lifecycle state, for tests
// and diagnostics.
func (s *Subscription) State() string {
	switch state(s.state.Load()) {
	case stateLive:
		return "LIVE"
	case stateDestroyRequested:
		return "DESTROY_REQUESTED"
	case stateReclaimable:
		return "RECLAIMABLE"
	case stateGone:
		return "GONE"
	default:
		return "UNKNOWN"
	}
}

// DispatchRecord is what Emit pushes onto the emission queue: the
// pinned subscription plus the two addresses the event carries.
type DispatchRecord struct {
	Sub            *Subscription
	Other1, Other2 address.Addr
}

// Queue is the emission-manager collaborator contract: an external
// worker pool that dequeues dispatch records and invokes callbacks on
// a goroutine separate from the mutator.
type Queue interface {
	Push(rec DispatchRecord)
	PushDeletable(sub *Subscription)
}

// PendingSink lets a calling context defer emission until commit. When
// installed on a context passed to Registry.EmitContext, events are
// appended here instead of reaching the live queue immediately.
type PendingSink interface {
	Append(addr address.Addr, kind Kind, other1, other2 address.Addr)
}

type pendingSinkKey struct{}

// WithPendingSink attaches sink to ctx so every EmitContext call made
// with that context (or one derived from it) appends to sink instead
// of pushing onto the live emission queue.
func WithPendingSink(ctx context.Context, sink PendingSink) context.Context {
	return context.WithValue(ctx, pendingSinkKey{}, sink)
}

// PendingSinkFromContext returns the PendingSink installed on ctx, if
// any.
func PendingSinkFromContext(ctx context.Context) (PendingSink, bool) {
	sink, ok := ctx.Value(pendingSinkKey{}).(PendingSink)
	return sink, ok
}

// Registry owns the address -> subscription-list mapping and the
// emit/destroy/notify operations.
type Registry struct {
	mu       sync.Mutex
	byAddr   map[uint64][]*Subscription
	byHandle map[Handle]*Subscription
	queue    Queue
	metrics  *metrics.Store
}

// NewRegistry creates a Registry dispatching through q.
func NewRegistry(q Queue, m *metrics.Store) *Registry {
	return &Registry{
		byAddr:   make(map[uint64][]*Subscription),
		byHandle: make(map[Handle]*Subscription),
		queue:    q,
		metrics:  m,
	}
}

// Subscribe registers a callback for (addr, kind) and returns its
// handle. A single address may carry any number of subscriptions,
// including duplicates of the same kind.
func (r *Registry) Subscribe(addr address.Addr, kind Kind, cb CallbackFunc, onDelete OnDeleteFunc, userData any) Handle {
	sub := &Subscription{
		Handle:   newHandle(),
		Addr:     addr,
		Kind:     kind,
		callback: cb,
		onDelete: onDelete,
		userData: userData,
	}
	sub.state.Store(int32(stateLive))

	r.mu.Lock()
	key := addr.Pack()
	r.byAddr[key] = append(r.byAddr[key], sub)
	r.byHandle[sub.Handle] = sub
	r.mu.Unlock()

	return sub.Handle
}

// Emit is synchronous w.r.t. the mutator: it pins every LIVE
// subscription matching (addr, kind) and pushes a dispatch record onto
// the emission queue; the callback itself runs later on a worker.
func (r *Registry) Emit(addr address.Addr, kind Kind, other1, other2 address.Addr) {
	r.mu.Lock()
	subs := r.byAddr[addr.Pack()]
	matching := make([]*Subscription, 0, len(subs))

	for _, s := range subs {
		if s.Kind == kind && state(s.state.Load()) == stateLive {
			s.inflight.Add(1)
			matching = append(matching, s)
		}
	}
	r.mu.Unlock()

	for _, s := range matching {
		if r.metrics != nil {
			r.metrics.EventsEmitted.Inc()
		}

		r.queue.Push(DispatchRecord{Sub: s, Other1: other1, Other2: other2})
	}
}

// EmitContext is Emit's context-aware counterpart: if ctx carries a
// PendingSink (installed via WithPendingSink), the event is appended
// there instead of reaching the live queue, so a calling context can
// defer emission until it commits. Without an installed sink it
// behaves exactly like Emit.
func (r *Registry) EmitContext(ctx context.Context, addr address.Addr, kind Kind, other1, other2 address.Addr) {
	if sink, ok := PendingSinkFromContext(ctx); ok {
		sink.Append(addr, kind, other1, other2)
		return
	}

	r.Emit(addr, kind, other1, other2)
}

// Destroy detaches handle's subscription from the registry, marks it
// DESTROY_REQUESTED, synchronously invokes its on-delete callback, and
// hands it to the queue for reclamation once no dispatch references it
// any longer.
func (r *Registry) Destroy(handle Handle) {
	r.mu.Lock()
	sub, ok := r.byHandle[handle]
	if !ok {
		r.mu.Unlock()
		return
	}

	delete(r.byHandle, handle)
	r.detachLocked(sub)
	r.mu.Unlock()

	sub.state.Store(int32(stateDestroyRequested))

	if sub.onDelete != nil {
		sub.onDelete(sub.userData)
	}

	r.queue.PushDeletable(sub)
}

// NotifyElementDeleted atomically removes every subscription on addr
// and hands each to the queue for reclamation; the erase path calls it
// once per deleted element.
func (r *Registry) NotifyElementDeleted(addr address.Addr) {
	r.mu.Lock()
	key := addr.Pack()
	list := r.byAddr[key]
	delete(r.byAddr, key)

	for _, sub := range list {
		delete(r.byHandle, sub.Handle)
	}
	r.mu.Unlock()

	for _, sub := range list {
		sub.state.Store(int32(stateDestroyRequested))

		if sub.onDelete != nil {
			sub.onDelete(sub.userData)
		}

		r.queue.PushDeletable(sub)
	}
}

// detachLocked removes sub from its address's subscription list.
// Callers must hold r.mu.
func (r *Registry) detachLocked(sub *Subscription) {
	key := sub.Addr.Pack()
	list := r.byAddr[key]

	filtered := list[:0]

	for _, s := range list {
		if s != sub {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) == 0 {
		delete(r.byAddr, key)
	} else {
		r.byAddr[key] = filtered
	}
}

// Invoke is called by a Queue implementation's worker to run a
// dispatch record's callback and release the subscription's pin. A
// record whose subscription has left LIVE since emit time is dropped
// without invoking the callback; the pin is released either way. It is
// exported so an external emission-manager collaborator can be built
// against this package without depending on internal/workqueue.
func Invoke(rec DispatchRecord, m *metrics.Store) {
	if state(rec.Sub.state.Load()) != stateLive {
		rec.Sub.inflight.Add(-1)

		if m != nil {
			m.EventsDropped.Inc()
		}

		return
	}

	rec.Sub.callback(rec.Sub.Addr, rec.Sub.Kind, rec.Other1, rec.Other2, rec.Sub.userData)
	rec.Sub.inflight.Add(-1)

	if m != nil {
		m.EventsDelivered.Inc()
	}
}

// Reclaim is called by a Queue implementation's worker once it is safe
// to finalize sub: no in-flight dispatch references it. It spins
// briefly on the inflight counter (bounded, since Emit only pins
// subscriptions that were LIVE at emit time and every pin is released
// by exactly one Invoke call) before transitioning RECLAIMABLE -> GONE.
func Reclaim(sub *Subscription) {
	for sub.inflight.Load() > 0 {
		// Emit only pins a subscription a bounded number of times
		// (once per matching in-flight emission); every pin is
		// released by Invoke, so this converges without an
		// unbounded retry loop in practice.
		runtime.Gosched()
	}

	sub.state.Store(int32(stateReclaimable))
	sub.state.Store(int32(stateGone))
}
