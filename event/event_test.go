package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/event"
)

// recordingSink collects appended events instead of letting them reach
// the live queue, standing in for a caller's commit-buffer.
type recordingSink struct {
	events []event.Kind
}

func (s *recordingSink) Append(addr address.Addr, kind event.Kind, other1, other2 address.Addr) {
	s.events = append(s.events, kind)
}

// inlineQueue runs dispatch/reclaim synchronously, useful for testing
// Registry semantics without pulling in internal/workqueue.
type inlineQueue struct{}

func (inlineQueue) Push(rec event.DispatchRecord)       { event.Invoke(rec, nil) }
func (inlineQueue) PushDeletable(s *event.Subscription) { event.Reclaim(s) }

// bufferQueue holds pushed records instead of invoking them, so a test
// can destroy a subscription between emit and dispatch.
type bufferQueue struct {
	recs []event.DispatchRecord
	dels []*event.Subscription
}

func (q *bufferQueue) Push(rec event.DispatchRecord)       { q.recs = append(q.recs, rec) }
func (q *bufferQueue) PushDeletable(s *event.Subscription) { q.dels = append(q.dels, s) }

func TestInvokeDropsRecordForDestroyedSubscription(t *testing.T) {
	q := &bufferQueue{}
	r := event.NewRegistry(q, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var calls int
	h := r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		calls++
	}, nil, nil)

	r.Emit(addr, event.AddOutputArc, address.Addr{Seg: 1, Off: 2}, address.Addr{})
	require.Len(t, q.recs, 1)

	r.Destroy(h)

	event.Invoke(q.recs[0], nil)
	require.Equal(t, 0, calls, "a record for a destroyed subscription must be dropped, not delivered")

	for _, sub := range q.dels {
		event.Reclaim(sub)
	}
}

func TestSubscribeEmitDelivers(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var mu sync.Mutex
	var calls int

	r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, nil, nil)

	for i := 0; i < 10; i++ {
		r.Emit(addr, event.AddOutputArc, address.Addr{Seg: 1, Off: 2}, address.Addr{})
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, calls)
}

func TestEmitOnlyMatchingKind(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var calls int
	r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		calls++
	}, nil, nil)

	r.Emit(addr, event.RemoveOutputArc, address.Addr{}, address.Addr{})
	require.Equal(t, 0, calls)
}

func TestDestroyStopsDelivery(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var deleted bool
	h := r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		t.Fatalf("callback must not fire after destroy")
	}, func(any) { deleted = true }, nil)

	r.Destroy(h)
	require.True(t, deleted)

	r.Emit(addr, event.AddOutputArc, address.Addr{}, address.Addr{})
}

func TestNotifyElementDeletedRetiresSubscriptions(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 2, Off: 5}

	var calls int
	r.Subscribe(addr, event.ContentChanged, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		calls++
	}, nil, nil)

	r.NotifyElementDeleted(addr)
	r.Emit(addr, event.ContentChanged, address.Addr{}, address.Addr{})

	require.Equal(t, 0, calls)
}

func TestEmitContextDefersToPendingSink(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var calls int
	r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		calls++
	}, nil, nil)

	sink := &recordingSink{}
	ctx := event.WithPendingSink(context.Background(), sink)

	r.EmitContext(ctx, addr, event.AddOutputArc, address.Addr{}, address.Addr{})

	require.Equal(t, 0, calls, "callback must not fire while emission is deferred to the sink")
	require.Equal(t, []event.Kind{event.AddOutputArc}, sink.events)
}

func TestEmitContextWithoutSinkBehavesLikeEmit(t *testing.T) {
	r := event.NewRegistry(inlineQueue{}, nil)
	addr := address.Addr{Seg: 1, Off: 1}

	var calls int
	r.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		calls++
	}, nil, nil)

	r.EmitContext(context.Background(), addr, event.AddOutputArc, address.Addr{}, address.Addr{})

	require.Equal(t, 1, calls)
}
