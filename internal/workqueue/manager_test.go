package workqueue_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/event"
	"github.com/sc-machine-go/scmem/internal/metrics"
	"github.com/sc-machine-go/scmem/internal/workqueue"
)

func TestManagerDeliversAndDrains(t *testing.T) {
	m := metrics.NewForTesting()
	mgr := workqueue.New(4, m)
	defer mgr.Stop()

	reg := event.NewRegistry(mgr, m)
	addr := address.Addr{Seg: 1, Off: 1}

	var delivered int64
	reg.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		atomic.AddInt64(&delivered, 1)
	}, nil, nil)

	for i := 0; i < 10; i++ {
		reg.Emit(addr, event.AddOutputArc, address.Addr{Seg: 1, Off: 2}, address.Addr{})
	}

	mgr.Drain()
	require.EqualValues(t, 10, atomic.LoadInt64(&delivered))
}

func TestManagerPreservesPerSubscriptionOrder(t *testing.T) {
	m := metrics.NewForTesting()
	mgr := workqueue.New(8, m)
	defer mgr.Stop()

	reg := event.NewRegistry(mgr, m)
	addr := address.Addr{Seg: 5, Off: 9}

	var mu sync.Mutex
	var seen []int

	reg.Subscribe(addr, event.AddOutputArc, func(a address.Addr, k event.Kind, o1, o2 address.Addr, ud any) {
		mu.Lock()
		seen = append(seen, int(o1.Off))
		mu.Unlock()
	}, nil, nil)

	const n = 200
	for i := 0; i < n; i++ {
		reg.Emit(addr, event.AddOutputArc, address.Addr{Seg: 1, Off: uint32(i)}, address.Addr{})
	}

	mgr.Drain()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, n)

	for i, v := range seen {
		require.Equal(t, i, v, "dispatch records for one subscription must be delivered in emit order")
	}
}

func TestManagerReclaimsDestroyedSubscription(t *testing.T) {
	m := metrics.NewForTesting()
	mgr := workqueue.New(2, m)
	defer mgr.Stop()

	reg := event.NewRegistry(mgr, m)
	addr := address.Addr{Seg: 3, Off: 4}

	h := reg.Subscribe(addr, event.ContentChanged, func(address.Addr, event.Kind, address.Addr, address.Addr, any) {}, nil, nil)
	reg.Destroy(h)
	mgr.Drain()
}
