// Package workqueue implements the default emission manager: a worker
// pool that dequeues dispatch records pushed by event.Registry.Emit
// and invokes their callbacks on a goroutine separate from the
// mutator, plus a reclaim worker that finalizes destroyed
// subscriptions once no in-flight dispatch references them.
package workqueue

import (
	"hash/fnv"
	"sync"

	"github.com/sc-machine-go/scmem/event"
	"github.com/sc-machine-go/scmem/internal/logging"
	"github.com/sc-machine-go/scmem/internal/metrics"
)

var log = logging.Module("scmem/event")

// Manager is the default in-process emission manager. It satisfies
// event.Queue.
//
// Dispatch records are sharded across lanes by a hash of their
// subscription's handle: every record for a given subscription always
// lands on the same lane, and each lane is drained by exactly one
// goroutine, so per-subscription delivery order matches emit order
// even though different subscriptions' callbacks run concurrently.
type Manager struct {
	lanes       []chan event.DispatchRecord
	deletableCh chan *event.Subscription

	pending sync.WaitGroup // tracks records pushed but not yet processed
	workers sync.WaitGroup // tracks live worker goroutines, for Stop

	metrics *metrics.Store
}

// New starts a Manager with dispatchWorkers lanes, each drained by its
// own goroutine, and one goroutine reclaiming destroyed subscriptions.
// dispatchWorkers <= 0 defaults to 1.
func New(dispatchWorkers int, m *metrics.Store) *Manager {
	if dispatchWorkers <= 0 {
		dispatchWorkers = 1
	}

	mgr := &Manager{
		lanes:       make([]chan event.DispatchRecord, dispatchWorkers),
		deletableCh: make(chan *event.Subscription, 256),
		metrics:     m,
	}

	for i := range mgr.lanes {
		mgr.lanes[i] = make(chan event.DispatchRecord, 256)

		mgr.workers.Add(1)

		go mgr.dispatchLoop(mgr.lanes[i])
	}

	mgr.workers.Add(1)

	go mgr.reclaimLoop()

	return mgr
}

func (m *Manager) dispatchLoop(ch chan event.DispatchRecord) {
	defer m.workers.Done()

	for rec := range ch {
		event.Invoke(rec, m.metrics)
		m.pending.Done()
	}
}

// laneFor hashes a subscription's handle to a stable lane index, so
// every dispatch record for that handle is processed by the same
// single-threaded worker in push order.
func (m *Manager) laneFor(h event.Handle) int {
	hasher := fnv.New32a()
	hasher.Write([]byte(h.String()))

	return int(hasher.Sum32() % uint32(len(m.lanes)))
}

func (m *Manager) reclaimLoop() {
	defer m.workers.Done()

	for sub := range m.deletableCh {
		event.Reclaim(sub)
		m.pending.Done()
	}
}

// Push enqueues a dispatch record; it never blocks the mutator beyond
// the channel send itself. Emit is synchronous only w.r.t. pushing the
// record, not w.r.t. callback execution.
func (m *Manager) Push(rec event.DispatchRecord) {
	m.pending.Add(1)
	m.lanes[m.laneFor(rec.Sub.Handle)] <- rec
}

// PushDeletable enqueues a destroyed subscription for reclamation.
func (m *Manager) PushDeletable(sub *event.Subscription) {
	m.pending.Add(1)
	m.deletableCh <- sub
}

// Drain blocks until every record pushed so far has been processed.
func (m *Manager) Drain() {
	m.pending.Wait()
}

// Stop closes the queues and waits for all worker goroutines to exit.
// Callers must Drain (or otherwise guarantee no further Push calls)
// before calling Stop.
func (m *Manager) Stop() {
	for _, ch := range m.lanes {
		close(ch)
	}

	close(m.deletableCh)
	m.workers.Wait()

	log.Debugw("emission manager stopped")
}
