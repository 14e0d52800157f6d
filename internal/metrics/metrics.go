// Package metrics exposes the scmem store's internal counters and
// gauges (allocator occupancy, event dispatch throughput, iterator
// steps) as Prometheus collectors, registered against a caller-supplied
// registry so an embedding process controls its own /metrics endpoint.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Store bundles every metric scmem updates during normal operation.
type Store struct {
	SegmentsEngaged prometheus.Gauge
	FreeSlotsTotal  prometheus.Gauge
	ElementsCreated prometheus.Counter
	ElementsErased  prometheus.Counter
	AllocFullMemory prometheus.Counter
	EventsEmitted   prometheus.Counter
	EventsDelivered prometheus.Counter
	EventsDropped   prometheus.Counter
	IteratorSteps   prometheus.Counter
	IteratorsOpened prometheus.Counter

	// LiveNodes, LiveLinks, LiveArcs and LiveEdges track per-category
	// live element counts for GetElementsStat; the Gauges are exported
	// through reg while the atomic counters let callers read the exact
	// value back without going through the Prometheus collection path.
	LiveNodes prometheus.Gauge
	LiveLinks prometheus.Gauge
	LiveArcs  prometheus.Gauge
	LiveEdges prometheus.Gauge

	liveNodes atomic.Int64
	liveLinks atomic.Int64
	liveArcs  atomic.Int64
	liveEdges atomic.Int64
}

// IncLiveNodes/DecLiveNodes adjust the live node count kept for
// GetElementsStat, mirroring the change onto the exported gauge.
func (s *Store) IncLiveNodes() { s.liveNodes.Add(1); s.LiveNodes.Inc() }
func (s *Store) DecLiveNodes() { s.liveNodes.Add(-1); s.LiveNodes.Dec() }

// LiveNodesCount returns the current live node count.
func (s *Store) LiveNodesCount() int64 { return s.liveNodes.Load() }

// IncLiveLinks/DecLiveLinks adjust the live link count.
func (s *Store) IncLiveLinks() { s.liveLinks.Add(1); s.LiveLinks.Inc() }
func (s *Store) DecLiveLinks() { s.liveLinks.Add(-1); s.LiveLinks.Dec() }

// LiveLinksCount returns the current live link count.
func (s *Store) LiveLinksCount() int64 { return s.liveLinks.Load() }

// IncLiveArcs/DecLiveArcs adjust the live directed-connector count.
func (s *Store) IncLiveArcs() { s.liveArcs.Add(1); s.LiveArcs.Inc() }
func (s *Store) DecLiveArcs() { s.liveArcs.Add(-1); s.LiveArcs.Dec() }

// LiveArcsCount returns the current live directed-connector count.
func (s *Store) LiveArcsCount() int64 { return s.liveArcs.Load() }

// IncLiveEdges/DecLiveEdges adjust the live undirected-edge count.
func (s *Store) IncLiveEdges() { s.liveEdges.Add(1); s.LiveEdges.Inc() }
func (s *Store) DecLiveEdges() { s.liveEdges.Add(-1); s.LiveEdges.Dec() }

// LiveEdgesCount returns the current live undirected-edge count.
func (s *Store) LiveEdgesCount() int64 { return s.liveEdges.Load() }

// New creates a Store and registers all of its collectors with reg.
// Passing a prometheus.NewRegistry() keeps scmem's metrics isolated
// from the process default registry, matching how embedding
// applications are expected to wire their own exporter.
func New(reg prometheus.Registerer) *Store {
	s := &Store{
		SegmentsEngaged: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "segment",
			Name:      "segments_engaged",
			Help:      "Number of segments currently allocated by the pool.",
		}),
		FreeSlotsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "segment",
			Name:      "free_slots_total",
			Help:      "Total number of recycled slots across all segments.",
		}),
		ElementsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "elements_created_total",
			Help:      "Elements (nodes, links, connectors) created.",
		}),
		ElementsErased: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "elements_erased_total",
			Help:      "Elements erased, including cascaded connectors.",
		}),
		AllocFullMemory: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "segment",
			Name:      "full_memory_total",
			Help:      "Allocation attempts that failed with ERROR_FULL_MEMORY.",
		}),
		EventsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "event",
			Name:      "emitted_total",
			Help:      "Events pushed onto the emission queue.",
		}),
		EventsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "event",
			Name:      "delivered_total",
			Help:      "Dispatch records delivered to subscriber callbacks.",
		}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "event",
			Name:      "dropped_total",
			Help:      "Dispatch records discarded because their subscription was destroyed before delivery.",
		}),
		IteratorSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "iterator",
			Name:      "steps_total",
			Help:      "Iterator Next() calls across all patterns.",
		}),
		IteratorsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scmem",
			Subsystem: "iterator",
			Name:      "opened_total",
			Help:      "Iterators constructed.",
		}),
		LiveNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "live_nodes",
			Help:      "Nodes currently live in the store.",
		}),
		LiveLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "live_links",
			Help:      "Links currently live in the store.",
		}),
		LiveArcs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "live_arcs",
			Help:      "Directed connectors currently live in the store.",
		}),
		LiveEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "scmem",
			Subsystem: "graph",
			Name:      "live_edges",
			Help:      "Undirected connectors currently live in the store.",
		}),
	}

	reg.MustRegister(
		s.SegmentsEngaged,
		s.FreeSlotsTotal,
		s.ElementsCreated,
		s.ElementsErased,
		s.AllocFullMemory,
		s.EventsEmitted,
		s.EventsDelivered,
		s.EventsDropped,
		s.IteratorSteps,
		s.IteratorsOpened,
		s.LiveNodes,
		s.LiveLinks,
		s.LiveArcs,
		s.LiveEdges,
	)

	return s
}

// NewForTesting returns a Store registered against a private registry,
// for use in tests that don't care about export.
func NewForTesting() *Store {
	return New(prometheus.NewRegistry())
}
