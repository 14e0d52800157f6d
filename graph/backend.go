package graph

import (
	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/element"
	"github.com/sc-machine-go/scmem/internal/metrics"
	"github.com/sc-machine-go/scmem/internal/monitor"
)

// Resolve, MonitorFor and AcquireReadN let the iterator package walk
// incidence chains against this store's pool and monitor table without
// either package importing the other's internals directly.
func (s *Store) Resolve(addr address.Addr) (*element.Element, error) {
	return s.pool.Resolve(addr)
}

func (s *Store) MonitorFor(addr address.Addr) *monitor.Monitor {
	return s.monitors.MonitorFor(addr)
}

func (s *Store) AcquireReadN(ms ...*monitor.Monitor) *monitor.ReadTicket {
	return s.monitors.AcquireReadN(ms...)
}

// Metrics exposes the store's metrics so callers constructing
// iterators can wire iterator-step counters through the same registry.
func (s *Store) Metrics() *metrics.Store { return s.metrics }
