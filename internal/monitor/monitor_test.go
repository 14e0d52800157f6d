package monitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/address"
	"github.com/sc-machine-go/scmem/internal/monitor"
)

func TestMonitorForIsStable(t *testing.T) {
	tbl := monitor.New(16)
	a := address.Addr{Seg: 3, Off: 9}

	m1 := tbl.MonitorFor(a)
	m2 := tbl.MonitorFor(a)
	require.Same(t, m1, m2)
}

func TestAcquireNDeduplicatesAndSkipsNil(t *testing.T) {
	tbl := monitor.New(4)
	a := address.Addr{Seg: 1, Off: 1}

	m := tbl.MonitorFor(a)

	// Acquiring the same monitor twice plus a nil must not deadlock.
	ticket := tbl.AcquireWriteN(m, m, nil)
	ticket.Release()
}

func TestReadWriteTickets(t *testing.T) {
	tbl := monitor.New(8)
	a := tbl.MonitorFor(address.Addr{Seg: 1, Off: 1})
	b := tbl.MonitorFor(address.Addr{Seg: 1, Off: 2})

	rt := tbl.AcquireReadN(a, b)
	rt.Release()

	wt := tbl.AcquireWriteN(b, a)
	wt.Release()
}
