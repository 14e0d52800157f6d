package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sc-machine-go/scmem/internal/metrics"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := metrics.New(reg)

	s.ElementsCreated.Inc()
	s.ElementsErased.Inc()
	s.SegmentsEngaged.Set(3)
	s.IncLiveNodes()
	s.IncLiveEdges()

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	names := make(map[string]bool, len(mfs))
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}

	require.True(t, names["scmem_graph_elements_created_total"])
	require.True(t, names["scmem_graph_elements_erased_total"])
	require.True(t, names["scmem_segment_segments_engaged"])
	require.True(t, names["scmem_graph_live_nodes"])
	require.True(t, names["scmem_graph_live_links"])
	require.True(t, names["scmem_graph_live_arcs"])
	require.True(t, names["scmem_graph_live_edges"])
}

func TestLiveCountersTrackIncDec(t *testing.T) {
	s := metrics.NewForTesting()

	s.IncLiveNodes()
	s.IncLiveNodes()
	s.DecLiveNodes()
	s.IncLiveArcs()

	require.EqualValues(t, 1, s.LiveNodesCount())
	require.EqualValues(t, 1, s.LiveArcsCount())
	require.EqualValues(t, 0, s.LiveLinksCount())
	require.EqualValues(t, 0, s.LiveEdgesCount())
}

func TestNewForTestingIsIsolated(t *testing.T) {
	a := metrics.NewForTesting()
	b := metrics.NewForTesting()

	a.ElementsCreated.Inc()

	require.NotSame(t, a, b)
}
