package graph

// Stat is a snapshot of store-wide occupancy, for GetElementsStat.
type Stat struct {
	SegmentsCount  int
	FreeSlotsTotal int

	// NodesCount, LinksCount, ArcsCount and EdgesCount are live
	// per-category element counts, maintained incrementally by the
	// create/erase paths rather than recomputed by a pool scan.
	NodesCount int64
	LinksCount int64
	ArcsCount  int64
	EdgesCount int64
}

// GetElementsStat reports segment, free-slot and per-category live
// element occupancy, and updates the corresponding metrics gauges.
func (s *Store) GetElementsStat() Stat {
	stat := Stat{
		SegmentsCount:  s.pool.SegmentsCount(),
		FreeSlotsTotal: s.pool.FreeSlotsTotal(),
	}

	if s.metrics != nil {
		stat.NodesCount = s.metrics.LiveNodesCount()
		stat.LinksCount = s.metrics.LiveLinksCount()
		stat.ArcsCount = s.metrics.LiveArcsCount()
		stat.EdgesCount = s.metrics.LiveEdgesCount()

		s.metrics.SegmentsEngaged.Set(float64(stat.SegmentsCount))
		s.metrics.FreeSlotsTotal.Set(float64(stat.FreeSlotsTotal))
	}

	return stat
}
