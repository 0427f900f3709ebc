package domain

import "bytes"

// MaxHopCount bounds the length of a Metric's hop list. Metric.Add refuses
// to produce a longer path, which (together with loop rejection) is what
// keeps the distance-vector free of count-to-infinity.
const MaxHopCount = 8

// BandwidthUnlimited is the sentinel bandwidth value meaning "no known
// limit". Taking the minimum of BandwidthUnlimited and any finite value
// yields the finite value.
const BandwidthUnlimited uint32 = ^uint32(0)

// Metric is a distance-vector metric with an explicit hop list, used both
// to measure a link and to describe a path to a destination.
//
// Invariants: Hops is never empty; Hops[0] is the destination node; the
// last element is the local node, once the metric has been relayed through
// Add at least once.
type Metric struct {
	LatencyMs uint16
	Hops      []NodeId
	Bandwidth uint32
}

func minBandwidth(a, b uint32) uint32 {
	if a == BandwidthUnlimited {
		return b
	}
	if b == BandwidthUnlimited {
		return a
	}
	if a < b {
		return a
	}
	return b
}

func hasDuplicate(hops []NodeId) bool {
	seen := make(map[NodeId]struct{}, len(hops))
	for _, h := range hops {
		if _, ok := seen[h]; ok {
			return true
		}
		seen[h] = struct{}{}
	}
	return false
}

// Add concatenates m (a metric advertised by a neighbour for some
// destination, so m.Hops[0] is that destination and the last hop is the
// neighbour) with prefix (the locally measured metric to that neighbour, so
// prefix.Hops[0] is the neighbour and the last hop is the local node).
//
// It returns the spliced metric and true, unless the combined hop list
// would contain a duplicate node (a routing loop) or exceed MaxHopCount, in
// which case it returns the zero Metric and false.
func (m Metric) Add(prefix Metric) (Metric, bool) {
	if len(m.Hops) == 0 || len(prefix.Hops) == 0 {
		return Metric{}, false
	}
	combined := make([]NodeId, 0, len(m.Hops)+len(prefix.Hops)-1)
	combined = append(combined, m.Hops...)
	combined = append(combined, prefix.Hops[1:]...)

	if len(combined) > MaxHopCount || hasDuplicate(combined) {
		return Metric{}, false
	}

	return Metric{
		LatencyMs: m.LatencyMs + prefix.LatencyMs,
		Bandwidth: minBandwidth(m.Bandwidth, prefix.Bandwidth),
		Hops:      combined,
	}, true
}

// ContainsHop reports whether n appears anywhere in the metric's hop list.
func (m Metric) ContainsHop(n NodeId) bool {
	for _, h := range m.Hops {
		if h == n {
			return true
		}
	}
	return false
}

// Less orders metrics for best-path selection: ascending latency, then
// descending bandwidth, then ascending hop count, then lexicographic hop
// list, the last two purely to make ties deterministic across replicas.
func (m Metric) Less(other Metric) bool {
	if m.LatencyMs != other.LatencyMs {
		return m.LatencyMs < other.LatencyMs
	}
	if m.Bandwidth != other.Bandwidth {
		// BandwidthUnlimited sorts as the largest, so invert the comparison
		// by treating it as the top of the range explicitly.
		mb, ob := m.Bandwidth, other.Bandwidth
		if mb == BandwidthUnlimited {
			return true
		}
		if ob == BandwidthUnlimited {
			return false
		}
		return mb > ob
	}
	if len(m.Hops) != len(other.Hops) {
		return len(m.Hops) < len(other.Hops)
	}
	for i := range m.Hops {
		if m.Hops[i] != other.Hops[i] {
			return m.Hops[i] < other.Hops[i]
		}
	}
	return false
}

// Destination returns the node this metric describes a path to, i.e.
// Hops[0]. Panics is avoided by returning (0, false) on an empty metric.
func (m Metric) Destination() (NodeId, bool) {
	if len(m.Hops) == 0 {
		return 0, false
	}
	return m.Hops[0], true
}

// hopsEqual reports whether two hop lists are identical, used by tests.
func hopsEqual(a, b []NodeId) bool {
	return bytes.Equal(nodeIdsToBytes(a), nodeIdsToBytes(b))
}

func nodeIdsToBytes(ids []NodeId) []byte {
	out := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		out = append(out, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	}
	return out
}
