// Package domain holds the wire-level data model shared by every layer of
// the overlay: node identifiers, connection identifiers and the
// distance-vector metric used by the router.
package domain

import "fmt"

// NodeId uniquely identifies a participant in the overlay. It is viewed as
// four stacked bytes ("layers"); layer 0 is the least significant byte and
// layer 3 is the most significant. The hierarchy this induces is what lets
// Router bound its per-layer routing table to 256 slots regardless of
// network size (see Table).
type NodeId uint32

// Layer extracts byte i (0..=3) of the identifier, layer 0 being the
// lowest-order byte.
func (n NodeId) Layer(i int) byte {
	return byte(n >> (8 * uint(i)))
}

// EqUtilLayer returns the "util layer" shared with other: the count of
// high-order bytes that are identical between the two ids, in [0, 4]. Two
// identical ids return 4; ids differing in the top byte return 0.
func (n NodeId) EqUtilLayer(other NodeId) int {
	count := 0
	for i := 3; i >= 0; i-- {
		if n.Layer(i) != other.Layer(i) {
			break
		}
		count++
	}
	return count
}

// LookupLayer returns the table layer that should be consulted when routing
// from self towards dst: max(0, eq_util_layer(self, dst) - 1).
func LookupLayer(self, dst NodeId) int {
	eq := self.EqUtilLayer(dst)
	if eq == 0 {
		return 0
	}
	return eq - 1
}

// String renders the id as four dot-separated bytes, highest layer first,
// for structured logging (e.g. "10.0.0.1"-shaped, though this is an overlay
// id and not an IPv4 address).
func (n NodeId) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", n.Layer(3), n.Layer(2), n.Layer(1), n.Layer(0))
}
