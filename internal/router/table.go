package router

import (
	"sort"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/logger"
)

// Table is one layer's 256-slot distance-vector table. Slot i holds every
// known path towards the destination(s) whose id has layer byte i at this
// table's layer. The slot equal to the local node's own layer byte is the
// self-slot and is never populated from sync input.
type Table struct {
	layer    int
	self     domain.NodeId
	dests    [256]*Dest
	slots    []uint8 // sorted, populated non-self slot indices
	lgr      logger.Logger
}

// NewTable constructs an empty Table for the given layer, owned by self.
func NewTable(layer int, self domain.NodeId, lgr logger.Logger) *Table {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	t := &Table{layer: layer, self: self, lgr: lgr}
	for i := range t.dests {
		t.dests[i] = newDest()
	}
	return t
}

func (t *Table) selfSlot() uint8 {
	return t.self.Layer(t.layer)
}

func (t *Table) markPopulated(slot uint8) {
	if slot == t.selfSlot() {
		return
	}
	i := sort.Search(len(t.slots), func(i int) bool { return t.slots[i] >= slot })
	if i < len(t.slots) && t.slots[i] == slot {
		return
	}
	t.slots = append(t.slots, 0)
	copy(t.slots[i+1:], t.slots[i:])
	t.slots[i] = slot
}

func (t *Table) markIfEmpty(slot uint8) {
	if slot == t.selfSlot() {
		return
	}
	if !t.dests[slot].IsEmpty() {
		return
	}
	i := sort.Search(len(t.slots), func(i int) bool { return t.slots[i] >= slot })
	if i < len(t.slots) && t.slots[i] == slot {
		t.slots = append(t.slots[:i], t.slots[i+1:]...)
	}
}

// AddDirect registers a directly measured path to srcNode, reached over
// conn, with the given metric. metric.Hops[0] must equal srcNode.
func (t *Table) AddDirect(conn domain.ConnId, srcNode domain.NodeId, metric domain.Metric) {
	slot := srcNode.Layer(t.layer)
	if slot == t.selfSlot() {
		t.lgr.Warn("AddDirect: refusing to populate self slot", logger.F("slot", slot))
		return
	}
	t.dests[slot].SetPath(conn, srcNode, metric)
	t.markPopulated(slot)
	t.lgr.Debug("AddDirect", logger.F("layer", t.layer), logger.F("slot", slot), logger.F("conn", conn))
}

// DelDirect removes conn from every slot in this table, pruning any slot
// that becomes empty as a result.
func (t *Table) DelDirect(conn domain.ConnId) {
	for _, slot := range append([]uint8(nil), t.slots...) {
		if t.dests[slot].HasPathVia(conn) {
			t.dests[slot].DelPath(conn)
			t.markIfEmpty(slot)
		}
	}
	t.lgr.Debug("DelDirect", logger.F("layer", t.layer), logger.F("conn", conn))
}

// Next looks up the best (conn, next hop) towards dst's slot at this layer.
func (t *Table) Next(dst domain.NodeId, excepts []domain.NodeId) (domain.ConnId, domain.NodeId, bool) {
	slot := dst.Layer(t.layer)
	if slot == t.selfSlot() {
		return 0, t.self, false
	}
	return t.dests[slot].Next(excepts)
}

// NextPath is like Next but returns the full Path.
func (t *Table) NextPath(dst domain.NodeId, excepts []domain.NodeId) (domain.Path, bool) {
	slot := dst.Layer(t.layer)
	if slot == t.selfSlot() {
		return domain.Path{}, false
	}
	return t.dests[slot].NextPath(excepts)
}

// ApplySync merges a TableSync advertised by srcNode (reached over srcConn
// with locally measured srcMetric) into this table.
//
// For every (slot, metric) pair in the sync, the spliced metric is computed
// via metric.Add(srcMetric); on success the resulting path is installed on
// that slot. Afterwards, every non-self slot *not* mentioned in this sync
// that currently holds a path learned via srcConn is withdrawn — unless
// that slot is srcNode's own slot (which a well-formed sync never touches
// anyway, since a peer never advertises a poisoned-reverse route to
// itself).
func (t *Table) ApplySync(srcConn domain.ConnId, srcNode domain.NodeId, srcMetric domain.Metric, sync TableSync) {
	mentioned := make(map[uint8]struct{}, len(sync))
	selfSlot := t.selfSlot()
	srcSlot := srcNode.Layer(t.layer)

	for _, entry := range sync {
		if entry.Slot == selfSlot {
			continue
		}
		mentioned[entry.Slot] = struct{}{}
		spliced, ok := entry.Metric.Add(srcMetric)
		if !ok {
			t.lgr.Debug("ApplySync: rejecting entry (loop or too long)",
				logger.F("layer", t.layer), logger.F("slot", entry.Slot))
			continue
		}
		t.dests[entry.Slot].SetPath(srcConn, srcNode, spliced)
		t.markPopulated(entry.Slot)
	}

	for _, slot := range append([]uint8(nil), t.slots...) {
		if slot == selfSlot || slot == srcSlot {
			continue
		}
		if _, ok := mentioned[slot]; ok {
			continue
		}
		if t.dests[slot].HasPathVia(srcConn) {
			t.dests[slot].DelPath(srcConn)
			t.markIfEmpty(slot)
		}
	}
}

// SyncFor builds the TableSync this table should advertise to remote, or
// nil if remote falls outside this layer's advertising scope
// (eq_util_layer(self, remote) > layer+1).
//
// Each populated non-self slot contributes the metric of its best path that
// does not traverse remote (poisoned reverse).
func (t *Table) SyncFor(remote domain.NodeId) (TableSync, bool) {
	if t.self.EqUtilLayer(remote) > t.layer+1 {
		return nil, false
	}
	var out TableSync
	for _, slot := range t.slots {
		p, ok := t.dests[slot].BestFor(remote)
		if !ok {
			continue
		}
		out = append(out, TableSyncEntry{Slot: slot, Metric: p.Metric})
	}
	return out, true
}

// Slots returns the sorted set of currently populated non-self slots.
func (t *Table) Slots() []uint8 {
	return append([]uint8(nil), t.slots...)
}

// DebugLog emits a structured snapshot of this table's populated slots.
func (t *Table) DebugLog() {
	t.lgr.Debug("table snapshot", logger.F("layer", t.layer), logger.F("slots", t.slots))
}
