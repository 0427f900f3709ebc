// Package router implements the hierarchical distance-vector routing table:
// Dest (candidate paths to one destination), Table (one layer's 256 slots)
// and Router (the four stacked Tables plus derive_action).
package router

import "github.com/8xFF/decentralized-sdn/internal/domain"

// Dest holds every known path to a single destination slot, keyed by the
// connection each path was learned on, plus a cached best path recomputed
// on every mutation.
type Dest struct {
	order []domain.ConnId            // insertion order, oldest first
	paths map[domain.ConnId]domain.Path
	best  *domain.Path
}

// newDest returns an empty Dest.
func newDest() *Dest {
	return &Dest{paths: make(map[domain.ConnId]domain.Path)}
}

// IsEmpty reports whether this destination currently has no known paths.
func (d *Dest) IsEmpty() bool {
	return len(d.paths) == 0
}

// SetPath inserts or replaces the path learned on conn, then recomputes the
// cached best path.
func (d *Dest) SetPath(conn domain.ConnId, nextHop domain.NodeId, metric domain.Metric) {
	if _, exists := d.paths[conn]; !exists {
		d.order = append(d.order, conn)
	}
	d.paths[conn] = domain.Path{Conn: conn, NextHop: nextHop, Metric: metric}
	d.recomputeBest()
}

// DelPath removes the path learned on conn, if any, and recomputes the
// cached best path. Dest becomes empty once its last path is removed.
func (d *Dest) DelPath(conn domain.ConnId) {
	if _, exists := d.paths[conn]; !exists {
		return
	}
	delete(d.paths, conn)
	for i, c := range d.order {
		if c == conn {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.recomputeBest()
}

func excluded(n domain.NodeId, excepts []domain.NodeId) bool {
	for _, e := range excepts {
		if e == n {
			return true
		}
	}
	return false
}

func (d *Dest) recomputeBest() {
	var best *domain.Path
	for _, conn := range d.order {
		p := d.paths[conn]
		if best == nil || p.Metric.Less(best.Metric) ||
			(!best.Metric.Less(p.Metric) && p.Conn < best.Conn) {
			cp := p
			best = &cp
		}
	}
	d.best = best
}

// Next returns the (conn, next hop) of the best path whose next hop is not
// in excepts.
func (d *Dest) Next(excepts []domain.NodeId) (domain.ConnId, domain.NodeId, bool) {
	p, ok := d.NextPath(excepts)
	if !ok {
		return 0, 0, false
	}
	return p.Conn, p.NextHop, true
}

// NextPath returns the full best path whose next hop is not in excepts,
// breaking ties by ascending ConnId for determinism.
func (d *Dest) NextPath(excepts []domain.NodeId) (domain.Path, bool) {
	if d.best != nil && !excluded(d.best.NextHop, excepts) {
		return *d.best, true
	}
	var best *domain.Path
	for _, conn := range d.order {
		p := d.paths[conn]
		if excluded(p.NextHop, excepts) {
			continue
		}
		if best == nil || p.Metric.Less(best.Metric) ||
			(!best.Metric.Less(p.Metric) && p.Conn < best.Conn) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return domain.Path{}, false
	}
	return *best, true
}

// BestFor returns the best path to this destination that does not traverse
// destNode anywhere in its hop list, preventing echoes back through the
// node the sync is being prepared for.
func (d *Dest) BestFor(destNode domain.NodeId) (domain.Path, bool) {
	var best *domain.Path
	for _, conn := range d.order {
		p := d.paths[conn]
		if p.Metric.ContainsHop(destNode) {
			continue
		}
		if best == nil || p.Metric.Less(best.Metric) ||
			(!best.Metric.Less(p.Metric) && p.Conn < best.Conn) {
			cp := p
			best = &cp
		}
	}
	if best == nil {
		return domain.Path{}, false
	}
	return *best, true
}

// HasPathVia reports whether the path currently cached for conn exists.
func (d *Dest) HasPathVia(conn domain.ConnId) bool {
	_, ok := d.paths[conn]
	return ok
}
