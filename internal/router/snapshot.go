package router

import "github.com/8xFF/decentralized-sdn/internal/domain"

// Snapshot is an immutable copy-on-write projection of a Router sufficient
// to run DeriveAction without touching the live, mutable Tables (§5:
// "DataPlane sees a Shadow router"). Controller-side mutation never touches
// a Snapshot in place; a new one replaces it wholesale.
type Snapshot struct {
	self     domain.NodeId
	layers   [numLayers]map[uint8]domain.Path
	services map[uint8][]domain.NodeId
}

// Snapshot captures the current state of r. Safe to call only from the
// goroutine that owns r (the ControllerPlane); the result is then handed
// off (by pointer swap) to DataPlane workers, who only ever read it.
func (r *Router) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Snapshot{self: r.self, services: make(map[uint8][]domain.NodeId, len(r.services))}
	for svc, nodes := range r.services {
		s.services[svc] = append([]domain.NodeId(nil), nodes...)
	}
	for l := 0; l < numLayers; l++ {
		t := r.tables[l]
		best := make(map[uint8]domain.Path, len(t.slots))
		for _, slot := range t.slots {
			if path, ok := t.dests[slot].NextPath(nil); ok {
				best[slot] = path
			}
		}
		s.layers[l] = best
	}
	return s
}

// deriveToNode mirrors Router.deriveToNode against the frozen snapshot.
func (s *Snapshot) deriveToNode(n domain.NodeId, relayFrom *domain.NodeId) Action {
	if n == s.self {
		return Action{Kind: ActionLocal}
	}
	layer := domain.LookupLayer(s.self, n)
	slot := n.Layer(layer)
	path, ok := s.layers[layer][slot]
	if !ok {
		return Action{Kind: ActionReject}
	}
	if relayFrom != nil && path.NextHop == *relayFrom {
		return Action{Kind: ActionReject}
	}
	return Action{Kind: ActionNext, Next: NextHop{Conn: path.Conn, Node: path.NextHop}}
}

func (s *Snapshot) resolveKey(key domain.NodeId) domain.NodeId {
	layer := domain.LookupLayer(s.self, key)
	for l := layer; l >= 0; l-- {
		slot := key.Layer(l)
		if path, ok := s.layers[l][slot]; ok {
			return path.NextHop
		}
	}
	return s.self
}

func (s *Snapshot) deriveToService(service uint8, relayFrom *domain.NodeId) Action {
	providers := s.services[service]
	for _, p := range providers {
		if p == s.self {
			return Action{Kind: ActionLocal}
		}
	}
	if len(providers) == 0 {
		return Action{Kind: ActionReject}
	}
	var best *NextHop
	var bestProvider domain.NodeId
	for _, p := range providers {
		act := s.deriveToNode(p, relayFrom)
		if act.Kind != ActionNext {
			continue
		}
		if best == nil || act.Next.Conn < best.Conn || (act.Next.Conn == best.Conn && p < bestProvider) {
			h := act.Next
			best = &h
			bestProvider = p
		}
	}
	if best == nil {
		return Action{Kind: ActionReject}
	}
	return Action{Kind: ActionNext, Next: *best}
}

func (s *Snapshot) deriveBroadcastLike(set []domain.NodeId, isBroadcast bool, relayFrom *domain.NodeId) Action {
	local := isBroadcast
	if !isBroadcast {
		for _, n := range set {
			if n == s.self {
				local = true
				break
			}
		}
	}

	seen := make(map[domain.ConnId]struct{})
	var remotes []NextHop
	addPath := func(path domain.Path) {
		if relayFrom != nil && path.NextHop == *relayFrom {
			return
		}
		if _, dup := seen[path.Conn]; dup {
			return
		}
		seen[path.Conn] = struct{}{}
		remotes = append(remotes, NextHop{Conn: path.Conn, Node: path.NextHop})
	}

	if isBroadcast {
		for l := 0; l < numLayers; l++ {
			for _, path := range s.layers[l] {
				addPath(path)
			}
		}
	} else {
		for _, n := range set {
			if n == s.self {
				continue
			}
			layer := domain.LookupLayer(s.self, n)
			if path, ok := s.layers[layer][n.Layer(layer)]; ok {
				addPath(path)
			}
		}
	}

	return Action{Kind: ActionBroadcast, Local: local, Remotes: remotes}
}

// DeriveAction is the Shadow router's read-only dispatch, following
// Router.DeriveAction but evaluated against this frozen snapshot instead of
// the live Tables. The snapshot keeps only each slot's best path, so when
// that path's next hop is relayFrom the slot is rejected or skipped rather
// than falling back to another path. The source argument is ignored.
func (s *Snapshot) DeriveAction(rule RouteRule, _ *domain.NodeId, relayFrom *domain.NodeId) Action {
	switch rr := rule.(type) {
	case ToNode:
		return s.deriveToNode(rr.Node, relayFrom)
	case ToKey:
		return s.deriveToNode(s.resolveKey(rr.Key), relayFrom)
	case ToService:
		return s.deriveToService(rr.Service, relayFrom)
	case Direct:
		return Action{Kind: ActionDirect, Next: NextHop{Conn: rr.Conn}}
	case ToNodes:
		return s.deriveBroadcastLike(rr.Nodes, false, relayFrom)
	case Broadcast:
		return s.deriveBroadcastLike(nil, true, relayFrom)
	default:
		return Action{Kind: ActionReject}
	}
}
