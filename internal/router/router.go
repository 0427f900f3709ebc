package router

import (
	"sync"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/logger"
)

const numLayers = 4

// Router holds the four stacked per-layer Tables and the local service
// registry, and decides how to dispatch a packet given its route rule.
type Router struct {
	self     domain.NodeId
	tables   [numLayers]*Table
	lgr      logger.Logger

	mu       sync.RWMutex
	services map[uint8][]domain.NodeId // service id -> known provider nodes
}

// New constructs a Router for self, with four fresh, empty Tables.
func New(self domain.NodeId, lgr logger.Logger) *Router {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	r := &Router{self: self, lgr: lgr, services: make(map[uint8][]domain.NodeId)}
	for i := 0; i < numLayers; i++ {
		r.tables[i] = NewTable(i, self, lgr.Named("table"))
	}
	return r
}

// Self returns the local node id this router was built for.
func (r *Router) Self() domain.NodeId {
	return r.self
}

// Table returns the per-layer table (0..=3).
func (r *Router) Table(layer int) *Table {
	return r.tables[layer]
}

// RegisterLocalService marks self as a provider of service, for ToService
// routing.
func (r *Router) RegisterLocalService(service uint8) {
	r.AddServiceProvider(service, r.self)
}

// AddServiceProvider records node as a known provider of service.
func (r *Router) AddServiceProvider(service uint8, node domain.NodeId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.services[service] {
		if n == node {
			return
		}
	}
	r.services[service] = append(r.services[service], node)
}

// RemoveServiceProvider forgets node as a provider of service.
func (r *Router) RemoveServiceProvider(service uint8, node domain.NodeId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	providers := r.services[service]
	for i, n := range providers {
		if n == node {
			r.services[service] = append(providers[:i], providers[i+1:]...)
			return
		}
	}
}

func (r *Router) serviceProviders(service uint8) []domain.NodeId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.NodeId(nil), r.services[service]...)
}

// walkTo finds the best next hop towards dst, excluding relayFrom (the node
// a packet was just received from, to avoid bouncing it straight back).
func (r *Router) walkTo(dst domain.NodeId, relayFrom *domain.NodeId) (NextHop, bool) {
	var excepts []domain.NodeId
	if relayFrom != nil {
		excepts = []domain.NodeId{*relayFrom}
	}
	layer := domain.LookupLayer(r.self, dst)
	conn, next, ok := r.tables[layer].Next(dst, excepts)
	if !ok {
		return NextHop{}, false
	}
	return NextHop{Conn: conn, Node: next}, true
}

// closestKnownTo walks from key's lookup layer down to layer 0 and returns
// the next hop of the first path found toward key's slot (self when none),
// under this Router's layer-walk semantics for ToKey (see SPEC_FULL.md
// design note: the commented-out consistent-hash closest_for variant in the
// original source is deliberately not implemented).
func (r *Router) closestKnownTo(key domain.NodeId) domain.NodeId {
	layer := domain.LookupLayer(r.self, key)
	for l := layer; l >= 0; l-- {
		if path, ok := r.tables[l].NextPath(key, nil); ok {
			return path.NextHop
		}
	}
	return r.self
}

// DeriveAction decides the dispatch for a packet carrying rule, optionally
// stamped with the original source and the node it was just relayed from.
func (r *Router) DeriveAction(rule RouteRule, source *domain.NodeId, relayFrom *domain.NodeId) Action {
	switch rr := rule.(type) {
	case ToNode:
		return r.deriveToNode(rr.Node, relayFrom)
	case ToKey:
		return r.deriveToNode(r.resolveKey(rr.Key), relayFrom)
	case ToService:
		return r.deriveToService(rr.Service, relayFrom)
	case Direct:
		return Action{Kind: ActionDirect, Next: NextHop{Conn: rr.Conn}}
	case ToNodes:
		return r.deriveBroadcastLike(rr.Nodes, false, relayFrom)
	case Broadcast:
		return r.deriveBroadcastLike(nil, true, relayFrom)
	default:
		return Action{Kind: ActionReject}
	}
}

func (r *Router) resolveKey(key domain.NodeId) domain.NodeId {
	closest := r.closestKnownTo(key)
	if closest == r.self {
		return r.self
	}
	return closest
}

func (r *Router) deriveToNode(n domain.NodeId, relayFrom *domain.NodeId) Action {
	if n == r.self {
		return Action{Kind: ActionLocal}
	}
	hop, ok := r.walkTo(n, relayFrom)
	if !ok {
		return Action{Kind: ActionReject}
	}
	return Action{Kind: ActionNext, Next: hop}
}

func (r *Router) deriveToService(service uint8, relayFrom *domain.NodeId) Action {
	providers := r.serviceProviders(service)
	for _, p := range providers {
		if p == r.self {
			return Action{Kind: ActionLocal}
		}
	}
	if len(providers) == 0 {
		return Action{Kind: ActionReject}
	}
	// Forward toward a provider by walking each and picking the next hop
	// with the lowest ConnId (ties broken by provider NodeId for
	// determinism); path latency is not compared.
	var best *NextHop
	var bestProvider domain.NodeId
	for _, p := range providers {
		hop, ok := r.walkTo(p, relayFrom)
		if !ok {
			continue
		}
		if best == nil || hop.Conn < best.Conn || (hop.Conn == best.Conn && p < bestProvider) {
			h := hop
			best = &h
			bestProvider = p
		}
	}
	if best == nil {
		return Action{Kind: ActionReject}
	}
	return Action{Kind: ActionNext, Next: *best}
}

func (r *Router) deriveBroadcastLike(set []domain.NodeId, isBroadcast bool, relayFrom *domain.NodeId) Action {
	local := isBroadcast
	if !isBroadcast {
		for _, n := range set {
			if n == r.self {
				local = true
				break
			}
		}
	}

	var excepts []domain.NodeId
	if relayFrom != nil {
		excepts = []domain.NodeId{*relayFrom}
	}

	seen := make(map[domain.ConnId]struct{})
	var remotes []NextHop
	addRemote := func(n domain.NodeId) {
		if n == r.self {
			return
		}
		layer := domain.LookupLayer(r.self, n)
		conn, next, ok := r.tables[layer].Next(n, excepts)
		if !ok {
			return
		}
		if _, dup := seen[conn]; dup {
			return
		}
		seen[conn] = struct{}{}
		remotes = append(remotes, NextHop{Conn: conn, Node: next})
	}

	if isBroadcast {
		for l := 0; l < numLayers; l++ {
			for _, slot := range r.tables[l].Slots() {
				if path, ok := r.tables[l].dests[slot].NextPath(excepts); ok {
					if _, dup := seen[path.Conn]; !dup {
						seen[path.Conn] = struct{}{}
						remotes = append(remotes, NextHop{Conn: path.Conn, Node: path.NextHop})
					}
				}
			}
		}
	} else {
		for _, n := range set {
			addRemote(n)
		}
	}

	return Action{Kind: ActionBroadcast, Local: local, Remotes: remotes}
}

// DebugLog emits a structured snapshot of every layer's table.
func (r *Router) DebugLog() {
	for _, t := range r.tables {
		t.DebugLog()
	}
}
