package neighbours

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

// timeAt converts the sans-io millisecond tick clock into a time.Time
// solely for golang.org/x/time/rate's bucket accounting; the rest of the
// package never reads the wall clock.
func timeAt(nowMs int64) time.Time { return time.UnixMilli(nowMs) }

const connProtocol uint8 = 0

// Config tunes timeouts and keepalive pacing; mirrors
// config.NeighboursConfig so the host can pass it straight through.
type Config struct {
	TimeoutMs  int64
	PingRateHz float64
	PingBurst  int
}

type peer struct {
	addr    Addr
	node    domain.NodeId
	conn    domain.ConnId
	state   State
	session uint64
	lastRx  int64 // last time we heard anything (ping/pong) from this peer
	limiter *rate.Limiter
}

// Manager is the NeighboursManager: one instance per node, tracking every
// direct peer's connection lifecycle.
type Manager struct {
	self domain.NodeId
	cfg  Config
	lgr  logger.Logger

	byAddr map[Addr]*peer
	byConn map[domain.ConnId]*peer
	byNode map[domain.NodeId]*peer

	seq          uint64
	shuttingDown bool
	queue        []Output
}

// New constructs a Manager for self, tuned by cfg.
func New(self domain.NodeId, cfg Config, lgr logger.Logger) *Manager {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Manager{
		self:   self,
		cfg:    cfg,
		lgr:    lgr.Named("neighbours"),
		byAddr: make(map[Addr]*peer),
		byConn: make(map[domain.ConnId]*peer),
		byNode: make(map[domain.NodeId]*peer),
	}
}

func (m *Manager) newConn() domain.ConnId {
	m.seq++
	return domain.NewConnId(domain.DirOutgoing, connProtocol, m.seq)
}

func (m *Manager) emit(o Output) { m.queue = append(m.queue, o) }

func (m *Manager) send(addr Addr, c wire.NeighboursControl) {
	m.emit(NetNeighbour{Remote: addr, Control: c})
}

// OnTick drives keepalive pings and timeout detection.
func (m *Manager) OnTick(nowMs int64) {
	for addr, p := range m.byAddr {
		switch p.state {
		case Connecting, Handshaking:
			if p.limiter.AllowN(timeAt(nowMs), 1) {
				m.send(addr, wire.NeighboursControl{Kind: wire.KindConnectRequest, FromNode: m.self, Session: p.session})
			}
		case Connected:
			if nowMs-p.lastRx > m.cfg.TimeoutMs {
				m.lgr.Warn("neighbour timed out", logger.FNode("node", p.node), logger.F("addr", string(addr)))
				m.finalize(p)
				continue
			}
			if p.limiter.AllowN(timeAt(nowMs), 1) {
				m.send(addr, wire.NeighboursControl{Kind: wire.KindPing, FromNode: m.self, Session: p.session})
			}
		case Disconnecting:
			m.finalize(p)
		}
	}
	if m.shuttingDown && len(m.byAddr) == 0 {
		m.emit(ShutdownResponse{})
		m.shuttingDown = false
	}
}

// OnInput applies one Input to the state machine.
func (m *Manager) OnInput(nowMs int64, in Input) {
	switch v := in.(type) {
	case ConnectTo:
		m.connectTo(nowMs, v.Addr)
	case DisconnectFrom:
		m.disconnectFrom(v.Node)
	case Control:
		m.onControl(nowMs, v.Remote, v.Control)
	case ShutdownRequest:
		m.shutdown()
	}
}

// PopOutput drains one queued Output, if any.
func (m *Manager) PopOutput() (Output, bool) {
	if len(m.queue) == 0 {
		return nil, false
	}
	o := m.queue[0]
	m.queue = m.queue[1:]
	return o, true
}

// ConnCtxFor looks up the ConnCtx for a connected peer by connection id, for
// use by the controller plane when routing LogicControl::NetRemote.
func (m *Manager) ConnCtxFor(conn domain.ConnId) (ConnCtx, bool) {
	p, ok := m.byConn[conn]
	if !ok || p.state != Connected {
		return ConnCtx{}, false
	}
	return ConnCtx{Conn: p.conn, Node: p.node, Remote: p.addr}, true
}

func (m *Manager) connectTo(nowMs int64, addr Addr) {
	if _, exists := m.byAddr[addr]; exists {
		return
	}
	m.seq++
	p := &peer{
		addr:    addr,
		conn:    domain.NewConnId(domain.DirOutgoing, connProtocol, m.seq),
		state:   Connecting,
		session: m.seq,
		lastRx:  nowMs,
		limiter: rate.NewLimiter(rate.Limit(m.cfg.PingRateHz), m.cfg.PingBurst),
	}
	m.byAddr[addr] = p
	m.send(addr, wire.NeighboursControl{Kind: wire.KindConnectRequest, FromNode: m.self, Session: p.session})
}

func (m *Manager) disconnectFrom(node domain.NodeId) {
	p, ok := m.byNode[node]
	if !ok {
		return
	}
	m.send(p.addr, wire.NeighboursControl{Kind: wire.KindDisconnect, FromNode: m.self, Session: p.session})
	m.finalize(p)
}

func (m *Manager) onControl(nowMs int64, remote Addr, c wire.NeighboursControl) {
	switch c.Kind {
	case wire.KindConnectRequest:
		p, exists := m.byAddr[remote]
		if !exists {
			m.seq++
			p = &peer{
				addr:    remote,
				node:    c.FromNode,
				conn:    domain.NewConnId(domain.DirIncoming, connProtocol, m.seq),
				state:   Handshaking,
				session: c.Session,
				limiter: rate.NewLimiter(rate.Limit(m.cfg.PingRateHz), m.cfg.PingBurst),
			}
			m.byAddr[remote] = p
		}
		p.node = c.FromNode
		p.lastRx = nowMs
		m.send(remote, wire.NeighboursControl{Kind: wire.KindConnectResponse, FromNode: m.self, Session: c.Session})
		m.promote(p, nowMs)

	case wire.KindConnectResponse:
		p, exists := m.byAddr[remote]
		if !exists || p.state != Connecting || p.session != c.Session {
			return
		}
		p.node = c.FromNode
		p.lastRx = nowMs
		m.promote(p, nowMs)

	case wire.KindPing:
		p, exists := m.byAddr[remote]
		if !exists {
			return
		}
		p.lastRx = nowMs
		m.send(remote, wire.NeighboursControl{Kind: wire.KindPong, FromNode: m.self, Session: p.session})

	case wire.KindPong:
		if p, exists := m.byAddr[remote]; exists {
			p.lastRx = nowMs
		}

	case wire.KindDisconnect:
		if p, exists := m.byAddr[remote]; exists {
			m.finalize(p)
		}
	}
}

// promote transitions a peer into Connected and emits the ConnectionEvent,
// registering it in the by-conn/by-node indices.
func (m *Manager) promote(p *peer, nowMs int64) {
	if p.state == Connected {
		return
	}
	p.state = Connected
	p.lastRx = nowMs
	m.byConn[p.conn] = p
	m.byNode[p.node] = p
	m.emit(Event{Event: Connected{Ctx: ConnCtx{Conn: p.conn, Node: p.node, Remote: p.addr}}})
}

// finalize tears a peer down immediately: UDP keepalive has no ack for
// Disconnect, so Disconnecting is not held across ticks once the wire
// message has been queued.
func (m *Manager) finalize(p *peer) {
	wasConnected := p.state == Connected
	p.state = Gone
	delete(m.byAddr, p.addr)
	delete(m.byConn, p.conn)
	delete(m.byNode, p.node)
	if wasConnected {
		m.emit(Event{Event: Disconnected{Ctx: ConnCtx{Conn: p.conn, Node: p.node, Remote: p.addr}}})
	}
}

func (m *Manager) shutdown() {
	m.shuttingDown = true
	for _, p := range m.byAddr {
		m.send(p.addr, wire.NeighboursControl{Kind: wire.KindDisconnect, FromNode: m.self, Session: p.session})
		m.finalize(p)
	}
	if len(m.byAddr) == 0 {
		m.emit(ShutdownResponse{})
		m.shuttingDown = false
	}
}
