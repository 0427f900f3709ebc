package plane

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/service"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

// ErrorCounters tallies every drop-with-counter path of §7's error table.
// Plain Go counters, not a metrics library — see DESIGN.md.
type ErrorCounters struct {
	MalformedDatagram    int64
	UnknownFeatureId     int64
	TtlExpired           int64
	UnknownConnection    int64
	DecryptFailure       int64
	DuplicateBroadcast   int64
	ServiceNotRegistered int64
}

// Cipher is the external collaborator the core asks to encrypt/decrypt a
// connection's buffers (spec §1 out-of-scope: "cryptographic key
// management"). PassthroughCipher is the zero-config default.
type Cipher interface {
	Encrypt(conn domain.ConnId, nowMs int64, buf []byte) ([]byte, error)
	Decrypt(conn domain.ConnId, nowMs int64, buf []byte) ([]byte, error)
}

// PassthroughCipher performs no transformation; used when a connection was
// never negotiated as secure, or as the default when no real cipher is
// wired in by the host.
type PassthroughCipher struct{}

func (PassthroughCipher) Encrypt(_ domain.ConnId, _ int64, buf []byte) ([]byte, error) {
	return buf, nil
}
func (PassthroughCipher) Decrypt(_ domain.ConnId, _ int64, buf []byte) ([]byte, error) {
	return buf, nil
}

type dpConn struct {
	node   domain.NodeId
	remote neighbours.Addr
	secure bool
}

// NetOut is what a DataPlane asks the host to actually put on the wire.
type NetOut struct {
	Remote neighbours.Addr
	Buf    []byte
}

// Output is produced by a DataPlane for the host to route: to the network,
// up to the ControllerPlane, or to the embedding application.
type Output interface{ isDataPlaneOutput() }

type ToNet struct{ Out NetOut }
type ToControllerNet struct{ In NetIn }
type ToApp struct {
	Feature feature.Id
	Payload any
}

func (ToNet) isDataPlaneOutput()          {}
func (ToControllerNet) isDataPlaneOutput() {}
func (ToApp) isDataPlaneOutput()           {}

// DataPlane is one worker's per-packet fast path (§4.9): it owns its own
// connection table (populated by controller-emitted Pin/UnPin), a Shadow
// router snapshot refreshed periodically by the controller, a broadcast
// dedup history and its own ErrorCounters. It performs no I/O; the host
// feeds it datagrams and drains NetOut/ToControllerNet/ToApp outputs.
type DataPlane struct {
	self     domain.NodeId
	lgr      logger.Logger
	cipher   Cipher
	snapshot *router.Snapshot
	conns    map[domain.ConnId]dpConn
	byRemote map[neighbours.Addr]domain.ConnId
	seen     map[string]struct{}
	seenAge  []string
	histCap  int
	feats    *feature.WorkerManager
	Errors   ErrorCounters
	out      []Output
}

func NewDataPlane(self domain.NodeId, feats *feature.WorkerManager, cipher Cipher, historyCap int, lgr logger.Logger) *DataPlane {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	if cipher == nil {
		cipher = PassthroughCipher{}
	}
	if historyCap <= 0 {
		historyCap = 4096
	}
	return &DataPlane{
		self:     self,
		lgr:      lgr.Named("data_plane"),
		cipher:   cipher,
		conns:    make(map[domain.ConnId]dpConn),
		byRemote: make(map[neighbours.Addr]domain.ConnId),
		seen:     make(map[string]struct{}),
		histCap:  historyCap,
		feats:    feats,
	}
}

func (d *DataPlane) OnTick(nowMs int64) {
	d.feats.OnTick(nowMs)
}

// OnControllerOutput applies one ControllerPlane output that is relevant
// to this worker's local state (Pin/UnPin/Snapshot); Net sends and
// ToWorkers instructions are handled by OnNetSend/OnFromController.
func (d *DataPlane) OnControllerOutput(o ControllerOutput) {
	switch v := o.(type) {
	case PinOut:
		d.conns[v.Conn] = dpConn{node: v.Node, remote: v.Remote, secure: v.Secure}
		d.byRemote[v.Remote] = v.Conn
	case UnpinOut:
		if c, ok := d.conns[v.Conn]; ok {
			delete(d.byRemote, c.remote)
			delete(d.conns, v.Conn)
		}
	case SnapshotOut:
		d.snapshot = v.Snapshot
	}
}

// OnFromController delivers a ToWorkersOut instruction to the addressed
// feature's Worker half.
func (d *DataPlane) OnFromController(nowMs int64, o ToWorkersOut) {
	d.feats.OnInput(o.Feature, nowMs, feature.FromController{Payload: o.Payload})
	d.drainWorkers()
}

// OnNetSend wire-encodes and hands off a controller-originated send: over
// a connection directly, or resolved through the Shadow router.
func (d *DataPlane) OnNetSend(nowMs int64, o NetSendOut) {
	if _, ok := o.Rule.(router.Direct); ok {
		d.sendOverConn(nowMs, o.Conn, o.Buf)
		return
	}
	if d.snapshot == nil {
		return
	}
	action := d.snapshot.DeriveAction(o.Rule, &d.self, nil)
	d.dispatchAction(nowMs, action, o.Buf)
}

// OnUdp is the DataPlane's ingress entry point (§4.9): NeighboursControl is
// tried first, then the routed TransportMsgHeader path.
func (d *DataPlane) OnUdp(nowMs int64, remote neighbours.Addr, buf []byte) {
	if len(buf) == 0 {
		return
	}
	if ctrl, ok := wire.TryDecodeNeighboursControl(buf); ok {
		d.out = append(d.out, ToControllerNet{In: NetNeighbourIn{Remote: remote, Control: ctrl}})
		return
	}
	d.incomingRoute(nowMs, remote, buf)
}

func (d *DataPlane) incomingRoute(nowMs int64, remote neighbours.Addr, buf []byte) {
	connId, ok := d.byRemote[remote]
	if !ok {
		d.Errors.UnknownConnection++
		return
	}
	conn := d.conns[connId]

	if wire.IsSecure(buf[0]) {
		plain, err := d.cipher.Decrypt(connId, nowMs, buf)
		if err != nil {
			d.Errors.DecryptFailure++
			return
		}
		buf = plain
	}

	header, n, err := wire.Decode(buf)
	if err != nil {
		d.Errors.MalformedDatagram++
		return
	}
	body := buf[n:]

	if d.snapshot == nil {
		return
	}
	relayFrom := conn.node
	action := d.snapshot.DeriveAction(header.Route, nil, &relayFrom)
	switch action.Kind {
	case router.ActionReject:
		return
	case router.ActionLocal:
		d.deliverLocal(nowMs, connId, remote, conn.node, header, body)
	case router.ActionNext:
		if !wire.DecreaseTtl(buf) {
			d.Errors.TtlExpired++
			return
		}
		d.sendOverConn(nowMs, action.Next.Conn, buf)
	case router.ActionBroadcast:
		if !d.rememberBroadcast(header.FromNode, header, body) {
			d.Errors.DuplicateBroadcast++
			return
		}
		if !wire.DecreaseTtl(buf) {
			d.Errors.TtlExpired++
			return
		}
		if action.Local {
			d.deliverLocal(nowMs, connId, remote, conn.node, header, body)
		}
		for _, hop := range action.Remotes {
			d.sendOverConn(nowMs, hop.Conn, buf)
		}
	}
}

func (d *DataPlane) deliverLocal(nowMs int64, connId domain.ConnId, remote neighbours.Addr, from domain.NodeId, header wire.TransportMsgHeader, body []byte) {
	id, isService := wire.DecodeFeatureOrServiceId(header.FeatureId)
	if isService {
		d.out = append(d.out, ToControllerNet{In: NetServiceIn{Conn: connId, Service: service.Id(id), From: from, Body: body}})
		return
	}
	if int(id) >= feature.Count {
		d.Errors.UnknownFeatureId++
		return
	}
	d.feats.OnInput(feature.Id(id), nowMs, feature.NetworkRaw{Conn: connId, Remote: remote, Header: header, Body: body})
	d.drainWorkers()
}

func (d *DataPlane) dispatchAction(nowMs int64, action router.Action, buf []byte) {
	switch action.Kind {
	case router.ActionReject:
		return
	case router.ActionLocal:
		header, n, err := wire.Decode(buf)
		if err != nil {
			d.Errors.MalformedDatagram++
			return
		}
		d.deliverLocal(nowMs, 0, "", d.self, header, buf[n:])
	case router.ActionNext, router.ActionDirect:
		d.sendOverConn(nowMs, action.Next.Conn, buf)
	case router.ActionBroadcast:
		if action.Local {
			header, n, err := wire.Decode(buf)
			if err == nil {
				d.deliverLocal(nowMs, 0, "", d.self, header, buf[n:])
			}
		}
		for _, hop := range action.Remotes {
			d.sendOverConn(nowMs, hop.Conn, buf)
		}
	}
}

func (d *DataPlane) sendOverConn(nowMs int64, connId domain.ConnId, buf []byte) {
	conn, ok := d.conns[connId]
	if !ok {
		d.Errors.UnknownConnection++
		return
	}
	out := buf
	if conn.secure {
		enc, err := d.cipher.Encrypt(connId, nowMs, buf)
		if err != nil {
			return
		}
		out = enc
	}
	d.out = append(d.out, ToNet{Out: NetOut{Remote: conn.remote, Buf: out}})
}

// rememberBroadcast reports whether this (source node, feature id, body) tuple
// has not been seen before, remembering it if so. The key is an exact
// byte-identical-retransmission check (§8 S5's literal scenario), not a
// probabilistic content hash — no external hashing library earns its
// keep for that.
func (d *DataPlane) rememberBroadcast(from domain.NodeId, header wire.TransportMsgHeader, body []byte) bool {
	key := string(append([]byte{byte(from), byte(from >> 8), byte(from >> 16), byte(from >> 24), header.FeatureId}, body...))
	if _, dup := d.seen[key]; dup {
		return false
	}
	d.seen[key] = struct{}{}
	d.seenAge = append(d.seenAge, key)
	if len(d.seenAge) > d.histCap {
		oldest := d.seenAge[0]
		d.seenAge = d.seenAge[1:]
		delete(d.seen, oldest)
	}
	return true
}

func (d *DataPlane) drainWorkers() {
	for {
		id, o, ok := d.feats.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case feature.ForwardNetworkToController:
			d.out = append(d.out, ToControllerNet{In: NetFeatureIn{Conn: v.Conn, Header: v.Header, Body: v.Body}})
		case feature.ForwardLocalToController:
			d.out = append(d.out, ToControllerNet{In: NetFeatureIn{Header: wire.TransportMsgHeader{FeatureId: wire.EncodeFeatureId(uint8(id))}, Body: v.Body}})
		case feature.WorkerEvent:
			d.out = append(d.out, ToApp{Feature: id, Payload: v.Payload})
		case feature.ToController:
			d.out = append(d.out, ToControllerNet{In: FeatureFromWorker{Feature: id, Payload: v.Payload}})
		}
	}
}

func (d *DataPlane) PopOutput() (Output, bool) {
	if len(d.out) == 0 {
		return nil, false
	}
	o := d.out[0]
	d.out = d.out[1:]
	return o, true
}
