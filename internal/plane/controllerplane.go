// Package plane implements the top-level composition (§4.10): a single
// ControllerPlane holding authoritative state (Router, NeighboursManager,
// the Feature/Service Controller managers) and one DataPlane per worker,
// each holding transient per-packet state and a Shadow router snapshot.
// Neither plane performs I/O; the host drives both with OnTick plus each
// plane's input methods (OnExtIn/OnNetIn on the ControllerPlane; OnUdp,
// OnNetSend, OnFromController and OnControllerOutput on a DataPlane) and
// drains PopOutput to completion before blocking on new input, per §5.
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

// ExtIn is the external control surface the admin server drives (§6).
type ExtIn interface{ isExtIn() }

type ConnectTo struct{ Addr neighbours.Addr }
type DisconnectFrom struct{ Node domain.NodeId }
type FeaturesControl struct {
	Feature feature.Id
	Actor   feature.ControlActor
	Payload any
}
type ServicesControl struct {
	Service service.Id
	Actor   domain.NodeId
	Payload any
}
type ShutdownRequest struct{}

func (ConnectTo) isExtIn()       {}
func (DisconnectFrom) isExtIn()  {}
func (FeaturesControl) isExtIn() {}
func (ServicesControl) isExtIn() {}
func (ShutdownRequest) isExtIn() {}

// ExtOut is the external event stream the admin server fans to subscribers.
type ExtOut interface{ isExtOut() }

type FeaturesEvent struct {
	Feature feature.Id
	Actor   feature.ControlActor
	Payload any
}
type ServicesEvent struct {
	Service service.Id
	Actor   domain.NodeId
	Payload any
}

func (FeaturesEvent) isExtOut() {}
func (ServicesEvent) isExtOut() {}

// NetIn is what a DataPlane forwards up to the controller after parsing a
// UDP datagram (§4.9 step 1/4).
type NetIn interface{ isNetIn() }

type NetNeighbourIn struct {
	Remote  neighbours.Addr
	Control wire.NeighboursControl
}
type NetFeatureIn struct {
	Conn   domain.ConnId
	Header wire.TransportMsgHeader
	Body   []byte
}
type NetServiceIn struct {
	Conn    domain.ConnId
	Service service.Id
	From    domain.NodeId
	Body    []byte
}

// FeatureFromWorker relays a Worker's ToController output (a logical event,
// not a raw datagram) to the matching Feature Controller's FromWorker input.
type FeatureFromWorker struct {
	Feature feature.Id
	Payload any
}

func (NetNeighbourIn) isNetIn()    {}
func (NetFeatureIn) isNetIn()      {}
func (NetServiceIn) isNetIn()      {}
func (FeatureFromWorker) isNetIn() {}

// ControllerOutput is what the ControllerPlane emits for the host to act
// on: either a wire send, or a worker-bound instruction, or an externally
// visible event.
type ControllerOutput interface{ isControllerOutput() }

// NetNeighbourOut asks the host to send an encoded NeighboursControl
// datagram to Remote.
type NetNeighbourOut struct {
	Remote  neighbours.Addr
	Control wire.NeighboursControl
}

// NetSendOut asks the host to deliver an already wire-encoded message
// through one DataPlane worker: over Conn when Rule is Direct, otherwise
// resolved against that worker's Shadow router snapshot.
type NetSendOut struct {
	Conn domain.ConnId
	Rule router.RouteRule
	Ttl  uint8
	Buf  []byte
}

// ToWorkersOut asks every DataPlane worker's WorkerManager to deliver
// Payload to Feature's Worker half as a FromController input.
type ToWorkersOut struct {
	Feature feature.Id
	Payload any
}

type Ext struct{ Out ExtOut }

// ShutdownResponse mirrors neighbours.ShutdownResponse once every peer has
// been torn down.
type ShutdownResponse struct{}

// PinOut/UnpinOut tell every DataPlane worker to add/remove a connection
// from its own Remote->Conn table (§3 DataPlaneConnection lifecycle).
type PinOut struct {
	Conn   domain.ConnId
	Node   domain.NodeId
	Remote neighbours.Addr
	Secure bool
}
type UnpinOut struct{ Conn domain.ConnId }

// SnapshotOut refreshes every DataPlane worker's Shadow router (§5
// resource policy). Emitted once per OnTick — simpler than incremental
// table deltas and cheap at this scale; see DESIGN.md.
type SnapshotOut struct{ Snapshot *router.Snapshot }

func (NetNeighbourOut) isControllerOutput()  {}
func (NetSendOut) isControllerOutput()       {}
func (ToWorkersOut) isControllerOutput()     {}
func (Ext) isControllerOutput()              {}
func (ShutdownResponse) isControllerOutput() {}
func (PinOut) isControllerOutput()           {}
func (UnpinOut) isControllerOutput()         {}
func (SnapshotOut) isControllerOutput()      {}

// ControllerPlane owns the Router, the NeighboursManager and every
// Feature/Service Controller. It is single-threaded (§5): the host must
// serialize calls into it.
type ControllerPlane struct {
	self   domain.NodeId
	lgr    logger.Logger
	Router *router.Router
	nbrs   *neighbours.Manager
	feats  *feature.ControllerManager
	svcs   *service.ControllerManager
	out    []ControllerOutput
}

func NewControllerPlane(self domain.NodeId, r *router.Router, nbrs *neighbours.Manager, feats *feature.ControllerManager, svcs *service.ControllerManager, lgr logger.Logger) *ControllerPlane {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &ControllerPlane{self: self, lgr: lgr.Named("controller_plane"), Router: r, nbrs: nbrs, feats: feats, svcs: svcs}
}

func (p *ControllerPlane) OnTick(nowMs int64) {
	p.nbrs.OnTick(nowMs)
	p.drainNeighbours()
	p.feats.OnTick(nowMs)
	p.svcs.OnTick(nowMs)
	p.out = append(p.out, SnapshotOut{Snapshot: p.Router.Snapshot()})
}

func (p *ControllerPlane) OnExtIn(nowMs int64, in ExtIn) {
	switch v := in.(type) {
	case ConnectTo:
		p.nbrs.OnInput(nowMs, neighbours.ConnectTo{Addr: v.Addr})
		p.drainNeighbours()
	case DisconnectFrom:
		p.nbrs.OnInput(nowMs, neighbours.DisconnectFrom{Node: v.Node})
		p.drainNeighbours()
	case FeaturesControl:
		p.feats.OnInput(v.Feature, nowMs, feature.Control{Actor: v.Actor, Payload: v.Payload})
		p.drainFeatures()
	case ServicesControl:
		p.svcs.OnInput(v.Service, nowMs, service.Control{Actor: v.Actor, Payload: v.Payload})
		p.drainServices()
	case ShutdownRequest:
		p.nbrs.OnInput(nowMs, neighbours.ShutdownRequest{})
		p.drainNeighbours()
	}
}

// OnNetIn accepts a parsed net event forwarded up from a DataPlane worker.
func (p *ControllerPlane) OnNetIn(nowMs int64, in NetIn) {
	switch v := in.(type) {
	case NetNeighbourIn:
		p.nbrs.OnInput(nowMs, neighbours.Control{Remote: v.Remote, Control: v.Control})
		p.drainNeighbours()
	case NetFeatureIn:
		p.feats.OnInput(feature.Id(v.Header.FeatureId), nowMs, feature.NetRemote{Conn: v.Conn, Header: v.Header, Body: v.Body})
		p.drainFeatures()
	case NetServiceIn:
		p.svcs.OnInput(v.Service, nowMs, service.NetRemote{From: v.From, Conn: v.Conn, Body: v.Body})
		p.drainServices()
	case FeatureFromWorker:
		p.feats.OnInput(v.Feature, nowMs, feature.FromWorker{Payload: v.Payload})
		p.drainFeatures()
	}
}

func (p *ControllerPlane) drainNeighbours() {
	for {
		o, ok := p.nbrs.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case neighbours.NetNeighbour:
			p.out = append(p.out, NetNeighbourOut{Remote: v.Remote, Control: v.Control})
		case neighbours.Event:
			shared := feature.Connection{Event: v.Event}
			p.feats.OnSharedInput(shared)
			p.svcs.OnSharedInput(service.Connection{Event: v.Event})
			switch ev := v.Event.(type) {
			case neighbours.Connected:
				p.out = append(p.out, PinOut{Conn: ev.Ctx.Conn, Node: ev.Ctx.Node, Remote: ev.Ctx.Remote, Secure: len(ev.SecureKey) > 0})
			case neighbours.Disconnected:
				p.out = append(p.out, UnpinOut{Conn: ev.Ctx.Conn})
			}
			p.drainFeatures()
			p.drainServices()
		case neighbours.ShutdownResponse:
			p.out = append(p.out, ShutdownResponse{})
		}
	}
}

func (p *ControllerPlane) drainFeatures() {
	for {
		id, o, ok := p.feats.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case feature.SendDirect:
			buf, err := wire.Encode(nil, wire.TransportMsgHeader{
				Route:     router.Direct{Conn: v.Conn},
				FeatureId: wire.EncodeFeatureId(uint8(id)),
				Ttl:       1,
				Flags:     v.Flags,
			})
			if err != nil {
				p.lgr.Warn("failed to encode feature SendDirect header", logger.F("feature", id.String()), logger.F("err", err.Error()))
				continue
			}
			buf = append(buf, v.Body...)
			p.out = append(p.out, NetSendOut{Conn: v.Conn, Rule: router.Direct{Conn: v.Conn}, Ttl: 1, Buf: buf})
		case feature.SendRoute:
			buf, err := wire.Encode(nil, wire.TransportMsgHeader{
				Route:     v.Rule,
				FeatureId: wire.EncodeFeatureId(uint8(id)),
				Ttl:       v.Ttl,
				Flags:     v.Flags,
			})
			if err != nil {
				p.lgr.Warn("failed to encode feature SendRoute header", logger.F("feature", id.String()), logger.F("err", err.Error()))
				continue
			}
			buf = append(buf, v.Body...)
			p.out = append(p.out, NetSendOut{Rule: v.Rule, Ttl: v.Ttl, Buf: buf})
		case feature.ToWorkers:
			p.out = append(p.out, ToWorkersOut{Feature: id, Payload: v.Payload})
		case feature.Event:
			p.out = append(p.out, Ext{Out: FeaturesEvent{Feature: id, Actor: v.Actor, Payload: v.Payload}})
		}
	}
}

func (p *ControllerPlane) drainServices() {
	for {
		id, o, ok := p.svcs.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case service.SendDirect:
			buf, err := wire.Encode(nil, wire.TransportMsgHeader{
				Route:     router.Direct{Conn: v.Conn},
				FeatureId: wire.EncodeServiceId(uint8(id)),
				Ttl:       1,
			})
			if err != nil {
				continue
			}
			buf = append(buf, v.Body...)
			p.out = append(p.out, NetSendOut{Conn: v.Conn, Rule: router.Direct{Conn: v.Conn}, Ttl: 1, Buf: buf})
		case service.SendRoute:
			buf, err := wire.Encode(nil, wire.TransportMsgHeader{
				Route:     v.Rule,
				FeatureId: wire.EncodeServiceId(uint8(id)),
				Ttl:       v.Ttl,
			})
			if err != nil {
				continue
			}
			buf = append(buf, v.Body...)
			p.out = append(p.out, NetSendOut{Rule: v.Rule, Ttl: v.Ttl, Buf: buf})
		case service.Event:
			p.out = append(p.out, Ext{Out: ServicesEvent{Service: id, Actor: v.Actor, Payload: v.Payload}})
		}
	}
}

func (p *ControllerPlane) PopOutput() (ControllerOutput, bool) {
	if len(p.out) == 0 {
		return nil, false
	}
	o := p.out[0]
	p.out = p.out[1:]
	return o, true
}
