// Package admin exposes the node's external control surface (§4.10/§6):
// ConnectTo, DisconnectFrom, FeaturesControl, ServicesControl and an
// Events stream. The ControllerPlane is single-threaded (it documents that
// the host must serialize calls into it), so Server never touches a
// *plane.ControllerPlane directly - it hands ExtIn values to the host's
// own loop over a channel and waits for that loop to apply them and
// signal completion, the same way the host already drains neighbours,
// features and services from one place.
//
// There is no protoc available to this build, so the RPC surface below is
// a hand-registered grpc.ServiceDesc (method/stream tables grpc itself
// would otherwise generate) carrying JSON bodies (see codec.go) instead of
// protobuf ones.
package admin

import (
	"context"
	"errors"
	"sync"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/feature/data"
	"github.com/8xFF/decentralized-sdn/internal/feature/dhtkv"
	"github.com/8xFF/decentralized-sdn/internal/feature/vpn"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/plane"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/service"
	"github.com/8xFF/decentralized-sdn/internal/service/pubsubrelay"

	"google.golang.org/grpc"
)

// decodeFeaturesPayload maps one FeaturesControlRequest onto the concrete
// Control payload the named feature's Controller expects.
func decodeFeaturesPayload(id feature.Id, req *FeaturesControlRequest) (any, error) {
	switch id {
	case feature.DhtKv:
		switch {
		case req.DhtKvSet != nil:
			return dhtkv.Set{Key: req.DhtKvSet.Key, Value: req.DhtKvSet.Value, Version: req.DhtKvSet.Version}, nil
		case req.DhtKvGet != nil:
			return dhtkv.Get{Key: req.DhtKvGet.Key}, nil
		}
	case feature.Data:
		if req.DataSend != nil {
			return data.Send{Rule: router.ToNode{Node: domain.NodeId(req.DataSend.Dest)}, Ttl: 32, Body: req.DataSend.Body}, nil
		}
	case feature.Vpn:
		if req.VpnSetPeer != nil {
			return vpn.SetPeer{Peer: domain.NodeId(req.VpnSetPeer.Peer)}, nil
		}
	case feature.RouterSync:
		return nil, errors.New("admin: router_sync has no external control surface")
	}
	return nil, errors.New("admin: FeaturesControlRequest missing a payload for the named feature")
}

// decodeServicesPayload maps one ServicesControlRequest onto the concrete
// Control payload the named service's Controller expects.
func decodeServicesPayload(id service.Id, req *ServicesControlRequest) (any, error) {
	switch id {
	case service.PubSubRelay:
		switch {
		case req.PubSubSubscribe != nil:
			return pubsubrelay.Subscribe{Channel: req.PubSubSubscribe.Channel}, nil
		case req.PubSubUnsubscribe != nil:
			return pubsubrelay.Unsubscribe{Channel: req.PubSubUnsubscribe.Channel}, nil
		case req.PubSubPublish != nil:
			return pubsubrelay.Publish{Channel: req.PubSubPublish.Channel, Body: req.PubSubPublish.Body}, nil
		}
	}
	return nil, errors.New("admin: ServicesControlRequest missing a payload for the named service")
}

// Request is one ExtIn submission, queued for the host loop to apply to
// its ControllerPlane and acknowledge by closing Done.
type Request struct {
	In   plane.ExtIn
	Done chan struct{}
}

// Server implements the admin RPCs. NewServer's reqCh is read by the
// host's own event loop; Publish is called by that same loop once per
// drained plane.Ext output, fanning it out to every Events subscriber.
type Server struct {
	self  domain.NodeId
	reqCh chan<- Request
	lgr   logger.Logger

	mu      sync.Mutex
	subs    map[uint64]chan Event
	nextSub uint64
}

func NewServer(self domain.NodeId, reqCh chan<- Request, lgr logger.Logger) *Server {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Server{
		self:  self,
		reqCh: reqCh,
		lgr:   lgr.Named("admin"),
		subs:  make(map[uint64]chan Event),
	}
}

func (s *Server) submit(ctx context.Context, in plane.ExtIn) error {
	req := Request{In: in, Done: make(chan struct{})}
	select {
	case s.reqCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) ConnectTo(ctx context.Context, req *ConnectToRequest) (*ConnectToResponse, error) {
	if err := s.submit(ctx, plane.ConnectTo{Addr: neighbours.Addr(req.Addr)}); err != nil {
		return nil, err
	}
	return &ConnectToResponse{}, nil
}

func (s *Server) DisconnectFrom(ctx context.Context, req *DisconnectFromRequest) (*DisconnectFromResponse, error) {
	in := plane.DisconnectFrom{Node: domain.NodeId(req.Node)}
	if err := s.submit(ctx, in); err != nil {
		return nil, err
	}
	return &DisconnectFromResponse{}, nil
}

func (s *Server) FeaturesControl(ctx context.Context, req *FeaturesControlRequest) (*FeaturesControlResponse, error) {
	payload, err := decodeFeaturesPayload(feature.Id(req.Feature), req)
	if err != nil {
		return nil, err
	}
	in := plane.FeaturesControl{
		Feature: feature.Id(req.Feature),
		Actor:   feature.ControlActor{Kind: feature.ActorController},
		Payload: payload,
	}
	if err := s.submit(ctx, in); err != nil {
		return nil, err
	}
	return &FeaturesControlResponse{}, nil
}

func (s *Server) ServicesControl(ctx context.Context, req *ServicesControlRequest) (*ServicesControlResponse, error) {
	payload, err := decodeServicesPayload(service.Id(req.Service), req)
	if err != nil {
		return nil, err
	}
	in := plane.ServicesControl{
		Service: service.Id(req.Service),
		Actor:   s.self,
		Payload: payload,
	}
	if err := s.submit(ctx, in); err != nil {
		return nil, err
	}
	return &ServicesControlResponse{}, nil
}

// EventsServer is the server-stream handle; satisfied by grpc.ServerStream
// plus the typed SendMsg the generated code would otherwise wrap.
type EventsServer interface {
	Send(*Event) error
	grpc.ServerStream
}

func (s *Server) Events(req *EventsRequest, stream EventsServer) error {
	ch := make(chan Event, 64)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}()

	for {
		select {
		case ev := <-ch:
			if err := stream.Send(&ev); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return stream.Context().Err()
		}
	}
}

// Publish fans out one ControllerPlane Ext output to every Events
// subscriber. Called by the host loop, never by an RPC handler.
func (s *Server) Publish(out plane.Ext) {
	ev, ok := toWireEvent(out.Out)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			s.lgr.Warn("events subscriber backpressured, dropping event")
		}
	}
}

func toWireEvent(out plane.ExtOut) (Event, bool) {
	switch v := out.(type) {
	case plane.FeaturesEvent:
		ev := Event{Kind: "feature", Feature: uint8(v.Feature)}
		switch p := v.Payload.(type) {
		case dhtkv.GetResult:
			errStr := ""
			if p.Err != nil {
				errStr = p.Err.Error()
			}
			ev.DhtKvGetResult = &DhtKvGetResultEvent{Key: p.Key, Value: p.Value, Version: p.Version, Found: p.Found, Err: errStr}
		case data.Received:
			ev.DataReceived = &DataReceivedEvent{From: uint32(p.From), Body: p.Body}
		case vpn.TunPkt:
			ev.VpnTunPkt = &VpnTunPktEvent{Body: p.Body}
		default:
			return Event{}, false
		}
		return ev, true
	case plane.ServicesEvent:
		ev := Event{Kind: "service", Service: uint8(v.Service), Actor: uint32(v.Actor)}
		switch p := v.Payload.(type) {
		case pubsubrelay.Received:
			ev.PubSubReceived = &PubSubReceivedEvent{Channel: p.Channel, From: uint32(p.From), Body: p.Body}
		default:
			return Event{}, false
		}
		return ev, true
	default:
		return Event{}, false
	}
}
