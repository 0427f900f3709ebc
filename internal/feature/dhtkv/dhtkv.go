// Package dhtkv implements the eventually-consistent per-key/value map
// feature (§4.7): flat LWW-by-version entries, reconciled by periodic
// anti-entropy gossip distinct from the router's own TableSync.
package dhtkv

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/telemetry/routetrace"

	"go.opentelemetry.io/otel/trace"
)

// ErrTimeout is surfaced in GetResult.Err when a Get doesn't resolve within
// the configured timeout (§7).
var ErrTimeout error = errTimeout{}

// Set is a ControllerInput Control payload: write key to value at version.
type Set struct {
	Key     string
	Value   []byte
	Version uint64
}

// Get is a ControllerInput Control payload: read key.
type Get struct{ Key string }

// GetResult is the Event payload answering a Get.
type GetResult struct {
	Key     string
	Value   []byte
	Version uint64
	Found   bool
	Err     error
}

type pendingGet struct {
	key        string
	actor      feature.ControlActor
	deadlineMs int64
	span       trace.Span
}

// Controller owns the local replica of the map plus outstanding Get
// requests and the anti-entropy timer.
type Controller struct {
	self           domain.NodeId
	store          *store
	lgr            logger.Logger
	getTimeoutMs   int64
	syncIntervalMs int64
	lastSyncMs     int64
	reqSeq         uint64
	pending        map[uint64]pendingGet
	neighboursBy   map[domain.ConnId]domain.NodeId
	out            []feature.ControllerOutput
}

func NewController(self domain.NodeId, getTimeoutMs, syncIntervalMs int64, lgr logger.Logger) *Controller {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Controller{
		self:           self,
		store:          newStore(lgr.Named("dhtkv.store")),
		lgr:            lgr.Named("dhtkv"),
		getTimeoutMs:   getTimeoutMs,
		syncIntervalMs: syncIntervalMs,
		pending:        make(map[uint64]pendingGet),
		neighboursBy:   make(map[domain.ConnId]domain.NodeId),
	}
}

func (c *Controller) sendDirect(conn domain.ConnId, body []byte) {
	c.out = append(c.out, feature.SendDirect{Conn: conn, Body: body})
}

func (c *Controller) OnTick(nowMs int64) {
	for id, p := range c.pending {
		if nowMs >= p.deadlineMs {
			routetrace.EndDhtGet(p.span, false, ErrTimeout)
			c.out = append(c.out, feature.Event{Actor: p.actor, Payload: GetResult{Key: p.key, Found: false, Err: ErrTimeout}})
			delete(c.pending, id)
		}
	}

	if nowMs-c.lastSyncMs < c.syncIntervalMs {
		return
	}
	c.lastSyncMs = nowMs
	for conn := range c.neighboursBy {
		c.sendDirect(conn, encodeSyncReq())
	}
}

func (c *Controller) OnSharedInput(in feature.SharedInput) {
	conn, ok := in.(feature.Connection)
	if !ok {
		return
	}
	switch ev := conn.Event.(type) {
	case neighbours.Connected:
		c.neighboursBy[ev.Ctx.Conn] = ev.Ctx.Node
	case neighbours.Disconnected:
		delete(c.neighboursBy, ev.Ctx.Conn)
	}
}

func (c *Controller) OnInput(nowMs int64, in feature.ControllerInput) {
	switch v := in.(type) {
	case feature.Control:
		switch payload := v.Payload.(type) {
		case Set:
			c.store.Merge(payload.Key, Entry{Value: payload.Value, Version: payload.Version})
		case Get:
			if e, found := c.store.Get(payload.Key); found {
				c.out = append(c.out, feature.Event{Actor: v.Actor, Payload: GetResult{Key: payload.Key, Value: e.Value, Version: e.Version, Found: true}})
				return
			}
			c.reqSeq++
			reqId := c.reqSeq
			_, span := routetrace.StartDhtGet(nil, c.self, payload.Key)
			c.pending[reqId] = pendingGet{key: payload.Key, actor: v.Actor, deadlineMs: nowMs + c.getTimeoutMs, span: span}
			body := encodeGetReq(getReq{ReqId: reqId, Key: payload.Key})
			c.out = append(c.out, feature.SendRoute{Rule: router.Broadcast{}, Ttl: 4, Body: body})
		}
	case feature.NetRemote:
		c.onNetRemote(v)
	}
}

func (c *Controller) onNetRemote(v feature.NetRemote) {
	if len(v.Body) == 0 {
		return
	}
	switch msgKind(v.Body[0]) {
	case kindGetReq:
		req, err := decodeGetReq(v.Body[1:])
		if err != nil {
			c.lgr.Debug("malformed get req", logger.F("err", err.Error()))
			return
		}
		e, found := c.store.Get(req.Key)
		res := getRes{ReqId: req.ReqId, Found: found, Value: e.Value, Version: e.Version}
		c.sendDirect(v.Conn, encodeGetRes(res))

	case kindGetRes:
		res, err := decodeGetRes(v.Body[1:])
		if err != nil {
			return
		}
		p, ok := c.pending[res.ReqId]
		if !ok {
			return
		}
		delete(c.pending, res.ReqId)
		if res.Found {
			c.store.Merge(p.key, Entry{Value: res.Value, Version: res.Version})
		}
		routetrace.EndDhtGet(p.span, res.Found, nil)
		c.out = append(c.out, feature.Event{Actor: p.actor, Payload: GetResult{Key: p.key, Value: res.Value, Version: res.Version, Found: res.Found}})

	case kindSyncReq:
		entries := c.store.All()
		out := make([]syncEntry, 0, len(entries))
		for k, e := range entries {
			out = append(out, syncEntry{Key: k, Entry: e})
		}
		c.sendDirect(v.Conn, encodeSyncRes(out))

	case kindSyncRes:
		entries, err := decodeSyncRes(v.Body[1:])
		if err != nil {
			c.lgr.Debug("malformed sync res", logger.F("err", err.Error()))
			return
		}
		for _, e := range entries {
			c.store.Merge(e.Key, e.Entry)
		}
	}
}

func (c *Controller) PopOutput() (feature.ControllerOutput, bool) {
	if len(c.out) == 0 {
		return nil, false
	}
	o := c.out[0]
	c.out = c.out[1:]
	return o, true
}

type errTimeout struct{}

func (errTimeout) Error() string { return "dhtkv: get timed out" }
