// Package routersync implements the RouterSync feature (§4.5): periodic
// exchange of TableSync advertisements between directly connected
// neighbours, driving the distance-vector Router towards convergence.
package routersync

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/telemetry/routetrace"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

const numLayers = 4

// directMetric is the one-hop metric assigned to every direct neighbour
// link; this build does not measure per-link RTT/bandwidth (see
// DESIGN.md), so every direct hop is treated as uniformly
// cheap and unlimited-bandwidth.
func directMetric(self, node domain.NodeId) domain.Metric {
	return domain.Metric{LatencyMs: 1, Bandwidth: domain.BandwidthUnlimited, Hops: []domain.NodeId{node, self}}
}

type neighbourState struct {
	conn domain.ConnId
	node domain.NodeId
}

// Controller owns the round timer and drives Table.SyncFor/ApplySync on the
// shared Router.
type Controller struct {
	self         domain.NodeId
	r            *router.Router
	lgr          logger.Logger
	intervalMs   int64
	lastRoundMs  int64
	neighboursBy map[domain.ConnId]neighbourState
	out          []feature.ControllerOutput
}

func NewController(self domain.NodeId, r *router.Router, intervalMs int64, lgr logger.Logger) *Controller {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Controller{
		self:         self,
		r:            r,
		lgr:          lgr.Named("router_sync"),
		intervalMs:   intervalMs,
		neighboursBy: make(map[domain.ConnId]neighbourState),
	}
}

func (c *Controller) OnTick(nowMs int64) {
	if nowMs-c.lastRoundMs < c.intervalMs {
		return
	}
	c.lastRoundMs = nowMs
	for layer := 0; layer < numLayers; layer++ {
		_, span := routetrace.StartRouterSyncRound(nil, c.self, layer, len(c.neighboursBy))
		for conn, n := range c.neighboursBy {
			sync, ok := c.r.Table(layer).SyncFor(n.node)
			if !ok {
				continue
			}
			body, err := wire.EncodeTableSync(nil, sync)
			if err != nil {
				c.lgr.Warn("failed to encode table sync", logger.F("layer", layer), logger.F("err", err.Error()))
				continue
			}
			c.out = append(c.out, feature.SendDirect{Conn: conn, Flags: uint8(layer), Body: body})
		}
		span.End()
	}
}

func (c *Controller) OnSharedInput(in feature.SharedInput) {
	conn, ok := in.(feature.Connection)
	if !ok {
		return
	}
	switch ev := conn.Event.(type) {
	case neighbours.Connected:
		c.neighboursBy[ev.Ctx.Conn] = neighbourState{conn: ev.Ctx.Conn, node: ev.Ctx.Node}
		layer := domain.LookupLayer(c.self, ev.Ctx.Node)
		c.r.Table(layer).AddDirect(ev.Ctx.Conn, ev.Ctx.Node, directMetric(c.self, ev.Ctx.Node))
	case neighbours.Disconnected:
		delete(c.neighboursBy, ev.Ctx.Conn)
		for layer := 0; layer < numLayers; layer++ {
			c.r.Table(layer).DelDirect(ev.Ctx.Conn)
		}
	}
}

func (c *Controller) OnInput(nowMs int64, in feature.ControllerInput) {
	nr, ok := in.(feature.NetRemote)
	if !ok {
		return
	}
	n, known := c.neighboursBy[nr.Conn]
	if !known {
		return
	}
	layer := int(nr.Header.Flags)
	if layer < 0 || layer >= numLayers {
		return
	}
	sync, _, err := wire.DecodeTableSync(nr.Body)
	if err != nil {
		c.lgr.Debug("malformed table sync", logger.F("err", err.Error()))
		return
	}
	c.r.Table(layer).ApplySync(nr.Conn, n.node, directMetric(c.self, n.node), sync)
}

func (c *Controller) PopOutput() (feature.ControllerOutput, bool) {
	if len(c.out) == 0 {
		return nil, false
	}
	o := c.out[0]
	c.out = c.out[1:]
	return o, true
}
