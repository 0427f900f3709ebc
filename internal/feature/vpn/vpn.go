// Package vpn implements the Vpn feature's logical half: routing TUN
// packets to/from the overlay. The TUN device itself is out of scope
// (spec §1 "Out of scope"); this package only decides, given a configured
// peer NodeId, where an outgoing TunPkt is routed and hands an incoming one
// back to the worker to write to the device.
package vpn

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

// SetPeer is a Control payload: subsequent TUN packets route to peer.
type SetPeer struct{ Peer domain.NodeId }

// TunPkt carries one opaque packet, inbound or outbound.
type TunPkt struct{ Body []byte }

type Controller struct {
	lgr  logger.Logger
	peer domain.NodeId
	set  bool
	out  []feature.ControllerOutput
}

func NewController(lgr logger.Logger) *Controller {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Controller{lgr: lgr.Named("vpn")}
}

func (c *Controller) OnTick(nowMs int64)                   {}
func (c *Controller) OnSharedInput(in feature.SharedInput) {}

func (c *Controller) OnInput(nowMs int64, in feature.ControllerInput) {
	switch v := in.(type) {
	case feature.Control:
		switch p := v.Payload.(type) {
		case SetPeer:
			c.peer = p.Peer
			c.set = true
		case TunPkt:
			if !c.set {
				c.lgr.Warn("dropping tun packet: no peer configured")
				return
			}
			c.out = append(c.out, feature.SendRoute{Rule: router.ToNode{Node: c.peer}, Ttl: 32, Body: p.Body})
		}
	case feature.NetRemote:
		c.out = append(c.out, feature.ToWorkers{Payload: TunPkt{Body: v.Body}})
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
