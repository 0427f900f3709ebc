// Package data implements the Data feature: opaque user datagrams routed
// by the caller-supplied RouteRule, delivered to local subscribers with no
// feature-specific framing of their own.
package data

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

// Send is a ControllerInput Control payload: route body per rule.
type Send struct {
	Rule router.RouteRule
	Ttl  uint8
	Body []byte
}

// Received is an Event payload: a datagram delivered to this node, either
// because it was addressed here or because it arrived over a broadcast.
type Received struct {
	From domain.NodeId
	Body []byte
}

// Controller has no state of its own: every datagram either routes
// onward (SendRoute) or, once local, is handed to the workers as a
// ToWorkers Received payload; no issuing actor is tracked — there are no
// subscriptions to track, unlike DhtKv or PubSubRelay.
type Controller struct {
	lgr logger.Logger
	out []feature.ControllerOutput
}

func NewController(lgr logger.Logger) *Controller {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &Controller{lgr: lgr.Named("data")}
}

func (c *Controller) OnTick(nowMs int64)           {}
func (c *Controller) OnSharedInput(in feature.SharedInput) {}

func (c *Controller) OnInput(nowMs int64, in feature.ControllerInput) {
	switch v := in.(type) {
	case feature.Control:
		if send, ok := v.Payload.(Send); ok {
			c.out = append(c.out, feature.SendRoute{Rule: send.Rule, Ttl: send.Ttl, Body: send.Body})
		}
	case feature.NetRemote:
		c.out = append(c.out, feature.ToWorkers{Payload: Received{From: 0, Body: v.Body}})
	case feature.NetLocal:
		c.out = append(c.out, feature.ToWorkers{Payload: Received{Body: v.Body}})
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
