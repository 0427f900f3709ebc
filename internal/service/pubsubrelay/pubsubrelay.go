// Package pubsubrelay implements the PubSubRelay service (SPEC_FULL.md
// §4.7): a per-channel registry of subscriber NodeIds, grounded in
// original_source's packages/services/pub_sub/src/relay.rs, simplified from
// that file's logic/remote/local/source_binding split into one flat
// controller since this rewrite has no local-process subscriber
// distinction — every subscriber is a NodeId reached over the overlay.
package pubsubrelay

import (
	"encoding/binary"
	"errors"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/service"
)

var errTooShort = errors.New("pubsubrelay: buffer too short")

type msgKind uint8

const (
	kindSubscribe   msgKind = 0
	kindUnsubscribe msgKind = 1
	kindPublish     msgKind = 2
)

// Subscribe is a Control payload: self subscribes to channel.
type Subscribe struct{ Channel uint32 }

// Unsubscribe is a Control payload: self unsubscribes from channel.
type Unsubscribe struct{ Channel uint32 }

// Publish is a Control payload: publish body to every subscriber of channel.
type Publish struct {
	Channel uint32
	Body    []byte
}

// Received is an Event payload: a publish delivered to this node as a
// subscriber of Channel.
type Received struct {
	Channel uint32
	From    domain.NodeId
	Body    []byte
}

// dedupKey identifies one publish for this service's own history set
// (source node + channel + sequence).
type dedupKey struct {
	from    domain.NodeId
	channel uint32
	seq     uint64
}

// Controller owns the per-channel subscriber sets and a bounded publish
// history used to suppress duplicate deliveries reaching a subscriber
// through more than one path.
type Controller struct {
	self    domain.NodeId
	lgr     logger.Logger
	subs    map[uint32]map[domain.NodeId]struct{}
	seq     uint64
	seen    map[dedupKey]struct{}
	seenAge []dedupKey
	histCap int
	out     []service.ControllerOutput
}

func NewController(self domain.NodeId, historyCap int, lgr logger.Logger) *Controller {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	if historyCap <= 0 {
		historyCap = 1024
	}
	return &Controller{
		self:    self,
		lgr:     lgr.Named("pub_sub_relay"),
		subs:    make(map[uint32]map[domain.NodeId]struct{}),
		seen:    make(map[dedupKey]struct{}),
		histCap: historyCap,
	}
}

func (c *Controller) OnTick(nowMs int64)                     {}
func (c *Controller) OnSharedInput(in service.SharedInput) {}

func (c *Controller) OnInput(nowMs int64, in service.ControllerInput) {
	switch v := in.(type) {
	case service.Control:
		switch p := v.Payload.(type) {
		case Subscribe:
			c.addSub(p.Channel, c.self)
			c.broadcastMembership(p.Channel, kindSubscribe)
		case Unsubscribe:
			c.delSub(p.Channel, c.self)
			c.broadcastMembership(p.Channel, kindUnsubscribe)
		case Publish:
			c.seq++
			c.publish(p.Channel, c.self, c.seq, p.Body)
		}
	case service.NetRemote:
		c.onNetRemote(v)
	}
}

func (c *Controller) addSub(channel uint32, node domain.NodeId) {
	set, ok := c.subs[channel]
	if !ok {
		set = make(map[domain.NodeId]struct{})
		c.subs[channel] = set
	}
	set[node] = struct{}{}
}

func (c *Controller) delSub(channel uint32, node domain.NodeId) {
	set, ok := c.subs[channel]
	if !ok {
		return
	}
	delete(set, node)
	if len(set) == 0 {
		delete(c.subs, channel)
	}
}

// broadcastMembership tells every other node about a subscription change
// by flooding it on the overlay, so remote Controllers learn who the
// subscribers of a channel are without a central registry.
func (c *Controller) broadcastMembership(channel uint32, kind msgKind) {
	body := encodeMembership(kind, channel, c.self)
	c.out = append(c.out, service.SendRoute{Rule: router.Broadcast{}, Ttl: 8, Body: body})
}

func (c *Controller) publish(channel uint32, from domain.NodeId, seq uint64, body []byte) {
	key := dedupKey{from: from, channel: channel, seq: seq}
	if _, dup := c.seen[key]; dup {
		return
	}
	c.remember(key)

	subs := c.subs[channel]
	if _, isLocalSub := subs[c.self]; isLocalSub {
		c.out = append(c.out, service.Event{Actor: from, Payload: Received{Channel: channel, From: from, Body: body}})
	}
	if len(subs) == 0 {
		return
	}
	msg := encodePublish(channel, from, seq, body)
	for node := range subs {
		if node == c.self {
			continue
		}
		c.out = append(c.out, service.SendRoute{Rule: router.ToNode{Node: node}, Ttl: 16, Body: msg})
	}
}

func (c *Controller) remember(key dedupKey) {
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.seenAge = append(c.seenAge, key)
	if len(c.seenAge) > c.histCap {
		oldest := c.seenAge[0]
		c.seenAge = c.seenAge[1:]
		delete(c.seen, oldest)
	}
}

func (c *Controller) onNetRemote(v service.NetRemote) {
	if len(v.Body) == 0 {
		return
	}
	switch msgKind(v.Body[0]) {
	case kindSubscribe:
		channel, node, err := decodeMembership(v.Body[1:])
		if err != nil {
			c.lgr.Debug("malformed subscribe", logger.F("err", err.Error()))
			return
		}
		c.addSub(channel, node)
	case kindUnsubscribe:
		channel, node, err := decodeMembership(v.Body[1:])
		if err != nil {
			c.lgr.Debug("malformed unsubscribe", logger.F("err", err.Error()))
			return
		}
		c.delSub(channel, node)
	case kindPublish:
		channel, from, seq, body, err := decodePublish(v.Body[1:])
		if err != nil {
			c.lgr.Debug("malformed publish", logger.F("err", err.Error()))
			return
		}
		c.publish(channel, from, seq, body)
	}
}

func (c *Controller) PopOutput() (service.ControllerOutput, bool) {
	if len(c.out) == 0 {
		return nil, false
	}
	o := c.out[0]
	c.out = c.out[1:]
	return o, true
}

func encodeMembership(kind msgKind, channel uint32, node domain.NodeId) []byte {
	buf := make([]byte, 9)
	buf[0] = byte(kind)
	binary.BigEndian.PutUint32(buf[1:], channel)
	binary.BigEndian.PutUint32(buf[5:], uint32(node))
	return buf
}

func decodeMembership(buf []byte) (uint32, domain.NodeId, error) {
	if len(buf) < 8 {
		return 0, 0, errTooShort
	}
	return binary.BigEndian.Uint32(buf), domain.NodeId(binary.BigEndian.Uint32(buf[4:])), nil
}

func encodePublish(channel uint32, from domain.NodeId, seq uint64, body []byte) []byte {
	buf := make([]byte, 21+len(body))
	buf[0] = byte(kindPublish)
	binary.BigEndian.PutUint32(buf[1:], channel)
	binary.BigEndian.PutUint32(buf[5:], uint32(from))
	binary.BigEndian.PutUint64(buf[9:], seq)
	binary.BigEndian.PutUint32(buf[17:], uint32(len(body)))
	copy(buf[21:], body)
	return buf
}

func decodePublish(buf []byte) (uint32, domain.NodeId, uint64, []byte, error) {
	if len(buf) < 20 {
		return 0, 0, 0, nil, errTooShort
	}
	channel := binary.BigEndian.Uint32(buf)
	from := domain.NodeId(binary.BigEndian.Uint32(buf[4:]))
	seq := binary.BigEndian.Uint64(buf[8:])
	l := int(binary.BigEndian.Uint32(buf[16:]))
	if len(buf) < 20+l {
		return 0, 0, 0, nil, errTooShort
	}
	return channel, from, seq, buf[20 : 20+l], nil
}
