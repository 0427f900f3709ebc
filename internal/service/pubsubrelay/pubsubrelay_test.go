package pubsubrelay

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/service"
)

func drain(c *Controller) []service.ControllerOutput {
	var out []service.ControllerOutput
	for {
		o, ok := c.PopOutput()
		if !ok {
			return out
		}
		out = append(out, o)
	}
}

func TestSubscribeThenPublishDeliversLocally(t *testing.T) {
	self := domain.NodeId(1)
	c := NewController(self, 0, nil)
	c.OnInput(0, service.Control{Payload: Subscribe{Channel: 42}})
	drain(c) // discard the subscribe-broadcast

	c.OnInput(0, service.Control{Payload: Publish{Channel: 42, Body: []byte("hi")}})
	out := drain(c)
	if len(out) != 1 {
		t.Fatalf("expected one local delivery event, got %d", len(out))
	}
	ev, ok := out[0].(service.Event)
	if !ok {
		t.Fatalf("expected Event, got %T", out[0])
	}
	recv, ok := ev.Payload.(Received)
	if !ok || recv.Channel != 42 || string(recv.Body) != "hi" {
		t.Fatalf("unexpected payload: %+v", ev.Payload)
	}
}

func TestPublishFansOutToEachRemoteSubscriberOnce(t *testing.T) {
	self := domain.NodeId(1)
	subA := domain.NodeId(2)
	subB := domain.NodeId(3)
	c := NewController(self, 0, nil)
	c.addSub(7, subA)
	c.addSub(7, subB)

	c.OnInput(0, service.Control{Payload: Publish{Channel: 7, Body: []byte("x")}})
	out := drain(c)
	if len(out) != 2 {
		t.Fatalf("expected exactly one SendRoute per remote subscriber, got %d", len(out))
	}
	seen := map[domain.NodeId]bool{}
	for _, o := range out {
		sr, ok := o.(service.SendRoute)
		if !ok {
			t.Fatalf("expected SendRoute, got %T", o)
		}
		toNode, ok := sr.Rule.(router.ToNode)
		if !ok {
			t.Fatalf("expected ToNode rule, got %+v", sr.Rule)
		}
		seen[toNode.Node] = true
	}
	if !seen[subA] || !seen[subB] {
		t.Fatalf("expected both subscribers addressed, got %+v", seen)
	}
}

func TestDuplicatePublishIsSuppressedByDedupHistory(t *testing.T) {
	self := domain.NodeId(1)
	c := NewController(self, 0, nil)
	c.addSub(5, self)

	msg := encodePublish(5, domain.NodeId(9), 100, []byte("once"))
	c.OnInput(0, service.NetRemote{From: domain.NodeId(9), Body: msg})
	c.OnInput(0, service.NetRemote{From: domain.NodeId(9), Body: msg})

	out := drain(c)
	if len(out) != 1 {
		t.Fatalf("expected exactly one delivery despite receiving the publish twice, got %d", len(out))
	}
}
