package routersync

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

func drainOut(c *Controller) []feature.ControllerOutput {
	var out []feature.ControllerOutput
	for {
		o, ok := c.PopOutput()
		if !ok {
			return out
		}
		out = append(out, o)
	}
}

func TestConnectedAddsDirectAndTicksSendSync(t *testing.T) {
	self := domain.NodeId(1)
	peer := domain.NodeId(2)
	r := router.New(self, nil)
	c := NewController(self, r, 1000, nil)

	c.OnSharedInput(feature.Connection{Event: neighbours.Connected{Ctx: neighbours.ConnCtx{Conn: 10, Node: peer}}})

	layer := domain.LookupLayer(self, peer)
	if _, ok := r.Table(layer).NextPath(peer, nil); !ok {
		t.Fatalf("expected direct route to peer after Connected event")
	}

	c.OnTick(1000)
	out := drainOut(c)
	if len(out) == 0 {
		t.Fatalf("expected at least one SendDirect after first tick round")
	}
	for _, o := range out {
		if _, ok := o.(feature.SendDirect); !ok {
			t.Fatalf("expected SendDirect outputs, got %T", o)
		}
	}
}

func TestDisconnectedRemovesDirectFromAllLayers(t *testing.T) {
	self := domain.NodeId(1)
	peer := domain.NodeId(2)
	r := router.New(self, nil)
	c := NewController(self, r, 1000, nil)

	c.OnSharedInput(feature.Connection{Event: neighbours.Connected{Ctx: neighbours.ConnCtx{Conn: 10, Node: peer}}})
	c.OnSharedInput(feature.Connection{Event: neighbours.Disconnected{Ctx: neighbours.ConnCtx{Conn: 10, Node: peer}}})

	layer := domain.LookupLayer(self, peer)
	if _, ok := r.Table(layer).NextPath(peer, nil); ok {
		t.Fatalf("expected no route left after Disconnected event")
	}
}

func TestNetRemoteAppliesSyncForKnownLayer(t *testing.T) {
	self := domain.NodeId(1)
	peer := domain.NodeId(2)
	r := router.New(self, nil)
	c := NewController(self, r, 1000, nil)
	c.OnSharedInput(feature.Connection{Event: neighbours.Connected{Ctx: neighbours.ConnCtx{Conn: 10, Node: peer}}})

	sync := []router.TableSyncEntry{{Slot: 5, Metric: domain.Metric{LatencyMs: 2, Bandwidth: 1000, Hops: []domain.NodeId{99, peer}}}}
	body, err := wire.EncodeTableSync(nil, sync)
	if err != nil {
		t.Fatalf("encode table sync: %v", err)
	}
	layer := domain.LookupLayer(self, peer)
	c.OnInput(1000, feature.NetRemote{Conn: 10, Header: wire.TransportMsgHeader{Flags: uint8(layer)}, Body: body})

	found := false
	for _, slot := range r.Table(layer).Slots() {
		if slot == 5 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected slot 5 to be populated after applying sync, got slots %v", r.Table(layer).Slots())
	}
}
