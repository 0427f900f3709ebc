package vpn

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

func TestTunPktWithoutPeerIsDropped(t *testing.T) {
	c := NewController(nil)
	c.OnInput(0, feature.Control{Payload: TunPkt{Body: []byte("pkt")}})
	if _, ok := c.PopOutput(); ok {
		t.Fatalf("expected no output before a peer is configured")
	}
}

func TestSetPeerThenTunPktRoutesToNode(t *testing.T) {
	c := NewController(nil)
	peer := domain.NodeId(42)
	c.OnInput(0, feature.Control{Payload: SetPeer{Peer: peer}})
	c.OnInput(0, feature.Control{Payload: TunPkt{Body: []byte("pkt")}})

	out, ok := c.PopOutput()
	if !ok {
		t.Fatalf("expected an output")
	}
	send, ok := out.(feature.SendRoute)
	if !ok {
		t.Fatalf("expected SendRoute, got %T", out)
	}
	toNode, ok := send.Rule.(router.ToNode)
	if !ok || toNode.Node != peer {
		t.Fatalf("expected route to configured peer, got %+v", send.Rule)
	}
	if string(send.Body) != "pkt" {
		t.Fatalf("unexpected body: %q", send.Body)
	}
}

func TestNetRemoteEmitsTunPktToWorkers(t *testing.T) {
	c := NewController(nil)
	c.OnInput(0, feature.NetRemote{Conn: 1, Body: []byte("incoming")})

	out, ok := c.PopOutput()
	if !ok {
		t.Fatalf("expected an output")
	}
	tw, ok := out.(feature.ToWorkers)
	if !ok {
		t.Fatalf("expected ToWorkers, got %T", out)
	}
	pkt, ok := tw.Payload.(TunPkt)
	if !ok || string(pkt.Body) != "incoming" {
		t.Fatalf("unexpected payload: %+v", tw.Payload)
	}
}
