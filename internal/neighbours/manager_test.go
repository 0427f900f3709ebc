package neighbours

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/wire"
)

func testCfg() Config {
	return Config{TimeoutMs: 10_000, PingRateHz: 1, PingBurst: 1}
}

func drain(m *Manager) []Output {
	var outs []Output
	for {
		o, ok := m.PopOutput()
		if !ok {
			break
		}
		outs = append(outs, o)
	}
	return outs
}

func TestHandshakeCompletesToConnected(t *testing.T) {
	const a, b = 0x1, 0x2
	ma := New(a, testCfg(), nil)
	mb := New(b, testCfg(), nil)

	ma.OnInput(0, ConnectTo{Addr: "b"})
	outs := drain(ma)
	if len(outs) != 1 {
		t.Fatalf("expected one ConnectRequest, got %v", outs)
	}
	req := outs[0].(NetNeighbour)
	if req.Control.Kind != wire.KindConnectRequest {
		t.Fatalf("expected ConnectRequest, got %+v", req.Control)
	}

	mb.OnInput(0, Control{Remote: "a", Control: req.Control})
	outs = drain(mb)
	var resp NetNeighbour
	var sawConnectedEvent bool
	for _, o := range outs {
		if nn, ok := o.(NetNeighbour); ok {
			resp = nn
		}
		if ev, ok := o.(Event); ok {
			if _, ok := ev.Event.(Connected); ok {
				sawConnectedEvent = true
			}
		}
	}
	if resp.Control.Kind != wire.KindConnectResponse {
		t.Fatalf("expected ConnectResponse from b, got %+v", outs)
	}
	if !sawConnectedEvent {
		t.Fatalf("expected b to emit Connected on handshake, got %v", outs)
	}

	ma.OnInput(0, Control{Remote: "b", Control: resp.Control})
	outs = drain(ma)
	sawConnectedEvent = false
	for _, o := range outs {
		if ev, ok := o.(Event); ok {
			if _, ok := ev.Event.(Connected); ok {
				sawConnectedEvent = true
			}
		}
	}
	if !sawConnectedEvent {
		t.Fatalf("expected a to emit Connected on response, got %v", outs)
	}
}

func TestTimeoutEmitsDisconnected(t *testing.T) {
	const a, b = 0x1, 0x2
	m := New(a, testCfg(), nil)
	m.OnInput(0, ConnectTo{Addr: "b"})
	drain(m)
	m.OnInput(0, Control{Remote: "b", Control: wire.NeighboursControl{Kind: wire.KindConnectResponse, FromNode: b, Session: m.byAddr["b"].session}})
	drain(m)

	m.OnTick(20_000) // past the 10s timeout with no further activity
	outs := drain(m)
	var sawDisconnected bool
	for _, o := range outs {
		if ev, ok := o.(Event); ok {
			if _, ok := ev.Event.(Disconnected); ok {
				sawDisconnected = true
			}
		}
	}
	if !sawDisconnected {
		t.Fatalf("expected Disconnected after timeout, got %v", outs)
	}
	if _, ok := m.byAddr["b"]; ok {
		t.Fatalf("expected peer removed after timeout")
	}
}

func TestDisconnectFromTearsDownImmediately(t *testing.T) {
	const a, b = 0x1, 0x2
	m := New(a, testCfg(), nil)
	m.OnInput(0, ConnectTo{Addr: "b"})
	drain(m)
	m.OnInput(0, Control{Remote: "b", Control: wire.NeighboursControl{Kind: wire.KindConnectResponse, FromNode: b, Session: m.byAddr["b"].session}})
	drain(m)

	m.OnInput(0, DisconnectFrom{Node: b})
	outs := drain(m)
	var sawDisconnect, sawDisconnected bool
	for _, o := range outs {
		if nn, ok := o.(NetNeighbour); ok && nn.Control.Kind == wire.KindDisconnect {
			sawDisconnect = true
		}
		if ev, ok := o.(Event); ok {
			if _, ok := ev.Event.(Disconnected); ok {
				sawDisconnected = true
			}
		}
	}
	if !sawDisconnect || !sawDisconnected {
		t.Fatalf("expected wire Disconnect + ConnectionEvent, got %v", outs)
	}
	if _, ok := m.byNode[b]; ok {
		t.Fatalf("expected node index cleared")
	}
}

func TestShutdownWithNoPeersRespondsImmediately(t *testing.T) {
	m := New(0x1, testCfg(), nil)
	m.OnInput(0, ShutdownRequest{})
	outs := drain(m)
	if len(outs) != 1 {
		t.Fatalf("expected one output, got %v", outs)
	}
	if _, ok := outs[0].(ShutdownResponse); !ok {
		t.Fatalf("expected ShutdownResponse, got %+v", outs[0])
	}
}
