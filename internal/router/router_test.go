package router

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
)

func TestDeriveActionToNodeLocal(t *testing.T) {
	const self domain.NodeId = 0x1
	r := New(self, nil)
	act := r.DeriveAction(ToNode{Node: self}, nil, nil)
	if act.Kind != ActionLocal {
		t.Fatalf("expected ActionLocal, got %v", act.Kind)
	}
}

func TestDeriveActionToNodeRejectWithoutRoute(t *testing.T) {
	const self, dst domain.NodeId = 0x1, 0x99
	r := New(self, nil)
	act := r.DeriveAction(ToNode{Node: dst}, nil, nil)
	if act.Kind != ActionReject {
		t.Fatalf("expected ActionReject, got %v", act.Kind)
	}
}

func TestDeriveActionToNodeForwards(t *testing.T) {
	const self, b, dst domain.NodeId = 0x1, 0x2, 0x3
	r := New(self, nil)
	layer := domain.LookupLayer(self, dst)
	r.Table(layer).AddDirect(7, b, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{b, self}})
	// sync from b giving us reachability to dst through b
	r.Table(layer).ApplySync(7, b, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{b, self}},
		TableSync{{Slot: dst.Layer(layer), Metric: domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{dst, b}}}})

	act := r.DeriveAction(ToNode{Node: dst}, nil, nil)
	if act.Kind != ActionNext || act.Next.Conn != 7 || act.Next.Node != b {
		t.Fatalf("expected Next via b(conn=7), got %+v", act)
	}
}

func TestDeriveActionToServiceLocalWhenSelfProvides(t *testing.T) {
	const self domain.NodeId = 0x1
	r := New(self, nil)
	r.RegisterLocalService(5)
	act := r.DeriveAction(ToService{Service: 5}, nil, nil)
	if act.Kind != ActionLocal {
		t.Fatalf("expected ActionLocal, got %v", act.Kind)
	}
}

func TestDeriveActionToServiceRejectWhenUnregistered(t *testing.T) {
	r := New(0x1, nil)
	act := r.DeriveAction(ToService{Service: 9}, nil, nil)
	if act.Kind != ActionReject {
		t.Fatalf("expected ActionReject, got %v", act.Kind)
	}
}

func TestDeriveActionBroadcastIncludesLocal(t *testing.T) {
	r := New(0x1, nil)
	act := r.DeriveAction(Broadcast{}, nil, nil)
	if act.Kind != ActionBroadcast || !act.Local {
		t.Fatalf("expected local broadcast delivery, got %+v", act)
	}
}

func TestDeriveActionToNodesExcludesRelayFrom(t *testing.T) {
	const self, via, other domain.NodeId = 0x1, 0x2, 0x3
	r := New(self, nil)
	layer := domain.LookupLayer(self, other)
	r.Table(layer).AddDirect(3, other, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{other, self}})

	relay := other
	act := r.DeriveAction(ToNodes{Nodes: []domain.NodeId{other}}, nil, &relay)
	if act.Kind != ActionBroadcast {
		t.Fatalf("expected ActionBroadcast, got %v", act.Kind)
	}
	if len(act.Remotes) != 0 {
		t.Fatalf("expected no remotes (relay_from excluded the only path), got %+v", act.Remotes)
	}
}
