package dhtkv

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
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

func TestGetHitIsAnsweredImmediately(t *testing.T) {
	c := NewController(domain.NodeId(1), 5000, 30000, nil)
	c.OnInput(0, feature.Control{Payload: Set{Key: "a", Value: []byte("1"), Version: 1}})
	c.OnInput(0, feature.Control{Payload: Get{Key: "a"}})

	out := drainOut(c)
	if len(out) != 1 {
		t.Fatalf("expected exactly one output, got %d", len(out))
	}
	ev, ok := out[0].(feature.Event)
	if !ok {
		t.Fatalf("expected Event, got %T", out[0])
	}
	res, ok := ev.Payload.(GetResult)
	if !ok || !res.Found || string(res.Value) != "1" {
		t.Fatalf("unexpected result: %+v", ev.Payload)
	}
}

func TestGetMissBroadcastsAndTimesOut(t *testing.T) {
	c := NewController(domain.NodeId(1), 1000, 30000, nil)
	c.OnInput(0, feature.Control{Payload: Get{Key: "missing"}})

	out := drainOut(c)
	if len(out) != 1 {
		t.Fatalf("expected one SendRoute for the broadcast get req, got %d", len(out))
	}
	if _, ok := out[0].(feature.SendRoute); !ok {
		t.Fatalf("expected SendRoute, got %T", out[0])
	}

	c.OnTick(1000)
	out = drainOut(c)
	if len(out) != 1 {
		t.Fatalf("expected one timeout Event, got %d", len(out))
	}
	ev, ok := out[0].(feature.Event)
	if !ok {
		t.Fatalf("expected Event, got %T", out[0])
	}
	res := ev.Payload.(GetResult)
	if res.Found || res.Err != ErrTimeout {
		t.Fatalf("expected timeout result, got %+v", res)
	}
}

func TestMergeIsLastWriterWinsByVersion(t *testing.T) {
	c := NewController(domain.NodeId(1), 5000, 30000, nil)
	c.OnInput(0, feature.Control{Payload: Set{Key: "k", Value: []byte("old"), Version: 5}})
	c.OnInput(0, feature.Control{Payload: Set{Key: "k", Value: []byte("stale"), Version: 3}})

	e, ok := c.store.Get("k")
	if !ok || string(e.Value) != "old" || e.Version != 5 {
		t.Fatalf("expected higher-version write to win, got %+v", e)
	}
}

func TestSyncReqFromNetRemoteRepliesWithFullSnapshot(t *testing.T) {
	c := NewController(domain.NodeId(1), 5000, 30000, nil)
	c.OnInput(0, feature.Control{Payload: Set{Key: "k", Value: []byte("v"), Version: 1}})
	c.OnSharedInput(feature.Connection{Event: neighbours.Connected{Ctx: neighbours.ConnCtx{Conn: 9, Node: domain.NodeId(2)}}})

	c.OnInput(0, feature.NetRemote{Conn: 9, Body: []byte{byte(kindSyncReq)}})
	out := drainOut(c)
	if len(out) != 1 {
		t.Fatalf("expected one SendDirect reply, got %d", len(out))
	}
	sd, ok := out[0].(feature.SendDirect)
	if !ok {
		t.Fatalf("expected SendDirect, got %T", out[0])
	}
	entries, err := decodeSyncRes(sd.Body[1:])
	if err != nil {
		t.Fatalf("decode sync res: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "k" {
		t.Fatalf("unexpected sync res entries: %+v", entries)
	}
}
