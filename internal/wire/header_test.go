package wire

import (
	"bytes"
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

func roundTrip(t *testing.T, h TransportMsgHeader) TransportMsgHeader {
	t.Helper()
	buf, err := Encode(nil, h)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Decode consumed %d of %d bytes", n, len(buf))
	}
	return got
}

func TestHeaderRoundTripToNode(t *testing.T) {
	h := TransportMsgHeader{
		Secure:      true,
		Route:       router.ToNode{Node: domain.NodeId(0xAABBCCDD)},
		FeatureId:   3,
		Ttl:         16,
		Flags:       0x1,
		FromNode:    domain.NodeId(0x01020304),
		FromNodeSet: true,
	}
	got := roundTrip(t, h)
	if got.Secure != h.Secure || got.FeatureId != h.FeatureId || got.Ttl != h.Ttl || got.Flags != h.Flags {
		t.Fatalf("fixed fields mismatch: %+v vs %+v", got, h)
	}
	if !got.FromNodeSet || got.FromNode != h.FromNode {
		t.Fatalf("from_node mismatch: %+v", got)
	}
	rn, ok := got.Route.(router.ToNode)
	if !ok || rn.Node != domain.NodeId(0xAABBCCDD) {
		t.Fatalf("route mismatch: %+v", got.Route)
	}
}

func TestHeaderRoundTripBroadcastNoFromNode(t *testing.T) {
	h := TransportMsgHeader{Route: router.Broadcast{}, FeatureId: 1, Ttl: 8}
	got := roundTrip(t, h)
	if got.FromNodeSet {
		t.Fatalf("expected no from_node, got %+v", got)
	}
	if _, ok := got.Route.(router.Broadcast); !ok {
		t.Fatalf("expected Broadcast route, got %+v", got.Route)
	}
}

func TestHeaderRoundTripToNodes(t *testing.T) {
	nodes := []domain.NodeId{0x1, 0x2, 0x3}
	h := TransportMsgHeader{Route: router.ToNodes{Nodes: nodes}, FeatureId: 2, Ttl: 4}
	got := roundTrip(t, h)
	rn, ok := got.Route.(router.ToNodes)
	if !ok || len(rn.Nodes) != len(nodes) {
		t.Fatalf("expected %d nodes, got %+v", len(nodes), got.Route)
	}
	for i := range nodes {
		if rn.Nodes[i] != nodes[i] {
			t.Fatalf("node %d mismatch: %+v", i, rn.Nodes)
		}
	}
}

func TestHeaderRoundTripToService(t *testing.T) {
	h := TransportMsgHeader{Route: router.ToService{Service: 9}, FeatureId: 1, Ttl: 1}
	got := roundTrip(t, h)
	rs, ok := got.Route.(router.ToService)
	if !ok || rs.Service != 9 {
		t.Fatalf("expected ToService(9), got %+v", got.Route)
	}
}

func TestIsSecureReadsFirstByteWithoutFullParse(t *testing.T) {
	buf, err := Encode(nil, TransportMsgHeader{Secure: true, Route: router.Direct{}, FeatureId: 1, Ttl: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !IsSecure(buf[0]) {
		t.Fatalf("expected secure bit set")
	}

	buf2, err := Encode(nil, TransportMsgHeader{Secure: false, Route: router.Direct{}, FeatureId: 1, Ttl: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if IsSecure(buf2[0]) {
		t.Fatalf("expected secure bit clear")
	}
}

func TestDecreaseTtlStopsAtZero(t *testing.T) {
	buf := []byte{0, 0, 1, 0}
	if !DecreaseTtl(buf) || buf[2] != 0 {
		t.Fatalf("expected ttl to drop from 1 to 0")
	}
	if DecreaseTtl(buf) {
		t.Fatalf("expected DecreaseTtl to refuse at ttl=0")
	}
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	buf, _ := Encode(nil, TransportMsgHeader{Route: router.Direct{}, FeatureId: 1, Ttl: 1})
	buf[0] |= 0b0100_0000 // bump version field to 1
	if _, _, err := Decode(buf); err != ErrBadVersion {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
}

func TestDecodeTruncatedBufferIsShort(t *testing.T) {
	buf, _ := Encode(nil, TransportMsgHeader{Route: router.ToNode{Node: 1}, FeatureId: 1, Ttl: 1, FromNodeSet: true, FromNode: 2})
	if _, _, err := Decode(buf[:len(buf)-1]); err == nil {
		t.Fatalf("expected truncation error")
	}
}

func TestTableSyncRoundTrip(t *testing.T) {
	sync := router.TableSync{
		{Slot: 1, Metric: domain.Metric{LatencyMs: 5, Bandwidth: 100, Hops: []domain.NodeId{1, 2}}},
		{Slot: 2, Metric: domain.Metric{LatencyMs: 9, Bandwidth: domain.BandwidthUnlimited, Hops: []domain.NodeId{3}}},
	}
	buf, err := EncodeTableSync(nil, sync)
	if err != nil {
		t.Fatalf("EncodeTableSync: %v", err)
	}
	got, n, err := DecodeTableSync(buf)
	if err != nil {
		t.Fatalf("DecodeTableSync: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d of %d", n, len(buf))
	}
	if len(got) != len(sync) {
		t.Fatalf("expected %d entries, got %d", len(sync), len(got))
	}
	for i := range sync {
		if got[i].Slot != sync[i].Slot || got[i].Metric.LatencyMs != sync[i].Metric.LatencyMs ||
			got[i].Metric.Bandwidth != sync[i].Metric.Bandwidth || !bytes.Equal(nodeIdsBytes(got[i].Metric.Hops), nodeIdsBytes(sync[i].Metric.Hops)) {
			t.Fatalf("entry %d mismatch: %+v vs %+v", i, got[i], sync[i])
		}
	}
}

func nodeIdsBytes(ids []domain.NodeId) []byte {
	out := make([]byte, 0, len(ids)*4)
	for _, id := range ids {
		out = append(out, byte(id>>24), byte(id>>16), byte(id>>8), byte(id))
	}
	return out
}

func TestNeighboursControlRoundTrip(t *testing.T) {
	c := NeighboursControl{Kind: KindPing, FromNode: 0x42, Session: 0xDEADBEEF}
	buf := EncodeNeighboursControl(nil, c)
	got, ok := TryDecodeNeighboursControl(buf)
	if !ok {
		t.Fatalf("expected decode ok")
	}
	if got != c {
		t.Fatalf("got %+v, want %+v", got, c)
	}
}

func TestTryDecodeNeighboursControlRejectsRoutedHeader(t *testing.T) {
	buf, err := Encode(nil, TransportMsgHeader{Route: router.Direct{}, FeatureId: 1, Ttl: 1})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// pad enough bytes for the minimum NeighboursControl length check
	buf = append(buf, make([]byte, 16)...)
	if _, ok := TryDecodeNeighboursControl(buf); ok {
		t.Fatalf("expected routed header to not be mistaken for NeighboursControl")
	}
}
