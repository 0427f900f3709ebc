package admin

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/feature/dhtkv"
	"github.com/8xFF/decentralized-sdn/internal/service"
	"github.com/8xFF/decentralized-sdn/internal/service/pubsubrelay"
)

func TestDecodeFeaturesPayloadDhtKvSet(t *testing.T) {
	req := &FeaturesControlRequest{DhtKvSet: &DhtKvSetPayload{Key: "k", Value: []byte("v"), Version: 3}}
	payload, err := decodeFeaturesPayload(feature.DhtKv, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, ok := payload.(dhtkv.Set)
	if !ok {
		t.Fatalf("expected dhtkv.Set, got %T", payload)
	}
	if set.Key != "k" || string(set.Value) != "v" || set.Version != 3 {
		t.Fatalf("unexpected Set contents: %+v", set)
	}
}

func TestDecodeFeaturesPayloadMissingPayload(t *testing.T) {
	if _, err := decodeFeaturesPayload(feature.DhtKv, &FeaturesControlRequest{}); err == nil {
		t.Fatalf("expected an error for a request with no matching payload")
	}
}

func TestDecodeFeaturesPayloadRouterSyncRejected(t *testing.T) {
	if _, err := decodeFeaturesPayload(feature.RouterSync, &FeaturesControlRequest{}); err == nil {
		t.Fatalf("expected router_sync to reject external control")
	}
}

func TestDecodeServicesPayloadPubSubPublish(t *testing.T) {
	req := &ServicesControlRequest{PubSubPublish: &PubSubPublishPayload{Channel: 5, Body: []byte("hi")}}
	payload, err := decodeServicesPayload(service.PubSubRelay, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pub, ok := payload.(pubsubrelay.Publish)
	if !ok {
		t.Fatalf("expected pubsubrelay.Publish, got %T", payload)
	}
	if pub.Channel != 5 || string(pub.Body) != "hi" {
		t.Fatalf("unexpected Publish contents: %+v", pub)
	}
}

func TestJSONCodecRoundTrip(t *testing.T) {
	in := ConnectToRequest{Addr: "127.0.0.1:9000"}
	buf, err := Codec.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out ConnectToRequest
	if err := Codec.Unmarshal(buf, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Addr != in.Addr {
		t.Fatalf("round-trip mismatch: got %+v, want %+v", out, in)
	}
}
