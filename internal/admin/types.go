package admin

// Wire DTOs for the admin gRPC surface (§4.10/§6). There is no protoc in
// this build, so these are hand-written request/response/event structs
// JSON-marshalled by Codec, not generated from a .proto; the method and
// message shapes still mirror grpc's usual generated-code conventions.

type ConnectToRequest struct {
	Addr string `json:"addr"`
}
type ConnectToResponse struct{}

type DisconnectFromRequest struct {
	Node uint32 `json:"node"`
}
type DisconnectFromResponse struct{}

// FeaturesControlRequest carries one Feature's Control payload. Exactly one
// of the typed fields should be set, matching the Feature named by
// Feature.
type FeaturesControlRequest struct {
	Feature    uint8              `json:"feature"`
	DhtKvSet   *DhtKvSetPayload   `json:"dht_kv_set,omitempty"`
	DhtKvGet   *DhtKvGetPayload   `json:"dht_kv_get,omitempty"`
	DataSend   *DataSendPayload   `json:"data_send,omitempty"`
	VpnSetPeer *VpnSetPeerPayload `json:"vpn_set_peer,omitempty"`
}
type FeaturesControlResponse struct{}

type DhtKvSetPayload struct {
	Key     string `json:"key"`
	Value   []byte `json:"value"`
	Version uint64 `json:"version"`
}
type DhtKvGetPayload struct {
	Key string `json:"key"`
}
type DataSendPayload struct {
	Dest uint32 `json:"dest"`
	Body []byte        `json:"body"`
}
type VpnSetPeerPayload struct {
	Peer uint32 `json:"peer"`
}

// ServicesControlRequest carries one Service's Control payload.
type ServicesControlRequest struct {
	Service           uint8                      `json:"service"`
	PubSubSubscribe   *PubSubSubscribePayload   `json:"pub_sub_subscribe,omitempty"`
	PubSubUnsubscribe *PubSubUnsubscribePayload `json:"pub_sub_unsubscribe,omitempty"`
	PubSubPublish     *PubSubPublishPayload     `json:"pub_sub_publish,omitempty"`
}
type ServicesControlResponse struct{}

type PubSubSubscribePayload struct {
	Channel uint32 `json:"channel"`
}
type PubSubUnsubscribePayload struct {
	Channel uint32 `json:"channel"`
}
type PubSubPublishPayload struct {
	Channel uint32 `json:"channel"`
	Body    []byte `json:"body"`
}

type EventsRequest struct{}

// Event is one item of the Events server-stream: either a FeaturesEvent or
// a ServicesEvent off the ControllerPlane, tagged by Kind.
type Event struct {
	Kind    string        `json:"kind"` // "feature" | "service"
	Feature uint8         `json:"feature,omitempty"`
	Service uint8         `json:"service,omitempty"`
	Actor   uint32 `json:"actor,omitempty"`

	DhtKvGetResult *DhtKvGetResultEvent `json:"dht_kv_get_result,omitempty"`
	DataReceived   *DataReceivedEvent   `json:"data_received,omitempty"`
	VpnTunPkt      *VpnTunPktEvent      `json:"vpn_tun_pkt,omitempty"`
	PubSubReceived *PubSubReceivedEvent `json:"pub_sub_received,omitempty"`
}

type DhtKvGetResultEvent struct {
	Key     string `json:"key"`
	Value   []byte `json:"value"`
	Version uint64 `json:"version"`
	Found   bool   `json:"found"`
	Err     string `json:"err,omitempty"`
}
type DataReceivedEvent struct {
	From uint32 `json:"from"`
	Body []byte        `json:"body"`
}
type VpnTunPktEvent struct {
	Body []byte `json:"body"`
}
type PubSubReceivedEvent struct {
	Channel uint32        `json:"channel"`
	From    uint32 `json:"from"`
	Body    []byte        `json:"body"`
}
