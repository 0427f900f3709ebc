package wire

import (
	"encoding/binary"

	"github.com/8xFF/decentralized-sdn/internal/domain"
)

// NeighboursControl is the handshake/keepalive framing, distinct from (and
// parsed before) TransportMsgHeader on every incoming datagram. It is kept
// deliberately tiny and fixed-shape so a single byte tells
// TryDecodeNeighboursControl whether it's looking at one of these or at a
// routed TransportMsgHeader.
//
// Wire form: magic byte 0xFE, then u8 kind, u32 from_node, u64 session.
type NeighboursControlKind uint8

const (
	NeighboursMagic byte = 0xFE

	KindConnectRequest  NeighboursControlKind = 0
	KindConnectResponse NeighboursControlKind = 1
	KindPing            NeighboursControlKind = 2
	KindPong            NeighboursControlKind = 3
	KindDisconnect      NeighboursControlKind = 4
)

// NeighboursControl is a handshake or keepalive control message exchanged
// directly between two nodes' NeighboursManagers.
type NeighboursControl struct {
	Kind     NeighboursControlKind
	FromNode domain.NodeId
	Session  uint64
}

// TryDecodeNeighboursControl attempts to parse buf as a NeighboursControl.
// It is tried first on every incoming datagram; a false ok means the caller
// should fall back to parsing a TransportMsgHeader instead.
func TryDecodeNeighboursControl(buf []byte) (NeighboursControl, bool) {
	if len(buf) < 1+1+4+8 || buf[0] != NeighboursMagic {
		return NeighboursControl{}, false
	}
	kind := NeighboursControlKind(buf[1])
	if kind > KindDisconnect {
		return NeighboursControl{}, false
	}
	return NeighboursControl{
		Kind:     kind,
		FromNode: domain.NodeId(binary.BigEndian.Uint32(buf[2:6])),
		Session:  binary.BigEndian.Uint64(buf[6:14]),
	}, true
}

// EncodeNeighboursControl appends the wire form of c to dst.
func EncodeNeighboursControl(dst []byte, c NeighboursControl) []byte {
	dst = append(dst, NeighboursMagic, byte(c.Kind))
	dst = appendU32(dst, uint32(c.FromNode))
	var s [8]byte
	binary.BigEndian.PutUint64(s[:], c.Session)
	return append(dst, s[:]...)
}
