// Package wire implements the on-the-wire encodings used by the data plane:
// the TransportMsgHeader that prefixes every routed datagram, the TableSync
// anti-entropy payload, and the NeighboursControl handshake/keepalive
// framing. All multi-byte integers are big-endian.
package wire

import (
	"encoding/binary"
	"errors"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

// RouteType is the byte-0 discriminant identifying which RouteRule payload
// follows the header.
type RouteType uint8

const (
	RouteDirect   RouteType = 0
	RouteToNode   RouteType = 1
	RouteToKey    RouteType = 2
	RouteToService RouteType = 3
	RouteToNodes  RouteType = 4
	RouteBroadcast RouteType = 5
)

const (
	byte0Version         = 0b1100_0000
	byte0VersionShift    = 6
	byte0Secure          = 0b0010_0000
	byte0RouteType       = 0b0001_1100
	byte0RouteTypeShift  = 2
	byte0FromNodePresent = 0b0000_0010
)

// Version is the only wire version this build emits and accepts.
const Version uint8 = 0

var (
	ErrTooShort       = errors.New("wire: buffer too short")
	ErrBadVersion     = errors.New("wire: unsupported version")
	ErrBadRouteType   = errors.New("wire: unknown route type")
	ErrTooManyNodes   = errors.New("wire: ToNodes count exceeds buffer")
)

// TransportMsgHeader is the fixed-plus-variable header prefixing every
// routed datagram (spec §6).
type TransportMsgHeader struct {
	Secure        bool
	Route         router.RouteRule
	FeatureId     uint8
	Ttl           uint8
	Flags         uint8
	FromNode      domain.NodeId
	FromNodeSet   bool
}

// serviceIdBit marks a TransportMsgHeader.FeatureId byte as addressing a
// Service rather than a Feature: the two id spaces are small (4 features,
// a handful of services) so they share one byte, distinguished by the top
// bit rather than needing a dedicated wire field.
const serviceIdBit = 0x80

// EncodeFeatureId packs a feature id into the header's FeatureId byte.
func EncodeFeatureId(id uint8) uint8 { return id &^ serviceIdBit }

// EncodeServiceId packs a service id into the header's FeatureId byte.
func EncodeServiceId(id uint8) uint8 { return id | serviceIdBit }

// DecodeFeatureOrServiceId splits a header's FeatureId byte back into its
// id and whether that id names a Service (true) or a Feature (false).
func DecodeFeatureOrServiceId(b uint8) (id uint8, isService bool) {
	return b &^ serviceIdBit, b&serviceIdBit != 0
}

// IsSecure reports the secure bit of an already-encoded header's first byte,
// without fully parsing it — used by the data plane to decide whether to
// attempt decryption before the rest of the header is even valid.
func IsSecure(b0 byte) bool {
	return b0&byte0Secure != 0
}

// DecreaseTtl decrements the ttl byte (offset 2) of an encoded message in
// place. It reports false (and leaves buf untouched) when ttl is already
// zero, signalling the caller should drop the packet.
func DecreaseTtl(buf []byte) bool {
	if len(buf) < 3 {
		return false
	}
	if buf[2] == 0 {
		return false
	}
	buf[2]--
	return true
}

// Encode appends the wire form of h to dst and returns the result.
func Encode(dst []byte, h TransportMsgHeader) ([]byte, error) {
	routeType, err := routeTypeOf(h.Route)
	if err != nil {
		return nil, err
	}

	b0 := byte(Version<<byte0VersionShift) | byte(routeType)<<byte0RouteTypeShift
	if h.Secure {
		b0 |= byte0Secure
	}
	if h.FromNodeSet {
		b0 |= byte0FromNodePresent
	}
	dst = append(dst, b0, h.FeatureId, h.Ttl, h.Flags)

	if h.FromNodeSet {
		dst = appendU32(dst, uint32(h.FromNode))
	}

	return encodeRoute(dst, routeType, h.Route)
}

// Decode parses a TransportMsgHeader from the front of buf and returns the
// header plus the number of bytes consumed.
func Decode(buf []byte) (TransportMsgHeader, int, error) {
	if len(buf) < 4 {
		return TransportMsgHeader{}, 0, ErrTooShort
	}
	b0 := buf[0]
	version := (b0 & byte0Version) >> byte0VersionShift
	if version != Version {
		return TransportMsgHeader{}, 0, ErrBadVersion
	}

	h := TransportMsgHeader{
		Secure:    b0&byte0Secure != 0,
		FeatureId: buf[1],
		Ttl:       buf[2],
		Flags:     buf[3],
	}
	routeType := RouteType((b0 & byte0RouteType) >> byte0RouteTypeShift)
	off := 4

	if b0&byte0FromNodePresent != 0 {
		if len(buf) < off+4 {
			return TransportMsgHeader{}, 0, ErrTooShort
		}
		h.FromNode = domain.NodeId(binary.BigEndian.Uint32(buf[off:]))
		h.FromNodeSet = true
		off += 4
	}

	route, n, err := decodeRoute(routeType, buf[off:])
	if err != nil {
		return TransportMsgHeader{}, 0, err
	}
	h.Route = route
	off += n

	return h, off, nil
}

func routeTypeOf(r router.RouteRule) (RouteType, error) {
	switch r.(type) {
	case router.Direct:
		return RouteDirect, nil
	case router.ToNode:
		return RouteToNode, nil
	case router.ToKey:
		return RouteToKey, nil
	case router.ToService:
		return RouteToService, nil
	case router.ToNodes:
		return RouteToNodes, nil
	case router.Broadcast:
		return RouteBroadcast, nil
	default:
		return 0, ErrBadRouteType
	}
}

func encodeRoute(dst []byte, rt RouteType, r router.RouteRule) ([]byte, error) {
	switch rt {
	case RouteDirect, RouteBroadcast:
		return dst, nil
	case RouteToNode:
		return appendU32(dst, uint32(r.(router.ToNode).Node)), nil
	case RouteToKey:
		return appendU32(dst, uint32(r.(router.ToKey).Key)), nil
	case RouteToService:
		return append(dst, r.(router.ToService).Service), nil
	case RouteToNodes:
		nodes := r.(router.ToNodes).Nodes
		if len(nodes) > 255 {
			return nil, ErrTooManyNodes
		}
		dst = append(dst, byte(len(nodes)))
		for _, n := range nodes {
			dst = appendU32(dst, uint32(n))
		}
		return dst, nil
	default:
		return nil, ErrBadRouteType
	}
}

func decodeRoute(rt RouteType, buf []byte) (router.RouteRule, int, error) {
	switch rt {
	case RouteDirect:
		return router.Direct{}, 0, nil
	case RouteBroadcast:
		return router.Broadcast{}, 0, nil
	case RouteToNode:
		if len(buf) < 4 {
			return nil, 0, ErrTooShort
		}
		return router.ToNode{Node: domain.NodeId(binary.BigEndian.Uint32(buf))}, 4, nil
	case RouteToKey:
		if len(buf) < 4 {
			return nil, 0, ErrTooShort
		}
		return router.ToKey{Key: domain.NodeId(binary.BigEndian.Uint32(buf))}, 4, nil
	case RouteToService:
		if len(buf) < 1 {
			return nil, 0, ErrTooShort
		}
		return router.ToService{Service: buf[0]}, 1, nil
	case RouteToNodes:
		if len(buf) < 1 {
			return nil, 0, ErrTooShort
		}
		count := int(buf[0])
		if len(buf) < 1+count*4 {
			return nil, 0, ErrTooShort
		}
		nodes := make([]domain.NodeId, count)
		for i := 0; i < count; i++ {
			nodes[i] = domain.NodeId(binary.BigEndian.Uint32(buf[1+i*4:]))
		}
		return router.ToNodes{Nodes: nodes}, 1 + count*4, nil
	default:
		return nil, 0, ErrBadRouteType
	}
}

func appendU32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}
