package wire

import (
	"encoding/binary"

	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

// EncodeMetric appends the wire form of m to dst: u16 latency, u32
// bandwidth, u8 hop_count, [u32; hop_count] hops.
func EncodeMetric(dst []byte, m domain.Metric) ([]byte, error) {
	if len(m.Hops) > 255 {
		return nil, ErrTooManyNodes
	}
	var b [6]byte
	binary.BigEndian.PutUint16(b[0:2], m.LatencyMs)
	binary.BigEndian.PutUint32(b[2:6], m.Bandwidth)
	dst = append(dst, b[:]...)
	dst = append(dst, byte(len(m.Hops)))
	for _, h := range m.Hops {
		dst = appendU32(dst, uint32(h))
	}
	return dst, nil
}

// DecodeMetric parses a Metric from the front of buf, returning it plus the
// number of bytes consumed.
func DecodeMetric(buf []byte) (domain.Metric, int, error) {
	if len(buf) < 7 {
		return domain.Metric{}, 0, ErrTooShort
	}
	m := domain.Metric{
		LatencyMs: binary.BigEndian.Uint16(buf[0:2]),
		Bandwidth: binary.BigEndian.Uint32(buf[2:6]),
	}
	count := int(buf[6])
	off := 7
	if len(buf) < off+count*4 {
		return domain.Metric{}, 0, ErrTooShort
	}
	hops := make([]domain.NodeId, count)
	for i := 0; i < count; i++ {
		hops[i] = domain.NodeId(binary.BigEndian.Uint32(buf[off+i*4:]))
	}
	m.Hops = hops
	return m, off + count*4, nil
}

// EncodeTableSync appends the wire form of a TableSync to dst: a u16 entry
// count followed by (u8 slot, Metric) pairs.
func EncodeTableSync(dst []byte, sync router.TableSync) ([]byte, error) {
	if len(sync) > 0xFFFF {
		return nil, ErrTooManyNodes
	}
	var cnt [2]byte
	binary.BigEndian.PutUint16(cnt[:], uint16(len(sync)))
	dst = append(dst, cnt[:]...)
	var err error
	for _, e := range sync {
		dst = append(dst, e.Slot)
		dst, err = EncodeMetric(dst, e.Metric)
		if err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// DecodeTableSync parses a TableSync from the front of buf, returning it
// plus the number of bytes consumed.
func DecodeTableSync(buf []byte) (router.TableSync, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrTooShort
	}
	count := int(binary.BigEndian.Uint16(buf[0:2]))
	off := 2
	sync := make(router.TableSync, 0, count)
	for i := 0; i < count; i++ {
		if len(buf) < off+1 {
			return nil, 0, ErrTooShort
		}
		slot := buf[off]
		off++
		m, n, err := DecodeMetric(buf[off:])
		if err != nil {
			return nil, 0, err
		}
		off += n
		sync = append(sync, router.TableSyncEntry{Slot: slot, Metric: m})
	}
	return sync, off, nil
}
