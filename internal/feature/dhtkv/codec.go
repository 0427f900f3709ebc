package dhtkv

import (
	"encoding/binary"
	"errors"
)

type msgKind uint8

const (
	kindGetReq  msgKind = 0
	kindGetRes  msgKind = 1
	kindSyncReq msgKind = 2
	kindSyncRes msgKind = 3
)

var errTooShort = errors.New("dhtkv: buffer too short")

type getReq struct {
	ReqId uint64
	Key   string
}

type getRes struct {
	ReqId   uint64
	Found   bool
	Value   []byte
	Version uint64
}

type syncEntry struct {
	Key   string
	Entry Entry
}

func encodeGetReq(r getReq) []byte {
	buf := make([]byte, 0, 9+len(r.Key))
	buf = appendU64(buf, r.ReqId)
	buf = appendString(buf, r.Key)
	return append([]byte{byte(kindGetReq)}, buf...)
}

func decodeGetReq(buf []byte) (getReq, error) {
	if len(buf) < 8 {
		return getReq{}, errTooShort
	}
	reqId := binary.BigEndian.Uint64(buf)
	key, _, err := readString(buf[8:])
	if err != nil {
		return getReq{}, err
	}
	return getReq{ReqId: reqId, Key: key}, nil
}

func encodeGetRes(r getRes) []byte {
	var buf []byte
	buf = appendU64(buf, r.ReqId)
	if r.Found {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = appendU64(buf, r.Version)
	buf = appendBytes(buf, r.Value)
	return append([]byte{byte(kindGetRes)}, buf...)
}

func decodeGetRes(buf []byte) (getRes, error) {
	if len(buf) < 17 {
		return getRes{}, errTooShort
	}
	reqId := binary.BigEndian.Uint64(buf)
	found := buf[8] == 1
	version := binary.BigEndian.Uint64(buf[9:17])
	value, _, err := readBytes(buf[17:])
	if err != nil {
		return getRes{}, err
	}
	return getRes{ReqId: reqId, Found: found, Value: value, Version: version}, nil
}

func encodeSyncReq() []byte { return []byte{byte(kindSyncReq)} }

func encodeSyncRes(entries []syncEntry) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(len(entries)))
	for _, e := range entries {
		buf = appendString(buf, e.Key)
		buf = appendU64(buf, e.Entry.Version)
		buf = appendBytes(buf, e.Entry.Value)
	}
	return append([]byte{byte(kindSyncRes)}, buf...)
}

func decodeSyncRes(buf []byte) ([]syncEntry, error) {
	if len(buf) < 2 {
		return nil, errTooShort
	}
	count := int(binary.BigEndian.Uint16(buf))
	off := 2
	out := make([]syncEntry, 0, count)
	for i := 0; i < count; i++ {
		key, n, err := readString(buf[off:])
		if err != nil {
			return nil, err
		}
		off += n
		if len(buf) < off+8 {
			return nil, errTooShort
		}
		version := binary.BigEndian.Uint64(buf[off:])
		off += 8
		val, n, err := readBytes(buf[off:])
		if err != nil {
			return nil, err
		}
		off += n
		out = append(out, syncEntry{Key: key, Entry: Entry{Value: val, Version: version}})
	}
	return out, nil
}

func appendU64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

func appendString(dst []byte, s string) []byte { return appendBytes(dst, []byte(s)) }

func appendBytes(dst []byte, b []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	dst = append(dst, l[:]...)
	return append(dst, b...)
}

func readString(buf []byte) (string, int, error) {
	b, n, err := readBytes(buf)
	return string(b), n, err
}

func readBytes(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, errTooShort
	}
	l := int(binary.BigEndian.Uint32(buf))
	if len(buf) < 4+l {
		return nil, 0, errTooShort
	}
	return buf[4 : 4+l], 4 + l, nil
}
