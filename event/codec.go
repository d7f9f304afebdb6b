package event

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bsv-blockchain/go-sdk/chainhash"
)

const fixedPartSize = 1 + 8 + 20 + 8 + 8 + 8 + 4 + 8 + 4 + 8 // kind..time

// Encode serializes e (without its ID) into a canonical big-endian layout:
//
//	kind(1) seq(8) actor(20) amount(8) fee(8) shares(8) tier(4) ref(8)
//	count(4) time_unix_nano(8) pool_id(2+n) prev_status(2+n) status(2+n)
func Encode(e *Event) ([]byte, error) {
	strs := []string{e.PoolID, e.PrevStatus, e.Status}
	size := fixedPartSize
	for _, s := range strs {
		if len(s) > math.MaxUint16 {
			return nil, fmt.Errorf("event: field too long (%d bytes)", len(s))
		}
		size += 2 + len(s)
	}

	buf := make([]byte, size)
	offset := 0

	buf[offset] = byte(e.Kind)
	offset++
	binary.BigEndian.PutUint64(buf[offset:offset+8], e.Seq)
	offset += 8
	copy(buf[offset:offset+20], e.Actor[:])
	offset += 20
	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(e.Amount))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(e.Fee))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(e.Shares))
	offset += 8
	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(e.Tier))
	offset += 4
	binary.BigEndian.PutUint64(buf[offset:offset+8], e.Ref)
	offset += 8
	binary.BigEndian.PutUint32(buf[offset:offset+4], e.Count)
	offset += 4
	binary.BigEndian.PutUint64(buf[offset:offset+8], uint64(e.Time.UnixNano()))
	offset += 8

	for _, s := range strs {
		binary.BigEndian.PutUint16(buf[offset:offset+2], uint16(len(s)))
		offset += 2
		copy(buf[offset:], s)
		offset += len(s)
	}
	return buf, nil
}

// ReceiptID returns the double-SHA256 of the canonical encoding of e,
// in the usual byte-reversed hex form.
func ReceiptID(e *Event) (string, error) {
	data, err := Encode(e)
	if err != nil {
		return "", err
	}
	return chainhash.DoubleHashH(data).String(), nil
}
