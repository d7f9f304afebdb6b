package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/patronhq/poolengine/fixedpoint"
)

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// seqKey encodes an event sequence number as a sortable 8-byte key.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func encodeAmount(a fixedpoint.Amount) []byte {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(a))
	return v
}

func decodeAmount(v []byte) (fixedpoint.Amount, bool) {
	if len(v) != 8 {
		return 0, false
	}
	return fixedpoint.Amount(binary.BigEndian.Uint64(v)), true
}
