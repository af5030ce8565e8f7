package btc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"
)

// headerSize is the fixed wire size of a Bitcoin block header.
const headerSize = 80

// Header is the decoded form of an 80-byte Bitcoin block header, as
// returned by blockchain.headers.subscribe's "hex" field.
type Header struct {
	Version    int32
	PrevBlock  [32]byte // wire order (little-endian byte order, as transmitted)
	MerkleRoot [32]byte // wire order
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
}

// ParseHeader decodes an 80-byte wire-format Bitcoin block header.
// Layout: 4-byte LE version, 32-byte prev_block, 32-byte merkle_root,
// 4-byte LE timestamp, 4-byte LE bits, 4-byte LE nonce (spec.md §4.1).
func ParseHeader(raw []byte) (Header, error) {
	if len(raw) != headerSize {
		return Header{}, fmt.Errorf("btc: header must be %d bytes, got %d", headerSize, len(raw))
	}

	var h Header
	h.Version = int32(binary.LittleEndian.Uint32(raw[0:4]))
	copy(h.PrevBlock[:], raw[4:36])
	copy(h.MerkleRoot[:], raw[36:68])
	h.Timestamp = binary.LittleEndian.Uint32(raw[68:72])
	h.Bits = binary.LittleEndian.Uint32(raw[72:76])
	h.Nonce = binary.LittleEndian.Uint32(raw[76:80])
	return h, nil
}

// ParseHeaderHex decodes a hex-encoded 80-byte header, as carried in
// the RPC response's "hex" field.
func ParseHeaderHex(hexStr string) (Header, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return Header{}, fmt.Errorf("btc: invalid header hex: %w", err)
	}
	return ParseHeader(raw)
}

// Serialize re-encodes Header to its 80-byte wire form. Serialize is
// the exact inverse of ParseHeader: parse(serialize(h)) == h for every
// valid header (spec.md §8 round-trip law).
func (h Header) Serialize() [headerSize]byte {
	var out [headerSize]byte
	binary.LittleEndian.PutUint32(out[0:4], uint32(h.Version))
	copy(out[4:36], h.PrevBlock[:])
	copy(out[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(out[68:72], h.Timestamp)
	binary.LittleEndian.PutUint32(out[72:76], h.Bits)
	binary.LittleEndian.PutUint32(out[76:80], h.Nonce)
	return out
}

// reverseBytes returns a reversed copy of b, used to turn a field's
// wire (little-endian) byte order into the network's conventional
// big-endian display order.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// PrevBlockDisplay returns prev_block's byte-reversed hex string, the
// display form used in API responses (spec.md §4.1/§8).
func (h Header) PrevBlockDisplay() string {
	return hex.EncodeToString(reverseBytes(h.PrevBlock[:]))
}

// MerkleRootDisplay returns merkle_root's byte-reversed hex string.
func (h Header) MerkleRootDisplay() string {
	return hex.EncodeToString(reverseBytes(h.MerkleRoot[:]))
}

// TimestampHuman renders Timestamp as RFC2822 with a literal "GMT"
// zone marker in place of the "+0000" offset RFC2822 would otherwise
// produce, matching spec.md §4.1's "timestamp_human" field.
func (h Header) TimestampHuman() string {
	t := time.Unix(int64(h.Timestamp), 0).UTC()
	const rfc2822 = "Mon, 02 Jan 2006 15:04:05 -0700"
	s := t.Format(rfc2822)
	const offsetSuffix = "+0000"
	if len(s) >= len(offsetSuffix) && s[len(s)-len(offsetSuffix):] == offsetSuffix {
		s = s[:len(s)-len(offsetSuffix)] + "GMT"
	}
	return s
}
