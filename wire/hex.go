package wire

import (
	"encoding/hex"
	"fmt"
)

// ReversedHex renders a hash in the byte-reversed hex form used by RPC and
// HTTP responses.
func ReversedHex(hash [32]byte) string {
	var rev [32]byte
	for i := range hash {
		rev[31-i] = hash[i]
	}
	return hex.EncodeToString(rev[:])
}

// ParseReversedHex decodes a byte-reversed hex hash back into wire order.
func ParseReversedHex(s string) ([32]byte, error) {
	var out [32]byte
	buf, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(buf) != 32 {
		return out, fmt.Errorf("hash must be 32 bytes, got %d", len(buf))
	}
	for i, b := range buf {
		out[31-i] = b
	}
	return out, nil
}
