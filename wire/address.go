package wire

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// Address version bytes for the two recognized script templates.
const (
	VersionP2PKH = 0
	VersionP2SH  = 5
)

// Address is a tagged 20-byte hash. Version is the base58-check version byte
// (0 for P2PKH, 5 for P2SH), so the struct doubles as the 21-byte serialized
// form [version | hash].
type Address struct {
	Version byte
	Hash    [20]byte
}

// AddressFromScript recognizes the two standard output templates:
//
//	P2PKH (25 bytes): 76 A9 14 <20> 88 AC
//	P2SH  (23 bytes): A9 14 <20> 87
//
// Any other script yields no address.
func AddressFromScript(script []byte) (Address, bool) {
	if len(script) == 25 && script[0] == 0x76 && script[1] == 0xA9 && script[2] == 0x14 &&
		script[23] == 0x88 && script[24] == 0xAC {
		var a Address
		a.Version = VersionP2PKH
		copy(a.Hash[:], script[3:23])
		return a, true
	}
	if len(script) == 23 && script[0] == 0xA9 && script[1] == 0x14 && script[22] == 0x87 {
		var a Address
		a.Version = VersionP2SH
		copy(a.Hash[:], script[2:22])
		return a, true
	}
	return Address{}, false
}

// AddressFromBytes decodes the 21-byte serialized form.
func AddressFromBytes(buf []byte) (Address, error) {
	if len(buf) != 21 {
		return Address{}, fmt.Errorf("address must be 21 bytes, got %d", len(buf))
	}
	if buf[0] != VersionP2PKH && buf[0] != VersionP2SH {
		return Address{}, fmt.Errorf("unknown address version %d", buf[0])
	}
	var a Address
	a.Version = buf[0]
	copy(a.Hash[:], buf[1:])
	return a, nil
}

// ParseAddress decodes a base58-check address string.
func ParseAddress(s string) (Address, error) {
	payload, version, err := base58.CheckDecode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	buf := make([]byte, 0, 21)
	buf = append(buf, version)
	buf = append(buf, payload...)
	return AddressFromBytes(buf)
}

// Bytes returns the 21-byte serialized form.
func (a Address) Bytes() []byte {
	buf := make([]byte, 21)
	buf[0] = a.Version
	copy(buf[1:], a.Hash[:])
	return buf
}

// String returns the base58-check form.
func (a Address) String() string {
	return base58.CheckEncode(a.Hash[:], a.Version)
}
