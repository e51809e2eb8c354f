package wire

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Hasher accumulates bytes and produces a double-SHA-256 digest.
type Hasher struct {
	inner hash.Hash
}

// NewHasher creates an empty double-SHA-256 hasher.
func NewHasher() *Hasher {
	return &Hasher{inner: sha256.New()}
}

// Write feeds bytes into the hasher.
func (h *Hasher) Write(p []byte) {
	h.inner.Write(p)
}

// Sum returns sha256(sha256(written bytes)).
func (h *Hasher) Sum() [32]byte {
	first := h.inner.Sum(nil)
	return sha256.Sum256(first)
}

// DoubleSHA256 hashes a complete buffer in one shot.
func DoubleSHA256(buf []byte) [32]byte {
	first := sha256.Sum256(buf)
	return sha256.Sum256(first[:])
}

// Reader is a cursor over a borrowed byte slice. Every read optionally tees
// the consumed bytes into a Hasher (pass nil to skip), so a txid can be
// computed in the same pass as decoding.
//
// Inputs come from self-describing containers that are already length
// checked; a short slice is a programmer error and panics.
type Reader struct {
	buf []byte
	off int
}

// NewReader creates a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Bytes consumes n raw bytes. The returned slice aliases the input buffer.
func (r *Reader) Bytes(n int, h *Hasher) []byte {
	b := r.buf[r.off : r.off+n]
	r.off += n
	if h != nil {
		h.Write(b)
	}
	return b
}

func (r *Reader) U8(h *Hasher) uint8 {
	return r.Bytes(1, h)[0]
}

func (r *Reader) U16(h *Hasher) uint16 {
	return binary.LittleEndian.Uint16(r.Bytes(2, h))
}

func (r *Reader) U32(h *Hasher) uint32 {
	return binary.LittleEndian.Uint32(r.Bytes(4, h))
}

func (r *Reader) U64(h *Hasher) uint64 {
	return binary.LittleEndian.Uint64(r.Bytes(8, h))
}

func (r *Reader) I32(h *Hasher) int32 {
	return int32(r.U32(h))
}

func (r *Reader) Bool(h *Hasher) bool {
	return r.U8(h) != 0
}

// VarInt reads a Bitcoin variable-length integer (1/3/5/9 bytes with
// 0xFD/0xFE/0xFF prefixes).
func (r *Reader) VarInt(h *Hasher) uint64 {
	switch b := r.U8(h); b {
	case 0xFD:
		return uint64(r.U16(h))
	case 0xFE:
		return uint64(r.U32(h))
	case 0xFF:
		return r.U64(h)
	default:
		return uint64(b)
	}
}

// VarBytes reads a varint length prefix followed by that many bytes.
// The result is copied, so it stays valid after the input buffer is reused.
func (r *Reader) VarBytes(h *Hasher) []byte {
	n := r.VarInt(h)
	b := make([]byte, n)
	copy(b, r.Bytes(int(n), h))
	return b
}

// Hash reads a fixed 32-byte hash.
func (r *Reader) Hash(h *Hasher) [32]byte {
	var out [32]byte
	copy(out[:], r.Bytes(32, h))
	return out
}

// PeekU8 returns the next byte without consuming it.
func (r *Reader) PeekU8() uint8 {
	return r.buf[r.off]
}

// Skip consumes n bytes, still teeing them into h when set.
func (r *Reader) Skip(n int, h *Hasher) {
	r.Bytes(n, h)
}
