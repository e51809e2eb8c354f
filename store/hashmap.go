package store

import (
	"encoding/binary"

	"github.com/containerman17/btc-utxo-indexer/wire"
)

// The outpoint and address maps sit on the hottest path of block application.
// Their keys are content-addressed hashes that already carry more than 128
// bits of uniform entropy, so running them through a general hasher is pure
// cost. U64Map folds 8 raw bytes of the key into the bucket hash and keeps
// full keys in chained buckets, so worst-case collisions degrade to a linear
// scan, never to wrong answers.

func foldOutpoint(op wire.Outpoint) uint64 {
	return binary.LittleEndian.Uint64(op.Hash[4:12]) ^ uint64(op.Index)
}

func foldAddress(a wire.Address) uint64 {
	return binary.LittleEndian.Uint64(a.Hash[4:12]) ^ uint64(a.Version)
}

type mapEntry[K comparable, V any] struct {
	key   K
	value V
}

// U64Map is a hash map whose bucket index is a caller-supplied 64-bit fold of
// the key.
type U64Map[K comparable, V any] struct {
	fold    func(K) uint64
	buckets map[uint64][]mapEntry[K, V]
	size    int
}

func newU64Map[K comparable, V any](fold func(K) uint64, capacity int) *U64Map[K, V] {
	return &U64Map[K, V]{
		fold:    fold,
		buckets: make(map[uint64][]mapEntry[K, V], capacity),
	}
}

// NewOutpointMap creates a map keyed by outpoint.
func NewOutpointMap[V any]() *U64Map[wire.Outpoint, V] {
	return newU64Map[wire.Outpoint, V](foldOutpoint, 0)
}

// NewOutpointMapSized preallocates bucket space for an expected entry count.
func NewOutpointMapSized[V any](capacity int) *U64Map[wire.Outpoint, V] {
	return newU64Map[wire.Outpoint, V](foldOutpoint, capacity)
}

// NewAddressMap creates a map keyed by address.
func NewAddressMap[V any]() *U64Map[wire.Address, V] {
	return newU64Map[wire.Address, V](foldAddress, 0)
}

// NewAddressMapSized preallocates bucket space for an expected entry count.
func NewAddressMapSized[V any](capacity int) *U64Map[wire.Address, V] {
	return newU64Map[wire.Address, V](foldAddress, capacity)
}

func (m *U64Map[K, V]) Get(key K) (V, bool) {
	for _, e := range m.buckets[m.fold(key)] {
		if e.key == key {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (m *U64Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *U64Map[K, V]) Set(key K, value V) {
	h := m.fold(key)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key == key {
			bucket[i].value = value
			return
		}
	}
	m.buckets[h] = append(bucket, mapEntry[K, V]{key: key, value: value})
	m.size++
}

// Delete removes key and reports the removed value.
func (m *U64Map[K, V]) Delete(key K) (V, bool) {
	h := m.fold(key)
	bucket := m.buckets[h]
	for i, e := range bucket {
		if e.key == key {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			bucket = bucket[:last]
			if len(bucket) == 0 {
				delete(m.buckets, h)
			} else {
				m.buckets[h] = bucket
			}
			m.size--
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

func (m *U64Map[K, V]) Len() int {
	return m.size
}

// Range visits every entry; iteration order is unspecified.
func (m *U64Map[K, V]) Range(cb func(K, V)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			cb(e.key, e.value)
		}
	}
}
