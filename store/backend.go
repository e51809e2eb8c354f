// Package store holds the UTXO index: the canonical two-way backend, the
// merge-friendly intermediary used by parallel builders, the augmented
// overlay used for unconfirmed views, and the glue that folds blocks into
// them.
package store

import "github.com/containerman17/btc-utxo-indexer/wire"

// Block is anything the store can fold in: a fully parsed block or a scanned
// file block that decodes lazily.
type Block interface {
	Header() wire.BlockHeader
	Height() int
	EachTransaction(cb func(*wire.Transaction))
}

// Backend is the mutable capability shared by the three index variants.
// Spend reports whether the outpoint was known; strictness is enforced one
// layer up.
type Backend interface {
	Has(op wire.Outpoint) bool
	Spend(op wire.Outpoint) bool
	Add(op wire.Outpoint, addr *wire.Address, value uint64)
}

// ReadBackend is the read-only capability of backends that can enumerate an
// address's unspent outputs.
type ReadBackend interface {
	Iterate(addr wire.Address, cb func(wire.Outpoint, uint64))
}

// BackendBalance sums an address's unspent values over one iteration.
func BackendBalance(b ReadBackend, addr wire.Address) uint64 {
	var sum uint64
	b.Iterate(addr, func(_ wire.Outpoint, value uint64) {
		sum += value
	})
	return sum
}

// outputRecord is the value stored per unspent outpoint. Addr is nil for
// outputs whose script matches no known template.
type outputRecord struct {
	value uint64
	addr  *wire.Address
}
