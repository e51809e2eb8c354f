package store

import "github.com/containerman17/btc-utxo-indexer/wire"

// IntermediaryBackend is the staging buffer a single worker fills from a
// contiguous batch of blocks. It is non-strict: spending an outpoint the
// batch never saw created is normal (it lives in an earlier batch) and is
// recorded for replay at merge time.
type IntermediaryBackend struct {
	spent   []wire.Outpoint
	unspent *U64Map[wire.Outpoint, outputRecord]
}

func NewIntermediaryBackend() *IntermediaryBackend {
	return &IntermediaryBackend{
		unspent: NewOutpointMap[outputRecord](),
	}
}

func (b *IntermediaryBackend) Has(op wire.Outpoint) bool {
	return b.unspent.Has(op)
}

func (b *IntermediaryBackend) Spend(op wire.Outpoint) bool {
	if _, ok := b.unspent.Delete(op); ok {
		return true
	}
	b.spent = append(b.spent, op)
	return false
}

func (b *IntermediaryBackend) Add(op wire.Outpoint, addr *wire.Address, value uint64) {
	b.unspent.Set(op, outputRecord{value: value, addr: addr})
}
