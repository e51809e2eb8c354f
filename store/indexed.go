package store

import "github.com/containerman17/btc-utxo-indexer/wire"

// IndexedBackend owns the full two-way index:
//
//	outpoint → (value, address?)
//	address  → (outpoint → value), only for address-bearing outputs
//
// The two maps agree for every address-bearing output; an address whose last
// outpoint is spent is removed entirely.
type IndexedBackend struct {
	outputs   *U64Map[wire.Outpoint, outputRecord]
	byAddress *U64Map[wire.Address, *U64Map[wire.Outpoint, uint64]]
}

func NewIndexedBackend() *IndexedBackend {
	return &IndexedBackend{
		outputs:   NewOutpointMap[outputRecord](),
		byAddress: NewAddressMap[*U64Map[wire.Outpoint, uint64]](),
	}
}

// NewIndexedBackendSized preallocates for a full-chain build.
func NewIndexedBackendSized(outputs, addresses int) *IndexedBackend {
	return &IndexedBackend{
		outputs:   NewOutpointMapSized[outputRecord](outputs),
		byAddress: NewAddressMapSized[*U64Map[wire.Outpoint, uint64]](addresses),
	}
}

func (b *IndexedBackend) Has(op wire.Outpoint) bool {
	return b.outputs.Has(op)
}

func (b *IndexedBackend) Spend(op wire.Outpoint) bool {
	rec, ok := b.outputs.Delete(op)
	if !ok {
		return false
	}
	if rec.addr != nil {
		unspent, ok := b.byAddress.Get(*rec.addr)
		if ok {
			unspent.Delete(op)
			if unspent.Len() == 0 {
				b.byAddress.Delete(*rec.addr)
			}
		}
	}
	return true
}

func (b *IndexedBackend) Add(op wire.Outpoint, addr *wire.Address, value uint64) {
	b.outputs.Set(op, outputRecord{value: value, addr: addr})
	if addr != nil {
		unspent, ok := b.byAddress.Get(*addr)
		if !ok {
			unspent = NewOutpointMap[uint64]()
			b.byAddress.Set(*addr, unspent)
		}
		unspent.Set(op, value)
	}
}

func (b *IndexedBackend) Iterate(addr wire.Address, cb func(wire.Outpoint, uint64)) {
	if unspent, ok := b.byAddress.Get(addr); ok {
		unspent.Range(cb)
	}
}

// UTXOCount returns the number of unspent outputs in the index.
func (b *IndexedBackend) UTXOCount() int {
	return b.outputs.Len()
}

// AddressCount returns the number of addresses with at least one unspent
// output.
func (b *IndexedBackend) AddressCount() int {
	return b.byAddress.Len()
}

func (b *IndexedBackend) rangeOutputs(cb func(wire.Outpoint, outputRecord)) {
	b.outputs.Range(cb)
}
