package store

import "github.com/containerman17/btc-utxo-indexer/wire"

// Augmentation is the published, immutable result of replaying some suffix
// of low-confirmation activity over a base store: the outpoints it spent in
// the base plus the delta of outputs it created.
type Augmentation struct {
	spent *U64Map[wire.Outpoint, struct{}]
	delta *IndexedBackend
}

func newAugmentation() *Augmentation {
	return &Augmentation{
		spent: NewOutpointMap[struct{}](),
		delta: NewIndexedBackend(),
	}
}

// AugmentedBackend overlays a base backend that must not be mutated. Adds go
// to the delta; spends hit the delta first and otherwise mark the outpoint
// spent in the base. Strictness is enforced by the TxStore above it.
type AugmentedBackend struct {
	base Backend
	aug  *Augmentation
}

func NewAugmentedBackend(base Backend) *AugmentedBackend {
	return &AugmentedBackend{base: base, aug: newAugmentation()}
}

func (b *AugmentedBackend) Has(op wire.Outpoint) bool {
	if b.aug.delta.Has(op) {
		return true
	}
	return !b.aug.spent.Has(op) && b.base.Has(op)
}

func (b *AugmentedBackend) Spend(op wire.Outpoint) bool {
	if b.aug.delta.Spend(op) {
		return true
	}
	if b.base.Has(op) && !b.aug.spent.Has(op) {
		b.aug.spent.Set(op, struct{}{})
		return true
	}
	return false
}

func (b *AugmentedBackend) Add(op wire.Outpoint, addr *wire.Address, value uint64) {
	b.aug.delta.Add(op, addr, value)
}

// TakeAugmentation detaches the accumulated overlay as an immutable
// snapshot. The backend must not be used afterwards.
func (b *AugmentedBackend) TakeAugmentation() *Augmentation {
	aug := b.aug
	b.aug = nil
	return aug
}

// View is a read-only combination of a canonical backend and at most one
// augmentation.
type View struct {
	Base *IndexedBackend
	Aug  *Augmentation
}

func (v View) Iterate(addr wire.Address, cb func(wire.Outpoint, uint64)) {
	if v.Aug == nil {
		v.Base.Iterate(addr, cb)
		return
	}
	v.Base.Iterate(addr, func(op wire.Outpoint, value uint64) {
		if !v.Aug.spent.Has(op) {
			cb(op, value)
		}
	})
	v.Aug.delta.Iterate(addr, cb)
}

func (v View) Balance(addr wire.Address) uint64 {
	return BackendBalance(v, addr)
}
