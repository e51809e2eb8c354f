package store

import (
	"testing"

	"github.com/containerman17/btc-utxo-indexer/wire"
)

func TestAugmentedOverlay(t *testing.T) {
	alice := addr20(0xA1)
	bob := addr20(0xB2)

	base := NewIndexedBackend()
	opBase := wire.Outpoint{Hash: hash32(1), Index: 0}
	a := alice
	base.Add(opBase, &a, 100)

	over := NewAugmentedBackend(base)
	if !over.Has(opBase) {
		t.Fatal("overlay does not see base output")
	}

	// spend the base output through the overlay: base untouched
	if !over.Spend(opBase) {
		t.Fatal("spend of base output failed")
	}
	if over.Has(opBase) {
		t.Error("spent base output still visible")
	}
	if !base.Has(opBase) {
		t.Error("base store was mutated")
	}

	// double spend fails
	if over.Spend(opBase) {
		t.Error("double spend succeeded")
	}

	// delta output: add then spend inside the overlay
	opNew := wire.Outpoint{Hash: hash32(2), Index: 0}
	b := bob
	over.Add(opNew, &b, 40)
	if !over.Has(opNew) {
		t.Error("delta output invisible")
	}
	if !over.Spend(opNew) {
		t.Error("spend of delta output failed")
	}
	if over.Has(opNew) {
		t.Error("spent delta output still visible")
	}

	// unknown outpoint
	if over.Spend(wire.Outpoint{Hash: hash32(9), Index: 9}) {
		t.Error("spend of unknown outpoint succeeded")
	}
}

func TestViewCombinesBaseAndAugmentation(t *testing.T) {
	alice := addr20(0xA1)
	a := alice

	base := NewIndexedBackend()
	opOld := wire.Outpoint{Hash: hash32(1), Index: 0}
	opKeep := wire.Outpoint{Hash: hash32(2), Index: 0}
	base.Add(opOld, &a, 100)
	base.Add(opKeep, &a, 25)

	over := NewAugmentedBackend(base)
	if !over.Spend(opOld) {
		t.Fatal("spend failed")
	}
	opNew := wire.Outpoint{Hash: hash32(3), Index: 1}
	over.Add(opNew, &a, 7)
	aug := over.TakeAugmentation()

	view := View{Base: base, Aug: aug}
	if got := view.Balance(alice); got != 32 {
		t.Errorf("augmented balance = %d, want 32", got)
	}
	seen := make(map[wire.Outpoint]uint64)
	view.Iterate(alice, func(op wire.Outpoint, v uint64) { seen[op] = v })
	if len(seen) != 2 {
		t.Fatalf("iterated %d outputs", len(seen))
	}
	if _, ok := seen[opOld]; ok {
		t.Error("spent output iterated")
	}
	if seen[opKeep] != 25 || seen[opNew] != 7 {
		t.Errorf("seen = %v", seen)
	}

	// without augmentation the view is the raw base
	raw := View{Base: base}
	if got := raw.Balance(alice); got != 125 {
		t.Errorf("raw balance = %d, want 125", got)
	}
}

// Augmentation composition: applying the augmentation over a copy of the
// base must equal replaying the blocks directly onto that copy.
func TestAugmentationComposition(t *testing.T) {
	alice := addr20(0xA1)
	bob := addr20(0xB2)
	var zero [32]byte

	baseBlocks := chainBlocks(zero, 0, []*wire.Transaction{coinbaseTx(1, 100, alice)})
	tail := chainBlocks(baseBlocks[0].header.Hash, 1, []*wire.Transaction{
		coinbaseTx(2, 50, bob),
		spendTx(3, wire.Outpoint{Hash: hash32(1), Index: 0},
			wire.TxOutput{Value: 100, Script: p2pkhFor(bob)}),
	})

	// path A: overlay built from the tail block, composed as a View
	s := NewIndexedStore()
	s.AddBlock(baseBlocks[0])
	over := NewAugmentedTxStore(s.Backend())
	over.AddBlock(tail[0])
	view := View{Base: s.Backend(), Aug: over.Backend().TakeAugmentation()}

	// path B: replay everything into a fresh store
	direct := NewIndexedStore()
	direct.AddBlock(baseBlocks[0])
	direct.AddBlock(tail[0])

	for _, addr := range []wire.Address{alice, bob} {
		if va, vb := view.Balance(addr), BackendBalance(direct.Backend(), addr); va != vb {
			t.Errorf("balance of %s: view %d, direct %d", addr, va, vb)
		}
	}
}
