package store

import (
	"fmt"

	"github.com/containerman17/btc-utxo-indexer/wire"
)

// TxStore applies transactions to a backend and enforces the OP_RETURN and
// coinbase edge cases. In strict mode every spend must hit a known outpoint;
// a miss means the inputs are corrupt and the process panics.
type TxStore[B Backend] struct {
	strict  bool
	backend B
}

func (s *TxStore[B]) Backend() B {
	return s.backend
}

func (s *TxStore[B]) spendInputs(inputs []wire.Outpoint) {
	for _, op := range inputs {
		if op == wire.CoinbaseInput {
			continue
		}
		if !s.backend.Spend(op) && s.strict {
			panic(fmt.Sprintf("spend of unknown outpoint %x:%d", op.Hash, op.Index))
		}
	}
}

// CanAdd reports whether every input of tx is present in the backend.
func (s *TxStore[B]) CanAdd(tx *wire.Transaction) bool {
	for _, op := range tx.Inputs {
		if !s.backend.Has(op) {
			return false
		}
	}
	return true
}

// AddTransaction spends the inputs and indexes the outputs. Outputs whose
// script starts with OP_RETURN are provably unspendable and skipped.
func (s *TxStore[B]) AddTransaction(tx *wire.Transaction) {
	s.spendInputs(tx.Inputs)
	for i, out := range tx.Outputs {
		if len(out.Script) > 0 && out.Script[0] == 0x6A {
			continue
		}
		var addr *wire.Address
		if a, ok := wire.AddressFromScript(out.Script); ok {
			addr = &a
		}
		s.backend.Add(wire.Outpoint{Hash: tx.Hash, Index: uint32(i)}, addr, out.Value)
	}
}

// AddBlock applies a block's transactions in declared order, so an output
// created earlier in the block can be spent later in it.
func (s *TxStore[B]) AddBlock(b Block) {
	b.EachTransaction(func(tx *wire.Transaction) {
		s.AddTransaction(tx)
	})
}

// Store couples a TxStore with the header chain it has absorbed.
type Store[B Backend] struct {
	TxStore[B]
	headers []wire.BlockHeader
}

// Height is the number of blocks applied, which is also the height the next
// block must have.
func (s *Store[B]) Height() int {
	return len(s.headers)
}

func (s *Store[B]) Headers() []wire.BlockHeader {
	return s.headers
}

// LastBlockHash returns the tip hash, or false for an empty store.
func (s *Store[B]) LastBlockHash() ([32]byte, bool) {
	if len(s.headers) == 0 {
		return [32]byte{}, false
	}
	return s.headers[len(s.headers)-1].Hash, true
}

func (s *Store[B]) addHeader(header wire.BlockHeader) {
	if last, ok := s.LastBlockHash(); ok && last != header.PreviousBlockHash {
		panic(fmt.Sprintf("header chain broken: block %x does not extend %x",
			header.Hash, last))
	}
	s.headers = append(s.headers, header)
}

// AddBlock records the header (asserting chain continuity) and applies the
// transactions.
func (s *Store[B]) AddBlock(b Block) {
	s.addHeader(b.Header())
	s.TxStore.AddBlock(b)
}

// IndexedStore is the canonical, strict store.
type IndexedStore struct {
	Store[*IndexedBackend]
}

func NewIndexedStore() *IndexedStore {
	s := &IndexedStore{}
	s.strict = true
	s.backend = NewIndexedBackend()
	return s
}

// IntermediaryStore is the non-strict per-batch store.
type IntermediaryStore struct {
	Store[*IntermediaryBackend]
}

func NewIntermediaryStore() *IntermediaryStore {
	s := &IntermediaryStore{}
	s.backend = NewIntermediaryBackend()
	return s
}

// MergeInto replays this batch into dst: headers first (continuity checked),
// then the recorded spends against dst, then the surviving outputs as adds.
func (s *IntermediaryStore) MergeInto(dst *IndexedStore) {
	for _, header := range s.headers {
		dst.addHeader(header)
	}
	dst.spendInputs(s.backend.spent)
	s.backend.unspent.Range(func(op wire.Outpoint, rec outputRecord) {
		dst.backend.Add(op, rec.addr, rec.value)
	})
}

// NewAugmentedTxStore creates a strict overlay store for building
// augmentations; the base is only read.
func NewAugmentedTxStore(base Backend) *TxStore[*AugmentedBackend] {
	return &TxStore[*AugmentedBackend]{
		strict:  true,
		backend: NewAugmentedBackend(base),
	}
}
